package narrative

// Each template embeds the description once through a single %s verb.

var storyTemplates = []string{
	"In a world where magic meets reality, %s. The air was filled with excitement as friends gathered for an adventure that would change their lives forever. Each person brought their own unique energy to the group, creating a bond that transcended ordinary friendship. As they stood together, they knew this moment would be remembered for years to come, a testament to the power of connection and shared joy.",

	"The photograph captures %s, but there's more to this story than meets the eye. Behind the smiles and laughter lies a tale of friendship that began years ago. These companions had traveled far and wide, collecting memories like precious gems. Today marked another chapter in their ongoing adventure, where every moment was a celebration of life itself.",

	"Once upon a time, in a place where dreams come alive, %s. The scene was set for an extraordinary day filled with wonder and discovery. Each person in the group carried stories of their own, and together they created something magical. The bonds they shared were stronger than any challenge they might face, and their joy was infectious to all who witnessed it.",
}

var poemTemplates = []string{
	`In colors bright and spirits high,
%s beneath the sky.
Friends together, hearts so true,
Creating memories, fresh and new.

Laughter echoes through the air,
Joy and wonder everywhere.
In this moment, time stands still,
Hearts with happiness they fill.`,

	`A picture worth a thousand words,
%s like singing birds.
Together standing, side by side,
With friendship as their faithful guide.

The world around them seems to glow,
With warmth that only true friends know.
In this snapshot of pure delight,
Everything feels just right.`,

	`Captured here in vibrant hue,
%s, a friendship true.
Smiles that light the darkest day,
Hearts that chase all fears away.

In this moment, frozen time,
Life itself becomes a rhyme.
Friends united, spirits free,
Pure joy for all to see.`,
}
