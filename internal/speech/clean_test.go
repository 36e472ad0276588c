package speech

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", DefaultSentence},
		{"whitespace only", " \n\t ", DefaultSentence},
		{"adds period", "Hello world", "Hello world."},
		{"keeps period", "Hello world.", "Hello world."},
		{"collapses whitespace", "  a\n\nb \t c ", "a b c."},
		{"quotes", "“Hi” she said \"twice\"", "Hi she said twice."},
		{"dashes", "wait—what–now", "wait-what-now."},
		{"apostrophes", "it’s ‘fine’", "it's 'fine'."},
		{"grounding tags", "<grounding> a dog <phrase>on</phrase> grass", "a dog on grass."},
		{"patch index", "a cat<patch_index_0012><patch_index_0400> sleeping", "a cat sleeping."},
		{"bare patch index", "a cat patch_index_12 sleeping", "a cat sleeping."},
		{"technical note", "a scene (x1, y1): with trees", "a scene with trees."},
		{"stray brackets", "a > b < c", "a b c."},
		{"only markup", "<grounding></grounding>", DefaultSentence},
		{"nested removal", "a (patch_index_1): b", "a b."},
		{"rejoined token", "x patch_(note):index_7 y", "x y."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestClean_TruncatesTo100Words(t *testing.T) {
	in := strings.Repeat("word ", 150)
	got := Clean(in)
	assert.Len(t, strings.Fields(got), 100)
	assert.True(t, strings.HasSuffix(got, "word."))
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello world",
		"<grounding>An image of</grounding><phrase> a snowman</phrase><object><patch_index_0044><patch_index_0863></object> warming himself",
		"a (b) (c): d",
		"patch_(x):index_5",
		"ends with dots...",
		"trailing <",
		"((a): b):",
		"“quote” — dash",
		strings.Repeat("long ", 120) + "tail",
		".",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
		assert.True(t, strings.HasSuffix(once, "."), "input %q", in)
		assert.NotEmpty(t, once)
	}
}

func TestClean_DeeplyNestedInputIsBounded(t *testing.T) {
	k := 60000
	in := strings.Repeat("(a)patch_", k) + "index_1" + strings.Repeat(":index_1", k) + ":"

	start := time.Now()
	got := Clean(in)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), maxRunes)
	assert.Equal(t, got, Clean(got))
}

func TestClean_LongWordIsCapped(t *testing.T) {
	in := strings.Repeat("é", 3*maxRunes)
	got := Clean(in)
	assert.Equal(t, maxRunes, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "é."))
	assert.Equal(t, got, Clean(got))
}
