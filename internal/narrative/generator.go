// Package narrative turns an image description into a short story or poem
// by filling one of a few fixed templates.
package narrative

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/soochol/storylens/internal/storylens"
)

const (
	titleScanWords = 6
	titleMaxWords  = 4
	titleMinRunes  = 3
	titleTrimChars = ".,!?;:"
)

// Generator is safe for concurrent use: every call draws from its own
// freshly seeded source.
type Generator struct {
	newRand func() *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandSource replaces the per-call random source factory.
func WithRandSource(fn func() *rand.Rand) Option {
	return func(g *Generator) { g.newRand = fn }
}

func New(opts ...Option) *Generator {
	g := &Generator{newRand: seededRand}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func seededRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(fmt.Sprintf("narrative: read seed: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// Templates returns the templates for storyType.
func Templates(storyType storylens.StoryType) []string {
	if storyType == storylens.StoryTypePoem {
		return poemTemplates
	}
	return storyTemplates
}

// Generate fills a uniformly chosen template with description and derives
// the title from the result. storyType must already be validated.
func (g *Generator) Generate(description string, storyType storylens.StoryType) (title, content string) {
	templates := Templates(storyType)
	tmpl := templates[g.newRand().IntN(len(templates))]
	content = Fill(tmpl, description)
	return Title(content, storyType), content
}

// Fill substitutes description into tmpl.
func Fill(tmpl, description string) string {
	return fmt.Sprintf(tmpl, description)
}

// Title is "<Label>: w1 w2 w3 w4..." built from the first six words of
// content, keeping words of at least three characters with surrounding
// punctuation removed.
func Title(content string, storyType storylens.StoryType) string {
	words := strings.Fields(content)
	if len(words) > titleScanWords {
		words = words[:titleScanWords]
	}
	kept := make([]string, 0, titleMaxWords)
	for _, w := range words {
		if utf8.RuneCountInString(w) < titleMinRunes {
			continue
		}
		kept = append(kept, strings.Trim(w, titleTrimChars))
		if len(kept) == titleMaxWords {
			break
		}
	}
	return fmt.Sprintf("%s: %s...", storyType.Label(), strings.Join(kept, " "))
}

// Seed derives a deterministic source from n, for tests and reproducible runs.
func Seed(n uint64) func() *rand.Rand {
	return func() *rand.Rand {
		var seed [32]byte
		binary.LittleEndian.PutUint64(seed[:], n)
		return rand.New(rand.NewChaCha8(seed))
	}
}
