// Package vision describes images in one sentence using a captioning model,
// or a fixed description when no model is reachable.
package vision

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/soochol/storylens/internal/config"
	"github.com/soochol/storylens/internal/llmutil"
	"github.com/soochol/storylens/internal/metrics"
	"github.com/soochol/storylens/internal/model"
)

const (
	// FallbackDescription is returned when the active backend fails a request.
	FallbackDescription = "an interesting scene captured in this photograph"
	// MockDescription is the mock backend's answer for every image.
	MockDescription = "a vibrant scene with people enjoying a moment together in a colorful setting"

	defaultPrompt       = "Describe this image in one short sentence."
	defaultProbeTimeout = 10 * time.Second
	maxOutputTokens     = 100
)

// Kind identifies which backend a Captioner selected at start-up.
type Kind int

const (
	KindMock Kind = iota
	KindPrimary
	KindSecondary
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindSecondary:
		return "secondary"
	}
	return "mock"
}

// Backend is a captioning model together with the model ID sent to it.
type Backend struct {
	LLM   adkmodel.LLM
	Model string
}

func (b Backend) label() string {
	if b.Model != "" {
		return b.Model
	}
	return b.LLM.Name()
}

// Options tunes a Captioner.
type Options struct {
	Prompt       string
	MaxLength    int // rune cap on descriptions, 0 disables
	ProbeTimeout time.Duration
}

// Captioner is safe for concurrent use. Its backend is fixed after New.
type Captioner struct {
	kind    Kind
	backend Backend
	prompt  string
	maxLen  int
}

// FromConfig builds the primary and secondary backends from cfg and selects
// one of them with New.
func FromConfig(ctx context.Context, cfg config.CaptionConfig, maxLength int) *Captioner {
	var backends []Backend
	for _, pc := range []config.ProviderConfig{cfg.Primary, cfg.Secondary} {
		if !pc.Enabled() {
			backends = append(backends, Backend{})
			continue
		}
		llm, ok := model.BuildLLM(pc)
		if !ok {
			slog.Warn("captioner: unknown provider type", "type", pc.Type)
			backends = append(backends, Backend{})
			continue
		}
		backends = append(backends, Backend{LLM: llm, Model: pc.Model})
	}
	return New(ctx, backends[0], backends[1], Options{
		Prompt:    cfg.Prompt,
		MaxLength: maxLength,
	})
}

// New tries primary, then secondary, and falls back to the mock. A backend
// is selected when it has an LLM and, if it implements model.Pinger, its
// Ping succeeds within the probe timeout.
func New(ctx context.Context, primary, secondary Backend, opts Options) *Captioner {
	c := &Captioner{
		prompt: opts.Prompt,
		maxLen: opts.MaxLength,
	}
	if c.prompt == "" {
		c.prompt = defaultPrompt
	}
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	for _, cand := range []struct {
		kind    Kind
		backend Backend
	}{{KindPrimary, primary}, {KindSecondary, secondary}} {
		if cand.backend.LLM == nil {
			continue
		}
		if err := probe(ctx, cand.backend.LLM, timeout); err != nil {
			slog.Warn("captioner: backend unavailable",
				"backend", cand.kind, "name", cand.backend.label(), "err", err)
			continue
		}
		c.kind = cand.kind
		c.backend = cand.backend
		slog.Info("captioner: backend selected", "backend", cand.kind, "name", cand.backend.label())
		return c
	}

	slog.Warn("captioner: no backend available, using mock descriptions")
	return c
}

func probe(ctx context.Context, llm adkmodel.LLM, timeout time.Duration) error {
	p, ok := llm.(model.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx)
}

// Kind reports the selected backend.
func (c *Captioner) Kind() Kind { return c.kind }

// IsReady is true once New has returned, mock included.
func (c *Captioner) IsReady() bool { return true }

// Name is the active model's label, or "mock".
func (c *Captioner) Name() string {
	if c.kind == KindMock {
		return "mock"
	}
	return c.backend.label()
}

// ModelUsed is the model tag reported with generated narratives.
func (c *Captioner) ModelUsed() string {
	if c.kind == KindMock {
		return "creative-mock"
	}
	return c.backend.label() + "-enhanced-creative"
}

// Describe returns a one-sentence description of image. It never fails:
// backend errors and empty answers yield FallbackDescription.
func (c *Captioner) Describe(ctx context.Context, image []byte, mimeType string) string {
	defer metrics.ObserveStage(metrics.StageCaption, time.Now())

	if c.kind == KindMock {
		return c.truncate(MockDescription)
	}

	ctx = model.WithLogFunc(ctx, model.DebugLog("captioner"))
	req := &adkmodel.LLMRequest{
		Model: c.backend.Model,
		Contents: []*genai.Content{{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromBytes(image, mimeType),
				genai.NewPartFromText(c.prompt),
			},
		}},
		Config: &genai.GenerateContentConfig{
			MaxOutputTokens: maxOutputTokens,
		},
	}

	resp, err := llmutil.Collect(c.backend.LLM.GenerateContent(ctx, req, false))
	if err != nil {
		slog.Warn("captioner: describe failed, using fallback", "name", c.backend.label(), "err", err)
		metrics.Fallback(metrics.ComponentCaptioner)
		return c.truncate(FallbackDescription)
	}

	desc := normalize(llmutil.ExtractText(resp))
	if desc == "" {
		slog.Warn("captioner: empty description, using fallback", "name", c.backend.label())
		metrics.Fallback(metrics.ComponentCaptioner)
		desc = FallbackDescription
	}
	return c.truncate(desc)
}

// normalize turns a model answer into a clause that reads well inside a
// sentence: one line, no surrounding quotes, no trailing period.
func normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'`")
	s = strings.TrimRight(s, ". ")
	return strings.TrimSpace(s)
}

func (c *Captioner) truncate(s string) string {
	if c.maxLen <= 0 || utf8.RuneCountInString(s) <= c.maxLen {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:c.maxLen]))
}
