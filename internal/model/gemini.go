package model

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"google.golang.org/genai"

	adkmodel "google.golang.org/adk/model"

	"github.com/soochol/storylens/internal/config"
)

var (
	_ adkmodel.LLM = (*GeminiLLM)(nil)
	_ Pinger       = (*GeminiLLM)(nil)
)

// GeminiLLM talks to the Gemini API through the genai SDK. Image parts are
// already genai.Blob inline data, so requests pass through untouched.
type GeminiLLM struct {
	apiKey string
	model  string

	clientOnce sync.Once
	client     *genai.Client
	clientErr  error
}

// NewGeminiLLM returns a lazily connected adapter. model is only used by Ping.
func NewGeminiLLM(apiKey, model string) *GeminiLLM {
	return &GeminiLLM{apiKey: apiKey, model: model}
}

func init() {
	RegisterProvider("gemini", func(cfg config.ProviderConfig) adkmodel.LLM {
		return NewGeminiLLM(cfg.APIKey, cfg.Model)
	})
}

func (g *GeminiLLM) Name() string { return "gemini" }

func (g *GeminiLLM) connect(ctx context.Context) (*genai.Client, error) {
	g.clientOnce.Do(func() {
		if g.apiKey == "" {
			g.clientErr = errors.New("gemini: no API key configured")
			return
		}
		g.client, g.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if g.clientErr != nil {
			g.clientErr = fmt.Errorf("gemini: new client: %w", g.clientErr)
		}
	})
	return g.client, g.clientErr
}

// Ping connects and looks up the configured model.
func (g *GeminiLLM) Ping(ctx context.Context) error {
	client, err := g.connect(ctx)
	if err != nil {
		return err
	}
	if g.model == "" {
		return nil
	}
	if _, err := client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini: model %s unavailable: %w", g.model, err)
	}
	return nil
}

// GenerateContent makes one unary call; captions are short enough that
// streaming buys nothing, so the stream flag is ignored.
func (g *GeminiLLM) GenerateContent(ctx context.Context, req *adkmodel.LLMRequest, stream bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		yield(g.generate(ctx, req))
	}
}

func (g *GeminiLLM) generate(ctx context.Context, req *adkmodel.LLMRequest) (*adkmodel.LLMResponse, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	cfg := req.Config
	if cfg == nil {
		cfg = &genai.GenerateContentConfig{}
	}

	emitLog(ctx, fmt.Sprintf("gemini: calling model %s", req.Model))
	resp, err := client.Models.GenerateContent(ctx, req.Model, req.Contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return geminiToLLMResponse(resp), nil
}

func geminiToLLMResponse(resp *genai.GenerateContentResponse) *adkmodel.LLMResponse {
	out := &adkmodel.LLMResponse{TurnComplete: true}
	if resp == nil {
		return out
	}
	out.UsageMetadata = resp.UsageMetadata
	if len(resp.Candidates) > 0 {
		best := resp.Candidates[0]
		out.Content = best.Content
		out.FinishReason = best.FinishReason
	}
	return out
}
