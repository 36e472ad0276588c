package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"

	adkmodel "google.golang.org/adk/model"

	"github.com/soochol/storylens/internal/config"
)

// Compile-time interface compliance check.
var _ adkmodel.LLM = (*AnthropicLLM)(nil)
var _ Pinger = (*AnthropicLLM)(nil)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultMaxTokens        = 1024
)

// AnthropicOption configures an AnthropicLLM.
type AnthropicOption func(*AnthropicLLM)

// WithAnthropicBaseURL sets the base URL for the Anthropic API.
// Useful for testing with httptest.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(a *AnthropicLLM) {
		a.baseURL = strings.TrimRight(url, "/")
	}
}

// AnthropicLLM implements the ADK model.LLM interface for the Anthropic Messages API.
type AnthropicLLM struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAnthropicLLM creates a new AnthropicLLM with the given API key and options.
func NewAnthropicLLM(apiKey string, opts ...AnthropicOption) *AnthropicLLM {
	a := &AnthropicLLM{
		apiKey:  apiKey,
		baseURL: defaultAnthropicBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns "anthropic".
func (a *AnthropicLLM) Name() string {
	return "anthropic"
}

func init() {
	RegisterProvider("anthropic", func(cfg config.ProviderConfig) adkmodel.LLM {
		var opts []AnthropicOption
		if cfg.URL != "" {
			opts = append(opts, WithAnthropicBaseURL(cfg.URL))
		}
		return NewAnthropicLLM(cfg.APIKey, opts...)
	})
}

func (a *AnthropicLLM) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

// Ping lists models, which fails fast on a missing or revoked key.
func (a *AnthropicLLM) Ping(ctx context.Context) error {
	if a.apiKey == "" {
		return errors.New("anthropic: no API key configured")
	}
	req, err := a.newRequest(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return fmt.Errorf("anthropic: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: do request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anthropic: models endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// GenerateContent calls the Messages API once and yields the whole answer.
// The stream flag is ignored.
func (a *AnthropicLLM) GenerateContent(ctx context.Context, req *adkmodel.LLMRequest, stream bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		yield(a.generate(ctx, req))
	}
}

func (a *AnthropicLLM) generate(ctx context.Context, req *adkmodel.LLMRequest) (*adkmodel.LLMResponse, error) {
	payload, err := json.Marshal(newAnthropicRequest(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}
	httpReq, err := a.newRequest(ctx, http.MethodPost, "/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	emitLog(ctx, fmt.Sprintf("anthropic: calling model %s", req.Model))

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic: API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var msg anthropicMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}
	return msg.toLLMResponse(), nil
}

func newAnthropicRequest(req *adkmodel.LLMRequest) *anthropicRequest {
	body := &anthropicRequest{Model: req.Model, MaxTokens: defaultMaxTokens}
	if cfg := req.Config; cfg != nil {
		if cfg.SystemInstruction != nil {
			for _, part := range cfg.SystemInstruction.Parts {
				if part.Text != "" {
					body.System = part.Text
					break
				}
			}
		}
		if cfg.MaxOutputTokens > 0 {
			body.MaxTokens = cfg.MaxOutputTokens
		}
		body.Temperature = cfg.Temperature
	}
	for _, content := range req.Contents {
		role := "user"
		if content.Role == genai.RoleModel {
			role = "assistant"
		}
		if msg, ok := convertAnthropicContent(role, content); ok {
			body.Messages = append(body.Messages, msg)
		}
	}
	return body
}

// convertAnthropicContent builds one message. A lone text part uses the
// string form; images need content blocks.
func convertAnthropicContent(role string, content *genai.Content) (anthropicRequestMessage, bool) {
	var blocks []anthropicBlock
	for _, part := range content.Parts {
		switch {
		case part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image/"):
			blocks = append(blocks, anthropicBlock{
				Type: "image",
				Source: &anthropicImageSource{
					Type:      "base64",
					MediaType: part.InlineData.MIMEType,
					Data:      base64.StdEncoding.EncodeToString(part.InlineData.Data),
				},
			})
		case part.Text != "":
			blocks = append(blocks, anthropicBlock{Type: "text", Text: part.Text})
		}
	}

	msg := anthropicRequestMessage{Role: role}
	switch {
	case len(blocks) == 0:
		return msg, false
	case len(blocks) == 1 && blocks[0].Type == "text":
		msg.Content = blocks[0].Text
	default:
		msg.Content = blocks
	}
	return msg, true
}

func (m *anthropicMessage) toLLMResponse() *adkmodel.LLMResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, block := range m.Content {
		if block.Type == "text" {
			content.Parts = append(content.Parts, genai.NewPartFromText(block.Text))
		}
	}

	resp := &adkmodel.LLMResponse{Content: content, TurnComplete: true}
	switch m.StopReason {
	case "end_turn", "stop_sequence":
		resp.FinishReason = genai.FinishReasonStop
	case "max_tokens":
		resp.FinishReason = genai.FinishReasonMaxTokens
	}
	if u := m.Usage; u != nil {
		resp.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     u.InputTokens,
			CandidatesTokenCount: u.OutputTokens,
			TotalTokenCount:      u.InputTokens + u.OutputTokens,
		}
	}
	return resp
}

type anthropicRequest struct {
	Model       string                    `json:"model"`
	Messages    []anthropicRequestMessage `json:"messages"`
	MaxTokens   int32                     `json:"max_tokens"`
	System      string                    `json:"system,omitempty"`
	Temperature *float32                  `json:"temperature,omitempty"`
}

type anthropicRequestMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []anthropicBlock
}

type anthropicBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicMessage struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int32 `json:"input_tokens"`
		OutputTokens int32 `json:"output_tokens"`
	} `json:"usage,omitempty"`
}
