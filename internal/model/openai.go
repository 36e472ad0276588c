// Package model provides LLM interface implementations for various providers.
package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"

	adkmodel "google.golang.org/adk/model"

	"github.com/soochol/storylens/internal/config"
)

var _ adkmodel.LLM = (*OpenAILLM)(nil)
var _ Pinger = (*OpenAILLM)(nil)

const openaiDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIOption configures an OpenAILLM instance.
type OpenAIOption func(*OpenAILLM)

// WithOpenAIBaseURL sets a custom base URL for the API endpoint.
// This is useful for OpenAI-compatible servers like Ollama, LM Studio or
// a self-hosted LLaVA endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *OpenAILLM) {
		o.baseURL = strings.TrimRight(url, "/")
	}
}

// WithOpenAIName sets a custom name for the LLM instance.
func WithOpenAIName(name string) OpenAIOption {
	return func(o *OpenAILLM) {
		o.name = name
	}
}

// WithOpenAIHTTPClient replaces the default HTTP client.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAILLM) {
		o.client = c
	}
}

// OpenAILLM implements the ADK model.LLM interface for the OpenAI Chat
// Completions API. Inline image parts are sent as image_url data URIs.
type OpenAILLM struct {
	apiKey  string
	baseURL string
	name    string
	client  *http.Client
}

// NewOpenAILLM creates a new OpenAI LLM adapter.
func NewOpenAILLM(apiKey string, opts ...OpenAIOption) *OpenAILLM {
	llm := &OpenAILLM{
		apiKey:  apiKey,
		baseURL: openaiDefaultBaseURL,
		name:    "openai",
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(llm)
	}
	return llm
}

// Name returns the configured name of this LLM (default "openai").
func (o *OpenAILLM) Name() string {
	return o.name
}

func init() {
	RegisterProvider("openai", func(cfg config.ProviderConfig) adkmodel.LLM {
		opts := []OpenAIOption{WithOpenAIName("openai")}
		if cfg.URL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.URL))
		}
		return NewOpenAILLM(cfg.APIKey, opts...)
	})
}

func (o *OpenAILLM) authorize(req *http.Request) {
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
}

// Ping lists the server's models. Any non-200 answer counts as unavailable.
func (o *OpenAILLM) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("openai: failed to create HTTP request: %w", err)
	}
	o.authorize(httpReq)

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("openai: HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()
	io.Copy(io.Discard, httpResp.Body)

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai: models endpoint returned status %d", httpResp.StatusCode)
	}
	return nil
}

// GenerateContent sends one non-streaming chat completion request and
// yields its single response.
func (o *OpenAILLM) GenerateContent(ctx context.Context, req *adkmodel.LLMRequest, stream bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		yield(o.complete(ctx, req))
	}
}

func (o *OpenAILLM) complete(ctx context.Context, req *adkmodel.LLMRequest) (*adkmodel.LLMResponse, error) {
	encoded, err := json.Marshal(newOpenAIChatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	o.authorize(httpReq)

	emitLog(ctx, fmt.Sprintf("openai: calling model %s at %s", req.Model, o.baseURL))

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: do request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: API returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var apiResp openaiChatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	return apiResp.toLLMResponse()
}

func newOpenAIChatRequest(req *adkmodel.LLMRequest) *openaiChatRequest {
	body := &openaiChatRequest{Model: req.Model}
	if cfg := req.Config; cfg != nil {
		if text := extractText(cfg.SystemInstruction); text != "" {
			body.Messages = append(body.Messages, openaiRequestMessage{Role: "system", Content: text})
		}
		body.Temperature = cfg.Temperature
		body.TopP = cfg.TopP
		body.MaxTokens = cfg.MaxOutputTokens
		body.Stop = cfg.StopSequences
	}
	for _, content := range req.Contents {
		if msg, ok := convertOpenAIContent(content); ok {
			body.Messages = append(body.Messages, msg)
		}
	}
	return body
}

// convertOpenAIContent builds one chat message. Text-only content uses the
// plain string form; inline images switch to the array-of-parts form.
func convertOpenAIContent(content *genai.Content) (openaiRequestMessage, bool) {
	var texts []string
	var parts []openaiContentPart
	hasImage := false

	for _, part := range content.Parts {
		switch {
		case part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image/"):
			hasImage = true
			parts = append(parts, openaiContentPart{
				Type:     "image_url",
				ImageURL: &openaiImageURL{URL: dataURI(part.InlineData)},
			})
		case part.Text != "":
			texts = append(texts, part.Text)
			parts = append(parts, openaiContentPart{Type: "text", Text: part.Text})
		}
	}

	msg := openaiRequestMessage{Role: openaiRole(content.Role)}
	switch {
	case hasImage:
		msg.Content = parts
	case len(texts) > 0:
		msg.Content = strings.Join(texts, "\n")
	default:
		return msg, false
	}
	return msg, true
}

func dataURI(blob *genai.Blob) string {
	return "data:" + blob.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data)
}

func (r *openaiChatResponse) toLLMResponse() (*adkmodel.LLMResponse, error) {
	if len(r.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices in response")
	}
	choice := r.Choices[0]

	content := &genai.Content{Role: genai.RoleModel}
	if choice.Message.Content != "" {
		content.Parts = []*genai.Part{genai.NewPartFromText(choice.Message.Content)}
	}
	resp := &adkmodel.LLMResponse{Content: content, TurnComplete: true}
	switch choice.FinishReason {
	case "stop":
		resp.FinishReason = genai.FinishReasonStop
	case "length":
		resp.FinishReason = genai.FinishReasonMaxTokens
	}
	return resp, nil
}

// extractText concatenates all text parts from a Content.
func extractText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var text string
	for i, part := range content.Parts {
		if part.Text != "" {
			if i > 0 && text != "" {
				text += "\n"
			}
			text += part.Text
		}
	}
	return text
}

// openaiRole converts a genai role string to an OpenAI role string.
func openaiRole(role string) string {
	switch role {
	case genai.RoleModel:
		return "assistant"
	case genai.RoleUser, "":
		return "user"
	default:
		return role
	}
}

type openaiChatRequest struct {
	Model       string                 `json:"model"`
	Messages    []openaiRequestMessage `json:"messages"`
	Stream      bool                   `json:"stream"`
	Temperature *float32               `json:"temperature,omitempty"`
	TopP        *float32               `json:"top_p,omitempty"`
	MaxTokens   int32                  `json:"max_tokens,omitempty"`
	Stop        []string               `json:"stop,omitempty"`
}

type openaiRequestMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openaiContentPart
}

type openaiContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

type openaiImageURL struct {
	URL string `json:"url"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
