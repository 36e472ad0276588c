package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/genai"

	adkmodel "google.golang.org/adk/model"
)

func TestAnthropicLLM_Name(t *testing.T) {
	llm := NewAnthropicLLM("test-key")
	if llm.Name() != "anthropic" {
		t.Errorf("Name() = %q, want %q", llm.Name(), "anthropic")
	}
}

func TestAnthropicLLM_GenerateContent(t *testing.T) {
	var receivedReq map[string]any
	var receivedHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &receivedReq); err != nil {
			t.Errorf("failed to unmarshal request body: %v", err)
		}

		resp := map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "a dog running on a beach"},
			},
			"stop_reason": "end_turn",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	llm := NewAnthropicLLM("test-api-key-123", WithAnthropicBaseURL(server.URL))
	req := &adkmodel.LLMRequest{
		Model: "claude-sonnet-4-20250514",
		Contents: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{genai.NewPartFromText("What is in the photo?")}},
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("Answer in one sentence.", "system"),
		},
	}

	var responses []*adkmodel.LLMResponse
	for resp, err := range llm.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		responses = append(responses, resp)
	}

	if got := receivedHeaders.Get("x-api-key"); got != "test-api-key-123" {
		t.Errorf("x-api-key = %q", got)
	}
	if got := receivedHeaders.Get("anthropic-version"); got != anthropicVersion {
		t.Errorf("anthropic-version = %q", got)
	}
	if receivedReq["system"] != "Answer in one sentence." {
		t.Errorf("system = %v", receivedReq["system"])
	}
	if receivedReq["max_tokens"] != float64(defaultMaxTokens) {
		t.Errorf("max_tokens = %v", receivedReq["max_tokens"])
	}
	msgs := receivedReq["messages"].([]any)
	first := msgs[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "What is in the photo?" {
		t.Errorf("unexpected message: %v", first)
	}

	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	resp := responses[0]
	if resp.Content.Parts[0].Text != "a dog running on a beach" {
		t.Errorf("text = %q", resp.Content.Parts[0].Text)
	}
	if resp.FinishReason != genai.FinishReasonStop {
		t.Errorf("FinishReason = %v", resp.FinishReason)
	}
}

func TestAnthropicLLM_ImageBlocks(t *testing.T) {
	var receivedReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&receivedReq)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "ok"}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	llm := NewAnthropicLLM("k", WithAnthropicBaseURL(server.URL))
	req := &adkmodel.LLMRequest{
		Model: "claude-sonnet-4-20250514",
		Contents: []*genai.Content{{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromBytes([]byte("jpegdata"), "image/jpeg"),
				genai.NewPartFromText("Describe."),
			},
		}},
	}
	for _, err := range llm.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	msg := receivedReq["messages"].([]any)[0].(map[string]any)
	blocks := msg["content"].([]any)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	img := blocks[0].(map[string]any)
	src := img["source"].(map[string]any)
	if img["type"] != "image" || src["type"] != "base64" || src["media_type"] != "image/jpeg" {
		t.Errorf("unexpected image block: %v", img)
	}
	if src["data"] != "anBlZ2RhdGE=" {
		t.Errorf("data = %v", src["data"])
	}
}

func TestAnthropicLLM_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "invalid_request_error",
				"message": "model not found",
			},
		})
	}))
	defer server.Close()

	llm := NewAnthropicLLM("test-key", WithAnthropicBaseURL(server.URL))
	req := &adkmodel.LLMRequest{
		Model:    "bad-model",
		Contents: []*genai.Content{{Role: "user", Parts: []*genai.Part{genai.NewPartFromText("Hello")}}},
	}

	var gotError bool
	for _, err := range llm.GenerateContent(context.Background(), req, false) {
		if err != nil {
			gotError = true
		}
	}
	if !gotError {
		t.Error("expected an error for API error response")
	}
}

func TestAnthropicLLM_TokenUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "Hello!"}},
			"stop_reason": "end_turn",
			"usage": map[string]any{
				"input_tokens":  42,
				"output_tokens": 17,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	llm := NewAnthropicLLM("test-key", WithAnthropicBaseURL(server.URL))
	req := &adkmodel.LLMRequest{
		Model:    "claude-sonnet-4-20250514",
		Contents: []*genai.Content{{Role: "user", Parts: []*genai.Part{genai.NewPartFromText("hi")}}},
	}

	var got []*adkmodel.LLMResponse
	for resp, err := range llm.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, resp)
	}

	if len(got) != 1 {
		t.Fatalf("got %d responses, want 1", len(got))
	}
	u := got[0].UsageMetadata
	if u == nil {
		t.Fatal("UsageMetadata is nil, expected token counts")
	}
	if u.PromptTokenCount != 42 || u.CandidatesTokenCount != 17 || u.TotalTokenCount != 59 {
		t.Errorf("unexpected usage: %+v", u)
	}
}

func TestAnthropicLLM_MaxTokensFromConfig(t *testing.T) {
	var receivedReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&receivedReq)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "ok"}},
			"stop_reason": "max_tokens",
		})
	}))
	defer server.Close()

	llm := NewAnthropicLLM("test-key", WithAnthropicBaseURL(server.URL))
	req := &adkmodel.LLMRequest{
		Model:    "claude-sonnet-4-20250514",
		Contents: []*genai.Content{{Role: "user", Parts: []*genai.Part{genai.NewPartFromText("hi")}}},
		Config:   &genai.GenerateContentConfig{MaxOutputTokens: 64},
	}
	var resp *adkmodel.LLMResponse
	for r, err := range llm.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp = r
	}
	if receivedReq["max_tokens"] != float64(64) {
		t.Errorf("max_tokens = %v, want 64", receivedReq["max_tokens"])
	}
	if resp.FinishReason != genai.FinishReasonMaxTokens {
		t.Errorf("FinishReason = %v", resp.FinishReason)
	}
}

func TestAnthropicLLM_Ping(t *testing.T) {
	if err := NewAnthropicLLM("").Ping(context.Background()); err == nil {
		t.Fatal("expected error without API key")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	if err := NewAnthropicLLM("k", WithAnthropicBaseURL(server.URL)).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
