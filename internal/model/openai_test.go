package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	adkmodel "google.golang.org/adk/model"
)

func TestOpenAILLM_Name(t *testing.T) {
	llm := NewOpenAILLM("test-key")
	if got := llm.Name(); got != "openai" {
		t.Errorf("Name() = %q, want %q", got, "openai")
	}
}

func TestOpenAILLM_CustomName(t *testing.T) {
	llm := NewOpenAILLM("test-key", WithOpenAIName("ollama"))
	if got := llm.Name(); got != "ollama" {
		t.Errorf("Name() = %q, want %q", got, "ollama")
	}
}

func collect(t *testing.T, seq func(func(*adkmodel.LLMResponse, error) bool)) (*adkmodel.LLMResponse, error) {
	t.Helper()
	var resp *adkmodel.LLMResponse
	var gotErr error
	for r, err := range seq {
		if err != nil {
			gotErr = err
			continue
		}
		resp = r
	}
	return resp, gotErr
}

func TestOpenAILLM_GenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		var reqBody map[string]any
		if err := json.Unmarshal(body, &reqBody); err != nil {
			t.Errorf("failed to unmarshal body: %v", err)
		}
		if reqBody["model"] != "gpt-4o" {
			t.Errorf("model = %v, want gpt-4o", reqBody["model"])
		}
		if reqBody["stream"] != false {
			t.Errorf("stream = %v, want false", reqBody["stream"])
		}

		messages, ok := reqBody["messages"].([]any)
		if !ok || len(messages) != 2 {
			t.Errorf("expected 2 messages (system + user), got %v", reqBody["messages"])
			return
		}
		sysMsg := messages[0].(map[string]any)
		if sysMsg["role"] != "system" || sysMsg["content"] != "You are helpful." {
			t.Errorf("unexpected system message: %v", sysMsg)
		}
		userMsg := messages[1].(map[string]any)
		if userMsg["role"] != "user" || userMsg["content"] != "Hello" {
			t.Errorf("unexpected user message: %v", userMsg)
		}

		resp := map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "Hello! How can I help?"},
				"finish_reason": "stop",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	llm := NewOpenAILLM("test-key", WithOpenAIBaseURL(server.URL))
	req := &adkmodel.LLMRequest{
		Model:    "gpt-4o",
		Contents: []*genai.Content{genai.NewContentFromText("Hello", genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("You are helpful.", "system"),
		},
	}

	resp, err := collect(t, llm.GenerateContent(context.Background(), req, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content.Parts[0].Text != "Hello! How can I help?" {
		t.Errorf("text = %q", resp.Content.Parts[0].Text)
	}
	if resp.FinishReason != genai.FinishReasonStop {
		t.Errorf("finish reason = %v", resp.FinishReason)
	}
}

func TestOpenAILLM_ImagePartsAsDataURI(t *testing.T) {
	var content []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody struct {
			Messages []map[string]any `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&reqBody)
		if len(reqBody.Messages) == 1 {
			content, _ = reqBody.Messages[0]["content"].([]any)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "a red square"}}},
		})
	}))
	defer server.Close()

	llm := NewOpenAILLM("", WithOpenAIBaseURL(server.URL+"/"))
	req := &adkmodel.LLMRequest{
		Model: "llava",
		Contents: []*genai.Content{{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromBytes([]byte{0x89, 'P', 'N', 'G'}, "image/png"),
				genai.NewPartFromText("Describe this image."),
			},
		}},
	}

	resp, err := collect(t, llm.GenerateContent(context.Background(), req, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content.Parts[0].Text != "a red square" {
		t.Errorf("text = %q", resp.Content.Parts[0].Text)
	}
	if len(content) != 2 {
		t.Fatalf("expected 2 content parts, got %v", content)
	}
	img := content[0].(map[string]any)
	if img["type"] != "image_url" {
		t.Errorf("first part type = %v", img["type"])
	}
	url := img["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("url = %q", url)
	}
	txt := content[1].(map[string]any)
	if txt["type"] != "text" || txt["text"] != "Describe this image." {
		t.Errorf("unexpected text part: %v", txt)
	}
}

func TestOpenAILLM_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	llm := NewOpenAILLM("k", WithOpenAIBaseURL(server.URL))
	req := &adkmodel.LLMRequest{
		Model:    "gpt-4o",
		Contents: []*genai.Content{genai.NewContentFromText("Hello", genai.RoleUser)},
	}
	_, err := collect(t, llm.GenerateContent(context.Background(), req, false))
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
}

func TestOpenAILLM_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	llm := NewOpenAILLM("k", WithOpenAIBaseURL(server.URL))
	req := &adkmodel.LLMRequest{
		Model:    "gpt-4o",
		Contents: []*genai.Content{genai.NewContentFromText("Hello", genai.RoleUser)},
	}
	_, err := collect(t, llm.GenerateContent(context.Background(), req, false))
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAILLM_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/models" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	if err := NewOpenAILLM("", WithOpenAIBaseURL(server.URL)).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpenAILLM_PingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	if err := NewOpenAILLM("", WithOpenAIBaseURL(server.URL)).Ping(context.Background()); err == nil {
		t.Fatal("expected error for 401")
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	if err := NewOpenAILLM("", WithOpenAIBaseURL(url)).Ping(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
