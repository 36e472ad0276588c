package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime"
	"net/http"
	"strings"

	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	defaultSpeechModel = "tts-1"
	defaultSpeechVoice = "alloy"
)

var (
	_ adkmodel.LLM = (*OpenAITTSModel)(nil)
	_ Pinger       = (*OpenAITTSModel)(nil)
)

// OpenAITTSModel exposes the /audio/speech endpoint as an adkmodel.LLM.
// Text parts are spoken, the system instruction becomes the speaking
// instructions and the prebuilt voice in SpeechConfig picks the voice.
// The audio comes back as a single InlineData part.
type OpenAITTSModel struct {
	apiKey  string
	baseURL string
	format  string
	client  *http.Client
}

// NewOpenAITTSModel returns a speech adapter. Empty baseURL means the public
// OpenAI API, empty format means wav.
func NewOpenAITTSModel(apiKey, baseURL, format string) *OpenAITTSModel {
	t := &OpenAITTSModel{
		apiKey:  apiKey,
		baseURL: openaiDefaultBaseURL,
		format:  "wav",
		client:  &http.Client{},
	}
	if baseURL != "" {
		t.baseURL = strings.TrimRight(baseURL, "/")
	}
	if format != "" {
		t.format = format
	}
	return t
}

func (t *OpenAITTSModel) Name() string { return "openai-tts" }

func (t *OpenAITTSModel) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("openai-tts: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai-tts: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// Ping checks the key against the models endpoint.
func (t *OpenAITTSModel) Ping(ctx context.Context) error {
	if t.apiKey == "" {
		return errors.New("openai-tts: no API key configured")
	}
	resp, err := t.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai-tts: models endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (t *OpenAITTSModel) GenerateContent(ctx context.Context, req *adkmodel.LLMRequest, stream bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		yield(t.speak(ctx, req))
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice,omitempty"`
	Instructions   string `json:"instructions,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func (t *OpenAITTSModel) newSpeechRequest(req *adkmodel.LLMRequest) (*speechRequest, error) {
	var input strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			input.WriteString(p.Text)
		}
	}
	if input.Len() == 0 {
		return nil, errors.New("openai-tts: no text to speak")
	}

	sr := &speechRequest{
		Model:          req.Model,
		Input:          input.String(),
		Voice:          prebuiltVoice(req.Config),
		ResponseFormat: t.format,
	}
	if sr.Model == "" {
		sr.Model = defaultSpeechModel
	}
	if sr.Voice == "" {
		sr.Voice = defaultSpeechVoice
	}
	if req.Config != nil {
		sr.Instructions = extractText(req.Config.SystemInstruction)
	}
	return sr, nil
}

func prebuiltVoice(cfg *genai.GenerateContentConfig) string {
	if cfg == nil || cfg.SpeechConfig == nil {
		return ""
	}
	vc := cfg.SpeechConfig.VoiceConfig
	if vc == nil || vc.PrebuiltVoiceConfig == nil {
		return ""
	}
	return vc.PrebuiltVoiceConfig.VoiceName
}

func (t *OpenAITTSModel) speak(ctx context.Context, req *adkmodel.LLMRequest) (*adkmodel.LLMResponse, error) {
	sr, err := t.newSpeechRequest(req)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("openai-tts: marshal request: %w", err)
	}

	emitLog(ctx, fmt.Sprintf("openai-tts: %d chars, voice %s, model %s", len(sr.Input), sr.Voice, sr.Model))

	resp, err := t.do(ctx, http.MethodPost, "/audio/speech", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai-tts: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai-tts: server returned %d: %s", resp.StatusCode, audio)
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mimeType, "audio/") {
		mimeType = "audio/" + t.format
	}

	return &adkmodel.LLMResponse{
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{{InlineData: &genai.Blob{Data: audio, MIMEType: mimeType}}},
		},
		TurnComplete: true,
		FinishReason: genai.FinishReasonStop,
	}, nil
}
