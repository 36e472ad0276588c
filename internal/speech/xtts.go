package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	xttsGenerateSpeech = "/v1/generate/speech"
	xttsHealth         = "/health"

	contentTypeJSON = "application/json"
	contentTypeWAV  = "audio/wav"
)

// XTTSOptions are the generation settings sent with every request.
type XTTSOptions struct {
	Model       string
	Language    string
	Temperature float64
	SampleRate  int
	Device      string
	Timeout     time.Duration
}

// XTTSClient talks to a standalone XTTS-v2 HTTP server.
type XTTSClient struct {
	httpClient *http.Client
	baseURL    string
	opts       XTTSOptions
}

type xttsRequest struct {
	Text        string  `json:"text"`
	Model       string  `json:"model,omitempty"`
	Speaker     string  `json:"speaker,omitempty"`
	Language    string  `json:"language"`
	Temperature float64 `json:"temperature"`
	SampleRate  int     `json:"sample_rate,omitempty"`
	Device      string  `json:"device,omitempty"`
}

type xttsErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewXTTSClient returns a client for the server at baseURL, e.g.
// "http://localhost:8020". Empty language and zero temperature fall back
// to "en" and 0.75.
func NewXTTSClient(baseURL string, opts XTTSOptions) *XTTSClient {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.75
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &XTTSClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

func (c *XTTSClient) Name() string { return "xtts-v2" }

// Synthesize returns WAV bytes for text. The voice is passed through as the
// server-side speaker name; "default" leaves speaker selection to the server.
func (c *XTTSClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("xtts: text cannot be empty")
	}
	req := xttsRequest{
		Text:        text,
		Model:       c.opts.Model,
		Language:    c.opts.Language,
		Temperature: c.opts.Temperature,
		SampleRate:  c.opts.SampleRate,
		Device:      c.opts.Device,
	}
	if voice != "" && voice != "default" {
		req.Speaker = voice
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("xtts: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+xttsGenerateSpeech, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("xtts: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("xtts: send request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseXTTSError(resp)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != contentTypeWAV {
		return nil, fmt.Errorf("xtts: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("xtts: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("xtts: received empty audio data")
	}
	return audio, nil
}

// Ping checks the server's health endpoint.
func (c *XTTSClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+xttsHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("xtts: create health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("xtts: health check at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("xtts: health check returned %s", resp.Status)
	}
	return nil
}

// parseXTTSError decodes the server's JSON error body, or falls back to the
// raw body text.
func parseXTTSError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e xttsErrorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Detail != "" {
		return fmt.Errorf("xtts: service error (%s): %s (code: %s)", resp.Status, e.Detail, e.ErrorCode)
	}
	return fmt.Errorf("xtts: service returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
}
