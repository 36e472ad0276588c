package llmutil

import (
	"errors"
	"iter"
	"strings"

	adkmodel "google.golang.org/adk/model"
)

// ErrEmptyResponse is returned by Collect when the iterator yields nothing.
var ErrEmptyResponse = errors.New("model returned no response")

// Collect drains a GenerateContent iterator and merges the yielded
// responses. The first error stops iteration and is returned.
func Collect(seq iter.Seq2[*adkmodel.LLMResponse, error]) (*adkmodel.LLMResponse, error) {
	var merged *adkmodel.LLMResponse
	for resp, err := range seq {
		if err != nil {
			return nil, err
		}
		if resp == nil {
			continue
		}
		if merged == nil || merged.Content == nil {
			merged = resp
			continue
		}
		if resp.Content != nil {
			merged.Content.Parts = append(merged.Content.Parts, resp.Content.Parts...)
		}
		merged.TurnComplete = resp.TurnComplete
		merged.FinishReason = resp.FinishReason
	}
	if merged == nil {
		return nil, ErrEmptyResponse
	}
	return merged, nil
}

// ExtractText concatenates all text parts from an LLMResponse into a single string.
// Returns an empty string if the response or its content is nil.
func ExtractText(resp *adkmodel.LLMResponse) string {
	if resp == nil || resp.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// ExtractAudio returns the first audio/* inline blob of a response.
func ExtractAudio(resp *adkmodel.LLMResponse) (data []byte, mimeType string, ok bool) {
	if resp == nil || resp.Content == nil {
		return nil, "", false
	}
	for _, p := range resp.Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 &&
			strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
			return p.InlineData.Data, p.InlineData.MIMEType, true
		}
	}
	return nil, "", false
}
