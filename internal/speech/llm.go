package speech

import (
	"context"
	"errors"
	"fmt"

	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/soochol/storylens/internal/llmutil"
	"github.com/soochol/storylens/internal/model"
)

// llmVoices maps the public voice names to prebuilt voices.
var llmVoices = map[string]string{
	"default": "alloy",
	"female":  "nova",
	"male":    "onyx",
}

// LLMBackend synthesizes speech through an adkmodel.LLM that answers with
// inline audio, such as model.OpenAITTSModel.
type LLMBackend struct {
	llm   adkmodel.LLM
	model string
}

func NewLLMBackend(llm adkmodel.LLM, modelName string) *LLMBackend {
	return &LLMBackend{llm: llm, model: modelName}
}

func (b *LLMBackend) Name() string { return b.llm.Name() }

func (b *LLMBackend) Ping(ctx context.Context) error {
	if p, ok := b.llm.(model.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (b *LLMBackend) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	name, ok := llmVoices[voice]
	if !ok {
		name = llmVoices["default"]
	}
	req := &adkmodel.LLMRequest{
		Model:    b.model,
		Contents: []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: name},
				},
			},
		},
	}
	ctx = model.WithLogFunc(ctx, model.DebugLog("synthesizer"))
	resp, err := llmutil.Collect(b.llm.GenerateContent(ctx, req, false))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.llm.Name(), err)
	}
	audio, _, ok := llmutil.ExtractAudio(resp)
	if !ok {
		return nil, errors.New(b.llm.Name() + ": response carried no audio")
	}
	return audio, nil
}
