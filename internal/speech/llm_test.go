package speech

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"
)

type audioLLM struct {
	parts   []*genai.Part
	err     error
	lastReq *adkmodel.LLMRequest
}

func (a *audioLLM) Name() string { return "openai-tts" }

func (a *audioLLM) GenerateContent(_ context.Context, req *adkmodel.LLMRequest, _ bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	a.lastReq = req
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		if a.err != nil {
			yield(nil, a.err)
			return
		}
		yield(&adkmodel.LLMResponse{Content: &genai.Content{Role: genai.RoleModel, Parts: a.parts}}, nil)
	}
}

func TestLLMBackend_VoiceMapping(t *testing.T) {
	llm := &audioLLM{parts: []*genai.Part{genai.NewPartFromBytes([]byte("RIFFdata"), "audio/wav")}}
	b := NewLLMBackend(llm, "tts-1")

	for voice, want := range map[string]string{"female": "nova", "male": "onyx", "default": "alloy", "robot": "alloy"} {
		audio, err := b.Synthesize(context.Background(), "Hello.", voice)
		require.NoError(t, err)
		assert.Equal(t, []byte("RIFFdata"), audio)
		assert.Equal(t, "tts-1", llm.lastReq.Model)
		assert.Equal(t, want, llm.lastReq.Config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName, voice)
	}
}

func TestLLMBackend_NoAudio(t *testing.T) {
	b := NewLLMBackend(&audioLLM{parts: []*genai.Part{genai.NewPartFromText("sorry")}}, "tts-1")
	_, err := b.Synthesize(context.Background(), "Hello.", "default")
	assert.ErrorContains(t, err, "no audio")
}

func TestLLMBackend_Error(t *testing.T) {
	b := NewLLMBackend(&audioLLM{err: errors.New("quota exceeded")}, "tts-1")
	_, err := b.Synthesize(context.Background(), "Hello.", "default")
	assert.ErrorContains(t, err, "quota exceeded")
	assert.NoError(t, b.Ping(context.Background()), "LLMs without Ping count as reachable")
}
