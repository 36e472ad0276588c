// Package speech renders narrative text to audio files through a
// text-to-speech backend, or writes a placeholder when none is reachable.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soochol/storylens/internal/config"
	"github.com/soochol/storylens/internal/metrics"
	"github.com/soochol/storylens/internal/model"
)

// MockModel is the model name reported for placeholder output.
const MockModel = "mock-tts-v1"

const (
	defaultProbeTimeout = 10 * time.Second
	mockPreviewRunes    = 100
)

var voices = []string{"default", "female", "male"}

// Backend turns cleaned text into encoded audio bytes.
type Backend interface {
	Name() string
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Result describes a written audio file.
type Result struct {
	Duration   float64
	ModelUsed  string
	SampleRate int
	Format     string
}

// Options tunes a Synthesizer.
type Options struct {
	SampleRate   int
	Format       string
	ProbeTimeout time.Duration
}

// Synthesizer is safe for concurrent use; its backend is fixed after New.
type Synthesizer struct {
	backend    Backend // nil selects the placeholder writer
	sampleRate int
	format     string
}

// FromConfig builds the XTTS client and the OpenAI TTS fallback from cfg
// and selects one with New.
func FromConfig(ctx context.Context, cfg config.SpeechConfig, ai config.AIConfig) *Synthesizer {
	var primary, secondary Backend
	if cfg.URL != "" {
		primary = NewXTTSClient(cfg.URL, XTTSOptions{
			Model:       cfg.Model,
			Language:    cfg.Language,
			Temperature: cfg.Temperature,
			SampleRate:  ai.AudioSampleRate,
			Device:      ai.Device,
			Timeout:     cfg.Timeout,
		})
	}
	if fb := cfg.Fallback; fb.Type == "openai" && fb.APIKey != "" {
		secondary = NewLLMBackend(model.NewOpenAITTSModel(fb.APIKey, fb.URL, ai.AudioFormat), fb.Model)
	}
	return New(ctx, primary, secondary, Options{
		SampleRate: ai.AudioSampleRate,
		Format:     ai.AudioFormat,
	})
}

// New tries primary, then secondary, and otherwise writes placeholders.
// Backends implementing model.Pinger must answer within the probe timeout.
func New(ctx context.Context, primary, secondary Backend, opts Options) *Synthesizer {
	s := &Synthesizer{sampleRate: opts.SampleRate, format: opts.Format}
	if s.format == "" {
		s.format = "wav"
	}
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	for _, b := range []Backend{primary, secondary} {
		if b == nil {
			continue
		}
		if p, ok := b.(model.Pinger); ok {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			err := p.Ping(pctx)
			cancel()
			if err != nil {
				slog.Warn("synthesizer: backend unavailable", "name", b.Name(), "err", err)
				continue
			}
		}
		slog.Info("synthesizer: backend selected", "name", b.Name())
		s.backend = b
		return s
	}

	slog.Warn("synthesizer: no backend available, writing placeholder audio")
	return s
}

// IsReady is true once New has returned, placeholder mode included.
func (s *Synthesizer) IsReady() bool { return true }

// ModelName is the active backend's name, or MockModel.
func (s *Synthesizer) ModelName() string {
	if s.backend == nil {
		return MockModel
	}
	return s.backend.Name()
}

// Voices lists the accepted voice names. Only backends that map voices
// (the OpenAI fallback) act on them.
func (s *Synthesizer) Voices() []string {
	return append([]string(nil), voices...)
}

// Synthesize cleans text, renders it and writes the audio to outputPath.
// A backend failure degrades to a placeholder file reported as MockModel;
// only a failure to write the placeholder is returned as an error.
func (s *Synthesizer) Synthesize(ctx context.Context, text, outputPath, voice string) (*Result, error) {
	defer metrics.ObserveStage(metrics.StageSpeech, time.Now())

	if s.backend == nil {
		return s.writePlaceholder(text, outputPath, voice)
	}

	audio, err := s.backend.Synthesize(ctx, Clean(text), voice)
	if err == nil {
		err = os.WriteFile(outputPath, audio, 0644)
	}
	if err != nil {
		slog.Warn("synthesizer: synthesis failed, writing placeholder", "name", s.backend.Name(), "err", err)
		metrics.Fallback(metrics.ComponentSynthesizer)
		return s.writePlaceholder(text, outputPath, voice)
	}

	duration, err := WAVDuration(outputPath)
	if err != nil {
		slog.Debug("synthesizer: could not probe duration", "path", outputPath, "err", err)
		duration = 0
	}
	metrics.AudioGenerations.WithLabelValues(s.backend.Name()).Inc()
	return &Result{
		Duration:   duration,
		ModelUsed:  s.backend.Name(),
		SampleRate: s.sampleRate,
		Format:     s.format,
	}, nil
}

// writePlaceholder writes a text marker file, not valid audio. Duration is
// estimated at a tenth of a second per character of the raw text.
func (s *Synthesizer) writePlaceholder(text, outputPath, voice string) (*Result, error) {
	preview := text
	if utf8.RuneCountInString(preview) > mockPreviewRunes {
		preview = string([]rune(preview)[:mockPreviewRunes])
	}
	var b strings.Builder
	b.WriteString("# Mock audio file - TTS not available\n")
	fmt.Fprintf(&b, "# Text: %s...\n", preview)
	fmt.Fprintf(&b, "# Voice: %s\n", voice)

	if err := os.WriteFile(outputPath, []byte(b.String()), 0644); err != nil {
		return nil, fmt.Errorf("write placeholder audio: %w", err)
	}
	metrics.AudioGenerations.WithLabelValues(MockModel).Inc()
	return &Result{
		Duration:   float64(utf8.RuneCountInString(text)) / 10,
		ModelUsed:  MockModel,
		SampleRate: s.sampleRate,
		Format:     s.format,
	}, nil
}
