package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soochol/storylens/internal/speech"
	"github.com/soochol/storylens/internal/storage"
	"github.com/soochol/storylens/internal/storylens"
)

const defaultVoice = "default"

// MaxTextLength is the longest text, in runes, accepted for narration.
const MaxTextLength = 5000

// Speaker renders text to an audio file.
type Speaker interface {
	Synthesize(ctx context.Context, text, outputPath, voice string) (*speech.Result, error)
	IsReady() bool
	ModelName() string
	Voices() []string
}

// AudioService manages narration files under the audio directory.
type AudioService struct {
	store   storage.Storage
	speaker Speaker
	format  string
	now     func() time.Time
}

// NewAudioService creates an AudioService writing files with the given
// extension.
func NewAudioService(store storage.Storage, speaker Speaker, format string) *AudioService {
	if format == "" {
		format = "wav"
	}
	return &AudioService{store: store, speaker: speaker, format: format, now: time.Now}
}

// Speaker exposes the synthesizer for status reporting.
func (s *AudioService) Speaker() Speaker { return s.speaker }

// Generate narrates text into a new file named audio_<unix>_<hex>.<format>.
func (s *AudioService) Generate(ctx context.Context, text, voice string) (*storylens.GeneratedAudio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", storylens.ErrValidation)
	}
	if n := utf8.RuneCountInString(text); n > MaxTextLength {
		return nil, fmt.Errorf("%w: text is %d characters, limit is %d", storylens.ErrValidation, n, MaxTextLength)
	}
	if voice == "" {
		voice = defaultVoice
	}

	filename, err := s.newFilename()
	if err != nil {
		return nil, err
	}
	path := s.store.AudioPath(filename)

	start := s.now()
	res, err := s.speaker.Synthesize(ctx, text, path, voice)
	if err != nil {
		return nil, fmt.Errorf("synthesize audio: %w", err)
	}
	return &storylens.GeneratedAudio{
		Filename:       filename,
		Path:           path,
		GenerationTime: s.now().Sub(start).Seconds(),
		Duration:       res.Duration,
		ModelUsed:      res.ModelUsed,
		SampleRate:     res.SampleRate,
		Format:         res.Format,
	}, nil
}

func (s *AudioService) newFilename() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate audio name: %w", err)
	}
	return fmt.Sprintf("audio_%d_%s.%s", s.now().Unix(), hex.EncodeToString(b[:]), s.format), nil
}

// Locate returns the path and size of an existing audio file.
func (s *AudioService) Locate(filename string) (string, storage.FileInfo, error) {
	if err := checkFilename(filename); err != nil {
		return "", storage.FileInfo{}, err
	}
	path := s.store.AudioPath(filename)
	info, err := s.store.FileInfo(path)
	if err != nil {
		return "", storage.FileInfo{}, fmt.Errorf("stat audio: %w", err)
	}
	if !info.Exists {
		return "", storage.FileInfo{}, fmt.Errorf("%w: audio file %s", storylens.ErrNotFound, filename)
	}
	return path, info, nil
}

// Delete removes an audio file; a missing file is ErrNotFound.
func (s *AudioService) Delete(filename string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}
	deleted, err := s.store.DeleteFile(s.store.AudioPath(filename))
	if err != nil {
		return fmt.Errorf("delete audio: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: audio file %s", storylens.ErrNotFound, filename)
	}
	return nil
}

// checkFilename rejects names that would resolve outside the audio directory.
func checkFilename(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid audio filename", storylens.ErrValidation)
	}
	return nil
}
