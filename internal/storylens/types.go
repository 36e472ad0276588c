package storylens

import (
	"fmt"
	"strings"
)

type StoryType string

const (
	StoryTypeStory StoryType = "story"
	StoryTypePoem  StoryType = "poem"
)

// ParseStoryType accepts "story" or "poem". An empty value defaults to story.
func ParseStoryType(s string) (StoryType, error) {
	switch StoryType(s) {
	case "", StoryTypeStory:
		return StoryTypeStory, nil
	case StoryTypePoem:
		return StoryTypePoem, nil
	}
	return "", fmt.Errorf("%w: story_type must be 'story' or 'poem'", ErrValidation)
}

// Label is the capitalized form used in generated titles.
func (t StoryType) Label() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

type UploadedImage struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type Narrative struct {
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	StoryType      StoryType `json:"story_type"`
	GenerationTime float64   `json:"generation_time"`
	ModelUsed      string    `json:"model_used"`
}

type GeneratedAudio struct {
	Filename       string  `json:"audio_filename"`
	Path           string  `json:"audio_path"`
	GenerationTime float64 `json:"generation_time"`
	Duration       float64 `json:"duration"`
	ModelUsed      string  `json:"model_used"`
	SampleRate     int     `json:"-"`
	Format         string  `json:"-"`
}

type ServiceStatus struct {
	CaptionerLoaded bool     `json:"kosmos_model_loaded"`
	SpeechLoaded    bool     `json:"tts_model_loaded"`
	Voices          []string `json:"available_voices"`
}
