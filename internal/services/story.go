package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/soochol/storylens/internal/metrics"
	"github.com/soochol/storylens/internal/narrative"
	"github.com/soochol/storylens/internal/storage"
	"github.com/soochol/storylens/internal/storylens"
)

// Upload results recorded in metrics.Uploads.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// Describer produces a description of an image. Implementations never fail;
// they answer with fallback text instead.
type Describer interface {
	Describe(ctx context.Context, image []byte, mimeType string) string
	ModelUsed() string
	IsReady() bool
}

// Story is the outcome of one upload: the stored image and the narrative
// generated from it.
type Story struct {
	ID        int64
	Image     *storylens.UploadedImage
	Narrative storylens.Narrative
	CreatedAt time.Time
}

// StoryService turns an uploaded photo into a story or poem.
type StoryService struct {
	store     storage.Storage
	captioner Describer
	generator *narrative.Generator
}

// NewStoryService creates a StoryService.
func NewStoryService(store storage.Storage, captioner Describer, generator *narrative.Generator) *StoryService {
	return &StoryService{store: store, captioner: captioner, generator: generator}
}

// CaptionerReady reports whether the captioner finished initialization.
func (s *StoryService) CaptionerReady() bool { return s.captioner.IsReady() }

// CheckStoryType rejects an unknown story type before any upload body is
// read.
func (s *StoryService) CheckStoryType(storyType string) error {
	_, err := parseStoryType(storyType)
	return err
}

func parseStoryType(raw string) (storylens.StoryType, error) {
	st, err := storylens.ParseStoryType(raw)
	if err != nil {
		metrics.Upload("invalid", resultRejected)
	}
	return st, err
}

// CreateStory validates storyType, persists the upload, describes it and
// fills a template. The saved image is removed if anything after the save
// fails, so every image on disk belongs to a successful upload.
func (s *StoryService) CreateStory(ctx context.Context, r io.Reader, filename string, size int64, storyType string) (_ *Story, err error) {
	st, err := parseStoryType(storyType)
	if err != nil {
		return nil, err
	}

	img, err := s.store.SaveImage(ctx, r, filename, size)
	if err != nil {
		metrics.Upload(string(st), resultRejected)
		return nil, err
	}
	defer func() {
		if err == nil {
			metrics.Upload(string(st), resultOK)
			return
		}
		metrics.Upload(string(st), resultFailed)
		if _, derr := s.store.DeleteFile(img.Path); derr != nil {
			slog.Error("story: failed to remove image after error", "path", img.Path, "err", derr)
		}
	}()

	data, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, fmt.Errorf("read saved image: %w", err)
	}

	start := time.Now()
	description := s.captioner.Describe(ctx, data, http.DetectContentType(data))

	narrativeStart := time.Now()
	title, content := s.generator.Generate(description, st)
	metrics.ObserveStage(metrics.StageNarrative, narrativeStart)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate story: %w", err)
	}

	now := time.Now()
	slog.Info("story: generated", "image", img.Filename, "story_type", st, "model", s.captioner.ModelUsed())
	return &Story{
		ID:    now.Unix(),
		Image: img,
		Narrative: storylens.Narrative{
			Title:          title,
			Content:        content,
			StoryType:      st,
			GenerationTime: now.Sub(start).Seconds(),
			ModelUsed:      s.captioner.ModelUsed(),
		},
		CreatedAt: now,
	}, nil
}

// StatsSummary is the storage summary reported by the stats endpoint.
type StatsSummary struct {
	TotalImages     int     `json:"total_images"`
	TotalAudioFiles int     `json:"total_audio_files"`
	TotalSizeMB     float64 `json:"total_size_mb"`
	UploadDir       string  `json:"upload_dir"`
}

// Stats scans the upload tree.
func (s *StoryService) Stats(ctx context.Context) (*StatsSummary, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan upload dir: %w", err)
	}
	return &StatsSummary{
		TotalImages:     stats.Images,
		TotalAudioFiles: stats.AudioFiles,
		TotalSizeMB:     roundMB(stats.TotalBytes),
		UploadDir:       s.store.BaseDir(),
	}, nil
}

// roundMB converts bytes to megabytes rounded to two decimals.
func roundMB(n int64) float64 {
	return math.Round(float64(n)/(1<<20)*100) / 100
}
