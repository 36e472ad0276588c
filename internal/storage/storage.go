package storage

import (
	"context"
	"io"
	"time"

	"github.com/soochol/storylens/internal/storylens"
)

// FileInfo describes a file on disk. Exists is false when the path is absent.
type FileInfo struct {
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Exists   bool      `json:"exists"`
}

// Stats summarizes the upload tree.
type Stats struct {
	TotalBytes int64 `json:"total_bytes"`
	FileCount  int   `json:"file_count"`
	Images     int   `json:"total_images"`
	AudioFiles int   `json:"total_audio_files"`
}

// Storage is the interface for the upload tree backing images and audio.
type Storage interface {
	// SaveImage validates, persists and normalizes an uploaded image.
	SaveImage(ctx context.Context, r io.Reader, filename string, size int64) (*storylens.UploadedImage, error)
	// AudioPath returns the on-disk path for an audio filename.
	AudioPath(filename string) string
	// DeleteFile removes path. It reports false when the file did not exist.
	DeleteFile(path string) (bool, error)
	// FileInfo stats path.
	FileInfo(path string) (FileInfo, error)
	// PruneAudio removes audio files last modified before cutoff.
	PruneAudio(ctx context.Context, cutoff time.Time) (int, error)
	// Stats scans the whole tree.
	Stats(ctx context.Context) (*Stats, error)
	// BaseDir is the root of the tree.
	BaseDir() string
}
