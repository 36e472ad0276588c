package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soochol/storylens/internal/storylens"
)

const (
	imagesDir = "images"
	audioDir  = "audio"
)

var _ Storage = (*LocalStorage)(nil)

// Options configures upload limits for LocalStorage.
type Options struct {
	MaxFileSize       int64
	AllowedExtensions []string
	AudioFormat       string
}

// LocalStorage stores uploads under baseDir/images and baseDir/audio.
type LocalStorage struct {
	baseDir     string
	maxFileSize int64
	allowed     []string
	audioExt    string
}

func NewLocalStorage(baseDir string, opts Options) (*LocalStorage, error) {
	for _, sub := range []string{imagesDir, audioDir} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	allowed := make([]string, 0, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed = append(allowed, normalizeExt(ext))
	}
	audioExt := normalizeExt(opts.AudioFormat)
	if audioExt == "" {
		audioExt = "wav"
	}
	return &LocalStorage{
		baseDir:     baseDir,
		maxFileSize: opts.MaxFileSize,
		allowed:     allowed,
		audioExt:    audioExt,
	}, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func (s *LocalStorage) BaseDir() string { return s.baseDir }

// SaveImage checks the declared size and extension before writing anything.
// A negative size means unknown; the byte count is enforced while copying.
func (s *LocalStorage) SaveImage(ctx context.Context, r io.Reader, filename string, size int64) (*storylens.UploadedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", storylens.ErrTooLarge, size, s.maxFileSize)
	}

	ext := "jpg"
	if filename != "" {
		ext = normalizeExt(filepath.Ext(filename))
	}
	if !slices.Contains(s.allowed, ext) {
		return nil, fmt.Errorf("%w: file type not allowed, allowed types: %s",
			storylens.ErrValidation, strings.Join(s.allowed, ", "))
	}

	storedName := uuid.NewString() + "." + ext
	fullPath := filepath.Join(s.baseDir, imagesDir, storedName)

	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, s.maxFileSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if n > s.maxFileSize {
		os.Remove(fullPath)
		return nil, fmt.Errorf("%w: upload exceeds limit of %d bytes", storylens.ErrTooLarge, s.maxFileSize)
	}

	finalPath, width, height, err := normalizeImage(fullPath)
	if err != nil {
		os.Remove(fullPath)
		return nil, err
	}
	st, err := os.Stat(finalPath)
	if err != nil {
		os.Remove(finalPath)
		return nil, fmt.Errorf("stat saved image: %w", err)
	}

	return &storylens.UploadedImage{
		Filename: filepath.Base(finalPath),
		Path:     finalPath,
		Size:     st.Size(),
		Width:    width,
		Height:   height,
	}, nil
}

func (s *LocalStorage) AudioPath(filename string) string {
	return filepath.Join(s.baseDir, audioDir, filename)
}

func (s *LocalStorage) DeleteFile(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete file: %w", err)
	}
	return true, nil
}

func (s *LocalStorage) FileInfo(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{}, nil
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat file: %w", err)
	}
	if st.IsDir() {
		return FileInfo{}, nil
	}
	return FileInfo{Size: st.Size(), Modified: st.ModTime(), Exists: true}, nil
}

func (s *LocalStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	imagesRoot := filepath.Join(s.baseDir, imagesDir)
	audioRoot := filepath.Join(s.baseDir, audioDir)

	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.TotalBytes += info.Size()
		stats.FileCount++

		ext := normalizeExt(filepath.Ext(path))
		switch filepath.Dir(path) {
		case imagesRoot:
			if slices.Contains(s.allowed, ext) {
				stats.Images++
			}
		case audioRoot:
			if ext == s.audioExt {
				stats.AudioFiles++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan storage: %w", err)
	}
	return stats, nil
}

// PruneAudio removes files in the audio directory last modified before
// cutoff and returns how many were removed.
func (s *LocalStorage) PruneAudio(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, audioDir))
	if err != nil {
		return 0, fmt.Errorf("read audio dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		ok, err := s.DeleteFile(s.AudioPath(e.Name()))
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
