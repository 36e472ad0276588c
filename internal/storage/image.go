package storage

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/soochol/storylens/internal/storylens"
)

const jpegQuality = 95

// isRGB reports whether img is already a three-channel colour image.
// Palette, grayscale, CMYK and alpha-carrying images are not.
func isRGB(img image.Image) bool {
	switch img.(type) {
	case *image.YCbCr, *image.RGBA, *image.RGBA64:
		return true
	}
	return false
}

// normalizeImage decodes the file at path and, when it is not RGB, re-encodes
// it as JPEG under a .jpg name. It returns the final path and dimensions.
func normalizeImage(path string) (string, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("open image: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %v", storylens.ErrInvalidImage, err)
	}

	b := img.Bounds()
	if isRGB(img) {
		return path, b.Dx(), b.Dy(), nil
	}

	rgbPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
	tmp := rgbPath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", 0, 0, fmt.Errorf("create converted image: %w", err)
	}
	err = jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", 0, 0, fmt.Errorf("encode converted image: %w", err)
	}
	if err := os.Rename(tmp, rgbPath); err != nil {
		os.Remove(tmp)
		return "", 0, 0, fmt.Errorf("rename converted image: %w", err)
	}
	if rgbPath != path {
		os.Remove(path)
	}
	return rgbPath, b.Dx(), b.Dy(), nil
}
