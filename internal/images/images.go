package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/markedit-studio/markedit/internal/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxUploadSize limits any single image to 10MB
const MaxUploadSize = 10 * 1024 * 1024

var (
	// ErrNotImage is returned for content that is not a supported image
	ErrNotImage = errors.New("file is not a supported image")
	// ErrTooLarge is returned for images over MaxUploadSize
	ErrTooLarge = errors.New("file too large (max 10MB)")
)

var supported = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Extension returns the file extension for a supported mime type
func Extension(mimeType string) string {
	if ext, ok := supported[mimeType]; ok {
		return ext
	}
	return ".png"
}

// Load sniffs and validates data and records its native dimensions.
// The declared type of an upload is never trusted; the bytes decide.
func Load(filename string, data []byte) (*models.ImageItem, error) {
	if len(data) >= MaxUploadSize {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrNotImage)
	}

	mimeType := http.DetectContentType(data)
	if _, ok := supported[mimeType]; !ok {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mimeType)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: zero-sized %s image", ErrNotImage, format)
	}

	if filename == "" {
		filename = "image" + Extension(mimeType)
	}

	return &models.ImageItem{
		ID:          uuid.NewString(),
		Filename:    filepath.Base(filename),
		MIMEType:    mimeType,
		ImageWidth:  cfg.Width,
		ImageHeight: cfg.Height,
		Data:        data,
	}, nil
}

// Decode decodes the pixels of a loaded image
func Decode(item *models.ImageItem) (image.Image, error) {
	if item == nil {
		return nil, fmt.Errorf("no image loaded")
	}
	img, _, err := image.Decode(bytes.NewReader(item.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", item.Filename, err)
	}
	return img, nil
}

// DownloadName builds a filename for saving an output image
func DownloadName(item *models.ImageItem, prefix string) string {
	base := strings.TrimSuffix(item.Filename, filepath.Ext(item.Filename))
	if base == "" {
		base = item.ID
	}
	return prefix + base + Extension(item.MIMEType)
}
