package providers

import (
	"context"

	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/request"
)

// Config represents the configuration for a generation provider
type Config struct {
	Model       string
	Temperature float64
}

// Editor performs one request/response exchange with a generation service.
// A response without an image is reported as an error wrapping
// ErrIncomplete, with the partial result still returned.
type Editor interface {
	Edit(ctx context.Context, parts []request.Part) (*models.Result, error)
}

// EditorFunc adapts a function to Editor
type EditorFunc func(ctx context.Context, parts []request.Part) (*models.Result, error)

func (f EditorFunc) Edit(ctx context.Context, parts []request.Part) (*models.Result, error) {
	return f(ctx, parts)
}
