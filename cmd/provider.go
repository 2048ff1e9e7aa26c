package cmd

import (
	"context"
	"fmt"

	"github.com/markedit-studio/markedit/internal/config"
	"github.com/markedit-studio/markedit/internal/gemini"
	"github.com/markedit-studio/markedit/internal/openai"
	"github.com/markedit-studio/markedit/internal/providers"
)

// newEditor builds the configured provider. The returned func releases it.
func newEditor(ctx context.Context, cfg *config.Config) (providers.Editor, func(), error) {
	pc := providers.Config{Model: cfg.Model, Temperature: cfg.Temperature}
	switch cfg.Provider {
	case "gemini":
		g, err := gemini.New(ctx, pc)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	case "openai":
		o, err := openai.New(pc)
		if err != nil {
			return nil, nil, err
		}
		return o, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
