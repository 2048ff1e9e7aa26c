package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/markedit-studio/markedit/internal/images"
	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/providers"
	"github.com/markedit-studio/markedit/internal/request"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the image-capable Gemini model used for edits
	DefaultModel = "gemini-2.5-flash-image"

	// DefaultCommentary is reported when the response carries no text
	DefaultCommentary = "Editing completed successfully."
)

// Gemini is an Editor backed by Google Gemini
type Gemini struct {
	client *genai.Client
	config providers.Config
}

// New returns a new Gemini editor. The API key comes from GEMINI_API_KEY.
func New(ctx context.Context, config providers.Config) (*Gemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Gemini{client: client, config: config}, nil
}

// Close releases the underlying client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Edit sends the parts in order and waits for the single response
func (g *Gemini) Edit(ctx context.Context, parts []request.Part) (*models.Result, error) {
	model := g.client.GenerativeModel(g.config.Model)
	if g.config.Temperature > 0 {
		model.SetTemperature(float32(g.config.Temperature))
	}

	slog.Info("Sending edit request", "model", g.config.Model, "parts", len(parts))
	resp, err := model.GenerateContent(ctx, ToParts(parts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return ParseResponse(resp)
}

// ToParts converts assembled parts to SDK parts, keeping their order
func ToParts(parts []request.Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case request.KindImage:
			out = append(out, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
		case request.KindText:
			out = append(out, genai.Text(p.Text))
		}
	}
	return out
}

// ParseResponse takes the first inline image and the last text of the
// first candidate. A response with no image returns the partial result
// together with an error wrapping providers.ErrIncomplete.
func ParseResponse(resp *genai.GenerateContentResponse) (*models.Result, error) {
	result := &models.Result{Commentary: DefaultCommentary}

	if resp != nil && len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		if candidate != nil && candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch v := part.(type) {
				case genai.Blob:
					if result.Image == nil && len(v.Data) > 0 {
						result.Image = outputImage(v)
					}
				case genai.Text:
					if v != "" {
						result.Commentary = string(v)
					}
				}
			}
		}
	}

	if result.Image == nil {
		return result, providers.ErrIncomplete
	}
	return result, nil
}

func outputImage(blob genai.Blob) *models.ImageItem {
	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	item, err := images.Load("generated"+images.Extension(mimeType), blob.Data)
	if err != nil {
		slog.Warn("Failed to inspect generated image", "error", err)
		return &models.ImageItem{
			ID:       uuid.NewString(),
			Filename: "generated" + images.Extension(mimeType),
			MIMEType: mimeType,
			Data:     blob.Data,
		}
	}
	return item
}
