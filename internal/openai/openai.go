package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/markedit-studio/markedit/internal/images"
	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/providers"
	"github.com/markedit-studio/markedit/internal/request"
)

const (
	// DefaultModel is the OpenAI image model used for edits
	DefaultModel = "gpt-image-1"

	defaultURL = "https://api.openai.com/v1/images/edits"

	defaultCommentary = "Editing completed successfully."
)

// OpenAI is an Editor backed by the OpenAI image edits endpoint. Image
// parts are uploaded in order; the text part becomes the prompt.
type OpenAI struct {
	URL        string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// New returns a new OpenAI editor. The API key comes from OPENAI_API_KEY.
func New(config providers.Config) (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		URL:        defaultURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Edit sends a single images/edits request
func (o *OpenAI) Edit(ctx context.Context, parts []request.Part) (*models.Result, error) {
	body, contentType, err := o.buildForm(parts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	slog.Info("Sending edit request", "provider", "openai", "model", o.Model, "parts", len(parts))
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Data []struct {
			B64JSON       string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
		OutputFormat string `json:"output_format"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	result := &models.Result{Commentary: defaultCommentary}
	for _, d := range response.Data {
		if d.RevisedPrompt != "" {
			result.Commentary = d.RevisedPrompt
		}
		if result.Image != nil || d.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}
		item, err := images.Load("generated."+formatOrPNG(response.OutputFormat), data)
		if err != nil {
			return nil, fmt.Errorf("invalid image payload: %w", err)
		}
		result.Image = item
	}

	if result.Image == nil {
		return result, providers.ErrIncomplete
	}
	return result, nil
}

func (o *OpenAI) buildForm(parts []request.Part) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("model", o.Model); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("n", "1"); err != nil {
		return nil, "", err
	}

	n := 0
	for _, p := range parts {
		switch p.Kind {
		case request.KindImage:
			n++
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image[]"; filename="part%d%s"`, n, images.Extension(p.MIMEType)))
			h.Set("Content-Type", p.MIMEType)
			w, err := mw.CreatePart(h)
			if err != nil {
				return nil, "", fmt.Errorf("failed to add image part: %w", err)
			}
			if _, err := w.Write(p.Data); err != nil {
				return nil, "", fmt.Errorf("failed to add image part: %w", err)
			}
		case request.KindText:
			if err := mw.WriteField("prompt", p.Text); err != nil {
				return nil, "", err
			}
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func formatOrPNG(format string) string {
	if format == "" {
		return "png"
	}
	return format
}
