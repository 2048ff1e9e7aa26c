package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/markedit-studio/markedit/internal/config"
	"github.com/markedit-studio/markedit/internal/images"
	"github.com/markedit-studio/markedit/internal/markup"
	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/overlay"
	"github.com/markedit-studio/markedit/internal/providers"
	"github.com/markedit-studio/markedit/internal/session"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// StrokeFile is the on-disk form of a marked-up image
type StrokeFile struct {
	Display models.Size     `yaml:"display"`
	Strokes []models.Stroke `yaml:"strokes"`
}

// LoadStrokeFile reads strokes recorded in display space. JSON works too.
func LoadStrokeFile(path string) (*StrokeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stroke file: %w", err)
	}
	var sf StrokeFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse stroke file %s: %w", path, err)
	}
	return &sf, nil
}

// Replay draws the strokes through the same pointer capture the server uses
func (sf *StrokeFile) Replay(sess *session.Session) {
	sess.SetDisplay(sf.Display)
	rect := markup.Rect{Width: sf.Display.Width, Height: sf.Display.Height}
	for _, st := range sf.Strokes {
		if len(st.Points) == 0 {
			continue
		}
		sess.SelectMarker(st.Color)
		for i, p := range st.Points {
			typ := markup.PointerMove
			if i == 0 {
				typ = markup.PointerDown
			}
			sess.HandlePointer(markup.PointerEvent{Type: typ, ClientX: p.X, ClientY: p.Y, Rect: rect})
		}
		sess.HandlePointer(markup.PointerEvent{Type: markup.PointerUp, Rect: rect})
	}
	sess.SelectMarker(models.None)
}

func newEditCmd(configPath *string) *cobra.Command {
	var imagePath string
	var strokesPath string
	var refs []string
	var prompt string
	var preset string
	var expand bool
	var outPath string
	var overlayOut string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Run one marker-guided edit from files on disk",
		Example: `  # Global enhancement, no marks
  markedit edit --image photo.jpg --out edited.png

  # Apply marks drawn at 800x600 with a style reference
  markedit edit --image photo.jpg --strokes marks.yaml --ref style.jpg \
    --prompt "Remove the lamp post" --out edited.png

  # Outpaint
  markedit edit --image photo.jpg --expand --out wider.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			instruction, err := cfg.Instruction(prompt, preset)
			if err != nil {
				return err
			}

			sess := session.New("cli", cfg.HistoryLimit)
			source, err := loadImageFile(imagePath)
			if err != nil {
				return err
			}
			sess.LoadSource(source)

			for _, ref := range refs {
				item, err := loadImageFile(ref)
				if err != nil {
					return err
				}
				sess.AddReferences(item)
			}

			if strokesPath != "" {
				sf, err := LoadStrokeFile(strokesPath)
				if err != nil {
					return err
				}
				sf.Replay(sess)
				slog.Info("Strokes loaded", "count", len(sess.Strokes()), "display_width", sf.Display.Width, "display_height", sf.Display.Height)
			}

			if overlayOut != "" {
				if err := writeSubmissionOverlay(sess, overlayOut); err != nil {
					return err
				}
			}
			if dryRun {
				return nil
			}

			editor, release, err := newEditor(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer release()

			result, err := sess.Submit(cmd.Context(), editor, session.SubmitOptions{
				Instruction: instruction,
				Expand:      expand,
			})
			if err != nil {
				if errors.Is(err, providers.ErrIncomplete) {
					return errors.New(sess.ErrorMessage())
				}
				return err
			}

			if err := os.WriteFile(outPath, result.Image.Data, 0644); err != nil {
				return fmt.Errorf("failed to save output: %w", err)
			}
			slog.Info("Output saved", "path", outPath, "width", result.Image.ImageWidth, "height", result.Image.ImageHeight)
			fmt.Fprintln(cmd.OutOrStdout(), result.Commentary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Source image (required)")
	cmd.Flags().StringVarP(&strokesPath, "strokes", "s", "", "YAML or JSON file with strokes and the display size they were drawn at")
	cmd.Flags().StringArrayVarP(&refs, "ref", "r", nil, "Reference image (repeatable, order is kept)")
	cmd.Flags().StringVarP(&prompt, "prompt", "m", "", "Edit instruction")
	cmd.Flags().StringVar(&preset, "preset", "", "Quick tool preset to use when no prompt is given")
	cmd.Flags().BoolVar(&expand, "expand", false, "Expand the scene beyond its borders (outpainting)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "edited.png", "Where to write the generated image")
	cmd.Flags().StringVar(&overlayOut, "overlay-out", "", "Also write the marked overlay that is sent to the model")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after rendering the overlay, without calling the model")

	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func loadImageFile(path string) (*models.ImageItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	item, err := images.Load(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return item, nil
}

func writeSubmissionOverlay(sess *session.Session, path string) error {
	src, err := images.Decode(sess.Source())
	if err != nil {
		return err
	}
	snap, ok, err := overlay.RenderSubmission(src, sess.Strokes(), sess.Display())
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("No overlay to write: no renderable strokes or display size")
		return nil
	}
	if err := os.WriteFile(path, snap.Data, 0644); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	slog.Info("Overlay saved", "path", path, "width", snap.Width, "height", snap.Height)
	return nil
}
