package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/markedit-studio/markedit/internal/images"
	"github.com/markedit-studio/markedit/internal/markup"
	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/overlay"
	"github.com/markedit-studio/markedit/internal/providers"
	"github.com/markedit-studio/markedit/internal/request"
)

// SubmitOptions are the per-submission inputs from the user
type SubmitOptions struct {
	Instruction string
	Expand      bool
	// Display, when set, is a fresh reading of the rendered image size
	// taken by the caller right before submitting.
	Display *models.Size
}

// Submit runs the pipeline once: snapshot, composite, assemble, one remote
// call, then the status transition. The lock is not held during the call.
// The returned error is nil only when an image was produced and applied.
func (s *Session) Submit(ctx context.Context, editor providers.Editor, opts SubmitOptions) (*models.Result, error) {
	snap, err := s.begin(opts.Display)
	if err != nil {
		return nil, err
	}

	parts, err := s.assemble(snap, opts)
	if err != nil {
		return nil, s.complete(snap.epoch, nil, err)
	}

	result, err := editor.Edit(ctx, parts)
	if cerr := s.complete(snap.epoch, result, err); cerr != nil {
		return result, cerr
	}
	return result, nil
}

func (s *Session) assemble(snap *snapshot, opts SubmitOptions) ([]request.Part, error) {
	in := request.Input{
		Source:      request.Image{MIMEType: snap.source.MIMEType, Data: snap.source.Data},
		Instruction: opts.Instruction,
		Expand:      opts.Expand,
		Marked:      len(snap.strokes) > 0,
	}
	for _, ref := range snap.references {
		in.References = append(in.References, request.Image{MIMEType: ref.MIMEType, Data: ref.Data})
	}

	if len(markup.Renderable(snap.strokes)) > 0 {
		src, err := images.Decode(snap.source)
		if err != nil {
			return nil, err
		}
		marked, ok, err := overlay.RenderSubmission(src, snap.strokes, snap.display)
		if err != nil {
			return nil, fmt.Errorf("failed to render overlay: %w", err)
		}
		if ok {
			in.Overlay = &request.Image{MIMEType: marked.MIMEType, Data: marked.Data}
		} else {
			slog.Warn("Skipping overlay, display size unknown", "session_id", s.ID)
		}
	}

	parts := request.Assemble(in)
	slog.Info("Request assembled", "session_id", s.ID, "parts", len(parts), "overlay", in.Overlay != nil, "references", len(in.References), "expand", in.Expand)
	return parts, nil
}

// RenderDisplay renders the live overlay at the current display size
func (s *Session) RenderDisplay() *image.NRGBA {
	s.mu.Lock()
	strokes := s.capture.Strokes.Strokes()
	display := s.display
	s.mu.Unlock()
	return overlay.RenderDisplay(strokes, display)
}
