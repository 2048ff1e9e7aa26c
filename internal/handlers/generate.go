package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/markedit-studio/markedit/internal/images"
	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/providers"
	"github.com/markedit-studio/markedit/internal/session"
)

type generateRequest struct {
	Instruction string       `json:"instruction"`
	Preset      string       `json:"preset"`
	Expand      bool         `json:"expand"`
	Display     *models.Size `json:"display,omitempty"`
}

type generateResponse struct {
	Status     models.Status         `json:"status"`
	Analysis   string                `json:"analysis,omitempty"`
	Error      string                `json:"error,omitempty"`
	Incomplete bool                  `json:"incomplete,omitempty"`
	OutputURL  string                `json:"output_url,omitempty"`
	History    []models.HistoryEntry `json:"history"`
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if h.editor == nil {
		h.writeError(w, "No generation provider configured", http.StatusServiceUnavailable)
		return
	}

	var request generateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	instruction, err := h.config.Instruction(request.Instruction, request.Preset)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The remote call is never aborted on behalf of the client; a late
	// answer for a reset session is dropped by the session itself.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.generateTimeout)
	defer cancel()

	start := time.Now()
	_, err = sess.Submit(ctx, h.editor, session.SubmitOptions{
		Instruction: instruction,
		Expand:      request.Expand,
		Display:     request.Display,
	})
	slog.Info("Generation finished", "session_id", sess.ID, "duration", time.Since(start), "status", sess.Status())

	response := generateResponse{
		Status:   sess.Status(),
		Analysis: sess.Analysis(),
		Error:    sess.ErrorMessage(),
		History:  sess.History(),
	}

	switch {
	case err == nil:
		response.OutputURL = "/api/sessions/" + sess.ID + "/output"
		h.writeJSON(w, response)
	case errors.Is(err, session.ErrNoSource), errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrStale):
		response.Error = err.Error()
		h.writeJSONStatus(w, http.StatusConflict, response)
	case errors.Is(err, providers.ErrIncomplete):
		response.Incomplete = true
		h.writeJSONStatus(w, http.StatusUnprocessableEntity, response)
	default:
		h.writeJSONStatus(w, http.StatusBadGateway, response)
	}
}

func (h *Handler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, sess.RenderDisplay()); err != nil {
		slog.Error("Unable to encode overlay", "session_id", sess.ID, "err", err)
	}
}

func (h *Handler) HandleOutput(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	output := sess.Output()
	if output == nil {
		h.writeError(w, "No generated image", http.StatusNotFound)
		return
	}
	h.writeImage(w, output, fmt.Sprintf("CHR_%d%s", time.Now().UnixMilli(), images.Extension(output.MIMEType)))
}

func (h *Handler) HandleHistoryImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		h.writeError(w, "Invalid history index", http.StatusBadRequest)
		return
	}
	entry, err := sess.HistoryEntry(n)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.writeImage(w, entry.Image, images.DownloadName(entry.Image, "history_"))
}

func (h *Handler) writeImage(w http.ResponseWriter, item *models.ImageItem, filename string) {
	w.Header().Set("Content-Type", item.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(item.Data)))
	if _, err := w.Write(item.Data); err != nil {
		slog.Error("Unable to write image", "image_id", item.ID, "err", err)
	}
}
