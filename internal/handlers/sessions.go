package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/overlay"
	"github.com/markedit-studio/markedit/internal/session"
)

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]models.SessionView, 0, len(sessions))
	for _, sess := range sessions {
		sessionList = append(sessionList, h.view(sess))
	}
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, h.view(sess))
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.sessionStore.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	sess.Clear()
	h.writeJSON(w, h.view(sess))
}

func (h *Handler) HandleDisplay(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var size models.Size
	if err := json.NewDecoder(r.Body).Decode(&size); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if size.Width < 0 || size.Height < 0 {
		h.writeError(w, "Display size must not be negative", http.StatusBadRequest)
		return
	}

	sess.SetDisplay(size)
	h.writeJSON(w, map[string]any{"display": size})
}

func (h *Handler) HandleMarker(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Color models.MarkerColor `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, map[string]any{"marker": sess.SetMarker(request.Color)})
}

func (h *Handler) HandleReuse(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	if _, err := sess.ReuseOutput(); err != nil {
		if errors.Is(err, session.ErrNoOutput) {
			h.writeError(w, err.Error(), http.StatusConflict)
			return
		}
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, h.view(sess))
}

func (h *Handler) HandlePresets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.config.Presets)
}

func (h *Handler) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, overlay.Palette)
}
