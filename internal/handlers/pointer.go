package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/markedit-studio/markedit/internal/markup"
	"github.com/markedit-studio/markedit/internal/session"
)

type pointerReply struct {
	markup.Outcome
	Strokes int    `json:"strokes"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) HandlePointer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var ev markup.PointerEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := ev.Validate(); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, applyPointer(sess, ev))
}

// HandlePointerStream accepts a WebSocket carrying one JSON pointer event
// per message and answers each with the outcome. A dropped connection ends
// any stroke in progress, like the pointer leaving the canvas.
func (h *Handler) HandlePointerStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade pointer stream", "session_id", sess.ID, "err", err)
		return
	}
	defer conn.Close()
	defer sess.HandlePointer(markup.PointerEvent{Type: markup.PointerLeave})

	slog.Debug("Pointer stream opened", "session_id", sess.ID)
	for {
		var ev markup.PointerEvent
		if err := conn.ReadJSON(&ev); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				if werr := conn.WriteJSON(pointerReply{Error: "invalid JSON: " + err.Error()}); werr != nil {
					return
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Pointer stream closed unexpectedly", "session_id", sess.ID, "err", err)
			}
			return
		}

		reply := pointerReply{}
		if err := ev.Validate(); err != nil {
			reply.Error = err.Error()
		} else {
			reply = applyPointer(sess, ev)
		}
		if err := conn.WriteJSON(reply); err != nil {
			slog.Warn("Failed to write pointer reply", "session_id", sess.ID, "err", err)
			return
		}
	}
}

func (h *Handler) HandleResetStrokes(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	sess.ResetStrokes()
	h.writeJSON(w, pointerReply{Outcome: markup.Outcome{Changed: true}})
}

func applyPointer(sess *session.Session, ev markup.PointerEvent) pointerReply {
	outcome := sess.HandlePointer(ev)
	return pointerReply{Outcome: outcome, Strokes: len(sess.Strokes())}
}
