package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/markedit-studio/markedit/internal/config"
	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/providers"
	"github.com/markedit-studio/markedit/internal/session"
	"github.com/markedit-studio/markedit/internal/storage"
)

// DefaultGenerateTimeout bounds a single remote edit
const DefaultGenerateTimeout = 5 * time.Minute

type Handler struct {
	sessionStore    *storage.SessionStore
	editor          providers.Editor
	config          *config.Config
	upgrader        websocket.Upgrader
	staticDir       string
	generateTimeout time.Duration
}

func New(editor providers.Editor, cfg *config.Config, staticDir string) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Handler{
		sessionStore:    storage.New(cfg.HistoryLimit),
		editor:          editor,
		config:          cfg,
		staticDir:       staticDir,
		generateTimeout: DefaultGenerateTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/source", h.HandleLoadSource)
	mux.HandleFunc("DELETE /api/sessions/{id}/source", h.HandleClear)
	mux.HandleFunc("POST /api/sessions/{id}/references", h.HandleAddReferences)
	mux.HandleFunc("DELETE /api/sessions/{id}/references/{index}", h.HandleRemoveReference)
	mux.HandleFunc("PUT /api/sessions/{id}/display", h.HandleDisplay)
	mux.HandleFunc("PUT /api/sessions/{id}/marker", h.HandleMarker)
	mux.HandleFunc("POST /api/sessions/{id}/pointer", h.HandlePointer)
	mux.HandleFunc("GET /api/sessions/{id}/pointer/ws", h.HandlePointerStream)
	mux.HandleFunc("DELETE /api/sessions/{id}/strokes", h.HandleResetStrokes)
	mux.HandleFunc("GET /api/sessions/{id}/overlay.png", h.HandleOverlay)
	mux.HandleFunc("POST /api/sessions/{id}/generate", h.HandleGenerate)
	mux.HandleFunc("GET /api/sessions/{id}/output", h.HandleOutput)
	mux.HandleFunc("POST /api/sessions/{id}/reuse", h.HandleReuse)
	mux.HandleFunc("GET /api/sessions/{id}/history/{n}", h.HandleHistoryImage)
	mux.HandleFunc("GET /api/presets", h.HandlePresets)
	mux.HandleFunc("GET /api/markers", h.HandleMarkers)
	mux.HandleFunc("/", h.HandleStatic)
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, exists := h.sessionStore.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (h *Handler) view(sess *session.Session) models.SessionView {
	v := sess.View()
	if v.Output != nil {
		v.OutputURL = "/api/sessions/" + v.ID + "/output"
	}
	if v.Source != nil {
		v.OverlayURL = "/api/sessions/" + v.ID + "/overlay.png"
	}
	return v
}
