package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/markedit-studio/markedit/internal/images"
	"github.com/markedit-studio/markedit/internal/models"
)

// maxFormMemory caps in-memory multipart parsing; larger parts spill to disk
const maxFormMemory = 32 << 20

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessionStore.Create()

	if isMultipart(r) {
		item, err := h.readImage(r, "file")
		if err != nil {
			h.sessionStore.Delete(sess.ID)
			h.writeUploadError(w, err)
			return
		}
		sess.LoadSource(item)
	}

	slog.Info("Session created", "session_id", sess.ID)
	h.writeJSONStatus(w, http.StatusCreated, h.view(sess))
}

func (h *Handler) HandleLoadSource(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	item, err := h.readImage(r, "file")
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	sess.LoadSource(item)
	h.writeJSON(w, h.view(sess))
}

func (h *Handler) HandleAddReferences(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		h.writeError(w, "Failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		h.writeError(w, "No files provided", http.StatusBadRequest)
		return
	}

	items := make([]*models.ImageItem, 0, len(headers))
	for _, header := range headers {
		item, err := loadHeader(header)
		if err != nil {
			h.writeUploadError(w, err)
			return
		}
		items = append(items, item)
	}

	total := sess.AddReferences(items...)
	slog.Info("Reference images added", "session_id", sess.ID, "added", len(items), "total", total)

	h.writeJSON(w, map[string]any{
		"message":    fmt.Sprintf("Successfully added %d reference image(s)", len(items)),
		"references": sess.References(),
	})
}

func (h *Handler) HandleRemoveReference(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.writeError(w, "Invalid index", http.StatusBadRequest)
		return
	}
	if err := sess.RemoveReference(index); err != nil {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	h.writeJSON(w, map[string]any{"references": sess.References()})
}

func (h *Handler) readImage(r *http.Request, field string) (*models.ImageItem, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}
	defer file.Close()
	return loadFile(file, header.Filename)
}

func loadHeader(header *multipart.FileHeader) (*models.ImageItem, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", header.Filename, err)
	}
	defer file.Close()
	return loadFile(file, header.Filename)
}

func loadFile(file io.Reader, filename string) (*models.ImageItem, error) {
	fileData, err := io.ReadAll(io.LimitReader(file, images.MaxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return images.Load(filename, fileData)
}

func (h *Handler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, images.ErrTooLarge):
		h.writeError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, images.ErrNotImage):
		h.writeError(w, err.Error(), http.StatusUnsupportedMediaType)
	default:
		h.writeError(w, err.Error(), http.StatusBadRequest)
	}
}

func isMultipart(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data")
}
