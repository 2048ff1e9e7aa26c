// Package session owns the mutable state of one editing session and funnels
// every change through explicit transitions.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/markedit-studio/markedit/internal/markup"
	"github.com/markedit-studio/markedit/internal/models"
	"github.com/markedit-studio/markedit/internal/providers"
)

// DefaultHistoryLimit bounds the recent results list
const DefaultHistoryLimit = 6

const (
	incompleteMessage = "Process incomplete. Please refine your request."
	unexpectedMessage = "An unexpected error occurred during processing."
)

var (
	// ErrNoSource is a guard failure: nothing to edit yet
	ErrNoSource = errors.New("no source image loaded")
	// ErrBusy is returned when a generation is already in flight
	ErrBusy = errors.New("a generation is already in progress")
	// ErrStale marks a response that arrived after the session was reset
	ErrStale = errors.New("session changed while the request was in flight")
	// ErrNoOutput is returned when there is no generated image to reuse
	ErrNoOutput = errors.New("no generated image available")
	// ErrIndex is returned for out of range reference or history indexes
	ErrIndex = errors.New("index out of range")
)

// Session is one user's editing state
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	status       models.Status
	source       *models.ImageItem
	references   []*models.ImageItem
	capture      markup.Capture
	display      models.Size
	output       *models.ImageItem
	analysis     string
	errMsg       string
	history      []models.HistoryEntry
	historyLimit int
	// epoch changes whenever the session is reset so late responses can
	// be recognized and dropped.
	epoch uint64
	now   func() time.Time
}

// New creates an idle session with no source
func New(id string, historyLimit int) *Session {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Session{
		ID:           id,
		CreatedAt:    time.Now(),
		status:       models.StatusIdle,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Status returns the current status
func (s *Session) Status() models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Source returns the loaded source image, nil if none
func (s *Session) Source() *models.ImageItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Output returns the last generated image, nil if none
func (s *Session) Output() *models.ImageItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Analysis returns the commentary of the last successful generation
func (s *Session) Analysis() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// ErrorMessage returns the user-facing message of the last failure
func (s *Session) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Display returns the last reported display size
func (s *Session) Display() models.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// Strokes returns a snapshot of the stroke set in render order
func (s *Session) Strokes() []models.Stroke {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.Strokes.Strokes()
}

// History returns the recent results, most recent first
func (s *Session) History() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryEntry returns the n-th most recent result
func (s *Session) HistoryEntry(n int) (models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.history) {
		return models.HistoryEntry{}, fmt.Errorf("history entry %d: %w", n, ErrIndex)
	}
	return s.history[n], nil
}

// References returns the reference images in order
func (s *Session) References() []*models.ImageItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ImageItem, len(s.references))
	copy(out, s.references)
	return out
}

// View builds the JSON representation
func (s *Session) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]*models.ImageItem, len(s.references))
	copy(refs, s.references)
	history := make([]models.HistoryEntry, len(s.history))
	copy(history, s.history)
	return models.SessionView{
		ID:         s.ID,
		Status:     s.status,
		Source:     s.source,
		References: refs,
		Strokes:    s.capture.Strokes.Strokes(),
		Marker:     s.capture.Color(),
		Display:    s.display,
		Output:     s.output,
		Analysis:   s.analysis,
		Error:      s.errMsg,
		History:    history,
		CreatedAt:  s.CreatedAt,
	}
}

// LoadSource replaces the source image and resets the session to idle.
// History and references are kept.
func (s *Session) LoadSource(item *models.ImageItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = item
	s.resetLocked()
	slog.Info("Source image loaded", "session_id", s.ID, "filename", item.Filename, "width", item.ImageWidth, "height", item.ImageHeight)
}

// Clear drops the source image and resets the session to idle
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = nil
	s.resetLocked()
	slog.Info("Session cleared", "session_id", s.ID)
}

func (s *Session) resetLocked() {
	s.capture.Reset()
	s.output = nil
	s.analysis = ""
	s.errMsg = ""
	s.status = models.StatusIdle
	s.epoch++
}

// ReuseOutput feeds the generated image back in as a fresh source
func (s *Session) ReuseOutput() (*models.ImageItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output == nil {
		return nil, ErrNoOutput
	}
	next := *s.output
	next.ID = uuid.NewString()
	s.source = &next
	s.resetLocked()
	slog.Info("Generated image reused as source", "session_id", s.ID, "image_id", next.ID)
	return &next, nil
}

// ResetStrokes removes every stroke without touching anything else
func (s *Session) ResetStrokes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture.Reset()
}

// SetMarker selects a marker color, toggling it off when already selected
func (s *Session) SetMarker(color models.MarkerColor) models.MarkerColor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.SetColor(color)
}

// SelectMarker sets the marker color without toggling
func (s *Session) SelectMarker(color models.MarkerColor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture.Select(color)
}

// SetDisplay records the current rendered size of the source image
func (s *Session) SetDisplay(size models.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = size
}

// HandlePointer feeds one pointer event to the capture. The event's
// canvas rect doubles as a fresh reading of the display size.
func (s *Session) HandlePointer(ev markup.PointerEvent) markup.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size := (models.Size{Width: ev.Rect.Width, Height: ev.Rect.Height}); !size.Empty() {
		s.display = size
	}
	return s.capture.Handle(ev, s.source != nil)
}

// AddReferences appends reference images in the given order
func (s *Session) AddReferences(items ...*models.ImageItem) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.references = append(s.references, items...)
	return len(s.references)
}

// RemoveReference drops the reference at index i
func (s *Session) RemoveReference(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.references) {
		return fmt.Errorf("reference %d: %w", i, ErrIndex)
	}
	s.references = append(s.references[:i:i], s.references[i+1:]...)
	return nil
}

// snapshot is the state a submission works from, taken under the lock
type snapshot struct {
	epoch      uint64
	source     *models.ImageItem
	references []*models.ImageItem
	strokes    []models.Stroke
	display    models.Size
}

// begin moves the session to LOADING and captures what the pipeline needs
func (s *Session) begin(display *models.Size) (*snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return nil, ErrNoSource
	}
	if s.status == models.StatusLoading {
		return nil, ErrBusy
	}
	if display != nil {
		s.display = *display
	}
	s.status = models.StatusLoading
	s.errMsg = ""
	refs := make([]*models.ImageItem, len(s.references))
	copy(refs, s.references)
	return &snapshot{
		epoch:      s.epoch,
		source:     s.source,
		references: refs,
		strokes:    s.capture.Strokes.Strokes(),
		display:    s.display,
	}, nil
}

// complete applies the outcome of a remote call. Outcomes for an older
// epoch are dropped.
func (s *Session) complete(epoch uint64, result *models.Result, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		slog.Warn("Discarding response for a reset session", "session_id", s.ID)
		return ErrStale
	}

	switch {
	case err == nil && result != nil && result.Image != nil:
		s.output = result.Image
		s.analysis = result.Commentary
		s.errMsg = ""
		s.pushHistoryLocked(result.Image)
		s.status = models.StatusSuccess
		slog.Info("Generation succeeded", "session_id", s.ID, "history", len(s.history))
		return nil
	case err == nil || errors.Is(err, providers.ErrIncomplete):
		s.errMsg = incompleteMessage
		s.status = models.StatusError
		slog.Warn("Generation returned no image", "session_id", s.ID)
		return providers.ErrIncomplete
	default:
		s.errMsg = err.Error()
		if s.errMsg == "" {
			s.errMsg = unexpectedMessage
		}
		s.status = models.StatusError
		slog.Error("Generation failed", "session_id", s.ID, "err", err)
		return err
	}
}

func (s *Session) pushHistoryLocked(img *models.ImageItem) {
	now := s.now()
	entry := models.HistoryEntry{
		ID:        uuid.NewString(),
		Image:     img,
		Label:     now.Format("15:04"),
		CreatedAt: now,
	}
	s.history = append([]models.HistoryEntry{entry}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
}
