package markup

import "github.com/markedit-studio/markedit/internal/models"

// StrokeSet holds the committed strokes for the current image and, while
// the pointer is down, the single stroke being drawn. Committed strokes
// never change; only the active stroke grows.
type StrokeSet struct {
	committed []models.Stroke
	active    *models.Stroke
}

// Begin starts a new active stroke, committing any stroke left open
func (s *StrokeSet) Begin(color models.MarkerColor, p models.Point) {
	s.Commit()
	s.active = &models.Stroke{Color: color, Points: []models.Point{p}}
}

// Extend appends p to the active stroke. It returns false when no stroke
// is being drawn.
func (s *StrokeSet) Extend(p models.Point) bool {
	if s.active == nil {
		return false
	}
	s.active.Points = append(s.active.Points, p)
	return true
}

// Commit finalizes the active stroke. The stroke is kept even when it is
// degenerate; rendering is where those get filtered.
func (s *StrokeSet) Commit() bool {
	if s.active == nil {
		return false
	}
	s.committed = append(s.committed, *s.active)
	s.active = nil
	return true
}

// Active reports whether a stroke is currently being drawn
func (s *StrokeSet) Active() bool {
	return s.active != nil
}

// Len counts committed strokes plus the active one
func (s *StrokeSet) Len() int {
	n := len(s.committed)
	if s.active != nil {
		n++
	}
	return n
}

// Strokes returns a deep copy in render order, the active stroke last
func (s *StrokeSet) Strokes() []models.Stroke {
	out := make([]models.Stroke, 0, s.Len())
	for _, st := range s.committed {
		out = append(out, st.Clone())
	}
	if s.active != nil {
		out = append(out, s.active.Clone())
	}
	return out
}

// Reset drops every stroke, including one in progress
func (s *StrokeSet) Reset() {
	s.committed = nil
	s.active = nil
}

// Renderable filters out degenerate strokes and strokes without a color
func Renderable(strokes []models.Stroke) []models.Stroke {
	out := make([]models.Stroke, 0, len(strokes))
	for _, st := range strokes {
		if st.Degenerate() || !st.Color.Valid() {
			continue
		}
		out = append(out, st)
	}
	return out
}
