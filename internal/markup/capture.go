package markup

import (
	"fmt"

	"github.com/markedit-studio/markedit/internal/models"
)

// EventType is the kind of pointer event forwarded by the front end
type EventType string

const (
	PointerDown   EventType = "down"
	PointerMove   EventType = "move"
	PointerUp     EventType = "up"
	PointerLeave  EventType = "leave"
	PointerCancel EventType = "cancel"
)

// Rect is the bounding box of the display canvas in client coordinates
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Touch is one contact point of a touch event
type Touch struct {
	ClientX float64 `json:"client_x"`
	ClientY float64 `json:"client_y"`
}

// PointerEvent carries either mouse coordinates or a touch list
type PointerEvent struct {
	Type    EventType `json:"type"`
	ClientX float64   `json:"client_x"`
	ClientY float64   `json:"client_y"`
	Touches []Touch   `json:"touches,omitempty"`
	Rect    Rect      `json:"rect"`
}

// Validate rejects event types the capture does not understand
func (ev PointerEvent) Validate() error {
	switch ev.Type {
	case PointerDown, PointerMove, PointerUp, PointerLeave, PointerCancel:
		return nil
	}
	return fmt.Errorf("unknown pointer event type %q", ev.Type)
}

// Point maps the event into display space relative to the canvas origin.
// Touch events use the first touch point.
func (ev PointerEvent) Point() models.Point {
	x, y := ev.ClientX, ev.ClientY
	if len(ev.Touches) > 0 {
		x, y = ev.Touches[0].ClientX, ev.Touches[0].ClientY
	}
	return models.Point{X: x - ev.Rect.Left, Y: y - ev.Rect.Top}
}

// Outcome tells the front end what a handled event did
type Outcome struct {
	// Changed is set when the stroke set changed and the display overlay
	// should be re-rendered.
	Changed bool `json:"changed"`
	// PreventDefault is set for moves during an active drag so touch
	// devices do not scroll.
	PreventDefault bool `json:"prevent_default"`
}

// Capture turns pointer events into strokes
type Capture struct {
	Strokes StrokeSet
	color   models.MarkerColor
}

// Color returns the selected marker color, models.None if none
func (c *Capture) Color() models.MarkerColor {
	return c.color
}

// SetColor selects a marker. Selecting the current marker again deselects it.
func (c *Capture) SetColor(color models.MarkerColor) models.MarkerColor {
	if color == c.color {
		c.color = models.None
	} else {
		c.color = color
	}
	return c.color
}

// Select sets the marker color without toggling
func (c *Capture) Select(color models.MarkerColor) {
	c.color = color
}

// Handle applies one pointer event. imageLoaded guards against drawing
// before a source image exists; guard failures are silent no-ops.
func (c *Capture) Handle(ev PointerEvent, imageLoaded bool) Outcome {
	switch ev.Type {
	case PointerDown:
		if !c.color.Valid() || !imageLoaded {
			return Outcome{}
		}
		c.Strokes.Begin(c.color, ev.Point())
		return Outcome{Changed: true}
	case PointerMove:
		if !c.color.Valid() || !imageLoaded || !c.Strokes.Active() {
			return Outcome{}
		}
		if !c.Strokes.Extend(ev.Point()) {
			return Outcome{}
		}
		return Outcome{Changed: true, PreventDefault: true}
	case PointerUp, PointerLeave, PointerCancel:
		c.Strokes.Commit()
	}
	return Outcome{}
}

// Reset drops all strokes but keeps the selected marker
func (c *Capture) Reset() {
	c.Strokes.Reset()
}
