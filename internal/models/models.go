package models

import (
	"fmt"
	"strings"
	"time"
)

// MarkerColor is the semantic color attached to a stroke
type MarkerColor int

const (
	None MarkerColor = iota
	Modify
	Protect
	Enhance
	Suggest
)

// MarkerColors lists the selectable colors in palette order
var MarkerColors = []MarkerColor{Modify, Protect, Enhance, Suggest}

var markerNames = map[MarkerColor]string{
	Modify:  "red",
	Protect: "blue",
	Enhance: "green",
	Suggest: "yellow",
}

func (c MarkerColor) String() string {
	if name, ok := markerNames[c]; ok {
		return name
	}
	return ""
}

// Valid reports whether c is one of the four marker colors
func (c MarkerColor) Valid() bool {
	_, ok := markerNames[c]
	return ok
}

// ParseMarkerColor accepts the color name ("red") or the intent ("modify")
func ParseMarkerColor(s string) (MarkerColor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return None, nil
	case "red", "modify":
		return Modify, nil
	case "blue", "protect":
		return Protect, nil
	case "green", "enhance":
		return Enhance, nil
	case "yellow", "suggest":
		return Suggest, nil
	}
	return None, fmt.Errorf("unknown marker color %q", s)
}

func (c MarkerColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *MarkerColor) UnmarshalText(b []byte) error {
	parsed, err := ParseMarkerColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Point is a position in display-space pixels
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Stroke is one continuous freehand mark
type Stroke struct {
	Color  MarkerColor `json:"color" yaml:"color"`
	Points []Point     `json:"points" yaml:"points"`
}

// Degenerate strokes are never rendered or submitted
func (s Stroke) Degenerate() bool {
	return len(s.Points) < 2
}

// Clone returns a copy that does not share the point slice
func (s Stroke) Clone() Stroke {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	return Stroke{Color: s.Color, Points: pts}
}

// Size is a pixel extent
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Empty is true when either dimension is zero, e.g. a hidden image element
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Status drives the affordances of the front end
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusLoading Status = "LOADING"
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// ImageItem represents a loaded image
type ImageItem struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	MIMEType    string `json:"mime_type"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
	Data        []byte `json:"-"`
}

// Native returns the pixel dimensions recorded at load time
func (i *ImageItem) Native() Size {
	return Size{Width: float64(i.ImageWidth), Height: float64(i.ImageHeight)}
}

// Result is what a single generation produced
type Result struct {
	Image      *ImageItem `json:"image,omitempty"`
	Commentary string     `json:"commentary"`
}

// HistoryEntry is one successful generation kept in the recent list
type HistoryEntry struct {
	ID        string     `json:"id"`
	Image     *ImageItem `json:"image"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
}

// SessionView is the JSON representation of an editing session
type SessionView struct {
	ID         string         `json:"id"`
	Status     Status         `json:"status"`
	Source     *ImageItem     `json:"source,omitempty"`
	References []*ImageItem   `json:"references"`
	Strokes    []Stroke       `json:"strokes"`
	Marker     MarkerColor    `json:"marker"`
	Display    Size           `json:"display"`
	Output     *ImageItem     `json:"output,omitempty"`
	Analysis   string         `json:"analysis,omitempty"`
	Error      string         `json:"error,omitempty"`
	History    []HistoryEntry `json:"history"`
	CreatedAt  time.Time      `json:"created_at"`
	OutputURL  string         `json:"output_url,omitempty"`
	OverlayURL string         `json:"overlay_url,omitempty"`
}
