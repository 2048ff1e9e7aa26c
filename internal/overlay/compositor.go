// Package overlay burns marker strokes into rasters, once at display size
// for live feedback and once at the source's native size for submission.
package overlay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/markedit-studio/markedit/internal/markup"
	"github.com/markedit-studio/markedit/internal/models"
)

const (
	// StrokeWidth is the marker width in display pixels
	StrokeWidth = 14.0

	// DisplayAlpha is the opacity of live feedback strokes (0x99 of 0xff)
	DisplayAlpha = 0x99

	// SubmissionAlpha keeps the marker color unambiguous for the model
	SubmissionAlpha = 0xff
)

// Snapshot is an encoded raster of a rendered canvas
type Snapshot struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// DataURI returns the snapshot as a base64 data URI
func (s *Snapshot) DataURI() string {
	return "data:" + s.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

// Scale is the native/display ratio, derived at the point of use
type Scale struct {
	X, Y float64
}

// ScaleFor returns native/display per axis. ok is false when the display
// reports zero size.
func ScaleFor(native, display models.Size) (Scale, bool) {
	if display.Empty() || native.Empty() {
		return Scale{}, false
	}
	return Scale{X: native.Width / display.Width, Y: native.Height / display.Height}, true
}

// RenderDisplay draws the strokes on a transparent canvas matching the
// current display size. Call it again whenever strokes or size change.
func RenderDisplay(strokes []models.Stroke, display models.Size) *image.NRGBA {
	w, h := pixelSize(display)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}
	for _, st := range markup.Renderable(strokes) {
		drawStroke(dst, st, Scale{X: 1, Y: 1}, StrokeWidth, DisplayAlpha)
	}
	return dst
}

// RenderSubmission composites the strokes onto a native resolution copy of
// src. Coordinates scale per axis but the line width scales with the
// horizontal factor only, so non-square resizes distort the marker width
// slightly. It returns false when there is nothing to submit: no source,
// no renderable strokes, or a zero display size.
func RenderSubmission(src image.Image, strokes []models.Stroke, display models.Size) (*Snapshot, bool, error) {
	if src == nil {
		return nil, false, nil
	}
	renderable := markup.Renderable(strokes)
	if len(renderable) == 0 {
		return nil, false, nil
	}
	b := src.Bounds()
	native := models.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	scale, ok := ScaleFor(native, display)
	if !ok {
		return nil, false, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	for _, st := range renderable {
		drawStroke(dst, st, scale, StrokeWidth*scale.X, SubmissionAlpha)
	}

	snap, err := Encode(dst)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Encode writes img as a PNG snapshot
func Encode(img image.Image) (*Snapshot, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	b := img.Bounds()
	return &Snapshot{MIMEType: "image/png", Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

func pixelSize(s models.Size) (int, int) {
	if s.Empty() {
		return 0, 0
	}
	return int(math.Round(s.Width)), int(math.Round(s.Height))
}

// drawStroke fills the outline of a round-capped, round-joined polyline.
// Every sub-shape is wound the same way so the rasterizer's clamped
// accumulation yields their union rather than cancelling overlaps.
func drawStroke(dst xdraw.Image, st models.Stroke, scale Scale, width float64, alpha uint8) {
	m, ok := Lookup(st.Color)
	if !ok {
		return
	}
	b := dst.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	half := width / 2

	pts := make([]models.Point, len(st.Points))
	for i, p := range st.Points {
		pts[i] = models.Point{X: p.X * scale.X, Y: p.Y * scale.Y}
	}

	for i, p := range pts {
		addDisc(r, p, half)
		if i == 0 {
			continue
		}
		addSegment(r, pts[i-1], p, half)
	}

	c := m.RGB
	c.A = alpha
	r.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func addSegment(r *vector.Rasterizer, a, b models.Point, half float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*half, dx/length*half
	r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	r.LineTo(float32(b.X+nx), float32(b.Y+ny))
	r.LineTo(float32(b.X-nx), float32(b.Y-ny))
	r.LineTo(float32(a.X-nx), float32(a.Y-ny))
	r.ClosePath()
}

func addDisc(r *vector.Rasterizer, c models.Point, radius float64) {
	if radius <= 0 {
		return
	}
	n := int(math.Ceil(2 * math.Pi * radius / 2))
	n = max(16, min(n, 128))
	// Negative angular steps match the winding of addSegment's quads.
	for k := 0; k < n; k++ {
		theta := -2 * math.Pi * float64(k) / float64(n)
		x := float32(c.X + radius*math.Cos(theta))
		y := float32(c.Y + radius*math.Sin(theta))
		if k == 0 {
			r.MoveTo(x, y)
		} else {
			r.LineTo(x, y)
		}
	}
	r.ClosePath()
}
