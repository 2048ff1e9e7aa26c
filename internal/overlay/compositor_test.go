package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"github.com/markedit-studio/markedit/internal/models"
)

func line(c models.MarkerColor, x0, y0, x1, y1 float64) models.Stroke {
	return models.Stroke{Color: c, Points: []models.Point{{X: x0, Y: y0}, {X: x1, Y: y1}}}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestScaleFor(t *testing.T) {
	tests := []struct {
		name    string
		native  models.Size
		display models.Size
		want    Scale
		wantOK  bool
	}{
		{"same size", models.Size{Width: 800, Height: 600}, models.Size{Width: 800, Height: 600}, Scale{X: 1, Y: 1}, true},
		{"shrunk", models.Size{Width: 1600, Height: 900}, models.Size{Width: 800, Height: 450}, Scale{X: 2, Y: 2}, true},
		{"non-uniform", models.Size{Width: 1000, Height: 1000}, models.Size{Width: 500, Height: 250}, Scale{X: 2, Y: 4}, true},
		{"hidden display", models.Size{Width: 800, Height: 600}, models.Size{}, Scale{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScaleFor(tt.native, tt.display)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestRenderDisplay(t *testing.T) {
	display := models.Size{Width: 100, Height: 100}
	img := RenderDisplay([]models.Stroke{line(models.Modify, 10, 50, 90, 50)}, display)

	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 100 {
		t.Fatalf("Expected 100x100 canvas, got %v", img.Bounds())
	}

	c := img.NRGBAAt(50, 50)
	if !near(c.A, DisplayAlpha) {
		t.Errorf("Expected alpha %#x on the stroke, got %#x", DisplayAlpha, c.A)
	}
	if !near(c.R, 0xf8) || !near(c.G, 0x71) || !near(c.B, 0x71) {
		t.Errorf("Expected the red marker color, got %+v", c)
	}
	// Round cap extends half the width past the end point
	if img.NRGBAAt(5, 50).A == 0 {
		t.Error("Expected round cap to cover the pixel before the first point")
	}
	if img.NRGBAAt(50, 10).A != 0 {
		t.Error("Expected pixels away from the stroke to stay transparent")
	}
}

func TestRenderDisplaySkipsDegenerate(t *testing.T) {
	strokes := []models.Stroke{{Color: models.Modify, Points: []models.Point{{X: 50, Y: 50}}}}
	img := RenderDisplay(strokes, models.Size{Width: 100, Height: 100})
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			t.Fatal("Expected a single-point stroke to draw nothing")
		}
	}
}

func TestRenderDisplayAfterReset(t *testing.T) {
	display := models.Size{Width: 64, Height: 64}
	RenderDisplay([]models.Stroke{line(models.Protect, 0, 0, 64, 64)}, display)
	cleared := RenderDisplay(nil, display)
	fresh := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	if !bytes.Equal(cleared.Pix, fresh.Pix) {
		t.Error("Expected an empty stroke set to render a transparent canvas")
	}
}

func TestRenderSubmission(t *testing.T) {
	src := whiteImage(200, 100)
	// Drawn while the image was shown at half size
	display := models.Size{Width: 100, Height: 50}
	strokes := []models.Stroke{line(models.Modify, 10, 25, 40, 25)}

	snap, ok, err := RenderSubmission(src, strokes, display)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("Expected an overlay to be rendered")
	}
	if snap.Width != 200 || snap.Height != 100 || snap.MIMEType != "image/png" {
		t.Errorf("Unexpected snapshot: %dx%d %s", snap.Width, snap.Height, snap.MIMEType)
	}
	if !strings.HasPrefix(snap.DataURI(), "data:image/png;base64,") {
		t.Errorf("Unexpected data URI prefix: %.30s", snap.DataURI())
	}

	img, err := png.Decode(bytes.NewReader(snap.Data))
	if err != nil {
		t.Fatalf("Failed to decode overlay: %v", err)
	}

	// (25, 25) in display space lands on (50, 50) at native size
	r, g, b, a := img.At(50, 50).RGBA()
	if r>>8 != 0xf8 || g>>8 != 0x71 || b>>8 != 0x71 || a>>8 != 0xff {
		t.Errorf("Expected opaque red at the scaled position, got %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
	// Unscaled position is off the stroke and keeps the source pixels
	r, g, b, _ = img.At(25, 10).RGBA()
	if r>>8 != 0xff || g>>8 != 0xff || b>>8 != 0xff {
		t.Errorf("Expected source pixel to be untouched, got %d %d %d", r>>8, g>>8, b>>8)
	}
	// Line width scales with the horizontal factor: 14 * 2 = 28px
	if _, _, b, _ := img.At(50, 50+12).RGBA(); b>>8 != 0x71 {
		t.Error("Expected the scaled line width to cover 12px off center")
	}
	if _, _, b, _ := img.At(50, 50+16).RGBA(); b>>8 != 0xff {
		t.Error("Expected 16px off center to be outside the stroke")
	}
}

func TestRenderSubmissionNothingToSend(t *testing.T) {
	src := whiteImage(200, 100)
	tests := []struct {
		name    string
		src     image.Image
		strokes []models.Stroke
		display models.Size
	}{
		{"no strokes", src, nil, models.Size{Width: 100, Height: 50}},
		{"degenerate only", src, []models.Stroke{{Color: models.Modify, Points: []models.Point{{X: 1, Y: 1}}}}, models.Size{Width: 100, Height: 50}},
		{"zero display", src, []models.Stroke{line(models.Modify, 1, 1, 9, 9)}, models.Size{}},
		{"no source", nil, []models.Stroke{line(models.Modify, 1, 1, 9, 9)}, models.Size{Width: 100, Height: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, ok, err := RenderSubmission(tt.src, tt.strokes, tt.display)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if ok || snap != nil {
				t.Error("Expected no overlay")
			}
		})
	}
}

func TestLookup(t *testing.T) {
	for _, c := range models.MarkerColors {
		if _, ok := Lookup(c); !ok {
			t.Errorf("Expected palette entry for %s", c)
		}
	}
	if _, ok := Lookup(models.None); ok {
		t.Error("Expected no palette entry for None")
	}
}
