package overlay

import (
	"image/color"

	"github.com/markedit-studio/markedit/internal/models"
)

// Marker describes how a marker color is shown and what it means
type Marker struct {
	Color       models.MarkerColor `json:"id"`
	Label       string             `json:"label"`
	Hex         string             `json:"hex"`
	Description string             `json:"description"`
	RGB         color.NRGBA        `json:"-"`
}

// Palette is the fixed set of markers in display order
var Palette = []Marker{
	{Color: models.Modify, Label: "Modify", Hex: "#f87171", Description: "Target area", RGB: color.NRGBA{R: 0xf8, G: 0x71, B: 0x71, A: 0xff}},
	{Color: models.Protect, Label: "Protect", Hex: "#60a5fa", Description: "Keep original", RGB: color.NRGBA{R: 0x60, G: 0xa5, B: 0xfa, A: 0xff}},
	{Color: models.Enhance, Label: "Enhance", Hex: "#4ade80", Description: "Boost quality", RGB: color.NRGBA{R: 0x4a, G: 0xde, B: 0x80, A: 0xff}},
	{Color: models.Suggest, Label: "Suggest", Hex: "#facc15", Description: "AI Creative", RGB: color.NRGBA{R: 0xfa, G: 0xcc, B: 0x15, A: 0xff}},
}

// Lookup finds the palette entry for c
func Lookup(c models.MarkerColor) (Marker, bool) {
	for _, m := range Palette {
		if m.Color == c {
			return m, true
		}
	}
	return Marker{}, false
}
