package session

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Filter describes one selectable look: a stable name used as key, a display
// label, the CSS filter expression the UI applies for live preview parity,
// a decorative gradient swatch (presentation only), and the bake function
// applied to captured frames so the look is part of the stored image.
type Filter struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Style    string `json:"style"`
	Gradient string `json:"gradient"`

	apply func(image.Image) *image.NRGBA
}

// Apply bakes the filter into a frame. The identity filter clones the input
// so captured photos never alias the preview buffer.
func (f Filter) Apply(src image.Image) *image.NRGBA {
	if f.apply == nil {
		return imaging.Clone(src)
	}
	return f.apply(src)
}

// DefaultFilter is the identity ("no filter") descriptor name.
const DefaultFilter = "none"

var filters = []Filter{
	{
		Name:     "none",
		Label:    "No Filter",
		Style:    "none",
		Gradient: "linear-gradient(135deg, #e8e8e8, #ffffff)",
	},
	{
		Name:     "mono",
		Label:    "Mono",
		Style:    "grayscale(1)",
		Gradient: "linear-gradient(135deg, #222222, #aaaaaa)",
		apply: func(src image.Image) *image.NRGBA {
			return imaging.Grayscale(src)
		},
	},
	{
		Name:     "sepia",
		Label:    "Sepia",
		Style:    "sepia(0.85)",
		Gradient: "linear-gradient(135deg, #704214, #c0a080)",
		apply:    sepia,
	},
	{
		Name:     "warm",
		Label:    "Warm",
		Style:    "saturate(1.35) sepia(0.15)",
		Gradient: "linear-gradient(135deg, #ff9966, #ffcc66)",
		apply: func(src image.Image) *image.NRGBA {
			return imaging.AdjustSaturation(warmShift(src), 20)
		},
	},
	{
		Name:     "noir",
		Label:    "Noir",
		Style:    "grayscale(1) contrast(1.4)",
		Gradient: "linear-gradient(135deg, #000000, #666666)",
		apply: func(src image.Image) *image.NRGBA {
			return imaging.AdjustContrast(imaging.Grayscale(src), 30)
		},
	},
}

// Filters returns the selectable filter set, identity first.
func Filters() []Filter {
	out := make([]Filter, len(filters))
	copy(out, filters)
	return out
}

// FilterByName looks up a filter descriptor by its key.
func FilterByName(name string) (Filter, bool) {
	for _, f := range filters {
		if f.Name == name {
			return f, true
		}
	}
	return Filter{}, false
}

// sepia applies the classic sepia tone matrix per pixel.
func sepia(src image.Image) *image.NRGBA {
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		r := float64(c.R)
		g := float64(c.G)
		b := float64(c.B)
		return color.NRGBA{
			R: clampf(0.393*r + 0.769*g + 0.189*b),
			G: clampf(0.349*r + 0.686*g + 0.168*b),
			B: clampf(0.272*r + 0.534*g + 0.131*b),
			A: c.A,
		}
	})
}

// warmShift nudges reds up and blues down before the saturation boost.
func warmShift(src image.Image) *image.NRGBA {
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampf(float64(c.R) + 14),
			G: c.G,
			B: clampf(float64(c.B) - 10),
			A: c.A,
		}
	})
}

func clampf(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
