package session

import (
	"image"
	"image/color"
	"testing"
)

func solidFrame(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = 0xff
	}
	return img
}

func TestFilters_IdentityFirst(t *testing.T) {
	fs := Filters()
	if len(fs) == 0 {
		t.Fatal("Filters() returned empty set")
	}
	if fs[0].Name != DefaultFilter {
		t.Errorf("first filter = %q, want %q", fs[0].Name, DefaultFilter)
	}
}

func TestFilters_DescriptorsComplete(t *testing.T) {
	for _, f := range Filters() {
		if f.Name == "" || f.Label == "" || f.Style == "" || f.Gradient == "" {
			t.Errorf("filter %+v has empty descriptor fields", f)
		}
	}
}

func TestFilterByName(t *testing.T) {
	for _, name := range []string{"none", "mono", "sepia", "warm", "noir"} {
		f, ok := FilterByName(name)
		if !ok {
			t.Errorf("FilterByName(%q) not found", name)
			continue
		}
		if f.Name != name {
			t.Errorf("FilterByName(%q).Name = %q", name, f.Name)
		}
	}
	if _, ok := FilterByName("glitch"); ok {
		t.Error("FilterByName(unknown) should report not found")
	}
}

func TestApply_IdentityClones(t *testing.T) {
	src := solidFrame(color.RGBA{120, 80, 40, 255})
	f, _ := FilterByName("none")
	out := f.Apply(src)

	got := out.NRGBAAt(2, 2)
	if got.R != 120 || got.G != 80 || got.B != 40 {
		t.Errorf("identity pixel = %v, want unchanged", got)
	}
	// Mutating the output must not touch the source frame.
	out.Pix[0] = 0
	if src.Pix[0] != 120 {
		t.Error("identity output aliases the source buffer")
	}
}

func TestApply_MonoIsGray(t *testing.T) {
	f, _ := FilterByName("mono")
	out := f.Apply(solidFrame(color.RGBA{200, 40, 40, 255}))
	p := out.NRGBAAt(1, 1)
	if p.R != p.G || p.G != p.B {
		t.Errorf("mono pixel = %v, want equal channels", p)
	}
}

func TestApply_SepiaMatrix(t *testing.T) {
	f, _ := FilterByName("sepia")
	out := f.Apply(solidFrame(color.RGBA{100, 100, 100, 255}))
	p := out.NRGBAAt(1, 1)
	// For gray input the matrix rows sum to ~1.351, 1.203, 0.937.
	if p.R != 135 {
		t.Errorf("sepia R = %d, want 135", p.R)
	}
	if p.G != 120 {
		t.Errorf("sepia G = %d, want 120", p.G)
	}
	if p.B != 94 {
		t.Errorf("sepia B = %d, want 94", p.B)
	}
	if !(p.R > p.G && p.G > p.B) {
		t.Errorf("sepia pixel = %v, want warm ordering R > G > B", p)
	}
}

func TestApply_WarmShiftsChannels(t *testing.T) {
	f, _ := FilterByName("warm")
	out := f.Apply(solidFrame(color.RGBA{128, 128, 128, 255}))
	p := out.NRGBAAt(1, 1)
	if !(p.R > p.B) {
		t.Errorf("warm pixel = %v, want red lifted above blue", p)
	}
}

func TestApply_NoirDarkensShadows(t *testing.T) {
	f, _ := FilterByName("noir")
	dark := f.Apply(solidFrame(color.RGBA{40, 40, 40, 255})).NRGBAAt(1, 1)
	// Contrast boost pushes already-dark pixels further down.
	if dark.R >= 40 {
		t.Errorf("noir dark pixel = %d, want < 40", dark.R)
	}
	if dark.R != dark.G || dark.G != dark.B {
		t.Errorf("noir pixel = %v, want gray", dark)
	}
}

func TestClampf(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-10, 0},
		{0, 0},
		{127.6, 128},
		{255, 255},
		{300, 255},
	}
	for _, tc := range cases {
		if got := clampf(tc.in); got != tc.want {
			t.Errorf("clampf(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
