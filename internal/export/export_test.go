package export

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbertin/photobooth/internal/session"
)

func testLayout() Layout {
	return Layout{Columns: 2, CellSize: 100, Margin: 10}
}

// makePhoto builds a stored photo: an 8x8 solid-color frame encoded as PNG.
func makePhoto(t *testing.T, id int, fill color.NRGBA) session.Photo {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = fill.R
		img.Pix[i+1] = fill.G
		img.Pix[i+2] = fill.B
		img.Pix[i+3] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return session.Photo{ID: id, PNG: buf.Bytes(), TakenAt: time.Now()}
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	return &Exporter{
		OutDir:      t.TempDir(),
		Layout:      testLayout(),
		JPEGQuality: 90,
	}
}

// ---------- Individual ----------

func TestIndividual_PNG(t *testing.T) {
	e := newTestExporter(t)
	photos := []session.Photo{
		makePhoto(t, 1, color.NRGBA{200, 0, 0, 255}),
		makePhoto(t, 2, color.NRGBA{0, 200, 0, 255}),
		makePhoto(t, 3, color.NRGBA{0, 0, 200, 255}),
	}

	results := e.Individual(photos, FormatPNG)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, r := range results {
		wantName := []string{"photo-1.png", "photo-2.png", "photo-3.png"}[i]
		if r.Filename != wantName {
			t.Errorf("result %d filename = %q, want %q", i, r.Filename, wantName)
		}
		if r.Error != "" {
			t.Errorf("result %d error = %q, want none", i, r.Error)
		}
		data, err := os.ReadFile(filepath.Join(e.OutDir, r.Filename))
		if err != nil {
			t.Fatalf("read %s: %v", r.Filename, err)
		}
		if !bytes.Equal(data, photos[i].PNG) {
			t.Errorf("%s: PNG export must pass stored bytes through untouched", r.Filename)
		}
	}
}

func TestIndividual_JPEG(t *testing.T) {
	e := newTestExporter(t)
	photos := []session.Photo{makePhoto(t, 1, color.NRGBA{120, 120, 120, 255})}

	results := e.Individual(photos, FormatJPEG)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Filename != "photo-1.jpg" {
		t.Errorf("filename = %q, want photo-1.jpg", results[0].Filename)
	}
	f, err := os.Open(filepath.Join(e.OutDir, results[0].Filename))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("exported file is not valid JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Errorf("JPEG dimensions = %dx%d, want 8x8", b.Dx(), b.Dy())
	}
}

func TestIndividual_PerItemIsolation(t *testing.T) {
	e := newTestExporter(t)
	photos := []session.Photo{
		makePhoto(t, 1, color.NRGBA{200, 0, 0, 255}),
		{ID: 2, PNG: []byte("not a png"), TakenAt: time.Now()},
		makePhoto(t, 3, color.NRGBA{0, 0, 200, 255}),
	}

	// JPEG transcoding forces a decode, so the corrupt item fails.
	results := e.Individual(photos, FormatJPEG)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Error != "" || results[2].Error != "" {
		t.Errorf("healthy siblings failed: %q / %q", results[0].Error, results[2].Error)
	}
	if results[1].Error == "" {
		t.Error("corrupt item should report an error")
	}
	if _, err := os.Stat(filepath.Join(e.OutDir, "photo-2.jpg")); !os.IsNotExist(err) {
		t.Error("failed artifact should be removed")
	}
	if _, err := os.Stat(filepath.Join(e.OutDir, "photo-3.jpg")); err != nil {
		t.Errorf("sibling after the failure was not written: %v", err)
	}
}

func TestIndividual_Empty(t *testing.T) {
	e := newTestExporter(t)
	if got := e.Individual(nil, FormatPNG); len(got) != 0 {
		t.Errorf("results = %d, want 0", len(got))
	}
}

// ---------- Collage ----------

func TestCollage_SingleArtifactWithPlannedGeometry(t *testing.T) {
	e := newTestExporter(t)
	photos := []session.Photo{
		makePhoto(t, 1, color.NRGBA{200, 0, 0, 255}),
		makePhoto(t, 2, color.NRGBA{0, 200, 0, 255}),
		makePhoto(t, 3, color.NRGBA{0, 0, 200, 255}),
	}

	name, err := e.Collage(photos)
	if err != nil {
		t.Fatalf("Collage() error: %v", err)
	}
	if !strings.HasPrefix(name, "photobooth-session-") || !strings.HasSuffix(name, ".png") {
		t.Errorf("collage name = %q", name)
	}

	f, err := os.Open(filepath.Join(e.OutDir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("collage is not valid PNG: %v", err)
	}

	plan := e.Layout.Plan(len(photos))
	if b := img.Bounds(); b.Dx() != plan.Width || b.Dy() != plan.Height {
		t.Errorf("collage = %dx%d, want %dx%d", b.Dx(), b.Dy(), plan.Width, plan.Height)
	}
}

func TestCollage_IndexStablePlacement(t *testing.T) {
	e := newTestExporter(t)
	photos := []session.Photo{
		makePhoto(t, 1, color.NRGBA{220, 20, 20, 255}),
		makePhoto(t, 2, color.NRGBA{20, 20, 220, 255}),
	}

	name, err := e.Collage(photos)
	if err != nil {
		t.Fatalf("Collage() error: %v", err)
	}
	img := decodeCollage(t, filepath.Join(e.OutDir, name))

	plan := e.Layout.Plan(len(photos))
	c0 := sampleCenter(img, plan.CellRect(0))
	if !(c0.R > 150 && c0.B < 100) {
		t.Errorf("cell 0 center = %v, want the red photo", c0)
	}
	c1 := sampleCenter(img, plan.CellRect(1))
	if !(c1.B > 150 && c1.R < 100) {
		t.Errorf("cell 1 center = %v, want the blue photo", c1)
	}
}

func TestCollage_FailedDecodeLeavesCellBlank(t *testing.T) {
	e := newTestExporter(t)
	photos := []session.Photo{
		makePhoto(t, 1, color.NRGBA{220, 20, 20, 255}),
		{ID: 2, PNG: []byte("corrupt"), TakenAt: time.Now()},
	}

	name, err := e.Collage(photos)
	if err != nil {
		t.Fatalf("one bad photo must not abort the collage, got: %v", err)
	}
	img := decodeCollage(t, filepath.Join(e.OutDir, name))

	plan := e.Layout.Plan(len(photos))
	blank := sampleCenter(img, plan.CellRect(1))
	if blank.R != collageBackground.R || blank.G != collageBackground.G || blank.B != collageBackground.B {
		t.Errorf("failed cell center = %v, want background %v", blank, collageBackground)
	}
	healthy := sampleCenter(img, plan.CellRect(0))
	if !(healthy.R > 150) {
		t.Errorf("healthy cell center = %v, want the red photo", healthy)
	}
}

func TestCollage_Empty(t *testing.T) {
	e := newTestExporter(t)
	if _, err := e.Collage(nil); err == nil {
		t.Error("Collage() with no photos should fail")
	}
}

// ---------- helpers ----------

func decodeCollage(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func sampleCenter(img image.Image, cell image.Rectangle) color.NRGBA {
	p := cell.Min.Add(cell.Size().Div(2))
	r, g, b, a := img.At(p.X, p.Y).RGBA()
	return color.NRGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}
