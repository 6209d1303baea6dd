package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tbertin/photobooth/internal/debug"
	"github.com/tbertin/photobooth/internal/session"
)

// Format selects the individual-export encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// collageBackground is the fixed dark fill behind the grid.
var collageBackground = color.NRGBA{R: 0x1a, G: 0x1a, B: 0x1e, A: 0xff}

// Exporter converts captured photos into downloadable artifacts in OutDir.
type Exporter struct {
	OutDir      string
	Layout      Layout
	JPEGQuality int
	// DecodeTimeout bounds each collage decode so one stuck item cannot
	// stall the whole composition. 0 = 10s.
	DecodeTimeout time.Duration
}

// Result reports one individual-export artifact. A failed item never blocks
// its siblings.
type Result struct {
	Filename string `json:"filename"`
	Error    string `json:"error,omitempty"`
}

// Individual writes one artifact per photo in sequence order, named by
// 1-based position: photo-1.png, photo-2.png, ... JPEG output transcodes the
// stored lossless PNG. Each item is isolated: a failure is recorded in its
// Result and the remaining items still run.
func (e *Exporter) Individual(photos []session.Photo, format Format) []Result {
	results := make([]Result, 0, len(photos))
	for i, p := range photos {
		name := fmt.Sprintf("photo-%d.%s", i+1, extension(format))
		err := e.writeArtifact(name, func(w io.Writer) error {
			return encodePhoto(w, p, format, e.JPEGQuality)
		})
		r := Result{Filename: name}
		if err != nil {
			r.Error = err.Error()
			debug.Errorf("export %s: %v", name, err)
		} else {
			debug.Export(string(format), name)
		}
		results = append(results, r)
	}
	return results
}

// Collage composes every photo into one grid image and writes a single
// artifact named photobooth-session-<timestamp>.png. Photo decodes run
// concurrently; composition waits for all of them to settle (each bounded by
// DecodeTimeout) and places the photo at index i in cell (i/columns,
// i%columns) regardless of decode completion order. Failed decodes leave
// their cell blank.
func (e *Exporter) Collage(photos []session.Photo) (string, error) {
	if len(photos) == 0 {
		return "", fmt.Errorf("no photos to export")
	}

	timeout := e.DecodeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	decoded := make([]image.Image, len(photos))
	var wg sync.WaitGroup
	for i, p := range photos {
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()
			img, err := decodeWithin(data, timeout)
			if err != nil {
				debug.Errorf("collage: photo %d decode failed: %v", i+1, err)
				return
			}
			decoded[i] = img
		}(i, p.PNG)
	}
	wg.Wait()

	plan := e.Layout.Plan(len(photos))
	canvas := imaging.New(plan.Width, plan.Height, collageBackground)
	for i, img := range decoded {
		if img == nil {
			continue // blank cell, decode failed
		}
		rect := plan.CellRect(i)
		fitted := imaging.Fill(img, rect.Dx(), rect.Dy(), imaging.Center, imaging.Lanczos)
		draw.Draw(canvas, rect, fitted, image.Point{}, draw.Src)
		drawCaption(canvas, rect, i+1, photos[i].TakenAt)
	}

	name := fmt.Sprintf("photobooth-session-%d.png", time.Now().Unix())
	if err := e.writeArtifact(name, func(w io.Writer) error {
		return png.Encode(w, canvas)
	}); err != nil {
		return "", err
	}
	debug.Export("collage", name)
	return name, nil
}

// writeArtifact writes one file into OutDir, creating the directory on
// first use.
func (e *Exporter) writeArtifact(name string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(e.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(e.OutDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return f.Close()
}

// encodePhoto writes a photo in the requested format. PNG passes the stored
// bytes through untouched; JPEG transcodes them.
func encodePhoto(w io.Writer, p session.Photo, format Format, quality int) error {
	switch format {
	case FormatPNG:
		_, err := w.Write(p.PNG)
		return err
	case FormatJPEG:
		img, err := png.Decode(bytes.NewReader(p.PNG))
		if err != nil {
			return fmt.Errorf("decode stored png: %w", err)
		}
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// decodeWithin decodes a stored PNG with a deadline so a stuck decode can
// never stall the collage.
func decodeWithin(data []byte, timeout time.Duration) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := png.Decode(bytes.NewReader(data))
		ch <- result{img, err}
	}()
	select {
	case r := <-ch:
		return r.img, r.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("decode timed out after %v", timeout)
	}
}

// drawCaption stamps the 1-based photo number and capture time in the lower
// left corner of a cell.
func drawCaption(dst draw.Image, cell image.Rectangle, n int, takenAt time.Time) {
	label := fmt.Sprintf("#%d  %s", n, takenAt.Format("15:04:05"))
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xe6}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(cell.Min.X+6, cell.Max.Y-6),
	}
	d.DrawString(label)
}

func extension(f Format) string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}
