//go:build linux

package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/blackjack/webcam"

	"github.com/tbertin/photobooth/internal/debug"
)

// V4L2 fourcc codes for the formats the booth can decode.
const (
	fmtMJPEG webcam.PixelFormat = 0x47504A4D // 'MJPG'
	fmtYUYV  webcam.PixelFormat = 0x56595559 // 'YUYV'
)

// fallback request when a device advertises no discrete frame sizes
const (
	defaultWidth  = 640
	defaultHeight = 480
)

// V4L2Driver opens video devices through the kernel V4L2 interface.
type V4L2Driver struct {
	// Pattern matches candidate device nodes. Empty = "/dev/video*".
	Pattern string
}

// NewDriver returns the platform video driver.
func NewDriver() Driver {
	return &V4L2Driver{}
}

// Enumerate lists video device nodes, lowest index first.
func (d *V4L2Driver) Enumerate() ([]string, error) {
	pattern := d.Pattern
	if pattern == "" {
		pattern = "/dev/video*"
	}
	devices, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCapability, err)
	}
	sort.Strings(devices)
	return devices, nil
}

// Open negotiates a stream on one device. Constraint rejections (unsupported
// format, too-small resolution, busy device) come back wrapped in
// ErrConstraint so the manager can fall through to the next attempt.
func (d *V4L2Driver) Open(c Constraints) (Device, error) {
	cam, err := webcam.Open(c.Device)
	if err != nil {
		switch {
		case os.IsPermission(err):
			return nil, fmt.Errorf("%w: %s: %v", ErrPermission, c.Device, err)
		case os.IsNotExist(err):
			return nil, fmt.Errorf("%w: %s does not exist", ErrConstraint, c.Device)
		default:
			return nil, fmt.Errorf("%w: open %s: %v", ErrConstraint, c.Device, err)
		}
	}

	format, err := pickFormat(cam)
	if err != nil {
		cam.Close()
		return nil, err
	}

	reqW, reqH := c.Width, c.Height
	if reqW <= 0 || reqH <= 0 {
		reqW, reqH = pickSize(cam, format)
	}

	_, w, h, err := cam.SetImageFormat(format, uint32(reqW), uint32(reqH))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: set format on %s: %v", ErrConstraint, c.Device, err)
	}
	if c.MinWidth > 0 && (int(w) < c.MinWidth || int(h) < c.MinHeight) {
		cam.Close()
		return nil, fmt.Errorf("%w: %s negotiated %dx%d below minimum %dx%d",
			ErrConstraint, c.Device, w, h, c.MinWidth, c.MinHeight)
	}

	if err := cam.SetBufferCount(4); err != nil {
		debug.Trace("set buffer count on %s: %v", c.Device, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: start streaming on %s: %v", ErrConstraint, c.Device, err)
	}

	debug.Verbose("opened %s: format=%s size=%dx%d", c.Device, formatName(format), w, h)
	return &v4l2Device{
		cam:    cam,
		path:   c.Device,
		width:  int(w),
		height: int(h),
		format: format,
	}, nil
}

// pickFormat prefers MJPEG (cheap to decode and to stream) and falls back to
// raw YUYV.
func pickFormat(cam *webcam.Webcam) (webcam.PixelFormat, error) {
	supported := cam.GetSupportedFormats()
	if _, ok := supported[fmtMJPEG]; ok {
		return fmtMJPEG, nil
	}
	if _, ok := supported[fmtYUYV]; ok {
		return fmtYUYV, nil
	}
	return 0, fmt.Errorf("%w: no decodable pixel format (supported: %v)", ErrConstraint, supported)
}

// pickSize chooses the largest advertised discrete frame size, capped at
// 1080p to keep capture encode times sane.
func pickSize(cam *webcam.Webcam, format webcam.PixelFormat) (int, int) {
	best := 0
	w, h := defaultWidth, defaultHeight
	for _, s := range cam.GetSupportedFrameSizes(format) {
		sw, sh := int(s.MaxWidth), int(s.MaxHeight)
		if sw > 1920 || sh > 1080 {
			continue
		}
		if sw*sh > best {
			best = sw * sh
			w, h = sw, sh
		}
	}
	return w, h
}

func formatName(f webcam.PixelFormat) string {
	switch f {
	case fmtMJPEG:
		return "MJPG"
	case fmtYUYV:
		return "YUYV"
	default:
		return fmt.Sprintf("0x%08x", uint32(f))
	}
}

// v4l2Device is one negotiated, streaming V4L2 device.
type v4l2Device struct {
	mu     sync.Mutex
	cam    *webcam.Webcam
	path   string
	width  int
	height int
	format webcam.PixelFormat
}

func (d *v4l2Device) Path() string     { return d.path }
func (d *v4l2Device) Size() (int, int) { return d.width, d.height }

// Frame blocks for the next frame and decodes it.
func (d *v4l2Device) Frame(timeout time.Duration) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cam == nil {
		return nil, ErrReleased
	}

	// WaitForFrame has one-second granularity; round up.
	sec := uint32((timeout + time.Second - 1) / time.Second)
	if sec == 0 {
		sec = 1
	}
	if err := d.cam.WaitForFrame(sec); err != nil {
		if _, ok := err.(*webcam.Timeout); ok {
			return nil, ErrFrameTimeout
		}
		return nil, fmt.Errorf("%w: wait on %s: %v", ErrNoFrame, d.path, err)
	}

	buf, err := d.cam.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: read on %s: %v", ErrNoFrame, d.path, err)
	}
	if len(buf) == 0 {
		return nil, ErrNoFrame
	}

	switch d.format {
	case fmtMJPEG:
		img, err := jpeg.Decode(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("%w: decode mjpeg frame: %v", ErrNoFrame, err)
		}
		return img, nil
	case fmtYUYV:
		return yuyvToRGBA(buf, d.width, d.height), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %s", ErrNoFrame, formatName(d.format))
	}
}

// Close stops streaming and releases the device. Idempotent.
func (d *v4l2Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cam == nil {
		return nil
	}
	cam := d.cam
	d.cam = nil
	if err := cam.StopStreaming(); err != nil {
		debug.Trace("stop streaming on %s: %v", d.path, err)
	}
	return cam.Close()
}
