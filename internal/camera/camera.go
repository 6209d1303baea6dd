package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/tbertin/photobooth/internal/debug"
)

// Constraints describes one acquisition attempt. A zero Width/Height means
// "no resolution constraint"; an empty Device means "any device".
type Constraints struct {
	Device    string
	Width     int
	Height    int
	MinWidth  int // negotiated size below this counts as a constraint failure
	MinHeight int
}

func (c Constraints) describe() string {
	dev := c.Device
	if dev == "" {
		dev = "any"
	}
	if c.Width > 0 {
		return fmt.Sprintf("device=%s resolution=%dx%d (min %dx%d)", dev, c.Width, c.Height, c.MinWidth, c.MinHeight)
	}
	return fmt.Sprintf("device=%s resolution=any", dev)
}

// Driver abstracts the platform video stack so the manager can be exercised
// without hardware.
type Driver interface {
	// Enumerate lists candidate video device paths, most preferred first.
	Enumerate() ([]string, error)
	// Open negotiates a stream honoring the given constraints. It returns
	// ErrConstraint (possibly wrapped) when the set cannot be satisfied on
	// that device.
	Open(c Constraints) (Device, error)
}

// Device is one negotiated, streaming video input.
type Device interface {
	// Frame blocks for the next decoded frame, up to timeout.
	Frame(timeout time.Duration) (image.Image, error)
	// Path identifies the underlying device.
	Path() string
	// Size reports the negotiated frame dimensions.
	Size() (w, h int)
	// Close stops streaming and releases the device. Must be idempotent.
	Close() error
}

// Options tunes the acquisition manager.
type Options struct {
	PreferredDevice string
	IdealWidth      int
	IdealHeight     int
	MinWidth        int
	MinHeight       int
	// ReadyTimeout bounds the wait for a first frame after the stream
	// starts. On timeout the feed is assumed usable rather than failed.
	ReadyTimeout time.Duration
	// FrameTimeout bounds every later frame read.
	FrameTimeout time.Duration
	// WarmupFrames are read and discarded right after the stream starts.
	WarmupFrames int
}

// Handle is the opaque device handle owned by the Manager. At most one live
// Handle exists at a time.
type Handle struct {
	mu       sync.Mutex
	dev      Device
	timeout  time.Duration
	released bool
}

// Frame returns the current frame from the live feed.
func (h *Handle) Frame() (image.Image, error) {
	h.mu.Lock()
	dev := h.dev
	timeout := h.timeout
	h.mu.Unlock()
	if dev == nil {
		return nil, ErrReleased
	}
	img, err := dev.Frame(timeout)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, ErrNoFrame
	}
	return img, nil
}

// Device reports the underlying device path.
func (h *Handle) Device() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dev == nil {
		return ""
	}
	return h.dev.Path()
}

// Size reports the negotiated frame dimensions.
func (h *Handle) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dev == nil {
		return 0, 0
	}
	return h.dev.Size()
}

// close stops the device. Idempotent.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	dev := h.dev
	h.dev = nil
	if dev == nil {
		return nil
	}
	return dev.Close()
}

// Manager negotiates access to a video input device with progressively
// relaxed constraints and owns the resulting handle and its teardown.
type Manager struct {
	drv  Driver
	opts Options

	mu     sync.Mutex
	handle *Handle
}

// NewManager creates a manager over the given driver.
func NewManager(drv Driver, opts Options) *Manager {
	return &Manager{drv: drv, opts: opts}
}

// Handle returns the current live handle, or nil.
func (m *Manager) Handle() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Live reports whether a device handle is currently held.
func (m *Manager) Live() bool {
	return m.Handle() != nil
}

// Acquire obtains a live device handle, trying constraint sets from most to
// least specific and stopping at the first success. A prior handle is always
// released first, so two live handles can never coexist. If ctx is cancelled
// while negotiation is in flight, the freshly opened device is released as
// soon as it resolves and Acquire reports the cancellation.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	m.Release()

	devices, err := m.drv.Enumerate()
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}

	preferred := m.opts.PreferredDevice
	if preferred == "" {
		preferred = devices[0]
	}

	// Ordered fallback ladder: ideal resolution on the preferred device,
	// then the preferred device alone, then any enumerated device.
	attempts := []Constraints{
		{Device: preferred, Width: m.opts.IdealWidth, Height: m.opts.IdealHeight,
			MinWidth: m.opts.MinWidth, MinHeight: m.opts.MinHeight},
		{Device: preferred},
	}
	for _, dev := range devices {
		if dev == preferred {
			continue
		}
		attempts = append(attempts, Constraints{Device: dev})
	}

	var lastErr error
	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		debug.Attempt(i+1, attempt.describe())

		dev, err := m.drv.Open(attempt)
		if err != nil {
			if errors.Is(err, ErrConstraint) {
				lastErr = err
				continue
			}
			// Capability, permission and device-absence errors are
			// not recoverable by weaker constraints.
			return nil, err
		}

		h := &Handle{dev: dev, timeout: m.opts.FrameTimeout}
		m.waitReady(h)

		if err := ctx.Err(); err != nil {
			// A reset arrived while negotiation was in flight:
			// release the handle now that it resolved.
			_ = h.close()
			return nil, err
		}

		m.mu.Lock()
		m.handle = h
		m.mu.Unlock()

		w, hg := dev.Size()
		debug.Info("camera acquired: %s %dx%d (attempt %d)", dev.Path(), w, hg, i+1)
		return h, nil
	}

	if lastErr == nil {
		lastErr = ErrConstraint
	}
	return nil, fmt.Errorf("all acquisition attempts failed: %w", lastErr)
}

// waitReady discards warmup frames and waits up to ReadyTimeout for the feed
// to produce one. A timeout is treated as success: the feed is assumed usable
// even without an explicit ready signal.
func (m *Manager) waitReady(h *Handle) {
	warmup := m.opts.WarmupFrames
	if warmup <= 0 {
		warmup = 1
	}
	timeout := m.opts.ReadyTimeout
	if timeout <= 0 {
		return
	}
	deadline := time.Now().Add(timeout)
	for i := 0; i < warmup; i++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			debug.Verbose("ready wait timed out after %v, assuming feed is usable", timeout)
			return
		}
		if _, err := h.dev.Frame(remaining); err != nil {
			debug.Verbose("ready wait: %v, assuming feed is usable", err)
			return
		}
	}
	debug.Verbose("feed ready after %d warmup frame(s)", warmup)
}

// Release stops every constituent of the current handle and detaches it.
// Releasing an already-released or never-acquired handle is a no-op.
func (m *Manager) Release() {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.mu.Unlock()
	if h == nil {
		return
	}
	if err := h.close(); err != nil {
		debug.Errorf("release camera: %v", err)
		return
	}
	debug.Live("camera released")
}
