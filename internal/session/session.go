package session

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbertin/photobooth/internal/camera"
	"github.com/tbertin/photobooth/internal/debug"
)

// State enumerates the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateStreaming
	StateCountingDown
	StateCapturing
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateStreaming:
		return "streaming"
	case StateCountingDown:
		return "counting_down"
	case StateCapturing:
		return "capturing"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// active reports whether the camera feed belongs to this state.
func (s State) active() bool {
	switch s {
	case StateStreaming, StateCountingDown, StateCapturing, StateComplete:
		return true
	}
	return false
}

// Photo is one captured still: a monotonically assigned id, the lossless PNG
// encoding, and the capture timestamp. Immutable once created; owned by the
// session's photo sequence and destroyed on reset.
type Photo struct {
	ID      int       `json:"id"`
	PNG     []byte    `json:"-"`
	TakenAt time.Time `json:"taken_at"`
}

// Config bounds a session run.
type Config struct {
	DefaultCount   int           // target preselected at creation and after reset
	MaxPhotos      int           // upper bound for the configurable target
	CountdownTicks int           // ticks before an automatic capture; 0 = immediate
	TickInterval   time.Duration // countdown cadence
}

// Flash is pulsed when a capture lands. Cancel must be idempotent and safe to
// call at any time, including mid-pulse.
type Flash interface {
	Pulse()
	Cancel()
}

// Notifier receives session events ("state", "countdown", "shot", "error")
// for the live status stream.
type Notifier func(kind, msg string)

// Option configures optional session collaborators.
type Option func(*Session)

// WithFlash attaches a flash indicator pulsed on every capture.
func WithFlash(f Flash) Option {
	return func(s *Session) { s.flash = f }
}

// WithNotifier attaches an event sink.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notify = n }
}

// Session is the capture-session state machine. It owns the photo sequence,
// the active filter, the countdown timer and the current-error slot, and it
// drives the acquisition manager for the feed lifecycle. All mutation is
// serialized by one mutex.
type Session struct {
	mu        sync.Mutex
	id        uuid.UUID
	cfg       Config
	target    int
	state     State
	photos    []Photo
	nextID    int
	filter    Filter
	countdown int
	cancel    chan struct{} // owned by the in-flight countdown; nil otherwise
	lastErr   string

	mgr    *camera.Manager
	flash  Flash
	notify Notifier
}

// New creates an idle session over the given acquisition manager.
func New(mgr *camera.Manager, cfg Config, opts ...Option) *Session {
	if cfg.MaxPhotos <= 0 {
		cfg.MaxPhotos = 10
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 4
	}
	if cfg.DefaultCount > cfg.MaxPhotos {
		cfg.DefaultCount = cfg.MaxPhotos
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	identity, _ := FilterByName(DefaultFilter)
	s := &Session{
		id:     uuid.New(),
		cfg:    cfg,
		target: cfg.DefaultCount,
		state:  StateIdle,
		filter: identity,
		mgr:    mgr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the current session identifier. Reset assigns a fresh one.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id.String()
}

// Configure sets the target photo count before the session starts.
func (s *Session) Configure(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count < 1 || count > s.cfg.MaxPhotos {
		return fmt.Errorf("target count must be between 1 and %d, got %d", s.cfg.MaxPhotos, count)
	}
	if s.state != StateIdle && s.state != StateConfiguring {
		return fmt.Errorf("cannot configure a running session (state %s)", s.state)
	}
	s.target = count
	s.setStateLocked(StateConfiguring)
	return nil
}

// Start acquires the camera and begins streaming. On failure the session
// stays in the configuring state and the classified error lands in the error
// slot. A reset arriving while acquisition is in flight wins: the handle is
// released as soon as it resolves.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateConfiguring {
		s.mu.Unlock()
		return fmt.Errorf("session already active (state %s)", s.state)
	}
	s.setStateLocked(StateConfiguring)
	s.mu.Unlock()

	// Acquisition can block on device negotiation; never hold the session
	// lock across it.
	_, err := s.mgr.Acquire(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = camera.Classify(err)
		debug.Error(err)
		s.emit("error", s.lastErr)
		return err
	}
	if s.state != StateConfiguring {
		// Reset raced the acquisition; drop the fresh handle.
		s.mgr.Release()
		return fmt.Errorf("session reset during acquisition")
	}
	s.lastErr = ""
	s.setStateLocked(StateStreaming)
	return nil
}

// RequestCapture starts the countdown to one capture. Requests are ignored
// while a countdown is running, outside streaming, or once the target count
// is reached.
func (s *Session) RequestCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateCountingDown:
		debug.Verbose("capture request ignored: countdown already running")
		return
	case s.state != StateStreaming:
		debug.Verbose("capture request ignored in state %s", s.state)
		return
	case len(s.photos) >= s.target:
		debug.Verbose("capture request rejected: target count %d reached", s.target)
		return
	}
	s.startCountdownLocked()
}

// CaptureNow captures immediately, bypassing the countdown. Same guards as
// RequestCapture.
func (s *Session) CaptureNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming {
		return fmt.Errorf("cannot capture in state %s", s.state)
	}
	if len(s.photos) >= s.target {
		return fmt.Errorf("target count %d reached", s.target)
	}
	s.captureLocked()
	return nil
}

func (s *Session) startCountdownLocked() {
	if s.cfg.CountdownTicks <= 0 {
		s.captureLocked()
		return
	}
	cancel := make(chan struct{})
	s.cancel = cancel
	s.countdown = s.cfg.CountdownTicks
	s.setStateLocked(StateCountingDown)
	debug.Countdown(s.countdown)
	s.emit("countdown", fmt.Sprintf("%d", s.countdown))
	go s.runCountdown(cancel)
}

// runCountdown decrements once per tick and fires exactly one capture at
// zero. The cancel channel identity guards against a stale timer mutating a
// session that was reset and restarted in the meantime.
func (s *Session) runCountdown(cancel chan struct{}) {
	t := time.NewTicker(s.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-t.C:
			s.mu.Lock()
			if s.cancel != cancel {
				s.mu.Unlock()
				return
			}
			s.countdown--
			if s.countdown > 0 {
				debug.Countdown(s.countdown)
				s.emit("countdown", fmt.Sprintf("%d", s.countdown))
				s.mu.Unlock()
				continue
			}
			s.cancel = nil
			s.emit("countdown", "0")
			s.captureLocked()
			s.mu.Unlock()
			return
		}
	}
}

// cancelCountdownLocked invalidates any pending countdown. Idempotent.
func (s *Session) cancelCountdownLocked() {
	if s.cancel != nil {
		close(s.cancel)
		s.cancel = nil
	}
	s.countdown = 0
}

// captureLocked reads one frame, bakes the active filter, and appends one
// photo. A render failure reports to the error slot and leaves the photo
// sequence untouched; the session keeps streaming either way.
func (s *Session) captureLocked() {
	s.setStateLocked(StateCapturing)

	next := StateStreaming
	if len(s.photos)+1 >= s.target {
		next = StateComplete
	}

	h := s.mgr.Handle()
	if h == nil {
		s.failCaptureLocked(camera.ErrReleased)
		return
	}
	frame, err := h.Frame()
	if err != nil {
		s.failCaptureLocked(err)
		return
	}

	baked := s.filter.Apply(frame)
	var buf bytes.Buffer
	if err := png.Encode(&buf, baked); err != nil {
		s.failCaptureLocked(fmt.Errorf("encode capture: %w", err))
		return
	}

	s.nextID++
	s.photos = append(s.photos, Photo{
		ID:      s.nextID,
		PNG:     buf.Bytes(),
		TakenAt: time.Now(),
	})
	if s.flash != nil {
		s.flash.Pulse()
	}
	debug.Shot(len(s.photos), s.target)
	s.emit("shot", fmt.Sprintf("%d/%d", len(s.photos), s.target))
	s.setStateLocked(next)
}

// failCaptureLocked records a capture failure without corrupting the photo
// sequence. The countdown already ran, so the state machine advances back to
// streaming normally.
func (s *Session) failCaptureLocked(err error) {
	s.lastErr = camera.Classify(err)
	debug.Error(err)
	s.emit("error", s.lastErr)
	next := StateStreaming
	if len(s.photos) >= s.target {
		next = StateComplete
	}
	s.setStateLocked(next)
}

// SetFilter selects the active filter by name.
func (s *Session) SetFilter(name string) error {
	f, ok := FilterByName(name)
	if !ok {
		return fmt.Errorf("unknown filter %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	debug.Live("filter selected: %s", f.Name)
	return nil
}

// Stop ends the live feed but keeps the photo sequence for export. The
// session returns to the configuring state.
func (s *Session) Stop() {
	s.mu.Lock()
	s.cancelCountdownLocked()
	if s.flash != nil {
		s.flash.Cancel()
	}
	if s.state.active() {
		s.setStateLocked(StateConfiguring)
	}
	s.mu.Unlock()
	s.mgr.Release()
}

// Reset returns to idle from any state: countdown and flash timers are
// cancelled, the photo sequence and filter are cleared, the error slot is
// emptied, the device handle is released unconditionally, and a fresh
// session id is assigned. Idempotent.
func (s *Session) Reset() {
	s.mu.Lock()
	s.cancelCountdownLocked()
	if s.flash != nil {
		s.flash.Cancel()
	}
	identity, _ := FilterByName(DefaultFilter)
	s.photos = nil
	s.filter = identity
	s.lastErr = ""
	s.target = s.cfg.DefaultCount
	s.id = uuid.New()
	s.setStateLocked(StateIdle)
	s.mu.Unlock()
	s.mgr.Release()
}

// setStateLocked transitions and logs; no-op when already there.
func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	debug.Transition(prev.String(), next.String())
	s.emit("state", next.String())
}

// emit forwards an event to the notifier, if any. Called with the lock held;
// notifiers must not call back into the session.
func (s *Session) emit(kind, msg string) {
	if s.notify != nil {
		s.notify(kind, msg)
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Photos returns the photo sequence in capture order.
func (s *Session) Photos() []Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Photo, len(s.photos))
	copy(out, s.photos)
	return out
}

// PhotoByID looks up one photo.
func (s *Session) PhotoByID(id int) (Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.photos {
		if p.ID == id {
			return p, true
		}
	}
	return Photo{}, false
}

// Status is the UI-facing snapshot of the session record.
type Status struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Active    bool   `json:"active"`
	Capturing bool   `json:"capturing"`
	Countdown int    `json:"countdown"`
	Target    int    `json:"target"`
	Photos    int    `json:"photos"`
	MaxPhotos int    `json:"max_photos"`
	Filter    string `json:"filter"`
	LastError string `json:"last_error,omitempty"`
}

// Snapshot returns a consistent view of the session record.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ID:        s.id.String(),
		State:     s.state.String(),
		Active:    s.state.active(),
		Capturing: s.state == StateCapturing,
		Countdown: s.countdown,
		Target:    s.target,
		Photos:    len(s.photos),
		MaxPhotos: s.cfg.MaxPhotos,
		Filter:    s.filter.Name,
		LastError: s.lastErr,
	}
}
