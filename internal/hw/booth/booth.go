// Package booth drives the optional photobooth peripherals: a flash lamp
// pulsed on every capture and a physical shutter button. Both are no-ops
// when their pin is 0, so the booth runs fine without any wiring.
package booth

import (
	"context"
	"sync"
	"time"

	"github.com/tbertin/photobooth/internal/debug"
	"github.com/tbertin/photobooth/internal/hw/gpio"
)

// Lamp is the flash indicator. Pulse raises the pin and lowers it again
// after the hold time; Cancel drops the pin immediately and invalidates any
// pending pulse timer.
type Lamp struct {
	gpio  gpio.Driver
	pin   int
	pulse time.Duration

	mu     sync.Mutex
	cancel chan struct{} // owned by the in-flight pulse; nil otherwise
}

// NewLamp creates a lamp on the given output pin. pin <= 0 disables it.
func NewLamp(g gpio.Driver, pin int, pulse time.Duration) *Lamp {
	if pin > 0 {
		_ = g.SetupPin(pin, gpio.Output)
		_ = g.WritePin(pin, gpio.Low)
	}
	if pulse <= 0 {
		pulse = 150 * time.Millisecond
	}
	return &Lamp{gpio: g, pin: pin, pulse: pulse}
}

// Pulse flashes the lamp once. A pulse arriving while one is in flight
// restarts the hold time.
func (l *Lamp) Pulse() {
	if l == nil || l.pin <= 0 {
		return
	}
	l.mu.Lock()
	if l.cancel != nil {
		close(l.cancel)
	}
	cancel := make(chan struct{})
	l.cancel = cancel
	l.mu.Unlock()

	_ = l.gpio.WritePin(l.pin, gpio.High)
	go func() {
		t := time.NewTimer(l.pulse)
		defer t.Stop()
		select {
		case <-cancel:
			return
		case <-t.C:
		}
		l.mu.Lock()
		if l.cancel == cancel {
			l.cancel = nil
			_ = l.gpio.WritePin(l.pin, gpio.Low)
		}
		l.mu.Unlock()
	}()
}

// Cancel drops the lamp immediately. Idempotent, safe mid-pulse.
func (l *Lamp) Cancel() {
	if l == nil || l.pin <= 0 {
		return
	}
	l.mu.Lock()
	if l.cancel != nil {
		close(l.cancel)
		l.cancel = nil
	}
	l.mu.Unlock()
	_ = l.gpio.WritePin(l.pin, gpio.Low)
}

// Button watches the physical shutter button (active low against a pull-up)
// and invokes press once per falling edge.
type Button struct {
	gpio     gpio.Driver
	pin      int
	interval time.Duration
	press    func()
}

// NewButton creates a button on the given input pin. pin <= 0 disables it.
func NewButton(g gpio.Driver, pin int, interval time.Duration, press func()) *Button {
	if pin > 0 {
		_ = g.SetupPin(pin, gpio.Input)
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Button{gpio: g, pin: pin, interval: interval, press: press}
}

// Run polls the pin until ctx is cancelled. The poll interval doubles as the
// debounce window.
func (b *Button) Run(ctx context.Context) {
	if b.pin <= 0 {
		return
	}
	debug.Verbose("shutter button armed on pin %d", b.pin)
	t := time.NewTicker(b.interval)
	defer t.Stop()

	last := gpio.High
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			level, err := b.gpio.ReadPin(b.pin)
			if err != nil {
				debug.Trace("read button pin %d: %v", b.pin, err)
				continue
			}
			if last == gpio.High && level == gpio.Low {
				debug.Live("shutter button pressed")
				b.press()
			}
			last = level
		}
	}
}
