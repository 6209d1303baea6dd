package booth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbertin/photobooth/internal/hw/gpio"
)

const (
	lampPin   = 27
	buttonPin = 17
)

// waitFor polls until cond holds or the deadline expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// ---------- Lamp ----------

func TestLamp_PulseRaisesThenLowers(t *testing.T) {
	g := gpio.NewMockDriver()
	l := NewLamp(g, lampPin, 20*time.Millisecond)

	l.Pulse()

	waitFor(t, time.Second, func() bool {
		writes := g.Writes()
		// init Low, pulse High, timer Low
		return len(writes) >= 3
	})
	writes := g.Writes()
	if writes[0] != (gpio.Write{Pin: lampPin, Level: gpio.Low}) {
		t.Errorf("init write = %+v, want pin low", writes[0])
	}
	if writes[1] != (gpio.Write{Pin: lampPin, Level: gpio.High}) {
		t.Errorf("pulse write = %+v, want pin high", writes[1])
	}
	if writes[2] != (gpio.Write{Pin: lampPin, Level: gpio.Low}) {
		t.Errorf("release write = %+v, want pin low", writes[2])
	}
}

func TestLamp_CancelMidPulse(t *testing.T) {
	g := gpio.NewMockDriver()
	l := NewLamp(g, lampPin, time.Hour) // pulse would hold forever

	l.Pulse()
	l.Cancel()

	level, _ := g.ReadPin(lampPin)
	if level != gpio.Low {
		t.Error("Cancel should drop the lamp immediately")
	}

	// The stale pulse timer must not raise the pin again.
	time.Sleep(50 * time.Millisecond)
	level, _ = g.ReadPin(lampPin)
	if level != gpio.Low {
		t.Error("lamp raised again after Cancel")
	}
}

func TestLamp_CancelIdempotent(t *testing.T) {
	g := gpio.NewMockDriver()
	l := NewLamp(g, lampPin, 20*time.Millisecond)
	l.Cancel()
	l.Cancel() // no pulse in flight, must not panic
}

func TestLamp_DisabledPinIsNoOp(t *testing.T) {
	g := gpio.NewMockDriver()
	l := NewLamp(g, 0, 20*time.Millisecond)
	l.Pulse()
	l.Cancel()
	if got := len(g.Writes()); got != 0 {
		t.Errorf("disabled lamp wrote %d times, want 0", got)
	}
}

func TestLamp_NilReceiver(t *testing.T) {
	var l *Lamp
	l.Pulse() // must not panic
	l.Cancel()
}

// ---------- Button ----------

func TestButton_FallingEdgeTriggersPress(t *testing.T) {
	g := gpio.NewMockDriver()
	g.SetLevel(buttonPin, gpio.High) // pull-up idle

	var presses int32
	b := NewButton(g, buttonPin, 5*time.Millisecond, func() {
		atomic.AddInt32(&presses, 1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	time.Sleep(20 * time.Millisecond)
	g.SetLevel(buttonPin, gpio.Low) // press

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&presses) == 1 })

	// Holding the button must not retrigger.
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&presses); got != 1 {
		t.Errorf("presses while held = %d, want 1", got)
	}

	// Release and press again.
	g.SetLevel(buttonPin, gpio.High)
	time.Sleep(20 * time.Millisecond)
	g.SetLevel(buttonPin, gpio.Low)
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&presses) == 2 })
}

func TestButton_DisabledPinReturnsImmediately(t *testing.T) {
	g := gpio.NewMockDriver()
	b := NewButton(g, 0, 5*time.Millisecond, func() { t.Error("press fired on disabled button") })

	done := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run on a disabled button should return immediately")
	}
}

func TestButton_StopsOnContextCancel(t *testing.T) {
	g := gpio.NewMockDriver()
	g.SetLevel(buttonPin, gpio.High)
	b := NewButton(g, buttonPin, 5*time.Millisecond, func() {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
