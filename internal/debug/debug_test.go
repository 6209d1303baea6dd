package debug

import (
	"fmt"
	"testing"
)

func TestRecent_Empty(t *testing.T) {
	ResetRecent()
	if got := Recent(); len(got) != 0 {
		t.Errorf("Recent() after reset = %d entries, want 0", len(got))
	}
}

func TestRecent_RecordsRegardlessOfLevel(t *testing.T) {
	ResetRecent()
	Init(LevelOff)
	Info("camera acquired: %s", "/dev/video0")
	got := Recent()
	if len(got) != 1 {
		t.Fatalf("Recent() = %d entries, want 1", len(got))
	}
	if got[0].Level != "info" {
		t.Errorf("entry level = %q, want \"info\"", got[0].Level)
	}
	if got[0].Message != "camera acquired: /dev/video0" {
		t.Errorf("entry message = %q", got[0].Message)
	}
}

func TestRecent_BoundedAtLimit(t *testing.T) {
	ResetRecent()
	Init(LevelOff)
	for i := 0; i < recentLimit+5; i++ {
		Info("entry %d", i)
	}
	got := Recent()
	if len(got) != recentLimit {
		t.Fatalf("Recent() = %d entries, want %d", len(got), recentLimit)
	}
	// Oldest entries were dropped; the last recorded entry survives.
	last := got[len(got)-1].Message
	want := fmt.Sprintf("entry %d", recentLimit+4)
	if last != want {
		t.Errorf("newest entry = %q, want %q", last, want)
	}
	first := got[0].Message
	wantFirst := fmt.Sprintf("entry %d", 5)
	if first != wantFirst {
		t.Errorf("oldest entry = %q, want %q", first, wantFirst)
	}
}

func TestRecent_ReturnsCopy(t *testing.T) {
	ResetRecent()
	Init(LevelOff)
	Info("original")
	got := Recent()
	got[0].Message = "mutated"
	if Recent()[0].Message != "original" {
		t.Error("Recent() should return a copy, ring was mutated")
	}
}

func TestError_Recorded(t *testing.T) {
	ResetRecent()
	Init(LevelOff)
	Error(fmt.Errorf("boom"))
	got := Recent()
	if len(got) != 1 {
		t.Fatalf("Recent() = %d entries, want 1", len(got))
	}
	if got[0].Level != "error" {
		t.Errorf("entry level = %q, want \"error\"", got[0].Level)
	}
}

func TestTransitionAndShot_Recorded(t *testing.T) {
	ResetRecent()
	Init(LevelOff)
	Transition("idle", "configuring")
	Shot(2, 4)
	got := Recent()
	if len(got) != 2 {
		t.Fatalf("Recent() = %d entries, want 2", len(got))
	}
	if got[0].Message != "state idle -> configuring" {
		t.Errorf("transition message = %q", got[0].Message)
	}
	if got[1].Message != "captured photo 2/4" {
		t.Errorf("shot message = %q", got[1].Message)
	}
}

func TestIsEnabled(t *testing.T) {
	Init(LevelLive)
	if !IsEnabled(LevelInfo) {
		t.Error("LevelInfo should be enabled at LevelLive")
	}
	if !IsEnabled(LevelLive) {
		t.Error("LevelLive should be enabled at LevelLive")
	}
	if IsEnabled(LevelVerbose) {
		t.Error("LevelVerbose should not be enabled at LevelLive")
	}
}
