package models

import (
	"errors"
	"strings"
	"testing"
)

func TestPlayerErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPlayerError(ErrNetwork, "fetch failed", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "NETWORK_ERROR") || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want kind and cause included", err.Error())
	}

	var perr *PlayerError
	if !errors.As(error(err), &perr) || perr.Kind != ErrNetwork {
		t.Error("Expected errors.As to recover the classification")
	}
}

func TestPlayerErrorWithoutCause(t *testing.T) {
	err := NewPlayerError(ErrPlay, "nothing loaded", nil)

	if err.Unwrap() != nil {
		t.Error("Expected nil unwrap without a cause")
	}
	if got := err.Error(); got != "PLAY_ERROR: nothing loaded" {
		t.Errorf("Error() = %q", got)
	}
}

func TestRecoverable(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{ErrLoad, true},
		{ErrNetwork, true},
		{ErrPermission, true},
		{ErrDecode, false},
		{ErrFormat, false},
		{ErrNotSupported, false},
		{ErrUnknown, false},
	}

	for _, tt := range tests {
		err := NewPlayerError(tt.kind, "x", nil)
		if got := err.Recoverable(); got != tt.want {
			t.Errorf("%v.Recoverable() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestPlayStateString(t *testing.T) {
	tests := []struct {
		state PlayState
		want  string
	}{
		{StateIdle, "idle"},
		{StatePlaying, "playing"},
		{StateEnded, "ended"},
		{PlayState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}

	if StateIdle.IsActive() || StateEnded.IsActive() {
		t.Error("Expected idle and ended inactive")
	}
	if !StatePlaying.IsActive() || !StatePaused.IsActive() {
		t.Error("Expected playing and paused active")
	}
}

func TestParseLoopModeRoundTrip(t *testing.T) {
	modes := []LoopMode{LoopNone, LoopSingle, LoopList, LoopRandom}
	for _, m := range modes {
		if got := ParseLoopMode(m.String()); got != m {
			t.Errorf("ParseLoopMode(%q) = %v, want %v", m.String(), got, m)
		}
	}
	if got := ParseLoopMode("garbage"); got != LoopNone {
		t.Errorf("ParseLoopMode(garbage) = %v, want none", got)
	}
}
