package state

import (
	"testing"

	"cadenza/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func TestSubscribeReceivesImmediateSnapshot(t *testing.T) {
	store := NewStore(DefaultState(), nil)

	var got []PlayerState
	store.Subscribe(func(s PlayerState) { got = append(got, s) })

	if len(got) != 1 {
		t.Fatalf("Expected immediate snapshot on subscribe, got %d calls", len(got))
	}
	if got[0].PlayState != models.StateIdle {
		t.Errorf("Expected initial state idle, got %v", got[0].PlayState)
	}
	if got[0].Volume != 1.0 || got[0].PlaybackRate != 1.0 {
		t.Errorf("Expected default volume and rate 1.0, got %g and %g", got[0].Volume, got[0].PlaybackRate)
	}
	if got[0].CurrentTrackIndex != -1 {
		t.Errorf("Expected default track index -1, got %d", got[0].CurrentTrackIndex)
	}
}

func TestSetNotifiesOnlyOnChange(t *testing.T) {
	store := NewStore(DefaultState(), nil)

	calls := 0
	store.Subscribe(func(PlayerState) { calls++ })
	calls = 0 // ignore the immediate snapshot

	store.Set(Patch{PlayState: ptr(models.StatePlaying)})
	if calls != 1 {
		t.Fatalf("Expected 1 notification for a real change, got %d", calls)
	}

	// Identical value again: no notification
	store.Set(Patch{PlayState: ptr(models.StatePlaying)})
	if calls != 1 {
		t.Errorf("Expected no notification for identical value, got %d total", calls)
	}

	// Empty patch: no notification
	store.Set(Patch{})
	if calls != 1 {
		t.Errorf("Expected no notification for empty patch, got %d total", calls)
	}
}

func TestSetMultipleFieldsSingleNotification(t *testing.T) {
	store := NewStore(DefaultState(), nil)

	calls := 0
	var last PlayerState
	store.Subscribe(func(s PlayerState) {
		calls++
		last = s
	})
	calls = 0

	store.Set(Patch{
		PlayState:   ptr(models.StatePlaying),
		CurrentTime: ptr(42.0),
		Duration:    ptr(180.0),
	})

	if calls != 1 {
		t.Errorf("Expected a single notification for a multi-field patch, got %d", calls)
	}
	if last.PlayState != models.StatePlaying || last.CurrentTime != 42.0 || last.Duration != 180.0 {
		t.Errorf("Snapshot missing patched fields: %+v", last)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	store := NewStore(DefaultState(), nil)

	calls := 0
	unsubscribe := store.Subscribe(func(PlayerState) { calls++ })
	calls = 0

	unsubscribe()
	store.Set(Patch{Volume: ptr(0.5)})

	if calls != 0 {
		t.Errorf("Expected no notifications after unsubscribe, got %d", calls)
	}
}

func TestErrFieldRoundTrip(t *testing.T) {
	store := NewStore(DefaultState(), nil)

	playErr := models.NewPlayerError(models.ErrLoad, "failed to load", nil)
	store.Set(Patch{Err: ptr(playErr)})

	if got := store.Get().Err; got != playErr {
		t.Fatalf("Expected stored error %v, got %v", playErr, got)
	}

	var noErr *models.PlayerError
	store.Set(Patch{Err: &noErr})
	if got := store.Get().Err; got != nil {
		t.Errorf("Expected error cleared, got %v", got)
	}
}

func TestResetKeepsPreferences(t *testing.T) {
	store := NewStore(DefaultState(), nil)

	store.Set(Patch{
		PlayState:    ptr(models.StatePlaying),
		CurrentTime:  ptr(30.0),
		Duration:     ptr(200.0),
		Volume:       ptr(0.4),
		PlaybackRate: ptr(1.5),
		LoopMode:     ptr(models.LoopList),
		Err:          ptr(models.NewPlayerError(models.ErrDecode, "bad frame", nil)),
	})

	store.Reset()

	got := store.Get()
	if got.PlayState != models.StateIdle {
		t.Errorf("Expected idle after reset, got %v", got.PlayState)
	}
	if got.CurrentTime != 0 || got.Duration != 0 || got.Buffered != 0 {
		t.Errorf("Expected playback clock cleared, got %+v", got)
	}
	if got.Err != nil {
		t.Errorf("Expected error cleared, got %v", got.Err)
	}
	if got.Volume != 0.4 || got.PlaybackRate != 1.5 || got.LoopMode != models.LoopList {
		t.Errorf("Expected preferences preserved across reset, got %+v", got)
	}
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	store := NewStore(DefaultState(), nil)

	secondCalled := false
	store.Subscribe(func(PlayerState) { panic("listener failure") })
	store.Subscribe(func(PlayerState) { secondCalled = true })

	secondCalled = false
	store.Set(Patch{Volume: ptr(0.7)})

	if !secondCalled {
		t.Error("Expected second listener to run after first panicked")
	}
}
