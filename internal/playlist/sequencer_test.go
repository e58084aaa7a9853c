package playlist

import (
	"fmt"
	"testing"

	"cadenza/internal/event"
	"cadenza/pkg/models"
)

func makeTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			ID:    fmt.Sprintf("track-%d", i),
			Title: fmt.Sprintf("Track %d", i),
			Src:   fmt.Sprintf("/music/track-%d.mp3", i),
		}
	}
	return tracks
}

func newFilled(n int) *Sequencer {
	s := NewSequencer(nil)
	s.AddMultiple(makeTracks(n))
	return s
}

func TestAddAndGet(t *testing.T) {
	s := NewSequencer(nil)

	if !s.IsEmpty() {
		t.Error("Expected new sequencer to be empty")
	}
	if s.CurrentIndex() != -1 {
		t.Errorf("Expected current index -1, got %d", s.CurrentIndex())
	}

	s.Add(models.Track{ID: "a"}, -1)
	s.Add(models.Track{ID: "b"}, -1)
	s.Add(models.Track{ID: "front"}, 0)

	if s.Length() != 3 {
		t.Fatalf("Expected 3 tracks, got %d", s.Length())
	}
	if track, _ := s.Get(0); track.ID != "front" {
		t.Errorf("Expected inserted track at index 0, got %s", track.ID)
	}
	if _, ok := s.Get(5); ok {
		t.Error("Expected Get out of range to fail")
	}
}

func TestAddBeforeCurrentShiftsIndex(t *testing.T) {
	s := newFilled(3)
	s.SetCurrentIndex(1)

	s.Add(models.Track{ID: "inserted"}, 0)

	if got := s.CurrentIndex(); got != 2 {
		t.Errorf("Expected current index shifted to 2, got %d", got)
	}
	if track, _ := s.GetCurrent(); track.ID != "track-1" {
		t.Errorf("Expected current track unchanged, got %s", track.ID)
	}
}

func TestRemoveAdjustsCurrentIndex(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		remove      int
		wantCurrent int
		wantTrackID string
	}{
		{"remove before current", 2, 0, 1, "track-2"},
		{"remove after current", 0, 2, 0, "track-0"},
		{"remove current in middle", 1, 1, 1, "track-2"},
		{"remove current at end", 2, 2, 1, "track-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFilled(3)
			s.SetCurrentIndex(tt.current)

			if _, ok := s.Remove(tt.remove); !ok {
				t.Fatal("Remove failed")
			}
			if got := s.CurrentIndex(); got != tt.wantCurrent {
				t.Errorf("Current index = %d, want %d", got, tt.wantCurrent)
			}
			if track, ok := s.GetCurrent(); !ok || track.ID != tt.wantTrackID {
				t.Errorf("Current track = %s, want %s", track.ID, tt.wantTrackID)
			}
		})
	}
}

func TestRemoveByID(t *testing.T) {
	s := newFilled(3)

	if !s.RemoveByID("track-1") {
		t.Fatal("Expected RemoveByID to succeed")
	}
	if s.Length() != 2 {
		t.Errorf("Expected 2 tracks, got %d", s.Length())
	}
	if s.RemoveByID("missing") {
		t.Error("Expected RemoveByID of missing track to fail")
	}
}

func TestReorderKeepsCurrentTrack(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		from, to    int
		wantCurrent int
	}{
		{"move current forward", 0, 0, 2, 2},
		{"move current backward", 2, 2, 0, 0},
		{"move other across current from left", 1, 0, 2, 0},
		{"move other across current from right", 1, 2, 0, 2},
		{"move entirely after current", 0, 1, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFilled(3)
			s.SetCurrentIndex(tt.current)
			wantID := fmt.Sprintf("track-%d", tt.current)

			if !s.Reorder(tt.from, tt.to) {
				t.Fatal("Reorder failed")
			}
			if got := s.CurrentIndex(); got != tt.wantCurrent {
				t.Errorf("Current index = %d, want %d", got, tt.wantCurrent)
			}
			if track, _ := s.GetCurrent(); track.ID != wantID {
				t.Errorf("Current track = %s, want %s", track.ID, wantID)
			}
		})
	}
}

func TestNextIndexByLoopMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    models.LoopMode
		current int
		want    int
	}{
		{"none mid list", models.LoopNone, 0, 1},
		{"none at end", models.LoopNone, 2, -1},
		{"single stays", models.LoopSingle, 1, 1},
		{"list mid", models.LoopList, 1, 2},
		{"list wraps", models.LoopList, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFilled(3)
			s.SetCurrentIndex(tt.current)
			s.SetLoopMode(tt.mode)

			if got := s.NextIndex(); got != tt.want {
				t.Errorf("NextIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPreviousIndexByLoopMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    models.LoopMode
		current int
		want    int
	}{
		{"none mid list", models.LoopNone, 2, 1},
		{"none at start", models.LoopNone, 0, -1},
		{"single stays", models.LoopSingle, 1, 1},
		{"list wraps backward", models.LoopList, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFilled(3)
			s.SetCurrentIndex(tt.current)
			s.SetLoopMode(tt.mode)

			if got := s.PreviousIndex(); got != tt.want {
				t.Errorf("PreviousIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextOnEmptyList(t *testing.T) {
	s := NewSequencer(nil)
	if _, ok := s.Next(); ok {
		t.Error("Expected Next on empty list to fail")
	}
	if got := s.NextIndex(); got != -1 {
		t.Errorf("NextIndex() = %d, want -1", got)
	}
}

func TestRandomModeVisitsEveryTrackOnce(t *testing.T) {
	const n = 8
	s := newFilled(n)
	s.SetCurrentIndex(0)
	s.SetLoopMode(models.LoopRandom)

	seen := map[int]bool{s.CurrentIndex(): true}
	for i := 0; i < n-1; i++ {
		if _, ok := s.Next(); !ok {
			t.Fatalf("Next failed at step %d", i)
		}
		idx := s.CurrentIndex()
		if seen[idx] {
			t.Fatalf("Track %d visited twice within one pass", idx)
		}
		seen[idx] = true
	}
	if len(seen) != n {
		t.Errorf("Expected all %d tracks visited in one pass, got %d", n, len(seen))
	}
}

func TestRandomModeNeverReturnsInvalidIndex(t *testing.T) {
	s := newFilled(4)
	s.SetCurrentIndex(0)
	s.SetLoopMode(models.LoopRandom)

	for i := 0; i < 20; i++ {
		track, ok := s.Next()
		if !ok {
			t.Fatal("Next failed in random mode")
		}
		if track.ID == "" {
			t.Fatal("Next returned zero track in random mode")
		}
	}
}

func TestSetCurrentIndexPublishesTrackChange(t *testing.T) {
	bus := event.NewBus(nil)
	s := NewSequencer(bus)
	s.AddMultiple(makeTracks(3))

	var got event.TrackChange
	fired := false
	bus.Subscribe(event.TypeTrackChange, func(e event.Event) {
		got = e.(event.TrackChange)
		fired = true
	})

	s.SetCurrentIndex(2)

	if !fired {
		t.Fatal("Expected trackchange event")
	}
	if got.Index != 2 || got.Track.ID != "track-2" {
		t.Errorf("Unexpected trackchange payload: %+v", got)
	}

	if s.SetCurrentIndex(10) {
		t.Error("Expected SetCurrentIndex out of range to fail")
	}
}

func TestMutationsPublishPlaylistChange(t *testing.T) {
	bus := event.NewBus(nil)
	s := NewSequencer(bus)

	count := 0
	var lastLen int
	bus.Subscribe(event.TypePlaylistChange, func(e event.Event) {
		count++
		lastLen = len(e.(event.PlaylistChange).Tracks)
	})

	s.AddMultiple(makeTracks(3))
	s.Remove(0)
	s.Clear()

	if count != 3 {
		t.Errorf("Expected 3 playlistchange events, got %d", count)
	}
	if lastLen != 0 {
		t.Errorf("Expected final playlist empty, got %d tracks", lastLen)
	}
}

func TestFindIndexAndFilter(t *testing.T) {
	s := newFilled(4)

	idx := s.FindIndex(func(t models.Track) bool { return t.ID == "track-2" })
	if idx != 2 {
		t.Errorf("FindIndex = %d, want 2", idx)
	}

	none := s.FindIndex(func(t models.Track) bool { return t.ID == "missing" })
	if none != -1 {
		t.Errorf("FindIndex for missing track = %d, want -1", none)
	}

	matched := s.Filter(func(t models.Track) bool { return t.ID != "track-0" })
	if len(matched) != 3 {
		t.Errorf("Filter returned %d tracks, want 3", len(matched))
	}
}

func TestGetAllReturnsCopy(t *testing.T) {
	s := newFilled(2)

	all := s.GetAll()
	all[0].ID = "mutated"

	if track, _ := s.Get(0); track.ID != "track-0" {
		t.Error("Mutating the GetAll result leaked into the sequencer")
	}
}
