// Package playlist sequences an ordered track list under the four repeat
// policies: none, single, list and random.
package playlist

import (
	"sync"

	"cadenza/internal/event"
	"cadenza/pkg/models"

	"github.com/samber/lo"
)

// Sequencer maintains the track list, the current index and the repeat
// policy. All mutations keep the current index pointing at the same logical
// track whenever that track survives the mutation.
type Sequencer struct {
	mutex        sync.Mutex
	tracks       []models.Track
	currentIndex int
	loopMode     models.LoopMode

	// permutation is materialized only in random mode. It is rebuilt when
	// the track set changes shape or when random mode is entered, never on
	// Next, so one full pass visits every track exactly once.
	permutation []int

	bus *event.Bus
}

// NewSequencer creates an empty sequencer. The bus is optional; when set,
// playlist mutations are published on it.
func NewSequencer(bus *event.Bus) *Sequencer {
	return &Sequencer{
		currentIndex: -1,
		loopMode:     models.LoopNone,
		bus:          bus,
	}
}

// Add inserts a track. A negative index appends; otherwise the track is
// inserted at index, shifting the rest. The current index is adjusted when
// the insertion happens before it.
func (s *Sequencer) Add(track models.Track, index int) {
	s.mutex.Lock()
	if index < 0 || index > len(s.tracks) {
		s.tracks = append(s.tracks, track)
	} else {
		s.tracks = append(s.tracks[:index], append([]models.Track{track}, s.tracks[index:]...)...)
		if index <= s.currentIndex {
			s.currentIndex++
		}
	}
	s.reshuffleLocked()
	tracks := s.allLocked()
	s.mutex.Unlock()

	s.publish(event.PlaylistChange{Tracks: tracks})
}

// AddMultiple appends tracks in order
func (s *Sequencer) AddMultiple(tracks []models.Track) {
	if len(tracks) == 0 {
		return
	}
	s.mutex.Lock()
	s.tracks = append(s.tracks, tracks...)
	s.reshuffleLocked()
	all := s.allLocked()
	s.mutex.Unlock()

	s.publish(event.PlaylistChange{Tracks: all})
}

// Remove deletes the track at index and returns it. Removing the current
// track collapses the index to the last valid position instead of leaving
// it dangling.
func (s *Sequencer) Remove(index int) (models.Track, bool) {
	s.mutex.Lock()
	if index < 0 || index >= len(s.tracks) {
		s.mutex.Unlock()
		return models.Track{}, false
	}
	removed := s.tracks[index]
	s.tracks = append(s.tracks[:index:index], s.tracks[index+1:]...)

	if index < s.currentIndex {
		s.currentIndex--
	} else if index == s.currentIndex && s.currentIndex >= len(s.tracks) {
		s.currentIndex = len(s.tracks) - 1
	}

	s.reshuffleLocked()
	all := s.allLocked()
	s.mutex.Unlock()

	s.publish(event.PlaylistChange{Tracks: all})
	return removed, true
}

// RemoveByID deletes the first track with the given id
func (s *Sequencer) RemoveByID(id string) bool {
	s.mutex.Lock()
	index := -1
	for i, t := range s.tracks {
		if t.ID == id {
			index = i
			break
		}
	}
	s.mutex.Unlock()

	if index == -1 {
		return false
	}
	_, ok := s.Remove(index)
	return ok
}

// Clear removes all tracks and resets the current index
func (s *Sequencer) Clear() {
	s.mutex.Lock()
	s.tracks = nil
	s.currentIndex = -1
	s.permutation = nil
	s.mutex.Unlock()

	s.publish(event.PlaylistChange{Tracks: nil})
}

// Reorder moves a track from one position to another, keeping the current
// index attached to the same logical track
func (s *Sequencer) Reorder(from, to int) bool {
	s.mutex.Lock()
	if from < 0 || from >= len(s.tracks) || to < 0 || to >= len(s.tracks) {
		s.mutex.Unlock()
		return false
	}
	track := s.tracks[from]
	s.tracks = append(s.tracks[:from:from], s.tracks[from+1:]...)
	s.tracks = append(s.tracks[:to], append([]models.Track{track}, s.tracks[to:]...)...)

	switch {
	case s.currentIndex == from:
		s.currentIndex = to
	case from < s.currentIndex && to >= s.currentIndex:
		s.currentIndex--
	case from > s.currentIndex && to <= s.currentIndex:
		s.currentIndex++
	}

	s.reshuffleLocked()
	all := s.allLocked()
	s.mutex.Unlock()

	s.publish(event.PlaylistChange{Tracks: all})
	return true
}

// Get returns the track at index
func (s *Sequencer) Get(index int) (models.Track, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if index < 0 || index >= len(s.tracks) {
		return models.Track{}, false
	}
	return s.tracks[index], true
}

// GetByID returns the first track with the given id
func (s *Sequencer) GetByID(id string) (models.Track, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, t := range s.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Track{}, false
}

// GetAll returns a copy of the track list
func (s *Sequencer) GetAll() []models.Track {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.allLocked()
}

// GetCurrent returns the current track, if any
func (s *Sequencer) GetCurrent() (models.Track, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.currentIndex < 0 || s.currentIndex >= len(s.tracks) {
		return models.Track{}, false
	}
	return s.tracks[s.currentIndex], true
}

// CurrentIndex returns the current index, -1 when nothing is selected
func (s *Sequencer) CurrentIndex() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.currentIndex
}

// SetCurrentIndex selects a track by index
func (s *Sequencer) SetCurrentIndex(index int) bool {
	s.mutex.Lock()
	if index < 0 || index >= len(s.tracks) {
		s.mutex.Unlock()
		return false
	}
	s.currentIndex = index
	track := s.tracks[index]
	s.mutex.Unlock()

	s.publish(event.TrackChange{Index: index, Track: track})
	return true
}

// Length returns the number of tracks
func (s *Sequencer) Length() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.tracks)
}

// IsEmpty reports whether the playlist holds no tracks
func (s *Sequencer) IsEmpty() bool {
	return s.Length() == 0
}

// SetLoopMode sets the repeat policy. Entering random materializes a fresh
// permutation.
func (s *Sequencer) SetLoopMode(mode models.LoopMode) {
	s.mutex.Lock()
	s.loopMode = mode
	if mode == models.LoopRandom {
		s.permutation = shuffledIndices(len(s.tracks))
	} else {
		s.permutation = nil
	}
	s.mutex.Unlock()

	s.publish(event.LoopModeChange{Mode: mode})
}

// LoopMode returns the repeat policy
func (s *Sequencer) LoopMode() models.LoopMode {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.loopMode
}

// NextIndex computes the index Next would select, without mutating state.
// Returns -1 when there is no next track.
func (s *Sequencer) NextIndex() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.nextIndexLocked()
}

// PreviousIndex computes the index Previous would select, without mutating
// state. Returns -1 when there is no previous track.
func (s *Sequencer) PreviousIndex() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.previousIndexLocked()
}

// Next advances to the next track under the repeat policy
func (s *Sequencer) Next() (models.Track, bool) {
	s.mutex.Lock()
	next := s.nextIndexLocked()
	s.mutex.Unlock()

	if next == -1 {
		return models.Track{}, false
	}
	if !s.SetCurrentIndex(next) {
		return models.Track{}, false
	}
	return s.GetCurrent()
}

// Previous steps back to the previous track under the repeat policy
func (s *Sequencer) Previous() (models.Track, bool) {
	s.mutex.Lock()
	prev := s.previousIndexLocked()
	s.mutex.Unlock()

	if prev == -1 {
		return models.Track{}, false
	}
	if !s.SetCurrentIndex(prev) {
		return models.Track{}, false
	}
	return s.GetCurrent()
}

// FindIndex returns the index of the first track matching the predicate
func (s *Sequencer) FindIndex(predicate func(models.Track) bool) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i, t := range s.tracks {
		if predicate(t) {
			return i
		}
	}
	return -1
}

// Filter returns all tracks matching the predicate
func (s *Sequencer) Filter(predicate func(models.Track) bool) []models.Track {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return lo.Filter(s.tracks, func(t models.Track, _ int) bool {
		return predicate(t)
	})
}

func (s *Sequencer) nextIndexLocked() int {
	if len(s.tracks) == 0 {
		return -1
	}
	switch s.loopMode {
	case models.LoopSingle:
		return s.currentIndex
	case models.LoopList:
		return (s.currentIndex + 1) % len(s.tracks)
	case models.LoopRandom:
		return s.permutationStepLocked(1)
	default:
		next := s.currentIndex + 1
		if next < len(s.tracks) {
			return next
		}
		return -1
	}
}

func (s *Sequencer) previousIndexLocked() int {
	if len(s.tracks) == 0 {
		return -1
	}
	switch s.loopMode {
	case models.LoopSingle:
		return s.currentIndex
	case models.LoopList:
		return (s.currentIndex - 1 + len(s.tracks)) % len(s.tracks)
	case models.LoopRandom:
		return s.permutationStepLocked(-1)
	default:
		prev := s.currentIndex - 1
		if prev >= 0 {
			return prev
		}
		return -1
	}
}

// permutationStepLocked walks dir steps within the materialized permutation,
// wrapping at the ends
func (s *Sequencer) permutationStepLocked(dir int) int {
	if len(s.permutation) != len(s.tracks) {
		s.permutation = shuffledIndices(len(s.tracks))
	}
	n := len(s.permutation)
	if n == 0 {
		return -1
	}
	pos := lo.IndexOf(s.permutation, s.currentIndex)
	if pos == -1 {
		return s.permutation[0]
	}
	return s.permutation[((pos+dir)%n+n)%n]
}

// reshuffleLocked rebuilds the permutation after a shape change
func (s *Sequencer) reshuffleLocked() {
	if s.loopMode == models.LoopRandom {
		s.permutation = shuffledIndices(len(s.tracks))
	}
}

func (s *Sequencer) allLocked() []models.Track {
	tracks := make([]models.Track, len(s.tracks))
	copy(tracks, s.tracks)
	return tracks
}

func (s *Sequencer) publish(e event.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

func shuffledIndices(n int) []int {
	if n == 0 {
		return nil
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return lo.Shuffle(indices)
}
