// Package state holds the authoritative playback state snapshot for a single
// player and notifies subscribers when any field changes.
package state

import (
	"sync"

	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// PlayerState is the aggregate playback state owned by a Store
type PlayerState struct {
	PlayState         models.PlayState    `json:"playState"`
	CurrentTime       float64             `json:"currentTime"`
	Duration          float64             `json:"duration"`
	Volume            float64             `json:"volume"` // 0.0 to 1.0
	Muted             bool                `json:"muted"`
	PlaybackRate      float64             `json:"playbackRate"` // 0.25 to 2.0
	Buffered          float64             `json:"buffered"`     // in seconds
	LoopMode          models.LoopMode     `json:"loopMode"`
	CurrentTrackIndex int                 `json:"currentTrackIndex"`
	Err               *models.PlayerError `json:"error,omitempty"`
}

// Patch is a partial state update; nil fields are left untouched
type Patch struct {
	PlayState         *models.PlayState
	CurrentTime       *float64
	Duration          *float64
	Volume            *float64
	Muted             *bool
	PlaybackRate      *float64
	Buffered          *float64
	LoopMode          *models.LoopMode
	CurrentTrackIndex *int
	Err               **models.PlayerError
}

// Listener receives a state snapshot after every effective change
type Listener func(PlayerState)

type entry struct {
	id       uint64
	listener Listener
}

// Store manages the player state and notifies listeners on change.
// Set calls that change nothing do not notify.
type Store struct {
	mutex     sync.Mutex
	state     PlayerState
	nextID    uint64
	listeners []entry
	logger    *logrus.Logger
}

// NewStore creates a state store with the given initial state
func NewStore(initial PlayerState, logger *logrus.Logger) *Store {
	return &Store{state: initial, logger: logger}
}

// DefaultState returns the state of a freshly created player
func DefaultState() PlayerState {
	return PlayerState{
		PlayState:         models.StateIdle,
		Volume:            1.0,
		PlaybackRate:      1.0,
		LoopMode:          models.LoopNone,
		CurrentTrackIndex: -1,
	}
}

// Get returns a snapshot of the current state
func (s *Store) Get() PlayerState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Set applies the patch. Listeners are notified only when at least one
// field actually changed, so repeated identical sets are a no-op for
// observers.
func (s *Store) Set(p Patch) {
	s.mutex.Lock()
	changed := s.apply(p)
	snapshot := s.state
	listeners := s.snapshotListeners()
	s.mutex.Unlock()

	if changed {
		s.notify(listeners, snapshot)
	}
}

func (s *Store) apply(p Patch) bool {
	changed := false
	if p.PlayState != nil && s.state.PlayState != *p.PlayState {
		s.state.PlayState = *p.PlayState
		changed = true
	}
	if p.CurrentTime != nil && s.state.CurrentTime != *p.CurrentTime {
		s.state.CurrentTime = *p.CurrentTime
		changed = true
	}
	if p.Duration != nil && s.state.Duration != *p.Duration {
		s.state.Duration = *p.Duration
		changed = true
	}
	if p.Volume != nil && s.state.Volume != *p.Volume {
		s.state.Volume = *p.Volume
		changed = true
	}
	if p.Muted != nil && s.state.Muted != *p.Muted {
		s.state.Muted = *p.Muted
		changed = true
	}
	if p.PlaybackRate != nil && s.state.PlaybackRate != *p.PlaybackRate {
		s.state.PlaybackRate = *p.PlaybackRate
		changed = true
	}
	if p.Buffered != nil && s.state.Buffered != *p.Buffered {
		s.state.Buffered = *p.Buffered
		changed = true
	}
	if p.LoopMode != nil && s.state.LoopMode != *p.LoopMode {
		s.state.LoopMode = *p.LoopMode
		changed = true
	}
	if p.CurrentTrackIndex != nil && s.state.CurrentTrackIndex != *p.CurrentTrackIndex {
		s.state.CurrentTrackIndex = *p.CurrentTrackIndex
		changed = true
	}
	if p.Err != nil && s.state.Err != *p.Err {
		s.state.Err = *p.Err
		changed = true
	}
	return changed
}

// Subscribe registers a listener and immediately invokes it once with the
// current snapshot. The returned function removes the listener.
func (s *Store) Subscribe(listener Listener) func() {
	s.mutex.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, entry{id: id, listener: listener})
	snapshot := s.state
	s.mutex.Unlock()

	s.notify([]entry{{id: id, listener: listener}}, snapshot)

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		for i, e := range s.listeners {
			if e.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				break
			}
		}
	}
}

// Reset clears the transient playback fields back to idle, keeping volume,
// rate and loop mode
func (s *Store) Reset() {
	idle := models.StateIdle
	zero := 0.0
	var noErr *models.PlayerError
	s.Set(Patch{
		PlayState:   &idle,
		CurrentTime: &zero,
		Duration:    &zero,
		Buffered:    &zero,
		Err:         &noErr,
	})
}

// Clear removes all listeners
func (s *Store) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.listeners = nil
}

func (s *Store) snapshotListeners() []entry {
	listeners := make([]entry, len(s.listeners))
	copy(listeners, s.listeners)
	return listeners
}

func (s *Store) notify(listeners []entry, snapshot PlayerState) {
	for _, e := range listeners {
		s.invoke(e.listener, snapshot)
	}
}

func (s *Store) invoke(listener Listener, snapshot PlayerState) {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.WithField("panic", r).Error("State listener panicked")
		}
	}()
	listener(snapshot)
}
