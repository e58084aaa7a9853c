// Package adapter isolates the playback engine from concrete playback
// backends. An Adapter is a swappable implementation of the playback
// primitive for one backend technology; the engine only ever talks to this
// interface.
package adapter

import (
	"context"
	"time"

	"cadenza/internal/event"
	"cadenza/internal/format"
	"cadenza/pkg/models"
)

// Options configures how an adapter loads and starts a source
type Options struct {
	Autoplay           bool
	Volume             float64 // 0.0 to 1.0, negative means "leave as is"
	Muted              bool
	PlaybackRate       float64 // 0 means 1.0
	Loop               bool
	TimeUpdateInterval time.Duration // 0 means the adapter default
}

// Capabilities is the static per-adapter-type descriptor used by the
// factory for selection
type Capabilities struct {
	SupportedFormats     []format.Format
	SupportsStreaming    bool
	SupportsAudioGraph   bool
	SupportsCustomRender bool
}

// Adapter is the only surface the engine may call on a playback backend.
// Backend-level events are emitted on the bus returned by Events.
type Adapter interface {
	// Load prepares a source for playback. A new Load supersedes a
	// pending one; the superseded call's effects are discarded.
	Load(ctx context.Context, source string, opts Options) error
	// Play starts or resumes playback
	Play(ctx context.Context) error
	Pause()
	Stop()
	Seek(seconds float64)

	SetVolume(volume float64)
	Mute()
	Unmute()
	SetPlaybackRate(rate float64)
	SetLoop(loop bool)

	PlayState() models.PlayState
	CurrentTime() float64
	Duration() float64
	Volume() float64
	IsMuted() bool
	IsPlaying() bool
	PlaybackRate() float64
	Buffered() float64

	Events() *event.Bus
	Capabilities() Capabilities

	// Destroy releases backend resources; the adapter is unusable after
	Destroy()
}

// Clamp bounds v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
