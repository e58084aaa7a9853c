package adapter

import (
	"testing"
	"time"

	"cadenza/internal/event"
	"cadenza/internal/format"
	"cadenza/pkg/models"

	"github.com/gopxl/beep/v2"
)

type fakeStreamer struct {
	length int
	pos    int
	closed bool
}

func (f *fakeStreamer) Stream(samples [][2]float64) (int, bool) { return 0, false }
func (f *fakeStreamer) Err() error                              { return nil }
func (f *fakeStreamer) Len() int                                { return f.length }
func (f *fakeStreamer) Position() int                           { return f.pos }
func (f *fakeStreamer) Seek(p int) error                        { f.pos = p; return nil }
func (f *fakeStreamer) Close() error                            { f.closed = true; return nil }

// newPlayingAdapter wires a fake decoded stream into an adapter so the
// end-of-stream path can run without audio hardware.
func newPlayingAdapter(t *testing.T) *BeepAdapter {
	t.Helper()
	a := NewBeepAdapter(format.MediaAudio, nil).(*BeepAdapter)
	t.Cleanup(a.Destroy)

	a.mutex.Lock()
	a.generation = 1
	a.streamer = &fakeStreamer{length: 3 * int(speakerSampleRate)}
	a.fileFmt = beep.Format{SampleRate: speakerSampleRate, NumChannels: 2, Precision: 2}
	a.state = models.StatePlaying
	a.queued = true
	a.mutex.Unlock()
	return a
}

func TestStreamDoneCallbackDoesNotBlockCaller(t *testing.T) {
	a := newPlayingAdapter(t)

	ended := make(chan struct{})
	a.bus.Subscribe(event.TypeEnded, func(event.Event) { close(ended) })

	var final event.TimeUpdate
	a.bus.Subscribe(event.TypeTimeUpdate, func(ev event.Event) {
		final = ev.(event.TimeUpdate)
	})

	cb := a.streamDoneCallback(1)

	// The speaker invokes the callback with its internal lock held. Holding
	// the adapter mutex across the call stands in for that: the callback has
	// to return without touching adapter state on the calling goroutine.
	a.mutex.Lock()
	cb()
	a.mutex.Unlock()

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("ended event was not delivered")
	}
	if got := a.PlayState(); got != models.StateEnded {
		t.Fatalf("state after end of stream = %v, want %v", got, models.StateEnded)
	}
	if final.CurrentTime != final.Duration || final.Duration != 3 {
		t.Errorf("final time update = %+v, want currentTime == duration == 3", final)
	}
}

func TestStreamDoneStaleGenerationIgnored(t *testing.T) {
	a := newPlayingAdapter(t)

	a.mutex.Lock()
	a.generation = 2
	a.mutex.Unlock()

	endedSeen := false
	a.bus.Subscribe(event.TypeEnded, func(event.Event) { endedSeen = true })

	a.onStreamDone(1)

	if endedSeen {
		t.Error("stale callback published ended")
	}
	if got := a.PlayState(); got != models.StatePlaying {
		t.Errorf("state = %v, want %v", got, models.StatePlaying)
	}
}

func TestStreamDoneIgnoredWhenNotPlaying(t *testing.T) {
	a := newPlayingAdapter(t)

	a.mutex.Lock()
	a.state = models.StatePaused
	a.mutex.Unlock()

	endedSeen := false
	a.bus.Subscribe(event.TypeEnded, func(event.Event) { endedSeen = true })

	a.onStreamDone(1)

	if endedSeen {
		t.Error("paused adapter published ended")
	}
}
