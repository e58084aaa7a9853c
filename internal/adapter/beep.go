package adapter

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cadenza/internal/event"
	"cadenza/internal/format"
	"cadenza/pkg/models"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/sirupsen/logrus"
)

const (
	speakerSampleRate         = beep.SampleRate(44100)
	defaultTimeUpdateInterval = 250 * time.Millisecond
	resampleQuality           = 4
)

var speakerOnce sync.Once

func initSpeaker() error {
	var err error
	speakerOnce.Do(func() {
		err = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	return err
}

// BeepAdapter plays local audio files through the beep speaker. It is the
// default backend for non-streaming sources.
type BeepAdapter struct {
	mutex  sync.Mutex
	bus    *event.Bus
	logger *logrus.Logger

	state     models.PlayState
	source    string
	streamer  beep.StreamSeekCloser
	fileFmt   beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	volumeFx  *effects.Volume
	queued    bool // streamer chain handed to the speaker

	volume float64
	muted  bool
	rate   float64
	loop   bool

	// generation guards against a superseded Load or a stale end-of-media
	// callback mutating current state
	generation uint64

	updateInterval time.Duration
	tickerStop     chan struct{}
	destroyed      bool
}

// NewBeepAdapter creates the default local-audio adapter. The mediaType
// argument is accepted for factory compatibility; this backend is audio-only.
func NewBeepAdapter(_ format.MediaType, logger *logrus.Logger) Adapter {
	return &BeepAdapter{
		bus:            event.NewBus(logger),
		logger:         logger,
		state:          models.StateIdle,
		volume:         1.0,
		rate:           1.0,
		updateInterval: defaultTimeUpdateInterval,
	}
}

// Events returns the backend event bus
func (a *BeepAdapter) Events() *event.Bus {
	return a.bus
}

// Capabilities describes what this backend can handle
func (a *BeepAdapter) Capabilities() Capabilities {
	return Capabilities{
		SupportedFormats: []format.Format{
			format.FormatMP3, format.FormatWAV, format.FormatFLAC, format.FormatOGG,
		},
	}
}

// Load decodes the source file and prepares the playback chain. A Load that
// is superseded by a newer one discards its result silently.
func (a *BeepAdapter) Load(ctx context.Context, source string, opts Options) error {
	a.mutex.Lock()
	if a.destroyed {
		a.mutex.Unlock()
		return models.NewPlayerError(models.ErrPlay, "adapter destroyed", nil)
	}
	a.generation++
	gen := a.generation
	a.stopLocked()
	a.state = models.StateLoading
	a.source = source
	if opts.Volume >= 0 {
		a.volume = Clamp(opts.Volume, 0, 1)
	}
	a.muted = opts.Muted
	if opts.PlaybackRate > 0 {
		a.rate = Clamp(opts.PlaybackRate, 0.25, 2)
	}
	a.loop = opts.Loop
	if opts.TimeUpdateInterval > 0 {
		a.updateInterval = opts.TimeUpdateInterval
	}
	a.mutex.Unlock()

	a.bus.Publish(event.LoadStart{})

	streamer, fileFmt, err := decodeFile(source)
	if err != nil {
		perr := classifyLoadError(source, err)
		a.mutex.Lock()
		current := gen == a.generation
		if current {
			a.state = models.StateError
		}
		a.mutex.Unlock()
		if current {
			a.bus.Publish(event.Error{Err: perr})
		}
		return perr
	}

	if err := ctx.Err(); err != nil {
		streamer.Close()
		return models.NewPlayerError(models.ErrLoad, "load canceled", err)
	}

	if err := initSpeaker(); err != nil {
		streamer.Close()
		perr := models.NewPlayerError(models.ErrNotSupported, "audio output unavailable", err)
		a.mutex.Lock()
		current := gen == a.generation
		if current {
			a.state = models.StateError
		}
		a.mutex.Unlock()
		if current {
			a.bus.Publish(event.Error{Err: perr})
		}
		return perr
	}

	a.mutex.Lock()
	if gen != a.generation || a.destroyed {
		// A newer Load won; this one is a no-op
		a.mutex.Unlock()
		streamer.Close()
		return nil
	}

	a.streamer = streamer
	a.fileFmt = fileFmt
	a.ctrl = &beep.Ctrl{Streamer: streamer, Paused: true}
	a.resampler = beep.ResampleRatio(resampleQuality, a.ratioLocked(), a.ctrl)
	a.volumeFx = &effects.Volume{Streamer: a.resampler, Base: 2}
	a.applyVolumeLocked()
	a.queued = false
	a.state = models.StatePaused
	autoplay := opts.Autoplay
	a.mutex.Unlock()

	a.bus.Publish(event.LoadedData{})
	a.bus.Publish(event.LoadedMetadata{})
	a.bus.Publish(event.DurationChange{Duration: a.Duration()})
	a.bus.Publish(event.CanPlay{})
	a.bus.Publish(event.CanPlayThrough{})

	if autoplay {
		return a.Play(ctx)
	}
	return nil
}

// Play starts or resumes playback
func (a *BeepAdapter) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return models.NewPlayerError(models.ErrPlay, "play canceled", err)
	}

	a.mutex.Lock()
	if a.destroyed {
		a.mutex.Unlock()
		return models.NewPlayerError(models.ErrPlay, "adapter destroyed", nil)
	}
	if a.streamer == nil {
		a.mutex.Unlock()
		return models.NewPlayerError(models.ErrPlay, "no media loaded", nil)
	}
	if a.state == models.StatePlaying {
		a.mutex.Unlock()
		return nil
	}

	// Replay from the start after the media ended or was stopped
	if a.state == models.StateEnded || a.state == models.StateStopped {
		speaker.Lock()
		if err := a.streamer.Seek(0); err != nil {
			speaker.Unlock()
			a.mutex.Unlock()
			return models.NewPlayerError(models.ErrPlay, "rewind failed", err)
		}
		speaker.Unlock()
	}

	if !a.queued {
		speaker.Play(beep.Seq(a.volumeFx, beep.Callback(a.streamDoneCallback(a.generation))))
		a.queued = true
	}

	speaker.Lock()
	a.ctrl.Paused = false
	speaker.Unlock()

	a.state = models.StatePlaying
	a.startTickerLocked()
	a.mutex.Unlock()

	a.bus.Publish(event.Play{})
	return nil
}

// Pause suspends playback keeping the position
func (a *BeepAdapter) Pause() {
	a.mutex.Lock()
	if a.ctrl == nil || a.state != models.StatePlaying {
		a.mutex.Unlock()
		return
	}
	speaker.Lock()
	a.ctrl.Paused = true
	speaker.Unlock()
	a.state = models.StatePaused
	a.stopTickerLocked()
	a.mutex.Unlock()

	a.bus.Publish(event.Pause{})
}

// Stop halts playback and rewinds to the start
func (a *BeepAdapter) Stop() {
	a.mutex.Lock()
	if a.streamer == nil {
		a.mutex.Unlock()
		return
	}
	speaker.Lock()
	a.ctrl.Paused = true
	_ = a.streamer.Seek(0)
	speaker.Unlock()
	a.state = models.StateStopped
	a.stopTickerLocked()
	a.mutex.Unlock()

	a.bus.Publish(event.Stop{})
	a.bus.Publish(event.TimeUpdate{CurrentTime: 0, Duration: a.Duration()})
}

// Seek jumps to a position in seconds, clamped to the media duration
func (a *BeepAdapter) Seek(seconds float64) {
	a.mutex.Lock()
	if a.streamer == nil {
		a.mutex.Unlock()
		return
	}
	duration := a.durationLocked()
	target := Clamp(seconds, 0, duration)
	pos := a.fileFmt.SampleRate.N(time.Duration(target * float64(time.Second)))
	if pos >= a.streamer.Len() {
		pos = a.streamer.Len() - 1
	}
	if pos < 0 {
		pos = 0
	}

	a.bus.Publish(event.Seeking{})
	speaker.Lock()
	err := a.streamer.Seek(pos)
	speaker.Unlock()
	a.mutex.Unlock()

	if err != nil {
		a.bus.Publish(event.Error{Err: models.NewPlayerError(models.ErrPlay, "seek failed", err)})
		return
	}
	a.bus.Publish(event.Seeked{})
	a.bus.Publish(event.TimeUpdate{CurrentTime: target, Duration: duration})
}

// SetVolume sets the linear volume in [0, 1]
func (a *BeepAdapter) SetVolume(volume float64) {
	a.mutex.Lock()
	a.volume = Clamp(volume, 0, 1)
	a.applyVolumeLocked()
	v, m := a.volume, a.muted
	a.mutex.Unlock()

	a.bus.Publish(event.VolumeChange{Volume: v, Muted: m})
}

// Mute silences output without losing the volume setting
func (a *BeepAdapter) Mute() {
	a.setMuted(true)
}

// Unmute restores output
func (a *BeepAdapter) Unmute() {
	a.setMuted(false)
}

func (a *BeepAdapter) setMuted(muted bool) {
	a.mutex.Lock()
	if a.muted == muted {
		a.mutex.Unlock()
		return
	}
	a.muted = muted
	a.applyVolumeLocked()
	v, m := a.volume, a.muted
	a.mutex.Unlock()

	a.bus.Publish(event.VolumeChange{Volume: v, Muted: m})
}

// SetPlaybackRate sets the playback speed, clamped to [0.25, 2]
func (a *BeepAdapter) SetPlaybackRate(rate float64) {
	a.mutex.Lock()
	a.rate = Clamp(rate, 0.25, 2)
	if a.resampler != nil {
		speaker.Lock()
		a.resampler.SetRatio(a.ratioLocked())
		speaker.Unlock()
	}
	r := a.rate
	a.mutex.Unlock()

	a.bus.Publish(event.RateChange{Rate: r})
}

// SetLoop makes the media restart instead of ending
func (a *BeepAdapter) SetLoop(loop bool) {
	a.mutex.Lock()
	a.loop = loop
	a.mutex.Unlock()
}

// PlayState returns the backend lifecycle state
func (a *BeepAdapter) PlayState() models.PlayState {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.state
}

// CurrentTime returns the playback position in seconds
func (a *BeepAdapter) CurrentTime() float64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := a.streamer.Position()
	speaker.Unlock()
	return a.fileFmt.SampleRate.D(pos).Seconds()
}

// Duration returns the media duration in seconds
func (a *BeepAdapter) Duration() float64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.durationLocked()
}

// Volume returns the linear volume in [0, 1]
func (a *BeepAdapter) Volume() float64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.volume
}

// IsMuted reports whether output is muted
func (a *BeepAdapter) IsMuted() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.muted
}

// IsPlaying reports whether playback is running
func (a *BeepAdapter) IsPlaying() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.state == models.StatePlaying
}

// PlaybackRate returns the playback speed
func (a *BeepAdapter) PlaybackRate() float64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.rate
}

// Buffered returns the buffered extent in seconds. Local files are fully
// available once decoded.
func (a *BeepAdapter) Buffered() float64 {
	return a.Duration()
}

// Destroy stops playback and releases the decoder. Safe to call twice.
func (a *BeepAdapter) Destroy() {
	a.mutex.Lock()
	if a.destroyed {
		a.mutex.Unlock()
		return
	}
	a.destroyed = true
	a.generation++
	a.stopLocked()
	a.state = models.StateIdle
	a.mutex.Unlock()

	a.bus.Clear()
}

func (a *BeepAdapter) durationLocked() float64 {
	if a.streamer == nil {
		return 0
	}
	return a.fileFmt.SampleRate.D(a.streamer.Len()).Seconds()
}

// ratioLocked returns the resample ratio combining the file-to-speaker rate
// conversion with the requested playback rate
func (a *BeepAdapter) ratioLocked() float64 {
	return float64(a.fileFmt.SampleRate) / float64(speakerSampleRate) * a.rate
}

func (a *BeepAdapter) applyVolumeLocked() {
	if a.volumeFx == nil {
		return
	}
	speaker.Lock()
	if a.muted || a.volume == 0 {
		a.volumeFx.Silent = true
	} else {
		a.volumeFx.Silent = false
		a.volumeFx.Volume = math.Log2(a.volume)
	}
	speaker.Unlock()
}

// stopLocked detaches the current chain from the speaker and closes the
// decoder. Nil-ing the ctrl streamer drains the queued Seq so the mixer
// drops it.
func (a *BeepAdapter) stopLocked() {
	if a.ctrl != nil {
		speaker.Lock()
		a.ctrl.Paused = true
		a.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if a.streamer != nil {
		a.streamer.Close()
	}
	a.streamer = nil
	a.ctrl = nil
	a.resampler = nil
	a.volumeFx = nil
	a.queued = false
	a.stopTickerLocked()
}

// streamDoneCallback wraps onStreamDone for beep.Callback. The speaker fires
// the callback while its mutex is held, so completion handling must move to
// its own goroutine before it can relock the speaker or queue the next chain.
func (a *BeepAdapter) streamDoneCallback(gen uint64) func() {
	return func() {
		go a.onStreamDone(gen)
	}
}

// onStreamDone runs when the queued Seq finishes. Stale callbacks from a
// superseded load or an explicit stop are ignored via the generation check.
func (a *BeepAdapter) onStreamDone(gen uint64) {
	a.mutex.Lock()
	if gen != a.generation || a.destroyed || a.streamer == nil {
		a.mutex.Unlock()
		return
	}
	// Explicit stop/pause also drains the callback path; only a natural
	// end of media reaches here in the playing state
	if a.state != models.StatePlaying {
		a.mutex.Unlock()
		return
	}

	if a.loop {
		speaker.Lock()
		err := a.streamer.Seek(0)
		speaker.Unlock()
		if err == nil {
			speaker.Play(beep.Seq(a.volumeFx, beep.Callback(a.streamDoneCallback(a.generation))))
			a.mutex.Unlock()
			return
		}
		if a.logger != nil {
			a.logger.WithError(err).Warn("Loop rewind failed, ending playback")
		}
	}

	a.state = models.StateEnded
	a.queued = false
	a.stopTickerLocked()
	duration := a.durationLocked()
	a.mutex.Unlock()

	a.bus.Publish(event.TimeUpdate{CurrentTime: duration, Duration: duration})
	a.bus.Publish(event.Ended{})
}

func (a *BeepAdapter) startTickerLocked() {
	if a.tickerStop != nil {
		return
	}
	stop := make(chan struct{})
	a.tickerStop = stop
	interval := a.updateInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.emitTimeUpdate()
			}
		}
	}()
}

func (a *BeepAdapter) stopTickerLocked() {
	if a.tickerStop != nil {
		close(a.tickerStop)
		a.tickerStop = nil
	}
}

func (a *BeepAdapter) emitTimeUpdate() {
	a.mutex.Lock()
	if a.streamer == nil || a.state != models.StatePlaying {
		a.mutex.Unlock()
		return
	}
	speaker.Lock()
	pos := a.streamer.Position()
	speaker.Unlock()
	current := a.fileFmt.SampleRate.D(pos).Seconds()
	duration := a.durationLocked()
	a.mutex.Unlock()

	a.bus.Publish(event.TimeUpdate{CurrentTime: current, Duration: duration})
	a.bus.Publish(event.Progress{Buffered: duration})
}

func decodeFile(source string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var streamer beep.StreamSeekCloser
	var fileFmt beep.Format
	switch strings.ToLower(filepath.Ext(source)) {
	case ".mp3":
		streamer, fileFmt, err = mp3.Decode(f)
	case ".wav":
		streamer, fileFmt, err = wav.Decode(f)
	case ".flac":
		streamer, fileFmt, err = flac.Decode(f)
	case ".ogg", ".oga":
		streamer, fileFmt, err = vorbis.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, models.NewPlayerError(models.ErrFormat,
			"unsupported container "+filepath.Ext(source), nil)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, models.NewPlayerError(models.ErrDecode,
			"decode failed for "+filepath.Base(source), err)
	}
	return streamer, fileFmt, nil
}

// classifyLoadError maps a backend failure onto the error taxonomy
func classifyLoadError(source string, err error) *models.PlayerError {
	var perr *models.PlayerError
	if errors.As(err, &perr) {
		return perr
	}
	if os.IsPermission(err) {
		return models.NewPlayerError(models.ErrPermission, "cannot open "+source, err)
	}
	if os.IsNotExist(err) {
		return models.NewPlayerError(models.ErrLoad, "cannot open "+source, err)
	}
	return models.NewPlayerError(models.ErrLoad, "failed to load "+source, err)
}
