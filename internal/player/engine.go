// Package player composes an adapter, a state store and an event bus into
// the public playback engine, and hosts the cross-instance registry.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"cadenza/internal/adapter"
	"cadenza/internal/event"
	"cadenza/internal/format"
	"cadenza/internal/state"
	"cadenza/internal/timedtext"
	"cadenza/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config holds per-engine playback defaults. The zero value is usable but
// silent: Volume 0 is kept as configured. DefaultConfig supplies the usual
// starting values.
type Config struct {
	MediaType          format.MediaType
	Autoplay           bool
	Volume             float64
	Muted              bool
	PlaybackRate       float64
	LoopMode           models.LoopMode
	TimeUpdateInterval time.Duration

	// Exclusive makes Play pause every other registered engine first.
	// Opting out lets this engine play alongside others.
	Exclusive bool
}

// DefaultConfig returns the playback defaults of a fresh engine
func DefaultConfig() Config {
	return Config{
		MediaType:    format.MediaAudio,
		Volume:       1.0,
		PlaybackRate: 1.0,
		LoopMode:     models.LoopNone,
		Exclusive:    true,
	}
}

// Engine drives exactly one adapter and owns the state store for one player
// identity. All adapter events are mirrored into the store first and then
// re-published on the engine's own bus under the same event name, so a
// consumer never needs the adapter directly.
type Engine struct {
	id       string
	cfg      Config
	factory  *adapter.Factory
	registry *Registry
	store    *state.Store
	bus      *event.Bus
	logger   *logrus.Logger

	mutex         sync.Mutex
	adapter       adapter.Adapter
	adapterUnsubs []func()
	// adapterKind is the streaming format the current adapter was selected
	// for, or empty when it is the default adapter
	adapterKind format.Format
	formatInfo  *format.Info
	source      string

	// generation stamps each Load; completions from a superseded Load are
	// discarded instead of clobbering the newer one
	generation uint64
	// errGen is the load generation whose failure the adapter already
	// published; Load skips its own error event for that generation
	errGen uint64

	sequencer *Sequencer
	lyrics    *timedtext.LRCIndex
	lyricLine int

	destroyed bool
}

// Sequencer is the playlist surface the engine drives on auto-advance
type Sequencer interface {
	Next() (models.Track, bool)
	Previous() (models.Track, bool)
	SetCurrentIndex(index int) bool
	CurrentIndex() int
	Get(index int) (models.Track, bool)
	LoopMode() models.LoopMode
}

// NewEngine creates an engine, generates its process-unique id and registers
// it with the registry. A nil registry joins DefaultRegistry.
func NewEngine(cfg Config, factory *adapter.Factory, registry *Registry, logger *logrus.Logger) *Engine {
	if registry == nil {
		registry = DefaultRegistry
	}
	// Rate 0 is outside the valid range and means unset; volume 0 is a
	// valid configured value and stays
	if cfg.PlaybackRate == 0 {
		cfg.PlaybackRate = 1.0
	}

	initial := state.DefaultState()
	initial.Volume = adapter.Clamp(cfg.Volume, 0, 1)
	initial.Muted = cfg.Muted
	initial.PlaybackRate = adapter.Clamp(cfg.PlaybackRate, 0.25, 2)
	initial.LoopMode = cfg.LoopMode

	e := &Engine{
		id:        "player-" + uuid.NewString(),
		cfg:       cfg,
		factory:   factory,
		registry:  registry,
		store:     state.NewStore(initial, logger),
		bus:       event.NewBus(logger),
		logger:    logger,
		lyricLine: -1,
	}
	registry.Register(e)
	return e
}

// ID returns the process-unique engine id
func (e *Engine) ID() string {
	return e.id
}

// Events returns the engine event bus
func (e *Engine) Events() *event.Bus {
	return e.bus
}

// Store returns the engine's state store
func (e *Engine) Store() *state.Store {
	return e.store
}

// State returns a snapshot of the player state
func (e *Engine) State() state.PlayerState {
	return e.store.Get()
}

// FormatInfo returns the format resolved for the last loaded source
func (e *Engine) FormatInfo() (format.Info, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.formatInfo == nil {
		return format.Info{}, false
	}
	return *e.formatInfo, true
}

// Load resolves the source format, obtains an adapter for it and loads the
// source. Selection runs per call: when the resolved format wants a
// different adapter than the current one, the current adapter is replaced.
// A Load superseded by a newer call discards its completion silently.
func (e *Engine) Load(ctx context.Context, source string) error {
	e.mutex.Lock()
	if e.destroyed {
		e.mutex.Unlock()
		return models.NewPlayerError(models.ErrPlay, "engine destroyed", nil)
	}
	e.generation++
	gen := e.generation

	info := e.factory.Detect(source, "")
	e.formatInfo = &info
	e.source = source

	var kind format.Format
	if info.IsStreaming && e.factory.HasStreaming(info.Format) {
		kind = info.Format
	}

	if e.adapter == nil || kind != e.adapterKind {
		ad, selection, err := e.factory.Create(source, e.cfg.MediaType)
		if err != nil {
			e.mutex.Unlock()
			e.failLoad(err)
			return err
		}
		if selection == adapter.SelectionFallback && e.logger != nil {
			e.logger.WithFields(logrus.Fields{
				"player": e.id,
				"source": source,
			}).Warn("Adapter selected by fallback, playback may not work")
		}
		e.detachAdapterLocked()
		e.attachAdapterLocked(ad)
		e.adapterKind = kind
	}
	ad := e.adapter
	snapshot := e.store.Get()
	opts := adapter.Options{
		Volume:             snapshot.Volume,
		Muted:              snapshot.Muted,
		PlaybackRate:       snapshot.PlaybackRate,
		Loop:               snapshot.LoopMode == models.LoopSingle,
		TimeUpdateInterval: e.cfg.TimeUpdateInterval,
	}
	e.mutex.Unlock()

	err := ad.Load(ctx, source, opts)

	e.mutex.Lock()
	stale := gen != e.generation || e.destroyed
	e.mutex.Unlock()
	if stale {
		return nil
	}

	if err != nil {
		e.mutex.Lock()
		mirrored := e.errGen == gen
		e.mutex.Unlock()
		if !mirrored {
			e.failLoad(err)
		}
		return err
	}

	ps := ad.PlayState()
	duration := ad.Duration()
	e.store.Set(state.Patch{PlayState: &ps, Duration: &duration})
	return nil
}

// LoadTrack loads a playlist track and attaches its lyrics when present
func (e *Engine) LoadTrack(ctx context.Context, track models.Track) error {
	if track.Lyrics != "" {
		e.AttachLyrics(track.Lyrics)
	} else {
		e.DetachLyrics()
	}
	return e.Load(ctx, track.Src)
}

// failLoad records a classified load failure in the store and mirrors it on
// the bus
func (e *Engine) failLoad(err error) {
	perr := classify(err, models.ErrLoad)
	errState := models.StateError
	e.store.Set(state.Patch{PlayState: &errState, Err: &perr})
	e.bus.Publish(event.Error{Err: perr})
}

// Play starts playback. With Exclusive set, every other registered engine is
// paused before the adapter starts.
func (e *Engine) Play(ctx context.Context) error {
	e.mutex.Lock()
	ad := e.adapter
	destroyed := e.destroyed
	e.mutex.Unlock()

	if destroyed {
		return models.NewPlayerError(models.ErrPlay, "engine destroyed", nil)
	}
	if ad == nil {
		return models.NewPlayerError(models.ErrPlay, "no media loaded", nil)
	}

	if e.cfg.Exclusive {
		e.registry.PauseOthers(e.id)
	}
	e.registry.SetActive(e.id)

	if err := ad.Play(ctx); err != nil {
		perr := classify(err, models.ErrPlay)
		errState := models.StateError
		e.store.Set(state.Patch{PlayState: &errState, Err: &perr})
		e.bus.Publish(event.Error{Err: perr})
		return perr
	}
	return nil
}

// Pause suspends playback
func (e *Engine) Pause() {
	if ad := e.currentAdapter(); ad != nil {
		ad.Pause()
	}
}

// Stop halts playback and rewinds to the start
func (e *Engine) Stop() {
	if ad := e.currentAdapter(); ad != nil {
		ad.Stop()
	}
}

// Seek jumps to a position in seconds
func (e *Engine) Seek(seconds float64) {
	if ad := e.currentAdapter(); ad != nil {
		ad.Seek(seconds)
	}
}

// SetVolume sets the linear volume in [0, 1]
func (e *Engine) SetVolume(volume float64) {
	volume = adapter.Clamp(volume, 0, 1)
	if ad := e.currentAdapter(); ad != nil {
		ad.SetVolume(volume)
		return
	}
	e.store.Set(state.Patch{Volume: &volume})
}

// Mute silences output
func (e *Engine) Mute() {
	if ad := e.currentAdapter(); ad != nil {
		ad.Mute()
		return
	}
	muted := true
	e.store.Set(state.Patch{Muted: &muted})
}

// Unmute restores output
func (e *Engine) Unmute() {
	if ad := e.currentAdapter(); ad != nil {
		ad.Unmute()
		return
	}
	muted := false
	e.store.Set(state.Patch{Muted: &muted})
}

// ToggleMute flips the mute state
func (e *Engine) ToggleMute() {
	if e.store.Get().Muted {
		e.Unmute()
	} else {
		e.Mute()
	}
}

// SetPlaybackRate sets the playback speed, clamped to [0.25, 2]
func (e *Engine) SetPlaybackRate(rate float64) {
	rate = adapter.Clamp(rate, 0.25, 2)
	if ad := e.currentAdapter(); ad != nil {
		ad.SetPlaybackRate(rate)
		return
	}
	e.store.Set(state.Patch{PlaybackRate: &rate})
}

// SetLoopMode sets the repeat policy. Single-track repeat is delegated to
// the adapter's native loop; list and random are handled on auto-advance.
func (e *Engine) SetLoopMode(mode models.LoopMode) {
	e.store.Set(state.Patch{LoopMode: &mode})
	if ad := e.currentAdapter(); ad != nil {
		ad.SetLoop(mode == models.LoopSingle)
	}
	e.bus.Publish(event.LoopModeChange{Mode: mode})
}

// IsPlaying reports whether playback is running
func (e *Engine) IsPlaying() bool {
	return e.store.Get().PlayState == models.StatePlaying
}

// CurrentTime returns the live playback position in seconds
func (e *Engine) CurrentTime() float64 {
	if ad := e.currentAdapter(); ad != nil {
		return ad.CurrentTime()
	}
	return e.store.Get().CurrentTime
}

// Duration returns the media duration in seconds
func (e *Engine) Duration() float64 {
	if ad := e.currentAdapter(); ad != nil {
		return ad.Duration()
	}
	return e.store.Get().Duration
}

// AttachSequencer wires a playlist: on end of media the engine asks it for
// the next track and plays it
func (e *Engine) AttachSequencer(seq Sequencer) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.sequencer = seq
}

// PlayTrackAt selects a playlist index and plays it
func (e *Engine) PlayTrackAt(ctx context.Context, index int) error {
	e.mutex.Lock()
	seq := e.sequencer
	e.mutex.Unlock()
	if seq == nil {
		return models.NewPlayerError(models.ErrPlay, "no sequencer attached", nil)
	}
	if !seq.SetCurrentIndex(index) {
		return models.NewPlayerError(models.ErrPlay, "track index out of range", nil)
	}
	track, ok := seq.Get(index)
	if !ok {
		return models.NewPlayerError(models.ErrPlay, "track index out of range", nil)
	}
	e.store.Set(state.Patch{CurrentTrackIndex: &index})
	if err := e.LoadTrack(ctx, track); err != nil {
		return err
	}
	return e.Play(ctx)
}

// Next advances the attached sequencer and plays the selected track
func (e *Engine) Next(ctx context.Context) error {
	return e.step(ctx, func(s Sequencer) (models.Track, bool) { return s.Next() })
}

// Previous steps the attached sequencer back and plays the selected track
func (e *Engine) Previous(ctx context.Context) error {
	return e.step(ctx, func(s Sequencer) (models.Track, bool) { return s.Previous() })
}

func (e *Engine) step(ctx context.Context, move func(Sequencer) (models.Track, bool)) error {
	e.mutex.Lock()
	seq := e.sequencer
	e.mutex.Unlock()
	if seq == nil {
		return models.NewPlayerError(models.ErrPlay, "no sequencer attached", nil)
	}
	track, ok := move(seq)
	if !ok {
		return models.NewPlayerError(models.ErrPlay, "no track to play", nil)
	}
	index := seq.CurrentIndex()
	e.store.Set(state.Patch{CurrentTrackIndex: &index})
	if err := e.LoadTrack(ctx, track); err != nil {
		return err
	}
	return e.Play(ctx)
}

// AttachLyrics parses LRC text and publishes lyricchange events as the
// playback clock crosses line starts
func (e *Engine) AttachLyrics(lrcText string) {
	index := timedtext.NewLRCIndex()
	index.Parse(lrcText)
	e.mutex.Lock()
	e.lyrics = index
	e.lyricLine = -1
	e.mutex.Unlock()
}

// DetachLyrics removes the lyric index
func (e *Engine) DetachLyrics() {
	e.mutex.Lock()
	e.lyrics = nil
	e.lyricLine = -1
	e.mutex.Unlock()
}

// Lyrics returns the attached lyric index, if any
func (e *Engine) Lyrics() (*timedtext.LRCIndex, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.lyrics, e.lyrics != nil
}

// Destroy unregisters the engine, releases the adapter and clears listeners.
// A second call is a no-op.
func (e *Engine) Destroy() {
	e.mutex.Lock()
	if e.destroyed {
		e.mutex.Unlock()
		return
	}
	e.destroyed = true
	e.generation++
	ad := e.adapter
	unsubs := e.adapterUnsubs
	e.adapter = nil
	e.adapterUnsubs = nil
	e.sequencer = nil
	e.lyrics = nil
	e.mutex.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if ad != nil {
		ad.Destroy()
	}
	e.registry.Unregister(e.id)
	e.store.Reset()
	e.store.Clear()
	e.bus.Clear()
}

// detachAdapterLocked unsubscribes from the current adapter and destroys it
func (e *Engine) detachAdapterLocked() {
	if e.adapter == nil {
		return
	}
	for _, unsub := range e.adapterUnsubs {
		unsub()
	}
	e.adapterUnsubs = nil
	e.adapter.Destroy()
	e.adapter = nil
}

func (e *Engine) currentAdapter() adapter.Adapter {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.adapter
}

// attachAdapterLocked subscribes to the backend event set, mirrors each
// event into the state store and re-publishes it unchanged on the engine
// bus. State is always updated before the bus fires, so a handler reading
// state observes the post-transition value.
func (e *Engine) attachAdapterLocked(ad adapter.Adapter) {
	e.adapter = ad
	bus := ad.Events()

	mirror := func(t event.Type, handle func(event.Event)) {
		unsub := bus.Subscribe(t, func(ev event.Event) {
			handle(ev)
			e.bus.Publish(ev)
		})
		e.adapterUnsubs = append(e.adapterUnsubs, unsub)
	}

	setState := func(ps models.PlayState) func(event.Event) {
		return func(event.Event) {
			e.store.Set(state.Patch{PlayState: &ps})
		}
	}

	mirror(event.TypeLoadStart, setState(models.StateLoading))
	mirror(event.TypeLoadedData, func(event.Event) {})
	mirror(event.TypeLoadedMetadata, func(event.Event) {})
	mirror(event.TypeCanPlay, func(event.Event) {})
	mirror(event.TypeCanPlayThrough, func(event.Event) {})
	mirror(event.TypeSeeking, func(event.Event) {})
	mirror(event.TypeSeeked, func(event.Event) {})

	mirror(event.TypePlay, setState(models.StatePlaying))
	mirror(event.TypePause, setState(models.StatePaused))

	mirror(event.TypeStop, func(event.Event) {
		stopped := models.StateStopped
		zero := 0.0
		e.store.Set(state.Patch{PlayState: &stopped, CurrentTime: &zero})
	})

	mirror(event.TypeEnded, func(event.Event) {
		ended := models.StateEnded
		e.store.Set(state.Patch{PlayState: &ended})
	})

	mirror(event.TypeTimeUpdate, func(ev event.Event) {
		tu := ev.(event.TimeUpdate)
		e.store.Set(state.Patch{CurrentTime: &tu.CurrentTime, Duration: &tu.Duration})
		e.syncLyrics(tu.CurrentTime)
	})

	mirror(event.TypeProgress, func(ev event.Event) {
		p := ev.(event.Progress)
		e.store.Set(state.Patch{Buffered: &p.Buffered})
	})

	mirror(event.TypeDurationChange, func(ev event.Event) {
		d := ev.(event.DurationChange)
		e.store.Set(state.Patch{Duration: &d.Duration})
	})

	mirror(event.TypeVolumeChange, func(ev event.Event) {
		vc := ev.(event.VolumeChange)
		e.store.Set(state.Patch{Volume: &vc.Volume, Muted: &vc.Muted})
	})

	mirror(event.TypeRateChange, func(ev event.Event) {
		rc := ev.(event.RateChange)
		e.store.Set(state.Patch{PlaybackRate: &rc.Rate})
	})

	mirror(event.TypeError, func(ev event.Event) {
		ee := ev.(event.Error)
		errState := models.StateError
		e.store.Set(state.Patch{PlayState: &errState, Err: &ee.Err})
		e.mutex.Lock()
		e.errGen = e.generation
		e.mutex.Unlock()
	})

	// Auto-advance after the ended event has been mirrored and re-published
	unsub := bus.Subscribe(event.TypeEnded, func(event.Event) {
		e.autoAdvance()
	})
	e.adapterUnsubs = append(e.adapterUnsubs, unsub)
}

// autoAdvance asks the sequencer for the next track when the media ends.
// With loop mode none at the end of the list there is no next track and the
// engine stays in the ended state.
func (e *Engine) autoAdvance() {
	e.mutex.Lock()
	seq := e.sequencer
	destroyed := e.destroyed
	e.mutex.Unlock()
	if seq == nil || destroyed {
		return
	}

	track, ok := seq.Next()
	if !ok {
		return
	}
	index := seq.CurrentIndex()
	e.store.Set(state.Patch{CurrentTrackIndex: &index})

	ctx := context.Background()
	if err := e.LoadTrack(ctx, track); err != nil {
		if e.logger != nil {
			e.logger.WithError(err).WithField("track", track.ID).Error("Auto-advance load failed")
		}
		return
	}
	if err := e.Play(ctx); err != nil && e.logger != nil {
		e.logger.WithError(err).WithField("track", track.ID).Error("Auto-advance play failed")
	}
}

// syncLyrics publishes a lyricchange when the clock crosses into a new line
func (e *Engine) syncLyrics(currentTime float64) {
	e.mutex.Lock()
	lyrics := e.lyrics
	last := e.lyricLine
	e.mutex.Unlock()
	if lyrics == nil {
		return
	}

	line := lyrics.CueIndexAt(currentTime)
	if line == last {
		return
	}

	e.mutex.Lock()
	e.lyricLine = line
	e.mutex.Unlock()

	if line == -1 {
		return
	}
	if cue, ok := lyrics.CueAt(currentTime).Get(); ok {
		e.bus.Publish(event.LyricChange{Index: line, Time: cue.Start, Text: cue.Text})
	}
}

// classify wraps err as a PlayerError of the fallback kind unless it
// already carries a classification
func classify(err error, fallback models.ErrorKind) *models.PlayerError {
	var perr *models.PlayerError
	if errors.As(err, &perr) {
		return perr
	}
	return models.NewPlayerError(fallback, err.Error(), err)
}
