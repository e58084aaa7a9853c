package event

import "cadenza/pkg/models"

// Type identifies an event on the bus
type Type string

const (
	TypePlay           Type = "play"
	TypePause          Type = "pause"
	TypeStop           Type = "stop"
	TypeEnded          Type = "ended"
	TypeLoadStart      Type = "loadstart"
	TypeLoadedData     Type = "loadeddata"
	TypeLoadedMetadata Type = "loadedmetadata"
	TypeCanPlay        Type = "canplay"
	TypeCanPlayThrough Type = "canplaythrough"
	TypeSeeking        Type = "seeking"
	TypeSeeked         Type = "seeked"
	TypeTimeUpdate     Type = "timeupdate"
	TypeProgress       Type = "progress"
	TypeDurationChange Type = "durationchange"
	TypeVolumeChange   Type = "volumechange"
	TypeRateChange     Type = "ratechange"
	TypeError          Type = "error"
	TypePlaylistChange Type = "playlistchange"
	TypeTrackChange    Type = "trackchange"
	TypeLoopModeChange Type = "loopmodechange"
	TypeLyricChange    Type = "lyricchange"
)

// Event is the closed union of bus payloads; one variant per event type
type Event interface {
	EventType() Type
}

// Play signals that playback started or resumed
type Play struct{}

// Pause signals that playback was paused
type Pause struct{}

// Stop signals that playback was stopped and rewound
type Stop struct{}

// Ended signals end of media
type Ended struct{}

// LoadStart signals that a new source started loading
type LoadStart struct{}

// LoadedData signals that first media data arrived
type LoadedData struct{}

// LoadedMetadata signals that duration and stream layout are known
type LoadedMetadata struct{}

// CanPlay signals that enough data is buffered to begin playback
type CanPlay struct{}

// CanPlayThrough signals that playback can run to the end without stalling
type CanPlayThrough struct{}

// Seeking signals that a seek started
type Seeking struct{}

// Seeked signals that a seek finished
type Seeked struct{}

// TimeUpdate carries the playback clock
type TimeUpdate struct {
	CurrentTime float64
	Duration    float64
}

// Progress carries buffered media extent in seconds
type Progress struct {
	Buffered float64
}

// DurationChange carries a freshly known total duration
type DurationChange struct {
	Duration float64
}

// VolumeChange carries volume and mute state
type VolumeChange struct {
	Volume float64
	Muted  bool
}

// RateChange carries the playback rate
type RateChange struct {
	Rate float64
}

// Error carries a classified playback failure
type Error struct {
	Err *models.PlayerError
}

// PlaylistChange carries the playlist contents after a mutation
type PlaylistChange struct {
	Tracks []models.Track
}

// TrackChange signals that the current track changed
type TrackChange struct {
	Index int
	Track models.Track
}

// LoopModeChange carries the new repeat policy
type LoopModeChange struct {
	Mode models.LoopMode
}

// LyricChange carries the lyric line that became current
type LyricChange struct {
	Index int
	Time  float64
	Text  string
}

func (Play) EventType() Type           { return TypePlay }
func (Pause) EventType() Type          { return TypePause }
func (Stop) EventType() Type           { return TypeStop }
func (Ended) EventType() Type          { return TypeEnded }
func (LoadStart) EventType() Type      { return TypeLoadStart }
func (LoadedData) EventType() Type     { return TypeLoadedData }
func (LoadedMetadata) EventType() Type { return TypeLoadedMetadata }
func (CanPlay) EventType() Type        { return TypeCanPlay }
func (CanPlayThrough) EventType() Type { return TypeCanPlayThrough }
func (Seeking) EventType() Type        { return TypeSeeking }
func (Seeked) EventType() Type         { return TypeSeeked }
func (TimeUpdate) EventType() Type     { return TypeTimeUpdate }
func (Progress) EventType() Type       { return TypeProgress }
func (DurationChange) EventType() Type { return TypeDurationChange }
func (VolumeChange) EventType() Type   { return TypeVolumeChange }
func (RateChange) EventType() Type     { return TypeRateChange }
func (Error) EventType() Type          { return TypeError }
func (PlaylistChange) EventType() Type { return TypePlaylistChange }
func (TrackChange) EventType() Type    { return TypeTrackChange }
func (LoopModeChange) EventType() Type { return TypeLoopModeChange }
func (LyricChange) EventType() Type    { return TypeLyricChange }
