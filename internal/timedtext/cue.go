// Package timedtext parses time-tagged text (LRC lyrics, SRT/VTT subtitles)
// into sorted cue lists and answers point-in-time queries. Parsing always
// rebuilds the cue list wholesale; it never performs I/O.
package timedtext

// Cue represents a timed text entry. Lyric cues carry only a start (the end
// equals the next cue's start, or is zero for the last cue); subtitle cues
// carry an explicit interval.
type Cue struct {
	Start float64 `json:"start"` // in seconds
	End   float64 `json:"end"`   // in seconds, 0 when open-ended
	Text  string  `json:"text"`
}
