package adapter

import "cadenza/internal/format"

// BeepProber answers capability queries for the beep backend: local audio
// containers only, no streaming extensions.
type BeepProber struct{}

var beepMimes = map[string]format.Support{
	"audio/mpeg":   format.SupportProbably,
	"audio/mp3":    format.SupportProbably,
	"audio/wav":    format.SupportProbably,
	"audio/wave":   format.SupportProbably,
	"audio/x-wav":  format.SupportProbably,
	"audio/flac":   format.SupportProbably,
	"audio/x-flac": format.SupportProbably,
	"audio/ogg":    format.SupportProbably,
	"audio/vorbis": format.SupportProbably,
	"audio/mp4":    format.SupportMaybe,
	"audio/x-m4a":  format.SupportMaybe,
}

// CanPlay reports decoder availability for a MIME type
func (BeepProber) CanPlay(mimeType string) format.Support {
	if s, ok := beepMimes[mimeType]; ok {
		return s
	}
	return format.SupportNo
}

// SupportsStreaming reports false: the beep backend has no manifest handling
func (BeepProber) SupportsStreaming(format.Format) bool {
	return false
}
