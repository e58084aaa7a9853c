package format

// Support is a host capability answer for a MIME type
type Support int

const (
	SupportNo Support = iota
	SupportMaybe
	SupportProbably
)

// CapabilityProber answers whether the host playback backend can play media.
// It is the boundary to the concrete playback technology; the resolver never
// decodes bytes itself.
type CapabilityProber interface {
	// CanPlay reports backend support for a MIME type
	CanPlay(mimeType string) Support
	// SupportsStreaming reports whether a streaming extension for the
	// format is available on the host
	SupportsStreaming(f Format) bool
}

func isSupported(f Format, prober CapabilityProber) bool {
	if prober == nil {
		return false
	}
	if IsStreamingFormat(f) {
		return prober.SupportsStreaming(f)
	}
	return prober.CanPlay(MimeTypeFromFormat(f)) != SupportNo
}

// SupportedFormats returns the formats the prober reports playable
func SupportedFormats(prober CapabilityProber) []Format {
	all := []Format{
		FormatMP3, FormatWAV, FormatOGG, FormatM4A, FormatAAC, FormatFLAC,
		FormatWebMAudio, FormatMP4, FormatWebMVideo, FormatOGGVideo, FormatMOV,
	}
	var supported []Format
	for _, f := range all {
		if isSupported(f, prober) {
			supported = append(supported, f)
		}
	}
	return supported
}

// RecommendedFormats returns formats for a media type in preference order
func RecommendedFormats(t MediaType) []Format {
	if t == MediaAudio {
		return []Format{FormatMP3, FormatM4A, FormatAAC, FormatOGG, FormatWAV, FormatFLAC, FormatWebMAudio}
	}
	return []Format{FormatMP4, FormatWebMVideo, FormatOGGVideo, FormatMOV}
}
