// Package format classifies a media source descriptor into a playable-format
// tag. Detection never touches the media bytes; it only inspects the source
// string and an optional MIME hint.
package format

import (
	"net/url"
	"regexp"
	"strings"
)

// MediaType distinguishes audio from video sources
type MediaType string

const (
	MediaAudio   MediaType = "audio"
	MediaVideo   MediaType = "video"
	MediaUnknown MediaType = "unknown"
)

// Format is the closed set of recognized media formats
type Format string

const (
	FormatMP3       Format = "mp3"
	FormatWAV       Format = "wav"
	FormatOGG       Format = "ogg"
	FormatM4A       Format = "m4a"
	FormatAAC       Format = "aac"
	FormatFLAC      Format = "flac"
	FormatWebMAudio Format = "webm-audio"
	FormatMP4       Format = "mp4"
	FormatWebMVideo Format = "webm-video"
	FormatOGGVideo  Format = "ogg-video"
	FormatMOV       Format = "mov"
	FormatAVI       Format = "avi"
	FormatMKV       Format = "mkv"
	FormatFLV       Format = "flv"
	FormatHLS       Format = "hls"
	FormatDASH      Format = "dash"
	FormatUnknown   Format = "unknown"
)

// Info is the immutable result of a format detection
type Info struct {
	Type        MediaType `json:"type"`
	Format      Format    `json:"format"`
	MimeType    string    `json:"mimeType"`
	Extension   string    `json:"extension"`
	IsStreaming bool      `json:"isStreaming"`
	IsSupported bool      `json:"isSupported"`
}

type classification struct {
	mediaType MediaType
	format    Format
}

var mimeTypeMap = map[string]classification{
	"audio/mpeg":   {MediaAudio, FormatMP3},
	"audio/mp3":    {MediaAudio, FormatMP3},
	"audio/wav":    {MediaAudio, FormatWAV},
	"audio/wave":   {MediaAudio, FormatWAV},
	"audio/x-wav":  {MediaAudio, FormatWAV},
	"audio/ogg":    {MediaAudio, FormatOGG},
	"audio/vorbis": {MediaAudio, FormatOGG},
	"audio/mp4":    {MediaAudio, FormatM4A},
	"audio/x-m4a":  {MediaAudio, FormatM4A},
	"audio/aac":    {MediaAudio, FormatAAC},
	"audio/flac":   {MediaAudio, FormatFLAC},
	"audio/x-flac": {MediaAudio, FormatFLAC},
	"audio/webm":   {MediaAudio, FormatWebMAudio},

	"video/mp4":        {MediaVideo, FormatMP4},
	"video/x-m4v":      {MediaVideo, FormatMP4},
	"video/webm":       {MediaVideo, FormatWebMVideo},
	"video/ogg":        {MediaVideo, FormatOGGVideo},
	"video/quicktime":  {MediaVideo, FormatMOV},
	"video/x-msvideo":  {MediaVideo, FormatAVI},
	"video/x-matroska": {MediaVideo, FormatMKV},
	"video/x-flv":      {MediaVideo, FormatFLV},

	"application/vnd.apple.mpegurl": {MediaVideo, FormatHLS},
	"application/x-mpegurl":         {MediaVideo, FormatHLS},
	"application/dash+xml":          {MediaVideo, FormatDASH},
}

var extensionMap = map[string]classification{
	"mp3":  {MediaAudio, FormatMP3},
	"wav":  {MediaAudio, FormatWAV},
	"ogg":  {MediaAudio, FormatOGG},
	"oga":  {MediaAudio, FormatOGG},
	"m4a":  {MediaAudio, FormatM4A},
	"aac":  {MediaAudio, FormatAAC},
	"flac": {MediaAudio, FormatFLAC},

	"mp4":  {MediaVideo, FormatMP4},
	"m4v":  {MediaVideo, FormatMP4},
	"webm": {MediaVideo, FormatWebMVideo},
	"ogv":  {MediaVideo, FormatOGGVideo},
	"mov":  {MediaVideo, FormatMOV},
	"avi":  {MediaVideo, FormatAVI},
	"mkv":  {MediaVideo, FormatMKV},
	"flv":  {MediaVideo, FormatFLV},

	"m3u8": {MediaVideo, FormatHLS},
	"m3u":  {MediaVideo, FormatHLS},
	"mpd":  {MediaVideo, FormatDASH},
}

var (
	hlsPattern  = regexp.MustCompile(`(?i)\.m3u8(\?|$)`)
	dashPattern = regexp.MustCompile(`(?i)\.mpd(\?|$)`)
)

// Detect classifies a source descriptor. Precedence: streaming-manifest URL
// pattern, then explicit MIME type, then file extension. An explicit MIME
// hint wins over a conflicting extension.
func Detect(source, explicitMIME string, prober CapabilityProber) Info {
	extension := extensionFromSource(source)

	if streaming := detectStreamingFormat(source); streaming != FormatUnknown {
		mime := "application/dash+xml"
		ext := "mpd"
		if streaming == FormatHLS {
			mime = "application/vnd.apple.mpegurl"
			ext = "m3u8"
		}
		return Info{
			Type:        MediaVideo,
			Format:      streaming,
			MimeType:    mime,
			Extension:   ext,
			IsStreaming: true,
			IsSupported: isSupported(streaming, prober),
		}
	}

	if explicitMIME != "" {
		if c, ok := mimeTypeMap[strings.ToLower(explicitMIME)]; ok {
			ext := extension
			if ext == "" {
				ext = extensionFromFormat(c.format)
			}
			return Info{
				Type:        c.mediaType,
				Format:      c.format,
				MimeType:    explicitMIME,
				Extension:   ext,
				IsSupported: isSupported(c.format, prober),
			}
		}
	}

	if extension != "" {
		if c, ok := extensionMap[extension]; ok {
			mime := explicitMIME
			if mime == "" {
				mime = MimeTypeFromFormat(c.format)
			}
			return Info{
				Type:        c.mediaType,
				Format:      c.format,
				MimeType:    mime,
				Extension:   extension,
				IsSupported: isSupported(c.format, prober),
			}
		}
	}

	mime := explicitMIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return Info{
		Type:      MediaUnknown,
		Format:    FormatUnknown,
		MimeType:  mime,
		Extension: extension,
	}
}

func detectStreamingFormat(source string) Format {
	if hlsPattern.MatchString(source) {
		return FormatHLS
	}
	if dashPattern.MatchString(source) {
		return FormatDASH
	}
	return FormatUnknown
}

// extensionFromSource extracts a lowercase extension from a URL path or a
// plain filename. Sources that fail strict URL parsing fall back to a naive
// suffix search with query and fragment stripped.
func extensionFromSource(source string) string {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" {
		path := u.Path
		if dot := strings.LastIndex(path, "."); dot != -1 {
			return strings.ToLower(path[dot+1:])
		}
		return ""
	}

	trimmed := source
	if i := strings.IndexAny(trimmed, "?#"); i != -1 {
		trimmed = trimmed[:i]
	}
	if dot := strings.LastIndex(trimmed, "."); dot != -1 {
		return strings.ToLower(trimmed[dot+1:])
	}
	return ""
}

func extensionFromFormat(f Format) string {
	// Prefer canonical extensions over aliases (oga, m3u, m4v)
	canonical := map[Format]string{
		FormatMP3: "mp3", FormatWAV: "wav", FormatOGG: "ogg",
		FormatM4A: "m4a", FormatAAC: "aac", FormatFLAC: "flac",
		FormatMP4: "mp4", FormatWebMVideo: "webm", FormatOGGVideo: "ogv",
		FormatMOV: "mov", FormatAVI: "avi", FormatMKV: "mkv",
		FormatFLV: "flv", FormatHLS: "m3u8", FormatDASH: "mpd",
		FormatWebMAudio: "webm",
	}
	return canonical[f]
}

// MimeTypeFromFormat returns the canonical MIME type for a format
func MimeTypeFromFormat(f Format) string {
	canonical := map[Format]string{
		FormatMP3: "audio/mpeg", FormatWAV: "audio/wav", FormatOGG: "audio/ogg",
		FormatM4A: "audio/mp4", FormatAAC: "audio/aac", FormatFLAC: "audio/flac",
		FormatWebMAudio: "audio/webm", FormatMP4: "video/mp4",
		FormatWebMVideo: "video/webm", FormatOGGVideo: "video/ogg",
		FormatMOV: "video/quicktime", FormatAVI: "video/x-msvideo",
		FormatMKV: "video/x-matroska", FormatFLV: "video/x-flv",
		FormatHLS: "application/vnd.apple.mpegurl", FormatDASH: "application/dash+xml",
	}
	if mime, ok := canonical[f]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsStreamingFormat reports whether the format is a streaming manifest
func IsStreamingFormat(f Format) bool {
	return f == FormatHLS || f == FormatDASH
}
