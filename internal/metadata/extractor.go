// Package metadata builds playable tracks from local media files: tags via
// dhowden/tag, duration by format-specific probing, lyrics from an .lrc
// sidecar file.
package metadata

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cadenza/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Extractor builds tracks from audio files
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewExtractor creates a metadata extractor for the given extensions
// (".mp3", ".flac", ...)
func NewExtractor(supportedFormats []string, logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	}
	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// IsSupportedFormat checks if a file extension is handled
func (e *Extractor) IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ExtractFromFile builds a Track from an audio file. Tag failures degrade to
// filename-derived metadata instead of failing the whole extraction.
func (e *Extractor) ExtractFromFile(filePath string) (models.Track, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Error("Failed to open audio file")
		return models.Track{}, err
	}
	defer file.Close()

	duration, err := e.calculateDuration(filePath)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("Failed to calculate duration, setting to 0")
		duration = 0
	}

	track := models.Track{
		ID:       trackID(filePath),
		Src:      filePath,
		Duration: duration,
		Lyrics:   e.readLyricsSidecar(filePath),
	}

	meta, err := tag.ReadFrom(file)
	if err != nil {
		name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("Failed to extract metadata, using filename")

		track.Title = name
		track.Artist = "Unknown Artist"
		track.Album = "Unknown Album"
		return track, nil
	}

	track.Title = meta.Title()
	if track.Title == "" {
		track.Title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	track.Artist = meta.Artist()
	if track.Artist == "" {
		track.Artist = "Unknown Artist"
	}
	track.Album = meta.Album()
	if track.Album == "" {
		track.Album = "Unknown Album"
	}

	e.logger.WithFields(logrus.Fields{
		"filePath":       filePath,
		"title":          track.Title,
		"artist":         track.Artist,
		"duration":       duration,
		"processingTime": time.Since(startTime),
	}).Debug("Successfully extracted metadata")

	return track, nil
}

// readLyricsSidecar loads LRC text from a sibling .lrc file, if present
func (e *Extractor) readLyricsSidecar(filePath string) string {
	lrcPath := strings.TrimSuffix(filePath, filepath.Ext(filePath)) + ".lrc"
	data, err := os.ReadFile(lrcPath)
	if err != nil {
		return ""
	}
	return string(data)
}

// calculateDuration probes the duration of an audio file in seconds
func (e *Extractor) calculateDuration(filePath string) (float64, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return e.durationMP3(filePath)
	case ".flac":
		return e.durationFLAC(filePath)
	case ".wav":
		return e.durationWAV(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", filepath.Ext(filePath))
	}
}

// MP3 duration by frame walking; falls back to a bitrate estimate when no
// frame decodes at all
func (e *Extractor) durationMP3(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return e.estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	return total.Seconds(), nil
}

// FLAC duration via the STREAMINFO metadata block
func (e *Extractor) durationFLAC(path string) (float64, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		return float64(si.NSamples) / float64(si.SampleRate), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// WAV duration from the header plus file size
func (e *Extractor) durationWAV(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerSampleFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerSampleFrame <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	sampleFrames := pcmBytes / bytesPerSampleFrame
	return float64(sampleFrames) / float64(dec.SampleRate), nil
}

// estimateFromFileSize approximates duration from file size and an assumed
// bitrate in bits per second
func (e *Extractor) estimateFromFileSize(path string, bitrate int64) (float64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return float64(st.Size()*8) / float64(bitrate), nil
}

// trackID derives a stable id from the file path
func trackID(path string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(path)))
}
