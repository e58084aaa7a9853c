package adapter

import (
	"sync"

	"cadenza/internal/format"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// Selection reports how the factory chose an adapter
type Selection int

const (
	// SelectionExact means a registered adapter matched the resolved format
	SelectionExact Selection = iota
	// SelectionFallback means the default adapter was used best-effort;
	// playback may still fail
	SelectionFallback
)

// Constructor builds a fresh adapter instance
type Constructor func(mediaType format.MediaType, logger *logrus.Logger) Adapter

// Factory selects an adapter for a source. Streaming formats with a
// registered specialized constructor get it; everything else falls back to
// the default constructor rather than being rejected up front.
type Factory struct {
	mutex     sync.Mutex
	streaming map[format.Format]Constructor
	fallback  Constructor
	prober    format.CapabilityProber
	logger    *logrus.Logger
}

// NewFactory creates a factory with the given default constructor
func NewFactory(fallback Constructor, prober format.CapabilityProber, logger *logrus.Logger) *Factory {
	return &Factory{
		streaming: make(map[format.Format]Constructor),
		fallback:  fallback,
		prober:    prober,
		logger:    logger,
	}
}

// RegisterStreaming registers a specialized constructor for a streaming
// format (hls, dash)
func (f *Factory) RegisterStreaming(fmt format.Format, ctor Constructor) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.streaming[fmt] = ctor
}

// HasStreaming reports whether a specialized constructor is registered for
// a streaming format
func (f *Factory) HasStreaming(fmt format.Format) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	_, ok := f.streaming[fmt]
	return ok
}

// Detect resolves the format of a source
func (f *Factory) Detect(source, explicitMIME string) format.Info {
	return format.Detect(source, explicitMIME, f.prober)
}

// Create resolves the source format and builds an adapter for it. The
// returned Selection distinguishes a confident match from a best-effort
// fallback.
func (f *Factory) Create(source string, mediaType format.MediaType) (Adapter, Selection, error) {
	info := f.Detect(source, "")

	if mediaType == "" || mediaType == format.MediaUnknown {
		mediaType = info.Type
		if mediaType == format.MediaUnknown {
			mediaType = format.MediaAudio
		}
	}

	f.mutex.Lock()
	ctor, ok := f.streaming[info.Format]
	fallback := f.fallback
	f.mutex.Unlock()

	if info.IsStreaming && ok {
		return ctor(mediaType, f.logger), SelectionExact, nil
	}

	if fallback == nil {
		return nil, SelectionFallback, models.NewPlayerError(models.ErrNotSupported,
			"no adapter registered for format "+string(info.Format), nil)
	}

	if info.Format == format.FormatUnknown {
		if f.logger != nil {
			f.logger.WithField("source", source).Warn("Unknown media format, trying default adapter")
		}
		return fallback(mediaType, f.logger), SelectionFallback, nil
	}

	selection := SelectionExact
	if info.IsStreaming {
		// Streaming manifest without a specialized adapter: attempted
		// best-effort through the default backend
		selection = SelectionFallback
		if f.logger != nil {
			f.logger.WithFields(logrus.Fields{
				"source": source,
				"format": string(info.Format),
			}).Warn("No streaming adapter registered, falling back to default adapter")
		}
	}
	return fallback(mediaType, f.logger), selection, nil
}
