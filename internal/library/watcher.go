package library

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"cadenza/internal/metadata"
	"cadenza/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher keeps the store in sync with a media directory using fsnotify.
// OnAdd and OnRemove callbacks fire after the store has been updated so the
// caller can mirror the change into a live playlist.
type Watcher struct {
	store     *Store
	extractor *metadata.Extractor
	logger    *logrus.Logger
	watcher   *fsnotify.Watcher

	OnAdd    func(track models.Track)
	OnRemove func(src string)
}

// NewWatcher creates a library watcher; call Start to begin monitoring
func NewWatcher(store *Store, extractor *metadata.Extractor, logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Watcher{
		store:     store,
		extractor: extractor,
		logger:    logger,
	}
}

// Start begins recursive monitoring of the given directory
func (w *Watcher) Start(root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	go w.watchFiles()

	if err := w.addDirectory(root); err != nil {
		return err
	}

	w.logger.WithField("library_path", root).Info("File watcher started")
	return nil
}

// addDirectory recursively walks and adds subdirectories to the watcher
func (w *Watcher) addDirectory(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events
func (w *Watcher) watchFiles() {
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleEvent applies filtering and delegates creation/removal actions
func (w *Watcher) handleEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isMediaFile := w.extractor.IsSupportedFormat(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isMediaFile:
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // ensure file is fully written
			w.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isMediaFile:
		go w.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
			w.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile extracts metadata and inserts the track if unseen
func (w *Watcher) handleNewFile(filePath string) {
	w.logger.WithField("file_path", filePath).Info("New media file detected")

	exists, err := w.store.TrackExists(filePath)
	if err != nil {
		w.logger.WithError(err).WithField("file_path", filePath).Error("Error checking if track exists")
		return
	}
	if exists {
		w.logger.WithField("file_path", filePath).Debug("Track already in library")
		return
	}

	track, err := w.extractor.ExtractFromFile(filePath)
	if err != nil {
		w.logger.WithError(err).WithField("file_path", filePath).Error("Error extracting metadata")
		return
	}

	if err := w.store.UpsertTrack(track); err != nil {
		return
	}

	w.logger.WithFields(logrus.Fields{
		"artist": track.Artist,
		"title":  track.Title,
		"album":  track.Album,
	}).Info("Added new track")

	if w.OnAdd != nil {
		w.OnAdd(track)
	}
}

// handleRemovedFile removes track rows referencing deleted media files
func (w *Watcher) handleRemovedFile(filePath string) {
	w.logger.WithField("file_path", filePath).Info("Media file removed")

	if err := w.store.RemoveTrackBySrc(filePath); err != nil {
		return
	}

	if w.OnRemove != nil {
		w.OnRemove(filePath)
	}
}

// Stop closes the watcher (idempotent)
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}
