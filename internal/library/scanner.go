package library

import (
	"os"
	"path/filepath"
	"time"

	"cadenza/internal/metadata"

	"github.com/sirupsen/logrus"
)

// Scanner walks a media directory and ingests every supported file into
// the store
type Scanner struct {
	store     *Store
	extractor *metadata.Extractor
	logger    *logrus.Logger
}

// NewScanner creates a library scanner
func NewScanner(store *Store, extractor *metadata.Extractor, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{
		store:     store,
		extractor: extractor,
		logger:    logger,
	}
}

// Scan walks the directory tree and upserts every supported media file.
// Returns the number of tracks ingested.
func (s *Scanner) Scan(root string) (int, error) {
	startTime := time.Now()
	count := 0

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable path")
			return nil
		}
		if info.IsDir() || !s.extractor.IsSupportedFormat(path) {
			return nil
		}

		track, err := s.extractor.ExtractFromFile(path)
		if err != nil {
			s.logger.WithError(err).WithField("file_path", path).Error("Failed to extract metadata")
			return nil
		}
		if err := s.store.UpsertTrack(track); err != nil {
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	s.logger.WithFields(logrus.Fields{
		"library_path": root,
		"tracks":       count,
		"duration":     time.Since(startTime),
	}).Info("Library scan complete")
	return count, nil
}
