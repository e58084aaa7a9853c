package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadenza/internal/adapter"
	"cadenza/internal/config"
	"cadenza/internal/event"
	"cadenza/internal/library"
	"cadenza/internal/metadata"
	"cadenza/internal/player"
	"cadenza/internal/playlist"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	applyLogging(logger, cfg.Logging)

	if _, err := os.Stat(cfg.Library.Path); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Library.Path).Fatal("Media directory does not exist. Please create it and add your media files.")
	}

	store, err := library.NewStore(cfg.Library.DatabasePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing library store")
	}
	defer store.Close()

	extractor := metadata.NewExtractor(cfg.Library.SupportedFormats, logger)

	if cfg.Library.ScanOnStartup {
		scanner := library.NewScanner(store, extractor, logger)
		if _, err := scanner.Scan(cfg.Library.Path); err != nil {
			logger.WithError(err).Fatal("Error scanning media library")
		}
	}

	tracks, err := store.GetAllTracks()
	if err != nil {
		logger.WithError(err).Fatal("Error loading tracks")
	}
	if len(tracks) == 0 {
		logger.WithField("supported_formats", cfg.Library.SupportedFormats).Warn("No supported media files found in media directory")
	}

	loopMode := models.ParseLoopMode(cfg.Player.LoopMode)
	engineCfg := player.Config{
		Autoplay:           false,
		Volume:             cfg.Player.Volume,
		Muted:              cfg.Player.Muted,
		PlaybackRate:       cfg.Player.PlaybackRate,
		LoopMode:           loopMode,
		TimeUpdateInterval: time.Duration(cfg.Player.TimeUpdateIntervalMs) * time.Millisecond,
		Exclusive:          cfg.Player.ExclusivePlayback,
	}

	factory := adapter.NewFactory(adapter.NewBeepAdapter, adapter.BeepProber{}, logger)
	engine := player.NewEngine(engineCfg, factory, nil, logger)
	defer engine.Destroy()

	seq := playlist.NewSequencer(engine.Events())
	seq.AddMultiple(tracks)
	seq.SetLoopMode(loopMode)
	engine.AttachSequencer(seq)

	if cfg.Library.WatchForChanges {
		watcher := library.NewWatcher(store, extractor, logger)
		watcher.OnAdd = func(track models.Track) {
			seq.Add(track, -1)
		}
		watcher.OnRemove = func(src string) {
			for _, t := range seq.GetAll() {
				if t.Src == src {
					seq.RemoveByID(t.ID)
					break
				}
			}
		}
		if err := watcher.Start(cfg.Library.Path); err != nil {
			logger.WithError(err).Warn("File watcher could not start")
		} else {
			defer watcher.Stop()
		}
	}

	engine.Events().Subscribe(event.TypeTrackChange, func(ev event.Event) {
		if tc, ok := ev.(event.TrackChange); ok {
			logger.WithFields(logrus.Fields{
				"index":  tc.Index,
				"title":  tc.Track.Title,
				"artist": tc.Track.Artist,
			}).Info("Now playing")
		}
	})

	engine.Events().Subscribe(event.TypeLyricChange, func(ev event.Event) {
		if lc, ok := ev.(event.LyricChange); ok {
			logger.WithField("time", lc.Time).Info(lc.Text)
		}
	})

	ctx := context.Background()
	if !seq.IsEmpty() {
		if err := engine.PlayTrackAt(ctx, 0); err != nil {
			logger.WithError(err).Error("Playback failed to start")
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Received shutdown signal")
	engine.Stop()
}

// applyLogging configures level and format from config, keeping defaults on
// invalid values
func applyLogging(logger *logrus.Logger, cfg config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}
