package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/config"
	"github.com/infieldfly/infieldfly/internal/controllers"
	"github.com/infieldfly/infieldfly/internal/models"
	"github.com/infieldfly/infieldfly/internal/services/deluge"
	"github.com/infieldfly/infieldfly/internal/services/episodedb"
	"github.com/infieldfly/infieldfly/internal/services/ffmpeg"
	"github.com/infieldfly/infieldfly/internal/services/notify"
	"github.com/infieldfly/infieldfly/internal/services/torrentapi"
	"github.com/infieldfly/infieldfly/internal/services/tvdb"
	"github.com/infieldfly/infieldfly/internal/utils"
)

// app wires the configuration, services, and controllers behind every
// command
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	store    *models.JobStore
	episodes *episodedb.Database

	searchClient *torrentapi.Client
	delugeClient *deluge.Client
	converter    *ffmpeg.Converter
	notifier     notify.Notifier

	downloadCtrl *controllers.DownloadController
	engine       *controllers.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFile)

	store := models.NewJobStore(cfg.JobDirectory, logger)

	tvdbClient, err := tvdb.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TVDB client: %w", err)
	}

	episodes, err := episodedb.Open(cfg.DatabaseFile, tvdbClient, cfg.TrackedSeries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open episode database: %w", err)
	}

	delugeClient, err := deluge.NewClient(cfg, logger)
	if err != nil {
		episodes.Close()
		return nil, fmt.Errorf("failed to initialize Deluge client: %w", err)
	}

	a := &app{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		episodes:     episodes,
		searchClient: torrentapi.NewClient(logger),
		delugeClient: delugeClient,
		converter:    ffmpeg.NewConverter(cfg.FFmpegLocation, logger),
		notifier:     notify.NewNotifier(cfg, logger),
	}

	searchCtrl := controllers.NewSearchController(store, episodes, a.searchClient,
		cfg.StringSubstitutions, cfg.SearchRetryCount, logger)
	a.downloadCtrl = controllers.NewDownloadController(store, delugeClient, logger)
	convertCtrl := controllers.NewConversionController(store, a.converter, a.notifier,
		cfg.StagingDirectory, cfg.FinalDirectory, logger)
	a.engine = controllers.NewEngine(searchCtrl, a.downloadCtrl, convertCtrl, logger)

	return a, nil
}

func (a *app) close() {
	if err := a.episodes.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close episode database")
	}
}
