package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// CycleOptions selects which stages a cycle runs and which airdate the
// discovery stage searches for
type CycleOptions struct {
	SkipSearch  bool
	SkipAdd     bool
	SkipPoll    bool
	SkipConvert bool

	// ReferenceDate is the airdate used for episode discovery. The zero
	// value means today.
	ReferenceDate time.Time
}

// Engine runs the pipeline stages in order. Each invocation is one linear
// pass: a job advances at most one stage per cycle, except where a stage
// hands directly into the next.
type Engine struct {
	search   *SearchController
	download *DownloadController
	convert  *ConversionController
	logger   *logrus.Logger
}

// NewEngine creates an engine from the stage controllers
func NewEngine(search *SearchController, download *DownloadController, convert *ConversionController, logger *logrus.Logger) *Engine {
	return &Engine{
		search:   search,
		download: download,
		convert:  convert,
		logger:   logger,
	}
}

// RunCycle runs one pass of the pipeline. A failing stage does not stop the
// later stages; all stage errors are joined into the returned error.
func (e *Engine) RunCycle(ctx context.Context, opts CycleOptions) error {
	airdate := opts.ReferenceDate
	if airdate.IsZero() {
		airdate = time.Now()
	}

	e.logger.WithField("airdate", airdate.Format("2006-01-02")).Info("Starting pipeline cycle")

	var errs []error
	if !opts.SkipSearch {
		if err := e.search.PerformSearches(ctx, airdate); err != nil {
			e.logger.WithError(err).Error("Search stage failed")
			errs = append(errs, err)
		}
	}
	if !opts.SkipAdd {
		if err := e.download.AddTorrents(ctx); err != nil {
			e.logger.WithError(err).Error("Add stage failed")
			errs = append(errs, err)
		}
	}
	if !opts.SkipPoll {
		if err := e.download.QueryStatus(ctx); err != nil {
			e.logger.WithError(err).Error("Poll stage failed")
			errs = append(errs, err)
		}
	}
	if !opts.SkipConvert {
		if err := e.convert.PerformConversions(ctx); err != nil {
			e.logger.WithError(err).Error("Conversion stage failed")
			errs = append(errs, err)
		}
	}

	e.logger.Info("Pipeline cycle finished")
	return errors.Join(errs...)
}
