package controllers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/models"
)

// DownloadController drives jobs through the download stages of the pipeline
type DownloadController struct {
	store  *models.JobStore
	client DownloadClient
	logger *logrus.Logger
}

// NewDownloadController creates a new download controller
func NewDownloadController(store *models.JobStore, client DownloadClient, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		store:  store,
		client: client,
		logger: logger,
	}
}

// AddTorrents submits the magnet link of every adding job to the download
// daemon. A submission failure leaves the job in adding so the next pass can
// retry it.
func (c *DownloadController) AddTorrents(ctx context.Context) error {
	adding, err := c.store.ByStatus(models.StatusAdding)
	if err != nil {
		return err
	}

	for _, job := range adding {
		torrent, err := c.client.AddMagnet(ctx, job.MagnetLink)
		if err != nil {
			c.logger.WithError(err).WithField("job", job.ID).Error("Failed to add torrent")
			continue
		}

		if torrent.Hash != "" {
			job.TorrentHash = torrent.Hash
		}
		job.Name = torrent.Name
		job.DownloadDirectory = torrent.DownloadDirectory
		job.Status = models.StatusDownloading
		if err := c.store.Save(job); err != nil {
			return err
		}

		c.logger.WithFields(logrus.Fields{
			"job":  job.ID,
			"name": job.Name,
		}).Info("Torrent added")
	}

	return nil
}

// QueryStatus polls the download daemon for every downloading job and moves
// finished downloads to pending, capturing the final torrent name and
// location
func (c *DownloadController) QueryStatus(ctx context.Context) error {
	downloading, err := c.store.ByStatus(models.StatusDownloading)
	if err != nil {
		return err
	}

	for _, job := range downloading {
		torrent, err := c.client.TorrentStatus(ctx, job.TorrentHash)
		if err != nil {
			c.logger.WithError(err).WithField("job", job.ID).Error("Failed to query torrent status")
			continue
		}
		if !torrent.IsFinished {
			continue
		}

		job.Name = torrent.Name
		if torrent.DownloadDirectory != "" {
			job.DownloadDirectory = torrent.DownloadDirectory
		}
		job.Status = models.StatusPending
		if err := c.store.Save(job); err != nil {
			return err
		}

		c.logger.WithFields(logrus.Fields{
			"job":  job.ID,
			"name": job.Name,
		}).Info("Download finished")
	}

	return nil
}

// RecordDownloadEvent handles an out-of-band progress report from the
// download daemon, advancing the matching job the same way polling would.
// Jobs are matched by torrent hash; adding jobs that never captured a hash
// fall back to a title match.
func (c *DownloadController) RecordDownloadEvent(hash, name, directory string) error {
	jobs, err := c.store.LoadAll()
	if err != nil {
		return err
	}

	var matched *models.Job
	for _, job := range jobs {
		if job.TorrentHash != "" && strings.EqualFold(job.TorrentHash, hash) {
			matched = job
			break
		}
	}
	if matched == nil {
		for _, job := range jobs {
			if job.Status == models.StatusAdding && job.Title == name {
				matched = job
				break
			}
		}
	}
	if matched == nil {
		return fmt.Errorf("no job tracks torrent %s", hash)
	}

	switch matched.Status {
	case models.StatusAdding:
		matched.TorrentHash = hash
		matched.Name = name
		matched.DownloadDirectory = directory
		matched.Status = models.StatusDownloading
	case models.StatusDownloading:
		matched.Name = name
		if directory != "" {
			matched.DownloadDirectory = directory
		}
		if matched.IsDownloadOnly {
			matched.Status = models.StatusCompleted
		} else {
			matched.Status = models.StatusPending
		}
	default:
		c.logger.WithFields(logrus.Fields{
			"job":    matched.ID,
			"status": matched.Status,
		}).Debug("Ignoring download event for settled job")
		return nil
	}

	return c.store.Save(matched)
}
