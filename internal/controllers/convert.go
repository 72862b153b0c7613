package controllers

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/models"
	"github.com/infieldfly/infieldfly/internal/services/notify"
)

var episodeFilePattern = regexp.MustCompile(`(?i)^(.*)s([0-9]+)e([0-9]+)(.*)\.(mkv|mp4)$`)

// ConversionController drives finished downloads through conversion and
// final placement
type ConversionController struct {
	store      *models.JobStore
	converter  MediaConverter
	notifier   notify.Notifier
	stagingDir string
	finalDir   string
	logger     *logrus.Logger
}

// NewConversionController creates a new conversion controller
func NewConversionController(store *models.JobStore, converter MediaConverter, notifier notify.Notifier, stagingDir, finalDir string, logger *logrus.Logger) *ConversionController {
	return &ConversionController{
		store:      store,
		converter:  converter,
		notifier:   notifier,
		stagingDir: stagingDir,
		finalDir:   finalDir,
		logger:     logger,
	}
}

// PerformConversions runs one pass of the conversion stage. Every pending
// job is first marked converting and persisted, then processed; a crash
// between the two steps leaves converting jobs behind, which the next pass
// picks up again.
func (c *ConversionController) PerformConversions(ctx context.Context) error {
	pending, err := c.store.ByStatus(models.StatusPending)
	if err != nil {
		return err
	}
	for _, job := range pending {
		job.Status = models.StatusConverting
		if err := c.store.Save(job); err != nil {
			return err
		}
	}

	converting, err := c.store.ByStatus(models.StatusConverting)
	if err != nil {
		return err
	}

	for _, job := range converting {
		if err := c.processJob(ctx, job); err != nil {
			c.logger.WithError(err).WithField("job", job.ID).Error("Conversion failed")
		}
	}

	return nil
}

func (c *ConversionController) processJob(ctx context.Context, job *models.Job) error {
	source := filepath.Join(job.DownloadDirectory, job.Name)

	if job.IsDownloadOnly {
		dest := filepath.Join(c.finalDir, job.Name)
		c.logger.WithFields(logrus.Fields{
			"job":  job.ID,
			"dest": dest,
		}).Info("Copying finished download")
		if err := copyTree(source, dest); err != nil {
			return err
		}
		return c.completeJob(job, job.Name)
	}

	episodeFiles, err := findEpisodeFiles(source)
	if err != nil {
		return err
	}

	outputName := job.ConvertedFileName + ".mp4"
	staged := filepath.Join(c.stagingDir, outputName)
	if err := os.MkdirAll(c.stagingDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(c.finalDir, 0755); err != nil {
		return err
	}

	for _, episodeFile := range episodeFiles {
		if err := c.converter.Convert(ctx, episodeFile, staged); err != nil {
			return err
		}

		if err := moveFile(staged, filepath.Join(c.finalDir, outputName)); err != nil {
			return err
		}
		if sidecar := forcedSubtitlePath(staged); fileExists(sidecar) {
			if err := moveFile(sidecar, filepath.Join(c.finalDir, filepath.Base(sidecar))); err != nil {
				c.logger.WithError(err).Warn("Failed to move forced subtitle sidecar")
			}
		}
	}

	return c.completeJob(job, outputName)
}

// completeJob marks the job completed, sends the notification, and removes
// the record immediately when the job is already older than a day
func (c *ConversionController) completeJob(job *models.Job, outputName string) error {
	job.Status = models.StatusCompleted
	if err := c.store.Save(job); err != nil {
		return err
	}

	if err := c.notifier.NotifyDownload(outputName); err != nil {
		c.logger.WithError(err).Warn("Notification failed")
	}

	c.logger.WithFields(logrus.Fields{
		"job":  job.ID,
		"name": outputName,
	}).Info("Job completed")

	if job.Added != time.Now().Format(models.DateLayout) {
		return c.store.Delete(job)
	}
	return nil
}

// findEpisodeFiles locates the media files to convert. The download may be
// a single file or a directory; inside a directory every episode-named file
// is returned in lexical order.
func findEpisodeFiles(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !episodeFilePattern.MatchString(filepath.Base(source)) {
			return nil, &fs.PathError{Op: "convert", Path: source, Err: fs.ErrNotExist}
		}
		return []string{source}, nil
	}

	var matches []string
	err = filepath.WalkDir(source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && episodeFilePattern.MatchString(entry.Name()) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, &fs.PathError{Op: "convert", Path: source, Err: fs.ErrNotExist}
	}

	sort.Strings(matches)
	return matches, nil
}

// copyTree copies a file or directory tree into dest
func copyTree(source, dest string) error {
	info, err := os.Stat(source)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		return copyFile(source, dest)
	}

	return filepath.WalkDir(source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// moveFile renames the file, falling back to copy-and-delete when source and
// destination live on different filesystems
func moveFile(source, dest string) error {
	if err := os.Rename(source, dest); err == nil {
		return nil
	}
	if err := copyFile(source, dest); err != nil {
		return err
	}
	return os.Remove(source)
}

func forcedSubtitlePath(converted string) string {
	base := converted[:len(converted)-len(filepath.Ext(converted))]
	return base + ".eng.forced.srt"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
