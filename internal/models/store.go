package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// JobStore is a durable mapping from job ID to job, backed by one JSON file
// per job inside a single directory. Individual files are written atomically
// (write-then-rename), which is the only durability mechanism the pipeline
// needs: no operation ever touches two jobs at once.
type JobStore struct {
	dir    string
	logger *logrus.Logger
}

// NewJobStore creates a job store rooted at the given directory
func NewJobStore(dir string, logger *logrus.Logger) *JobStore {
	return &JobStore{
		dir:    dir,
		logger: logger,
	}
}

// Directory returns the store directory path
func (s *JobStore) Directory() string {
	return s.dir
}

// Create allocates a new job for the keyword and query, persists it with
// status waiting, and returns it
func (s *JobStore) Create(keyword, query string) (*Job, error) {
	job := &Job{
		ID:      uuid.NewString(),
		Status:  StatusWaiting,
		Keyword: keyword,
		Query:   query,
		Added:   time.Now().Format(DateLayout),
	}

	if err := s.Save(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

// LoadAll reads every job record in the store directory. Records that fail
// to parse are skipped with a warning so that one corrupt file never blocks
// a whole cycle.
func (s *JobStore) LoadAll() ([]*Job, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read job directory: %w", err)
	}

	var jobs []*Job
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) == ".tmp" {
			continue
		}

		job, err := s.loadFile(entry.Name())
		if err != nil {
			s.logger.WithError(err).WithField("file", entry.Name()).Warn("Skipping unreadable job record")
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// GetByID retrieves a job by its ID; returns nil if no such job exists
func (s *JobStore) GetByID(id string) (*Job, error) {
	job, err := s.loadFile(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// ByStatus returns all jobs with the given status. Order follows the
// directory listing and is not guaranteed across cycles.
func (s *JobStore) ByStatus(status JobStatus) ([]*Job, error) {
	jobs, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	var matched []*Job
	for _, job := range jobs {
		if job.Status == status {
			matched = append(matched, job)
		}
	}

	return matched, nil
}

// Exists reports whether a non-completed job already holds the given keyword
// and query pair. This is the dedup check that makes repeated discovery runs
// idempotent.
func (s *JobStore) Exists(keyword, query string) (bool, error) {
	jobs, err := s.LoadAll()
	if err != nil {
		return false, err
	}

	for _, job := range jobs {
		if job.Status == StatusCompleted {
			continue
		}
		if job.Keyword == keyword && job.Query == query {
			return true, nil
		}
	}

	return false, nil
}

// Save persists a job record. The record is written to a temporary file and
// renamed into place so a crash mid-write never leaves a half-written job.
func (s *JobStore) Save(job *Job) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize job %s: %w", job.ID, err)
	}

	tempPath := filepath.Join(s.dir, job.ID+".tmp")
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}

	if err := os.Rename(tempPath, filepath.Join(s.dir, job.ID)); err != nil {
		return fmt.Errorf("failed to commit job %s: %w", job.ID, err)
	}

	return nil
}

// Delete removes a job record. Deleting an already-absent record is not an
// error.
func (s *JobStore) Delete(job *Job) error {
	err := os.Remove(filepath.Join(s.dir, job.ID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete job %s: %w", job.ID, err)
	}
	return nil
}

func (s *JobStore) loadFile(name string) (*Job, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job record: %w", err)
	}
	if job.ID == "" {
		job.ID = name
	}
	if job.Status == "" {
		job.Status = StatusUnknown
	}

	return &job, nil
}
