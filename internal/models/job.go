package models

import (
	"fmt"

	"github.com/google/uuid"
)

// DateLayout is the day-granularity format used for the job creation date
const DateLayout = "2006-01-02"

// Job represents one unit of work tracking a single episode from search
// through filed output
type Job struct {
	ID                string    `json:"id"`
	Status            JobStatus `json:"status"`
	Keyword           string    `json:"keyword"`
	Query             string    `json:"query"`
	Added             string    `json:"added"`
	Title             string    `json:"title,omitempty"`
	MagnetLink        string    `json:"magnet_link,omitempty"`
	TorrentHash       string    `json:"torrent_hash,omitempty"`
	DownloadDirectory string    `json:"download_directory,omitempty"`
	Name              string    `json:"name,omitempty"`
	ConvertedFileName string    `json:"converted_file_name,omitempty"`
	IsDownloadOnly    bool      `json:"download_only"`
}

// Clone creates a copy of this job with a new ID. Used when a single search
// yields multiple usable results and each needs an independent job.
func (j *Job) Clone() *Job {
	clone := *j
	clone.ID = uuid.NewString()
	return &clone
}

// Description returns a textual status description of this job
func (j *Job) Description() string {
	switch j.Status {
	case StatusWaiting:
		return fmt.Sprintf("Waiting to search for '%s'", j.Query)
	case StatusSearching:
		return fmt.Sprintf("Searching using search term '%s'", j.Query)
	case StatusAdding:
		return fmt.Sprintf("Adding download for '%s'", j.Title)
	case StatusDownloading:
		return fmt.Sprintf("Downloading '%s'", j.Name)
	case StatusPending:
		return fmt.Sprintf("Pending conversion of finished download '%s'", j.Name)
	case StatusConverting:
		return fmt.Sprintf("Converting '%s' to '%s'", j.Name, j.ConvertedFileName)
	case StatusCompleted:
		if j.IsDownloadOnly {
			return fmt.Sprintf("Completed download of '%s'", j.Name)
		}
		return fmt.Sprintf("Completed conversion to '%s'", j.ConvertedFileName)
	default:
		return fmt.Sprintf("Unknown status - '%s'", j.Query)
	}
}
