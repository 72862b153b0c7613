package models

import "encoding/json"

// JobStatus represents the current lifecycle stage of a job
type JobStatus string

const (
	StatusWaiting     JobStatus = "waiting"
	StatusSearching   JobStatus = "searching"
	StatusAdding      JobStatus = "adding"
	StatusDownloading JobStatus = "downloading"
	StatusPending     JobStatus = "pending"
	StatusConverting  JobStatus = "converting"
	StatusCompleted   JobStatus = "completed"
	StatusUnknown     JobStatus = "unknown"
)

// ParseJobStatus maps a persisted status string to a JobStatus.
// Unrecognized values map to StatusUnknown; parsing never fails.
func ParseJobStatus(value string) JobStatus {
	switch JobStatus(value) {
	case StatusWaiting, StatusSearching, StatusAdding, StatusDownloading,
		StatusPending, StatusConverting, StatusCompleted:
		return JobStatus(value)
	default:
		return StatusUnknown
	}
}

// UnmarshalJSON deserializes a status value, falling back to StatusUnknown
// for values written by newer or corrupted records.
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		*s = StatusUnknown
		return nil
	}
	*s = ParseJobStatus(value)
	return nil
}
