package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/models"
)

// StatusHandler handles status requests
type StatusHandler struct {
	store  *models.JobStore
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(store *models.JobStore, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		store:  store,
		logger: logger,
	}
}

// JobSummary is the per-job view returned by the status endpoint
type JobSummary struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Keyword     string `json:"keyword"`
	Description string `json:"description"`
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalJobs   int            `json:"total_jobs"`
	JobsByState map[string]int `json:"jobs_by_state"`
	Jobs        []JobSummary   `json:"jobs"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobs, err := h.store.LoadAll()
	if err != nil {
		h.logger.WithError(err).Error("Failed to load jobs")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalJobs:   len(jobs),
		JobsByState: make(map[string]int),
		Jobs:        make([]JobSummary, 0, len(jobs)),
	}

	for _, job := range jobs {
		response.JobsByState[string(job.Status)]++
		response.Jobs = append(response.Jobs, JobSummary{
			ID:          job.ID,
			Status:      string(job.Status),
			Keyword:     job.Keyword,
			Description: job.Description(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
