package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/controllers"
)

// DownloadHandler handles completion callbacks from the download daemon
type DownloadHandler struct {
	downloadCtrl *controllers.DownloadController
	logger       *logrus.Logger
}

// NewDownloadHandler creates a new download event handler
func NewDownloadHandler(downloadCtrl *controllers.DownloadController, logger *logrus.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloadCtrl: downloadCtrl,
		logger:       logger,
	}
}

// DownloadEvent is the payload posted by the daemon's execute hook
type DownloadEvent struct {
	Hash      string `json:"hash"`
	Name      string `json:"name"`
	Directory string `json:"directory"`
}

// ServeHTTP handles the download completion endpoint
func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event DownloadEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if event.Hash == "" {
		http.Error(w, "Missing torrent hash", http.StatusBadRequest)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"hash": event.Hash,
		"name": event.Name,
	}).Info("Received download event")

	if err := h.downloadCtrl.RecordDownloadEvent(event.Hash, event.Name, event.Directory); err != nil {
		h.logger.WithError(err).Warn("Download event did not match a job")
		http.Error(w, "No matching job", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
