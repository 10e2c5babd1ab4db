package operator

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/capability"
	"github.com/drydock-dev/drydock/internal/domain"
)

// ScanHandler triggers on-demand vulnerability scans. It goes through the
// capability registry, so it works against whatever scanner the security
// domain registered — or degrades to empty findings when none exists.
type ScanHandler struct {
	capabilities *capability.Registry
}

func NewScanHandler(capabilities *capability.Registry) *ScanHandler {
	return &ScanHandler{capabilities: capabilities}
}

type scanResponse struct {
	ContainerID string           `json:"container_id"`
	Findings    []domain.Finding `json:"findings"`
	ScannedAt   time.Time        `json:"scanned_at"`
}

func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	containerID := chi.URLParam(r, "id")
	if containerID == "" {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "container id is required")
		return
	}

	findings, err := h.capabilities.ScanContainer(r.Context(), containerID)
	if err != nil {
		response.ServiceError(w, err, "scan failed")
		return
	}
	if findings == nil {
		findings = []domain.Finding{}
	}

	response.JSON(w, http.StatusOK, scanResponse{
		ContainerID: containerID,
		Findings:    findings,
		ScannedAt:   time.Now().UTC(),
	})
}
