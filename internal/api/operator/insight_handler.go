package operator

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/service"
)

type InsightHandler struct {
	insightSvc *service.InsightService
}

func NewInsightHandler(insightSvc *service.InsightService) *InsightHandler {
	return &InsightHandler{insightSvc: insightSvc}
}

type raiseInsightRequest struct {
	EndpointID      *uuid.UUID `json:"endpoint_id,omitempty"`
	ContainerID     string     `json:"container_id,omitempty"`
	ContainerName   string     `json:"container_name,omitempty"`
	Severity        string     `json:"severity"`
	Category        string     `json:"category"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	SuggestedAction string     `json:"suggested_action,omitempty"`
}

// Raise is the internal production endpoint: other dashboard components that
// detect a condition out-of-process feed it into the pipeline here.
func (h *InsightHandler) Raise(w http.ResponseWriter, r *http.Request) {
	var req raiseInsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid request body")
		return
	}

	insight, err := h.insightSvc.Raise(r.Context(), service.RaiseInsightInput{
		EndpointID:      req.EndpointID,
		ContainerID:     req.ContainerID,
		ContainerName:   req.ContainerName,
		Severity:        domain.Severity(req.Severity),
		Category:        req.Category,
		Title:           req.Title,
		Description:     req.Description,
		SuggestedAction: req.SuggestedAction,
	})
	if err != nil {
		response.ServiceError(w, err, "failed to raise insight")
		return
	}

	response.JSON(w, http.StatusCreated, insight)
}

func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := response.ParsePagination(r)

	filter := domain.InsightFilter{
		Page:    page,
		PerPage: perPage,
	}
	if v := r.URL.Query().Get("severity"); v != "" {
		sev := domain.Severity(v)
		filter.Severity = &sev
	}
	if v := r.URL.Query().Get("category"); v != "" {
		filter.Category = &v
	}
	if v := r.URL.Query().Get("container_id"); v != "" {
		filter.ContainerID = &v
	}
	if v := r.URL.Query().Get("acknowledged"); v != "" {
		ack, err := strconv.ParseBool(v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.KindValidation, "acknowledged must be a boolean")
			return
		}
		filter.Acknowledged = &ack
	}

	insights, total, err := h.insightSvc.List(r.Context(), filter)
	if err != nil {
		response.ServiceError(w, err, "failed to list insights")
		return
	}

	response.Paginated(w, http.StatusOK, insights, page, perPage, total)
}

func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid insight id")
		return
	}

	insight, err := h.insightSvc.GetByID(r.Context(), id)
	if err != nil {
		response.ServiceError(w, err, "failed to load insight")
		return
	}

	response.JSON(w, http.StatusOK, insight)
}

func (h *InsightHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid insight id")
		return
	}

	insight, err := h.insightSvc.Acknowledge(r.Context(), id)
	if err != nil {
		response.ServiceError(w, err, "failed to acknowledge insight")
		return
	}

	response.JSON(w, http.StatusOK, insight)
}
