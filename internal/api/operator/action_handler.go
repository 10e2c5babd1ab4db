package operator

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/service"
)

type ActionHandler struct {
	actionSvc *service.ActionService
}

func NewActionHandler(actionSvc *service.ActionService) *ActionHandler {
	return &ActionHandler{actionSvc: actionSvc}
}

type suggestActionRequest struct {
	InsightID uuid.UUID `json:"insight_id"`
}

// Suggest is the internal endpoint for proposing a remediation from an
// already-raised insight. The in-process path goes through the capability
// registry instead.
func (h *ActionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid request body")
		return
	}
	if req.InsightID == uuid.Nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "insight_id is required")
		return
	}

	action, err := h.actionSvc.SuggestForInsight(r.Context(), req.InsightID)
	if err != nil {
		response.ServiceError(w, err, "failed to suggest action")
		return
	}

	response.JSON(w, http.StatusCreated, action)
}

type approveActionRequest struct {
	ApprovedBy string `json:"approved_by"`
}

// Approve drives the full approval chain: the response carries the action in
// its terminal state (completed or failed), not the intermediate approved one.
func (h *ActionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid action id")
		return
	}

	var req approveActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid request body")
		return
	}

	action, err := h.actionSvc.Approve(r.Context(), id, req.ApprovedBy)
	if err != nil {
		response.ServiceError(w, err, "failed to approve action")
		return
	}

	response.JSON(w, http.StatusOK, action)
}

type rejectActionRequest struct {
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason,omitempty"`
}

func (h *ActionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid action id")
		return
	}

	var req rejectActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid request body")
		return
	}

	action, err := h.actionSvc.Reject(r.Context(), id, req.RejectedBy, req.Reason)
	if err != nil {
		response.ServiceError(w, err, "failed to reject action")
		return
	}

	response.JSON(w, http.StatusOK, action)
}

func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := response.ParsePagination(r)

	filter := domain.ActionFilter{
		Page:    page,
		PerPage: perPage,
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.ActionStatus(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("container_id"); v != "" {
		filter.ContainerID = &v
	}

	actions, total, err := h.actionSvc.List(r.Context(), filter)
	if err != nil {
		response.ServiceError(w, err, "failed to list actions")
		return
	}

	response.Paginated(w, http.StatusOK, actions, page, perPage, total)
}

func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid action id")
		return
	}

	action, err := h.actionSvc.GetByID(r.Context(), id)
	if err != nil {
		response.ServiceError(w, err, "failed to load action")
		return
	}

	response.JSON(w, http.StatusOK, action)
}
