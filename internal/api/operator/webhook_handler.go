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

type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// createdWebhook includes the signing secret exactly once, in the creation
// response. List and get never return it.
type createdWebhook struct {
	*domain.WebhookSubscription
	Secret string `json:"secret"`
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterWebhookInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid request body")
		return
	}

	sub, err := h.webhookSvc.Register(r.Context(), req)
	if err != nil {
		response.ServiceError(w, err, "failed to register webhook")
		return
	}

	response.JSON(w, http.StatusCreated, createdWebhook{
		WebhookSubscription: sub,
		Secret:              sub.Secret,
	})
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.webhookSvc.List(r.Context())
	if err != nil {
		response.ServiceError(w, err, "failed to list webhooks")
		return
	}

	response.JSON(w, http.StatusOK, subs)
}

type updateWebhookRequest struct {
	Active *bool `json:"active"`
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid webhook id")
		return
	}

	var req updateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid request body")
		return
	}
	if req.Active == nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "active is required")
		return
	}

	if err := h.webhookSvc.SetActive(r.Context(), id, *req.Active); err != nil {
		response.ServiceError(w, err, "failed to update webhook")
		return
	}

	sub, err := h.webhookSvc.GetByID(r.Context(), id)
	if err != nil {
		response.ServiceError(w, err, "failed to load webhook")
		return
	}

	response.JSON(w, http.StatusOK, sub)
}

func (h *WebhookHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid webhook id")
		return
	}

	page, perPage := response.ParsePagination(r)

	deliveries, total, err := h.webhookSvc.ListDeliveries(r.Context(), id, page, perPage)
	if err != nil {
		response.ServiceError(w, err, "failed to list deliveries")
		return
	}

	response.Paginated(w, http.StatusOK, deliveries, page, perPage, total)
}
