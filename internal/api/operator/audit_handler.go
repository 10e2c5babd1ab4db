package operator

import (
	"net/http"

	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/domain"
	"github.com/drydock-dev/drydock/internal/service"
)

type AuditHandler struct {
	auditSvc *service.AuditService
}

func NewAuditHandler(auditSvc *service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

type auditListResponse struct {
	Data   []*domain.AuditEntry `json:"data"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// List returns audit entries newest-first, filtered by action, user and
// target type with limit/offset pagination.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := response.ParseLimitOffset(r)

	filter := domain.AuditFilter{
		Limit:  limit,
		Offset: offset,
	}
	if v := r.URL.Query().Get("action"); v != "" {
		filter.Action = &v
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := r.URL.Query().Get("target_type"); v != "" {
		filter.TargetType = &v
	}

	entries, total, err := h.auditSvc.List(r.Context(), filter)
	if err != nil {
		response.ServiceError(w, err, "failed to list audit log")
		return
	}
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}

	response.JSON(w, http.StatusOK, auditListResponse{
		Data:   entries,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
