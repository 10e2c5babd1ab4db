package response

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/drydock-dev/drydock/internal/domain"
)

// Stable error kinds surfaced to API consumers. Internal detail never
// crosses this boundary.
const (
	KindValidation         = "validation"
	KindInvalidState       = "invalid_state"
	KindNotFound           = "not_found"
	KindConflict           = "conflict"
	KindUnauthorized       = "unauthorized"
	KindForbidden          = "forbidden"
	KindFatalConfiguration = "fatal_configuration"
	KindRateLimited        = "rate_limited"
	KindInternal           = "internal"
)

type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, status int, kind, msg string) {
	JSON(w, status, map[string]string{"error": msg, "kind": kind})
}

// ServiceError translates a service layer error into its wire status and
// kind. The domain sentinels carry operator-phrased messages; anything
// unrecognized is an internal error and only the fallback message is shown.
func ServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		Error(w, http.StatusBadRequest, KindValidation, err.Error())
	case errors.Is(err, domain.ErrUnsafeURL):
		Error(w, http.StatusBadRequest, KindFatalConfiguration, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		Error(w, http.StatusConflict, KindInvalidState, err.Error())
	case errors.Is(err, domain.ErrConflict):
		Error(w, http.StatusConflict, KindConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, KindNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, KindUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		Error(w, http.StatusForbidden, KindForbidden, err.Error())
	case errors.Is(err, domain.ErrConfiguration):
		Error(w, http.StatusInternalServerError, KindFatalConfiguration, err.Error())
	default:
		Error(w, http.StatusInternalServerError, KindInternal, fallback)
	}
}

func Paginated(w http.ResponseWriter, status int, data interface{}, page, perPage, total int) {
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	JSON(w, status, PaginatedResponse{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

func ParsePagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return
}

// ParseLimitOffset reads the limit/offset style used by the audit endpoint.
func ParseLimitOffset(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return
}
