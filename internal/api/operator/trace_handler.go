package operator

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/tracing"
)

type TraceHandler struct {
	recorder *tracing.Recorder
}

func NewTraceHandler(recorder *tracing.Recorder) *TraceHandler {
	return &TraceHandler{recorder: recorder}
}

// Get returns every span recorded under a trace id, ordered by start time,
// reconstructing the causal path of an action's execution.
func (h *TraceHandler) Get(w http.ResponseWriter, r *http.Request) {
	traceID, err := uuid.Parse(chi.URLParam(r, "trace_id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid trace id")
		return
	}

	spans, err := h.recorder.GetTrace(r.Context(), traceID)
	if err != nil {
		response.ServiceError(w, err, "failed to load trace")
		return
	}

	response.JSON(w, http.StatusOK, spans)
}
