package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"codewars_portal/internal/api/middleware"
	"codewars_portal/internal/app/service"
	"codewars_portal/internal/common"
	"codewars_portal/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// Recorder persists a submission for an authenticated caller.
type Recorder interface {
	Record(ctx context.Context, identity model.Identity, req service.RecordSubmissionRequest) (*model.SubmissionRecord, error)
}

type SubmissionHandler struct {
	recorder Recorder
	authn    func(http.Handler) http.Handler
}

func NewSubmissionHandler(recorder Recorder, authn func(http.Handler) http.Handler) *SubmissionHandler {
	return &SubmissionHandler{recorder: recorder, authn: authn}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.With(h.authn).Post("/submit", h.submit)
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req service.RecordSubmissionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if _, err := h.recorder.Record(r.Context(), middleware.GetIdentityFromContext(r.Context()), req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{Success: true})
}
