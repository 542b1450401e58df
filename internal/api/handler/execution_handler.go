package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"codewars_portal/internal/api/middleware"
	"codewars_portal/internal/common"
	"codewars_portal/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

const maxRequestBodyBytes = 1 << 20

// Executor runs code on the judge for an authenticated caller.
type Executor interface {
	Execute(ctx context.Context, identity model.Identity, req model.ExecutionRequest) (*model.ExecutionResult, error)
}

type ExecutionHandler struct {
	executor Executor
	authn    func(http.Handler) http.Handler
}

func NewExecutionHandler(executor Executor, authn func(http.Handler) http.Handler) *ExecutionHandler {
	return &ExecutionHandler{executor: executor, authn: authn}
}

func (h *ExecutionHandler) RegisterRoutes(r chi.Router) {
	r.With(h.authn).Post("/execute", h.execute)
}

func (h *ExecutionHandler) execute(w http.ResponseWriter, r *http.Request) {
	var req model.ExecutionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.executor.Execute(r.Context(), middleware.GetIdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
