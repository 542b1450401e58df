package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"codewars_portal/internal/api/middleware"
	"codewars_portal/internal/app/service"
	"codewars_portal/internal/common"
	"codewars_portal/internal/common/security"
	"codewars_portal/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SessionManager interface {
	Login(ctx context.Context, req service.LoginRequest) (*service.AuthResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type AuthHandler struct {
	sessions SessionManager
	authn    func(http.Handler) http.Handler
}

func NewAuthHandler(sessions SessionManager, authn func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{sessions: sessions, authn: authn}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth", h.login)
	r.With(h.authn).Post("/logout", h.logout)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	resp, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		if common.HTTPStatusFromError(err) == http.StatusUnauthorized {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid team code or email")
			return
		}
		logger.Warn(r.Context(), "login failed", zap.Error(err))
		common.RespondWithDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     security.SessionCookieName,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	tokenID, _ := middleware.GetTokenIDFromContext(r.Context())
	expiresAt, _ := middleware.GetTokenExpiryFromContext(r.Context())
	if err := h.sessions.Logout(r.Context(), tokenID, expiresAt); err != nil {
		logger.Error(r.Context(), "logout failed", zap.Error(err))
		common.RespondWithDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     security.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{Success: true})
}
