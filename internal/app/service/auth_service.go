package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codewars_portal/internal/common"
	"codewars_portal/internal/common/security"
	"codewars_portal/internal/domain/model"
	"codewars_portal/internal/domain/repository"
	"codewars_portal/internal/platform/logger"

	"go.uber.org/zap"
)

type AuthService struct {
	teamRepo    repository.TeamRepository
	sessionRepo repository.SessionRepository
}

func NewAuthService(teamRepo repository.TeamRepository, sessionRepo repository.SessionRepository) *AuthService {
	return &AuthService{teamRepo: teamRepo, sessionRepo: sessionRepo}
}

type LoginRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	TeamCode  string    `json:"team_code"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login accepts a team code plus the email of one of the team's participants.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	code := strings.TrimSpace(req.Code)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if code == "" || email == "" {
		return nil, common.Errorf("team code and email are required: %w", common.ErrInvalidInput)
	}

	team, err := s.teamRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logger.Info(ctx, "login rejected: unknown team code", zap.String("team_code", code))
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	if !team.HasParticipant(email) {
		logger.Info(ctx, "login rejected: email not registered for team", zap.String("team_code", code))
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(model.NewAuthenticatedIdentity(team.Code, email))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	logger.Info(ctx, "team member logged in", zap.String("team_code", team.Code))
	return &AuthResponse{Token: token.Token, TeamCode: team.Code, Email: email, ExpiresAt: token.ExpiresAt}, nil
}

// Logout revokes the token id until the token's own expiry.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return common.Errorf("session token has no id: %w", common.ErrUnauthorized)
	}
	if err := s.sessionRepo.Revoke(ctx, tokenID, time.Until(expiresAt)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id was logged out.
func (s *AuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.sessionRepo.IsRevoked(ctx, tokenID)
}
