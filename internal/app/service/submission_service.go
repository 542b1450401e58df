package service

import (
	"context"
	"strings"

	"codewars_portal/internal/common"
	"codewars_portal/internal/domain/model"
	"codewars_portal/internal/domain/repository"
	"codewars_portal/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
}

func NewSubmissionService(subRepo repository.SubmissionRepository) *SubmissionService {
	return &SubmissionService{submissionRepo: subRepo}
}

// RecordSubmissionRequest carries the code and the output the client chose to keep
// (see model.PreferredOutput). The output is stored as given; nothing is re-run.
type RecordSubmissionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Output   string `json:"output"`
}

// Record appends one immutable submission for the caller's team.
func (s *SubmissionService) Record(ctx context.Context, identity model.Identity, req RecordSubmissionRequest) (*model.SubmissionRecord, error) {
	if !identity.Authenticated() {
		return nil, common.ErrUnauthorized
	}
	if !identity.Complete() {
		return nil, common.ErrIncompleteSession
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, common.Errorf("code is required: %w", common.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Language) == "" {
		return nil, common.Errorf("language is required: %w", common.ErrInvalidInput)
	}

	rec := &model.SubmissionRecord{
		ID:       uuid.NewString(),
		TeamCode: identity.TeamCode,
		Email:    identity.Email,
		Code:     req.Code,
		Language: req.Language,
		Output:   req.Output,
	}
	if err := s.submissionRepo.Create(ctx, rec); err != nil {
		logger.Error(ctx, "failed to persist submission",
			zap.String("team_code", rec.TeamCode), zap.String("submission_id", rec.ID), zap.Error(err))
		return nil, common.Errorf("record submission: %w", err)
	}

	logger.Info(ctx, "submission recorded",
		zap.String("team_code", rec.TeamCode),
		zap.String("submission_id", rec.ID),
		zap.String("language", rec.Language))
	return rec, nil
}
