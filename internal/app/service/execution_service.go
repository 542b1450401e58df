package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"codewars_portal/internal/app/judge"
	"codewars_portal/internal/common"
	"codewars_portal/internal/domain/model"
	"codewars_portal/internal/platform/logger"

	"go.uber.org/zap"
)

// JudgeClient is the subset of judge.Client the orchestrator drives.
type JudgeClient interface {
	Submit(ctx context.Context, req judge.SubmissionRequest) (string, error)
	FetchStatus(ctx context.Context, token string) (*judge.SubmissionResult, error)
}

// Sleeper waits between status polls. Tests replace it to avoid real sleeping.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

// NewTimerSleeper returns a Sleeper backed by time.Timer.
func NewTimerSleeper() Sleeper {
	return timerSleeper{}
}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Polling limits. Configured values are clamped into these bounds.
const (
	MinPollInterval    = time.Second
	MaxPollAttempts    = 30
	MaxExecutionBudget = 40 * time.Second // must stay below the server write timeout
	budgetSlack        = 10 * time.Second
)

type ExecutionConfig struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	// Budget is the wall-clock limit for one Execute call, submit included.
	Budget time.Duration
}

func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{PollInterval: MinPollInterval, MaxPollAttempts: MaxPollAttempts, Budget: MaxExecutionBudget}
}

// normalize clamps attempts to [1, MaxPollAttempts], the interval to at least
// MinPollInterval and the budget to at most MaxExecutionBudget.
func (c ExecutionConfig) normalize() ExecutionConfig {
	if c.MaxPollAttempts <= 0 || c.MaxPollAttempts > MaxPollAttempts {
		c.MaxPollAttempts = MaxPollAttempts
	}
	if c.PollInterval < MinPollInterval {
		c.PollInterval = MinPollInterval
	}
	ceiling := time.Duration(c.MaxPollAttempts)*c.PollInterval + budgetSlack
	if ceiling > MaxExecutionBudget {
		ceiling = MaxExecutionBudget
	}
	if c.Budget <= 0 || c.Budget > ceiling {
		c.Budget = ceiling
	}
	return c
}

type ExecutionService struct {
	judge   JudgeClient
	sleeper Sleeper
	cfg     ExecutionConfig
}

func NewExecutionService(judgeClient JudgeClient, sleeper Sleeper, cfg ExecutionConfig) *ExecutionService {
	clamped := cfg.normalize()
	if clamped.PollInterval != cfg.PollInterval || clamped.MaxPollAttempts != cfg.MaxPollAttempts {
		logger.Warn(context.Background(), "judge polling settings out of range, clamped",
			zap.Duration("poll_interval", clamped.PollInterval),
			zap.Int("max_poll_attempts", clamped.MaxPollAttempts))
	}
	cfg = clamped
	if sleeper == nil {
		sleeper = NewTimerSleeper()
	}
	return &ExecutionService{judge: judgeClient, sleeper: sleeper, cfg: cfg}
}

// Execute runs one request on the judge and waits for a terminal status, bounded by
// MaxPollAttempts and by the wall-clock Budget. Polling is detached from ctx
// cancellation: the judge keeps the submission either way, so an abandoned caller
// does not cut the loop short.
func (s *ExecutionService) Execute(ctx context.Context, identity model.Identity, req model.ExecutionRequest) (*model.ExecutionResult, error) {
	if !identity.Authenticated() {
		return nil, common.ErrUnauthorized
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, common.Errorf("code is required: %w", common.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Language) == "" {
		return nil, common.Errorf("language is required: %w", common.ErrInvalidInput)
	}
	lang, ok := model.ResolveLanguage(req.Language)
	if !ok {
		return nil, common.Errorf("%w: %q (supported: %s)", common.ErrUnsupportedLanguage,
			req.Language, strings.Join(model.SupportedLanguageKeys(), ", "))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Budget)
	defer cancel()
	fields := []zap.Field{
		zap.String("team_code", identity.TeamCode),
		zap.String("language", lang.Key),
	}

	token, err := s.judge.Submit(ctx, judge.SubmissionRequest{
		SourceCode: req.Code,
		LanguageID: lang.JudgeID,
		Stdin:      req.Stdin,
	})
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn(ctx, "execution budget spent while submitting", append(fields, zap.Error(err))...)
			return nil, common.Errorf("submit did not finish within %s: %w", s.cfg.Budget, common.ErrExecutionTimeout)
		}
		if errors.Is(err, common.ErrJudgeAuthFailed) {
			logger.Error(ctx, "judge rejected credentials, check JUDGE_AUTH_HEADER and JUDGE_AUTH_TOKEN",
				append(fields, zap.Error(err))...)
		} else {
			logger.Warn(ctx, "judge submit failed", append(fields, zap.Error(err))...)
		}
		return nil, err
	}
	if token == "" {
		return nil, common.Errorf("judge returned no token: %w", common.ErrJudgeProtocol)
	}
	fields = append(fields, zap.String("token", token))
	logger.Debug(ctx, "submission queued on judge", fields...)

	last, attempts, pollErr := s.poll(ctx, token, fields)

	switch {
	case errors.Is(pollErr, common.ErrJudgeAuthFailed):
		logger.Error(ctx, "judge rejected credentials while polling, check JUDGE_AUTH_HEADER and JUDGE_AUTH_TOKEN",
			append(fields, zap.Error(pollErr))...)
		return nil, common.Errorf("polling %s: %w", token, pollErr)
	case last != nil && statusOf(last).Terminal():
		// finished, even if the budget ran out right after
	case ctx.Err() != nil:
		logger.Warn(ctx, "execution budget spent", append(fields, zap.Int("attempts", attempts))...)
		return nil, common.Errorf("%s not finished within %s after %d poll(s): %w",
			token, s.cfg.Budget, attempts, common.ErrExecutionTimeout)
	case last == nil:
		if pollErr != nil {
			return nil, common.Errorf("no status for %s after %d attempt(s): %v: %w",
				token, attempts, pollErr, common.ErrJudgeProtocol)
		}
		return nil, common.Errorf("no status for %s: %w", token, common.ErrJudgeProtocol)
	case !statusOf(last).Terminal() && pollErr != nil:
		return nil, common.Errorf("polling %s stopped after %d attempt(s): %v: %w",
			token, attempts, pollErr, common.ErrJudgeUnavailable)
	case !statusOf(last).Terminal():
		logger.Warn(ctx, "execution did not finish in time", append(fields, zap.Int("attempts", attempts))...)
		return nil, common.Errorf("%s still running after %d polls: %w", token, attempts, common.ErrExecutionTimeout)
	}

	result := NormalizeResult(last)
	logger.Info(ctx, "execution finished", append(fields,
		zap.Int("status_id", result.Status.ID),
		zap.Int("attempts", attempts))...)
	return result, nil
}

// poll fetches the status until it is terminal or the attempt budget is spent. A failed
// fetch uses up its attempt and ends the loop; the caller decides what that means.
func (s *ExecutionService) poll(ctx context.Context, token string, fields []zap.Field) (*judge.SubmissionResult, int, error) {
	var last *judge.SubmissionResult
	attempts := 0
	for attempts < s.cfg.MaxPollAttempts {
		if err := ctx.Err(); err != nil {
			return last, attempts, err
		}
		if err := s.sleeper.Sleep(ctx, s.cfg.PollInterval); err != nil {
			return last, attempts, fmt.Errorf("poll wait: %v: %w", err, common.ErrJudgeUnavailable)
		}
		attempts++

		res, err := s.judge.FetchStatus(ctx, token)
		if err != nil {
			logger.Warn(ctx, "judge status fetch failed, giving up on polling",
				append(fields, zap.Int("attempt", attempts), zap.Error(err))...)
			return last, attempts, err
		}
		last = res
		if statusOf(res).Terminal() {
			break
		}
	}
	return last, attempts, nil
}

func statusOf(res *judge.SubmissionResult) model.JudgeStatus {
	if res == nil || res.Status == nil {
		return model.JudgeStatus{}
	}
	return *res.Status
}

// NormalizeResult applies the default table to a raw judge result:
// string outputs default to "", time is reformatted to two decimals (nil when absent
// or unparseable), memory passes through, a missing status becomes {0, ""}.
func NormalizeResult(raw *judge.SubmissionResult) *model.ExecutionResult {
	if raw == nil {
		return &model.ExecutionResult{}
	}
	return &model.ExecutionResult{
		Stdout:        valueOrEmpty(raw.Stdout),
		Stderr:        valueOrEmpty(raw.Stderr),
		CompileOutput: valueOrEmpty(raw.CompileOutput),
		Message:       valueOrEmpty(raw.Message),
		Status:        statusOf(raw),
		Time:          formatElapsedSeconds(raw.Time),
		Memory:        raw.Memory,
	}
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatElapsedSeconds(raw *string) *string {
	if raw == nil {
		return nil
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return nil
	}
	formatted := strconv.FormatFloat(secs, 'f', 2, 64)
	return &formatted
}
