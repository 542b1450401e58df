package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"codewars_portal/internal/app/judge"
	"codewars_portal/internal/common"
	"codewars_portal/internal/domain/model"
)

type fakeJudge struct {
	mu sync.Mutex

	submitErr   error
	token       string
	submitted   []judge.SubmissionRequest
	results     []*judge.SubmissionResult
	fetchErrAt  int // 1-based fetch number that fails; 0 disables
	fetchErr    error
	fetchTokens []string
	// blockFetch makes FetchStatus wait for ctx to end, like a judge that never answers.
	blockFetch bool
}

func (f *fakeJudge) Submit(ctx context.Context, req judge.SubmissionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.token, nil
}

func (f *fakeJudge) FetchStatus(ctx context.Context, token string) (*judge.SubmissionResult, error) {
	if f.blockFetch {
		f.mu.Lock()
		f.fetchTokens = append(f.fetchTokens, token)
		f.mu.Unlock()
		<-ctx.Done()
		return nil, common.Errorf("request failed: %v: %w", ctx.Err(), common.ErrJudgeUnavailable)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchTokens = append(f.fetchTokens, token)
	n := len(f.fetchTokens)
	if f.fetchErrAt != 0 && n == f.fetchErrAt {
		return nil, f.fetchErr
	}
	if len(f.results) == 0 {
		return nil, errors.New("fake judge: no scripted result")
	}
	idx := n - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx], nil
}

func (f *fakeJudge) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetchTokens)
}

type fakeSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func statusResult(id int, desc string) *judge.SubmissionResult {
	return &judge.SubmissionResult{Status: &model.JudgeStatus{ID: id, Description: desc}}
}

func authed() model.Identity {
	return model.NewAuthenticatedIdentity("TEAM42", "ada@example.com")
}

func newTestExecutionService(j *fakeJudge, s *fakeSleeper) *ExecutionService {
	return NewExecutionService(j, s, ExecutionConfig{PollInterval: time.Second, MaxPollAttempts: 30})
}

func TestExecuteRejectsUnauthenticatedCaller(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{token: "tok"}
	svc := newTestExecutionService(j, &fakeSleeper{})

	_, err := svc.Execute(context.Background(), model.Identity{TeamCode: "T", Email: "e@x"}, model.ExecutionRequest{Code: "print(1)", Language: "python"})
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(j.submitted) != 0 {
		t.Fatalf("judge must not be called")
	}
}

func TestExecuteRejectsEmptyInputBeforeNetwork(t *testing.T) {
	t.Parallel()
	cases := []model.ExecutionRequest{
		{Code: "", Language: "python"},
		{Code: "   \n\t", Language: "python"},
		{Code: "print(1)", Language: ""},
	}
	for _, req := range cases {
		j := &fakeJudge{token: "tok"}
		svc := newTestExecutionService(j, &fakeSleeper{})
		_, err := svc.Execute(context.Background(), authed(), req)
		if !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("request %+v: expected ErrInvalidInput, got %v", req, err)
		}
		if len(j.submitted) != 0 || j.fetchCount() != 0 {
			t.Fatalf("request %+v: judge must not be called", req)
		}
	}
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{token: "tok"}
	svc := newTestExecutionService(j, &fakeSleeper{})

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "puts 1", Language: "ruby"})
	if !errors.Is(err, common.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if common.HTTPStatusFromError(err) != 400 {
		t.Fatalf("expected 400, got %d", common.HTTPStatusFromError(err))
	}
	if !strings.Contains(err.Error(), "c, java, python") {
		t.Fatalf("message should list supported languages: %v", err)
	}
	if len(j.submitted) != 0 {
		t.Fatalf("judge must not be called for unsupported languages")
	}
}

func TestExecuteAcceptedAfterThreePolls(t *testing.T) {
	t.Parallel()
	accepted := &judge.SubmissionResult{
		Stdout: strPtr("hello\n"),
		Status: &model.JudgeStatus{ID: model.JudgeStatusAccepted, Description: "Accepted"},
		Time:   strPtr("0.017"),
		Memory: int64Ptr(3240),
	}
	j := &fakeJudge{
		token:   "tok-b",
		results: []*judge.SubmissionResult{statusResult(1, "In Queue"), statusResult(2, "Processing"), accepted},
	}
	sl := &fakeSleeper{}
	svc := newTestExecutionService(j, sl)

	res, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "print('hello')", Language: "Python", Stdin: "x"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if res.Status.ID != 3 || res.Status.Description != "Accepted" {
		t.Fatalf("unexpected status %+v", res.Status)
	}
	if res.Stdout != "hello\n" || res.Stderr != "" || res.CompileOutput != "" || res.Message != "" {
		t.Fatalf("unexpected outputs %+v", res)
	}
	if res.Time == nil || *res.Time != "0.02" {
		t.Fatalf("unexpected time %v", res.Time)
	}
	if res.Memory == nil || *res.Memory != 3240 {
		t.Fatalf("unexpected memory %v", res.Memory)
	}
	if got := j.fetchCount(); got != 3 {
		t.Fatalf("expected 3 fetches, got %d", got)
	}
	if len(j.submitted) != 1 || j.submitted[0].LanguageID != 71 || j.submitted[0].Stdin != "x" {
		t.Fatalf("unexpected submission %+v", j.submitted)
	}
	for i, tok := range j.fetchTokens {
		if tok != "tok-b" {
			t.Fatalf("fetch %d used token %q", i, tok)
		}
	}
}

func TestExecuteSleepsBeforeEveryFetch(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{token: "tok", results: []*judge.SubmissionResult{statusResult(2, "Processing"), statusResult(6, "Compilation Error")}}
	sl := &fakeSleeper{}
	svc := newTestExecutionService(j, sl)

	if _, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "int main(", Language: "c"}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(sl.sleeps) != j.fetchCount() {
		t.Fatalf("expected one sleep per fetch, got %d sleeps for %d fetches", len(sl.sleeps), j.fetchCount())
	}
	for _, d := range sl.sleeps {
		if d < time.Second {
			t.Fatalf("poll interval %v is below one second", d)
		}
	}
}

func TestExecuteTimesOutAfterThirtyPolls(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{token: "tok-d", results: []*judge.SubmissionResult{statusResult(2, "Processing")}}
	sl := &fakeSleeper{}
	svc := newTestExecutionService(j, sl)

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "while True: pass", Language: "python"})
	if !errors.Is(err, common.ErrExecutionTimeout) {
		t.Fatalf("expected ErrExecutionTimeout, got %v", err)
	}
	if common.HTTPStatusFromError(err) != 504 {
		t.Fatalf("expected 504, got %d", common.HTTPStatusFromError(err))
	}
	if got := j.fetchCount(); got != 30 {
		t.Fatalf("expected exactly 30 fetches, got %d", got)
	}
	if len(sl.sleeps) != 30 {
		t.Fatalf("expected 30 sleeps, got %d", len(sl.sleeps))
	}
}

func TestExecuteNeverExceedsConfiguredAttempts(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{token: "tok", results: []*judge.SubmissionResult{statusResult(1, "In Queue")}}
	svc := NewExecutionService(j, &fakeSleeper{}, ExecutionConfig{PollInterval: time.Second, MaxPollAttempts: 5})

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "x", Language: "java"})
	if !errors.Is(err, common.ErrExecutionTimeout) {
		t.Fatalf("expected ErrExecutionTimeout, got %v", err)
	}
	if got := j.fetchCount(); got != 5 {
		t.Fatalf("expected 5 fetches, got %d", got)
	}
}

func TestExecuteSubmitAuthFailure(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{submitErr: common.Errorf("judge submit: status 401: %w", common.ErrJudgeAuthFailed)}
	svc := newTestExecutionService(j, &fakeSleeper{})

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "print(1)", Language: "python"})
	if !errors.Is(err, common.ErrJudgeAuthFailed) {
		t.Fatalf("expected ErrJudgeAuthFailed, got %v", err)
	}
	if common.HTTPStatusFromError(err) != 502 {
		t.Fatalf("expected 502, got %d", common.HTTPStatusFromError(err))
	}
	if !strings.Contains(common.PublicMessage(err), "configure") {
		t.Fatalf("public message should mention configuration: %q", common.PublicMessage(err))
	}
	if j.fetchCount() != 0 {
		t.Fatalf("no polling after a failed submit")
	}
}

func TestExecuteEmptyTokenIsProtocolError(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{token: ""}
	svc := newTestExecutionService(j, &fakeSleeper{})

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "print(1)", Language: "python"})
	if !errors.Is(err, common.ErrJudgeProtocol) {
		t.Fatalf("expected ErrJudgeProtocol, got %v", err)
	}
}

func TestExecuteFirstFetchFailureIsProtocolError(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{
		token:      "tok",
		results:    []*judge.SubmissionResult{statusResult(3, "Accepted")},
		fetchErrAt: 1,
		fetchErr:   common.Errorf("status 500: %w", common.ErrJudgeUnavailable),
	}
	svc := newTestExecutionService(j, &fakeSleeper{})

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "print(1)", Language: "python"})
	if !errors.Is(err, common.ErrJudgeProtocol) {
		t.Fatalf("expected ErrJudgeProtocol, got %v", err)
	}
	if got := j.fetchCount(); got != 1 {
		t.Fatalf("a failed fetch must end polling, got %d fetches", got)
	}
}

func TestExecuteFetchFailureAfterProgressIsUnavailable(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{
		token:      "tok",
		results:    []*judge.SubmissionResult{statusResult(1, "In Queue"), statusResult(2, "Processing"), statusResult(3, "Accepted")},
		fetchErrAt: 3,
		fetchErr:   common.Errorf("status 503: %w", common.ErrJudgeUnavailable),
	}
	svc := newTestExecutionService(j, &fakeSleeper{})

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "print(1)", Language: "python"})
	if !errors.Is(err, common.ErrJudgeUnavailable) {
		t.Fatalf("expected ErrJudgeUnavailable, got %v", err)
	}
	if errors.Is(err, common.ErrExecutionTimeout) {
		t.Fatalf("a fetch failure is not a timeout")
	}
	if got := j.fetchCount(); got != 3 {
		t.Fatalf("expected polling to stop at the failed fetch, got %d fetches", got)
	}
}

func TestExecuteFetchAuthFailureKeepsCategory(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{
		token:      "tok",
		results:    []*judge.SubmissionResult{statusResult(1, "In Queue")},
		fetchErrAt: 2,
		fetchErr:   common.Errorf("status 403: %w", common.ErrJudgeAuthFailed),
	}
	svc := newTestExecutionService(j, &fakeSleeper{})

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "print(1)", Language: "python"})
	if !errors.Is(err, common.ErrJudgeAuthFailed) {
		t.Fatalf("expected ErrJudgeAuthFailed, got %v", err)
	}
}

func TestExecuteIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j := &fakeJudge{token: "tok", results: []*judge.SubmissionResult{statusResult(2, "Processing"), statusResult(3, "Accepted")}}
	svc := newTestExecutionService(j, &fakeSleeper{})

	res, err := svc.Execute(ctx, authed(), model.ExecutionRequest{Code: "print(1)", Language: "python"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if res.Status.ID != 3 || j.fetchCount() != 2 {
		t.Fatalf("expected polling to complete, got status %d after %d fetches", res.Status.ID, j.fetchCount())
	}
}

func TestNormalizeResultDefaults(t *testing.T) {
	t.Parallel()
	res := NormalizeResult(&judge.SubmissionResult{})
	if res.Stdout != "" || res.Stderr != "" || res.CompileOutput != "" || res.Message != "" {
		t.Fatalf("string fields should default to empty: %+v", res)
	}
	if res.Status != (model.JudgeStatus{}) {
		t.Fatalf("missing status should default to zero value, got %+v", res.Status)
	}
	if res.Time != nil || res.Memory != nil {
		t.Fatalf("time and memory should stay nil")
	}

	if got := NormalizeResult(&judge.SubmissionResult{Time: strPtr("n/a")}); got.Time != nil {
		t.Fatalf("unparseable time should be nil, got %q", *got.Time)
	}
}

func TestNormalizeResultIsIdempotent(t *testing.T) {
	t.Parallel()
	raw := &judge.SubmissionResult{
		Stdout:  strPtr("out"),
		Stderr:  strPtr("err"),
		Message: strPtr("Exited with error status 1"),
		Status:  &model.JudgeStatus{ID: 11, Description: "Runtime Error (NZEC)"},
		Time:    strPtr("1.234"),
		Memory:  int64Ptr(1024),
	}
	first := NormalizeResult(raw)
	second := NormalizeResult(&judge.SubmissionResult{
		Stdout:        &first.Stdout,
		Stderr:        &first.Stderr,
		CompileOutput: &first.CompileOutput,
		Message:       &first.Message,
		Status:        &first.Status,
		Time:          first.Time,
		Memory:        first.Memory,
	})
	if *first.Time != "1.23" || *second.Time != "1.23" {
		t.Fatalf("expected 1.23 both times, got %q then %q", *first.Time, *second.Time)
	}
	if first.Stdout != second.Stdout || first.Stderr != second.Stderr || first.Message != second.Message ||
		first.Status != second.Status || *first.Memory != *second.Memory {
		t.Fatalf("normalization is not idempotent: %+v vs %+v", first, second)
	}
}

func TestExecuteStopsAtBudgetWithSlowJudge(t *testing.T) {
	t.Parallel()
	var fetches int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"token":"slow"}`))
			return
		}
		mu.Lock()
		fetches++
		mu.Unlock()
		select {
		case <-time.After(50 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"status":{"id":2,"description":"Processing"}}`))
	}))
	defer srv.Close()

	client := judge.NewClient(judge.Config{BaseURL: srv.URL, HTTPTimeout: 10 * time.Second})
	svc := NewExecutionService(client, &fakeSleeper{}, ExecutionConfig{
		PollInterval:    time.Second,
		MaxPollAttempts: 30,
		Budget:          300 * time.Millisecond,
	})

	start := time.Now()
	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "while True: pass", Language: "python"})
	elapsed := time.Since(start)
	if !errors.Is(err, common.ErrExecutionTimeout) {
		t.Fatalf("expected ErrExecutionTimeout, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("execute ran %v, well past its 300ms budget", elapsed)
	}
	mu.Lock()
	defer mu.Unlock()
	if fetches >= 30 {
		t.Fatalf("budget should cut polling short, got %d fetches", fetches)
	}
}

func TestExecuteBudgetEndsHangingFetch(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{token: "tok", blockFetch: true}
	svc := NewExecutionService(j, &fakeSleeper{}, ExecutionConfig{Budget: 50 * time.Millisecond})

	start := time.Now()
	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "print(1)", Language: "python"})
	if !errors.Is(err, common.ErrExecutionTimeout) {
		t.Fatalf("expected ErrExecutionTimeout, got %v", err)
	}
	if common.HTTPStatusFromError(err) != 504 {
		t.Fatalf("expected 504, got %d", common.HTTPStatusFromError(err))
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("hanging fetch was not cut by the budget")
	}
	if got := j.fetchCount(); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}
}

func TestNewExecutionServiceClampsPolling(t *testing.T) {
	t.Parallel()
	j := &fakeJudge{token: "tok", results: []*judge.SubmissionResult{statusResult(1, "In Queue")}}
	sl := &fakeSleeper{}
	svc := NewExecutionService(j, sl, ExecutionConfig{PollInterval: 100 * time.Millisecond, MaxPollAttempts: 60})

	_, err := svc.Execute(context.Background(), authed(), model.ExecutionRequest{Code: "x", Language: "c"})
	if !errors.Is(err, common.ErrExecutionTimeout) {
		t.Fatalf("expected ErrExecutionTimeout, got %v", err)
	}
	if got := j.fetchCount(); got != MaxPollAttempts {
		t.Fatalf("expected attempts clamped to %d, got %d", MaxPollAttempts, got)
	}
	for _, d := range sl.sleeps {
		if d < time.Second {
			t.Fatalf("poll interval %v was not clamped to one second", d)
		}
	}
}

func TestExecutionConfigBudgetBounds(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   ExecutionConfig
		want time.Duration
	}{
		{"defaults", DefaultExecutionConfig(), MaxExecutionBudget},
		{"zero value", ExecutionConfig{}, MaxExecutionBudget},
		{"few attempts", ExecutionConfig{PollInterval: time.Second, MaxPollAttempts: 5}, 15 * time.Second},
		{"oversized budget", ExecutionConfig{MaxPollAttempts: 30, Budget: 10 * time.Minute}, MaxExecutionBudget},
		{"slow interval", ExecutionConfig{PollInterval: 5 * time.Second, MaxPollAttempts: 30}, MaxExecutionBudget},
		{"short budget kept", ExecutionConfig{Budget: 2 * time.Second}, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := tc.in.normalize().Budget; got != tc.want {
			t.Fatalf("%s: budget %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeResultRejectsNonFiniteTime(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "-0.5", "1e400"} {
		if got := NormalizeResult(&judge.SubmissionResult{Time: strPtr(raw)}); got.Time != nil {
			t.Fatalf("time %q should normalize to nil, got %q", raw, *got.Time)
		}
	}
	if got := NormalizeResult(&judge.SubmissionResult{Time: strPtr("0")}); got.Time == nil || *got.Time != "0.00" {
		t.Fatalf("zero time should be kept as 0.00")
	}
}
