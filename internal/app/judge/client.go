// Package judge talks to a Judge0-compatible code execution service.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codewars_portal/internal/common"
	"codewars_portal/internal/domain/model"
)

const resultFields = "stdout,stderr,compile_output,message,status,time,memory"

// Config is fixed at startup and never mutated afterwards.
type Config struct {
	BaseURL         string
	AuthHeader      string // e.g. X-Auth-Token; empty disables authentication
	AuthToken       string
	CPUTimeLimitSec float64
	MemoryLimitKb   int
	HTTPTimeout     time.Duration
}

type SubmissionRequest struct {
	SourceCode string
	LanguageID int
	Stdin      string
}

// SubmissionResult is the raw status payload. Nil fields were absent or null on the wire.
type SubmissionResult struct {
	Stdout        *string            `json:"stdout"`
	Stderr        *string            `json:"stderr"`
	CompileOutput *string            `json:"compile_output"`
	Message       *string            `json:"message"`
	Status        *model.JudgeStatus `json:"status"`
	Time          *string            `json:"time"`
	Memory        *int64             `json:"memory"`
}

type createSubmissionPayload struct {
	SourceCode   string  `json:"source_code"`
	LanguageID   int     `json:"language_id"`
	Stdin        string  `json:"stdin"`
	CPUTimeLimit float64 `json:"cpu_time_limit"`
	MemoryLimit  int     `json:"memory_limit"`
}

type createSubmissionResponse struct {
	Token string `json:"token"`
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

// Submit queues code on the judge without waiting for it to run and returns the token.
func (c *Client) Submit(ctx context.Context, req SubmissionRequest) (string, error) {
	if req.SourceCode == "" || req.LanguageID == 0 {
		return "", common.Errorf("judge submit: source code and language id are required: %w", common.ErrInvalidInput)
	}

	body, err := json.Marshal(createSubmissionPayload{
		SourceCode:   req.SourceCode,
		LanguageID:   req.LanguageID,
		Stdin:        req.Stdin,
		CPUTimeLimit: c.cfg.CPUTimeLimitSec,
		MemoryLimit:  c.cfg.MemoryLimitKb,
	})
	if err != nil {
		return "", common.Errorf("judge submit: marshal payload: %w", err)
	}

	query := url.Values{}
	query.Set("base64_encoded", "false")
	query.Set("wait", "false")
	respBody, err := c.do(ctx, http.MethodPost, "/submissions?"+query.Encode(), body)
	if err != nil {
		return "", common.Errorf("judge submit: %w", err)
	}

	var created createSubmissionResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", common.Errorf("judge submit: decode response: %v: %w", err, common.ErrJudgeProtocol)
	}
	if created.Token == "" {
		return "", common.Errorf("judge submit: response carried no token: %w", common.ErrJudgeProtocol)
	}
	return created.Token, nil
}

// FetchStatus performs exactly one status request; retrying is the caller's decision.
func (c *Client) FetchStatus(ctx context.Context, token string) (*SubmissionResult, error) {
	if token == "" {
		return nil, common.Errorf("judge fetch: empty token: %w", common.ErrInvalidInput)
	}

	query := url.Values{}
	query.Set("base64_encoded", "false")
	query.Set("fields", resultFields)
	respBody, err := c.do(ctx, http.MethodGet, "/submissions/"+url.PathEscape(token)+"?"+query.Encode(), nil)
	if err != nil {
		return nil, common.Errorf("judge fetch %s: %w", token, err)
	}

	var result SubmissionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, common.Errorf("judge fetch %s: decode response: %v: %w", token, err, common.ErrJudgeProtocol)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %v: %w", err, common.ErrJudgeUnavailable)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.AuthHeader != "" && c.cfg.AuthToken != "" {
		httpReq.Header.Set(c.cfg.AuthHeader, c.cfg.AuthToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v: %w", err, common.ErrJudgeUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %v: %w", err, common.ErrJudgeUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, common.ErrJudgeAuthFailed)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, common.ErrJudgeUnavailable)
	}
	return respBody, nil
}
