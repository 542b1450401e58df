package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("requested resource not found")
	ErrUnauthorized = errors.New("unauthorized access")

	// Execution pipeline
	ErrInvalidInput        = errors.New("invalid input")
	ErrIncompleteSession   = errors.New("incomplete session")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrJudgeAuthFailed     = errors.New("judge rejected credentials")
	ErrJudgeUnavailable    = errors.New("judge unavailable")
	ErrJudgeProtocol       = errors.New("unexpected judge response")
	ErrExecutionTimeout    = errors.New("execution timed out")
	ErrPersistence         = errors.New("persistence failure")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrIncompleteSession),
		errors.Is(err, ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, ErrJudgeAuthFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrExecutionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrJudgeUnavailable),
		errors.Is(err, ErrJudgeProtocol),
		errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the text shown to the client for err. Client-side errors keep
// their wrapped message; upstream and storage failures get a fixed message so transport
// details and credentials never leave the process.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrJudgeAuthFailed):
		return "Code execution service rejected our credentials. Ask the organisers to configure the judge API key."
	case errors.Is(err, ErrExecutionTimeout):
		return "Code execution timed out. Try simplifying your code or reducing its input."
	case errors.Is(err, ErrJudgeUnavailable):
		return "Code execution service is unavailable. Please try again later."
	case errors.Is(err, ErrJudgeProtocol):
		return "Code execution service returned an unexpected response. Please try again later."
	case errors.Is(err, ErrPersistence):
		return "Could not save your submission. Please try again later."
	case errors.Is(err, ErrUnauthorized):
		return "Not authenticated. Please log in with your team code and email."
	case errors.Is(err, ErrIncompleteSession):
		return "Session is missing team code or email. Please log in again."
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnsupportedLanguage),
		errors.Is(err, ErrNotFound):
		return err.Error()
	}
	return "Internal server error"
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
