package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimit is a 429 from the provider. RetryAfter is zero when the
// provider sent no hint.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("llm: rate limited, retry in %s: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("llm: rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrAuth is a rejected API key (401 or 403).
type ErrAuth struct{ Err error }

func (e *ErrAuth) Error() string { return "llm: credentials rejected: " + e.Err.Error() }

func (e *ErrAuth) Unwrap() error { return e.Err }

// ErrInvalidResponse is output that is missing or does not match the
// requested schema. Content holds what the provider sent, if anything.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string { return "llm: invalid response: " + e.Err.Error() }

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers transport failures and 5xx responses.
type ErrProviderUnavailable struct{ Err error }

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "llm: provider unreachable"
	}
	return "llm: provider unreachable: " + e.Err.Error()
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is structured output cut off at the token limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string { return "llm: structured output hit the token limit" }

// classifyStatus maps an HTTP status from a provider SDK error onto the
// package's error types.
func classifyStatus(status int, err error) error {
	switch status {
	case http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ErrAuth{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

// IsPermanent reports whether retrying err cannot help.
func IsPermanent(err error) bool {
	var auth *ErrAuth
	var maxTok *ErrMaxTokensExceeded
	return errors.As(err, &auth) || errors.As(err, &maxTok)
}
