package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a task failure for the UI. Classification happens
// once, at the task boundary.
type ErrorKind string

const (
	// ErrKindWBI means the signed-query site rejected the request (HTTP 412).
	ErrKindWBI ErrorKind = "ERR_WBI"
	// ErrKindCookie means the content is gated behind a login or age check.
	ErrKindCookie ErrorKind = "ERR_COOKIE"
	// ErrKindSystem means a required external tool is missing.
	ErrKindSystem ErrorKind = "ERR_SYSTEM"
	// ErrKindUnknown is everything else.
	ErrKindUnknown ErrorKind = "ERR_UNKNOWN"
)

// maxErrorDisplayLen caps unknown-error messages for UI display.
const maxErrorDisplayLen = 100

// TaskError is a classified per-task failure. One task's failure never
// aborts the queue.
type TaskError struct {
	Kind ErrorKind
	Err  error
}

func (e *TaskError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// DisplayMessage returns the user-facing message, truncated for unknown
// errors.
func (e *TaskError) DisplayMessage() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	msg := e.Err.Error()
	if e.Kind == ErrKindUnknown && len(msg) > maxErrorDisplayLen {
		msg = msg[:maxErrorDisplayLen]
	}
	return msg
}

// NewTaskError wraps err with a classification kind.
func NewTaskError(kind ErrorKind, err error) *TaskError {
	return &TaskError{Kind: kind, Err: err}
}

// cookieHints are message fragments that suggest the failure is cookie- or
// login-related, so the UI can offer the cookie helper.
var cookieHints = []string{
	"403",
	"forbidden",
	"private",
	"members",
	"sign in",
	"restricted",
	"no video formats",
	"dpapi",
}

// SuggestsCookies reports whether an error message looks like a login or
// access-gate failure.
func SuggestsCookies(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range cookieHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// Classify maps an arbitrary error to a TaskError. Already-classified
// errors pass through unchanged.
func Classify(err error) *TaskError {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) {
		return te
	}
	if SuggestsCookies(err) {
		return NewTaskError(ErrKindCookie, err)
	}
	return NewTaskError(ErrKindUnknown, err)
}
