package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeAlreadyJoined   = "already_joined"
	ErrCodeNotInSession    = "not_in_session"
	ErrCodeNotParticipant  = "not_participant"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadyJoined   = errors.New("already joined")
	ErrNotInSession    = errors.New("not in session")
	ErrBadRequest      = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
