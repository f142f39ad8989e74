package session

import "errors"

// ===== SESSION ERRORS =====

var (
	ErrAlreadyInitialized = errors.New("session already initialized")
	ErrNotReady           = errors.New("session is not ready")
	ErrNotStarted         = errors.New("session not started")
	ErrUnknownQuestion    = errors.New("question does not belong to this exam")
)
