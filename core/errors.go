package core

import (
	"github.com/pkg/errors"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrSystemPaused  = errors.New("system paused")
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrProtectedRole = errors.New("protected role")
	ErrInvalidRole   = errors.New("invalid role")

	// ErrElectionFinalized also matches ErrInvalidState.
	ErrElectionFinalized = errors.WithMessage(ErrInvalidState, "election finalized")
)

var kinds = []error{
	ErrUnauthorized,
	ErrSystemPaused,
	ErrElectionFinalized,
	ErrInvalidState,
	ErrInvalidInput,
	ErrAlreadyExists,
	ErrNotFound,
	ErrLimitExceeded,
	ErrProtectedRole,
	ErrInvalidRole,
}

// KindOf returns the most specific sentinel err matches, or nil.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func fail(kind error, reason string) error {
	return errors.WithMessage(kind, reason)
}

func failf(kind error, format string, args ...any) error {
	return errors.WithMessagef(kind, format, args...)
}
