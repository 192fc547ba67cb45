package tenant

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingTenantID is returned when a request carries no tenant id.
	ErrMissingTenantID = errors.New("tenant id is missing")

	// ErrNoTenantContext is returned when the resolver did not run for a
	// request that needs a tenant session.
	ErrNoTenantContext = errors.New("no tenant in request context")

	// ErrCreateTimeout is the cause of a SessionCreationError raised when
	// the factory does not finish within Options.CreateTimeout.
	ErrCreateTimeout = errors.New("session creation timed out")

	// ErrCacheClosed is returned by Get after Close has been called.
	ErrCacheClosed = errors.New("tenant session cache is closed")
)

// SessionCreationError reports that a session for Key could not be opened.
// Cause holds the driver, initialization, or timeout error.
type SessionCreationError struct {
	Key   Key
	Cause error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("open session %s: %v", e.Key, e.Cause)
}

func (e *SessionCreationError) Unwrap() error { return e.Cause }

// IsSessionCreation reports whether err is, or wraps, a SessionCreationError.
func IsSessionCreation(err error) bool {
	var sce *SessionCreationError
	return errors.As(err, &sce)
}

// creationError normalises a factory failure into a SessionCreationError,
// folding deadline errors into ErrCreateTimeout.
func creationError(key Key, cause error) error {
	var sce *SessionCreationError
	if errors.As(cause, &sce) {
		cause = sce.Cause
	}
	if errors.Is(cause, context.DeadlineExceeded) && !errors.Is(cause, ErrCreateTimeout) {
		cause = fmt.Errorf("%w: %w", ErrCreateTimeout, cause)
	}
	return &SessionCreationError{Key: key, Cause: cause}
}
