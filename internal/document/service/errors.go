package service

import (
	"errors"
	"fmt"

	"pagetree/internal/document/repository"
)

var (
	// ErrUnauthenticated means no caller identity could be resolved.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrUnauthorized means the caller does not own the document.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable wraps store failures. Every operation is idempotent
	// under retry, including the cascades.
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// storeError translates a repository error into the service taxonomy.
// Context errors count as unavailability so callers know a retry is safe.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNoDocument):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

// errorKind is the metrics label for err.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
