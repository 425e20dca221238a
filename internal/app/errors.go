package app

import (
	"errors"
	"fmt"

	"github.com/evanschultz/ucm/internal/ident"
	"github.com/evanschultz/ucm/internal/refgraph"
)

// ErrNotFound and related errors form the error taxonomy of the service. Allocator and reference errors are
// re-exported so callers only need this package.
var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateIdentifier   = errors.New("duplicate identifier")
	ErrStorageIO             = errors.New("storage failure")
	ErrStoreNotEmpty         = errors.New("store is not empty")
	ErrUnsupportedSnapshot   = errors.New("unsupported snapshot version")
	ErrCapacityExceeded      = ident.ErrCapacityExceeded
	ErrTokenCollision        = ident.ErrTokenCollision
	ErrDanglingTarget        = refgraph.ErrDanglingTarget
	ErrSelfReference         = refgraph.ErrSelfReference
	ErrCycleDetected         = refgraph.ErrCycleDetected
	ErrReferencedEntityInUse = refgraph.ErrReferencedEntityInUse
)

// StorageError wraps a backend I/O or transaction failure. It matches both ErrStorageIO and the cause.
type StorageError struct {
	Backend string
	Op      string
	Path    string
	Err     error
}

// Error implements error.
func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Backend, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap exposes ErrStorageIO and the underlying cause to errors.Is and errors.As.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageIO, e.Err}
}

// StorageFailure wraps err as a StorageError unless it is nil or already part of the taxonomy.
func StorageFailure(backend, op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateIdentifier) || errors.Is(err, ErrStorageIO) {
		return err
	}
	return &StorageError{Backend: backend, Op: op, Path: path, Err: err}
}

// NotFoundError names the missing entity while matching ErrNotFound.
func NotFoundError(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// DuplicateError names the clashing entity while matching ErrDuplicateIdentifier.
func DuplicateError(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrDuplicateIdentifier)
}
