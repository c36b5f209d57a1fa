package repository

import (
	"errors"
	"fmt"

	"vrepo/internal/logging"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrInvalidPath indicates a path or selector that is empty, relative or malformed
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidMountArgument indicates a mount value that is neither a repository nor a factory
	ErrInvalidMountArgument = errors.New("expected a repository or a repository factory")

	// ErrResourceNotFound indicates a path that no repository can resolve
	ErrResourceNotFound = errors.New("resource not found")

	// ErrFactoryContract indicates a mount factory that did not return a repository
	ErrFactoryContract = errors.New("factory did not return a repository")

	// ErrUnsupportedLanguage indicates a query language other than glob
	ErrUnsupportedLanguage = errors.New("unsupported query language")
)

// Error wraps repository errors with the operation and the affected path.
type Error struct {
	Op   string // Operation that failed (e.g., "get", "mount")
	Path string // Affected path or query
	Err  error  // Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, path string, err error) *Error {
	repoErr := &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
	errLogger.Trace("Created new repository error: %v", repoErr)
	return repoErr
}

// Operation names used in errors and log lines
const (
	OpGet          = "get"
	OpFind         = "find"
	OpContains     = "contains"
	OpHasChildren  = "has-children"
	OpListChildren = "list-children"
	OpAdd          = "add"
	OpRemove       = "remove"
	OpClear        = "clear"
	OpMount        = "mount"
	OpUnmount      = "unmount"
	OpResolve      = "resolve"
)

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound)
}
