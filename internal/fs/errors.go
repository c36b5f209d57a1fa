package fs

import (
	"errors"
	"os"
	"syscall"

	"vrepo/internal/logging"
	"vrepo/internal/repository"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrReadOnly indicates an attempt to modify the filesystem
	ErrReadOnly = errors.New("filesystem is read-only")
)

// ToFuseError translates repository and I/O errors into the errno values
// FUSE expects.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr *repository.Error
	if errors.As(err, &repoErr) {
		errLogger.Trace("Converting repository error to FUSE error: %v", repoErr)
	}

	switch {
	case errors.Is(err, repository.ErrResourceNotFound), errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, repository.ErrInvalidPath), errors.Is(err, repository.ErrUnsupportedLanguage):
		return syscall.EINVAL
	case errors.Is(err, ErrReadOnly):
		return syscall.EROFS
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return syscall.EIO
	}
}
