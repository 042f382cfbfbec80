//go:build !windows

package email

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/mailsort/internal/errors"
)

// openNoFollow opens path read-only with O_NOFOLLOW so a symlink in the
// final component is refused. O_CLOEXEC prevents FD leaks across exec.
func openNoFollow(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
