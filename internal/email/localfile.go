package email

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/hpungsan/mailsort/internal/errors"
)

// ReadLocalFile reads a regular file of at most limit bytes. Symlinks,
// directories and oversized files are INVALID_REQUEST.
//
// Size and type are checked on the open descriptor, so the file cannot be
// swapped between the check and the read.
func ReadLocalFile(path string, limit int64) ([]byte, error) {
	f, err := openNoFollow(path)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot read %s: %v", path, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot read %s: %v", path, err))
	}
	if info.IsDir() {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s is a directory", path))
	}
	if !info.Mode().IsRegular() {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s is not a regular file", path))
	}
	if info.Size() > limit {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s is larger than %s", filepath.Base(path), formatLimit(limit)))
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot read %s: %v", path, err))
	}
	if int64(len(data)) > limit {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s is larger than %s", filepath.Base(path), formatLimit(limit)))
	}
	return data, nil
}

func formatLimit(limit int64) string {
	if limit >= 1<<20 && limit%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", limit>>20)
	}
	return fmt.Sprintf("%d bytes", limit)
}
