//go:build windows

package email

import "os"

// openNoFollow opens path read-only.
// O_NOFOLLOW is not available on Windows; ReadLocalFile still rejects
// anything that is not a regular file.
func openNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
