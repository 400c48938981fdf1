//go:build !linux && !darwin

package unix

import "time"

// SetNonblock is not supported on this platform.
func SetNonblock(_ int, _ bool) error { return ErrUnsupported }

// Dup is not supported on this platform.
func Dup(_ int) (int, error) { return -1, ErrUnsupported }

// WaitReadable is not supported on this platform.
func WaitReadable(_ int, _ time.Duration) (bool, error) { return false, ErrUnsupported }

// WaitWritable is not supported on this platform.
func WaitWritable(_ int, _ time.Duration) (bool, error) { return false, ErrUnsupported }

// PollRead is not supported on this platform.
func PollRead(fds []int, _ time.Duration) ([]bool, error) {
	return make([]bool, len(fds)), ErrUnsupported
}

// Read is not supported on this platform.
func Read(_ int, _ []byte) (int, bool, error) { return 0, false, ErrUnsupported }

// Write is not supported on this platform.
func Write(_ int, _ []byte) (int, error) { return 0, ErrUnsupported }
