// Package unix provides platform-specific syscall plumbing: nonblocking
// pipe I/O, poll(2)-based readiness multiplexing, and signal numbers.
package unix

import "errors"

// ErrUnsupported indicates the operation is not available on this platform.
var ErrUnsupported = errors.New("unix: not supported on this platform")
