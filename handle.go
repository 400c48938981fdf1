package spawn

import (
	"os"
	"sync"

	"github.com/axondata/go-spawn/internal/unix"
)

// StreamHandle is one open pipe end kept by the parent after a spawn.
// A handle has exactly one owner at a time: the Process that created it,
// or the StreamReader/StreamWriter it was handed to. Read and write ends
// are distinct handles and are never shared by two readers or writers.
type StreamHandle struct {
	file *os.File
	fd   int

	mu     sync.Mutex
	closed bool
}

// newStreamHandle wraps an open pipe end and switches it to nonblocking
// mode. os.File.Fd reverts a poller-registered descriptor to blocking
// mode as a side effect, so the raw descriptor is captured exactly once
// here and the mode change happens after that capture; nothing may call
// Fd on the file again.
func newStreamHandle(f *os.File) (*StreamHandle, error) {
	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, err
	}
	return &StreamHandle{file: f, fd: fd}, nil
}

// FD returns the raw descriptor number, or -1 after Close
func (h *StreamHandle) FD() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return -1
	}
	return h.fd
}

// Closed reports whether the handle has been released
func (h *StreamHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close releases the underlying descriptor. It is idempotent and never
// reports failure; release is best effort.
func (h *StreamHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	_ = h.file.Close()
}
