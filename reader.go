package spawn

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/axondata/go-spawn/internal/unix"
)

// StreamReader performs readiness-multiplexed, non-blocking reads over a
// single pipe end obtained from a Process. The reader is the exclusive
// owner of the handle; no two readers may operate on the same handle
// concurrently.
type StreamReader struct {
	h *StreamHandle

	mu sync.Mutex
	// pending holds bytes consumed from the pipe past a ReadUntil
	// delimiter, served to the next read before touching the pipe again
	pending []byte
	eof     bool
}

// NewStreamReader wraps a read pipe end
func NewStreamReader(h *StreamHandle) *StreamReader {
	return &StreamReader{h: h}
}

// ReadAvailable performs one non-blocking read of whatever bytes are
// currently available. It returns an empty slice when nothing is ready
// and never blocks.
func (r *StreamReader) ReadAvailable() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) > 0 {
		data := r.pending
		r.pending = nil
		return data, nil
	}
	if r.eof {
		return nil, nil
	}
	if r.h.Closed() {
		return nil, &OpError{Op: OpRead, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamRead, ErrClosed)}
	}

	buf := make([]byte, readChunkSize)
	n, eof, err := unix.Read(r.h.FD(), buf)
	if err != nil {
		return nil, &OpError{Op: OpRead, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamRead, err)}
	}
	if eof {
		r.eof = true
	}
	return buf[:n], nil
}

// ReadAll reads until EOF or until the timeout budget is exhausted. Each
// iteration waits for readiness on a bounded slice of the remaining
// budget; the loop never busy-spins. On timeout the whole operation
// fails with ErrTimeout; bytes already consumed from the pipe stay
// buffered and are served to subsequent reads in order, so a failed call
// never loses stream data.
func (r *StreamReader) ReadAll(ctx context.Context, timeout time.Duration) ([]byte, error) {
	return r.readLoop(ctx, timeout, nil)
}

// ReadUntil reads like ReadAll but returns early once the accumulated
// data contains the delimiter, returning everything up to and including
// it. Bytes consumed past the delimiter are buffered for the next read.
func (r *StreamReader) ReadUntil(ctx context.Context, delim []byte, timeout time.Duration) ([]byte, error) {
	if len(delim) == 0 {
		return r.readLoop(ctx, timeout, nil)
	}
	return r.readLoop(ctx, timeout, delim)
}

func (r *StreamReader) readLoop(ctx context.Context, timeout time.Duration, delim []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deadline := time.Now().Add(timeout)
	acc := r.pending
	r.pending = nil
	scratch := make([]byte, readChunkSize)

	// Every failure path must put the accumulated bytes back: they have
	// already been consumed from the pipe and belong to the next read.
	stash := func(err error) ([]byte, error) {
		r.pending = acc
		return nil, err
	}

	for {
		if len(delim) > 0 {
			if i := bytes.Index(acc, delim); i >= 0 {
				cut := i + len(delim)
				r.pending = acc[cut:]
				return acc[:cut], nil
			}
		}
		if r.eof {
			if len(delim) > 0 {
				// Peer closed without producing the delimiter.
				return stash(&OpError{Op: OpRead, Path: "", Err: ErrStreamRead})
			}
			return acc, nil
		}
		if r.h.Closed() {
			return stash(&OpError{Op: OpRead, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamRead, ErrClosed)})
		}

		if err := ctx.Err(); err != nil {
			return stash(err)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return stash(&OpError{Op: OpRead, Path: "", Err: ErrTimeout})
		}
		slice := remaining
		if slice > DefaultPollInterval {
			slice = DefaultPollInterval
		}

		ready, err := unix.WaitReadable(r.h.FD(), slice)
		if err != nil {
			return stash(&OpError{Op: OpRead, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamRead, err)})
		}
		if !ready {
			continue
		}

		for {
			n, eof, rerr := unix.Read(r.h.FD(), scratch)
			if rerr != nil {
				return stash(&OpError{Op: OpRead, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamRead, rerr)})
			}
			if n > 0 {
				acc = append(acc, scratch[:n]...)
				continue
			}
			if eof {
				r.eof = true
			}
			break
		}
	}
}

// IsEOF reports whether the peer has closed its write end and no
// buffered data remains
func (r *StreamReader) IsEOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eof && len(r.pending) == 0
}

// Close releases the underlying handle. It is idempotent and never
// reports failure.
func (r *StreamReader) Close() {
	r.h.Close()
}
