package spawn

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/axondata/go-spawn/internal/unix"
)

// writerState is the mutable core shared by every configuration copy of
// a StreamWriter wrapping the same handle
type writerState struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// StreamWriter performs buffered, readiness-multiplexed writes over a
// single pipe end obtained from a Process. Configuration methods return
// a new writer value over the same underlying handle and buffer, so
// presets can be derived without copying the resource.
type StreamWriter struct {
	h  *StreamHandle
	st *writerState

	autoFlush    bool
	bufferSize   int
	chunkSize    int
	lineEnding   string
	flushTimeout time.Duration
}

// NewStreamWriter wraps a write pipe end with default buffering: writes
// accumulate until the buffer reaches DefaultBufferSize, then flush
func NewStreamWriter(h *StreamHandle) *StreamWriter {
	return &StreamWriter{
		h:            h,
		st:           &writerState{},
		bufferSize:   DefaultBufferSize,
		chunkSize:    DefaultChunkSize,
		lineEnding:   DefaultLineEnding,
		flushTimeout: DefaultTimeout,
	}
}

// NewAutoFlushingWriter wraps a write pipe end with auto-flush enabled,
// the preset for interactive use where every write must reach the child
// immediately. Process.StdinWriter uses this preset.
func NewAutoFlushingWriter(h *StreamHandle) *StreamWriter {
	w := NewStreamWriter(h)
	w.autoFlush = true
	return w
}

// WithAutoFlush returns a writer value that flushes after every write
// when on is true
func (w *StreamWriter) WithAutoFlush(on bool) *StreamWriter {
	nw := *w
	nw.autoFlush = on
	return &nw
}

// WithBufferSize returns a writer value that auto-flushes once the
// internal buffer reaches n bytes
func (w *StreamWriter) WithBufferSize(n int) *StreamWriter {
	nw := *w
	if n > 0 {
		nw.bufferSize = n
	}
	return &nw
}

// WithLineEnding returns a writer value using the given line ending for
// WriteLine and WriteLines
func (w *StreamWriter) WithLineEnding(ending string) *StreamWriter {
	nw := *w
	nw.lineEnding = ending
	return &nw
}

// WithChunkSize returns a writer value using the given chunk bound for
// WriteChunked
func (w *StreamWriter) WithChunkSize(n int) *StreamWriter {
	nw := *w
	if n > 0 {
		nw.chunkSize = n
	}
	return &nw
}

// WithFlushTimeout returns a writer value using the given budget for
// Flush and for the flushes triggered by Write
func (w *StreamWriter) WithFlushTimeout(d time.Duration) *StreamWriter {
	nw := *w
	nw.flushTimeout = d
	return &nw
}

// Write buffers data and flushes according to configuration: always
// when auto-flush is on, otherwise once the buffer reaches its size
// threshold. It returns the number of bytes accepted.
func (w *StreamWriter) Write(data []byte) (int, error) {
	w.st.mu.Lock()
	defer w.st.mu.Unlock()

	if w.h.Closed() {
		return 0, &OpError{Op: OpWrite, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamWrite, ErrClosed)}
	}

	w.st.buf.Write(data)
	if w.autoFlush || w.st.buf.Len() >= w.bufferSize {
		if err := w.flushLocked(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

// WriteLine writes a string followed by the configured line ending
func (w *StreamWriter) WriteLine(line string) (int, error) {
	return w.Write([]byte(line + w.lineEnding))
}

// WriteLines writes each string followed by the configured line ending
func (w *StreamWriter) WriteLines(lines []string) (int, error) {
	total := 0
	for _, line := range lines {
		n, err := w.WriteLine(line)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteChunked writes a payload of any size in bounded chunks, waiting
// for pipe writability between attempts and retrying the remainder of
// any partial write. This tolerates backpressure from a full kernel
// pipe buffer, which a single large write cannot: payloads beyond the
// usual 64 KiB pipe capacity require the child to drain concurrently.
func (w *StreamWriter) WriteChunked(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	w.st.mu.Lock()
	defer w.st.mu.Unlock()

	if w.h.Closed() {
		return 0, &OpError{Op: OpWrite, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamWrite, ErrClosed)}
	}

	deadline := time.Now().Add(timeout)

	// Buffered bytes go first so ordering is preserved.
	if err := w.flushDeadlineLocked(ctx, deadline); err != nil {
		return 0, err
	}

	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return written, &OpError{Op: OpWrite, Path: "", Err: ErrTimeout}
		}
		slice := remaining
		if slice > DefaultPollInterval {
			slice = DefaultPollInterval
		}

		ready, err := unix.WaitWritable(w.h.FD(), slice)
		if err != nil {
			return written, &OpError{Op: OpWrite, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamWrite, err)}
		}
		if !ready {
			continue
		}

		end := written + w.chunkSize
		if end > len(data) {
			end = len(data)
		}
		n, err := unix.Write(w.h.FD(), data[written:end])
		if err != nil {
			return written, &OpError{Op: OpWrite, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamWrite, err)}
		}
		written += n
	}
	return written, nil
}

// Flush forces buffered bytes to the OS within the configured flush
// timeout
func (w *StreamWriter) Flush() error {
	w.st.mu.Lock()
	defer w.st.mu.Unlock()
	return w.flushLocked()
}

func (w *StreamWriter) flushLocked() error {
	return w.flushDeadlineLocked(context.Background(), time.Now().Add(w.flushTimeout))
}

func (w *StreamWriter) flushDeadlineLocked(ctx context.Context, deadline time.Time) error {
	for w.st.buf.Len() > 0 {
		if w.h.Closed() {
			return &OpError{Op: OpFlush, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamFlush, ErrClosed)}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &OpError{Op: OpFlush, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamFlush, ErrTimeout)}
		}
		slice := remaining
		if slice > DefaultPollInterval {
			slice = DefaultPollInterval
		}

		ready, err := unix.WaitWritable(w.h.FD(), slice)
		if err != nil {
			return &OpError{Op: OpFlush, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamFlush, err)}
		}
		if !ready {
			continue
		}

		pending := w.st.buf.Bytes()
		end := len(pending)
		if end > w.chunkSize {
			end = w.chunkSize
		}
		n, err := unix.Write(w.h.FD(), pending[:end])
		if err != nil {
			return &OpError{Op: OpFlush, Path: "", Err: fmt.Errorf("%w: %w", ErrStreamFlush, err)}
		}
		w.st.buf.Next(n)
	}
	return nil
}

// Buffered returns the number of bytes held in the internal buffer
func (w *StreamWriter) Buffered() int {
	w.st.mu.Lock()
	defer w.st.mu.Unlock()
	return w.st.buf.Len()
}

// Close flushes best-effort and releases the underlying handle. It is
// idempotent and never reports failure.
func (w *StreamWriter) Close() {
	w.st.mu.Lock()
	_ = w.flushDeadlineLocked(context.Background(), time.Now().Add(DefaultPollInterval))
	w.st.mu.Unlock()
	w.h.Close()
}
