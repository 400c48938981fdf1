package spawn

import (
	"bytes"
	"context"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/axondata/go-spawn/internal/unix"
)

// procState tracks the process lifecycle: Running transitions to Exited
// or Killed when death is observed, and Closed once resources are
// released. Closed is terminal.
type procState int

const (
	stateRunning procState = iota
	stateExited
	stateKilled
	stateClosed
)

// Process is the mutable runtime handle to a spawned OS process: the
// counterpart to ProcessBuilder's immutable configuration. It owns the
// OS process handle and the parent ends of any wired pipes, and it has
// exactly one owner until Close.
type Process struct {
	cmdline string
	logger  zerolog.Logger

	mu        sync.Mutex
	proc      *os.Process
	pid       int
	state     procState
	status    Status
	hasStatus bool
	waitErr   error

	stdin  *StreamHandle
	stdout *StreamHandle
	stderr *StreamHandle
	extra  map[int]*StreamHandle

	// reaper starts the single goroutine allowed to call os.Process.Wait,
	// which is valid only once per process death. The decoded status is
	// memoized so every later query is consistent.
	reaper  sync.Once
	reaping bool
	done    chan struct{}
}

// newProcess wraps a freshly started OS process and the pipe ends the
// parent kept
func newProcess(proc *os.Process, cmdline string, logger zerolog.Logger, w *spawnWiring) *Process {
	return &Process{
		cmdline: cmdline,
		logger:  logger,
		proc:    proc,
		pid:     proc.Pid,
		state:   stateRunning,
		stdin:   w.stdin,
		stdout:  w.stdout,
		stderr:  w.stderr,
		extra:   w.extra,
		done:    make(chan struct{}),
	}
}

// ensureReaper starts the wait goroutine once. Callers must not block on
// p.done without first checking that the process is not closed, since a
// process closed before any wait never starts a reaper.
func (p *Process) ensureReaper() {
	p.reaper.Do(func() {
		p.mu.Lock()
		if p.state == stateClosed {
			p.mu.Unlock()
			return
		}
		p.reaping = true
		proc := p.proc
		p.mu.Unlock()

		go func() {
			ps, err := proc.Wait()

			p.mu.Lock()
			defer p.mu.Unlock()

			if err != nil {
				p.waitErr = err
			} else {
				ws, _ := ps.Sys().(syscall.WaitStatus)
				p.status = deadStatus(p.cmdline, p.pid, ws)
				p.hasStatus = true
				if p.state == stateRunning {
					if p.status.Signaled {
						p.state = stateKilled
					} else {
						p.state = stateExited
					}
				}
				p.logger.Debug().
					Int("pid", p.pid).
					Int("exit_code", p.status.ExitCode).
					Bool("signaled", p.status.Signaled).
					Msg("process exited")
			}
			close(p.done)
		}()
	})
}

// PID returns the OS process identifier. It fails with ErrInvalidPid
// once the process has been closed.
func (p *Process) PID() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateClosed {
		return 0, ErrInvalidPid
	}
	return p.pid, nil
}

// IsRunning reports whether the process is still alive. It never blocks
// and is consistent with the memoized exit status.
func (p *Process) IsRunning() bool {
	p.mu.Lock()
	if p.state != stateRunning {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	p.ensureReaper()
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Status returns a snapshot of the process state. After death the
// memoized snapshot is served, so repeated calls agree; while running
// the snapshot carries Running=true and an exit code of -1.
func (p *Process) Status() Status {
	running := p.IsRunning()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasStatus {
		return p.status
	}
	if !running {
		// Closed before any exit observation; no status will ever arrive.
		return Status{Command: p.cmdline, PID: p.pid, ExitCode: -1}
	}
	return runningStatus(p.cmdline, p.pid)
}

// Wait blocks until the process exits or the timeout budget is
// exhausted. On exit it returns the memoized Status. On timeout it fails
// with ErrTimeout and leaves the process untouched; callers wanting
// cancellation must Signal or Kill explicitly.
func (p *Process) Wait(ctx context.Context, timeout time.Duration) (Status, error) {
	p.mu.Lock()
	if p.hasStatus {
		st := p.status
		p.mu.Unlock()
		return st, nil
	}
	if p.state == stateClosed {
		p.mu.Unlock()
		return Status{}, &OpError{Op: OpWait, Path: p.cmdline, Err: ErrClosed}
	}
	p.mu.Unlock()

	p.ensureReaper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.waitErr != nil {
			return Status{}, &OpError{Op: OpWait, Path: p.cmdline, Err: p.waitErr}
		}
		return p.status, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-timer.C:
		return Status{}, &OpError{Op: OpWait, Path: p.cmdline, Err: ErrTimeout}
	}
}

// Signal delivers the given signal to the process. Delivery to an
// already-exited process fails with ErrSignalFailed.
func (p *Process) Signal(sig Signal) error {
	num, ok := sig.sys()
	if !ok {
		return &OpError{Op: OpSignal, Path: p.cmdline, Err: ErrSignalFailed}
	}

	p.mu.Lock()
	if p.state == stateClosed {
		p.mu.Unlock()
		return &OpError{Op: OpSignal, Path: p.cmdline, Err: ErrInvalidPid}
	}
	proc := p.proc
	p.mu.Unlock()

	if err := proc.Signal(num); err != nil {
		return &OpError{Op: OpSignal, Path: p.cmdline, Err: ErrSignalFailed}
	}

	p.logger.Debug().Int("pid", p.pid).Str("signal", sig.String()).Msg("signal sent")
	return nil
}

// Terminate sends SIGTERM, the polite termination request
func (p *Process) Terminate() error {
	return p.Signal(SignalTerminate)
}

// Kill sends SIGKILL for forceful termination
func (p *Process) Kill() error {
	return p.Signal(SignalKill)
}

// Output is the canonical collection operation: it closes stdin to
// signal EOF to the child, drains stdout and stderr through a single
// readiness-multiplexed loop until both reach EOF, waits for exit with
// the remaining budget, and snapshots the result. The stdout and stderr
// pipe ends are closed afterwards; the process handle is not.
//
// A timeout discards partially accumulated bytes and fails whole; use
// StreamReader's incremental operations when partial data matters.
func (p *Process) Output(ctx context.Context, timeout time.Duration) (Output, error) {
	deadline := time.Now().Add(timeout)

	p.mu.Lock()
	if p.state == stateClosed {
		p.mu.Unlock()
		return Output{}, &OpError{Op: OpDrain, Path: p.cmdline, Err: ErrClosed}
	}
	stdin, stdout, stderr := p.stdin, p.stdout, p.stderr
	p.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}

	var outBuf, errBuf bytes.Buffer
	if err := p.drain(ctx, deadline, stdout, stderr, &outBuf, &errBuf); err != nil {
		return Output{}, err
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	st, err := p.Wait(ctx, remaining)
	if err != nil {
		return Output{}, err
	}

	if stdout != nil {
		stdout.Close()
	}
	if stderr != nil {
		stderr.Close()
	}

	return NewOutput(outBuf.Bytes(), errBuf.Bytes(), st.ExitCode), nil
}

// drainTarget pairs a live pipe end with its accumulation buffer
type drainTarget struct {
	h   *StreamHandle
	buf *bytes.Buffer
	eof bool
}

// drain multiplexes reads over stdout and stderr with one poll(2) call
// per iteration, decrementing the budget each slice, until every live
// pipe reaches EOF
func (p *Process) drain(ctx context.Context, deadline time.Time, stdout, stderr *StreamHandle, outBuf, errBuf *bytes.Buffer) error {
	var targets []*drainTarget
	if stdout != nil && !stdout.Closed() {
		targets = append(targets, &drainTarget{h: stdout, buf: outBuf})
	}
	if stderr != nil && !stderr.Closed() {
		targets = append(targets, &drainTarget{h: stderr, buf: errBuf})
	}

	scratch := make([]byte, readChunkSize)

	for {
		live := targets[:0:0]
		for _, t := range targets {
			if !t.eof {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &OpError{Op: OpDrain, Path: p.cmdline, Err: ErrTimeout}
		}
		slice := remaining
		if slice > DefaultPollInterval {
			slice = DefaultPollInterval
		}

		fds := make([]int, len(live))
		for i, t := range live {
			fds[i] = t.h.FD()
		}
		ready, err := unix.PollRead(fds, slice)
		if err != nil {
			return &OpError{Op: OpDrain, Path: p.cmdline, Err: ErrStreamRead}
		}

		for i, t := range live {
			if !ready[i] {
				continue
			}
			for {
				n, eof, rerr := unix.Read(t.h.FD(), scratch)
				if rerr != nil {
					return &OpError{Op: OpDrain, Path: p.cmdline, Err: ErrStreamRead}
				}
				if n > 0 {
					t.buf.Write(scratch[:n])
					continue
				}
				if eof {
					t.eof = true
				}
				break
			}
		}
	}
}

// WriteStdin writes data to the child's stdin pipe with immediate flush
func (p *Process) WriteStdin(data []byte) (int, error) {
	h, err := p.Stdin()
	if err != nil {
		return 0, err
	}
	return NewAutoFlushingWriter(h).Write(data)
}

// CloseStdin closes the stdin pipe, signaling EOF to the child. It is a
// no-op when stdin was not wired as a pipe or is already closed.
func (p *Process) CloseStdin() {
	p.mu.Lock()
	stdin := p.stdin
	p.mu.Unlock()
	if stdin != nil {
		stdin.Close()
	}
}

// Stdin exposes the write end of the stdin pipe
func (p *Process) Stdin() (*StreamHandle, error) {
	return p.handle(p.stdin)
}

// Stdout exposes the read end of the stdout pipe
func (p *Process) Stdout() (*StreamHandle, error) {
	return p.handle(p.stdout)
}

// Stderr exposes the read end of the stderr pipe
func (p *Process) Stderr() (*StreamHandle, error) {
	return p.handle(p.stderr)
}

// ExtraStream exposes the parent end of a pipe wired on a custom
// descriptor number
func (p *Process) ExtraStream(fd int) (*StreamHandle, error) {
	p.mu.Lock()
	h := p.extra[fd]
	p.mu.Unlock()
	return p.handle(h)
}

func (p *Process) handle(h *StreamHandle) (*StreamHandle, error) {
	if h == nil || h.Closed() {
		return nil, ErrNotPiped
	}
	return h, nil
}

// StdinWriter returns an auto-flushing StreamWriter over the stdin pipe,
// suited for interactive use where every write must reach the child
// immediately
func (p *Process) StdinWriter() (*StreamWriter, error) {
	h, err := p.Stdin()
	if err != nil {
		return nil, err
	}
	return NewAutoFlushingWriter(h), nil
}

// StdoutReader returns a StreamReader over the stdout pipe
func (p *Process) StdoutReader() (*StreamReader, error) {
	h, err := p.Stdout()
	if err != nil {
		return nil, err
	}
	return NewStreamReader(h), nil
}

// StderrReader returns a StreamReader over the stderr pipe
func (p *Process) StderrReader() (*StreamReader, error) {
	h, err := p.Stderr()
	if err != nil {
		return nil, err
	}
	return NewStreamReader(h), nil
}

// Close releases all open pipe ends and the OS process handle. It is
// idempotent, never reports failure, and is safe after exit, after Kill,
// or after an earlier Close. The OS process itself is not terminated.
func (p *Process) Close() {
	p.mu.Lock()
	if p.state == stateClosed {
		p.mu.Unlock()
		return
	}
	p.state = stateClosed
	handles := []*StreamHandle{p.stdin, p.stdout, p.stderr}
	for _, h := range p.extra {
		handles = append(handles, h)
	}
	reaping := p.reaping
	proc := p.proc
	p.mu.Unlock()

	for _, h := range handles {
		if h != nil {
			h.Close()
		}
	}

	// The reaper goroutine, once started, owns the process handle: its
	// Wait call releases it. Only an unreaped handle is released here.
	if !reaping && proc != nil {
		_ = proc.Release()
	}

	p.logger.Debug().Int("pid", p.pid).Msg("process closed")
}
