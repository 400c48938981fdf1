package spawn

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/axondata/go-spawn/internal/unix"
)

// envPolicy selects how the child environment is resolved at spawn time
type envPolicy int

const (
	// envInherit merges explicit variables over the parent environment
	envInherit envPolicy = iota
	// envExplicit uses only the explicitly configured variables
	envExplicit
)

// ProcessBuilder is an immutable configuration for one process: program,
// arguments, working directory, environment policy, and stream wiring.
// Every setter returns a new builder by structural copy, so builders
// derived from a common base never interfere. Arguments are always passed
// as a literal vector to the OS process-creation primitive; no command
// shell is ever involved.
type ProcessBuilder struct {
	name    string
	args    []string
	dir     string
	env     map[string]string
	policy  envPolicy
	streams ProcessStreams
	logger  zerolog.Logger
}

// NewBuilder creates a builder for the named program. The default wiring
// inherits the parent's stdin, stdout, and stderr, and the default
// environment policy inherits the parent environment.
func NewBuilder(name string, args ...string) ProcessBuilder {
	return ProcessBuilder{
		name:    name,
		args:    append([]string(nil), args...),
		policy:  envInherit,
		streams: InheritStreams(),
		logger:  zerolog.Nop(),
	}
}

// clone returns a structural copy with its own argument slice and
// environment map
func (b ProcessBuilder) clone() ProcessBuilder {
	nb := b
	nb.args = append([]string(nil), b.args...)
	if b.env != nil {
		nb.env = make(map[string]string, len(b.env))
		for k, v := range b.env {
			nb.env[k] = v
		}
	}
	return nb
}

// Arg returns a builder with one argument appended
func (b ProcessBuilder) Arg(arg string) ProcessBuilder {
	nb := b.clone()
	nb.args = append(nb.args, arg)
	return nb
}

// Args returns a builder with the arguments appended
func (b ProcessBuilder) Args(args ...string) ProcessBuilder {
	nb := b.clone()
	nb.args = append(nb.args, args...)
	return nb
}

// WorkingDir returns a builder with the working directory set. The
// directory must exist at spawn time.
func (b ProcessBuilder) WorkingDir(dir string) ProcessBuilder {
	nb := b.clone()
	nb.dir = dir
	return nb
}

// Env returns a builder with one environment variable set
func (b ProcessBuilder) Env(key, value string) ProcessBuilder {
	nb := b.clone()
	if nb.env == nil {
		nb.env = make(map[string]string, 1)
	}
	nb.env[key] = value
	return nb
}

// EnvMap returns a builder with all given environment variables set
func (b ProcessBuilder) EnvMap(vars map[string]string) ProcessBuilder {
	nb := b.clone()
	if nb.env == nil {
		nb.env = make(map[string]string, len(vars))
	}
	for k, v := range vars {
		nb.env[k] = v
	}
	return nb
}

// InheritEnv returns a builder whose child either merges explicit
// variables over the parent environment (true, the default) or receives
// only the explicit variables (false)
func (b ProcessBuilder) InheritEnv(inherit bool) ProcessBuilder {
	nb := b.clone()
	if inherit {
		nb.policy = envInherit
	} else {
		nb.policy = envExplicit
	}
	return nb
}

// ClearEnv returns a builder with a cleared environment: previously
// configured variables are dropped and the parent environment is not
// inherited. Variables set afterwards are the child's entire environment.
func (b ProcessBuilder) ClearEnv() ProcessBuilder {
	nb := b.clone()
	nb.policy = envExplicit
	nb.env = nil
	return nb
}

// Streams returns a builder with the stream wiring table replaced
func (b ProcessBuilder) Streams(ps ProcessStreams) ProcessBuilder {
	nb := b.clone()
	nb.streams = ps
	return nb
}

// Logger returns a builder that emits debug events through the given
// logger. The default logger discards everything.
func (b ProcessBuilder) Logger(logger zerolog.Logger) ProcessBuilder {
	nb := b.clone()
	nb.logger = logger
	return nb
}

// Name returns the configured program name
func (b ProcessBuilder) Name() string {
	return b.name
}

// CommandString returns the program and arguments as a single
// space-joined string, used for status snapshots and logging
func (b ProcessBuilder) CommandString() string {
	if len(b.args) == 0 {
		return b.name
	}
	return b.name + " " + strings.Join(b.args, " ")
}

// Spawn validates the configuration, wires the descriptor table, and
// starts the OS process. On success the returned Process owns the new OS
// handle and the parent ends of any wired pipes.
func (b ProcessBuilder) Spawn(ctx context.Context) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.name == "" {
		return nil, &OpError{Op: OpSpawn, Path: b.name, Err: ErrInvalidCommand}
	}
	if b.dir != "" {
		fi, err := os.Stat(b.dir)
		if err != nil || !fi.IsDir() {
			return nil, &OpError{Op: OpSpawn, Path: b.dir, Err: ErrInvalidWorkingDirectory}
		}
	}

	path, err := exec.LookPath(b.name)
	if err != nil {
		return nil, &OpError{Op: OpSpawn, Path: b.name, Err: fmt.Errorf("%w: %w", ErrSpawnFailed, err)}
	}

	wiring, err := b.wireStreams()
	if err != nil {
		return nil, &OpError{Op: OpSpawn, Path: b.name, Err: fmt.Errorf("%w: %w", ErrSpawnFailed, err)}
	}

	argv := append([]string{b.name}, b.args...)
	attr := &os.ProcAttr{
		Dir:   b.dir,
		Env:   b.resolveEnv(),
		Files: wiring.files,
	}

	proc, err := os.StartProcess(path, argv, attr)

	// The child holds its own copies now; the parent's duplicates of the
	// child-side ends must go either way.
	wiring.closeChildSide()

	if err != nil {
		wiring.closeParentSide()
		return nil, &OpError{Op: OpSpawn, Path: b.name, Err: fmt.Errorf("%w: %w", ErrSpawnFailed, err)}
	}

	b.logger.Debug().
		Str("program", b.name).
		Strs("args", b.args).
		Int("pid", proc.Pid).
		Msg("spawned")

	return newProcess(proc, b.CommandString(), b.logger, wiring), nil
}

// resolveEnv materializes the child environment per the configured policy.
// Keys are sorted so repeated spawns are deterministic.
func (b ProcessBuilder) resolveEnv() []string {
	merged := make(map[string]string)
	if b.policy == envInherit {
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i >= 0 {
				merged[kv[:i]] = kv[i+1:]
			}
		}
	}
	for k, v := range b.env {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// spawnWiring carries the materialized descriptor table plus the pipe
// ends each side keeps
type spawnWiring struct {
	// files is the child descriptor table passed to os.StartProcess
	files []*os.File
	// childSide holds files the parent opened for the child and must
	// close after the fork: pipe child ends, redirection files, null
	childSide []*os.File
	// stdin is the parent's write end of the stdin pipe, if wired
	stdin *StreamHandle
	// stdout and stderr are the parent's read ends, if wired
	stdout *StreamHandle
	stderr *StreamHandle
	// extra maps custom descriptor numbers to their parent pipe ends
	extra map[int]*StreamHandle
}

func (w *spawnWiring) closeChildSide() {
	for _, f := range w.childSide {
		_ = f.Close()
	}
	w.childSide = nil
}

func (w *spawnWiring) closeParentSide() {
	for _, h := range []*StreamHandle{w.stdin, w.stdout, w.stderr} {
		if h != nil {
			h.Close()
		}
	}
	for _, h := range w.extra {
		h.Close()
	}
}

// wireStreams turns the wiring table into a descriptor slice for
// os.StartProcess. Unconfigured slots up to the highest descriptor are
// filled with the null device. Parent pipe ends are switched to
// nonblocking mode for readiness multiplexing.
func (b ProcessBuilder) wireStreams() (*spawnWiring, error) {
	maxFD := b.streams.MaxFD()
	if maxFD < FDStderr {
		maxFD = FDStderr
	}

	w := &spawnWiring{
		files: make([]*os.File, maxFD+1),
		extra: make(map[int]*StreamHandle),
	}

	var devNull *os.File
	null := func() (*os.File, error) {
		if devNull == nil {
			f, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
			if err != nil {
				return nil, err
			}
			devNull = f
			w.childSide = append(w.childSide, f)
		}
		return devNull, nil
	}

	fail := func(err error) (*spawnWiring, error) {
		w.closeChildSide()
		w.closeParentSide()
		return nil, err
	}

	for fd := 0; fd <= maxFD; fd++ {
		desc, ok := b.streams.Descriptor(fd)
		if !ok {
			desc = NullFD()
		}

		switch desc.Kind {
		case KindPipeRead:
			r, pw, err := os.Pipe()
			if err != nil {
				return fail(err)
			}
			w.files[fd] = r
			w.childSide = append(w.childSide, r)
			h, err := newStreamHandle(pw)
			if err != nil {
				_ = pw.Close()
				return fail(err)
			}
			w.keep(fd, h)

		case KindPipeWrite:
			pr, wr, err := os.Pipe()
			if err != nil {
				return fail(err)
			}
			w.files[fd] = wr
			w.childSide = append(w.childSide, wr)
			h, err := newStreamHandle(pr)
			if err != nil {
				_ = pr.Close()
				return fail(err)
			}
			w.keep(fd, h)

		case KindFile:
			f, err := os.OpenFile(desc.Path, desc.Flags, desc.Perm)
			if err != nil {
				return fail(err)
			}
			w.files[fd] = f
			w.childSide = append(w.childSide, f)

		case KindInherit:
			switch fd {
			case FDStdin:
				w.files[fd] = os.Stdin
			case FDStdout:
				w.files[fd] = os.Stdout
			case FDStderr:
				w.files[fd] = os.Stderr
			default:
				// Wrapping the live descriptor directly would hand it to the
				// transient File's finalizer; a dup keeps the parent's copy
				// safe, and the dup is closed with the rest of the child side.
				dupFD, err := unix.Dup(fd)
				if err != nil {
					return fail(err)
				}
				f := os.NewFile(uintptr(dupFD), "inherited")
				w.files[fd] = f
				w.childSide = append(w.childSide, f)
			}

		case KindHandle:
			// Caller keeps ownership; not added to childSide.
			w.files[fd] = desc.Handle

		default: // KindNull and unconfigured slots
			f, err := null()
			if err != nil {
				return fail(err)
			}
			w.files[fd] = f
		}
	}

	return w, nil
}

// keep records a parent pipe end under its descriptor number
func (w *spawnWiring) keep(fd int, h *StreamHandle) {
	switch fd {
	case FDStdin:
		w.stdin = h
	case FDStdout:
		w.stdout = h
	case FDStderr:
		w.stderr = h
	default:
		w.extra[fd] = h
	}
}
