package spawn

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Command is an immutable, higher-level facade over ProcessBuilder with
// working defaults: a 30-second timeout budget, stdin/stdout/stderr all
// wired as pipes, and the current working directory. Like the builder,
// every setter returns a new value.
type Command struct {
	builder ProcessBuilder
	timeout time.Duration
}

// NewCommand creates a command for the named program with default pipes
// and the default timeout
func NewCommand(name string, args ...string) Command {
	return Command{
		builder: NewBuilder(name, args...).Streams(PipeStreams()),
		timeout: DefaultTimeout,
	}
}

// Arg returns a command with one argument appended
func (c Command) Arg(arg string) Command {
	c.builder = c.builder.Arg(arg)
	return c
}

// Args returns a command with the arguments appended
func (c Command) Args(args ...string) Command {
	c.builder = c.builder.Args(args...)
	return c
}

// WorkingDir returns a command with the working directory set
func (c Command) WorkingDir(dir string) Command {
	c.builder = c.builder.WorkingDir(dir)
	return c
}

// Env returns a command with one environment variable set
func (c Command) Env(key, value string) Command {
	c.builder = c.builder.Env(key, value)
	return c
}

// EnvMap returns a command with all given environment variables set
func (c Command) EnvMap(vars map[string]string) Command {
	c.builder = c.builder.EnvMap(vars)
	return c
}

// InheritEnv returns a command with the environment inheritance policy set
func (c Command) InheritEnv(inherit bool) Command {
	c.builder = c.builder.InheritEnv(inherit)
	return c
}

// ClearEnv returns a command with a cleared environment
func (c Command) ClearEnv() Command {
	c.builder = c.builder.ClearEnv()
	return c
}

// Timeout returns a command whose Run and Output use the given budget
func (c Command) Timeout(d time.Duration) Command {
	c.timeout = d
	return c
}

// Logger returns a command that emits debug events through the logger
func (c Command) Logger(logger zerolog.Logger) Command {
	c.builder = c.builder.Logger(logger)
	return c
}

// WithStreams returns a command with the stream wiring table replaced
func (c Command) WithStreams(ps ProcessStreams) Command {
	c.builder = c.builder.Streams(ps)
	return c
}

// FromFile returns a command whose stdin reads from the given file
func (c Command) FromFile(path string) Command {
	c.builder = c.builder.Streams(c.builder.streams.With(FDStdin, ReadFile(path)))
	return c
}

// ToFile returns a command whose stdout writes to the given file
func (c Command) ToFile(path string) Command {
	c.builder = c.builder.Streams(c.builder.streams.With(FDStdout, WriteFile(path)))
	return c
}

// ErrToFile returns a command whose stderr writes to the given file
func (c Command) ErrToFile(path string) Command {
	c.builder = c.builder.Streams(c.builder.streams.With(FDStderr, WriteFile(path)))
	return c
}

// Quiet returns a command whose stdout and stderr go to the null device
func (c Command) Quiet() Command {
	ps := c.builder.streams.
		With(FDStdout, NullFD()).
		With(FDStderr, NullFD())
	c.builder = c.builder.Streams(ps)
	return c
}

// CommandString returns the program and arguments as a single string
func (c Command) CommandString() string {
	return c.builder.CommandString()
}

// Spawn starts the process and returns the raw handle without waiting
func (c Command) Spawn(ctx context.Context) (*Process, error) {
	return c.builder.Spawn(ctx)
}

// Run spawns the process and collects its complete Output within the
// configured timeout. A non-zero exit code is returned as an *ExitError
// alongside the Output, so stdout and stderr remain inspectable on both
// paths. On timeout or any collection failure the child is killed before
// the handle is released: Run never exposes the handle, so a surviving
// child would be an orphan nobody can signal.
func (c Command) Run(ctx context.Context) (Output, error) {
	p, err := c.Spawn(ctx)
	if err != nil {
		return Output{}, err
	}
	defer p.Close()

	out, err := p.Output(ctx, c.timeout)
	if err != nil {
		_ = p.Kill()
		return Output{}, err
	}
	if out.Failure() {
		return out, &ExitError{Output: out}
	}
	return out, nil
}

// Stdout runs the command and projects the result to stdout only
func (c Command) Stdout(ctx context.Context) (string, error) {
	out, err := c.Run(ctx)
	if err != nil {
		return "", err
	}
	return out.Stdout(), nil
}

// Pipe joins this command with the next into a Pipeline; further stages
// chain with Pipeline.Pipe
func (c Command) Pipe(next Command) Pipeline {
	return Pipeline{
		stages:  []Command{c, next},
		timeout: c.timeout,
	}
}
