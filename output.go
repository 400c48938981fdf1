package spawn

import (
	"encoding/json"

	"github.com/google/renameio/v2"
)

// Output is the immutable captured result of a finished process: stdout
// bytes, stderr bytes, and the exit code. It is created once when a run
// or output call completes and never mutated.
type Output struct {
	stdout   string
	stderr   string
	exitCode int
}

// NewOutput constructs an Output snapshot
func NewOutput(stdout, stderr []byte, exitCode int) Output {
	return Output{
		stdout:   string(stdout),
		stderr:   string(stderr),
		exitCode: exitCode,
	}
}

// Stdout returns the captured standard output
func (o Output) Stdout() string {
	return o.stdout
}

// StdoutBytes returns the captured standard output as a fresh byte slice
func (o Output) StdoutBytes() []byte {
	return []byte(o.stdout)
}

// Stderr returns the captured standard error
func (o Output) Stderr() string {
	return o.stderr
}

// StderrBytes returns the captured standard error as a fresh byte slice
func (o Output) StderrBytes() []byte {
	return []byte(o.stderr)
}

// ExitCode returns the OS-reported exit code
func (o Output) ExitCode() int {
	return o.exitCode
}

// Success reports whether the exit code is zero
func (o Output) Success() bool {
	return o.exitCode == 0
}

// Failure reports whether the exit code is non-zero
func (o Output) Failure() bool {
	return o.exitCode != 0
}

// String projects the output to stdout on success and stderr on failure
func (o Output) String() string {
	if o.Success() {
		return o.stdout
	}
	return o.stderr
}

// WriteStdoutFile writes the captured stdout to path atomically: readers
// observe either the previous content or the complete capture, never a
// partial write.
func (o Output) WriteStdoutFile(path string) error {
	return renameio.WriteFile(path, []byte(o.stdout), FileMode)
}

// WriteStderrFile writes the captured stderr to path atomically
func (o Output) WriteStderrFile(path string) error {
	return renameio.WriteFile(path, []byte(o.stderr), FileMode)
}

// MarshalJSON encodes the snapshot for tooling output
func (o Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
		ExitCode int    `json:"exit_code"`
	}{o.stdout, o.stderr, o.exitCode})
}
