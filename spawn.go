package spawn

import "time"

// Standard file descriptor numbers
const (
	// FDStdin is the standard input descriptor
	FDStdin = 0

	// FDStdout is the standard output descriptor
	FDStdout = 1

	// FDStderr is the standard error descriptor
	FDStderr = 2
)

// Defaults used by Command, StreamReader, and StreamWriter
const (
	// DefaultTimeout is the timeout budget a Command applies to Run and Output
	DefaultTimeout = 30 * time.Second

	// DefaultPollInterval is the maximum slice of the remaining budget spent
	// in a single readiness wait. Budgeted loops re-poll on this cadence so
	// cancellation and shrinking budgets are observed promptly.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultBufferSize is the StreamWriter buffer size before auto-flush
	DefaultBufferSize = 4096

	// DefaultChunkSize is the per-write chunk bound used by WriteChunked.
	// It stays below the common 64 KiB kernel pipe buffer so a single chunk
	// can always make progress once the pipe drains.
	DefaultChunkSize = 32 * 1024

	// DefaultLineEnding is appended by WriteLine and WriteLines
	DefaultLineEnding = "\n"

	// DefaultRecheckInterval is how often WaitForPath re-stats the target
	// path as a fallback for missed filesystem events
	DefaultRecheckInterval = 250 * time.Millisecond

	// readChunkSize is the scratch buffer size for a single pipe read
	readChunkSize = 32 * 1024
)

// Operation represents an operation type, used in OpError to identify
// which part of the lifecycle failed
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpSpawn is process creation
	OpSpawn
	// OpWait is waiting for process exit
	OpWait
	// OpSignal is signal delivery
	OpSignal
	// OpRead is a pipe read
	OpRead
	// OpWrite is a pipe write
	OpWrite
	// OpFlush is flushing buffered writes
	OpFlush
	// OpDrain is draining stdout/stderr to completion
	OpDrain
	// OpPipeline is pipeline orchestration
	OpPipeline
	// OpWatch is waiting for a filesystem path to appear
	OpWatch
)

// String returns the string representation of the operation
func (o Operation) String() string {
	switch o {
	case OpSpawn:
		return "spawn"
	case OpWait:
		return "wait"
	case OpSignal:
		return "signal"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpFlush:
		return "flush"
	case OpDrain:
		return "drain"
	case OpPipeline:
		return "pipeline"
	case OpWatch:
		return "watch"
	default:
		return "unknown"
	}
}
