package spawn

import "os"

// StreamKind identifies how a file descriptor is wired before the child
// process starts
type StreamKind int

const (
	// KindUnset marks a descriptor with no wiring configured
	KindUnset StreamKind = iota
	// KindPipeRead wires a pipe whose read end the child receives;
	// the parent keeps the write end (the stdin direction)
	KindPipeRead
	// KindPipeWrite wires a pipe whose write end the child receives;
	// the parent keeps the read end (the stdout/stderr direction)
	KindPipeWrite
	// KindFile opens a file on the given path for the child
	KindFile
	// KindInherit passes the parent's descriptor through unchanged
	KindInherit
	// KindHandle passes a caller-supplied open file
	KindHandle
	// KindNull wires the null device
	KindNull
)

// String returns the string representation of the kind
func (k StreamKind) String() string {
	switch k {
	case KindPipeRead:
		return "pipe-read"
	case KindPipeWrite:
		return "pipe-write"
	case KindFile:
		return "file"
	case KindInherit:
		return "inherit"
	case KindHandle:
		return "handle"
	case KindNull:
		return "null"
	default:
		return "unset"
	}
}

// StreamDescriptor is an immutable declaration of how one file descriptor
// should be wired at spawn time
type StreamDescriptor struct {
	// Kind selects the wiring mechanism
	Kind StreamKind
	// Path is the file path for KindFile
	Path string
	// Flags are the os.OpenFile flags for KindFile
	Flags int
	// Perm is the file creation mode for KindFile
	Perm os.FileMode
	// Handle is the caller-supplied file for KindHandle
	Handle *os.File
}

// PipeFrom declares a pipe the child reads from (parent writes)
func PipeFrom() StreamDescriptor {
	return StreamDescriptor{Kind: KindPipeRead}
}

// PipeTo declares a pipe the child writes to (parent reads)
func PipeTo() StreamDescriptor {
	return StreamDescriptor{Kind: KindPipeWrite}
}

// ReadFile declares a file opened read-only for the child
func ReadFile(path string) StreamDescriptor {
	return StreamDescriptor{Kind: KindFile, Path: path, Flags: os.O_RDONLY}
}

// WriteFile declares a file created or truncated for the child to write
func WriteFile(path string) StreamDescriptor {
	return StreamDescriptor{
		Kind:  KindFile,
		Path:  path,
		Flags: os.O_WRONLY | os.O_CREATE | os.O_TRUNC,
		Perm:  FileMode,
	}
}

// AppendFile declares a file created or appended for the child to write
func AppendFile(path string) StreamDescriptor {
	return StreamDescriptor{
		Kind:  KindFile,
		Path:  path,
		Flags: os.O_WRONLY | os.O_CREATE | os.O_APPEND,
		Perm:  FileMode,
	}
}

// InheritFD declares that the child inherits the parent's descriptor
func InheritFD() StreamDescriptor {
	return StreamDescriptor{Kind: KindInherit}
}

// HandleFD declares a caller-supplied open file for the child. The caller
// retains ownership of the file; spawning does not close it.
func HandleFD(f *os.File) StreamDescriptor {
	return StreamDescriptor{Kind: KindHandle, Handle: f}
}

// NullFD declares the null device
func NullFD() StreamDescriptor {
	return StreamDescriptor{Kind: KindNull}
}

// FileMode is the default creation mode for redirection target files
const FileMode = 0o644

// ProcessStreams is an immutable wiring table from descriptor number to
// StreamDescriptor. Every With call returns a structural copy, so streams
// values derived from a common base never interfere.
type ProcessStreams struct {
	table map[int]StreamDescriptor
}

// PipeStreams wires stdin, stdout, and stderr as pipes. This is the
// Command default.
func PipeStreams() ProcessStreams {
	return ProcessStreams{table: map[int]StreamDescriptor{
		FDStdin:  PipeFrom(),
		FDStdout: PipeTo(),
		FDStderr: PipeTo(),
	}}
}

// InheritStreams wires stdin, stdout, and stderr to the parent's
// descriptors. This is the ProcessBuilder default.
func InheritStreams() ProcessStreams {
	return ProcessStreams{table: map[int]StreamDescriptor{
		FDStdin:  InheritFD(),
		FDStdout: InheritFD(),
		FDStderr: InheritFD(),
	}}
}

// NullStreams wires stdin, stdout, and stderr to the null device
func NullStreams() ProcessStreams {
	return ProcessStreams{table: map[int]StreamDescriptor{
		FDStdin:  NullFD(),
		FDStdout: NullFD(),
		FDStderr: NullFD(),
	}}
}

// With returns a copy of the table with the descriptor for fd replaced.
// Exactly one descriptor exists per number; replacing is the only way to
// change a wiring.
func (ps ProcessStreams) With(fd int, desc StreamDescriptor) ProcessStreams {
	next := make(map[int]StreamDescriptor, len(ps.table)+1)
	for k, v := range ps.table {
		next[k] = v
	}
	next[fd] = desc
	return ProcessStreams{table: next}
}

// Descriptor returns the wiring for fd, if one is configured
func (ps ProcessStreams) Descriptor(fd int) (StreamDescriptor, bool) {
	d, ok := ps.table[fd]
	return d, ok
}

// MaxFD returns the highest configured descriptor number, or -1 when the
// table is empty
func (ps ProcessStreams) MaxFD() int {
	maxFD := -1
	for fd := range ps.table {
		if fd > maxFD {
			maxFD = fd
		}
	}
	return maxFD
}
