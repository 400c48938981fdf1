package spawn

import "syscall"

// Status is an immutable snapshot of a process's state, captured at one
// instant. It does not refresh. Once the process has died, the snapshot
// is memoized inside Process: the underlying OS exit status is reliably
// obtainable only once, so every later query serves the same value.
type Status struct {
	// Command is the program and arguments as a single string
	Command string
	// PID is the OS process identifier
	PID int
	// Running indicates the process had not exited when the snapshot
	// was taken
	Running bool
	// Signaled indicates the process was terminated by a signal
	Signaled bool
	// Stopped indicates the process was stopped (SIGSTOP/SIGTSTP) when
	// observed through a wait status; it is not tracked for processes
	// that merely received SIGSTOP without a wait observation
	Stopped bool
	// ExitCode is the OS-reported exit code, or -1 while running.
	// Signal deaths report the conventional 128+signal value.
	ExitCode int
	// Signal is the terminating signal for signal deaths
	Signal Signal
	// StopSignal is the stopping signal when Stopped is set
	StopSignal Signal
}

// Success reports a normal exit with code zero
func (s Status) Success() bool {
	return !s.Running && !s.Signaled && s.ExitCode == 0
}

// Failure reports a finished process that did not succeed
func (s Status) Failure() bool {
	return !s.Running && !s.Success()
}

// runningStatus builds the snapshot served while the process is alive
func runningStatus(command string, pid int) Status {
	return Status{
		Command:  command,
		PID:      pid,
		Running:  true,
		ExitCode: -1,
	}
}

// deadStatus decodes a wait status into the memoized snapshot
func deadStatus(command string, pid int, ws syscall.WaitStatus) Status {
	st := Status{
		Command: command,
		PID:     pid,
	}
	switch {
	case ws.Signaled():
		st.Signaled = true
		st.Signal = signalFromSys(ws.Signal())
		st.ExitCode = 128 + int(ws.Signal())
	case ws.Stopped():
		st.Stopped = true
		st.StopSignal = signalFromSys(ws.StopSignal())
		st.ExitCode = -1
	default:
		st.ExitCode = ws.ExitStatus()
	}
	return st
}
