package spawn

import (
	"syscall"

	"github.com/axondata/go-spawn/internal/unix"
)

// Signal is a closed enumeration of deliverable signals. Availability is
// platform-conditional: sending a signal the platform does not provide
// fails with ErrSignalFailed instead of silently doing nothing.
type Signal int

const (
	// SignalNone is the zero Signal and is never deliverable
	SignalNone Signal = iota
	// SignalHangup is SIGHUP
	SignalHangup
	// SignalInterrupt is SIGINT
	SignalInterrupt
	// SignalQuit is SIGQUIT
	SignalQuit
	// SignalKill is SIGKILL (not catchable or ignorable)
	SignalKill
	// SignalUser1 is SIGUSR1
	SignalUser1
	// SignalUser2 is SIGUSR2
	SignalUser2
	// SignalTerminate is SIGTERM, the default termination request
	SignalTerminate
	// SignalContinue is SIGCONT
	SignalContinue
	// SignalStop is SIGSTOP (not catchable or ignorable)
	SignalStop
	// SignalWindowChange is SIGWINCH
	SignalWindowChange
)

// String returns the conventional name of the signal
func (s Signal) String() string {
	switch s {
	case SignalHangup:
		return "SIGHUP"
	case SignalInterrupt:
		return "SIGINT"
	case SignalQuit:
		return "SIGQUIT"
	case SignalKill:
		return "SIGKILL"
	case SignalUser1:
		return "SIGUSR1"
	case SignalUser2:
		return "SIGUSR2"
	case SignalTerminate:
		return "SIGTERM"
	case SignalContinue:
		return "SIGCONT"
	case SignalStop:
		return "SIGSTOP"
	case SignalWindowChange:
		return "SIGWINCH"
	default:
		return "SIGNONE"
	}
}

// sys resolves the platform signal number. ok is false when the signal is
// unknown or unavailable on this platform.
func (s Signal) sys() (syscall.Signal, bool) {
	var num syscall.Signal
	switch s {
	case SignalHangup:
		num = unix.SIGHUP
	case SignalInterrupt:
		num = unix.SIGINT
	case SignalQuit:
		num = unix.SIGQUIT
	case SignalKill:
		num = unix.SIGKILL
	case SignalUser1:
		num = unix.SIGUSR1
	case SignalUser2:
		num = unix.SIGUSR2
	case SignalTerminate:
		num = unix.SIGTERM
	case SignalContinue:
		num = unix.SIGCONT
	case SignalStop:
		num = unix.SIGSTOP
	case SignalWindowChange:
		num = unix.SIGWINCH
	default:
		return 0, false
	}
	if num == 0 {
		return 0, false
	}
	return num, true
}

// signalFromSys maps a platform signal number back to the enumeration,
// used when decoding a terminating signal from a wait status.
func signalFromSys(num syscall.Signal) Signal {
	for _, s := range []Signal{
		SignalHangup, SignalInterrupt, SignalQuit, SignalKill,
		SignalUser1, SignalUser2, SignalTerminate, SignalContinue,
		SignalStop, SignalWindowChange,
	} {
		if n, ok := s.sys(); ok && n == num {
			return s
		}
	}
	return SignalNone
}
