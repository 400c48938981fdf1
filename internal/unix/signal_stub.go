//go:build !linux && !darwin

package unix

import "syscall"

// Signal numbers for this platform. Zero means unavailable; callers must
// treat zero-valued signals as unsupported.
var (
	SIGHUP   syscall.Signal
	SIGINT   syscall.Signal
	SIGQUIT  syscall.Signal
	SIGKILL  syscall.Signal
	SIGUSR1  syscall.Signal
	SIGUSR2  syscall.Signal
	SIGTERM  syscall.Signal
	SIGCONT  syscall.Signal
	SIGSTOP  syscall.Signal
	SIGWINCH syscall.Signal
)
