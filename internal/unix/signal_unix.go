//go:build linux || darwin

package unix

import (
	"syscall"

	sys "golang.org/x/sys/unix"
)

// Signal numbers for this platform. A zero value means the signal is not
// available here.
var (
	SIGHUP   syscall.Signal = sys.SIGHUP
	SIGINT   syscall.Signal = sys.SIGINT
	SIGQUIT  syscall.Signal = sys.SIGQUIT
	SIGKILL  syscall.Signal = sys.SIGKILL
	SIGUSR1  syscall.Signal = sys.SIGUSR1
	SIGUSR2  syscall.Signal = sys.SIGUSR2
	SIGTERM  syscall.Signal = sys.SIGTERM
	SIGCONT  syscall.Signal = sys.SIGCONT
	SIGSTOP  syscall.Signal = sys.SIGSTOP
	SIGWINCH syscall.Signal = sys.SIGWINCH
)
