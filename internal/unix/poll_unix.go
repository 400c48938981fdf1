//go:build linux || darwin

package unix

import (
	"time"

	sys "golang.org/x/sys/unix"
)

// SetNonblock switches a file descriptor in or out of nonblocking mode.
func SetNonblock(fd int, nonblocking bool) error {
	return sys.SetNonblock(fd, nonblocking)
}

// Dup duplicates a file descriptor.
func Dup(fd int) (int, error) {
	return sys.Dup(fd)
}

// WaitReadable blocks until the descriptor is readable or the timeout
// elapses. It returns false on timeout. A hangup from the peer counts as
// readable so the caller can observe EOF through a read.
func WaitReadable(fd int, timeout time.Duration) (bool, error) {
	ready, err := PollRead([]int{fd}, timeout)
	if err != nil {
		return false, err
	}
	return ready[0], nil
}

// WaitWritable blocks until the descriptor is writable or the timeout
// elapses. It returns false on timeout.
func WaitWritable(fd int, timeout time.Duration) (bool, error) {
	pfds := []sys.PollFd{{Fd: int32(fd), Events: sys.POLLOUT}}
	n, err := poll(pfds, timeout)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return pfds[0].Revents&(sys.POLLOUT|sys.POLLERR|sys.POLLHUP) != 0, nil
}

// PollRead waits on all given descriptors with a single poll(2) call and
// reports, per descriptor, whether it is readable (or hung up, which a
// subsequent read resolves to EOF). It returns after the first readiness
// event or after the timeout, whichever comes first.
func PollRead(fds []int, timeout time.Duration) ([]bool, error) {
	pfds := make([]sys.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = sys.PollFd{Fd: int32(fd), Events: sys.POLLIN}
	}

	ready := make([]bool, len(fds))
	n, err := poll(pfds, timeout)
	if err != nil {
		return ready, err
	}
	if n == 0 {
		return ready, nil
	}
	for i := range pfds {
		ready[i] = pfds[i].Revents&(sys.POLLIN|sys.POLLHUP|sys.POLLERR) != 0
	}
	return ready, nil
}

// poll wraps sys.Poll, retrying on EINTR with the same timeout slice.
// Callers run inside budgeted loops, so the occasional repeated slice
// after a signal interruption does not break budget accounting.
func poll(pfds []sys.PollFd, timeout time.Duration) (int, error) {
	ms := int(timeout / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	for {
		n, err := sys.Poll(pfds, ms)
		if err == sys.EINTR {
			continue
		}
		return n, err
	}
}

// Read performs one nonblocking read. It reports eof when the peer has
// closed its write end and no data remains. A would-block condition is
// reported as (0, false, nil) so budgeted loops can poll again.
func Read(fd int, p []byte) (n int, eof bool, err error) {
	for {
		n, err = sys.Read(fd, p)
		switch {
		case err == sys.EINTR:
			continue
		case err == sys.EAGAIN:
			return 0, false, nil
		case err != nil:
			return 0, false, err
		case n == 0:
			return 0, true, nil
		default:
			return n, false, nil
		}
	}
}

// Write performs one nonblocking write and returns the number of bytes
// accepted by the kernel. A full pipe buffer is reported as (0, nil) so
// callers can wait for writability and retry the remainder.
func Write(fd int, p []byte) (int, error) {
	for {
		n, err := sys.Write(fd, p)
		switch {
		case err == sys.EINTR:
			continue
		case err == sys.EAGAIN:
			return 0, nil
		default:
			return n, err
		}
	}
}
