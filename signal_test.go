//go:build linux || darwin

package spawn

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestSignalString(t *testing.T) {
	names := map[Signal]string{
		SignalNone:         "SIGNONE",
		SignalHangup:       "SIGHUP",
		SignalInterrupt:    "SIGINT",
		SignalQuit:         "SIGQUIT",
		SignalKill:         "SIGKILL",
		SignalUser1:        "SIGUSR1",
		SignalUser2:        "SIGUSR2",
		SignalTerminate:    "SIGTERM",
		SignalContinue:     "SIGCONT",
		SignalStop:         "SIGSTOP",
		SignalWindowChange: "SIGWINCH",
	}
	for sig, want := range names {
		if got := sig.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", sig, got, want)
		}
	}
}

func TestSignalSysRoundTrip(t *testing.T) {
	if _, ok := SignalNone.sys(); ok {
		t.Error("SignalNone must never resolve to a platform signal")
	}

	num, ok := SignalTerminate.sys()
	if !ok {
		t.Fatal("SIGTERM unavailable")
	}
	if num != syscall.SIGTERM {
		t.Errorf("SIGTERM number = %d, want %d", num, syscall.SIGTERM)
	}
	if got := signalFromSys(num); got != SignalTerminate {
		t.Errorf("signalFromSys(SIGTERM) = %v, want SignalTerminate", got)
	}

	if got := signalFromSys(syscall.Signal(200)); got != SignalNone {
		t.Errorf("unknown signal mapped to %v, want SignalNone", got)
	}
}

func TestSignalDeathStatus(t *testing.T) {
	needProg(t, "sleep")
	ctx := context.Background()

	p, err := NewCommand("sleep", "10").Spawn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Signal(SignalTerminate); err != nil {
		t.Fatal(err)
	}

	st, err := p.Wait(ctx, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Signaled {
		t.Fatal("Signaled = false after SIGTERM death")
	}
	if st.Signal != SignalTerminate {
		t.Errorf("Signal = %v, want SIGTERM", st.Signal)
	}
	num, _ := SignalTerminate.sys()
	if want := 128 + int(num); st.ExitCode != want {
		t.Errorf("ExitCode = %d, want %d", st.ExitCode, want)
	}
	if st.Success() {
		t.Error("signal death must report failure")
	}
}
