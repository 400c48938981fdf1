//go:build linux || darwin

package spawn

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCommandRun(t *testing.T) {
	needProg(t, "echo")

	out, err := NewCommand("echo", "hello").Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Stdout() != "hello\n" {
		t.Errorf("stdout = %q, want %q", out.Stdout(), "hello\n")
	}
	if !out.Success() {
		t.Errorf("exit code = %d, want 0", out.ExitCode())
	}
}

func TestCommandRunExitError(t *testing.T) {
	needProg(t, "sh")

	out, err := NewCommand("sh", "-c", "echo oops >&2; exit 3").Run(context.Background())
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %T, want *ExitError", err)
	}
	if !errors.Is(err, ErrNonZeroExit) {
		t.Error("ExitError does not unwrap to ErrNonZeroExit")
	}
	if exitErr.Output.ExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", exitErr.Output.ExitCode())
	}
	if exitErr.Output.Stderr() != "oops\n" {
		t.Errorf("stderr = %q, want %q", exitErr.Output.Stderr(), "oops\n")
	}
	// The returned Output mirrors the one inside the error.
	if out.ExitCode() != 3 {
		t.Errorf("returned output exit code = %d, want 3", out.ExitCode())
	}
}

func TestCommandStdout(t *testing.T) {
	needProg(t, "echo")

	got, err := NewCommand("echo", "projected").Stdout(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "projected\n" {
		t.Errorf("stdout = %q, want %q", got, "projected\n")
	}
}

func TestCommandValueSemantics(t *testing.T) {
	base := NewCommand("prog", "a").Timeout(time.Second)
	derived := base.Arg("b").Timeout(2 * time.Second)

	if got := base.CommandString(); got != "prog a" {
		t.Errorf("base = %q, want %q", got, "prog a")
	}
	if got := derived.CommandString(); got != "prog a b" {
		t.Errorf("derived = %q, want %q", got, "prog a b")
	}
	if base.timeout != time.Second {
		t.Errorf("base timeout = %v, want 1s", base.timeout)
	}
}

func TestCommandFileRedirection(t *testing.T) {
	needProg(t, "cat")
	ctx := context.Background()
	dir := t.TempDir()

	inPath := filepath.Join(dir, "in.txt")
	outPath := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(inPath, []byte("file contents\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewCommand("cat").FromFile(inPath).ToFile(outPath).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "file contents\n" {
		t.Errorf("out file = %q, want %q", got, "file contents\n")
	}
}

func TestCommandErrToFile(t *testing.T) {
	needProg(t, "sh")
	ctx := context.Background()
	errPath := filepath.Join(t.TempDir(), "err.txt")

	_, err := NewCommand("sh", "-c", "echo bad >&2").ErrToFile(errPath).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "bad\n" {
		t.Errorf("err file = %q, want %q", got, "bad\n")
	}
}

func TestCommandQuiet(t *testing.T) {
	needProg(t, "sh")

	out, err := NewCommand("sh", "-c", "echo out; echo err >&2").Quiet().Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Stdout() != "" || out.Stderr() != "" {
		t.Errorf("quiet output = (%q, %q), want empty", out.Stdout(), out.Stderr())
	}
	if out.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0", out.ExitCode())
	}
}

func TestCommandRunTimeoutKillsChild(t *testing.T) {
	needProg(t, "sh")
	ctx := context.Background()
	marker := filepath.Join(t.TempDir(), "marker")

	// Run owns the only handle, so a timed-out child must be killed
	// rather than orphaned. A surviving child would create the marker.
	_, err := NewCommand("sh", "-c", "sleep 1; : > "+marker).
		Timeout(200 * time.Millisecond).
		Run(ctx)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	time.Sleep(1500 * time.Millisecond)
	if _, err := os.Stat(marker); !errors.Is(err, os.ErrNotExist) {
		t.Error("child survived the Run timeout")
	}
}

func TestCommandDeterministicReruns(t *testing.T) {
	needProg(t, "echo")
	ctx := context.Background()

	cmd := NewCommand("echo", "same", "every", "time")
	var first Output
	for i := 0; i < 3; i++ {
		out, err := cmd.Run(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = out
			continue
		}
		if out.Stdout() != first.Stdout() || out.ExitCode() != first.ExitCode() {
			t.Errorf("run #%d diverged: %q/%d vs %q/%d",
				i, out.Stdout(), out.ExitCode(), first.Stdout(), first.ExitCode())
		}
	}
}
