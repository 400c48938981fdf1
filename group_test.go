//go:build linux || darwin

package spawn

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGroupRunPreservesOrder(t *testing.T) {
	needProg(t, "echo")
	ctx := context.Background()

	cmds := []Command{
		NewCommand("echo", "one"),
		NewCommand("echo", "two"),
		NewCommand("echo", "three"),
	}

	outputs, err := NewGroup(WithConcurrency(2)).Run(ctx, cmds...)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 3 {
		t.Fatalf("len(outputs) = %d, want 3", len(outputs))
	}

	want := []string{"one\n", "two\n", "three\n"}
	for i, out := range outputs {
		if out.Stdout() != want[i] {
			t.Errorf("outputs[%d] = %q, want %q", i, out.Stdout(), want[i])
		}
	}
}

func TestGroupRunAggregatesFailures(t *testing.T) {
	needProg(t, "sh", "echo")
	ctx := context.Background()

	outputs, err := NewGroup().Run(ctx,
		NewCommand("echo", "fine"),
		NewCommand("sh", "-c", "exit 2"),
		NewCommand("sh", "-c", "exit 3"),
	)
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !errors.Is(err, ErrNonZeroExit) {
		t.Errorf("err = %v, want wrapped ErrNonZeroExit", err)
	}
	if !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("err = %v, want 2 aggregated errors", err)
	}
	// Successful stages still report their output.
	if outputs[0].Stdout() != "fine\n" {
		t.Errorf("outputs[0] = %q, want %q", outputs[0].Stdout(), "fine\n")
	}
}

func TestGroupConcurrencyBound(t *testing.T) {
	needProg(t, "sleep")
	ctx := context.Background()

	// Four 300ms sleeps at concurrency 2 need at least two waves.
	cmds := make([]Command, 4)
	for i := range cmds {
		cmds[i] = NewCommand("sleep", "0.3")
	}

	start := time.Now()
	_, err := NewGroup(WithConcurrency(2), WithTimeout(10*time.Second)).Run(ctx, cmds...)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("finished in %v, concurrency bound not enforced", elapsed)
	}
}

func TestGroupEmpty(t *testing.T) {
	outputs, err := NewGroup().Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 0 {
		t.Errorf("len(outputs) = %d, want 0", len(outputs))
	}
}
