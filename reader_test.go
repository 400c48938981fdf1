//go:build linux || darwin

package spawn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReaderReadAll(t *testing.T) {
	needProg(t, "echo")
	ctx := context.Background()

	p, err := NewCommand("echo", "all the output").Spawn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	r, err := p.StdoutReader()
	if err != nil {
		t.Fatal(err)
	}

	data, err := r.ReadAll(ctx, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "all the output\n" {
		t.Errorf("data = %q, want %q", data, "all the output\n")
	}
	if !r.IsEOF() {
		t.Error("IsEOF = false after draining to EOF")
	}
}

func TestReaderReadAvailableNonBlocking(t *testing.T) {
	needProg(t, "sleep")
	ctx := context.Background()

	p, err := NewCommand("sleep", "5").Spawn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = p.Kill()
		p.Close()
	}()

	r, err := p.StdoutReader()
	if err != nil {
		t.Fatal(err)
	}

	// The child produces nothing; the call must return immediately empty.
	// Run it off the test goroutine so a blocking-mode regression fails
	// the test instead of hanging it.
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, rerr := r.ReadAvailable()
		done <- result{data, rerr}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatal(res.err)
		}
		if len(res.data) != 0 {
			t.Errorf("data = %q, want empty", res.data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadAvailable did not return on an idle pipe")
	}
}

func TestReaderFailedReadKeepsPending(t *testing.T) {
	needProg(t, "cat")
	ctx := context.Background()

	p, err := NewCommand("cat").Spawn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if _, err := p.WriteStdin([]byte("first\nsecond")); err != nil {
		t.Fatal(err)
	}

	r, err := p.StdoutReader()
	if err != nil {
		t.Fatal(err)
	}

	line, err := r.ReadUntil(ctx, []byte("\n"), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(line) != "first\n" {
		t.Fatalf("line = %q, want %q", line, "first\n")
	}

	// The pipe is now idle; this read times out, but the overshoot bytes
	// consumed by ReadUntil must survive the failure.
	if _, err := r.ReadAll(ctx, 200*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	p.CloseStdin()
	rest, err := r.ReadAll(ctx, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(rest) != "second" {
		t.Errorf("rest = %q, want %q", rest, "second")
	}
}

func TestReaderReadUntil(t *testing.T) {
	needProg(t, "printf")
	ctx := context.Background()

	p, err := NewCommand("printf", "first\\nsecond\\n").Spawn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	r, err := p.StdoutReader()
	if err != nil {
		t.Fatal(err)
	}

	line, err := r.ReadUntil(ctx, []byte("\n"), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(line) != "first\n" {
		t.Errorf("line = %q, want %q", line, "first\n")
	}

	// Bytes past the delimiter were buffered, not lost.
	rest, err := r.ReadAll(ctx, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(rest) != "second\n" {
		t.Errorf("rest = %q, want %q", rest, "second\n")
	}
}

func TestReaderReadUntilNoDelimiter(t *testing.T) {
	needProg(t, "printf")
	ctx := context.Background()

	p, err := NewCommand("printf", "no newline here").Spawn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	r, err := p.StdoutReader()
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.ReadUntil(ctx, []byte("\n"), 5*time.Second)
	if !errors.Is(err, ErrStreamRead) {
		t.Fatalf("err = %v, want ErrStreamRead", err)
	}

	// The accumulated bytes stay available for a later read.
	data, err := r.ReadAvailable()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "no newline here" {
		t.Errorf("data = %q, want %q", data, "no newline here")
	}
}

func TestReaderReadAllTimeout(t *testing.T) {
	needProg(t, "sleep")
	ctx := context.Background()

	p, err := NewCommand("sleep", "5").Spawn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = p.Kill()
		p.Close()
	}()

	r, err := p.StdoutReader()
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.ReadAll(ctx, 200*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestReaderAfterClose(t *testing.T) {
	needProg(t, "echo")
	ctx := context.Background()

	p, err := NewCommand("echo", "x").Spawn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	r, err := p.StdoutReader()
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
	r.Close()

	if _, err := r.ReadAvailable(); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}
