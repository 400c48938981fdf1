//go:build linux || darwin

package spawn

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterWriteLine(t *testing.T) {
	needProg(t, "cat")
	ctx := context.Background()

	p, err := NewCommand("cat").Spawn(ctx)
	require.NoError(t, err)
	defer p.Close()

	w, err := p.StdinWriter()
	require.NoError(t, err)

	_, err = w.WriteLine("one")
	require.NoError(t, err)
	_, err = w.WriteLines([]string{"two", "three"})
	require.NoError(t, err)

	out, err := p.Output(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", out.Stdout())
}

func TestWriterBuffering(t *testing.T) {
	needProg(t, "cat")
	ctx := context.Background()

	p, err := NewCommand("cat").Spawn(ctx)
	require.NoError(t, err)
	defer p.Close()

	h, err := p.Stdin()
	require.NoError(t, err)

	w := NewStreamWriter(h).WithBufferSize(1 << 20).WithAutoFlush(false)
	_, err = w.Write([]byte("held back"))
	require.NoError(t, err)
	assert.Equal(t, 9, w.Buffered(), "small write below threshold must stay buffered")

	require.NoError(t, w.Flush())
	assert.Zero(t, w.Buffered())

	p.CloseStdin()
	out, err := p.Output(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "held back", out.Stdout())
}

func TestWriterAutoFlush(t *testing.T) {
	needProg(t, "cat")
	ctx := context.Background()

	p, err := NewCommand("cat").Spawn(ctx)
	require.NoError(t, err)
	defer p.Close()

	w, err := p.StdinWriter()
	require.NoError(t, err)

	_, err = w.Write([]byte("immediate"))
	require.NoError(t, err)
	assert.Zero(t, w.Buffered(), "auto-flush writer must not hold bytes")

	out, err := p.Output(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "immediate", out.Stdout())
}

func TestWriterConfigSharesBuffer(t *testing.T) {
	needProg(t, "cat")
	ctx := context.Background()

	p, err := NewCommand("cat").Spawn(ctx)
	require.NoError(t, err)
	defer func() {
		_ = p.Kill()
		p.Close()
	}()

	h, err := p.Stdin()
	require.NoError(t, err)

	base := NewStreamWriter(h).WithBufferSize(1 << 20)
	derived := base.WithLineEnding("\r\n")

	_, err = base.Write([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, derived.Buffered(), "configuration copies share the buffer")
	assert.Equal(t, "\n", base.lineEnding, "base configuration unchanged")
}

func TestWriterWriteChunkedLargePayload(t *testing.T) {
	needProg(t, "cat")
	ctx := context.Background()

	p, err := NewCommand("cat").Spawn(ctx)
	require.NoError(t, err)
	defer p.Close()

	w, err := p.StdinWriter()
	require.NoError(t, err)

	// Well past the kernel pipe capacity, so the write only completes if
	// the child's stdout is drained concurrently.
	payload := bytes.Repeat([]byte("0123456789abcdef"), 1<<16) // 1 MiB

	r, err := p.StdoutReader()
	require.NoError(t, err)

	var wg sync.WaitGroup
	var got []byte
	var readErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, readErr = r.ReadAll(ctx, 30*time.Second)
	}()

	n, err := w.WriteChunked(ctx, payload, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	p.CloseStdin()
	wg.Wait()
	require.NoError(t, readErr)
	assert.True(t, bytes.Equal(payload, got), "payload must round-trip intact")

	_, err = p.Wait(ctx, 5*time.Second)
	require.NoError(t, err)
}
