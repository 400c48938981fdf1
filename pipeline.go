package spawn

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Pipeline is an ordered chain of Commands whose standard streams are
// connected stdout-to-stdin. A pipeline executes only as a whole: all
// stages are spawned before any draining starts, and one concurrent
// drain runs per live pipe. Spawning stages sequentially and draining
// afterwards would deadlock once an early stage fills a kernel pipe
// buffer that no downstream stage is consuming yet.
type Pipeline struct {
	stages  []Command
	timeout time.Duration
}

// NewPipeline builds a pipeline from the given stages in order
func NewPipeline(stages ...Command) Pipeline {
	p := Pipeline{
		stages:  append([]Command(nil), stages...),
		timeout: DefaultTimeout,
	}
	if len(stages) > 0 {
		p.timeout = stages[0].timeout
	}
	return p
}

// Pipe returns a pipeline with one more stage appended
func (pl Pipeline) Pipe(next Command) Pipeline {
	stages := make([]Command, 0, len(pl.stages)+1)
	stages = append(stages, pl.stages...)
	stages = append(stages, next)
	pl.stages = stages
	return pl
}

// Timeout returns a pipeline whose Run uses the given budget
func (pl Pipeline) Timeout(d time.Duration) Pipeline {
	pl.timeout = d
	return pl
}

// Stages returns the number of stages
func (pl Pipeline) Stages() int {
	return len(pl.stages)
}

// Spawn always fails: a pipeline has no single raw process handle and
// can only be executed as a whole with Run or Stdout
func (pl Pipeline) Spawn(_ context.Context) (*Process, error) {
	return nil, &OpError{Op: OpPipeline, Path: pl.commandString(), Err: ErrPipelineSpawn}
}

// Run executes the whole pipeline: every stage is spawned with its
// stdout wired directly to the next stage's stdin, then the final
// stage's stdout and every stage's stderr are drained concurrently.
// The Output carries the final stage's stdout, the stages' stderr in
// stage order, and the final stage's exit code; a non-zero exit is
// returned as an *ExitError alongside the Output.
//
// A timeout tears the pipeline down (stages are killed and closed),
// since the stage handles are never exposed to the caller.
func (pl Pipeline) Run(ctx context.Context) (Output, error) {
	switch len(pl.stages) {
	case 0:
		return Output{}, &OpError{Op: OpPipeline, Path: "", Err: ErrInvalidCommand}
	case 1:
		return pl.stages[0].Timeout(pl.timeout).Run(ctx)
	}

	deadline := time.Now().Add(pl.timeout)

	procs, err := pl.spawnStages(ctx)
	if err != nil {
		return Output{}, err
	}
	defer func() {
		for _, p := range procs {
			p.Close()
		}
	}()

	// EOF to the first stage unless its stdin was redirected elsewhere.
	procs[0].CloseStdin()

	stdout, stderrs, err := pl.drainStages(ctx, procs, deadline)
	if err != nil {
		pl.teardown(procs)
		return Output{}, err
	}

	exitCode := 0
	for i, p := range procs {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		st, werr := p.Wait(ctx, remaining)
		if werr != nil {
			pl.teardown(procs)
			return Output{}, werr
		}
		if i == len(procs)-1 {
			exitCode = st.ExitCode
		}
	}

	var stderrCat []byte
	for _, b := range stderrs {
		stderrCat = append(stderrCat, b...)
	}

	out := NewOutput(stdout, stderrCat, exitCode)
	if out.Failure() {
		return out, &ExitError{Output: out}
	}
	return out, nil
}

// Stdout runs the pipeline and projects the result to stdout only
func (pl Pipeline) Stdout(ctx context.Context) (string, error) {
	out, err := pl.Run(ctx)
	if err != nil {
		return "", err
	}
	return out.Stdout(), nil
}

// spawnStages starts every stage with joint pipes between consecutive
// stages. Parent copies of the joint ends are closed as soon as both
// sides have inherited them; a spawn failure tears down everything
// started so far.
func (pl Pipeline) spawnStages(ctx context.Context) ([]*Process, error) {
	procs := make([]*Process, 0, len(pl.stages))
	var prevRead *os.File

	for i, stage := range pl.stages {
		streams := stage.builder.streams
		last := i == len(pl.stages)-1

		stdinJoint := prevRead
		if stdinJoint != nil {
			streams = streams.With(FDStdin, HandleFD(stdinJoint))
		}

		var nextRead, jointWrite *os.File
		if !last {
			r, w, perr := os.Pipe()
			if perr != nil {
				if stdinJoint != nil {
					_ = stdinJoint.Close()
				}
				pl.teardown(procs)
				return nil, &OpError{Op: OpPipeline, Path: stage.CommandString(), Err: fmt.Errorf("%w: %w", ErrSpawnFailed, perr)}
			}
			nextRead, jointWrite = r, w
			streams = streams.With(FDStdout, HandleFD(w))
		}

		p, serr := stage.builder.Streams(streams).Spawn(ctx)

		// Joint ends live on in the children; the parent's copies must go
		// so EOF can propagate stage to stage.
		if stdinJoint != nil {
			_ = stdinJoint.Close()
		}
		if jointWrite != nil {
			_ = jointWrite.Close()
		}

		if serr != nil {
			if nextRead != nil {
				_ = nextRead.Close()
			}
			pl.teardown(procs)
			return nil, serr
		}

		procs = append(procs, p)
		prevRead = nextRead
	}

	return procs, nil
}

// drainStages runs one concurrent drain per live pipe: the final stage's
// stdout and every stage's piped stderr. Finite work, so a WaitGroup is
// enough; errors aggregate into a MultiError.
func (pl Pipeline) drainStages(ctx context.Context, procs []*Process, deadline time.Time) ([]byte, [][]byte, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	var stdout []byte
	stderrs := make([][]byte, len(procs))

	budget := time.Until(deadline)
	if budget < 0 {
		budget = 0
	}

	if r, err := procs[len(procs)-1].StdoutReader(); err == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, rerr := r.ReadAll(ctx, budget)
			mu.Lock()
			defer mu.Unlock()
			if rerr != nil {
				merr.Add(rerr)
				return
			}
			stdout = data
		}()
	}

	for i, p := range procs {
		r, err := p.StderrReader()
		if err != nil {
			continue
		}
		wg.Add(1)
		go func(i int, r *StreamReader) {
			defer wg.Done()
			data, rerr := r.ReadAll(ctx, budget)
			mu.Lock()
			defer mu.Unlock()
			if rerr != nil {
				merr.Add(rerr)
				return
			}
			stderrs[i] = data
		}(i, r)
	}

	wg.Wait()
	if err := merr.Err(); err != nil {
		return nil, nil, err
	}
	return stdout, stderrs, nil
}

// teardown kills and closes every stage after a pipeline-level failure
func (pl Pipeline) teardown(procs []*Process) {
	for _, p := range procs {
		_ = p.Kill()
		p.Close()
	}
}

func (pl Pipeline) commandString() string {
	s := ""
	for i, st := range pl.stages {
		if i > 0 {
			s += " | "
		}
		s += st.CommandString()
	}
	return s
}
