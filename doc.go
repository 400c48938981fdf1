// Package spawn provides child-process spawning and supervision without
// ever invoking a command shell: immutable process configuration,
// readiness-multiplexed pipe I/O with timeout budgets, pipeline
// composition, and immutable output/status snapshots.
//
// The usual entry point is Command, an immutable facade with working
// defaults (30-second timeout, stdin/stdout/stderr wired as pipes):
//
//	out, err := spawn.NewCommand("echo", "hello").Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(out.Stdout())
//
// A non-zero exit code is returned as an *ExitError that still carries
// the full Output, so stdout and stderr stay inspectable on failure:
//
//	out, err = spawn.NewCommand("sh", "-c", "exit 3").Run(ctx)
//	var exitErr *spawn.ExitError
//	if errors.As(err, &exitErr) {
//	    fmt.Print(exitErr.Output.Stderr())
//	}
//
// Commands chain into pipelines connected stdout-to-stdin; all stages
// are spawned together and drained concurrently, avoiding kernel
// pipe-buffer deadlock:
//
//	out, err = spawn.NewCommand("echo", "X").
//	    Pipe(spawn.NewCommand("grep", "X")).
//	    Run(ctx)
//
// # Lower-level control
//
// ProcessBuilder carries the full configuration surface (environment
// policy, descriptor wiring table, working directory) and Spawn returns
// a Process: the mutable, single-owner runtime handle. Process exposes
// Wait, Signal, Output, and the pipe ends as StreamHandles, which
// StreamReader and StreamWriter drive with poll-based, budgeted loops.
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - Literal argv execution (no shell, no injection by construction)
//   - Readiness multiplexing over busy-polling for all blocking I/O
//   - Explicit timeout budgets that shrink across loop iterations
//   - Deterministic resource release through idempotent Close
//   - Memoized exit status, masking the one-shot OS wait semantics
//
// Process-level timeouts never kill the process: a timed-out Wait or
// Output leaves the child running and queryable, and callers decide
// whether to Signal or Kill it. The facades that own the handle —
// Command.Run and Pipeline.Run — do kill on timeout, because they never
// hand the handle to the caller.
package spawn
