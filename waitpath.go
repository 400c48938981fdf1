package spawn

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// waitConfig holds WaitForPath tuning
type waitConfig struct {
	recheck time.Duration
}

// WaitOption configures WaitForPath
type WaitOption func(*waitConfig)

// WithRecheckInterval sets how often the target path is re-stated as a
// fallback for missed filesystem events
func WithRecheckInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.recheck = d
	}
}

// WaitForPath blocks until the given path exists or the timeout budget
// is exhausted. It is the usual readiness primitive for children that
// announce themselves through a pid file, socket path, or ready marker.
// Detection combines filesystem events on the parent directory with a
// periodic re-stat, so a path created before the watch was registered
// or through an unwatched rename is still seen.
func WaitForPath(ctx context.Context, path string, timeout time.Duration, opts ...WaitOption) error {
	cfg := waitConfig{recheck: DefaultRecheckInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &OpError{Op: OpWatch, Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return &OpError{Op: OpWatch, Path: path, Err: err}
	}

	// Stopper context for managing the watcher goroutine lifecycle
	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
	})
	defer func() {
		sctx.Stop(100 * time.Millisecond)
		_ = sctx.Wait()
	}()

	appeared := make(chan struct{}, 1)
	watchErr := make(chan error, 1)

	notify := func(ch chan struct{}) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	sctx.Go(func(sctx *stopper.Context) error {
		ticker := time.NewTicker(cfg.recheck)
		defer ticker.Stop()

		for {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Name == path && event.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
					notify(appeared)
				}

			case werr, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if werr != nil {
					select {
					case watchErr <- werr:
					default:
					}
				}

			case <-ticker.C:
				if _, serr := os.Stat(path); serr == nil {
					notify(appeared)
				}
			}
		}
	})

	// The path may have appeared between the first stat and the watch
	// registration.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-appeared:
		return nil
	case werr := <-watchErr:
		return &OpError{Op: OpWatch, Path: path, Err: werr}
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return &OpError{Op: OpWatch, Path: path, Err: ErrTimeout}
	}
}
