// Package controller implements the runtime controller (SPEC_FULL.md
// §4.10): it owns the watcher's background-thread lifecycle, runs scan +
// reload cycles, and invokes host-supplied success/failure callbacks.
package controller

import (
	"log"
	"sync"
	"time"

	"github.com/farkelheizen/brimley/internal/discovery"
	"github.com/farkelheizen/brimley/internal/reload"
	"github.com/farkelheizen/brimley/internal/runtime"
	"github.com/farkelheizen/brimley/internal/watch"
)

// Lifecycle carries the host-supplied callbacks invoked around a reload
// cycle: OnReloadSuccess fires after a cycle completes (even if some
// domains were blocked — "success" means the cycle itself ran to
// completion), OnReloadFailure fires only if the scan/apply step itself
// could not run at all (e.g. the root is unreadable).
type Lifecycle struct {
	OnReloadSuccess func(reload.Result)
	OnReloadFailure func(error)
}

// Controller ties the watcher, the reload engine, and a runtime.Context
// together, and owns the background polling goroutine.
type Controller struct {
	Root      string
	Ctx       *runtime.Context
	Watcher   *watch.Watcher
	Lifecycle Lifecycle

	intervalMs int64

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	fsWake   chan struct{}
}

// New constructs a Controller over root, seeded with w (already
// constructed with the project's include/exclude/debounce settings) and
// intervalMs (the auto_reload.interval_ms config value).
func New(root string, ctx *runtime.Context, w *watch.Watcher, intervalMs int64, lifecycle Lifecycle) *Controller {
	return &Controller{
		Root:       root,
		Ctx:        ctx,
		Watcher:    w,
		Lifecycle:  lifecycle,
		intervalMs: intervalMs,
		fsWake:     make(chan struct{}, 1),
	}
}

// LoadInitial runs a scan + reload cycle synchronously, without touching
// the watcher's own state machine.
func (c *Controller) LoadInitial() (reload.Result, error) {
	scan, err := discovery.Scan(c.Root)
	if err != nil {
		if c.Lifecycle.OnReloadFailure != nil {
			c.Lifecycle.OnReloadFailure(err)
		}
		return reload.Result{}, err
	}
	result := reload.Apply(c.Ctx, scan)
	if c.Lifecycle.OnReloadSuccess != nil {
		c.Lifecycle.OnReloadSuccess(result)
	}
	return result, nil
}

// PollOnce is the unit primitive for host-driven scheduling and tests: it
// advances the watcher state machine once and, if a reload is due, runs
// the scan+apply cycle and completes the watcher's reloading state.
func (c *Controller) PollOnce(nowNanos int64) (watch.PollResult, error) {
	pr, err := c.Watcher.Poll(nowNanos)
	if err != nil {
		return pr, err
	}
	if !pr.ShouldReload {
		return pr, nil
	}

	scan, scanErr := discovery.Scan(c.Root)
	if scanErr != nil {
		_ = c.Watcher.CompleteReload(false)
		if c.Lifecycle.OnReloadFailure != nil {
			c.Lifecycle.OnReloadFailure(scanErr)
		}
		return pr, scanErr
	}
	result := reload.Apply(c.Ctx, scan)
	_ = c.Watcher.CompleteReload(true)
	if c.Lifecycle.OnReloadSuccess != nil {
		c.Lifecycle.OnReloadSuccess(result)
	}
	return pr, nil
}

// StartAutoReload launches the polling loop on a dedicated goroutine, at
// interval max(interval_ms/1000, 0.05) seconds. An auxiliary fsnotify
// watcher wakes the loop early between polls; it never substitutes for
// Poll's own snapshot diff (see internal/watch doc comment).
func (c *Controller) StartAutoReload() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	if err := c.Watcher.Start(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.running = true
	c.mu.Unlock()

	interval := time.Duration(c.intervalMs) * time.Millisecond
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}

	watcher := newFSNotifyWake(c.Root, c.fsWake)

	go func() {
		defer close(c.doneCh)
		if watcher != nil {
			defer watcher.Close()
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.tick()
			case <-c.fsWake:
				c.tick()
			}
		}
	}()
	return nil
}

func (c *Controller) tick() {
	if _, err := c.PollOnce(time.Now().UnixNano()); err != nil {
		log.Printf("[brimley] reload cycle error: %v", err)
	}
}

// StopAutoReload signals the loop, joins with a timeout, and stops the
// watcher's state machine.
func (c *Controller) StopAutoReload() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	close(c.stopCh)
	c.mu.Unlock()

	select {
	case <-c.doneCh:
	case <-time.After(5 * time.Second):
		log.Printf("[brimley] auto-reload loop did not stop within timeout")
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.Watcher.Stop()
}
