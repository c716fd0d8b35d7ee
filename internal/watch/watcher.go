// Package watch implements the polling watcher (SPEC_FULL.md §4.8): a pure
// snapshot-diff primitive plus the explicit state machine wrapping it. The
// background loop (internal/controller) additionally wakes
// early on an fsnotify event, but poll() itself is the deterministic,
// host/test-driven unit.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// State is one of the watcher's explicit states.
type State string

const (
	Stopped         State = "stopped"
	Watching        State = "watching"
	ChangeDetected  State = "change_detected"
	Debouncing      State = "debouncing"
	Reloading       State = "reloading"
)

// Snapshot maps a scanned path to its modification time in nanoseconds.
type Snapshot map[string]int64

// PollResult is returned by Poll on every call.
type PollResult struct {
	ShouldReload  bool
	ChangedPaths  []string
	State         State
}

// Watcher is the polling watcher state machine. Not safe for concurrent
// use from multiple goroutines without external synchronization — the
// runtime controller owns a single Watcher on its dedicated poll goroutine.
type Watcher struct {
	Root            string
	IncludePatterns []string
	ExcludePatterns []string
	DebounceMs      int64

	state        State
	lastSnapshot Snapshot
	pending      map[string]bool
	lastChangeAt int64 // unix nanos
}

// New constructs a stopped Watcher.
func New(root string, include, exclude []string, debounceMs int64) *Watcher {
	return &Watcher{
		Root:            root,
		IncludePatterns: include,
		ExcludePatterns: exclude,
		DebounceMs:      debounceMs,
		state:           Stopped,
		pending:         map[string]bool{},
	}
}

// State returns the current machine state.
func (w *Watcher) State() State { return w.state }

// Start transitions stopped -> watching and takes the baseline snapshot.
func (w *Watcher) Start() error {
	if w.state != Stopped {
		return fmt.Errorf("invalid transition: start from %s", w.state)
	}
	snap, err := w.buildSnapshot()
	if err != nil {
		return err
	}
	w.lastSnapshot = snap
	w.state = Watching
	return nil
}

// Stop transitions any state -> stopped. Always valid, per the state table.
func (w *Watcher) Stop() {
	w.state = Stopped
	w.pending = map[string]bool{}
}

// TrackedPaths returns the paths in the last-taken snapshot, for
// diagnostics/tests.
func (w *Watcher) TrackedPaths() []string {
	paths := make([]string, 0, len(w.lastSnapshot))
	for p := range w.lastSnapshot {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Poll is the pure unit primitive: it builds a fresh snapshot, diffs it
// against the last one, and advances the state machine. now is a caller-
// supplied clock (unix nanoseconds) so tests and hosts can drive it
// deterministically.
func (w *Watcher) Poll(nowNanos int64) (PollResult, error) {
	if w.state == Stopped {
		return PollResult{State: Stopped}, fmt.Errorf("invalid transition: poll while stopped")
	}
	if w.state == Reloading {
		// A reload cycle is in flight; leave tracked-path state untouched
		// until CompleteReload resolves it rather than racing it.
		return PollResult{ShouldReload: false, State: Reloading}, nil
	}

	snap, err := w.buildSnapshot()
	if err != nil {
		return PollResult{State: w.state}, err
	}

	changed := diffSnapshots(w.lastSnapshot, snap)
	w.lastSnapshot = snap

	if len(changed) > 0 {
		for _, p := range changed {
			w.pending[p] = true
		}
		w.lastChangeAt = nowNanos
		if w.state == Watching {
			w.state = ChangeDetected
		}
		w.state = Debouncing
		return PollResult{ShouldReload: false, State: w.state}, nil
	}

	if w.state == Debouncing {
		elapsedMs := (nowNanos - w.lastChangeAt) / int64(time.Millisecond)
		if elapsedMs >= w.DebounceMs {
			w.state = Reloading
			paths := make([]string, 0, len(w.pending))
			for p := range w.pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			w.pending = map[string]bool{}
			return PollResult{ShouldReload: true, ChangedPaths: paths, State: w.state}, nil
		}
	}

	return PollResult{ShouldReload: false, State: w.state}, nil
}

// CompleteReload transitions reloading -> watching regardless of success,
// matching the state table (reload_success | reload_failure -> watching).
func (w *Watcher) CompleteReload(success bool) error {
	if w.state != Reloading {
		return fmt.Errorf("invalid transition: complete_reload from %s", w.state)
	}
	w.state = Watching
	return nil
}

func (w *Watcher) buildSnapshot() (Snapshot, error) {
	snap := Snapshot{}
	err := filepath.Walk(w.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.Root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		base := filepath.Base(path)

		if !matchesFilters(base, rel, w.IncludePatterns, w.ExcludePatterns) {
			return nil
		}
		snap[rel] = info.ModTime().UnixNano()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func matchesFilters(base, rel string, include, exclude []string) bool {
	for _, pat := range exclude {
		if globMatch(pat, base) || globMatch(pat, rel) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if globMatch(pat, base) || globMatch(pat, rel) {
			return true
		}
	}
	return false
}

func globMatch(pattern, name string) bool {
	ok, err := filepath.Match(pattern, name)
	if err == nil && ok {
		return true
	}
	// filepath.Match does not treat "/" specially the way a glob over a
	// relative path wants; fall back to a simple suffix/substring check
	// for patterns containing "**" or "/", mirroring fnmatch's broader
	// matching against a full relative path.
	if strings.Contains(pattern, "**") {
		prefix := strings.SplitN(pattern, "**", 2)[0]
		return strings.HasPrefix(name, prefix)
	}
	return false
}

func diffSnapshots(prev, next Snapshot) []string {
	changed := map[string]bool{}
	for p, mtime := range next {
		if prevMtime, ok := prev[p]; !ok || prevMtime != mtime {
			changed[p] = true
		}
	}
	for p := range prev {
		if _, ok := next[p]; !ok {
			changed[p] = true
		}
	}
	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
