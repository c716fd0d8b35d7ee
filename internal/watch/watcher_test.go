package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestStartTakesBaselineSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.sql"), "select 1")

	w := New(dir, nil, nil, 50)
	if err := w.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.State() != Watching {
		t.Fatalf("state = %s, want watching", w.State())
	}
	if len(w.TrackedPaths()) != 1 {
		t.Fatalf("expected one tracked path, got %v", w.TrackedPaths())
	}
}

func TestPollWhileStoppedFails(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, nil, nil, 50)
	if _, err := w.Poll(0); err == nil {
		t.Fatalf("expected error polling a stopped watcher")
	}
}

func TestPollDetectsChangeThenDebouncesThenReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.sql")
	writeFile(t, path, "select 1")

	w := New(dir, nil, nil, 100)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	now := time.Now().UnixNano()
	writeFile(t, path, "select 2")
	future := time.Now().Add(time.Millisecond).UnixNano()
	_ = os.Chtimes(path, time.Unix(0, future), time.Unix(0, future))

	res, err := w.Poll(now + int64(10*time.Millisecond))
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.ShouldReload {
		t.Fatalf("should not reload immediately on change detection")
	}
	if w.State() != Debouncing {
		t.Fatalf("state = %s, want debouncing", w.State())
	}

	res, err = w.Poll(now + int64(200*time.Millisecond))
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !res.ShouldReload {
		t.Fatalf("expected reload to be due after the debounce window elapsed")
	}
	if w.State() != Reloading {
		t.Fatalf("state = %s, want reloading", w.State())
	}
	if len(res.ChangedPaths) != 1 {
		t.Fatalf("expected one changed path, got %v", res.ChangedPaths)
	}
}

func TestPollWhileReloadingIsANoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.sql")

	w := New(dir, nil, nil, 1)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	writeFile(t, path, "select 1")
	now := time.Now().UnixNano()
	if _, err := w.Poll(now); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if _, err := w.Poll(now + int64(10*time.Millisecond)); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if w.State() != Reloading {
		t.Fatalf("state = %s, want reloading", w.State())
	}

	// A new file appears while the reload is still in flight; Poll must
	// not pick it up or touch tracked-path state until CompleteReload.
	writeFile(t, filepath.Join(dir, "b.sql"), "select 2")
	res, err := w.Poll(now + int64(20*time.Millisecond))
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.ShouldReload {
		t.Fatalf("expected no reload while already reloading")
	}
	if w.State() != Reloading {
		t.Fatalf("state = %s, want reloading to be left untouched", w.State())
	}
}

func TestCompleteReloadReturnsToWatching(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, nil, nil, 1)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	writeFile(t, filepath.Join(dir, "a.sql"), "select 1")
	now := time.Now().UnixNano()
	if _, err := w.Poll(now); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if _, err := w.Poll(now + int64(10*time.Millisecond)); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if w.State() != Reloading {
		t.Fatalf("state = %s, want reloading", w.State())
	}
	if err := w.CompleteReload(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.State() != Watching {
		t.Fatalf("state = %s, want watching", w.State())
	}
}

func TestCompleteReloadOutsideReloadingFails(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, nil, nil, 50)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.CompleteReload(true); err == nil {
		t.Fatalf("expected error completing a reload that never started")
	}
}

func TestStopResetsToStoppedFromAnyState(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, nil, nil, 50)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.Stop()
	if w.State() != Stopped {
		t.Fatalf("state = %s, want stopped", w.State())
	}
}

func TestIncludeExcludeFiltersApply(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.sql"), "select 1")
	writeFile(t, filepath.Join(dir, "skip.tmp"), "noise")

	w := New(dir, []string{"*.sql"}, nil, 50)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	tracked := w.TrackedPaths()
	if len(tracked) != 1 || tracked[0] != "keep.sql" {
		t.Fatalf("tracked = %v, want only keep.sql", tracked)
	}
}
