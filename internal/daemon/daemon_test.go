package daemon

import (
	"os"
	"testing"
	"time"
)

func TestIsProcessAliveForCurrentProcess(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Fatalf("expected the current process to report alive")
	}
	if IsProcessAlive(0) {
		t.Fatalf("expected pid 0 to report not alive")
	}
}

func TestWriteAndReadDaemonMetadataRoundTrips(t *testing.T) {
	dir := t.TempDir()
	m := Metadata{PID: os.Getpid(), Port: 4242, StartedAt: time.Now().Truncate(time.Second)}
	if err := WriteDaemonMetadata(dir, m); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok, err := ReadDaemonMetadata(dir)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if got.PID != m.PID || got.Port != m.Port {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestReadDaemonMetadataAbsentReturnsNotOK(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := ReadDaemonMetadata(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for an absent daemon.json")
	}
}

func TestProbeDaemonStateReportsAliveForCurrentProcess(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDaemonMetadata(dir, Metadata{PID: os.Getpid(), Port: 1, StartedAt: time.Now()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	probe, err := ProbeDaemonState(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !probe.Exists || !probe.Alive {
		t.Fatalf("got %+v, want Exists=true Alive=true", probe)
	}
}

func TestRecoverStaleDaemonMetadataRemovesDeadPidRecord(t *testing.T) {
	dir := t.TempDir()
	// A pid astronomically unlikely to be alive on any test machine.
	if err := WriteDaemonMetadata(dir, Metadata{PID: 1 << 30, Port: 1, StartedAt: time.Now()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	removed, err := RecoverStaleDaemonMetadata(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Fatalf("expected stale metadata to be removed")
	}
	if _, ok, _ := ReadDaemonMetadata(dir); ok {
		t.Fatalf("expected daemon.json to be gone after recovery")
	}
}

func TestRecoverStaleDaemonMetadataLeavesLiveProcessAlone(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDaemonMetadata(dir, Metadata{PID: os.Getpid(), Port: 1, StartedAt: time.Now()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	removed, err := RecoverStaleDaemonMetadata(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatalf("expected a live process's metadata to be left alone")
	}
}

func TestAcquireReplClientSlotEnforcesSingleActiveClient(t *testing.T) {
	dir := t.TempDir()
	if err := AcquireReplClientSlot(dir, os.Getpid()); err != nil {
		t.Fatalf("unexpected error acquiring the first slot: %v", err)
	}
	// A different, also-alive pid is rejected.
	otherAlivePID := 1
	if !IsProcessAlive(otherAlivePID) {
		t.Skip("pid 1 is not observable as alive in this sandbox")
	}
	if err := AcquireReplClientSlot(dir, otherAlivePID); err != ErrClientAlreadyAttached {
		t.Fatalf("got %v, want ErrClientAlreadyAttached", err)
	}
}

func TestAcquireReplClientSlotReentrantForSamePID(t *testing.T) {
	dir := t.TempDir()
	pid := os.Getpid()
	if err := AcquireReplClientSlot(dir, pid); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := AcquireReplClientSlot(dir, pid); err != nil {
		t.Fatalf("expected re-acquiring with the same pid to succeed, got %v", err)
	}
}

func TestReleaseReplClientSlotOnlyRemovesOwnRecord(t *testing.T) {
	dir := t.TempDir()
	pid := os.Getpid()
	if err := AcquireReplClientSlot(dir, pid); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := ReleaseReplClientSlot(dir, pid+999999); err != nil {
		t.Fatalf("unexpected error releasing as a non-owner: %v", err)
	}
	if _, ok, _ := readReplClient(dir); !ok {
		t.Fatalf("expected the slot to remain held by its real owner")
	}
	if err := ReleaseReplClientSlot(dir, pid); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := readReplClient(dir); ok {
		t.Fatalf("expected the slot to be released")
	}
}

func TestShutdownDaemonLifecycleRemovesMetadataUnconditionally(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDaemonMetadata(dir, Metadata{PID: os.Getpid(), Port: 1, StartedAt: time.Now()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ShutdownDaemonLifecycle(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := ReadDaemonMetadata(dir); ok {
		t.Fatalf("expected daemon.json to be removed")
	}
	// Calling again on an already-absent file is not an error.
	if err := ShutdownDaemonLifecycle(dir); err != nil {
		t.Fatalf("unexpected error on repeated shutdown: %v", err)
	}
}
