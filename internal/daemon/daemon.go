// Package daemon manages the per-project .brimley/ persisted-state
// directory: daemon.json and repl_client.json, pid-liveness-based
// staleness detection, and single-active-client enforcement, per
// SPEC_FULL.md §6.
package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const stateDirName = ".brimley"

// Metadata describes a running daemon process.
type Metadata struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"started_at"`
}

// ReplClientMetadata describes the single currently-attached REPL client.
type ReplClientMetadata struct {
	PID        int       `json:"pid"`
	AttachedAt time.Time `json:"attached_at"`
}

func stateDir(root string) string { return filepath.Join(root, stateDirName) }
func daemonPath(root string) string { return filepath.Join(stateDir(root), "daemon.json") }
func replClientPath(root string) string { return filepath.Join(stateDir(root), "repl_client.json") }

// IsProcessAlive probes pid's liveness via a signal-0 kill, matching the
// original's os.kill(pid, 0) idiom.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// WriteDaemonMetadata persists m to .brimley/daemon.json, creating the
// state directory if needed.
func WriteDaemonMetadata(root string, m Metadata) error {
	if err := os.MkdirAll(stateDir(root), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return writeJSON(daemonPath(root), m)
}

// ReadDaemonMetadata loads .brimley/daemon.json. ok is false if the file is
// absent.
func ReadDaemonMetadata(root string) (Metadata, bool, error) {
	var m Metadata
	ok, err := readJSON(daemonPath(root), &m)
	return m, ok, err
}

// ProbeResult is the outcome of checking a recorded daemon's liveness.
type ProbeResult struct {
	Exists bool
	Alive  bool
	Meta   Metadata
}

// ProbeDaemonState reports whether a daemon is recorded and, if so,
// whether its recorded pid is still alive.
func ProbeDaemonState(root string) (ProbeResult, error) {
	m, ok, err := ReadDaemonMetadata(root)
	if err != nil {
		return ProbeResult{}, err
	}
	if !ok {
		return ProbeResult{Exists: false}, nil
	}
	return ProbeResult{Exists: true, Alive: IsProcessAlive(m.PID), Meta: m}, nil
}

// RecoverStaleDaemonMetadata removes daemon.json if its recorded pid is no
// longer alive, returning whether it removed anything.
func RecoverStaleDaemonMetadata(root string) (bool, error) {
	probe, err := ProbeDaemonState(root)
	if err != nil {
		return false, err
	}
	if !probe.Exists || probe.Alive {
		return false, nil
	}
	if err := os.Remove(daemonPath(root)); err != nil && !os.IsNotExist(err) {
		return false, err
	}
	return true, nil
}

// ErrClientAlreadyAttached is returned by AcquireReplClientSlot when a
// live client already holds the slot.
var ErrClientAlreadyAttached = fmt.Errorf("a repl client is already attached")

// AcquireReplClientSlot enforces single-active-client: it fails if
// repl_client.json names a still-alive pid other than the caller's own.
func AcquireReplClientSlot(root string, pid int) error {
	existing, ok, err := readReplClient(root)
	if err != nil {
		return err
	}
	if ok && existing.PID != pid && IsProcessAlive(existing.PID) {
		return ErrClientAlreadyAttached
	}
	if err := os.MkdirAll(stateDir(root), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return writeJSON(replClientPath(root), ReplClientMetadata{PID: pid, AttachedAt: time.Now()})
}

// ReleaseReplClientSlot removes repl_client.json if it is still owned by
// pid.
func ReleaseReplClientSlot(root string, pid int) error {
	existing, ok, err := readReplClient(root)
	if err != nil {
		return err
	}
	if !ok || existing.PID != pid {
		return nil
	}
	if err := os.Remove(replClientPath(root)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func readReplClient(root string) (ReplClientMetadata, bool, error) {
	var m ReplClientMetadata
	ok, err := readJSON(replClientPath(root), &m)
	return m, ok, err
}

// ShutdownDaemonLifecycle removes daemon.json unconditionally, used when
// the owning process is shutting down cleanly.
func ShutdownDaemonLifecycle(root string) error {
	if err := os.Remove(daemonPath(root)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}
