package controller

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// newFSNotifyWake registers a best-effort fsnotify watcher on root that
// pings wake whenever anything underneath changes, mirroring the teacher's
// Engine.WatchFile. It only nudges the auto-reload loop to poll early; the
// deterministic snapshot diff in internal/watch still decides whether a
// reload is actually due. A nil return means fsnotify could not be set up
// (platform/resource limits) — the caller falls back to pure interval
// polling.
func newFSNotifyWake(root string, wake chan<- struct{}) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[brimley] fsnotify unavailable, falling back to interval polling: %v", err)
		return nil
	}
	if err := addRecursive(watcher, root); err != nil {
		log.Printf("[brimley] fsnotify setup failed, falling back to interval polling: %v", err)
		watcher.Close()
		return nil
	}

	go func() {
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return walkDirs(root, func(dir string) error {
		return watcher.Add(dir)
	})
}
