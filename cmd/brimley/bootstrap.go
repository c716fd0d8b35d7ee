package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/farkelheizen/brimley/internal/config"
	"github.com/farkelheizen/brimley/internal/controller"
	"github.com/farkelheizen/brimley/internal/discovery"
	"github.com/farkelheizen/brimley/internal/reload"
	"github.com/farkelheizen/brimley/internal/runtime"
	"github.com/farkelheizen/brimley/internal/watch"
)

// bootstrap loads brimley.yaml under root, builds a fully-wired
// runtime.Context (settings, database connections opened eagerly),
// and runs the initial synchronous scan+reload cycle.
func bootstrap(root string) (*runtime.Context, reload.Result, error) {
	cfgPath := filepath.Join(root, "brimley.yaml")
	doc, err := config.Load(cfgPath)
	if err != nil {
		return nil, reload.Result{}, fmt.Errorf("load config: %w", err)
	}

	ctx := runtime.NewContext()
	ctx.Settings = doc.Brimley
	ctx.Config = doc.Config
	ctx.MCPSettings = doc.MCP
	ctx.AutoReload = doc.AutoReload
	ctx.Execution = doc.Execution

	for name, dbSettings := range doc.Databases {
		db, err := sql.Open("sqlite", dbSettings.URL)
		if err != nil {
			return nil, reload.Result{}, fmt.Errorf("open database %q: %w", name, err)
		}
		ctx.SetDatabase(name, db)
	}

	scan, err := discovery.Scan(root)
	if err != nil {
		return nil, reload.Result{}, fmt.Errorf("scan %s: %w", root, err)
	}
	result := reload.Apply(ctx, scan)
	return ctx, result, nil
}

// newController builds a controller.Controller over ctx, wired from the
// context's own auto_reload settings.
func newController(root string, ctx *runtime.Context, lifecycle controller.Lifecycle) *controller.Controller {
	w := watch.New(root, ctx.AutoReload.IncludePatterns, ctx.AutoReload.ExcludePatterns, int64(ctx.AutoReload.DebounceMs))
	return controller.New(root, ctx, w, int64(ctx.AutoReload.IntervalMs), lifecycle)
}

// controllerLifecycle returns a Lifecycle that prints every reload cycle
// as it happens, for processes that run an auto-reload loop in the
// background.
func controllerLifecycle() controller.Lifecycle {
	return controller.Lifecycle{
		OnReloadSuccess: func(r reload.Result) { printReloadResult("reload", r) },
		OnReloadFailure: func(err error) { fmt.Fprintf(os.Stderr, "reload failed: %v\n", err) },
	}
}

func printReloadResult(prefix string, result reload.Result) {
	if len(result.BlockedDomains) == 0 {
		fmt.Printf("%s: entities=%d functions=%d tools=%d\n", prefix, result.Summary.Entities, result.Summary.Functions, result.Summary.Tools)
		return
	}
	fmt.Printf("%s: entities=%d functions=%d tools=%d (blocked: %v)\n", prefix, result.Summary.Entities, result.Summary.Functions, result.Summary.Tools, result.BlockedDomains)
	for _, d := range result.Diagnostics {
		if d.Severity.Blocking() {
			fmt.Fprintln(os.Stderr, d.String())
		}
	}
}
