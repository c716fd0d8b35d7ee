// Package reload implements the partitioned reload engine (SPEC_FULL.md
// §4.9): partition a scan result into entities -> functions -> tool-exports
// domains in fixed dependency order, apply a fail-closed swap policy per
// domain, and quarantine functions whose backing file broke.
package reload

import (
	"fmt"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/discovery"
	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/registry"
	"github.com/farkelheizen/brimley/internal/runtime"
)

// Domain is one of the three reload units, in fixed dependency order.
type Domain string

const (
	DomainEntities    Domain = "entities"
	DomainFunctions   Domain = "functions"
	DomainToolExports Domain = "tool-exports"
)

// DomainOrder is the fixed dependency order domains swap in.
var DomainOrder = []Domain{DomainEntities, DomainFunctions, DomainToolExports}

// BuiltinEntityNames are always present in the entities registry,
// regardless of what the scan discovered.
var BuiltinEntityNames = []string{"ContentBlock", "PromptMessage"}

// Summary reports the per-domain swap outcome of one reload cycle.
type Summary struct {
	Entities int
	Functions int
	Tools     int
}

// Result is the engine's return value, matching SPEC_FULL.md §4.9's
// "{summary: {entities, functions, tools}, blocked_domains, diagnostics}".
type Result struct {
	Summary        Summary
	BlockedDomains []Domain
	Diagnostics    []diag.Diagnostic
}

// domainDiagnostics groups scan diagnostics by which domain's files they
// are attributed to (by file path membership in that domain's candidate
// set).
type domainDiagnostics struct {
	entities  []diag.Diagnostic
	functions []diag.Diagnostic
	tools     []diag.Diagnostic
}

// Apply partitions scan into domains and swaps the entities and functions
// registries into ctx atomically when their domains are permitted. The
// tool-exports domain has no registry of its own: when permitted, only its
// function count is reported in the summary. Blocked domains leave the previous
// registry in place; a blocked functions domain quarantines previously
// registered functions whose canonical id matches a file that produced a
// blocking diagnostic in this cycle.
func Apply(ctx *runtime.Context, scan discovery.ScanResult) Result {
	var result Result
	result.Diagnostics = append(result.Diagnostics, scan.Diagnostics...)

	toolFns, plainFns := partitionTools(scan.Functions)
	dd := attributeDiagnostics(scan, toolFns, plainFns)

	entitiesBlocked := diag.AnyBlocking(dd.entities)
	if !entitiesBlocked {
		newEntities := registry.New[model.Entity]()
		for _, name := range BuiltinEntityNames {
			_ = newEntities.Register(model.Entity{Name: name, Kind: model.EntityNative, CanonicalID: "builtin:" + name})
		}
		for _, e := range scan.Entities {
			if err := newEntities.Register(e); err != nil {
				// A duplicate among entities surfaces as a diagnostic
				// rather than silently dropping the entity.
				result.Diagnostics = append(result.Diagnostics, diag.New(
					e.CanonicalID, diag.ErrDuplicateName, diag.SeverityError, err.Error(),
				))
			}
		}
		ctx.SwapEntities(newEntities)
		result.Summary.Entities = newEntities.Length()
	} else {
		result.BlockedDomains = append(result.BlockedDomains, DomainEntities)
		result.Summary.Entities = ctx.Entities().Length()
	}

	functionsBlocked := entitiesBlocked || diag.AnyBlocking(dd.functions)
	if !functionsBlocked {
		previousFunctions := ctx.Functions()
		newFunctions := registry.New[model.Function]()
		if err := newFunctions.RegisterAll(plainFns); err != nil {
			result.Diagnostics = append(result.Diagnostics, diag.New(
				"", diag.ErrDuplicateName, diag.SeverityError, err.Error(),
			))
		}
		ctx.SwapFunctions(newFunctions)
		result.Summary.Functions = newFunctions.Length()
		rehydrateNativeFunctions(ctx, previousFunctions, plainFns, &result)
	} else {
		result.BlockedDomains = append(result.BlockedDomains, DomainFunctions)
		result.Summary.Functions = ctx.Functions().Length()
		quarantineBrokenFunctions(ctx, scan.Diagnostics)
	}

	toolsBlocked := functionsBlocked || diag.AnyBlocking(dd.tools)
	if !toolsBlocked {
		result.Summary.Tools = len(toolFns)
	} else {
		result.BlockedDomains = append(result.BlockedDomains, DomainToolExports)
	}

	return result
}

func partitionTools(fns []model.Function) (tools, plain []model.Function) {
	for _, f := range fns {
		if f.CommonFields().MCP != nil && f.CommonFields().MCP.Type == "tool" {
			tools = append(tools, f)
		}
		plain = append(plain, f)
	}
	return tools, plain
}

func attributeDiagnostics(scan discovery.ScanResult, toolFns, plainFns []model.Function) domainDiagnostics {
	entityPaths := map[string]bool{}
	for _, e := range scan.Entities {
		entityPaths[e.CanonicalID] = true
	}
	functionPaths := map[string]bool{}
	for _, f := range plainFns {
		functionPaths[f.CommonFields().SourcePath] = true
	}
	toolPaths := map[string]bool{}
	for _, f := range toolFns {
		toolPaths[f.CommonFields().SourcePath] = true
	}

	var dd domainDiagnostics
	for _, d := range scan.Diagnostics {
		switch {
		case entityPaths[d.FilePath]:
			dd.entities = append(dd.entities, d)
		case functionPaths[d.FilePath]:
			dd.functions = append(dd.functions, d)
		case toolPaths[d.FilePath]:
			dd.tools = append(dd.tools, d)
		default:
			// A diagnostic for a file that produced no record at all
			// (e.g. total parse failure) still blocks the functions
			// domain by default, since most scanned files are function
			// declarations and an unattributed blocking diagnostic
			// should not be silently dropped from swap-policy
			// consideration.
			if d.Severity.Blocking() {
				dd.functions = append(dd.functions, d)
			}
		}
	}
	return dd
}

// rehydrateNativeFunctions runs only when the functions domain actually
// swapped: native functions with reload=true that were already in the
// previous registry are grouped by handler, and for each handler the
// Reinitialize hook registered under the group's first canonical id is
// invoked once. Functions registered for the first time are not
// reinitialized. A failing reinitialize quarantines every function of that
// group (see SPEC_FULL.md §4.9/§9's Open-Question resolution: "whole
// module" and "its functions" coincide by construction in the Go
// handler-table design).
func rehydrateNativeFunctions(ctx *runtime.Context, previous *registry.Registry[model.Function], fns []model.Function, result *Result) {
	byHandler := map[string][]model.Function{}
	for _, f := range fns {
		if f.Type != model.FunctionNative || !f.Native.Reload || !previous.Contains(f.Native.Name) {
			continue
		}
		byHandler[f.Native.Handler] = append(byHandler[f.Native.Handler], f)
	}
	for handler, group := range byHandler {
		canonicalID := group[0].Native.CanonicalID
		if err := discovery.ReinitializeNative(canonicalID, ctx); err != nil {
			msg := fmt.Sprintf("reinitialize failed for handler %q: %v", handler, err)
			for _, f := range group {
				result.Diagnostics = append(result.Diagnostics, diag.New(
					f.Native.SourcePath, diag.ErrNativeReinitFailed, diag.SeverityError, msg,
				))
				ctx.Functions().MarkQuarantined(f.Native.Name, msg)
			}
		}
	}
}

// quarantineBrokenFunctions marks, in the surviving registry, every
// currently-registered function whose canonical id corresponds to a file
// that produced a blocking diagnostic this cycle — the fail-closed
// guarantee from SPEC_FULL.md §4.9/§7.
func quarantineBrokenFunctions(ctx *runtime.Context, scanDiags []diag.Diagnostic) {
	reasonByPath := map[string]string{}
	for _, d := range scanDiags {
		if d.Severity.Blocking() {
			if _, ok := reasonByPath[d.FilePath]; !ok {
				reasonByPath[d.FilePath] = d.Message
			}
		}
	}
	if len(reasonByPath) == 0 {
		return
	}
	current := ctx.Functions()
	for _, fn := range current.Iterate() {
		path := fn.CommonFields().SourcePath
		if reason, broken := reasonByPath[path]; broken {
			current.MarkQuarantined(fn.CommonFields().Name, reason)
		}
	}
}
