package discovery

import "sync"

// HandlerFunc is the signature every registered native function handler
// must satisfy. ctx and ext are declared as `any`: internal/runners passes a
// *runtime.Context as ctx and, when present, a *runtime.ExternalContext as
// ext, and a handler type-asserts them itself.
type HandlerFunc func(ctx any, ext any, args map[string]any) (any, error)

// ReinitializeFunc rebuilds a native handler's process-local state when its
// owning functions are reloaded with reload=true. A nil ReinitializeFunc is
// treated as a no-op.
type ReinitializeFunc func(ctx any) error

type nativeRegistration struct {
	Handler      HandlerFunc
	Reinitialize ReinitializeFunc
}

// nativeHandlers is the process-wide table populated by RegisterNative
// calls in native source files' init() functions, keyed by canonical id.
// This realizes SPEC_FULL.md §4.3/§4.9's "handler table keyed by canonical
// id, populated at registration time" in place of dotted-path import
// resolution across a mutating import cache.
var (
	nativeHandlersMu sync.RWMutex
	nativeHandlers   = make(map[string]nativeRegistration)
)

// RegisterNative registers a native function's handler (and, optionally,
// its reinitialize hook) under canonicalID. It is meant to be called from
// an init() function in the same build as the frontmatter-bearing source
// file that declares this canonical id. Calling it twice for the same id
// panics, matching Go's own init-time duplicate-registration idiom (a
// build-time programmer error, not a runtime condition to recover from).
func RegisterNative(canonicalID string, handler HandlerFunc, reinit ReinitializeFunc) {
	nativeHandlersMu.Lock()
	defer nativeHandlersMu.Unlock()
	if _, exists := nativeHandlers[canonicalID]; exists {
		panic("brimley: native handler already registered for " + canonicalID)
	}
	nativeHandlers[canonicalID] = nativeRegistration{Handler: handler, Reinitialize: reinit}
}

// LookupNativeHandler returns the handler registered for canonicalID.
func LookupNativeHandler(canonicalID string) (HandlerFunc, bool) {
	nativeHandlersMu.RLock()
	defer nativeHandlersMu.RUnlock()
	reg, ok := nativeHandlers[canonicalID]
	if !ok {
		return nil, false
	}
	return reg.Handler, true
}

// ReinitializeNative invokes the registered reinitialize hook for
// canonicalID, if any. Returns nil if no handler or no hook is registered.
func ReinitializeNative(canonicalID string, ctx any) error {
	nativeHandlersMu.RLock()
	reg, ok := nativeHandlers[canonicalID]
	nativeHandlersMu.RUnlock()
	if !ok || reg.Reinitialize == nil {
		return nil
	}
	return reg.Reinitialize(ctx)
}

// ResetNativeHandlersForTest clears the process-wide table. Tests only.
func ResetNativeHandlersForTest() {
	nativeHandlersMu.Lock()
	defer nativeHandlersMu.Unlock()
	nativeHandlers = make(map[string]nativeRegistration)
}
