// Package runners implements the three flavor-specific executors the
// dispatcher selects between by function type (SPEC_FULL.md §4.6).
package runners

import (
	"context"
	"fmt"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/discovery"
	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/runtime"
)

// RunNative resolves fn's handler from the process-wide handler table and
// invokes it, awaiting a returned Deferred channel if the handler chose to
// run asynchronously. ext is non-nil only when an external-host context
// accompanied this call (see the dispatcher's fastpath, §4.7).
func RunNative(ctx context.Context, rtCtx *runtime.Context, fn model.NativeFunction, args map[string]any, ext *runtime.ExternalContext) (any, error) {
	handler, ok := discovery.LookupNativeHandler(fn.CanonicalID)
	if !ok {
		return nil, diag.NewRuntimeError(fn.Name, diag.ErrNativeHandlerUnregistered,
			fmt.Sprintf("no handler registered for %q (build-time registration missing)", fn.CanonicalID))
	}

	var extArg any
	if ext != nil {
		extArg = ext
	}

	result, err := handler(rtCtx, extArg, args)
	if err != nil {
		return nil, diag.NewRuntimeError(fn.Name, "", fmt.Sprintf("native handler error: %v", err))
	}

	if deferred, isDeferred := result.(runtime.Deferred); isDeferred {
		select {
		case dr := <-deferred:
			if dr.Err != nil {
				return nil, diag.NewRuntimeError(fn.Name, "", fmt.Sprintf("native handler error: %v", dr.Err))
			}
			return dr.Value, nil
		case <-ctx.Done():
			return nil, diag.NewRuntimeError(fn.Name, diag.ErrTimeout, "deferred native result timed out")
		}
	}
	return result, nil
}
