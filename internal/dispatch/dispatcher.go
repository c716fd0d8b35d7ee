// Package dispatch implements the bounded-queue scheduler described in
// SPEC_FULL.md §4.7: a shared worker pool, a total-capacity slot gate, a
// per-call timeout, and a fastpath that bypasses both for native calls
// carrying an external-host context.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farkelheizen/brimley/internal/args"
	"github.com/farkelheizen/brimley/internal/config"
	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/resultmap"
	"github.com/farkelheizen/brimley/internal/runners"
	"github.com/farkelheizen/brimley/internal/runtime"
)

// poolSignature is the (thread_pool_size, queue.max_size, queue.on_full)
// tuple the dispatcher watches for lazy reconfiguration across reloads.
type poolSignature struct {
	ThreadPoolSize int
	MaxQueueSize   int
	OnFull         string
}

// Dispatcher runs calls against a shared worker pool guarded by a bounded
// slot counter of total capacity thread_pool_size+queue.max_size. It is
// safe for concurrent use; Run may be called from many goroutines.
type Dispatcher struct {
	mu        sync.Mutex
	sig       poolSignature
	slots     chan struct{}
	jobs      chan func()
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New constructs a Dispatcher with no pool yet provisioned; the first Run
// call lazily provisions it from the caller's execution settings.
func New() *Dispatcher {
	return &Dispatcher{}
}

// ensurePool rebuilds the worker pool and slot gate if sig changed since
// the last call, realizing SPEC_FULL.md §4.7's "recreated whenever the
// signature changes between calls (lazy reconfiguration across reloads)".
func (d *Dispatcher) ensurePool(sig poolSignature) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sig == sig && d.jobs != nil {
		return
	}
	if d.stop != nil {
		close(d.stop)
		d.wg.Wait()
	}

	d.sig = sig
	d.slots = make(chan struct{}, sig.ThreadPoolSize+sig.MaxQueueSize)
	d.jobs = make(chan func(), sig.MaxQueueSize)
	d.stop = make(chan struct{})

	for i := 0; i < sig.ThreadPoolSize; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			job()
		}
	}
}

// Run dispatches a single call: resolves arguments, selects a runner by
// fn's type tag, enforces the effective timeout, and maps the result.
func (d *Dispatcher) Run(ctx context.Context, rtCtx *runtime.Context, fn model.Function, userInput map[string]any, ext *runtime.ExternalContext, exec config.ExecutionSettings) (any, error) {
	common := fn.CommonFields()
	traceID := uuid.New().String()

	resolvedArgs, err := args.Resolve(common.Arguments, userInput, rtCtx)
	if err != nil {
		if re, ok := err.(*diag.RuntimeError); ok {
			re.FunctionName = common.Name
		}
		return nil, err
	}

	timeout := effectiveTimeout(common.TimeoutSeconds, exec.TimeoutSeconds)

	// Fastpath: native call carrying an external-host context bypasses the
	// pool entirely and runs synchronously on the caller's goroutine.
	if fn.Type == model.FunctionNative && ext != nil {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		raw, err := runners.RunNative(callCtx, rtCtx, *fn.Native, resolvedArgs, ext)
		if err != nil {
			return nil, err
		}
		return resultmap.Map(raw, common.ReturnShape, rtCtx)
	}

	sig := poolSignature{
		ThreadPoolSize: exec.ThreadPoolSize,
		MaxQueueSize:   exec.Queue.MaxSize,
		OnFull:         exec.Queue.OnFull,
	}
	if sig.ThreadPoolSize <= 0 {
		sig.ThreadPoolSize = 1
	}
	d.ensurePool(sig)

	acquired, err := d.acquireSlot(timeout, sig.OnFull)
	if err != nil {
		return nil, err
	}
	defer func() {
		if acquired {
			<-d.slots
		}
	}()

	type outcome struct {
		value any
		err   error
	}
	resultCh := make(chan outcome, 1)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	submitted := make(chan struct{})
	d.jobs <- func() {
		close(submitted)
		defer func() {
			if r := recover(); r != nil {
				resultCh <- outcome{err: diag.NewRuntimeError(common.Name, "", fmt.Sprintf("runner panic: %v", r))}
			}
		}()
		raw, runErr := runFlavor(callCtx, rtCtx, fn, resolvedArgs, ext)
		if runErr != nil {
			resultCh <- outcome{err: runErr}
			return
		}
		mapped, mapErr := resultmap.Map(raw, common.ReturnShape, rtCtx)
		resultCh <- outcome{value: mapped, err: mapErr}
	}

	select {
	case out := <-resultCh:
		if out.err != nil {
			log.Printf("[brimley] call %s (trace %s) failed: %v", common.Name, traceID, out.err)
		}
		return out.value, out.err
	case <-callCtx.Done():
		log.Printf("[brimley] call %s (trace %s) exceeded its effective timeout", common.Name, traceID)
		return nil, diag.NewRuntimeError(common.Name, diag.ErrTimeout, "call exceeded the effective timeout")
	}
}

func (d *Dispatcher) acquireSlot(timeout time.Duration, onFull string) (bool, error) {
	select {
	case d.slots <- struct{}{}:
		return true, nil
	default:
	}
	if onFull == "reject" {
		return false, diag.NewRuntimeError("", diag.ErrQueueFull, "dispatcher queue is full")
	}
	// onFull == "block": wait up to the per-call timeout for a slot.
	select {
	case d.slots <- struct{}{}:
		return true, nil
	case <-time.After(timeout):
		return false, diag.NewRuntimeError("", diag.ErrQueueFull, "timed out waiting for a dispatcher slot")
	}
}

func runFlavor(ctx context.Context, rtCtx *runtime.Context, fn model.Function, resolvedArgs map[string]any, ext *runtime.ExternalContext) (any, error) {
	switch fn.Type {
	case model.FunctionNative:
		return runners.RunNative(ctx, rtCtx, *fn.Native, resolvedArgs, ext)
	case model.FunctionSQL:
		return runners.RunSQL(ctx, rtCtx, *fn.SQL, resolvedArgs)
	case model.FunctionTemplate:
		return runners.RunTemplate(*fn.Template, resolvedArgs)
	default:
		return nil, diag.NewRuntimeError(fn.CommonFields().Name, diag.ErrUnknownFunctionType,
			"no runner registered for this function type")
	}
}

func effectiveTimeout(perCall *float64, ctxDefault float64) time.Duration {
	seconds := ctxDefault
	if perCall != nil {
		seconds = *perCall
	}
	if seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds * float64(time.Second))
}
