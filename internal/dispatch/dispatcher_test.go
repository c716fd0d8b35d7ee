package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/farkelheizen/brimley/internal/config"
	"github.com/farkelheizen/brimley/internal/discovery"
	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/runtime"
)

func execSettings(poolSize, queueSize int, onFull string) config.ExecutionSettings {
	return config.ExecutionSettings{
		ThreadPoolSize: poolSize,
		TimeoutSeconds: 1,
		Queue:          config.QueueSettings{MaxSize: queueSize, OnFull: onFull},
	}
}

func nativeFn(canonicalID, name string) model.Function {
	return model.NewNative(model.NativeFunction{
		Common: model.Common{
			Name:        name,
			CanonicalID: canonicalID,
			ReturnShape: model.ReturnShape{TypeExpr: "string"},
		},
		Handler: "handlers.Echo",
	})
}

func TestRunDispatchesToWorkerPool(t *testing.T) {
	discovery.ResetNativeHandlersForTest()
	defer discovery.ResetNativeHandlersForTest()
	discovery.RegisterNative("native:dispatch_test.go:Echo", func(ctx, ext any, args map[string]any) (any, error) {
		return args["value"], nil
	}, nil)

	d := New()
	rtCtx := runtime.NewContext()
	fn := nativeFn("native:dispatch_test.go:Echo", "echo")

	out, err := d.Run(context.Background(), rtCtx, fn, map[string]any{"value": "hi"}, nil, execSettings(2, 4, "reject"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hi" {
		t.Fatalf("got %v, want hi", out)
	}
}

func TestRunFastpathBypassesPoolWhenExternalContextPresent(t *testing.T) {
	discovery.ResetNativeHandlersForTest()
	defer discovery.ResetNativeHandlersForTest()
	ran := false
	discovery.RegisterNative("native:dispatch_test.go:Fastpath", func(ctx, ext any, args map[string]any) (any, error) {
		ran = true
		if ext == nil {
			t.Fatalf("expected the external context to be passed through")
		}
		return "ok", nil
	}, nil)

	d := New()
	rtCtx := runtime.NewContext()
	fn := nativeFn("native:dispatch_test.go:Fastpath", "fastpath")

	out, err := d.Run(context.Background(), rtCtx, fn, nil, &runtime.ExternalContext{Raw: "mcp"}, execSettings(0, 0, "reject"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran || out != "ok" {
		t.Fatalf("got ran=%v out=%v", ran, out)
	}
}

func TestRunReturnsTimeoutErrorWhenHandlerBlocksPastDeadline(t *testing.T) {
	discovery.ResetNativeHandlersForTest()
	defer discovery.ResetNativeHandlersForTest()
	discovery.RegisterNative("native:dispatch_test.go:Slow", func(ctx, ext any, args map[string]any) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return "too late", nil
	}, nil)

	d := New()
	rtCtx := runtime.NewContext()
	fn := nativeFn("native:dispatch_test.go:Slow", "slow")
	exec := execSettings(1, 1, "reject")
	exec.TimeoutSeconds = 0.02

	_, err := d.Run(context.Background(), rtCtx, fn, nil, nil, exec)
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
}

func TestRunRejectsWhenQueueFullAndOnFullIsReject(t *testing.T) {
	discovery.ResetNativeHandlersForTest()
	defer discovery.ResetNativeHandlersForTest()
	block := make(chan struct{})
	discovery.RegisterNative("native:dispatch_test.go:Blocker", func(ctx, ext any, args map[string]any) (any, error) {
		<-block
		return "done", nil
	}, nil)
	defer close(block)

	d := New()
	rtCtx := runtime.NewContext()
	fn := nativeFn("native:dispatch_test.go:Blocker", "blocker")
	exec := execSettings(1, 0, "reject")
	exec.TimeoutSeconds = 5

	errCh := make(chan error, 2)
	go func() {
		_, err := d.Run(context.Background(), rtCtx, fn, nil, nil, exec)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond) // let the first call occupy the only slot

	go func() {
		_, err := d.Run(context.Background(), rtCtx, fn, nil, nil, exec)
		errCh <- err
	}()

	var sawReject bool
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			sawReject = true
		}
	}
	if !sawReject {
		t.Fatalf("expected the second call to be rejected while the pool was saturated")
	}
}
