package async

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/utils/errutil"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
)

// detach returns a background context that keeps the caller's logger. The
// caller's cancellation and deadline are intentionally not inherited.
func detach(ctx context.Context) context.Context {
	return logging.With(context.Background(), logging.From(ctx))
}

func run(ctx context.Context, name string, handler func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			_ = errutil.Handle(ctx, goerr.New("panic in background task", goerr.V("task", name), goerr.V("panic", r)), "background task panicked")
		}
	}()

	if err := handler(ctx); err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "background task failed", goerr.V("task", name)), "background task failed")
	}
}

// Dispatch runs handler in a new goroutine. Errors and panics are logged and
// never propagate to the caller.
func Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := detach(ctx)
	go run(bgCtx, name, handler)
}

// After runs handler once delay has elapsed. The returned function cancels
// the task if it has not started yet.
func After(ctx context.Context, delay time.Duration, name string, handler func(ctx context.Context) error) (cancel func() bool) {
	bgCtx := detach(ctx)
	t := time.AfterFunc(delay, func() { run(bgCtx, name, handler) })
	return t.Stop
}
