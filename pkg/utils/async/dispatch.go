package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatcher runs handlers in background goroutines, optionally bounded, and can wait for them
// on shutdown
type Dispatcher struct {
	wg      sync.WaitGroup
	slots   chan struct{}
	onError func(ctx context.Context, err error)
}

type Option func(*Dispatcher)

// WithMaxConcurrency caps the number of handlers running at once. Dispatch never blocks;
// excess handlers wait for a slot in their own goroutine. n <= 0 means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.slots = make(chan struct{}, n)
		}
	}
}

// WithErrorHook is called with every handler error and recovered panic after it is logged
func WithErrorHook(hook func(ctx context.Context, err error)) Option {
	return func(d *Dispatcher) {
		d.onError = hook
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs handler in a new goroutine with a context that keeps the caller's logger but
// not its cancellation, so a finished HTTP request does not abort the job.
func (d *Dispatcher) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := ctxlog.With(context.Background(), ctxlog.From(ctx))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if d.slots != nil {
			d.slots <- struct{}{}
			defer func() { <-d.slots }()
		}

		if err := d.run(newCtx, handler); err != nil {
			ctxlog.From(newCtx).Error("async handler failed", "error", err)
			if d.onError != nil {
				d.onError(newCtx, err)
			}
		}
	}()
}

func (d *Dispatcher) run(ctx context.Context, handler func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("panic in async handler",
				goerr.V("recover", r),
				goerr.V("stack", string(debug.Stack())))
		}
	}()
	return handler(ctx)
}

// Wait blocks until every dispatched handler returned or ctx is done
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "async handlers still running")
	}
}
