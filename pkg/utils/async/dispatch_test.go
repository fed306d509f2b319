package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/bumprisk/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func loggerContext(buf *lockedBuffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, nil)).With("delivery_id", "d-1")
	return ctxlog.With(context.Background(), logger)
}

func TestDispatch_HandlerContext(t *testing.T) {
	buf := &lockedBuffer{}
	ctx, cancel := context.WithCancel(loggerContext(buf))
	d := async.NewDispatcher()

	var cancelled atomic.Bool
	d.Dispatch(ctx, func(ctx context.Context) error {
		ctxlog.From(ctx).Info("assessing")
		cancel()
		select {
		case <-ctx.Done():
			cancelled.Store(true)
		default:
		}
		return nil
	})

	gt.NoError(t, d.Wait(context.Background()))
	gt.False(t, cancelled.Load())
	gt.True(t, strings.Contains(buf.String(), "delivery_id=d-1"))
}

func TestDispatch_Failures(t *testing.T) {
	buf := &lockedBuffer{}
	var (
		mu     sync.Mutex
		hooked []error
	)
	d := async.NewDispatcher(async.WithErrorHook(func(ctx context.Context, err error) {
		mu.Lock()
		defer mu.Unlock()
		hooked = append(hooked, err)
	}))

	ctx := loggerContext(buf)
	d.Dispatch(ctx, func(ctx context.Context) error {
		return errors.New("comment rejected")
	})
	d.Dispatch(ctx, func(ctx context.Context) error {
		panic("nil diff")
	})
	d.Dispatch(ctx, func(ctx context.Context) error {
		return nil
	})
	gt.NoError(t, d.Wait(context.Background()))

	gt.Equal(t, len(hooked), 2)
	var panicked bool
	for _, err := range hooked {
		var gerr *goerr.Error
		if errors.As(err, &gerr) && gerr.Error() == "panic in async handler" {
			panicked = true
			values := gerr.Values()
			gt.Equal(t, values["recover"], any("nil diff"))
			stack, _ := values["stack"].(string)
			gt.True(t, strings.Contains(stack, "dispatch_test.go"))
		}
	}
	gt.True(t, panicked)

	logs := buf.String()
	gt.True(t, strings.Contains(logs, "comment rejected"))
	gt.True(t, strings.Contains(logs, "panic in async handler"))
}

func TestDispatch_MaxConcurrency(t *testing.T) {
	d := async.NewDispatcher(async.WithMaxConcurrency(2))

	var running, peak atomic.Int32
	release := make(chan struct{})
	for i := 0; i < 5; i++ {
		d.Dispatch(context.Background(), func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil
		})
	}

	time.Sleep(50 * time.Millisecond)
	gt.Equal(t, running.Load(), int32(2))
	close(release)

	gt.NoError(t, d.Wait(context.Background()))
	gt.Equal(t, peak.Load(), int32(2))
}

func TestDispatcher_Wait(t *testing.T) {
	t.Run("returns immediately without handlers", func(t *testing.T) {
		gt.NoError(t, async.NewDispatcher().Wait(context.Background()))
	})

	t.Run("gives up when context expires", func(t *testing.T) {
		d := async.NewDispatcher()
		block := make(chan struct{})
		defer close(block)

		d.Dispatch(context.Background(), func(ctx context.Context) error {
			<-block
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		gt.Error(t, d.Wait(ctx))
	})
}
