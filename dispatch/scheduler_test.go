/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mserrors "github.com/suparena/modelsync/errors"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func TestLaneOrdering(t *testing.T) {
	s := newTestScheduler(t)

	const n = 200
	var mu sync.Mutex
	var order []int
	futures := make([]*Future[int], n)
	for i := 0; i < n; i++ {
		i := i
		futures[i] = Run(s, LaneWrite, func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, f := range futures {
		v, err := f.Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	for i, v := range order {
		require.Equal(t, i, v, "write lane ran out of order")
	}
}

func TestLanesAreIndependent(t *testing.T) {
	s := newTestScheduler(t)

	release := make(chan struct{})
	blocked := Run(s, LaneWrite, func(ctx context.Context) (struct{}, error) {
		<-release
		return struct{}{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := Run(s, LaneRead, func(ctx context.Context) (string, error) {
		return "read done", nil
	}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "read done", v)

	select {
	case <-blocked.Done():
		t.Fatal("write should still be blocked")
	default:
	}
	close(release)
	_, err = blocked.Await(ctx)
	require.NoError(t, err)
}

func TestFutureExactlyOnce(t *testing.T) {
	s := newTestScheduler(t)
	boom := errors.New("boom")

	tests := []struct {
		name    string
		op      func(context.Context) (int, error)
		wantVal int
		wantErr error
	}{
		{"success", func(context.Context) (int, error) { return 7, nil }, 7, nil},
		{"failure", func(context.Context) (int, error) { return 7, boom }, 0, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			var gotVal int
			var gotErr error
			done := make(chan struct{})

			f := Run(s, LaneRead, tt.op)
			f.OnComplete(func(v int, err error) {
				calls.Add(1)
				gotVal, gotErr = v, err
				close(done)
			})

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("callback never fired")
			}
			// a late registration fires immediately
			f.OnComplete(func(int, error) { calls.Add(1) })

			assert.Equal(t, int32(2), calls.Load())
			assert.Equal(t, tt.wantVal, gotVal)
			assert.ErrorIs(t, gotErr, tt.wantErr)
			if tt.wantErr == nil {
				assert.NoError(t, gotErr)
			}
		})
	}
}

func TestRunRecoversPanics(t *testing.T) {
	s := newTestScheduler(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Run(s, LaneWrite, func(context.Context) (int, error) {
		panic("bad op")
	}).Await(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad op")

	// the lane keeps working
	require.NoError(t, s.DoWrite(func() { panic("bare panic") }))
	v, err := Run(s, LaneWrite, func(context.Context) (int, error) { return 1, nil }).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRunContextDetachesCancellation(t *testing.T) {
	s := newTestScheduler(t)

	type key struct{}
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "v"))
	cancel()

	f := RunContext(parent, s, LaneRead, func(ctx context.Context) (any, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return ctx.Value(key{}), nil
	})
	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	v, err := f.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestAwaitTimeout(t *testing.T) {
	s := newTestScheduler(t)
	release := make(chan struct{})
	defer close(release)

	f := Run(s, LaneRead, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = f.Result()
	assert.ErrorIs(t, err, ErrPending)
}

func TestClose(t *testing.T) {
	s := New()

	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, s.DoWrite(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		}))
		require.NoError(t, s.DoRead(func() { ran.Add(1) }))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, int32(100), ran.Load(), "close must drain queued work")

	t.Run("submit after close", func(t *testing.T) {
		assert.ErrorIs(t, s.DoRead(func() {}), mserrors.ErrSchedulerClosed)
		assert.ErrorIs(t, s.DoWrite(func() {}), mserrors.ErrSchedulerClosed)

		var fired atomic.Int32
		f := Run(s, LaneRead, func(context.Context) (int, error) { return 1, nil })
		f.OnComplete(func(_ int, err error) {
			fired.Add(1)
			assert.ErrorIs(t, err, mserrors.ErrSchedulerClosed)
		})
		assert.Equal(t, int32(1), fired.Load())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		assert.NoError(t, s.Close(ctx))
	})

	t.Run("close times out", func(t *testing.T) {
		slow := New()
		release := make(chan struct{})
		require.NoError(t, slow.DoWrite(func() { <-release }))

		short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, slow.Close(short), context.DeadlineExceeded)
		close(release)
		assert.NoError(t, slow.Close(ctx))
	})
}

func TestUnknownLane(t *testing.T) {
	s := newTestScheduler(t)
	err := s.Submit(Lane(9), func() {})
	assert.True(t, mserrors.IsValidationError(err))
	assert.Equal(t, 0, s.Pending(Lane(9)))
}

func TestFutureConstructors(t *testing.T) {
	v, err := Resolved("x").Result()
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	boom := errors.New("boom")
	_, err = Failed[int](boom).Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCallbackPanicsAreContained(t *testing.T) {
	t.Run("pending future runs every callback", func(t *testing.T) {
		f := newFuture[int]()
		var got []int
		f.OnComplete(func(int, error) { panic("first callback") })
		f.OnComplete(func(v int, _ error) { got = append(got, v) })
		f.OnComplete(func(v int, _ error) { got = append(got, v*2) })

		assert.NotPanics(t, func() { f.resolve(7, nil) })
		assert.Equal(t, []int{7, 14}, got)

		v, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("resolved future does not panic the caller", func(t *testing.T) {
		boom := errors.New("boom")
		var seen error
		assert.NotPanics(t, func() {
			Failed[int](boom).
				OnComplete(func(int, error) { panic("late callback") }).
				OnComplete(func(_ int, err error) { seen = err })
		})
		assert.ErrorIs(t, seen, boom)
	})

	t.Run("lane keeps resolving after a callback panic", func(t *testing.T) {
		s := newTestScheduler(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Run(s, LaneRead, func(context.Context) (int, error) { return 1, nil }).
			OnComplete(func(int, error) { panic("callback on lane") })
		v, err := Run(s, LaneRead, func(context.Context) (int, error) { return 2, nil }).Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})
}

func TestMetrics(t *testing.T) {
	set := metrics.NewSet()
	s := New(WithMetricsSet(set))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = Run(s, LaneWrite, func(context.Context) (int, error) { return 0, errors.New("x") }).Await(ctx)
	_, _ = Run(s, LaneRead, func(context.Context) (int, error) { return 0, nil }).Await(ctx)
	require.NoError(t, s.Close(ctx))

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	out := buf.String()
	assert.True(t, strings.Contains(out, `modelsync_dispatch_submitted_total{lane="write"} 1`), out)
	assert.True(t, strings.Contains(out, `modelsync_dispatch_failed_total{lane="write"} 1`), out)
	assert.True(t, strings.Contains(out, `modelsync_dispatch_failed_total{lane="read"} 0`), out)
	assert.True(t, strings.Contains(out, `modelsync_dispatch_queue_depth{lane="read"} 0`), out)
}
