/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/suparena/modelsync/errors"
	"golang.org/x/sync/errgroup"
)

// Lane selects the queue a unit of work runs on.
type Lane int

const (
	LaneRead Lane = iota
	LaneWrite
)

func (l Lane) String() string {
	switch l {
	case LaneRead:
		return "read"
	case LaneWrite:
		return "write"
	}
	return fmt.Sprintf("Lane(%d)", int(l))
}

// task is one queued unit of work. A non-nil error counts as a failure.
type task func() error

// Scheduler runs submitted work on two independent FIFO lanes.
type Scheduler struct {
	read   *lane
	write  *lane
	logger *slog.Logger
	set    *metrics.Set
	prefix string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger for recovered panics and lane lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsSet records metrics into set instead of a private set.
func WithMetricsSet(set *metrics.Set) Option {
	return func(s *Scheduler) {
		if set != nil {
			s.set = set
		}
	}
}

// WithMetricsPrefix changes the metric name prefix. Use distinct prefixes when
// several schedulers share one metrics set.
func WithMetricsPrefix(prefix string) Option {
	return func(s *Scheduler) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a Scheduler and starts one worker goroutine per lane.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: slog.Default(),
		prefix: "modelsync_dispatch",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.set == nil {
		s.set = metrics.NewSet()
	}

	s.read = newLane(LaneRead, s)
	s.write = newLane(LaneWrite, s)
	go s.read.loop()
	go s.write.loop()
	return s
}

// DoRead queues fn on the read lane.
func (s *Scheduler) DoRead(fn func()) error {
	return s.Submit(LaneRead, fn)
}

// DoWrite queues fn on the write lane.
func (s *Scheduler) DoWrite(fn func()) error {
	return s.Submit(LaneWrite, fn)
}

// Submit queues fn on the given lane. It never blocks and returns
// errors.ErrSchedulerClosed once Close has been called.
func (s *Scheduler) Submit(l Lane, fn func()) error {
	return s.submit(l, func() error {
		fn()
		return nil
	})
}

func (s *Scheduler) submit(l Lane, t task) error {
	ln, err := s.lane(l)
	if err != nil {
		return err
	}
	return ln.push(t)
}

func (s *Scheduler) lane(l Lane) (*lane, error) {
	switch l {
	case LaneRead:
		return s.read, nil
	case LaneWrite:
		return s.write, nil
	}
	return nil, errors.NewValidationError("lane", fmt.Sprintf("unknown lane %d", int(l)))
}

// Pending returns the number of queued, not yet started, units of work on l.
func (s *Scheduler) Pending(l Lane) int {
	ln, err := s.lane(l)
	if err != nil {
		return 0
	}
	return ln.depth()
}

// Close stops accepting work and waits until both lanes have drained, or
// until ctx ends. Queued work keeps running after a ctx error.
func (s *Scheduler) Close(ctx context.Context) error {
	s.read.close()
	s.write.close()

	var g errgroup.Group
	for _, ln := range []*lane{s.read, s.write} {
		ln := ln
		g.Go(func() error {
			select {
			case <-ln.done:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("draining %s lane: %w", ln.id, ctx.Err())
			}
		})
	}
	return g.Wait()
}

// WritePrometheus writes the scheduler metrics in Prometheus text format.
func (s *Scheduler) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
}

// Run queues op on lane l and returns its Future. The op receives a
// background context: submitted work is not cancelled. Panics in op resolve
// the future with an error. On a closed scheduler the future resolves
// immediately with errors.ErrSchedulerClosed.
func Run[T any](s *Scheduler, l Lane, op func(ctx context.Context) (T, error)) *Future[T] {
	return RunContext(context.Background(), s, l, op)
}

// RunContext is like Run but hands op a context carrying the values of ctx,
// detached from its cancellation.
func RunContext[T any](ctx context.Context, s *Scheduler, l Lane, op func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	opCtx := context.WithoutCancel(ctx)

	err := s.submit(l, func() error {
		v, err := call(opCtx, op)
		f.resolve(v, err)
		return err
	})
	if err != nil {
		var zero T
		f.resolve(zero, err)
	}
	return f
}

func call[T any](ctx context.Context, op func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// lane is an unbounded FIFO drained by one goroutine.
type lane struct {
	id     Lane
	logger *slog.Logger

	mu     sync.Mutex
	queue  []task
	closed bool
	wake   chan struct{}
	done   chan struct{}

	submitted *metrics.Counter
	completed *metrics.Counter
	failed    *metrics.Counter
	duration  *metrics.Histogram
}

func newLane(id Lane, s *Scheduler) *lane {
	l := &lane{
		id:     id,
		logger: s.logger.With("lane", id.String()),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	label := fmt.Sprintf(`{lane=%q}`, id.String())
	l.submitted = s.set.NewCounter(s.prefix + "_submitted_total" + label)
	l.completed = s.set.NewCounter(s.prefix + "_completed_total" + label)
	l.failed = s.set.NewCounter(s.prefix + "_failed_total" + label)
	l.duration = s.set.NewHistogram(s.prefix + "_duration_seconds" + label)
	s.set.NewGauge(s.prefix+"_queue_depth"+label, func() float64 {
		return float64(l.depth())
	})
	return l
}

func (l *lane) push(t task) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.ErrSchedulerClosed
	}
	l.queue = append(l.queue, t)
	l.mu.Unlock()

	l.submitted.Inc()
	l.signal()
	return nil
}

func (l *lane) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *lane) depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *lane) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

func (l *lane) loop() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 {
			if l.closed {
				l.mu.Unlock()
				l.logger.Debug("lane drained")
				return
			}
			l.mu.Unlock()
			<-l.wake
			l.mu.Lock()
		}
		t := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.execute(t)
	}
}

func (l *lane) execute(t task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.failed.Inc()
			l.logger.Error("recovered panic in dispatched work", "panic", r, "stack", string(debug.Stack()))
		}
		l.completed.Inc()
		l.duration.UpdateDuration(start)
	}()

	if err := t(); err != nil {
		l.failed.Inc()
	}
}
