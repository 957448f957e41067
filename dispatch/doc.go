/*
Package dispatch runs store operations off the caller's goroutine.

A Scheduler owns two lanes, LaneRead and LaneWrite. Each lane is an
unbounded FIFO drained by a single goroutine, so work submitted to one lane
by one goroutine runs in submission order. The two lanes run independently
of each other.

Run wraps an operation in a Future that resolves exactly once:

	s := dispatch.New(dispatch.WithLogger(logger))
	defer s.Close(ctx)

	f := dispatch.Run(s, dispatch.LaneWrite, func(ctx context.Context) (int, error) {
	    return store.Count(ctx)
	})
	n, err := f.Await(ctx)

Submitted work is never cancelled. Await only bounds how long the caller
waits. Per-lane counters, queue depth gauges and duration histograms are
kept in a VictoriaMetrics set and can be exposed with WritePrometheus.
*/
package dispatch
