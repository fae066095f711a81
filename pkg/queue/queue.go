// Package queue implements the strictly serial work queue that backs each
// loader instance: one worker goroutine, FIFO submission order, pre-start
// cancellation. It deliberately is not a general-purpose executor; the whole
// point is that no two tasks for the same queue ever run concurrently.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for queue operations.
var (
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pageloader_queue_depth",
		Help: "Number of pending tasks per queue",
	}, []string{"queue"})

	queueTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageloader_queue_tasks_total",
		Help: "Completed tasks by queue and outcome",
	}, []string{"queue", "outcome"})
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("queue is closed")

// Task is one unit of work submitted to a Serial queue.
type Task struct {
	name     string
	fn       func(ctx context.Context) error
	onFinish func(error)
	ctx      context.Context
	cancel   context.CancelFunc

	done chan struct{}
	err  error
}

// Cancel requests cancellation of the task. A task that has not started yet
// will fail with context.Canceled without ever running. A task that is
// already running keeps running; its context is cancelled and the task body
// decides what to do with that.
func (t *Task) Cancel() {
	t.cancel()
}

// Err returns the task outcome. Valid only after Wait (or Done) reports
// completion.
func (t *Task) Err() error {
	return t.err
}

// Done returns a channel closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx expires, and returns the task
// outcome respectively ctx's error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Context returns the task's context. Task bodies use it to observe
// cancellation requested between steps.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Serial is a single-worker FIFO task queue. Tasks execute one at a time in
// submission order; tasks of distinct queues are fully independent.
type Serial struct {
	name   string
	logger zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*Task
	running bool
	closed  bool
	stopped chan struct{}
}

// NewSerial creates a serial queue and starts its worker goroutine.
// The name labels log lines and metrics.
func NewSerial(name string) *Serial {
	q := &Serial{
		name:    name,
		logger:  log.With().Str("component", "queue").Str("queue", name).Logger(),
		stopped: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.work()
	return q
}

// Submit appends a task to the queue and returns a handle for cancellation
// and completion. fn receives the task context and runs on the queue's
// worker goroutine. onFinish, when non-nil, receives the task's terminal
// outcome exactly once on the worker goroutine, whether or not the body
// ran: a task cancelled before start finishes with context.Canceled, a task
// still pending at Close with ErrClosed.
func (q *Serial) Submit(name string, fn func(ctx context.Context) error, onFinish func(error)) (*Task, error) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		name:     name,
		fn:       fn,
		onFinish: onFinish,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	q.pending = append(q.pending, t)
	queueDepth.WithLabelValues(q.name).Set(float64(len(q.pending)))
	q.cond.Signal()
	q.mu.Unlock()

	q.logger.Debug().Str("task", name).Msg("Task enqueued")
	return t, nil
}

// Busy reports whether the queue has a pending or running task.
func (q *Serial) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running || len(q.pending) > 0
}

// Close stops the worker after the current task, failing all still-pending
// tasks with ErrClosed. It blocks until the worker has exited.
func (q *Serial) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.stopped
}

// work is the single worker loop.
func (q *Serial) work() {
	defer close(q.stopped)

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}

		t := q.pending[0]
		q.pending = q.pending[1:]
		queueDepth.WithLabelValues(q.name).Set(float64(len(q.pending)))

		if q.closed {
			q.mu.Unlock()
			q.finish(t, ErrClosed)
			continue
		}
		q.running = true
		q.mu.Unlock()

		var err error
		if t.ctx.Err() != nil {
			// Cancelled before it ever started: the task body never runs.
			err = context.Canceled
			q.logger.Debug().Str("task", t.name).Msg("Task cancelled before start")
		} else {
			err = t.fn(t.ctx)
		}

		q.mu.Lock()
		q.running = false
		q.mu.Unlock()

		q.finish(t, err)
	}
}

// finish records the outcome, notifies the finish hook, and releases
// waiters. The hook runs before done closes so Wait callers observe its
// effects.
func (q *Serial) finish(t *Task, err error) {
	t.err = err
	t.cancel()
	if t.onFinish != nil {
		t.onFinish(err)
	}
	close(t.done)

	outcome := "ok"
	switch {
	case errors.Is(err, context.Canceled):
		outcome = "cancelled"
	case err != nil:
		outcome = "error"
	}
	queueTasksTotal.WithLabelValues(q.name, outcome).Inc()

	q.logger.Debug().Str("task", t.name).Str("outcome", outcome).Msg("Task finished")
}
