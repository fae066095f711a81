// Package loader implements the serialized load cycle that drives a paged
// remote source into an ordered target collection: resolve or classify the
// request window, fetch, fold the result into the pagination cursor, store,
// and notify.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loadwise/pageloader/pkg/paging"
	"github.com/loadwise/pageloader/pkg/queue"
)

// Prometheus metrics for load cycles.
var (
	loadCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageloader_load_cycles_total",
		Help: "Completed load cycles by intent and status",
	}, []string{"intent", "status"})

	loadCycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pageloader_load_cycle_duration_seconds",
		Help:    "Load cycle duration in seconds by intent",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"intent"})

	fetchedItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pageloader_fetched_items_total",
		Help: "Total items fetched from sources",
	})
)

// loaderSeq numbers loaders with no explicit name.
var loaderSeq atomic.Uint64

// Config holds loader configuration.
type Config struct {
	// Name labels the loader's queue, logs and metrics. Optional.
	Name string

	// PageSize is the request window size. 0 disables pagination: every
	// request covers one effectively unbounded window.
	PageSize int

	// CallTimeout bounds each collaborator call (fetch, store). 0 waits
	// forever, which is the default: a finite bound makes ErrTimeout
	// reachable.
	CallTimeout time.Duration

	// MaxConcurrency caps the fan-out of a chunked load. Defaults to 10.
	MaxConcurrency int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(pageSize int) Config {
	return Config{
		PageSize:       pageSize,
		CallTimeout:    0,
		MaxConcurrency: 10,
	}
}

// Loader drives load cycles for one target collection. All cycles of one
// loader run strictly one at a time in submission order; distinct loaders
// are fully independent.
type Loader[T any] struct {
	source Source[T]
	store  Store[T]
	cfg    Config
	logger zerolog.Logger
	queue  *queue.Serial

	mu       sync.Mutex
	cursor   *paging.Cursor
	listener Listener[T]
}

// New creates a loader over the given source and store. The cursor is
// constructed once, seeded with the store's current size, and only mutated
// by completed cycles afterwards.
func New[T any](source Source[T], store Store[T], cfg Config) (*Loader[T], error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 10
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("loader-%d", loaderSeq.Add(1))
	}

	return &Loader[T]{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: log.With().Str("component", "loader").Str("loader", cfg.Name).Logger(),
		queue:  queue.NewSerial(cfg.Name),
		cursor: paging.NewCursor(cfg.PageSize, store.Len()),
	}, nil
}

// SetListener installs the cycle listener. Pass nil to remove it.
func (l *Loader[T]) SetListener(lst Listener[T]) {
	l.mu.Lock()
	l.listener = lst
	l.mu.Unlock()
}

// Items returns the current holdings of the target collection.
func (l *Loader[T]) Items() []T {
	return l.store.Items()
}

// Held returns the current size of the target collection.
func (l *Loader[T]) Held() int {
	return l.store.Len()
}

// Busy reports whether a cycle is pending or running.
func (l *Loader[T]) Busy() bool {
	return l.queue.Busy()
}

// Loaded returns the cursor's cumulative progress marker.
func (l *Loader[T]) Loaded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor.Loaded()
}

// PageIndex returns the cursor's current page index.
func (l *Loader[T]) PageIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor.PageIndex()
}

// Exhausted reports whether the source has signalled the data limit.
func (l *Loader[T]) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor.Exhausted()
}

// CanAdvance reports whether a Next load can make progress.
func (l *Loader[T]) CanAdvance() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cursor.SetItemsCount(l.store.Len())
	return l.cursor.CanAdvance()
}

// MarkExhausted forces the cursor's data-limit flag.
func (l *Loader[T]) MarkExhausted() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cursor.MarkExhausted()
}

// ForceLoaded resynchronizes the cursor's progress marker to n.
func (l *Loader[T]) ForceLoaded(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cursor.ForceLoaded(n)
}

// Close stops the loader's queue. Pending cycles fail with ErrQueue.
func (l *Loader[T]) Close() {
	l.queue.Close()
}

// guard fails fast for intents the cursor can already reject, without
// enqueueing anything.
func (l *Loader[T]) guard(intent paging.Intent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if intent == paging.Next && l.cursor.Exhausted() {
		return ErrDataLimitReached
	}
	return nil
}

// Load resolves the intent and runs one serialized load cycle, blocking
// until it completes. It returns the freshly fetched page.
func (l *Loader[T]) Load(ctx context.Context, intent paging.Intent) ([]T, error) {
	if err := l.guard(intent); err != nil {
		return nil, err
	}
	return l.run(ctx, cycleSpec[T]{intent: intent})
}

// LoadWindow runs one serialized load cycle for an explicit window,
// blocking until it completes. The window is classified against the cursor
// to decide how its result folds into pagination progress.
func (l *Loader[T]) LoadWindow(ctx context.Context, w paging.Window) ([]T, error) {
	return l.run(ctx, cycleSpec[T]{window: w, classify: true})
}

// Enqueue submits a load cycle for the intent without waiting for it.
// onDone, if non-nil, receives the outcome; the returned task can be
// cancelled before it starts.
func (l *Loader[T]) Enqueue(intent paging.Intent, onDone func([]T, error)) (*queue.Task, error) {
	if err := l.guard(intent); err != nil {
		return nil, err
	}
	return l.submit(cycleSpec[T]{intent: intent}, onDone)
}

// directFetch is the plain single-window fetch step.
func (l *Loader[T]) directFetch(w paging.Window) func(ctx context.Context) ([]T, error) {
	return func(ctx context.Context) ([]T, error) {
		return l.source.Fetch(ctx, w)
	}
}

// cycleSpec describes one cycle work item. Cycles triggered by a semantic
// intent carry it and resolve their window when the cycle executes, so
// queued cycles see the progress of the cycles before them; cycles for an
// explicit window classify it against the cursor instead. A positive
// chunkLimit allows the fetch to fan out when the resolved window exceeds
// it.
type cycleSpec[T any] struct {
	window     paging.Window
	intent     paging.Intent
	classify   bool
	chunkLimit int
}

// describe labels the work item for queue logs.
func (s cycleSpec[T]) describe() string {
	if s.classify {
		return "load " + s.window.String()
	}
	return "load " + s.intent.String()
}

// run submits a cycle and blocks until it finishes or ctx expires.
func (l *Loader[T]) run(ctx context.Context, spec cycleSpec[T]) ([]T, error) {
	var page []T
	task, err := l.submit(spec, func(items []T, _ error) { page = items })
	if err != nil {
		return nil, err
	}
	if err := task.Wait(ctx); err != nil {
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			err = ErrCancelled
		case errors.Is(err, queue.ErrClosed):
			err = fmt.Errorf("%w: %v", ErrQueue, err)
		}
		return nil, err
	}
	return page, nil
}

// submit enqueues one cycle work item. onDone receives the cycle's terminal
// outcome exactly once, including for cycles that never run because they
// were cancelled before start or the loader was closed.
func (l *Loader[T]) submit(spec cycleSpec[T], onDone func([]T, error)) (*queue.Task, error) {
	var page []T
	task, err := l.queue.Submit(spec.describe(), func(ctx context.Context) error {
		p, cycleErr := l.cycle(ctx, spec)
		page = p
		return cycleErr
	}, func(err error) {
		if onDone == nil {
			return
		}
		switch {
		case errors.Is(err, context.Canceled):
			err = ErrCancelled
		case errors.Is(err, queue.ErrClosed):
			err = fmt.Errorf("%w: %v", ErrQueue, err)
		}
		onDone(page, err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueue, err)
	}
	return task, nil
}

// cycle is one load cycle: resolve or classify, guard, notify start, fetch,
// check cancellation, advance the cursor, store, notify finish. The finish
// notification fires exactly once regardless of which step failed.
func (l *Loader[T]) cycle(ctx context.Context, spec cycleSpec[T]) (page []T, err error) {
	start := time.Now()
	w := spec.window

	l.mu.Lock()
	l.cursor.SetItemsCount(l.store.Len())
	intent := spec.intent
	if spec.classify {
		intent = l.cursor.Classify(w)
	} else {
		w = l.cursor.Resolve(intent)
	}
	exhausted := l.cursor.Exhausted()
	listener := l.listener
	l.mu.Unlock()

	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		loadCyclesTotal.WithLabelValues(intent.String(), status).Inc()
		loadCycleDuration.WithLabelValues(intent.String()).Observe(time.Since(start).Seconds())

		if listener != nil {
			listener.OnFinish(l, err)
		}
	}()

	if !w.IsZero() && !w.Valid() {
		return nil, &CycleError{Intent: intent, Window: w, Phase: "validate", Err: ErrInvalidWindow}
	}
	if exhausted && (w.Skip > 0 || (!spec.classify && intent == paging.Next)) {
		return nil, &CycleError{Intent: intent, Window: w, Phase: "guard", Err: ErrDataLimitReached}
	}

	if listener != nil {
		listener.OnStart(l)
	}

	l.logger.Debug().
		Stringer("intent", intent).
		Stringer("window", w).
		Msg("Load cycle started")

	page, err = await(ctx, l.cfg.CallTimeout, l.fetchStep(spec, w))
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			err = &CycleError{Intent: intent, Window: w, Phase: "fetch", Err: ErrTimeout}
		}
		l.logger.Warn().Err(err).Stringer("window", w).Msg("Fetch failed")
		return nil, err
	}
	fetchedItemsTotal.Add(float64(len(page)))

	// A cancellation requested mid-fetch discards the result; the fetch
	// itself is never aborted.
	if ctx.Err() != nil {
		l.logger.Debug().Stringer("window", w).Msg("Cycle cancelled, result discarded")
		return nil, &CycleError{Intent: intent, Window: w, Phase: "commit", Err: ErrCancelled}
	}

	l.mu.Lock()
	l.cursor.SetItemsCount(l.store.Len())
	l.cursor.Advance(intent, len(page))
	l.mu.Unlock()

	var at *paging.Range
	if w.Valid() {
		r := w.Range()
		at = &r
	}
	if _, err = await(ctx, l.cfg.CallTimeout, func(sctx context.Context) (struct{}, error) {
		return struct{}{}, l.store.Put(sctx, page, at)
	}); err != nil {
		if errors.Is(err, ErrTimeout) {
			err = &CycleError{Intent: intent, Window: w, Phase: "store", Err: ErrTimeout}
		}
		l.logger.Warn().Err(err).Stringer("window", w).Msg("Store failed")
		return nil, err
	}

	l.mu.Lock()
	l.cursor.SetItemsCount(l.store.Len())
	loaded := l.cursor.Loaded()
	l.mu.Unlock()

	l.logger.Info().
		Stringer("intent", intent).
		Stringer("window", w).
		Int("fetched", len(page)).
		Int("loaded", loaded).
		Dur("duration", time.Since(start)).
		Msg("Load cycle complete")

	return page, nil
}

// await runs a collaborator call on its own goroutine and blocks until it
// completes or the bounded wait elapses. A non-positive timeout waits
// forever. The call is never aborted on timeout; only its result is
// abandoned.
func await[R any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (R, error)) (R, error) {
	type outcome struct {
		v   R
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{v, err}
	}()

	if timeout <= 0 {
		o := <-ch
		return o.v, o.err
	}

	select {
	case o := <-ch:
		return o.v, o.err
	case <-time.After(timeout):
		var zero R
		return zero, ErrTimeout
	}
}
