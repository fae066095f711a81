// Package refresh layers refresh policies over a loader: a rate-throttled
// "reload the current window" controller and the chained refresh walk that
// reconnects freshly fetched data with already-held data.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loadwise/pageloader/pkg/loader"
	"github.com/loadwise/pageloader/pkg/paging"
)

// Errors specific to the refresh layer.
var (
	// ErrQueueBusy is returned when the loader's queue already has a pending
	// or running cycle; nothing is enqueued in that case.
	ErrQueueBusy = errors.New("refresh queue is busy")

	// ErrUpToDate is returned by an Outdated-mode refresh inside the
	// configured refresh rate.
	ErrUpToDate = errors.New("refresh is up to date")

	// ErrWaitTimeout is returned by the blocking variant when the configured
	// wait elapses before the refresh completes.
	ErrWaitTimeout = errors.New("refresh wait timed out")
)

// Mode selects the throttling behavior of a refresh.
type Mode int

const (
	// Force refreshes regardless of the refresh rate.
	Force Mode = iota

	// Outdated refreshes only when the last refresh is older than the rate.
	Outdated
)

// String implements fmt.Stringer for log output.
func (m Mode) String() string {
	if m == Force {
		return "force"
	}
	return "outdated"
}

// Config holds refresher configuration.
type Config struct {
	// Rate is the minimum interval between Outdated-mode refreshes.
	Rate time.Duration

	// ChunkLimit, when positive, makes the refresh action a chunked load.
	ChunkLimit int

	// WaitTimeout bounds the blocking variant. 0 waits forever.
	WaitTimeout time.Duration
}

// Refresher throttles current-window reloads of one loader.
type Refresher[T any] struct {
	loader *loader.Loader[T]
	cfg    Config
	logger zerolog.Logger

	mu   sync.Mutex
	last time.Time
}

// New creates a refresher over the given loader.
func New[T any](l *loader.Loader[T], cfg Config) *Refresher[T] {
	return &Refresher[T]{
		loader: l,
		cfg:    cfg,
		logger: log.With().Str("component", "refresh").Logger(),
	}
}

// CanRefresh reports whether an Outdated-mode refresh would run: always
// before the first refresh or while the collection is empty, afterwards only
// once the refresh rate has elapsed.
func (r *Refresher[T]) CanRefresh() bool {
	r.mu.Lock()
	last := r.last
	r.mu.Unlock()

	if last.IsZero() || r.loader.Held() == 0 {
		return true
	}
	return time.Since(last) > r.cfg.Rate
}

// Start enqueues a current-window reload and returns without waiting for
// it. onDone, if non-nil, receives the outcome. Guard failures (ErrUpToDate,
// ErrQueueBusy) are returned immediately and enqueue nothing. The refresh
// timestamp is recorded when the action completes, success or not.
func (r *Refresher[T]) Start(mode Mode, onDone func(error)) error {
	if mode == Outdated && !r.CanRefresh() {
		r.logger.Debug().Msg("Refresh skipped, up to date")
		return ErrUpToDate
	}
	if r.loader.Busy() {
		r.logger.Debug().Msg("Refresh rejected, queue busy")
		return ErrQueueBusy
	}

	complete := func(_ []T, err error) {
		r.mu.Lock()
		r.last = time.Now()
		r.mu.Unlock()

		r.logger.Debug().Err(err).Stringer("mode", mode).Msg("Refresh finished")
		if onDone != nil {
			onDone(err)
		}
	}

	var err error
	if r.cfg.ChunkLimit > 0 {
		_, err = r.loader.EnqueueChunked(paging.Current, r.cfg.ChunkLimit, complete)
	} else {
		_, err = r.loader.Enqueue(paging.Current, complete)
	}
	return err
}

// Sync performs a refresh and blocks until it completes, the configured
// WaitTimeout elapses, or ctx expires. On success it returns the held items.
func (r *Refresher[T]) Sync(ctx context.Context, mode Mode) ([]T, error) {
	done := make(chan error, 1)
	if err := r.Start(mode, func(err error) { done <- err }); err != nil {
		return nil, err
	}

	var timeout <-chan time.Time
	if r.cfg.WaitTimeout > 0 {
		timeout = time.After(r.cfg.WaitTimeout)
	}

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return r.loader.Items(), nil
	case <-timeout:
		return nil, ErrWaitTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
