// Package testutil provides fake collaborators for loader tests: a scripted
// remote source and a recording listener.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/loadwise/pageloader/pkg/loader"
	"github.com/loadwise/pageloader/pkg/paging"
)

// FakeRemote is a Source backed by an in-memory item slice. Each fetch
// serves the requested window clipped to the backing data, records the call,
// and optionally delays or fails.
type FakeRemote[T any] struct {
	mu    sync.Mutex
	items []T

	// Err, when set, fails every fetch.
	Err error

	// Delay is applied before each fetch returns.
	Delay time.Duration

	calls []paging.Window
}

// NewFakeRemote creates a remote serving the given items.
func NewFakeRemote[T any](items ...T) *FakeRemote[T] {
	return &FakeRemote[T]{items: items}
}

// SetItems replaces the remote data, simulating upstream changes.
func (f *FakeRemote[T]) SetItems(items ...T) {
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
}

// Prepend inserts items at the front of the remote data, the situation a
// chained refresh exists for.
func (f *FakeRemote[T]) Prepend(items ...T) {
	f.mu.Lock()
	f.items = append(append([]T{}, items...), f.items...)
	f.mu.Unlock()
}

// Fetch implements loader.Source.
func (f *FakeRemote[T]) Fetch(_ context.Context, w paging.Window) ([]T, error) {
	f.mu.Lock()
	f.calls = append(f.calls, w)
	err := f.Err
	delay := f.Delay

	var page []T
	if w.Valid() {
		from := min(w.Skip, len(f.items))
		to := min(w.End(), len(f.items))
		page = append([]T{}, f.items[from:to]...)
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Calls returns the windows fetched so far.
func (f *FakeRemote[T]) Calls() []paging.Window {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]paging.Window{}, f.calls...)
}

// RecordingListener counts cycle notifications and keeps every finish
// outcome in order.
type RecordingListener[T any] struct {
	mu       sync.Mutex
	Starts   int
	Finishes []error
}

// OnStart implements loader.Listener.
func (r *RecordingListener[T]) OnStart(*loader.Loader[T]) {
	r.mu.Lock()
	r.Starts++
	r.mu.Unlock()
}

// OnFinish implements loader.Listener.
func (r *RecordingListener[T]) OnFinish(_ *loader.Loader[T], err error) {
	r.mu.Lock()
	r.Finishes = append(r.Finishes, err)
	r.mu.Unlock()
}

// Outcomes returns the recorded finish errors.
func (r *RecordingListener[T]) Outcomes() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error{}, r.Finishes...)
}

// StartCount returns the recorded start count.
func (r *RecordingListener[T]) StartCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Starts
}
