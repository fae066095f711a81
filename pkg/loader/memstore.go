package loader

import (
	"context"
	"sync"

	"github.com/loadwise/pageloader/pkg/paging"
)

// SliceStore is an in-memory Store backed by a slice. It splices positioned
// writes: the requested range is replaced by the fetched items, so a refresh
// that returns fewer items than before shrinks the collection accordingly.
type SliceStore[T any] struct {
	mu    sync.RWMutex
	items []T
}

// NewSliceStore creates a SliceStore pre-seeded with the given items.
func NewSliceStore[T any](items ...T) *SliceStore[T] {
	return &SliceStore[T]{items: items}
}

// Put implements Store.
func (s *SliceStore[T]) Put(_ context.Context, items []T, at *paging.Range) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if at == nil {
		s.items = append(s.items, items...)
		return nil
	}

	from := min(max(at.From, 0), len(s.items))
	to := min(max(at.To, from), len(s.items))

	next := make([]T, 0, from+len(items)+len(s.items)-to)
	next = append(next, s.items[:from]...)
	next = append(next, items...)
	next = append(next, s.items[to:]...)
	s.items = next
	return nil
}

// Items implements Store. The returned slice is a copy.
func (s *SliceStore[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Len implements Store.
func (s *SliceStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reset replaces the store contents.
func (s *SliceStore[T]) Reset(items ...T) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}
