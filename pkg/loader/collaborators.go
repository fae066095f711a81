package loader

import (
	"context"

	"github.com/loadwise/pageloader/pkg/paging"
)

// Source fetches one window of items from the remote item space.
// Implementations are invoked off the loader's worker goroutine and must be
// safe for concurrent calls: a chunked load fans out several fetches at
// once. A zero window is a no-op request and should yield an empty page.
type Source[T any] interface {
	Fetch(ctx context.Context, w paging.Window) ([]T, error)
}

// Store is the ordered target collection the loader feeds. Put receives the
// freshly fetched items together with the requested range; a nil range means
// append. Items and Len expose the current holdings, which the loader reads
// to keep the cursor's collection size up to date.
type Store[T any] interface {
	Put(ctx context.Context, items []T, at *paging.Range) error
	Items() []T
	Len() int
}

// Listener observes load cycles. Both callbacks are invoked synchronously
// from the cycle: the cycle blocks until the callback returns, so
// notifications are strictly ordered relative to state mutation and never
// overlap between cycles. OnFinish fires exactly once per cycle with the
// cycle's outcome (nil on success).
type Listener[T any] interface {
	OnStart(l *Loader[T])
	OnFinish(l *Loader[T], err error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T any] func(ctx context.Context, w paging.Window) ([]T, error)

// Fetch implements Source.
func (f SourceFunc[T]) Fetch(ctx context.Context, w paging.Window) ([]T, error) {
	return f(ctx, w)
}
