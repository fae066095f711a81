// Package paging implements the pure pagination arithmetic used by the
// loader: request windows, page intents, the pagination cursor, and window
// chunking.
//
// The cursor is a small state machine. It resolves a semantic intent (first,
// next, current) into a concrete {skip, take} window, and folds the size of a
// completed fetch back into its progress counter. It performs no I/O and is
// not goroutine-safe; the loader serializes access to it.
//
// Example usage:
//
//	cur := paging.NewCursor(50, 0)
//	w := cur.Resolve(paging.First)   // {Skip: 0, Take: 50}
//	// ... fetch w, got 50 items ...
//	cur.Advance(paging.First, 50)
//	w = cur.Resolve(paging.Next)     // {Skip: 50, Take: 50}
package paging
