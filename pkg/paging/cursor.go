package paging

import "math"

// unboundedWindow is the effective page size when pagination is disabled:
// a single window large enough to cover any realistic collection.
const unboundedWindow = math.MaxInt32

// Cursor tracks pagination progress for one collection and converts between
// semantic intents and concrete windows.
//
// loadedCount is the sole persistent progress marker: it records how far the
// cursor has advanced through the remote item space, independent of how many
// items the caller's collection currently holds.
type Cursor struct {
	pageSize   int // 0 disables pagination
	itemsCount int // size of the caller's collection, supplied externally
	loaded     int
	exhausted  bool
}

// NewCursor creates a cursor with the given page size and the current size
// of the caller's collection. A pageSize of 0 disables pagination: every
// request covers one effectively unbounded window.
// The cursor is never reconstructed internally; once the data limit is
// reached a fresh cursor must be built to resume loading.
func NewCursor(pageSize, itemsCount int) *Cursor {
	if pageSize < 0 {
		pageSize = 0
	}
	if itemsCount < 0 {
		itemsCount = 0
	}
	return &Cursor{pageSize: pageSize, itemsCount: itemsCount}
}

// PageSize returns the configured page size (0 when pagination is disabled).
func (c *Cursor) PageSize() int {
	return c.pageSize
}

// Loaded returns the cumulative loaded count.
func (c *Cursor) Loaded() int {
	return c.loaded
}

// ItemsCount returns the collection size last supplied via SetItemsCount.
func (c *Cursor) ItemsCount() int {
	return c.itemsCount
}

// SetItemsCount records the current size of the caller's collection.
// It must be refreshed before Resolve/Classify and after every store.
func (c *Cursor) SetItemsCount(n int) {
	if n < 0 {
		n = 0
	}
	c.itemsCount = n
}

// Exhausted reports whether the remote source has signalled that no items
// exist beyond the loaded boundary. The flag is monotonic: once set it stays
// set for the lifetime of the cursor.
func (c *Cursor) Exhausted() bool {
	return c.exhausted
}

// MarkExhausted forces the data-limit flag. Used by chained refresh when a
// fetched page comes back empty.
func (c *Cursor) MarkExhausted() {
	c.exhausted = true
}

// ForceLoaded resynchronizes the progress marker to the caller's actual
// holdings. Used by chained refresh on convergence.
func (c *Cursor) ForceLoaded(n int) {
	if n < 0 {
		n = 0
	}
	c.loaded = n
}

// window returns the effective page size.
func (c *Cursor) window() int {
	if c.pageSize > 0 {
		return c.pageSize
	}
	return unboundedWindow
}

// PageIndex returns the zero-based index of the page the loaded boundary
// falls into.
func (c *Cursor) PageIndex() int {
	return c.loaded / c.window()
}

// CanAdvance reports whether a Next request can make progress: pagination
// must be enabled, the data limit not reached, and the loaded boundary must
// sit exactly on a page edge (a short page means the source ran out).
func (c *Cursor) CanAdvance() bool {
	if c.pageSize == 0 || c.exhausted {
		return false
	}
	if c.itemsCount == 0 {
		return true
	}
	return c.loaded == 0 || c.loaded%c.pageSize == 0
}

// boundary returns the offset the next/current window starts or ends at.
// A boundary exactly on a page edge resumes where progress left off; a
// partially consumed page is rounded up so the window covers it fully.
func (c *Cursor) boundary() int {
	if c.loaded%c.window() == 0 {
		return c.loaded
	}
	return (c.PageIndex() + 1) * c.window()
}

// Resolve converts a semantic intent into a concrete request window against
// the current cursor state.
func (c *Cursor) Resolve(intent Intent) Window {
	switch intent {
	case First:
		return Window{Skip: 0, Take: c.window()}
	case Next:
		skip := c.boundary()
		// Data pre-seeded without any page load: start after it.
		if c.loaded == 0 && c.itemsCount > 0 {
			skip = c.itemsCount
		}
		return Window{Skip: skip, Take: c.window()}
	case Current:
		take := c.boundary()
		if take == 0 {
			take = max(c.itemsCount, c.window())
		}
		return Window{Skip: 0, Take: take}
	default:
		return Window{}
	}
}

// Classify is the inverse of Resolve: it interprets an arbitrary window
// against the current collection size and returns the intent it amounts to.
//
// A window containing offset 0 is Current when it re-fetches exactly the
// held span, otherwise First. A window starting exactly where the held data
// ends continues it (Next); anything else is treated as a partial re-fetch
// (Current). Malformed windows classify to None.
func (c *Cursor) Classify(w Window) Intent {
	if !w.Valid() {
		return None
	}
	if w.Skip == 0 {
		if w.Take == c.itemsCount {
			return Current
		}
		return First
	}
	if w.Skip == c.itemsCount {
		return Next
	}
	return Current
}

// Advance folds a completed fetch of n items, classified as intent, into
// cursor state.
func (c *Cursor) Advance(intent Intent, n int) {
	if n < 0 {
		n = 0
	}
	switch intent {
	case First:
		if c.loaded <= n {
			c.loaded = n
		}
		c.checkLimit(n)
	case Next:
		c.loaded += n
		c.checkLimit(n)
	case Current:
		prior := c.itemsCount
		switch {
		case n > prior:
			c.loaded += n - prior
		case n == prior:
			c.loaded = prior
		}
		// n < prior: the source shrank underneath us; progress is kept as is
		// and the caller decides whether to resynchronize via ForceLoaded.
	case None:
		c.loaded = n
	}
}

// checkLimit flags the data limit after a short page: paginated, some data
// loaded, and the fetch returned fewer items than a full page.
func (c *Cursor) checkLimit(n int) {
	if c.pageSize > 0 && c.loaded > 0 && n < c.pageSize {
		c.exhausted = true
	}
}
