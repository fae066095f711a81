package paging

import "fmt"

// Window describes one contiguous slice of the remote item space:
// the half-open range [Skip, Skip+Take).
//
// The zero Window is the no-op request: a fetch for it returns nothing and a
// load cycle for it only resets the cursor.
type Window struct {
	// Skip is the number of items to skip before the slice starts.
	Skip int

	// Take is the number of items the slice covers. Zero means the window
	// carries no request.
	Take int
}

// Range is a half-open index range [From, To) in the target collection.
type Range struct {
	From int
	To   int
}

// Len returns the number of indexes the range covers.
func (r Range) Len() int {
	return r.To - r.From
}

// IsZero reports whether the window is the no-op request.
func (w Window) IsZero() bool {
	return w.Skip == 0 && w.Take == 0
}

// Valid reports whether the window describes a well-formed, non-empty range.
func (w Window) Valid() bool {
	return w.Skip >= 0 && w.Take > 0
}

// Range returns the half-open range the window covers.
func (w Window) Range() Range {
	return Range{From: w.Skip, To: w.Skip + w.Take}
}

// End returns the exclusive upper bound of the window's range.
func (w Window) End() int {
	return w.Skip + w.Take
}

// String implements fmt.Stringer for log output.
func (w Window) String() string {
	return fmt.Sprintf("[%d,%d)", w.Skip, w.Skip+w.Take)
}
