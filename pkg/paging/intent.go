package paging

// Intent is the caller's semantic request target, resolved by the cursor
// into a concrete window.
type Intent int

const (
	// None requests nothing; resolving it yields the zero window.
	None Intent = iota

	// First requests the first page regardless of prior progress.
	First

	// Next requests the page following the loaded boundary.
	Next

	// Current requests a re-fetch of the full span known so far.
	Current
)

// String implements fmt.Stringer for log and metric labels.
func (i Intent) String() string {
	switch i {
	case First:
		return "first"
	case Next:
		return "next"
	case Current:
		return "current"
	default:
		return "none"
	}
}
