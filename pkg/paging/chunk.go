package paging

// Split breaks an oversized window into an ordered sequence of bounded
// sub-windows of at most limit items each. Order is significant: the pieces
// cover the original range left to right and results must be reassembled in
// that order even when fetched concurrently.
//
// Windows that already fit (or a non-positive limit) pass through unchanged.
func Split(w Window, limit int) []Window {
	if limit <= 0 || w.Take <= limit {
		return []Window{w}
	}

	n := (w.Take + limit - 1) / limit
	chunks := make([]Window, 0, n)

	skip := w.Skip
	remaining := w.Take
	for remaining > 0 {
		take := min(remaining, limit)
		chunks = append(chunks, Window{Skip: skip, Take: take})
		skip += take
		remaining -= take
	}
	return chunks
}
