package snapshot

import "slices"

// CompareNewestFirst orders snapshots by time, most recent first. It is
// the natural ordering used by retention and by every query.
func CompareNewestFirst(a, b Snapshot) int {
	return b.Time.Compare(a.Time)
}

// CompareOldestFirst orders snapshots by time, oldest first.
func CompareOldestFirst(a, b Snapshot) int {
	return a.Time.Compare(b.Time)
}

// SortNewestFirst sorts in place. Equal times keep their relative order.
func SortNewestFirst(s []Snapshot) {
	slices.SortStableFunc(s, CompareNewestFirst)
}
