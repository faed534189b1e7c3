package store

import (
	"slices"
)

// Order is the sort order of a keyset listing.
type Order int

const (
	OrderAscending Order = iota
	OrderDescending
)

// Direction tells whether a keyset listing resumes after or before the cursor.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionBackward
)

func (o Order) String() string {
	if o == OrderDescending {
		return "desc"
	}
	return "asc"
}

func (d Direction) String() string {
	if d == DirectionBackward {
		return "backward"
	}
	return "forward"
}

// Keyset returns the row-value comparison operator to apply against the cursor and the
// SQL sort direction to query in. Backward listings are queried in reverse and must be
// passed through RestoreOrder afterwards.
func Keyset(order Order, direction Direction) (comparison string, sort string) {
	reverse := (order == OrderDescending) != (direction == DirectionBackward)
	if reverse {
		return "<", "DESC"
	}
	return ">", "ASC"
}

// RestoreOrder reverses rows fetched by a backward listing so that they come back in the requested order.
func RestoreOrder[T any](rows []T, direction Direction) {
	if direction == DirectionBackward {
		slices.Reverse(rows)
	}
}

// TrimPage drops the surplus row of a limit+1 fetch and reports whether more rows exist.
// rows must already be in the requested order.
func TrimPage[T any](rows []T, limit int, direction Direction) ([]T, bool) {
	if limit < 0 || len(rows) <= limit {
		return rows, false
	}
	if direction == DirectionBackward {
		return rows[len(rows)-limit:], true
	}
	return rows[:limit], true
}
