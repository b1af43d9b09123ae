package zscaler

import (
	"errors"
	"iter"
)

// ErrEmptyIterator is returned by First when a listing yields no items.
var ErrEmptyIterator = errors.New("zscaler: iterator is empty")

// Collect drains a listing into a slice. On error it returns the items
// read so far together with the error.
//
//	groups, err := zscaler.Collect(client.ZPA.SegmentGroups.List(ctx, "", nil))
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	return CollectN(seq, 0)
}

// CollectN is Collect bounded to n items. A non-positive n reads
// everything. Reaching n stops the listing, so no further page is fetched.
func CollectN[T any](seq iter.Seq2[T, error], n int) ([]T, error) {
	items := make([]T, 0, max(n, 0))
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
		if n > 0 && len(items) == n {
			break
		}
	}
	return items, nil
}

// First returns the first item of a listing, or ErrEmptyIterator.
func First[T any](seq iter.Seq2[T, error]) (T, error) {
	for item, err := range seq {
		return item, err
	}
	var zero T
	return zero, ErrEmptyIterator
}

// Each calls fn for every item and stops at the first listing or callback
// error.
func Each[T any](seq iter.Seq2[T, error], fn func(T) error) error {
	for item, err := range seq {
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

// Count drains a listing and returns the number of items.
func Count[T any](seq iter.Seq2[T, error]) (int, error) {
	n := 0
	for _, err := range seq {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Take limits a listing to n items.
func Take[T any](seq iter.Seq2[T, error], n int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if n <= 0 {
			return
		}
		seen := 0
		for item, err := range seq {
			if !yield(item, err) || err != nil {
				return
			}
			if seen++; seen == n {
				return
			}
		}
	}
}

// Filter yields the items matching keep. Errors pass through and end the
// listing.
func Filter[T any](seq iter.Seq2[T, error], keep func(T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			switch {
			case err != nil:
				yield(item, err)
				return
			case !keep(item):
				continue
			case !yield(item, nil):
				return
			}
		}
	}
}

// Map converts every item with fn.
//
//	names := zscaler.Map(client.ZIA.Locations.List(ctx, nil, nil), func(l *zscaler.Location) string {
//	    return l.Name
//	})
func Map[T, U any](seq iter.Seq2[T, error], fn func(T) U) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		for item, err := range seq {
			if err != nil {
				var zero U
				yield(zero, err)
				return
			}
			if !yield(fn(item), nil) {
				return
			}
		}
	}
}
