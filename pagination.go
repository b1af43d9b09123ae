package zscaler

import (
	"context"
	"iter"
	"net/url"
	"strconv"
)

const defaultPageSize = 100

// Maximum page sizes accepted by each product API.
const (
	maxPageSizeZIA = 1000
	maxPageSizeZPA = 500
	maxPageSizeZCC = 5000
	maxPageSizeZTW = 1000
)

// PageOptions controls pagination of list calls.
type PageOptions struct {
	// Page is the 1-based page to start from.
	Page int
	// PageSize is the number of items per request, clamped to the product
	// maximum. Default 100.
	PageSize int
	// MaxItems stops iteration after this many items. Zero means no limit.
	MaxItems int
	// MaxPages stops iteration after this many requests. Zero means no
	// limit.
	MaxPages int
}

func (o *PageOptions) normalize(maxPageSize int) PageOptions {
	var out PageOptions
	if o != nil {
		out = *o
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize <= 0 {
		out.PageSize = defaultPageSize
	}
	if out.PageSize > maxPageSize {
		out.PageSize = maxPageSize
	}
	return out
}

// pageResult is one fetched page of a list endpoint.
type pageResult[T any] struct {
	Items []T
	// TotalPages is reported by ZPA; zero when unknown.
	TotalPages int
}

type pageFetcher[T any] func(ctx context.Context, pageNum, pageSize int) (*pageResult[T], error)

// paginate walks a paged list endpoint lazily. Every range over the
// returned sequence starts again from opts.Page.
func paginate[T any](ctx context.Context, opts *PageOptions, maxPageSize int, fetch pageFetcher[T]) iter.Seq2[T, error] {
	o := opts.normalize(maxPageSize)
	return func(yield func(T, error) bool) {
		var zero T
		pageNum := o.Page
		fetched := 0
		yielded := 0

		for {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}

			p, err := fetch(ctx, pageNum, o.PageSize)
			if err != nil {
				yield(zero, err)
				return
			}
			fetched++

			for _, item := range p.Items {
				if err := ctx.Err(); err != nil {
					yield(zero, err)
					return
				}
				if !yield(item, nil) {
					return
				}
				yielded++
				if o.MaxItems > 0 && yielded >= o.MaxItems {
					return
				}
			}

			switch {
			case len(p.Items) < o.PageSize:
				return
			case p.TotalPages > 0 && pageNum >= p.TotalPages:
				return
			case o.MaxPages > 0 && fetched >= o.MaxPages:
				return
			}
			pageNum++
		}
	}
}

// pageQuery adds page parameters to q using the product's parameter names.
func pageQuery(q url.Values, pageKey, sizeKey string, pageNum, pageSize int) url.Values {
	if q == nil {
		q = url.Values{}
	}
	q.Set(pageKey, strconv.Itoa(pageNum))
	q.Set(sizeKey, strconv.Itoa(pageSize))
	return q
}
