package zscaler_test

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-zscaler"
)

// pagedLocations serves total locations in pages and records the
// requested page numbers and sizes.
type pagedLocations struct {
	mu    sync.Mutex
	total int
	pages []string
}

func (p *pagedLocations) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	p.mu.Lock()
	p.pages = append(p.pages, fmt.Sprintf("%d/%d", page, size))
	p.mu.Unlock()

	var items []string
	for id := (page-1)*size + 1; id <= page*size && id <= p.total; id++ {
		items = append(items, fmt.Sprintf(`{"id":%d,"name":"loc-%d"}`, id, id))
	}
	writeJSON(w, http.StatusOK, "["+strings.Join(items, ",")+"]")
}

func (p *pagedLocations) requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pages...)
}

func TestPagination(t *testing.T) {
	ctx := context.Background()

	t.Run("stops on short page", func(t *testing.T) {
		srv := &pagedLocations{total: 25}
		client := setupTestServer(t, srv.ServeHTTP)

		locs, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{PageSize: 10}))
		require.NoError(t, err)
		assert.Len(t, locs, 25)
		assert.Equal(t, 25, locs[24].ID)
		assert.Equal(t, []string{"1/10", "2/10", "3/10"}, srv.requests())
	})

	t.Run("exact multiple needs one empty page", func(t *testing.T) {
		srv := &pagedLocations{total: 20}
		client := setupTestServer(t, srv.ServeHTTP)

		n, err := zscaler.Count(client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{PageSize: 10}))
		require.NoError(t, err)
		assert.Equal(t, 20, n)
		assert.Equal(t, []string{"1/10", "2/10", "3/10"}, srv.requests())
	})

	t.Run("defaults", func(t *testing.T) {
		srv := &pagedLocations{total: 3}
		client := setupTestServer(t, srv.ServeHTTP)

		_, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"1/100"}, srv.requests())
	})

	t.Run("page size clamped to product maximum", func(t *testing.T) {
		srv := &pagedLocations{total: 3}
		client := setupTestServer(t, srv.ServeHTTP)

		_, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{PageSize: 50000}))
		require.NoError(t, err)
		assert.Equal(t, []string{"1/1000"}, srv.requests())
	})

	t.Run("max items", func(t *testing.T) {
		srv := &pagedLocations{total: 100}
		client := setupTestServer(t, srv.ServeHTTP)

		locs, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{PageSize: 10, MaxItems: 15}))
		require.NoError(t, err)
		assert.Len(t, locs, 15)
		assert.Equal(t, []string{"1/10", "2/10"}, srv.requests())
	})

	t.Run("max pages", func(t *testing.T) {
		srv := &pagedLocations{total: 100}
		client := setupTestServer(t, srv.ServeHTTP)

		locs, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{PageSize: 10, MaxPages: 2}))
		require.NoError(t, err)
		assert.Len(t, locs, 20)
	})

	t.Run("start page", func(t *testing.T) {
		srv := &pagedLocations{total: 25}
		client := setupTestServer(t, srv.ServeHTTP)

		locs, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{Page: 3, PageSize: 10}))
		require.NoError(t, err)
		require.Len(t, locs, 5)
		assert.Equal(t, 21, locs[0].ID)
	})

	t.Run("early break fetches no more pages", func(t *testing.T) {
		srv := &pagedLocations{total: 100}
		client := setupTestServer(t, srv.ServeHTTP)

		for loc, err := range client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{PageSize: 10}) {
			require.NoError(t, err)
			if loc.ID == 3 {
				break
			}
		}
		assert.Equal(t, []string{"1/10"}, srv.requests())
	})

	t.Run("restartable", func(t *testing.T) {
		srv := &pagedLocations{total: 12}
		client := setupTestServer(t, srv.ServeHTTP)

		seq := client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{PageSize: 10})
		first, err := zscaler.Collect(seq)
		require.NoError(t, err)
		second, err := zscaler.Collect(seq)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, []string{"1/10", "2/10", "1/10", "2/10"}, srv.requests())
	})

	t.Run("canceled context", func(t *testing.T) {
		srv := &pagedLocations{total: 100}
		client := setupTestServer(t, srv.ServeHTTP)

		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		var got []*zscaler.Location
		var iterErr error
		for loc, err := range client.ZIA.Locations.List(cctx, nil, &zscaler.PageOptions{PageSize: 10}) {
			if err != nil {
				iterErr = err
				break
			}
			got = append(got, loc)
			if len(got) == 5 {
				cancel()
			}
		}
		require.ErrorIs(t, iterErr, context.Canceled)
		assert.Len(t, got, 5)
	})

	t.Run("page error ends iteration", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "2" {
				writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
				return
			}
			items := make([]string, 10)
			for i := range items {
				items[i] = fmt.Sprintf(`{"id":%d}`, i+1)
			}
			writeJSON(w, http.StatusOK, "["+strings.Join(items, ",")+"]")
		})

		locs, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{PageSize: 10}))
		var srvErr *zscaler.ServerError
		require.ErrorAs(t, err, &srvErr)
		assert.Len(t, locs, 10)
	})
}
