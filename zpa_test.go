package zscaler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-zscaler"
)

const segmentGroupPath = "/zpa/mgmtconfig/v1/admin/customers/" + testCustomerID + "/segmentGroup"

func TestSegmentGroupService_List(t *testing.T) {
	t.Run("follows totalPages", func(t *testing.T) {
		var pages []string
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, segmentGroupPath, r.URL.Path)
			assert.Equal(t, "web", r.URL.Query().Get("search"))
			page := r.URL.Query().Get("page")
			pages = append(pages, page+"/"+r.URL.Query().Get("pagesize"))

			// Full pages every time: only totalPages ends the listing.
			n, _ := strconv.Atoi(page)
			items := make([]string, 2)
			for i := range items {
				items[i] = fmt.Sprintf(`{"id":"%d","name":"web-%d"}`, n*10+i, n*10+i)
			}
			writeJSON(w, http.StatusOK, `{"totalPages":"3","list":[`+strings.Join(items, ",")+`]}`)
		})

		groups, err := zscaler.Collect(client.ZPA.SegmentGroups.List(context.Background(), "web", &zscaler.PageOptions{PageSize: 2}))
		require.NoError(t, err)
		assert.Len(t, groups, 6)
		assert.Equal(t, "30", groups[4].ID)
		assert.Equal(t, []string{"1/2", "2/2", "3/2"}, pages)
	})

	t.Run("page size clamped to 500", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "500", r.URL.Query().Get("pagesize"))
			writeJSON(w, http.StatusOK, `{"totalPages":"1","list":[]}`)
		})

		n, err := zscaler.Count(client.ZPA.SegmentGroups.List(context.Background(), "", &zscaler.PageOptions{PageSize: 1000}))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("list page", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.False(t, r.URL.Query().Has("search"))
			writeJSON(w, http.StatusOK, `{"totalPages":4,"list":[{"id":"1","name":"a"}]}`)
		})

		page, err := client.ZPA.SegmentGroups.ListPage(context.Background(), "", nil)
		require.NoError(t, err)
		assert.Equal(t, 4, page.TotalPages)
		assert.Len(t, page.List, 1)
	})
}

func TestSegmentGroupService_CRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, segmentGroupPath+"/72058", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"id":"72058","name":"Web","enabled":true}`)
		})

		group, err := client.ZPA.SegmentGroups.Get(ctx, "72058")
		require.NoError(t, err)
		assert.Equal(t, "Web", group.Name)
	})

	t.Run("create", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, segmentGroupPath, r.URL.Path)
			writeJSON(w, http.StatusCreated, `{"id":"72059","name":"Apps","enabled":true}`)
		})

		group, err := client.ZPA.SegmentGroups.Create(ctx, &zscaler.SegmentGroup{Name: "Apps", Enabled: true})
		require.NoError(t, err)
		assert.Equal(t, "72059", group.ID)
	})

	t.Run("update has no response body", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, segmentGroupPath+"/72059", r.URL.Path)
			var body zscaler.SegmentGroup
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "72059", body.ID)
			w.WriteHeader(http.StatusNoContent)
		})

		require.NoError(t, client.ZPA.SegmentGroups.Update(ctx, "72059", &zscaler.SegmentGroup{Name: "Apps"}))
	})

	t.Run("delete", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		})

		require.NoError(t, client.ZPA.SegmentGroups.Delete(ctx, "72059"))
	})

	t.Run("validation", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("request should not be sent")
		})

		var valErr *zscaler.ValidationError
		_, err := client.ZPA.SegmentGroups.Get(ctx, "")
		require.ErrorAs(t, err, &valErr)
		_, err = client.ZPA.SegmentGroups.Create(ctx, &zscaler.SegmentGroup{})
		require.ErrorAs(t, err, &valErr)
		err = client.ZPA.SegmentGroups.Update(ctx, "1", nil)
		require.ErrorAs(t, err, &valErr)
		err = client.ZPA.SegmentGroups.Delete(ctx, "")
		require.ErrorAs(t, err, &valErr)
	})
}
