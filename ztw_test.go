package zscaler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-zscaler"
)

func TestECGroupService_List(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ztw/ecgroup", r.URL.Path)
		writeJSON(w, http.StatusOK, `[{"id":5,"name":"aws-east","deployType":"CLOUD","location":{"id":3,"name":"vpc"},"ecVMs":[{"id":1,"name":"vm-1","status":["ACTIVE"]}]}]`)
	})

	groups, err := zscaler.Collect(client.ZTW.ECGroups.List(context.Background(), nil))
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "aws-east", groups[0].Name)
	require.Len(t, groups[0].ECVMs, 1)
	assert.Equal(t, []string{"ACTIVE"}, groups[0].ECVMs[0].Status)
}
