package zscaler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-zscaler"
)

func TestDeviceService_List(t *testing.T) {
	t.Run("filters", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/zcc/public/v1/getDevices", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "jdoe@acme.com", q.Get("username"))
			assert.Equal(t, "3", q.Get("osType"))
			assert.Equal(t, "1", q.Get("page"))
			assert.Equal(t, "100", q.Get("pageSize"))
			writeJSON(w, http.StatusOK, `[{"udid":"A1","user":"jdoe@acme.com","type":3,"agentVersion":"4.2.0"}]`)
		})

		devices, err := zscaler.Collect(client.ZCC.Devices.List(context.Background(), &zscaler.DeviceFilter{
			Username: "jdoe@acme.com",
			OSType:   zscaler.OSTypeWindows,
		}, nil))
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, zscaler.OSTypeWindows, devices[0].Type)
		assert.Equal(t, "4.2.0", devices[0].AgentVersion)
	})

	t.Run("no filter", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.False(t, r.URL.Query().Has("osType"))
			assert.False(t, r.URL.Query().Has("username"))
			writeJSON(w, http.StatusOK, `[]`)
		})

		_, err := zscaler.Collect(client.ZCC.Devices.List(context.Background(), nil, nil))
		require.NoError(t, err)
	})
}
