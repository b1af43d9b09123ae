package zscaler_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-zscaler"
)

func TestSegmentGroupPage_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"string total", `{"totalPages":"3","list":[{"id":"1","name":"a"}]}`, 3},
		{"numeric total", `{"totalPages":2,"list":[{"id":"1","name":"a"}]}`, 2},
		{"empty string", `{"totalPages":"","list":[]}`, 0},
		{"missing", `{"list":[]}`, 0},
		{"null", `{"totalPages":null}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var page zscaler.SegmentGroupPage
			require.NoError(t, json.Unmarshal([]byte(tt.input), &page))
			assert.Equal(t, tt.want, page.TotalPages)
		})
	}

	t.Run("list decoded", func(t *testing.T) {
		var page zscaler.SegmentGroupPage
		err := json.Unmarshal([]byte(`{"totalPages":"1","list":[{"id":"72058","name":"Web","enabled":true,"applications":[{"id":"9","name":"intranet"}]}]}`), &page)
		require.NoError(t, err)
		require.Len(t, page.List, 1)
		assert.Equal(t, "72058", page.List[0].ID)
		assert.True(t, page.List[0].Enabled)
		assert.Equal(t, "intranet", page.List[0].Applications[0].Name)
	})

	t.Run("invalid total", func(t *testing.T) {
		var page zscaler.SegmentGroupPage
		err := json.Unmarshal([]byte(`{"totalPages":"many"}`), &page)
		require.Error(t, err)
	})
}

func TestOSType(t *testing.T) {
	tests := []struct {
		input string
		want  zscaler.OSType
		name  string
	}{
		{"", zscaler.OSTypeAny, "Any"},
		{"ios", zscaler.OSTypeIOS, "iOS"},
		{"Android", zscaler.OSTypeAndroid, "Android"},
		{"3", zscaler.OSTypeWindows, "Windows"},
		{"mac", zscaler.OSTypeMacOS, "macOS"},
		{" linux ", zscaler.OSTypeLinux, "Linux"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := zscaler.ParseOSType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := zscaler.ParseOSType("beos")
		require.Error(t, err)
	})
}

func TestLocation_JSON(t *testing.T) {
	data, err := json.Marshal(&zscaler.Location{Name: "HQ"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"HQ","authRequired":false,"sslScanEnabled":false,"xffForwardEnabled":false,"ofwEnabled":false,"ipsControl":false}`, string(data))
}
