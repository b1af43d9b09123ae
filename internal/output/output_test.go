package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/go-zscaler"
	"github.com/tphakala/go-zscaler/internal/output"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want output.Format
	}{
		{"", output.FormatTable},
		{"table", output.FormatTable},
		{"JSON", output.FormatJSON},
		{" yaml ", output.FormatYAML},
		{"yml", output.FormatYAML},
	}
	for _, tt := range tests {
		got, err := output.ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := output.ParseFormat("csv")
	require.Error(t, err)
}

var sampleLocations = []*zscaler.Location{
	{ID: 1001, Name: "branch-01", Country: "UNITED_STATES", IPAddresses: []string{"203.0.113.10"}, AuthRequired: true},
	{ID: 1002, Name: "branch-02", Country: "FINLAND", SSLScanEnabled: true},
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatTable)
	require.NoError(t, p.Print(sampleLocations, output.Locations(sampleLocations)))

	rendered := buf.String()
	assert.Contains(t, rendered, "NAME")
	assert.Contains(t, rendered, "branch-01")
	assert.Contains(t, rendered, "203.0.113.10")
	assert.Contains(t, rendered, "FINLAND")
	assert.Contains(t, strings.ToUpper(rendered), "2 LOCATIONS")
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatJSON)
	require.NoError(t, p.Print(sampleLocations, output.Locations(sampleLocations)))

	var decoded []zscaler.Location
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "branch-02", decoded[1].Name)
	assert.Contains(t, buf.String(), "\n  ")
}

func TestPrinter_YAML(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatYAML)
	require.NoError(t, p.Print(sampleLocations, output.Locations(sampleLocations)))

	assert.Contains(t, buf.String(), "ipAddresses:")

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "branch-01", decoded[0]["name"])
	assert.Equal(t, true, decoded[0]["authRequired"])
}

func TestPrinter_TableWithoutView(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatTable)
	require.NoError(t, p.Print(map[string]string{"status": "ACTIVE"}, nil))
	assert.Equal(t, "status: ACTIVE\n", buf.String())
}

func TestTables(t *testing.T) {
	issued := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		table *output.Table
		rows  int
		want  []string
	}{
		{
			name: "sessions",
			table: output.Sessions([]*zscaler.SessionInfo{
				{Product: zscaler.ProductZIA, Provider: "zia-session", IssuedAt: issued, ExpiresAt: issued.Add(30 * time.Minute)},
				{Product: zscaler.ProductZPA, Provider: "oneapi", IssuedAt: issued},
			}),
			rows: 2,
			want: []string{"ZIA", "zia-session", "2026-10-19T12:30:00Z", "never"},
		},
		{
			name: "url rules",
			table: output.URLFilteringRules([]*zscaler.URLFilteringRule{
				{ID: 7, Name: "Block gambling", Order: 1, Action: zscaler.ActionBlock, State: zscaler.RuleEnabled, URLCategories: []string{"GAMBLING", "OTHER"}},
			}),
			rows: 1,
			want: []string{"Block gambling", "BLOCK", "GAMBLING, OTHER", "1 RULE"},
		},
		{
			name:  "activation",
			table: output.Activation(&zscaler.ActivationStatus{Status: zscaler.ActivationPending}),
			rows:  1,
			want:  []string{"PENDING"},
		},
		{
			name: "segment groups",
			table: output.SegmentGroups([]*zscaler.SegmentGroup{
				{ID: "72058304855001001", Name: "Intranet", Enabled: true, Applications: []zscaler.SegmentGroupApplication{{ID: "1"}}},
			}),
			rows: 1,
			want: []string{"72058304855001001", "Intranet", "yes", "1 SEGMENT GROUP"},
		},
		{
			name: "devices",
			table: output.Devices([]*zscaler.Device{
				{UDID: "MAC-0001", User: "asmith@example.com", Type: zscaler.OSTypeMacOS, OSVersion: "14.5"},
			}),
			rows: 1,
			want: []string{"MAC-0001", "macOS", "14.5"},
		},
		{
			name: "ec groups",
			table: output.ECGroups([]*zscaler.ECGroup{
				{ID: 1, Name: "aws-us-east-1", Platform: "AWS", Status: []string{"ENABLED"}, ECVMs: []zscaler.ECVM{{ID: 11}, {ID: 12}}},
			}),
			rows: 1,
			want: []string{"aws-us-east-1", "AWS", "ENABLED"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.table.Rows, tt.rows)

			var buf bytes.Buffer
			require.NoError(t, output.NewPrinter(&buf, output.FormatTable).Print(nil, tt.table))
			rendered := strings.ToUpper(buf.String())
			for _, s := range tt.want {
				assert.Contains(t, rendered, strings.ToUpper(s))
			}
		})
	}
}
