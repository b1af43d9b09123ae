package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tphakala/go-zscaler"
)

func count(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Sessions renders the result of `auth check`.
func Sessions(sessions []*zscaler.SessionInfo) *Table {
	t := &Table{Header: table.Row{"Product", "Provider", "Issued", "Expires"}}
	for _, s := range sessions {
		expires := "never"
		if !s.ExpiresAt.IsZero() {
			expires = s.ExpiresAt.Format(time.RFC3339)
		}
		t.Rows = append(t.Rows, table.Row{strings.ToUpper(string(s.Product)), s.Provider, s.IssuedAt.Format(time.RFC3339), expires})
	}
	return t
}

// Locations renders ZIA locations.
func Locations(locs []*zscaler.Location) *Table {
	t := &Table{
		Header: table.Row{"ID", "Name", "Country", "IP Addresses", "Auth", "SSL Scan"},
		Footer: count(len(locs), "location"),
	}
	for _, l := range locs {
		t.Rows = append(t.Rows, table.Row{l.ID, l.Name, l.Country, strings.Join(l.IPAddresses, ", "), yesNo(l.AuthRequired), yesNo(l.SSLScanEnabled)})
	}
	return t
}

// URLFilteringRules renders ZIA URL filtering rules.
func URLFilteringRules(rules []*zscaler.URLFilteringRule) *Table {
	t := &Table{
		Header: table.Row{"Order", "ID", "Name", "Action", "State", "Categories"},
		Footer: count(len(rules), "rule"),
	}
	for _, r := range rules {
		t.Rows = append(t.Rows, table.Row{r.Order, r.ID, r.Name, string(r.Action), string(r.State), strings.Join(r.URLCategories, ", ")})
	}
	return t
}

// Activation renders the ZIA activation state.
func Activation(status *zscaler.ActivationStatus) *Table {
	return &Table{
		Header: table.Row{"Status"},
		Rows:   []table.Row{{string(status.Status)}},
	}
}

// SegmentGroups renders ZPA segment groups.
func SegmentGroups(groups []*zscaler.SegmentGroup) *Table {
	t := &Table{
		Header: table.Row{"ID", "Name", "Enabled", "Applications"},
		Footer: count(len(groups), "segment group"),
	}
	for _, g := range groups {
		t.Rows = append(t.Rows, table.Row{g.ID, g.Name, yesNo(g.Enabled), len(g.Applications)})
	}
	return t
}

// Devices renders Client Connector devices.
func Devices(devices []*zscaler.Device) *Table {
	t := &Table{
		Header: table.Row{"UDID", "User", "OS", "OS Version", "Agent", "Hostname", "State"},
		Footer: count(len(devices), "device"),
	}
	for _, d := range devices {
		t.Rows = append(t.Rows, table.Row{d.UDID, d.User, d.Type.String(), d.OSVersion, d.AgentVersion, d.MachineHostname, d.RegistrationState})
	}
	return t
}

// ECGroups renders Edge Connector groups.
func ECGroups(groups []*zscaler.ECGroup) *Table {
	t := &Table{
		Header: table.Row{"ID", "Name", "Platform", "Deploy Type", "Status", "VMs"},
		Footer: count(len(groups), "group"),
	}
	for _, g := range groups {
		t.Rows = append(t.Rows, table.Row{g.ID, g.Name, g.Platform, g.DeployType, strings.Join(g.Status, ", "), len(g.ECVMs)})
	}
	return t
}
