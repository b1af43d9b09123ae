package mockapi

import (
	"fmt"

	"github.com/tphakala/go-zscaler"
)

// AddLocation stores a location and returns its assigned ID.
func (s *Server) AddLocation(loc zscaler.Location) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	loc.ID = s.nextID
	s.locations[loc.ID] = &loc
	return loc.ID
}

// AddURLFilteringRule stores a rule and returns its assigned ID.
func (s *Server) AddURLFilteringRule(rule zscaler.URLFilteringRule) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rule.ID = s.nextID
	s.rules[rule.ID] = &rule
	return rule.ID
}

// AddSegmentGroup stores a segment group and returns its assigned ID.
func (s *Server) AddSegmentGroup(g zscaler.SegmentGroup) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g.ID = segmentGroupID(s.nextID)
	s.groups[g.ID] = &g
	return g.ID
}

// AddDevice enrolls a device.
func (s *Server) AddDevice(d zscaler.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, &d)
}

// AddECGroup stores an Edge Connector group.
func (s *Server) AddECGroup(g zscaler.ECGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ecGroups = append(s.ecGroups, &g)
}

// Activation returns the ZIA activation state.
func (s *Server) Activation() zscaler.ActivationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activation
}

func (s *Server) seed() {
	for i, country := range []string{"UNITED_STATES", "FINLAND", "GERMANY", "JAPAN"} {
		s.AddLocation(zscaler.Location{
			Name:           fmt.Sprintf("branch-%02d", i+1),
			Country:        country,
			IPAddresses:    []string{fmt.Sprintf("203.0.113.%d", i+10)},
			AuthRequired:   i%2 == 0,
			SSLScanEnabled: true,
			Profile:        "CORPORATE",
		})
	}

	s.AddURLFilteringRule(zscaler.URLFilteringRule{
		Name: "Block gambling", Order: 1, Rank: 7, State: zscaler.RuleEnabled,
		Action: zscaler.ActionBlock, URLCategories: []string{"GAMBLING"},
	})
	s.AddURLFilteringRule(zscaler.URLFilteringRule{
		Name: "Caution social", Order: 2, Rank: 7, State: zscaler.RuleEnabled,
		Action: zscaler.ActionCaution, URLCategories: []string{"SOCIAL_NETWORKING"},
	})

	s.AddSegmentGroup(zscaler.SegmentGroup{
		Name: "Intranet", Enabled: true, ConfigSpace: "DEFAULT",
		Applications: []zscaler.SegmentGroupApplication{{ID: "72058304855001", Name: "wiki"}},
	})
	s.AddSegmentGroup(zscaler.SegmentGroup{Name: "Engineering", Enabled: true, ConfigSpace: "DEFAULT"})

	s.AddDevice(zscaler.Device{UDID: "WIN-0001", User: "jdoe@mock.example.com", Type: zscaler.OSTypeWindows, OSVersion: "10.0.22631", AgentVersion: "4.4.0.300", MachineHostname: "jdoe-laptop", RegistrationState: "Registered"})
	s.AddDevice(zscaler.Device{UDID: "MAC-0001", User: "asmith@mock.example.com", Type: zscaler.OSTypeMacOS, OSVersion: "14.5", AgentVersion: "4.3.0.150", MachineHostname: "asmith-mbp", RegistrationState: "Registered"})
	s.AddDevice(zscaler.Device{UDID: "IOS-0001", User: "jdoe@mock.example.com", Type: zscaler.OSTypeIOS, OSVersion: "17.5", AgentVersion: "3.9.0", RegistrationState: "Registered"})

	s.AddECGroup(zscaler.ECGroup{
		ID: 1, Name: "aws-us-east-1", DeployType: "CLOUD", Platform: "AWS",
		Status:   []string{"ENABLED"},
		Location: &zscaler.IDName{ID: 77, Name: "vpc-prod"},
		ECVMs:    []zscaler.ECVM{{ID: 11, Name: "ec-vm-1", Status: []string{"ACTIVE"}}},
	})
}

func segmentGroupID(n int) string {
	return fmt.Sprintf("%d", 72058304855000000+n)
}
