package zscaler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// IDName references another resource by ID.
type IDName struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Location is a ZIA location.
type Location struct {
	ID                int      `json:"id,omitempty"`
	Name              string   `json:"name"`
	ParentID          int      `json:"parentId,omitempty"`
	Country           string   `json:"country,omitempty"`
	TZ                string   `json:"tz,omitempty"`
	IPAddresses       []string `json:"ipAddresses,omitempty"`
	Ports             []int    `json:"ports,omitempty"`
	AuthRequired      bool     `json:"authRequired"`
	SSLScanEnabled    bool     `json:"sslScanEnabled"`
	XFFForwardEnabled bool     `json:"xffForwardEnabled"`
	OFWEnabled        bool     `json:"ofwEnabled"`
	IPSControl        bool     `json:"ipsControl"`
	Profile           string   `json:"profile,omitempty"`
	Description       string   `json:"description,omitempty"`
}

// LocationFilter narrows a location listing.
type LocationFilter struct {
	Search            string
	AuthRequired      *bool
	XFFForwardEnabled *bool
}

func (f *LocationFilter) query() url.Values {
	q := url.Values{}
	if f == nil {
		return q
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.AuthRequired != nil {
		q.Set("authRequired", strconv.FormatBool(*f.AuthRequired))
	}
	if f.XFFForwardEnabled != nil {
		q.Set("xffEnabled", strconv.FormatBool(*f.XFFForwardEnabled))
	}
	return q
}

// RuleState enables or disables a policy rule.
type RuleState string

const (
	RuleEnabled  RuleState = "ENABLED"
	RuleDisabled RuleState = "DISABLED"
)

// URLFilteringAction is the action taken by a URL filtering rule.
type URLFilteringAction string

const (
	ActionAllow   URLFilteringAction = "ALLOW"
	ActionBlock   URLFilteringAction = "BLOCK"
	ActionCaution URLFilteringAction = "CAUTION"
)

// URLFilteringRule is a ZIA URL filtering policy rule.
type URLFilteringRule struct {
	ID             int                `json:"id,omitempty"`
	Name           string             `json:"name"`
	Order          int                `json:"order"`
	Rank           int                `json:"rank"`
	State          RuleState          `json:"state,omitempty"`
	Action         URLFilteringAction `json:"action"`
	URLCategories  []string           `json:"urlCategories,omitempty"`
	Protocols      []string           `json:"protocols,omitempty"`
	RequestMethods []string           `json:"requestMethods,omitempty"`
	Locations      []IDName           `json:"locations,omitempty"`
	Description    string             `json:"description,omitempty"`
	LastModifiedBy *IDName            `json:"lastModifiedBy,omitempty"`
}

// ActivationState is the ZIA configuration activation state.
type ActivationState string

const (
	ActivationActive     ActivationState = "ACTIVE"
	ActivationPending    ActivationState = "PENDING"
	ActivationInProgress ActivationState = "INPROGRESS"
)

// ActivationStatus reports whether ZIA configuration changes are live.
type ActivationStatus struct {
	Status ActivationState `json:"status"`
}

// SegmentGroup is a ZPA segment group.
type SegmentGroup struct {
	ID           string                    `json:"id,omitempty"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description,omitempty"`
	Enabled      bool                      `json:"enabled"`
	ConfigSpace  string                    `json:"configSpace,omitempty"`
	Applications []SegmentGroupApplication `json:"applications,omitempty"`
	CreationTime string                    `json:"creationTime,omitempty"`
	ModifiedTime string                    `json:"modifiedTime,omitempty"`
}

// SegmentGroupApplication is an application segment in a segment group.
type SegmentGroupApplication struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// SegmentGroupPage is one page of segment groups.
type SegmentGroupPage struct {
	TotalPages int            `json:"totalPages"`
	List       []SegmentGroup `json:"list"`
}

// UnmarshalJSON implements json.Unmarshaler. ZPA sends totalPages as a
// string.
func (p *SegmentGroupPage) UnmarshalJSON(data []byte) error {
	var raw struct {
		TotalPages flexInt        `json:"totalPages"`
		List       []SegmentGroup `json:"list"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.TotalPages = int(raw.TotalPages)
	p.List = raw.List
	return nil
}

// OSType identifies a Client Connector device platform.
type OSType int

const (
	OSTypeAny     OSType = 0
	OSTypeIOS     OSType = 1
	OSTypeAndroid OSType = 2
	OSTypeWindows OSType = 3
	OSTypeMacOS   OSType = 4
	OSTypeLinux   OSType = 5
)

func (o OSType) String() string {
	switch o {
	case OSTypeIOS:
		return "iOS"
	case OSTypeAndroid:
		return "Android"
	case OSTypeWindows:
		return "Windows"
	case OSTypeMacOS:
		return "macOS"
	case OSTypeLinux:
		return "Linux"
	default:
		return "Any"
	}
}

// ParseOSType converts a platform name or number to an OSType.
func ParseOSType(s string) (OSType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "0":
		return OSTypeAny, nil
	case "ios", "1":
		return OSTypeIOS, nil
	case "android", "2":
		return OSTypeAndroid, nil
	case "windows", "3":
		return OSTypeWindows, nil
	case "macos", "mac", "4":
		return OSTypeMacOS, nil
	case "linux", "5":
		return OSTypeLinux, nil
	default:
		return OSTypeAny, fmt.Errorf("unknown os type %q", s)
	}
}

// Device is a device enrolled in Zscaler Client Connector.
type Device struct {
	UDID              string `json:"udid"`
	User              string `json:"user"`
	CompanyName       string `json:"companyName,omitempty"`
	Type              OSType `json:"type"`
	OSVersion         string `json:"osVersion,omitempty"`
	AgentVersion      string `json:"agentVersion,omitempty"`
	MachineHostname   string `json:"machineHostname,omitempty"`
	MacAddress        string `json:"macAddress,omitempty"`
	RegistrationState string `json:"registrationState,omitempty"`
	LastSeenTime      string `json:"last_seen_time,omitempty"`
}

// DeviceFilter narrows a device listing.
type DeviceFilter struct {
	Username string
	OSType   OSType
}

// ECVM is a virtual machine of an Edge Connector group.
type ECVM struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Status []string `json:"status,omitempty"`
}

// ECGroup is a ZTW Cloud & Branch Connector group.
type ECGroup struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"desc,omitempty"`
	DeployType  string   `json:"deployType,omitempty"`
	Platform    string   `json:"platform,omitempty"`
	Status      []string `json:"status,omitempty"`
	Location    *IDName  `json:"location,omitempty"`
	ECVMs       []ECVM   `json:"ecVMs,omitempty"`
}

// flexInt decodes integers that ZPA sometimes encodes as strings.
type flexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode number: %w", err)
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("decode number %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}
