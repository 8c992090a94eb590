package auth

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Capability is a single grantable permission tag
type Capability uint8

const (
	CapEvents Capability = 1 << iota
	CapContent
	CapMembers
	CapResearch
	CapCarousel
	// CapAll is the wildcard, it satisfies every capability check
	CapAll
)

var capabilityNames = map[Capability]string{
	CapEvents:   "events",
	CapContent:  "content",
	CapMembers:  "members",
	CapResearch: "research",
	CapCarousel: "carousel",
	CapAll:      "all",
}

var capabilityOrder = []Capability{CapEvents, CapContent, CapMembers, CapResearch, CapCarousel, CapAll}

const knownCapabilities = CapEvents | CapContent | CapMembers | CapResearch | CapCarousel | CapAll

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", uint8(c))
}

// ParseCapability resolves a permission tag like "events"
func ParseCapability(s string) (Capability, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	for c, name := range capabilityNames {
		if name == tag {
			return c, nil
		}
	}
	return 0, ErrInvalidPermission.Clone().WithMetadata(map[string]any{
		"permission": s,
	})
}

// Permissions is the set of capabilities granted to an account.
// It travels as a JSON array of tags and is stored as an integer.
type Permissions uint8

// NewPermissions builds a set from capabilities
func NewPermissions(caps ...Capability) Permissions {
	var p Permissions
	for _, c := range caps {
		p |= Permissions(c)
	}
	return p
}

// ParsePermissions builds a set from tags, failing on unknown tags
func ParsePermissions(tags []string) (Permissions, error) {
	var p Permissions
	for _, tag := range tags {
		c, err := ParseCapability(tag)
		if err != nil {
			return 0, err
		}
		p |= Permissions(c)
	}
	return p, nil
}

// Has reports whether the set grants the capability. The all wildcard
// grants everything.
func (p Permissions) Has(c Capability) bool {
	if p&Permissions(CapAll) != 0 {
		return true
	}
	return c != 0 && p&Permissions(c) == Permissions(c)
}

// Add returns the set with the capabilities added
func (p Permissions) Add(caps ...Capability) Permissions {
	return p | NewPermissions(caps...)
}

// Tags lists the granted capability tags in a stable order
func (p Permissions) Tags() []string {
	tags := make([]string, 0, len(capabilityOrder))
	for _, c := range capabilityOrder {
		if p&Permissions(c) != 0 {
			tags = append(tags, c.String())
		}
	}
	return tags
}

func (p Permissions) String() string {
	return strings.Join(p.Tags(), ",")
}

func (p Permissions) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Tags())
}

func (p *Permissions) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	parsed, err := ParsePermissions(tags)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value stores the set as an integer column
func (p Permissions) Value() (driver.Value, error) {
	return int64(p), nil
}

// Scan reads the integer column, dropping unknown bits
func (p *Permissions) Scan(src any) error {
	var v int64
	switch t := src.(type) {
	case nil:
		*p = 0
		return nil
	case int64:
		v = t
	case int32:
		v = int64(t)
	case int:
		v = int64(t)
	case []byte:
		if _, err := fmt.Sscan(string(t), &v); err != nil {
			return fmt.Errorf("permissions: scan %q: %w", t, err)
		}
	case string:
		if _, err := fmt.Sscan(t, &v); err != nil {
			return fmt.Errorf("permissions: scan %q: %w", t, err)
		}
	default:
		return fmt.Errorf("permissions: unsupported scan type %T", src)
	}
	*p = Permissions(v) & Permissions(knownCapabilities)
	return nil
}

// SortedCapabilities returns every known tag, useful for docs and validation
func SortedCapabilities() []string {
	out := make([]string, 0, len(capabilityNames))
	for _, name := range capabilityNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
