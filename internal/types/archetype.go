package types

import (
	"fmt"
	"strings"
)

// ComponentRole says how mandatory a component is within an archetype.
type ComponentRole int

const (
	// RoleRequired components must be present for the archetype to be usable.
	RoleRequired ComponentRole = iota + 1
	// RoleRecommended components are usually logged but may be absent.
	RoleRecommended
	// RoleOptional components are rarely logged.
	RoleOptional
)

// String returns the lowercase role name.
func (r ComponentRole) String() string {
	switch r {
	case RoleRequired:
		return "required"
	case RoleRecommended:
		return "recommended"
	case RoleOptional:
		return "optional"
	default:
		return fmt.Sprintf("ComponentRole(%d)", int(r))
	}
}

// ParseComponentRole parses a lowercase role name.
func ParseComponentRole(s string) (ComponentRole, error) {
	switch strings.ToLower(s) {
	case "required":
		return RoleRequired, nil
	case "recommended":
		return RoleRecommended, nil
	case "optional":
		return RoleOptional, nil
	default:
		return 0, fmt.Errorf("unknown component role %q", s)
	}
}

// ArchetypeComponent is one component slot of an archetype.
type ArchetypeComponent struct {
	Name     ComponentName `json:"name" yaml:"name"`
	Role     ComponentRole `json:"role" yaml:"role"`
	DataType DataType      `json:"data_type" yaml:"data_type"`
}

// Archetype is a named bundle of components describing one kind of
// loggable object, e.g. Points3D.
type Archetype struct {
	Name       string               `json:"name" yaml:"name"`
	Components []ArchetypeComponent `json:"components" yaml:"components"`
}

// Required returns the required components in declaration order.
func (a Archetype) Required() []ComponentName {
	return a.withRole(RoleRequired)
}

// Recommended returns the recommended components in declaration order.
func (a Archetype) Recommended() []ComponentName {
	return a.withRole(RoleRecommended)
}

// ComponentNames returns every component in declaration order.
func (a Archetype) ComponentNames() []ComponentName {
	out := make([]ComponentName, len(a.Components))
	for i, c := range a.Components {
		out[i] = c.Name
	}
	return out
}

// Primary returns the first required component, which drives joins.
func (a Archetype) Primary() (ComponentName, bool) {
	req := a.Required()
	if len(req) == 0 {
		return "", false
	}
	return req[0], true
}

// Component returns the slot for name.
func (a Archetype) Component(name ComponentName) (ArchetypeComponent, bool) {
	for _, c := range a.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ArchetypeComponent{}, false
}

func (a Archetype) withRole(role ComponentRole) []ComponentName {
	var out []ComponentName
	for _, c := range a.Components {
		if c.Role == role {
			out = append(out, c.Name)
		}
	}
	return out
}
