package types

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EntityPathHash is the 64-bit identity of an EntityPath.
// Index tables and caches are keyed by it for O(1) lookup.
type EntityPathHash uint64

// String renders the hash as fixed-width hex.
func (h EntityPathHash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// EntityPath is the hierarchical name of a logged object, e.g. "world/robot/camera".
//
// Parts are NFC normalised and empty parts are dropped, so "a//b/" and "a/b"
// are the same path. EntityPath is comparable and safe to use as a map key.
type EntityPath struct {
	path string
	hash EntityPathHash
}

// NewEntityPath builds a path from already split parts.
func NewEntityPath(parts ...string) EntityPath {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		clean = append(clean, norm.NFC.String(p))
	}
	path := strings.Join(clean, "/")
	return EntityPath{
		path: path,
		hash: EntityPathHash(hashWithDomain(DomainEntityPath, []byte(path))),
	}
}

// ParseEntityPath parses a slash separated path.
func ParseEntityPath(s string) EntityPath {
	return NewEntityPath(strings.Split(s, "/")...)
}

// String returns the normalised slash separated form.
func (p EntityPath) String() string {
	return p.path
}

// Hash returns the path's identity.
func (p EntityPath) Hash() EntityPathHash {
	return p.hash
}

// IsRoot reports whether the path has no parts.
func (p EntityPath) IsRoot() bool {
	return p.path == ""
}

// Parts returns the individual path components.
func (p EntityPath) Parts() []string {
	if p.path == "" {
		return nil
	}
	return strings.Split(p.path, "/")
}

// Parent returns the path with its last part removed.
// The parent of the root is the root.
func (p EntityPath) Parent() EntityPath {
	parts := p.Parts()
	if len(parts) == 0 {
		return p
	}
	return NewEntityPath(parts[:len(parts)-1]...)
}

// IsDescendantOf reports whether p lives strictly below other.
func (p EntityPath) IsDescendantOf(other EntityPath) bool {
	if other.IsRoot() {
		return !p.IsRoot()
	}
	return strings.HasPrefix(p.path, other.path+"/")
}

// MarshalText implements encoding.TextMarshaler.
func (p EntityPath) MarshalText() ([]byte, error) {
	return []byte(p.path), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *EntityPath) UnmarshalText(text []byte) error {
	*p = ParseEntityPath(string(text))
	return nil
}

// ComponentName names one column of an entity, e.g. "strata.components.Position2D".
type ComponentName string

// Hash returns a stable 64-bit identity for the component name.
func (c ComponentName) Hash() uint64 {
	return hashWithDomain(DomainComponent, []byte(c))
}

// Short returns the last dot separated segment of the name.
func (c ComponentName) Short() string {
	s := string(c)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
