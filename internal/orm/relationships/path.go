// Package relationships walks the relationship graph of an entity to build
// fetch statements, and hydrates the returned rows into nested records.
package relationships

import (
	"fmt"
	"strings"
)

// PathSeparator separates relationship names in a with-path string
const PathSeparator = "__"

// Segment is one relationship name of a with-path. Optional is nil when the
// segment carries no flag and the call default applies.
type Segment struct {
	Name     string
	Optional *bool
}

// WithPath is an ordered list of relationship names to traverse eagerly
type WithPath []Segment

// ParsePath parses "a__b". A segment suffixed with "?" is optional and one
// suffixed with "!" is required.
func ParsePath(s string) (WithPath, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	parts := strings.Split(s, PathSeparator)
	path := make(WithPath, 0, len(parts))
	for _, part := range parts {
		seg := Segment{Name: part}
		switch {
		case strings.HasSuffix(part, "?"):
			seg.Name = strings.TrimSuffix(part, "?")
			seg.Optional = boolPtr(true)
		case strings.HasSuffix(part, "!"):
			seg.Name = strings.TrimSuffix(part, "!")
			seg.Optional = boolPtr(false)
		}
		if seg.Name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
		path = append(path, seg)
	}
	return path, nil
}

// ParsePaths parses every with-path string
func ParsePaths(paths []string) ([]WithPath, error) {
	out := make([]WithPath, 0, len(paths))
	for _, s := range paths {
		p, err := ParsePath(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// String renders the path back to its string form
func (p WithPath) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.Name
		if seg.Optional != nil {
			if *seg.Optional {
				parts[i] += "?"
			} else {
				parts[i] += "!"
			}
		}
	}
	return strings.Join(parts, PathSeparator)
}

// Head returns the first relationship name of the path
func (p WithPath) Head() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].Name
}

// matches reports whether the path continues the traversed chain with name
// at depth len(chain)
func (p WithPath) matches(chain []string, name string) bool {
	depth := len(chain)
	if len(p) <= depth || p[depth].Name != name {
		return false
	}
	for i, n := range chain {
		if p[i].Name != n {
			return false
		}
	}
	return true
}

// lookup checks the with-paths for a relationship at the depth of chain. A
// segment is optional only if every matching path leaves it optional.
// flagged reports whether any matching segment carried a flag.
func lookup(paths []WithPath, chain []string, name string, defaultOptional bool) (found, optional, flagged bool) {
	optional = true
	for _, p := range paths {
		if !p.matches(chain, name) {
			continue
		}
		found = true
		seg := p[len(chain)]
		segOptional := defaultOptional
		if seg.Optional != nil {
			segOptional = *seg.Optional
			flagged = true
		}
		optional = optional && segOptional
	}
	if !found {
		return false, false, false
	}
	return true, optional, flagged
}

func boolPtr(b bool) *bool {
	return &b
}
