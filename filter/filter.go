// Package filter decides which named entities (tests, packages, artifacts)
// take part in a run, using include and exclude pattern sets.
//
// A name is accepted iff the include set is empty or some include matches,
// and no exclude matches. Exclude always wins.
package filter

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// Sentinel errors for rejected mutations.
var (
	// ErrInvalidArgument indicates an empty or malformed pattern.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNullArgument indicates a nil pattern collection.
	ErrNullArgument = errors.New("null argument")
)

// Mode selects how patterns are compared with names.
type Mode string

// Match modes.
const (
	// MatchExact accepts a name equal to the pattern.
	MatchExact Mode = "exact"
	// MatchPrefix accepts a name starting with the pattern.
	MatchPrefix Mode = "prefix"
	// MatchGlob accepts a name matching the pattern per path.Match.
	MatchGlob Mode = "glob"
)

// ParseMode parses a mode name. Empty selects MatchExact.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", MatchExact:
		return MatchExact, nil
	case MatchPrefix, MatchGlob:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown match mode %q (must be exact, prefix, or glob)", ErrInvalidArgument, s)
	}
}

// Set holds ordered, de-duplicated include and exclude patterns.
//
// Configure a Set once before sharing it; Accepts and Filter are safe for
// concurrent use only while no mutator runs.
type Set struct {
	mode     Mode
	includes []string
	excludes []string
}

// New creates an empty set. An empty mode selects MatchExact; a mode
// outside exact, prefix and glob fails with ErrInvalidArgument.
func New(mode Mode) (*Set, error) {
	m, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	return &Set{mode: m}, nil
}

// Mode returns the match mode.
func (s *Set) Mode() Mode { return s.mode }

// Includes returns a copy of the include patterns in insertion order.
func (s *Set) Includes() []string { return slices.Clone(s.includes) }

// Excludes returns a copy of the exclude patterns in insertion order.
func (s *Set) Excludes() []string { return slices.Clone(s.excludes) }

// AddInclude adds one include pattern.
func (s *Set) AddInclude(pattern string) error {
	if err := s.check(pattern); err != nil {
		return err
	}
	s.includes = appendUnique(s.includes, pattern)
	return nil
}

// AddExclude adds one exclude pattern.
func (s *Set) AddExclude(pattern string) error {
	if err := s.check(pattern); err != nil {
		return err
	}
	s.excludes = appendUnique(s.excludes, pattern)
	return nil
}

// AddIncludes adds all patterns, or none if any is invalid.
func (s *Set) AddIncludes(patterns []string) error {
	if err := s.checkAll(patterns); err != nil {
		return err
	}
	for _, p := range patterns {
		s.includes = appendUnique(s.includes, p)
	}
	return nil
}

// AddExcludes adds all patterns, or none if any is invalid.
func (s *Set) AddExcludes(patterns []string) error {
	if err := s.checkAll(patterns); err != nil {
		return err
	}
	for _, p := range patterns {
		s.excludes = appendUnique(s.excludes, p)
	}
	return nil
}

// ClearIncludes removes all include patterns.
func (s *Set) ClearIncludes() { s.includes = nil }

// ClearExcludes removes all exclude patterns.
func (s *Set) ClearExcludes() { s.excludes = nil }

// Accepts reports whether name passes the filter.
func (s *Set) Accepts(name string) bool {
	for _, p := range s.excludes {
		if s.match(p, name) {
			return false
		}
	}
	if len(s.includes) == 0 {
		return true
	}
	for _, p := range s.includes {
		if s.match(p, name) {
			return true
		}
	}
	return false
}

// Filter returns the accepted names in input order.
func (s *Set) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s.Accepts(n) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Set) match(pattern, name string) bool {
	switch s.mode {
	case MatchPrefix:
		return strings.HasPrefix(name, pattern)
	case MatchGlob:
		ok, _ := path.Match(pattern, name)
		return ok
	default:
		return name == pattern
	}
}

func (s *Set) check(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidArgument)
	}
	if s.mode == MatchGlob {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: pattern %q: %v", ErrInvalidArgument, pattern, err)
		}
	}
	return nil
}

func (s *Set) checkAll(patterns []string) error {
	if patterns == nil {
		return fmt.Errorf("%w: nil pattern list", ErrNullArgument)
	}
	for i, p := range patterns {
		if err := s.check(p); err != nil {
			return fmt.Errorf("pattern %d: %w", i, err)
		}
	}
	return nil
}

func appendUnique(list []string, p string) []string {
	if slices.Contains(list, p) {
		return list
	}
	return append(list, p)
}
