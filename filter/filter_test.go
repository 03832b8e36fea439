package filter

import (
	"errors"
	"slices"
	"testing"
)

func newSet(t *testing.T, mode Mode) *Set {
	t.Helper()
	s, err := New(mode)
	if err != nil {
		t.Fatalf("New(%q): %v", mode, err)
	}
	return s
}

func TestNew_RejectsUnknownMode(t *testing.T) {
	s, err := New("regex")
	if !errors.Is(err, ErrInvalidArgument) || s != nil {
		t.Fatalf("New(regex) = %v, %v; want ErrInvalidArgument", s, err)
	}
	for _, mode := range []Mode{"", MatchExact, MatchPrefix, "GLOB"} {
		s := newSet(t, mode)
		if s.Mode() == "" {
			t.Errorf("New(%q) left the mode empty", mode)
		}
	}
	if got := newSet(t, "GLOB").Mode(); got != MatchGlob {
		t.Errorf("mode = %q, want %q", got, MatchGlob)
	}
}

func TestAccepts_IncludeOnly(t *testing.T) {
	s := newSet(t, "")
	if err := s.AddInclude("filter_one"); err != nil {
		t.Fatal(err)
	}
	if !s.Accepts("filter_one") {
		t.Error("filter_one should be accepted")
	}
	if s.Accepts("filter_two") {
		t.Error("filter_two should be rejected")
	}
}

func TestAccepts_ExcludeWins(t *testing.T) {
	s := newSet(t, MatchExact)
	if err := s.AddIncludes([]string{"filter_one", "filter_two"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddExclude("filter_two"); err != nil {
		t.Fatal(err)
	}
	if s.Accepts("filter_two") {
		t.Error("exclude must win over include")
	}
	if !s.Accepts("filter_one") {
		t.Error("filter_one should be accepted")
	}
}

func TestAccepts_EmptyIncludesAcceptUnlessExcluded(t *testing.T) {
	s := newSet(t, MatchExact)
	if !s.Accepts("anything") {
		t.Error("empty set must accept")
	}
	_ = s.AddExclude("blocked")
	if s.Accepts("blocked") {
		t.Error("blocked should be rejected")
	}
	if !s.Accepts("other") {
		t.Error("other should be accepted")
	}
}

func TestAccepts_Modes(t *testing.T) {
	tests := []struct {
		mode    Mode
		pattern string
		name    string
		want    bool
	}{
		{MatchExact, "com.example", "com.example", true},
		{MatchExact, "com.example", "com.example.app", false},
		{MatchPrefix, "com.example", "com.example.app", true},
		{MatchPrefix, "com.example", "org.example", false},
		{MatchGlob, "com.*.app", "com.example.app", true},
		{MatchGlob, "*Test", "LaunchTest", true},
		{MatchGlob, "*Test", "LaunchTests", false},
	}
	for _, tt := range tests {
		s := newSet(t, tt.mode)
		if err := s.AddInclude(tt.pattern); err != nil {
			t.Fatal(err)
		}
		if got := s.Accepts(tt.name); got != tt.want {
			t.Errorf("%s %q Accepts(%q) = %v, want %v", tt.mode, tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestAddInclude_Empty(t *testing.T) {
	s := newSet(t, MatchExact)
	_ = s.AddInclude("keep")
	if err := s.AddInclude(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("AddInclude(\"\") = %v, want ErrInvalidArgument", err)
	}
	if err := s.AddExclude(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("AddExclude(\"\") = %v, want ErrInvalidArgument", err)
	}
	if got := s.Includes(); !slices.Equal(got, []string{"keep"}) {
		t.Errorf("Includes = %v after failed add", got)
	}
}

func TestAddIncludes_NilAndEmptyElements(t *testing.T) {
	s := newSet(t, MatchExact)
	_ = s.AddInclude("keep")

	if err := s.AddIncludes(nil); !errors.Is(err, ErrNullArgument) {
		t.Errorf("AddIncludes(nil) = %v, want ErrNullArgument", err)
	}
	if err := s.AddExcludes(nil); !errors.Is(err, ErrNullArgument) {
		t.Errorf("AddExcludes(nil) = %v, want ErrNullArgument", err)
	}

	// No partial mutation when one element is invalid.
	if err := s.AddIncludes([]string{"a", "", "b"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("AddIncludes with empty element = %v, want ErrInvalidArgument", err)
	}
	if got := s.Includes(); !slices.Equal(got, []string{"keep"}) {
		t.Errorf("Includes = %v, want [keep]", got)
	}

	// An empty, non-nil list is a no-op.
	if err := s.AddExcludes([]string{}); err != nil {
		t.Errorf("AddExcludes([]) = %v", err)
	}
}

func TestAddGlob_Malformed(t *testing.T) {
	s := newSet(t, MatchGlob)
	if err := s.AddInclude("[a-"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("malformed glob = %v, want ErrInvalidArgument", err)
	}
}

func TestDeduplicationAndOrder(t *testing.T) {
	s := newSet(t, MatchExact)
	_ = s.AddIncludes([]string{"b", "a", "b"})
	_ = s.AddInclude("a")
	if got := s.Includes(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Includes = %v, want [b a]", got)
	}

	_ = s.AddExcludes([]string{"y", "x", "y"})
	if got := s.Excludes(); !slices.Equal(got, []string{"y", "x"}) {
		t.Errorf("Excludes = %v, want [y x]", got)
	}
	// Accessors return copies.
	got := s.Excludes()
	got[0] = "mutated"
	if s.Excludes()[0] != "y" {
		t.Error("Excludes exposed internal storage")
	}
}

func TestClear(t *testing.T) {
	s := newSet(t, MatchExact)
	_ = s.AddInclude("a")
	_ = s.AddExclude("b")

	s.ClearExcludes()
	if len(s.Excludes()) != 0 {
		t.Errorf("Excludes = %v after ClearExcludes", s.Excludes())
	}
	if !s.Accepts("a") || s.Accepts("b") {
		t.Error("after ClearExcludes only the include set applies")
	}
	s.ClearIncludes()
	if !s.Accepts("b") {
		t.Error("cleared set must accept everything")
	}
}

func TestFilter_PreservesOrder(t *testing.T) {
	s := newSet(t, MatchPrefix)
	_ = s.AddInclude("com.")
	_ = s.AddExclude("com.skip")
	got := s.Filter([]string{"com.b", "org.a", "com.skip.x", "com.a"})
	if want := []string{"com.b", "com.a"}; !slices.Equal(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": MatchExact, "EXACT": MatchExact, "prefix": MatchPrefix, " glob ": MatchGlob} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("regex"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParseMode(regex) = %v, want ErrInvalidArgument", err)
	}
}
