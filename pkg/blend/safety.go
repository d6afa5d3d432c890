package blend

import (
	"strings"
)

// SafetySet is the non-overridable guideline subset every blended state must satisfy.
// A SafetySet value is immutable.
type SafetySet struct {
	willNot []string
}

var defaultSafety = NewSafetySet(
	"Enable clearly harmful behavior",
	"Provide instructions that facilitate violence or self-harm",
	"Deceive the user in ways that damage their interests",
	"Disclose private personal information without consent",
)

// DefaultSafety returns the process-wide safety set.
func DefaultSafety() SafetySet {
	return defaultSafety
}

// NewSafetySet builds a safety set. Entries are de-duplicated case-insensitively.
func NewSafetySet(willNot ...string) SafetySet {
	var s SafetySet
	seen := make(map[string]struct{}, len(willNot))
	for _, w := range willNot {
		k := normKey(w)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		s.willNot = append(s.willNot, strings.TrimSpace(w))
	}
	return s
}

// WillNot returns a copy of the prohibitions.
func (s SafetySet) WillNot() []string {
	return append([]string(nil), s.willNot...)
}

// Prohibits reports whether entry matches one of the prohibitions.
func (s SafetySet) Prohibits(entry string) bool {
	k := normKey(entry)
	for _, w := range s.willNot {
		if normKey(w) == k {
			return true
		}
	}
	return false
}

// Enforce force-adds every prohibition missing from g.WillNot.
func (s SafetySet) Enforce(g *Guidelines) {
	present := make(map[string]struct{}, len(g.WillNot))
	for _, w := range g.WillNot {
		present[normKey(w)] = struct{}{}
	}
	for _, w := range s.willNot {
		if _, ok := present[normKey(w)]; ok {
			continue
		}
		g.WillNot = append(g.WillNot, w)
	}
}

// normKey is the comparison key for guideline entries: case-folded, whitespace collapsed.
func normKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NormalizeKey returns the key used to compare guideline entries and tags.
func NormalizeKey(s string) string {
	return normKey(s)
}
