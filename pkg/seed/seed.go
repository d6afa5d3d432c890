// Package seed holds personality seed records and the repositories that serve them.
package seed

import (
	"sort"
	"strings"
)

// Vector maps a named dimension (Fear, openness_intellect, ...) to a value, nominally in [0,1].
type Vector map[string]float64

// Dimensions returns the vector keys in lexicographic order.
func (v Vector) Dimensions() []string {
	dims := make([]string, 0, len(v))
	for k := range v {
		dims = append(dims, k)
	}
	sort.Strings(dims)
	return dims
}

func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

type Boundaries struct {
	WillNot        []string `json:"will_not,omitempty"`
	WillPrioritize []string `json:"will_prioritize,omitempty"`
}

// GuidelineBlock is a seed's moral guideline block.
// PrimaryValues and WillPrioritize are in priority order.
type GuidelineBlock struct {
	PrimaryValues      []string          `json:"primary_values,omitempty"`
	DecisionPrinciples map[string]string `json:"decision_principles,omitempty"`
	Boundaries         Boundaries        `json:"moral_boundaries"`
	ResponseModifiers  map[string]string `json:"response_modifiers,omitempty"`
}

func (g GuidelineBlock) IsZero() bool {
	return len(g.PrimaryValues) == 0 && len(g.DecisionPrinciples) == 0 &&
		len(g.Boundaries.WillNot) == 0 && len(g.Boundaries.WillPrioritize) == 0 &&
		len(g.ResponseModifiers) == 0
}

func (g GuidelineBlock) Clone() GuidelineBlock {
	return GuidelineBlock{
		PrimaryValues:      cloneStrings(g.PrimaryValues),
		DecisionPrinciples: cloneMap(g.DecisionPrinciples),
		Boundaries: Boundaries{
			WillNot:        cloneStrings(g.Boundaries.WillNot),
			WillPrioritize: cloneStrings(g.Boundaries.WillPrioritize),
		},
		ResponseModifiers: cloneMap(g.ResponseModifiers),
	}
}

// SortedKeys returns map keys in lexicographic order, the in-seed order used by the merger.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Example struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

type Memory struct {
	RootNodes []string `json:"root_nodes,omitempty"`
}

// Component records one weighted ingredient of a materialized mix.
type Component struct {
	SeedID string  `json:"seed_id"`
	Weight float64 `json:"weight"`
}

// Seed is an immutable personality definition. Values handed out by a Repository are
// shared and must be treated as read-only; use Clone for a private copy.
type Seed struct {
	ID            string         `json:"seed_id"`
	GoalStatement string         `json:"goal_statement,omitempty"`
	PersonaStyle  string         `json:"persona_style,omitempty"`
	Affect        Vector         `json:"core_vector_default"`
	Traits        Vector         `json:"personality_vector"`
	Knowledge     []string       `json:"knowledge,omitempty"`
	Skills        []string       `json:"skills,omitempty"`
	Guidelines    GuidelineBlock `json:"moral_guidelines"`
	Memory        Memory         `json:"memory_scaffolding"`
	Lexicon       string         `json:"consequence_drift_lexicon,omitempty"`
	Examples      []Example      `json:"examples,omitempty"`
	Components    []Component    `json:"mix_components,omitempty"`
}

func (s *Seed) Clone() *Seed {
	if s == nil {
		return nil
	}
	out := *s
	out.Affect = s.Affect.Clone()
	out.Traits = s.Traits.Clone()
	out.Knowledge = cloneStrings(s.Knowledge)
	out.Skills = cloneStrings(s.Skills)
	out.Guidelines = s.Guidelines.Clone()
	out.Memory.RootNodes = cloneStrings(s.Memory.RootNodes)
	if s.Examples != nil {
		out.Examples = append([]Example(nil), s.Examples...)
	}
	if s.Components != nil {
		out.Components = append([]Component(nil), s.Components...)
	}
	return &out
}

// FirstSentence returns the goal statement up to the first period.
func (s *Seed) FirstSentence() string {
	goal := strings.TrimSpace(s.GoalStatement)
	if i := strings.Index(goal, "."); i >= 0 {
		goal = goal[:i]
	}
	return strings.TrimSpace(goal)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
