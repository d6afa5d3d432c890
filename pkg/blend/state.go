package blend

import (
	"sort"
	"time"

	"github.com/EternisAI/persona-blend/pkg/seed"
)

// State is the computed result of a mix. It is never modified after it has been published.
type State struct {
	Version    uint64      `json:"version"`
	Mix        Mix         `json:"-"`
	Affect     seed.Vector `json:"affect"`
	Traits     seed.Vector `json:"traits"`
	Guidelines Guidelines  `json:"guidelines"`
	Override   *Override   `json:"override,omitempty"`
	ComputedAt time.Time   `json:"computed_at"`
}

// Compute blends both vectors, merges the guidelines, applies the override and enforces
// the safety set. The returned state has Version 0; the owner assigns it.
func Compute(mix Mix, safety SafetySet, override *Override) (*State, error) {
	if err := mix.Validate(); err != nil {
		return nil, err
	}
	if err := override.Validate(safety); err != nil {
		return nil, err
	}

	affect, err := Blend(mix, FieldAffect)
	if err != nil {
		return nil, err
	}
	traits, err := Blend(mix, FieldTraits)
	if err != nil {
		return nil, err
	}
	guidelines, err := Merge(mix, safety)
	if err != nil {
		return nil, err
	}

	st := &State{
		Mix:        mix.Clone(),
		Affect:     affect,
		Traits:     traits,
		Guidelines: guidelines,
		Override:   override.Clone(),
		ComputedAt: time.Now(),
	}
	if st.Override != nil {
		st.Override.apply(st)
		safety.Enforce(&st.Guidelines)
	}
	return st, nil
}

// Components returns the mix as seed id / normalized weight pairs.
func (s *State) Components() []seed.Component {
	return s.Mix.Components()
}

// Dominant returns the heaviest seed of the mix.
func (s *State) Dominant() *seed.Seed {
	return s.Mix[s.Mix.Dominant()].Seed
}

// TraitValue is one named trait and its blended value.
type TraitValue struct {
	Name  string
	Value float64
}

// TopTraits returns the n highest blended traits, ties by name.
func (s *State) TopTraits(n int) []TraitValue {
	out := make([]TraitValue, 0, len(s.Traits))
	for _, name := range s.Traits.Dimensions() {
		out = append(out, TraitValue{Name: name, Value: s.Traits[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
