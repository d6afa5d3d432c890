// Package blend combines weighted personality seeds into one blended persona.
package blend

import (
	"math"

	"github.com/EternisAI/persona-blend/pkg/seed"
)

// Component is one weighted seed of a mix.
type Component struct {
	Seed   *seed.Seed
	Weight float64
}

// Mix is an ordered weighted combination of seeds. Declaration order breaks ties.
type Mix []Component

// Validate checks that the mix is non-empty, has finite positive weights and no duplicate seeds.
func (m Mix) Validate() error {
	if len(m) == 0 {
		return &InvalidMixError{Reason: "mix is empty"}
	}
	seen := make(map[string]struct{}, len(m))
	for _, c := range m {
		if c.Seed == nil {
			return &InvalidMixError{Reason: "component has no seed"}
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return &InvalidMixError{Reason: "weight is not finite", SeedID: c.Seed.ID}
		}
		if c.Weight <= 0 {
			return &InvalidMixError{Reason: "weight must be positive", SeedID: c.Seed.ID}
		}
		if _, dup := seen[c.Seed.ID]; dup {
			return &InvalidMixError{Reason: "duplicate seed", SeedID: c.Seed.ID}
		}
		seen[c.Seed.ID] = struct{}{}
	}
	return nil
}

// Normalized returns weights scaled to sum to 1, in mix order. The mix must be valid.
// Weights are scaled by the largest one first so the sum cannot overflow.
func (m Mix) Normalized() []float64 {
	var largest float64
	for _, c := range m {
		largest = math.Max(largest, c.Weight)
	}
	var total float64
	for _, c := range m {
		total += c.Weight / largest
	}
	out := make([]float64, len(m))
	for i, c := range m {
		out[i] = c.Weight / largest / total
	}
	return out
}

// Dominant returns the index of the heaviest component, the earliest on ties.
func (m Mix) Dominant() int {
	best := 0
	for i, c := range m {
		if c.Weight > m[best].Weight {
			best = i
		}
	}
	return best
}

// Components returns the mix as seed id / normalized weight pairs.
func (m Mix) Components() []seed.Component {
	weights := m.Normalized()
	out := make([]seed.Component, len(m))
	for i, c := range m {
		out[i] = seed.Component{SeedID: c.Seed.ID, Weight: weights[i]}
	}
	return out
}

// Clone copies the slice; seeds are shared.
func (m Mix) Clone() Mix {
	return append(Mix(nil), m...)
}
