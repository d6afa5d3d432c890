package blend

import (
	"github.com/EternisAI/persona-blend/pkg/seed"
)

// Field selects which seed vector to blend.
type Field int

const (
	FieldAffect Field = iota
	FieldTraits
)

func (f Field) String() string {
	switch f {
	case FieldAffect:
		return "affect"
	case FieldTraits:
		return "traits"
	default:
		return "unknown"
	}
}

func (f Field) of(s *seed.Seed) seed.Vector {
	if f == FieldAffect {
		return s.Affect
	}
	return s.Traits
}

// Blend computes the weighted average of one vector field across the mix.
//
// A dimension is averaged only over the seeds that define it, with their weights
// re-normalized, so a seed that is silent on a dimension does not pull it toward zero.
// Results are not clamped.
func Blend(mix Mix, field Field) (seed.Vector, error) {
	if err := mix.Validate(); err != nil {
		return nil, err
	}
	if field != FieldAffect && field != FieldTraits {
		return nil, &InvalidMixError{Reason: "unknown vector field " + field.String()}
	}

	weights := mix.Normalized()

	dims := make(map[string]struct{})
	for _, c := range mix {
		for d := range field.of(c.Seed) {
			dims[d] = struct{}{}
		}
	}

	out := make(seed.Vector, len(dims))
	for d := range dims {
		var sum, wsum float64
		for i, c := range mix {
			v, ok := field.of(c.Seed)[d]
			if !ok {
				continue
			}
			sum += weights[i] * v
			wsum += weights[i]
		}
		out[d] = sum / wsum
	}
	return out, nil
}
