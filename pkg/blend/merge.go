package blend

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/EternisAI/persona-blend/pkg/seed"
)

// weightEpsilon absorbs float noise when comparing cumulative weights for ties.
const weightEpsilon = 1e-12

// Guidance is one keyed guideline entry and the seed it was taken from.
type Guidance struct {
	Key    string  `json:"key"`
	Text   string  `json:"text"`
	SeedID string  `json:"seed_id"`
	Weight float64 `json:"weight"`
}

// Guidelines is a merged moral guideline block. Every slice is in priority order.
type Guidelines struct {
	PrimaryValues      []string   `json:"primary_values"`
	DecisionPrinciples []Guidance `json:"decision_principles"`
	WillNot            []string   `json:"will_not"`
	WillPrioritize     []string   `json:"will_prioritize"`
	ResponseModifiers  []Guidance `json:"response_modifiers"`
}

func (g Guidelines) Principle(tag string) (Guidance, bool) {
	return findGuidance(g.DecisionPrinciples, tag)
}

func (g Guidelines) Modifier(category string) (Guidance, bool) {
	return findGuidance(g.ResponseModifiers, category)
}

// Forbids reports whether entry is in WillNot.
func (g Guidelines) Forbids(entry string) bool {
	k := normKey(entry)
	return lo.ContainsBy(g.WillNot, func(w string) bool { return normKey(w) == k })
}

// Block converts the merged guidelines back to the seed representation.
func (g Guidelines) Block() seed.GuidelineBlock {
	return seed.GuidelineBlock{
		PrimaryValues:      cloneOrNil(g.PrimaryValues),
		DecisionPrinciples: guidanceMap(g.DecisionPrinciples),
		Boundaries: seed.Boundaries{
			WillNot:        cloneOrNil(g.WillNot),
			WillPrioritize: cloneOrNil(g.WillPrioritize),
		},
		ResponseModifiers: guidanceMap(g.ResponseModifiers),
	}
}

func (g Guidelines) Clone() Guidelines {
	return Guidelines{
		PrimaryValues:      cloneOrNil(g.PrimaryValues),
		DecisionPrinciples: append([]Guidance(nil), g.DecisionPrinciples...),
		WillNot:            cloneOrNil(g.WillNot),
		WillPrioritize:     cloneOrNil(g.WillPrioritize),
		ResponseModifiers:  append([]Guidance(nil), g.ResponseModifiers...),
	}
}

// Merge combines the guideline blocks of the mix into one block.
//
// Ordered lists are unioned and ranked by the cumulative weight of the seeds listing each
// entry. Keyed entries go to the heaviest seed that defines the key. Prohibitions are
// unioned and never dropped. The safety set is enforced last.
func Merge(mix Mix, safety SafetySet) (Guidelines, error) {
	if err := mix.Validate(); err != nil {
		return Guidelines{}, err
	}
	weights := mix.Normalized()

	g := Guidelines{
		PrimaryValues: rankedUnion(mix, weights, func(s *seed.Seed) []string {
			return s.Guidelines.PrimaryValues
		}),
		DecisionPrinciples: weightedWinners(mix, weights, func(s *seed.Seed) map[string]string {
			return s.Guidelines.DecisionPrinciples
		}),
		WillNot: union(mix, func(s *seed.Seed) []string {
			return s.Guidelines.Boundaries.WillNot
		}),
		WillPrioritize: rankedUnion(mix, weights, func(s *seed.Seed) []string {
			return s.Guidelines.Boundaries.WillPrioritize
		}),
		ResponseModifiers: weightedWinners(mix, weights, func(s *seed.Seed) map[string]string {
			return s.Guidelines.ResponseModifiers
		}),
	}

	safety.Enforce(&g)
	return g, nil
}

type rankedEntry struct {
	text   string
	weight float64
	first  int
}

func byWeightThenFirst(aw, bw float64, af, bf int) bool {
	if math.Abs(aw-bw) > weightEpsilon {
		return aw > bw
	}
	return af < bf
}

func rankedUnion(mix Mix, weights []float64, get func(*seed.Seed) []string) []string {
	acc := make(map[string]*rankedEntry)
	var order []*rankedEntry

	for i, c := range mix {
		counted := make(map[string]struct{})
		for _, v := range get(c.Seed) {
			k := normKey(v)
			if k == "" {
				continue
			}
			e, ok := acc[k]
			if !ok {
				e = &rankedEntry{text: v, first: len(order)}
				acc[k] = e
				order = append(order, e)
			}
			if _, dup := counted[k]; dup {
				continue
			}
			counted[k] = struct{}{}
			e.weight += weights[i]
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return byWeightThenFirst(order[a].weight, order[b].weight, order[a].first, order[b].first)
	})
	if len(order) == 0 {
		return nil
	}
	return lo.Map(order, func(e *rankedEntry, _ int) string { return e.text })
}

func union(mix Mix, get func(*seed.Seed) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range mix {
		for _, v := range get(c.Seed) {
			k := normKey(v)
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

type keyedEntry struct {
	g     Guidance
	first int
}

func weightedWinners(mix Mix, weights []float64, get func(*seed.Seed) map[string]string) []Guidance {
	acc := make(map[string]*keyedEntry)
	var order []*keyedEntry

	for i, c := range mix {
		m := get(c.Seed)
		for _, key := range seed.SortedKeys(m) {
			k := normKey(key)
			if k == "" {
				continue
			}
			e, ok := acc[k]
			if !ok {
				e = &keyedEntry{
					g:     Guidance{Key: key, Text: m[key], SeedID: c.Seed.ID, Weight: weights[i]},
					first: len(order),
				}
				acc[k] = e
				order = append(order, e)
				continue
			}
			// Earlier components win ties, so only a strictly heavier seed takes over.
			if weights[i] > e.g.Weight+weightEpsilon {
				e.g.Text = m[key]
				e.g.SeedID = c.Seed.ID
				e.g.Weight = weights[i]
			}
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return byWeightThenFirst(order[a].g.Weight, order[b].g.Weight, order[a].first, order[b].first)
	})
	if len(order) == 0 {
		return nil
	}
	return lo.Map(order, func(e *keyedEntry, _ int) Guidance { return e.g })
}

func findGuidance(list []Guidance, key string) (Guidance, bool) {
	k := normKey(key)
	return lo.Find(list, func(g Guidance) bool { return normKey(g.Key) == k })
}

func guidanceMap(list []Guidance) map[string]string {
	if len(list) == 0 {
		return nil
	}
	out := make(map[string]string, len(list))
	for _, g := range list {
		out[g.Key] = g.Text
	}
	return out
}

func cloneOrNil(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
