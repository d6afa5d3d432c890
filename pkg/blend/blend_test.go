package blend

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/persona-blend/pkg/seed"
)

func foundation(t *testing.T) map[string]*seed.Seed {
	t.Helper()
	repo, err := seed.Foundation()
	require.NoError(t, err)
	all, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	return all
}

func mixOf(t *testing.T, pairs ...any) Mix {
	t.Helper()
	seeds := foundation(t)
	var m Mix
	for i := 0; i < len(pairs); i += 2 {
		s, ok := seeds[pairs[i].(string)]
		require.True(t, ok, pairs[i])
		m = append(m, Component{Seed: s, Weight: pairs[i+1].(float64)})
	}
	return m
}

func TestMixValidate(t *testing.T) {
	s := &seed.Seed{ID: "a", Traits: seed.Vector{"x": 1}}

	tests := []struct {
		name string
		mix  Mix
	}{
		{"empty", Mix{}},
		{"nil", nil},
		{"zero weight", Mix{{Seed: s, Weight: 0}}},
		{"negative weight", Mix{{Seed: s, Weight: -1}}},
		{"nan weight", Mix{{Seed: s, Weight: math.NaN()}}},
		{"inf weight", Mix{{Seed: s, Weight: math.Inf(1)}}},
		{"nil seed", Mix{{Seed: nil, Weight: 1}}},
		{"duplicate", Mix{{Seed: s, Weight: 1}, {Seed: s, Weight: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mix.Validate()
			require.Error(t, err)
			assert.True(t, IsInvalidMix(err))

			_, err = Blend(tt.mix, FieldTraits)
			assert.True(t, IsInvalidMix(err))
			_, err = Merge(tt.mix, DefaultSafety())
			assert.True(t, IsInvalidMix(err))
			_, err = Compute(tt.mix, DefaultSafety(), nil)
			assert.True(t, IsInvalidMix(err))
		})
	}
}

func TestBlendScenarioA(t *testing.T) {
	mix := mixOf(t, "scientist", 0.6, "artist", 0.4)

	traits, err := Blend(mix, FieldTraits)
	require.NoError(t, err)
	assert.InDelta(t, 0.6*0.95+0.4*0.85, traits["openness_intellect"], 1e-9)
	assert.InDelta(t, 0.91, traits["openness_intellect"], 1e-9)

	affect, err := Blend(mix, FieldAffect)
	require.NoError(t, err)
	assert.InDelta(t, 0.6*0.25+0.4*0.35, affect["Fear"], 1e-9)
	assert.Len(t, affect, 4)
}

func TestBlendNormalizationInvariance(t *testing.T) {
	base := mixOf(t, "scientist", 0.5, "artist", 0.3, "skeptic", 0.2)
	want, err := Blend(base, FieldTraits)
	require.NoError(t, err)

	for _, k := range []float64{0.001, 3, 17.5, 1e6} {
		scaled := base.Clone()
		for i := range scaled {
			scaled[i].Weight *= k
		}
		got, err := Blend(scaled, FieldTraits)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for dim, v := range want {
			assert.InDelta(t, v, got[dim], 1e-9, "dimension %s scale %v", dim, k)
		}
	}

	t.Run("HugeWeights", func(t *testing.T) {
		a := &seed.Seed{ID: "a", Traits: seed.Vector{"x": 0.2}}
		b := &seed.Seed{ID: "b", Traits: seed.Vector{"x": 0.6}}
		mix := Mix{{Seed: a, Weight: 1e308}, {Seed: b, Weight: 1e308}}
		require.NoError(t, mix.Validate())
		assert.Equal(t, []float64{0.5, 0.5}, mix.Normalized())

		got, err := Blend(mix, FieldTraits)
		require.NoError(t, err)
		assert.InDelta(t, 0.4, got["x"], 1e-12)
	})
}

func TestBlendMissingDimension(t *testing.T) {
	a := &seed.Seed{ID: "a", Traits: seed.Vector{"shared": 0.2, "only_a": 0.8}}
	b := &seed.Seed{ID: "b", Traits: seed.Vector{"shared": 0.6}}

	got, err := Blend(Mix{{Seed: a, Weight: 1}, {Seed: b, Weight: 3}}, FieldTraits)
	require.NoError(t, err)

	assert.InDelta(t, 0.25*0.2+0.75*0.6, got["shared"], 1e-12)
	// only_a is averaged over "a" alone, not dragged toward zero by "b".
	assert.InDelta(t, 0.8, got["only_a"], 1e-12)

	_, err = Blend(Mix{{Seed: a, Weight: 1}}, Field(9))
	assert.Error(t, err)
}

func TestBlendDoesNotClamp(t *testing.T) {
	a := &seed.Seed{ID: "a", Traits: seed.Vector{"x": 1.4}}
	b := &seed.Seed{ID: "b", Traits: seed.Vector{"x": 1.2}}
	got, err := Blend(Mix{{Seed: a, Weight: 1}, {Seed: b, Weight: 1}}, FieldTraits)
	require.NoError(t, err)
	assert.InDelta(t, 1.3, got["x"], 1e-12)
}

func TestMergeScenarioB(t *testing.T) {
	for _, w := range []float64{0.01, 0.5, 0.99} {
		g, err := Merge(mixOf(t, "scientist", w, "artist", 1-w), DefaultSafety())
		require.NoError(t, err)
		assert.True(t, g.Forbids("Make claims without evidence"))
		assert.True(t, g.Forbids("Dismiss others' creative attempts"))
	}
}

func TestMergeSafetyAndConservativeUnion(t *testing.T) {
	seeds := foundation(t)
	mixes := []Mix{
		mixOf(t, "friend", 1.0),
		mixOf(t, "scientist", 0.6, "artist", 0.4),
		mixOf(t, "skeptic", 0.1, "researcher", 0.2, "artist", 0.7),
		mixOf(t, "artist", 0.2, "scientist", 0.2, "skeptic", 0.2, "researcher", 0.2, "friend", 0.2),
	}
	safety := DefaultSafety()

	for _, mix := range mixes {
		g, err := Merge(mix, safety)
		require.NoError(t, err)

		for _, w := range safety.WillNot() {
			assert.True(t, g.Forbids(w), "safety entry %q", w)
		}
		for _, c := range mix {
			for _, w := range seeds[c.Seed.ID].Guidelines.Boundaries.WillNot {
				assert.True(t, g.Forbids(w), "seed %s entry %q", c.Seed.ID, w)
			}
		}
	}
}

func TestMergeRankedUnion(t *testing.T) {
	a := &seed.Seed{ID: "a", Traits: seed.Vector{"x": 1}, Guidelines: seed.GuidelineBlock{
		PrimaryValues: []string{"truth", "rigor", "curiosity"},
		Boundaries:    seed.Boundaries{WillPrioritize: []string{"accuracy"}},
	}}
	b := &seed.Seed{ID: "b", Traits: seed.Vector{"x": 1}, Guidelines: seed.GuidelineBlock{
		PrimaryValues: []string{"beauty", "Curiosity", "curiosity"},
		Boundaries:    seed.Boundaries{WillPrioritize: []string{"expression", "accuracy"}},
	}}

	g, err := Merge(Mix{{Seed: a, Weight: 0.4}, {Seed: b, Weight: 0.6}}, NewSafetySet())
	require.NoError(t, err)

	// curiosity: 1.0, beauty: 0.6, truth/rigor: 0.4 in first-seen order.
	assert.Equal(t, []string{"curiosity", "beauty", "truth", "rigor"}, g.PrimaryValues)
	assert.Equal(t, []string{"accuracy", "expression"}, g.WillPrioritize)
	assert.Nil(t, g.WillNot)
}

func TestMergeWeightedWinners(t *testing.T) {
	a := &seed.Seed{ID: "a", Traits: seed.Vector{"x": 1}, Guidelines: seed.GuidelineBlock{
		DecisionPrinciples: map[string]string{"when_uncertain": "a-uncertain", "when_wrong": "a-wrong"},
	}}
	b := &seed.Seed{ID: "b", Traits: seed.Vector{"x": 1}, Guidelines: seed.GuidelineBlock{
		DecisionPrinciples: map[string]string{"when_uncertain": "b-uncertain", "when_bored": "b-bored"},
	}}

	t.Run("HeavierWins", func(t *testing.T) {
		g, err := Merge(Mix{{Seed: a, Weight: 1}, {Seed: b, Weight: 2}}, NewSafetySet())
		require.NoError(t, err)

		p, ok := g.Principle("when_uncertain")
		require.True(t, ok)
		assert.Equal(t, "b-uncertain", p.Text)
		assert.Equal(t, "b", p.SeedID)

		keys := make([]string, 0, len(g.DecisionPrinciples))
		for _, p := range g.DecisionPrinciples {
			keys = append(keys, p.Key)
		}
		// b-won keys first, then a's; ties by first-seen.
		assert.Equal(t, []string{"when_uncertain", "when_bored", "when_wrong"}, keys)
	})

	t.Run("TieGoesToEarlier", func(t *testing.T) {
		g, err := Merge(Mix{{Seed: b, Weight: 1}, {Seed: a, Weight: 1}}, NewSafetySet())
		require.NoError(t, err)
		p, ok := g.Principle("WHEN_UNCERTAIN")
		require.True(t, ok)
		assert.Equal(t, "b-uncertain", p.Text)

		g, err = Merge(Mix{{Seed: a, Weight: 1}, {Seed: b, Weight: 1}}, NewSafetySet())
		require.NoError(t, err)
		p, _ = g.Principle("when_uncertain")
		assert.Equal(t, "a-uncertain", p.Text)
	})

	t.Run("OnlyDefinersCompete", func(t *testing.T) {
		g, err := Merge(mixOf(t, "scientist", 0.3, "artist", 0.7), DefaultSafety())
		require.NoError(t, err)
		m, ok := g.Modifier("fairness_cheating")
		require.True(t, ok)
		assert.Equal(t, "scientist", m.SeedID)

		m, ok = g.Modifier("care_harm")
		require.True(t, ok)
		assert.Equal(t, "artist", m.SeedID)

		_, ok = g.Modifier("liberty_oppression")
		assert.False(t, ok)
	})
}

func TestSingleSeedIdentity(t *testing.T) {
	safety := DefaultSafety()
	for id, s := range foundation(t) {
		t.Run(id, func(t *testing.T) {
			st, err := Compute(Mix{{Seed: s, Weight: 1}}, safety, nil)
			require.NoError(t, err)

			assert.Equal(t, s.Traits, st.Traits)
			assert.Equal(t, s.Affect, st.Affect)

			want := s.Guidelines.Clone()
			for _, w := range safety.WillNot() {
				want.Boundaries.WillNot = append(want.Boundaries.WillNot, w)
			}
			assert.Equal(t, want, st.Guidelines.Block())
		})
	}
}

func TestSafetySet(t *testing.T) {
	s := NewSafetySet("Do harm", " do   HARM ", "", "Lie")
	assert.Equal(t, []string{"Do harm", "Lie"}, s.WillNot())
	assert.True(t, s.Prohibits("DO HARM"))
	assert.False(t, s.Prohibits("Do good"))

	got := s.WillNot()
	got[0] = "mutated"
	assert.Equal(t, "Do harm", s.WillNot()[0])

	g := Guidelines{WillNot: []string{"lie"}}
	s.Enforce(&g)
	assert.Equal(t, []string{"lie", "Do harm"}, g.WillNot)
}
