package blend

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/persona-blend/pkg/seed"
)

func TestOverrideScenarioE(t *testing.T) {
	safety := DefaultSafety()
	mix := mixOf(t, "scientist", 0.6, "artist", 0.4)

	before, err := Compute(mix, safety, nil)
	require.NoError(t, err)

	o := &Override{RemoveWillNot: []string{"enable CLEARLY harmful behavior", "Make claims without evidence"}}
	after, err := Compute(mix, safety, o)
	require.Error(t, err)
	assert.Nil(t, after)
	assert.True(t, IsConflictUnresolved(err))

	var conflict *ConflictUnresolvedError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"enable CLEARLY harmful behavior"}, conflict.Prohibitions)

	// The earlier block is untouched by the rejected attempt.
	assert.True(t, before.Guidelines.Forbids("Enable clearly harmful behavior"))
	assert.True(t, before.Guidelines.Forbids("Make claims without evidence"))
}

func TestOverrideApplies(t *testing.T) {
	safety := DefaultSafety()
	mix := mixOf(t, "artist", 0.4, "scientist", 0.4, "skeptic", 0.2)

	o := &Override{
		Affect:        seed.Vector{"Time": 0.35},
		Traits:        seed.Vector{"conscientious_industriousness": 0.30, "humor": 0.9},
		AddWillNot:    []string{"Take anything too seriously", "make claims WITHOUT evidence"},
		RemoveWillNot: []string{"Dismiss others' creative attempts"},
		DecisionPrinciples: map[string]string{
			"when_uncertain": "Slow down and ask what the evidence actually is.",
			"when_relaxed":   "Riff on the idea before analysing it.",
		},
		ResponseModifiers: map[string]string{"liberty_oppression": "Defend the right to disagree."},
	}

	st, err := Compute(mix, safety, o)
	require.NoError(t, err)

	assert.Equal(t, 0.35, st.Affect["Time"])
	assert.Equal(t, 0.30, st.Traits["conscientious_industriousness"])
	assert.Equal(t, 0.9, st.Traits["humor"])

	assert.False(t, st.Guidelines.Forbids("Dismiss others' creative attempts"))
	assert.True(t, st.Guidelines.Forbids("Take anything too seriously"))
	assert.Equal(t, 1, countFold(st.Guidelines.WillNot, "make claims without evidence"))
	for _, w := range safety.WillNot() {
		assert.True(t, st.Guidelines.Forbids(w))
	}

	p, ok := st.Guidelines.Principle("when_uncertain")
	require.True(t, ok)
	assert.Equal(t, OverrideSource, p.SeedID)
	assert.Equal(t, "Slow down and ask what the evidence actually is.", p.Text)
	// when_giving_feedback and when_uncertain are both artist's; the override keeps the slot.
	assert.Equal(t, "when_uncertain", st.Guidelines.DecisionPrinciples[1].Key, "replaced in place")

	last := st.Guidelines.DecisionPrinciples[len(st.Guidelines.DecisionPrinciples)-1]
	assert.Equal(t, "when_relaxed", last.Key, "new keys are appended")

	m, ok := st.Guidelines.Modifier("liberty_oppression")
	require.True(t, ok)
	assert.Equal(t, OverrideSource, m.SeedID)

	// The state holds its own copy of the override.
	o.Traits["humor"] = 0
	assert.Equal(t, 0.9, st.Override.Traits["humor"])
}

func TestOverrideRejectsNonFinite(t *testing.T) {
	o := &Override{Traits: seed.Vector{"x": math.NaN()}}
	err := o.Validate(DefaultSafety())
	require.Error(t, err)
	assert.False(t, IsConflictUnresolved(err))

	var nilOverride *Override
	assert.NoError(t, nilOverride.Validate(DefaultSafety()))
	assert.Nil(t, nilOverride.Clone())
}

func TestMaterialize(t *testing.T) {
	mix := mixOf(t, "artist", 0.4, "scientist", 0.4, "skeptic", 0.2)
	st, err := Compute(mix, DefaultSafety(), nil)
	require.NoError(t, err)

	s := Materialize(st, MaterializeOptions{})
	require.NoError(t, seed.Validate(s))

	assert.True(t, strings.HasPrefix(s.ID, "Mixed_"))
	assert.Len(t, s.ID, len("Mixed_")+8)

	// artist is dominant: first on the 0.4 tie.
	assert.Equal(t, "Combine create, inspire, and explore the boundaries of imagination, systematically explore, test hypotheses, and share evidence-based knowledge in a unified approach.", s.GoalStatement)
	assert.Equal(t, "Creative visionary who speaks in metaphors and sees connections others miss. Enhanced with scientist characteristics.", s.PersonaStyle)
	assert.Equal(t, []string{"ART001", "SCI001", "SKP001"}, s.Memory.RootNodes)
	assert.Len(t, s.Examples, 1)
	assert.InDelta(t, 0.4*0.95+0.4*0.85+0.2*0.85, s.Traits["openness_intellect"], 0.0005)
	assert.Equal(t, math.Round(s.Traits["openness_intellect"]*1000)/1000, s.Traits["openness_intellect"])
	assert.Equal(t, []seed.Component{
		{SeedID: "artist", Weight: 0.4},
		{SeedID: "scientist", Weight: 0.4},
		{SeedID: "skeptic", Weight: 0.2},
	}, roundComponents(s.Components))
	assert.True(t, st.Guidelines.Forbids("Fabricate data or citations"))
	assert.Contains(t, s.Guidelines.Boundaries.WillNot, "Fabricate data or citations")

	named := Materialize(st, MaterializeOptions{ID: "Stoner_Genius_Skeptic_v1"})
	assert.Equal(t, "Stoner_Genius_Skeptic_v1", named.ID)
	assert.Equal(t, s.GoalStatement, named.GoalStatement)

	t.Run("CustomGoal", func(t *testing.T) {
		custom := Materialize(st, MaterializeOptions{ID: "lab_muse", Goal: "  Turn lab notes into poems.  "})
		require.NoError(t, seed.Validate(custom))
		assert.Equal(t, "lab_muse", custom.ID)
		assert.Equal(t, "Turn lab notes into poems.", custom.GoalStatement)
		assert.Equal(t, s.PersonaStyle, custom.PersonaStyle)
	})

	t.Run("BlankGoalFallsBack", func(t *testing.T) {
		got := Materialize(st, MaterializeOptions{Goal: "   "})
		assert.Equal(t, s.GoalStatement, got.GoalStatement)
	})
}

func countFold(list []string, want string) int {
	n := 0
	for _, v := range list {
		if strings.EqualFold(v, want) {
			n++
		}
	}
	return n
}

func roundComponents(in []seed.Component) []seed.Component {
	out := make([]seed.Component, len(in))
	for i, c := range in {
		out[i] = seed.Component{SeedID: c.SeedID, Weight: math.Round(c.Weight*1e9) / 1e9}
	}
	return out
}
