package blend

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/EternisAI/persona-blend/pkg/seed"
)

const (
	goalShareThreshold   = 0.3
	styleShareThreshold  = 0.2
	materializedExamples = 2
)

// MaterializeOptions names the materialized seed and optionally fixes its goal.
type MaterializeOptions struct {
	// ID defaults to a generated "Mixed_xxxxxxxx" identifier.
	ID string
	// Goal replaces the goal statement derived from the mix.
	Goal string
}

// Materialize turns a blended state into a standalone seed that can be stored and reused.
func Materialize(st *State, opts MaterializeOptions) *seed.Seed {
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = "Mixed_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	}

	weights := st.Mix.Normalized()
	dominant := st.Dominant()

	var goals, others []string
	for i, c := range st.Mix {
		if weights[i] > goalShareThreshold {
			if first := c.Seed.FirstSentence(); first != "" {
				goals = append(goals, strings.ToLower(first))
			}
		}
		if c.Seed.ID != dominant.ID && weights[i] > styleShareThreshold {
			others = append(others, c.Seed.ID)
		}
	}

	goal := strings.TrimSpace(opts.Goal)
	if goal == "" {
		goal = dominant.GoalStatement
		if len(goals) > 0 {
			goal = fmt.Sprintf("Combine %s in a unified approach.", strings.Join(goals, ", "))
		}
	}

	style := dominant.PersonaStyle
	if len(others) > 0 {
		style = strings.TrimSpace(fmt.Sprintf("%s Enhanced with %s characteristics.", style, strings.Join(others, ", ")))
	}

	var roots []string
	for _, c := range st.Mix {
		roots = append(roots, c.Seed.Memory.RootNodes...)
	}

	examples := dominant.Examples
	if len(examples) > materializedExamples {
		examples = examples[:materializedExamples]
	}

	return &seed.Seed{
		ID:            id,
		GoalStatement: goal,
		PersonaStyle:  style,
		Affect:        roundVector(st.Affect),
		Traits:        roundVector(st.Traits),
		Knowledge:     uniqueTags(st.Mix, func(s *seed.Seed) []string { return s.Knowledge }),
		Skills:        uniqueTags(st.Mix, func(s *seed.Seed) []string { return s.Skills }),
		Guidelines:    st.Guidelines.Block(),
		Memory:        seed.Memory{RootNodes: nilIfEmpty(lo.Uniq(roots))},
		Lexicon:       dominant.Lexicon,
		Examples:      append([]seed.Example(nil), examples...),
		Components:    st.Components(),
	}
}

func roundVector(v seed.Vector) seed.Vector {
	out := make(seed.Vector, len(v))
	for k, val := range v {
		out[k] = math.Round(val*1000) / 1000
	}
	return out
}

func uniqueTags(mix Mix, get func(*seed.Seed) []string) []string {
	var all []string
	for _, c := range mix {
		all = append(all, get(c.Seed)...)
	}
	return nilIfEmpty(lo.Uniq(all))
}

func nilIfEmpty(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return in
}
