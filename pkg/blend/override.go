package blend

import (
	"math"

	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/seed"
)

// OverrideSource is the SeedID recorded on guidance supplied by an Override.
const OverrideSource = "override"

// Override is an explicit caller customization applied on top of a merged mix.
// Existing keyed guidance is replaced in place; new keys are appended after the merged entries.
type Override struct {
	Affect             seed.Vector       `json:"affect,omitempty"`
	Traits             seed.Vector       `json:"traits,omitempty"`
	AddWillNot         []string          `json:"add_will_not,omitempty"`
	RemoveWillNot      []string          `json:"remove_will_not,omitempty"`
	DecisionPrinciples map[string]string `json:"decision_principles,omitempty"`
	ResponseModifiers  map[string]string `json:"response_modifiers,omitempty"`
}

// Validate rejects overrides that would remove a safety prohibition.
func (o *Override) Validate(safety SafetySet) error {
	if o == nil {
		return nil
	}
	for _, vec := range []seed.Vector{o.Affect, o.Traits} {
		for dim, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Errorf("override value for %q is not finite", dim)
			}
		}
	}

	var conflicts []string
	for _, w := range o.RemoveWillNot {
		if safety.Prohibits(w) {
			conflicts = append(conflicts, w)
		}
	}
	if len(conflicts) > 0 {
		return &ConflictUnresolvedError{Prohibitions: conflicts}
	}
	return nil
}

func (o *Override) Clone() *Override {
	if o == nil {
		return nil
	}
	return &Override{
		Affect:             o.Affect.Clone(),
		Traits:             o.Traits.Clone(),
		AddWillNot:         cloneOrNil(o.AddWillNot),
		RemoveWillNot:      cloneOrNil(o.RemoveWillNot),
		DecisionPrinciples: cloneStringMap(o.DecisionPrinciples),
		ResponseModifiers:  cloneStringMap(o.ResponseModifiers),
	}
}

func (o *Override) apply(st *State) {
	for dim, v := range o.Affect {
		st.Affect[dim] = v
	}
	for dim, v := range o.Traits {
		st.Traits[dim] = v
	}

	if len(o.RemoveWillNot) > 0 {
		remove := make(map[string]struct{}, len(o.RemoveWillNot))
		for _, w := range o.RemoveWillNot {
			remove[normKey(w)] = struct{}{}
		}
		kept := st.Guidelines.WillNot[:0:0]
		for _, w := range st.Guidelines.WillNot {
			if _, ok := remove[normKey(w)]; !ok {
				kept = append(kept, w)
			}
		}
		st.Guidelines.WillNot = kept
	}
	for _, w := range o.AddWillNot {
		if normKey(w) != "" && !st.Guidelines.Forbids(w) {
			st.Guidelines.WillNot = append(st.Guidelines.WillNot, w)
		}
	}

	st.Guidelines.DecisionPrinciples = overrideGuidance(st.Guidelines.DecisionPrinciples, o.DecisionPrinciples)
	st.Guidelines.ResponseModifiers = overrideGuidance(st.Guidelines.ResponseModifiers, o.ResponseModifiers)
}

func overrideGuidance(list []Guidance, texts map[string]string) []Guidance {
	for _, key := range seed.SortedKeys(texts) {
		k := normKey(key)
		if k == "" {
			continue
		}
		replaced := false
		for i := range list {
			if normKey(list[i].Key) == k {
				list[i].Text = texts[key]
				list[i].SeedID = OverrideSource
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, Guidance{Key: key, Text: texts[key], SeedID: OverrideSource})
		}
	}
	return list
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
