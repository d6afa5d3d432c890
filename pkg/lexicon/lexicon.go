// Package lexicon classifies text into moral-foundation categories.
package lexicon

import (
	"context"
	"sort"
)

// Category is a moral-foundation tag produced by a classifier.
type Category string

const (
	CareHarm            Category = "care_harm"
	FairnessCheating    Category = "fairness_cheating"
	LoyaltyBetrayal     Category = "loyalty_betrayal"
	AuthoritySubversion Category = "authority_subversion"
	SanctityDegradation Category = "sanctity_degradation"
	LibertyOppression   Category = "liberty_oppression"
)

var knownOrder = map[Category]int{
	CareHarm:            0,
	FairnessCheating:    1,
	LoyaltyBetrayal:     2,
	AuthoritySubversion: 3,
	SanctityDegradation: 4,
	LibertyOppression:   5,
}

// Categories returns the known categories in canonical order.
func Categories() []Category {
	out := make([]Category, len(knownOrder))
	for c, i := range knownOrder {
		out[i] = c
	}
	return out
}

// Known reports whether c is one of the enumerated categories.
func (c Category) Known() bool {
	_, ok := knownOrder[c]
	return ok
}

// Classifier maps text to the moral-foundation categories it touches.
// Implementations may return categories outside the known set; callers ignore them.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Category, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) ([]Category, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) ([]Category, error) {
	return f(ctx, text)
}

// Normalize removes duplicates and sorts known categories first in canonical order,
// then unknown ones lexicographically.
func Normalize(cats []Category) []Category {
	seen := make(map[Category]struct{}, len(cats))
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, iKnown := knownOrder[out[i]]
		oj, jKnown := knownOrder[out[j]]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		default:
			return out[i] < out[j]
		}
	})
	return out
}
