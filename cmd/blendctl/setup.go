package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/blend"
	"github.com/EternisAI/persona-blend/pkg/seed"
	"github.com/EternisAI/persona-blend/pkg/session"
)

// parseMix reads "id=weight" pairs in the order given.
func parseMix(pairs []string) ([]session.Weight, error) {
	weights := make([]session.Weight, 0, len(pairs))
	for _, p := range pairs {
		id, raw, ok := strings.Cut(p, "=")
		if !ok {
			return nil, errors.Errorf("mix entry %q is not id=weight", p)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "mix entry %q", p)
		}
		weights = append(weights, session.Weight{SeedID: strings.TrimSpace(id), Weight: w})
	}
	return weights, nil
}

func readOverride(path string) (*blend.Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read override")
	}
	var o blend.Override
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, errors.Wrapf(err, "decode override %s", path)
	}
	return &o, nil
}

type seedSummary struct {
	ID            string `json:"seed_id"`
	GoalStatement string `json:"goal_statement"`
}

func listSeeds(ctx context.Context, repo *seed.MemoryRepository) []seedSummary {
	out := make([]seedSummary, 0, repo.Len())
	for _, id := range repo.IDs() {
		s, _ := repo.Get(ctx, id)
		out = append(out, seedSummary{ID: s.ID, GoalStatement: s.GoalStatement})
	}
	return out
}
