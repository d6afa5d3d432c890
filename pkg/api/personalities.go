package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/blend"
	"github.com/EternisAI/persona-blend/pkg/seed"
	"github.com/EternisAI/persona-blend/pkg/session"
)

type personality struct {
	ID            string      `json:"seed_id"`
	GoalStatement string      `json:"goal_statement"`
	PersonaStyle  string      `json:"persona_style"`
	Affect        seed.Vector `json:"core_vector_default"`
	Traits        seed.Vector `json:"personality_vector"`
	RootNodes     []string    `json:"root_nodes,omitempty"`
}

type personalitiesResponse struct {
	Personalities []personality `json:"personalities"`
	Count         int           `json:"count"`
}

func (s *Server) listPersonalitiesHandler(w http.ResponseWriter, r *http.Request) {
	out := personalitiesResponse{Personalities: make([]personality, 0, s.repo.Len())}
	for _, id := range s.repo.IDs() {
		sd, err := s.repo.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, r, statusFor(err), err)
			return
		}
		out.Personalities = append(out.Personalities, personality{
			ID:            sd.ID,
			GoalStatement: sd.GoalStatement,
			PersonaStyle:  sd.PersonaStyle,
			Affect:        sd.Affect,
			Traits:        sd.Traits,
			RootNodes:     sd.Memory.RootNodes,
		})
	}
	out.Count = len(out.Personalities)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPersonalityHandler(w http.ResponseWriter, r *http.Request) {
	sd, err := s.repo.Get(r.Context(), chi.URLParam(r, "seedID"))
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sd)
}

type mixRequest struct {
	Mix        []session.Weight `json:"mix"`
	SeedID     string           `json:"seed_id,omitempty"`
	CustomGoal string           `json:"custom_goal,omitempty"`
}

type mixResponse struct {
	Seed *seed.Seed       `json:"seed"`
	Mix  []seed.Component `json:"mix"`
}

// mixHandler blends seeds without creating a session and returns the materialized seed.
func (s *Server) mixHandler(w http.ResponseWriter, r *http.Request) {
	var req mixRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	mix, err := session.Resolve(r.Context(), s.repo, req.Mix)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	st, err := blend.Compute(mix, s.safety, nil)
	if err != nil {
		s.writeError(w, r, statusFor(err), errors.Wrap(err, "blend"))
		return
	}

	writeJSON(w, http.StatusOK, mixResponse{
		Seed: blend.Materialize(st, blend.MaterializeOptions{ID: req.SeedID, Goal: req.CustomGoal}),
		Mix:  st.Components(),
	})
}
