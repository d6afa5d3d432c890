package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/activation"
	"github.com/EternisAI/persona-blend/pkg/blend"
	"github.com/EternisAI/persona-blend/pkg/prompts"
	"github.com/EternisAI/persona-blend/pkg/seed"
	"github.com/EternisAI/persona-blend/pkg/session"
)

type sessionView struct {
	SessionID string           `json:"session_id"`
	Version   uint64           `json:"version"`
	Mix       []seed.Component `json:"mix"`
	Dominant  string           `json:"dominant_seed"`
	State     *blend.State     `json:"state"`
}

func viewOf(id string, st *blend.State) sessionView {
	return sessionView{
		SessionID: id,
		Version:   st.Version,
		Mix:       st.Components(),
		Dominant:  st.Dominant().ID,
		State:     st,
	}
}

type createSessionRequest struct {
	Mix      []session.Weight `json:"mix"`
	Override *blend.Override  `json:"override,omitempty"`
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := req.Override.Validate(s.safety); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	sess, err := s.manager.Create(r.Context(), req.Mix)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	st := sess.CurrentState()
	if req.Override != nil {
		if st, err = sess.ApplyOverride(r.Context(), req.Override); err != nil {
			s.manager.Remove(r.Context(), sess.ID())
			s.writeError(w, r, statusFor(err), err)
			return
		}
	}

	s.logger.Info("Session created over HTTP", "session_id", sess.ID(), "dominant", st.Dominant().ID)
	writeJSON(w, http.StatusCreated, viewOf(sess.ID(), st))
}

// lookup writes a 404 and returns nil when the session does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "sessionID")
	sess, ok := s.manager.Get(id)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, errors.Errorf("session %q not found", id))
		return nil
	}
	return sess
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess.ID(), sess.CurrentState()))
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.manager.Remove(r.Context(), id) {
		s.writeError(w, r, http.StatusNotFound, errors.Errorf("session %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type interactRequest struct {
	activation.TurnContext
	Prompt bool `json:"prompt,omitempty"`
}

type interactResponse struct {
	SessionID string            `json:"session_id"`
	Result    activation.Result `json:"result"`
	Prompt    string            `json:"prompt,omitempty"`
}

func (s *Server) interactHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	var req interactRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	st, res := sess.EvaluateState(r.Context(), req.TurnContext)
	out := interactResponse{SessionID: sess.ID(), Result: res}
	if req.Prompt {
		prompt, err := prompts.BuildPersonaSystemPrompt(st, res)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		out.Prompt = prompt
	}
	writeJSON(w, http.StatusOK, out)
}

type rebalanceRequest struct {
	Mix []session.Weight `json:"mix"`
}

func (s *Server) rebalanceHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	var req rebalanceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	st, err := sess.Rebalance(r.Context(), req.Mix)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess.ID(), st))
}

func (s *Server) applyOverrideHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	var o blend.Override
	if err := decodeBody(r, &o); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	st, err := sess.ApplyOverride(r.Context(), &o)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess.ID(), st))
}

func (s *Server) clearOverrideHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	st, err := sess.ClearOverride(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess.ID(), st))
}

type materializeRequest struct {
	SeedID     string `json:"seed_id,omitempty"`
	CustomGoal string `json:"custom_goal,omitempty"`
}

func (s *Server) materializeSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	var req materializeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	sd := blend.Materialize(sess.CurrentState(), blend.MaterializeOptions{ID: req.SeedID, Goal: req.CustomGoal})
	writeJSON(w, http.StatusOK, sd)
}
