// Package session owns a blended persona over time: its mix, override and published state.
package session

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/activation"
	"github.com/EternisAI/persona-blend/pkg/blend"
	"github.com/EternisAI/persona-blend/pkg/lexicon"
	"github.com/EternisAI/persona-blend/pkg/logging"
	"github.com/EternisAI/persona-blend/pkg/seed"
)

// Weight is one requested mix entry before the seed is resolved.
type Weight struct {
	SeedID string  `json:"seed_id"`
	Weight float64 `json:"weight"`
}

type Options struct {
	// Safety defaults to blend.DefaultSafety.
	Safety         *blend.SafetySet
	Classifier     lexicon.Classifier
	LexiconTimeout time.Duration
	Logger         *log.Logger
	Publisher      Publisher
}

// Session holds the current blended state. Readers load it without locking; writers are
// serialized and replace it whole, so a state obtained earlier never changes.
type Session struct {
	id        string
	safety    blend.SafetySet
	engine    *activation.Engine
	publisher Publisher
	repo      seed.Repository
	logger    *log.Logger

	mu         sync.Mutex
	state      atomic.Pointer[blend.State]
	lastAccess atomic.Int64
}

// Create resolves weights against repo and computes version 1.
func Create(ctx context.Context, repo seed.Repository, weights []Weight, opts Options) (*Session, error) {
	mix, err := Resolve(ctx, repo, weights)
	if err != nil {
		return nil, err
	}
	return newSession(ctx, repo, mix, opts)
}

// New creates a session from an already resolved mix. Such a session can only be
// rebalanced with RebalanceMix.
func New(mix blend.Mix, opts Options) (*Session, error) {
	return newSession(context.Background(), nil, mix, opts)
}

func newSession(ctx context.Context, repo seed.Repository, mix blend.Mix, opts Options) (*Session, error) {
	safety := blend.DefaultSafety()
	if opts.Safety != nil {
		safety = *opts.Safety
	}

	st, err := blend.Compute(mix, safety, nil)
	if err != nil {
		return nil, err
	}
	st.Version = 1

	id := uuid.New().String()
	logger := logging.OrDiscard(opts.Logger).With("session_id", id)
	s := &Session{
		id:        id,
		safety:    safety,
		engine:    activation.NewEngine(opts.Classifier, opts.LexiconTimeout, logger),
		publisher: opts.Publisher,
		repo:      repo,
		logger:    logger,
	}
	s.state.Store(st)
	s.touch()

	logger.Info("Session created", "mix", describe(st))
	s.publish(ctx, EventCreated, st)
	return s, nil
}

// Resolve checks the requested weights and looks every seed up. Weight problems are
// reported before any lookup happens.
func Resolve(ctx context.Context, repo seed.Repository, weights []Weight) (blend.Mix, error) {
	if len(weights) == 0 {
		return nil, &blend.InvalidMixError{Reason: "mix is empty"}
	}
	seen := make(map[string]struct{}, len(weights))
	for _, w := range weights {
		id := strings.TrimSpace(w.SeedID)
		if id == "" {
			return nil, &blend.InvalidMixError{Reason: "empty seed id"}
		}
		if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			return nil, &blend.InvalidMixError{Reason: "weight is not finite", SeedID: id}
		}
		if w.Weight <= 0 {
			return nil, &blend.InvalidMixError{Reason: "weight must be positive", SeedID: id}
		}
		if _, dup := seen[id]; dup {
			return nil, &blend.InvalidMixError{Reason: "duplicate seed", SeedID: id}
		}
		seen[id] = struct{}{}
	}

	mix := make(blend.Mix, 0, len(weights))
	for _, w := range weights {
		s, err := repo.Get(ctx, strings.TrimSpace(w.SeedID))
		if err != nil {
			return nil, err
		}
		mix = append(mix, blend.Component{Seed: s, Weight: w.Weight})
	}
	return mix, nil
}

func (s *Session) ID() string {
	return s.id
}

// CurrentState returns the published state. Callers must treat it as read-only.
func (s *Session) CurrentState() *blend.State {
	s.touch()
	return s.state.Load()
}

// Evaluate runs the activation engine for turn against the state current at call time.
func (s *Session) Evaluate(ctx context.Context, turn activation.TurnContext) activation.Result {
	_, res := s.EvaluateState(ctx, turn)
	return res
}

// EvaluateState is Evaluate that also returns the state the result was computed from.
func (s *Session) EvaluateState(ctx context.Context, turn activation.TurnContext) (*blend.State, activation.Result) {
	s.touch()
	st := s.state.Load()
	return st, s.engine.Evaluate(ctx, st, turn)
}

// Rebalance resolves weights against the session's repository and replaces the mix.
// On error the current state is kept.
func (s *Session) Rebalance(ctx context.Context, weights []Weight) (*blend.State, error) {
	if s.repo == nil {
		return nil, errors.New("session has no seed repository")
	}
	mix, err := Resolve(ctx, s.repo, weights)
	if err != nil {
		s.logger.Warn("Rebalance rejected", "error", err)
		return nil, err
	}
	return s.RebalanceMix(ctx, mix)
}

// RebalanceMix replaces the mix with an already resolved one. An active override is kept.
func (s *Session) RebalanceMix(ctx context.Context, mix blend.Mix) (*blend.State, error) {
	return s.commit(ctx, EventRebalanced, func(prev *blend.State) (*blend.State, error) {
		return blend.Compute(mix, s.safety, prev.Override)
	})
}

// ApplyOverride recomputes the current mix with o, replacing any earlier override.
// An override that would lift a safety prohibition fails with ConflictUnresolvedError.
func (s *Session) ApplyOverride(ctx context.Context, o *blend.Override) (*blend.State, error) {
	return s.commit(ctx, EventOverridden, func(prev *blend.State) (*blend.State, error) {
		return blend.Compute(prev.Mix, s.safety, o)
	})
}

func (s *Session) ClearOverride(ctx context.Context) (*blend.State, error) {
	return s.commit(ctx, EventOverrideCleared, func(prev *blend.State) (*blend.State, error) {
		return blend.Compute(prev.Mix, s.safety, nil)
	})
}

func (s *Session) commit(ctx context.Context, kind EventType, compute func(prev *blend.State) (*blend.State, error)) (*blend.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	prev := s.state.Load()
	next, err := compute(prev)
	if err != nil {
		s.logger.Warn("State change rejected", "event", kind, "version", prev.Version, "error", err)
		return nil, err
	}
	next.Version = prev.Version + 1
	s.state.Store(next)

	s.logger.Info("State changed", "event", kind, "version", next.Version, "mix", describe(next))
	s.publish(ctx, kind, next)
	return next, nil
}

func (s *Session) publish(ctx context.Context, kind EventType, st *blend.State) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, newEvent(kind, s.id, st.Version, st.Components()))
}

func (s *Session) touch() {
	s.lastAccess.Store(time.Now().UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

func describe(st *blend.State) string {
	parts := make([]string, 0, len(st.Mix))
	for _, c := range st.Components() {
		parts = append(parts, c.SeedID+"="+trimFloat(c.Weight))
	}
	return strings.Join(parts, ",")
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 3, 64), "0"), ".")
}
