package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/EternisAI/persona-blend/pkg/logging"
	"github.com/EternisAI/persona-blend/pkg/seed"
)

// Manager keeps the live sessions of a process and drops the ones left idle.
type Manager struct {
	repo   seed.Repository
	opts   Options
	ttl    time.Duration
	logger *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	created   atomic.Uint64
	removed   atomic.Uint64
	expired   atomic.Uint64
	lastSweep atomic.Int64
}

// Stats is a point-in-time view of the manager's bookkeeping.
type Stats struct {
	Active  int           `json:"active_sessions"`
	Created uint64        `json:"created"`
	Removed uint64        `json:"removed"`
	Expired uint64        `json:"expired"`
	IdleTTL time.Duration `json:"idle_ttl_ns"`
	// LastSweep is zero until Expire has run once.
	LastSweep time.Time `json:"last_sweep"`
	// Usage counts active sessions by the seed that dominates their mix.
	Usage map[string]int `json:"dominant_seed_usage"`
}

// NewManager creates a manager. Sessions idle for longer than ttl are expired; a ttl of
// zero keeps them until removed.
func NewManager(repo seed.Repository, ttl time.Duration, opts Options) *Manager {
	return &Manager{
		repo:     repo,
		opts:     opts,
		ttl:      ttl,
		logger:   logging.OrDiscard(opts.Logger),
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create(ctx context.Context, weights []Weight) (*Session, error) {
	s, err := Create(ctx, m.repo, weights, m.opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.created.Add(1)
	return s, nil
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

func (m *Manager) Remove(ctx context.Context, id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.removed.Add(1)

	m.logger.Info("Session removed", "session_id", id)
	s.publish(ctx, EventRemoved, s.state.Load())
	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stats does not refresh the idle time of any session.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	usage := make(map[string]int)
	for _, s := range m.sessions {
		usage[s.state.Load().Dominant().ID]++
	}
	active := len(m.sessions)
	m.mu.RUnlock()

	st := Stats{
		Active:  active,
		Created: m.created.Load(),
		Removed: m.removed.Load(),
		Expired: m.expired.Load(),
		IdleTTL: m.ttl,
		Usage:   usage,
	}
	if ns := m.lastSweep.Load(); ns != 0 {
		st.LastSweep = time.Unix(0, ns)
	}
	return st
}

// Expire drops every session last used before now minus the ttl and returns their IDs
// in sorted order.
func (m *Manager) Expire(ctx context.Context, now time.Time) []string {
	if m.ttl <= 0 {
		return nil
	}
	m.lastSweep.Store(now.UnixNano())
	cutoff := now.Add(-m.ttl)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	m.expired.Add(uint64(len(expired)))

	sort.Slice(expired, func(i, j int) bool { return expired[i].ID() < expired[j].ID() })
	ids := make([]string, 0, len(expired))
	for _, s := range expired {
		ids = append(ids, s.ID())
		s.publish(ctx, EventExpired, s.state.Load())
	}
	if len(ids) > 0 {
		m.logger.Info("Expired idle sessions", "count", len(ids), "ttl", m.ttl)
	}
	return ids
}

// Run expires idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Session expiry loop stopped")
			return
		case now := <-ticker.C:
			m.Expire(ctx, now)
		}
	}
}
