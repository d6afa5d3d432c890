package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Repository serves immutable seeds keyed by identifier.
type Repository interface {
	LoadAll(ctx context.Context) (map[string]*Seed, error)
	Get(ctx context.Context, id string) (*Seed, error)
}

// SeedNotFoundError is returned when an identifier has no seed.
type SeedNotFoundError struct {
	ID string
}

func (e *SeedNotFoundError) Error() string {
	return fmt.Sprintf("seed %q not found", e.ID)
}

// IsNotFound reports whether err is, or wraps, a SeedNotFoundError.
func IsNotFound(err error) bool {
	var nf *SeedNotFoundError
	return errors.As(err, &nf)
}

// Decode reads one JSON seed document and validates it.
func Decode(r io.Reader) (*Seed, error) {
	var s Seed
	dec := json.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the structural requirements of a seed.
func Validate(s *Seed) error {
	if s == nil {
		return errors.New("seed is nil")
	}
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("seed has no seed_id")
	}
	if len(s.Affect) == 0 && len(s.Traits) == 0 {
		return errors.Errorf("seed %q defines neither core_vector_default nor personality_vector", s.ID)
	}
	return nil
}

// MemoryRepository is a read-only snapshot of seeds. Safe for concurrent use without locking.
type MemoryRepository struct {
	seeds map[string]*Seed
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository snapshots the given seeds. The repository keeps private copies.
func NewMemoryRepository(seeds ...*Seed) (*MemoryRepository, error) {
	m := make(map[string]*Seed, len(seeds))
	for _, s := range seeds {
		if err := Validate(s); err != nil {
			return nil, err
		}
		if _, dup := m[s.ID]; dup {
			return nil, errors.Errorf("duplicate seed %q", s.ID)
		}
		m[s.ID] = s.Clone()
	}
	return &MemoryRepository{seeds: m}, nil
}

// Snapshot loads everything from repo into a MemoryRepository.
func Snapshot(ctx context.Context, repo Repository) (*MemoryRepository, error) {
	all, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load seeds")
	}
	seeds := make([]*Seed, 0, len(all))
	for _, id := range sortedIDs(all) {
		seeds = append(seeds, all[id])
	}
	return NewMemoryRepository(seeds...)
}

func (r *MemoryRepository) LoadAll(_ context.Context) (map[string]*Seed, error) {
	out := make(map[string]*Seed, len(r.seeds))
	for id, s := range r.seeds {
		out[id] = s
	}
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Seed, error) {
	s, ok := r.seeds[id]
	if !ok {
		return nil, &SeedNotFoundError{ID: id}
	}
	return s, nil
}

// IDs returns the seed identifiers in lexicographic order.
func (r *MemoryRepository) IDs() []string {
	return sortedIDs(r.seeds)
}

func (r *MemoryRepository) Len() int {
	return len(r.seeds)
}

func sortedIDs(m map[string]*Seed) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
