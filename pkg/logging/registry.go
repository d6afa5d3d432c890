package logging

import (
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

type ComponentType string

const (
	ComponentTypeUtility    ComponentType = "utility"
	ComponentTypeSession    ComponentType = "session"
	ComponentTypeLexicon    ComponentType = "lexicon"
	ComponentTypeRepository ComponentType = "repository"
	ComponentTypeEngine     ComponentType = "engine"
	ComponentTypeNATS       ComponentType = "nats"
)

type componentInfo struct {
	kind ComponentType
}

// ComponentRegistry tracks known components and their log levels.
type ComponentRegistry struct {
	mu         sync.RWMutex
	components map[string]*componentInfo
	levels     map[string]log.Level
}

func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		components: make(map[string]*componentInfo),
		levels:     make(map[string]log.Level),
	}
}

// Register records a component. Registering twice keeps the first type.
func (r *ComponentRegistry) Register(id string, kind ComponentType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[id]; ok {
		return
	}
	r.components[id] = &componentInfo{kind: kind}
}

// SetLevel overrides the level of a component, registered or not.
func (r *ComponentRegistry) SetLevel(id string, level log.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.levels[id] = level
}

// Level returns the component level, or fallback when none was configured.
func (r *ComponentRegistry) Level(id string, fallback log.Level) log.Level {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if level, ok := r.levels[id]; ok {
		return level
	}
	return fallback
}

// LoadLogLevels parses {"component": "debug"} style overrides. Unparseable levels are skipped.
func (r *ComponentRegistry) LoadLogLevels(levels map[string]string) {
	for id, raw := range levels {
		level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			continue
		}
		r.SetLevel(id, level)
	}
}

// LoggerFor returns a child of base prefixed with the component id.
func (r *ComponentRegistry) LoggerFor(base *log.Logger, id string) *log.Logger {
	logger := base.WithPrefix(id).With("component", id)
	logger.SetLevel(r.Level(id, base.GetLevel()))
	return logger
}

func (r *ComponentRegistry) ListByType(kind ComponentType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, info := range r.components {
		if info.kind == kind {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
