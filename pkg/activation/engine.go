// Package activation decides which guideline entries of a blended state apply to a turn.
package activation

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/blend"
	"github.com/EternisAI/persona-blend/pkg/lexicon"
	"github.com/EternisAI/persona-blend/pkg/logging"
)

// Phase is the per-evaluation state of the engine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseClassifying
	PhaseResolving
	PhaseActivated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseClassifying:
		return "classifying"
	case PhaseResolving:
		return "resolving"
	case PhaseActivated:
		return "activated"
	default:
		return "unknown"
	}
}

type Source string

const (
	SourcePrinciple Source = "principle"
	SourceModifier  Source = "modifier"
)

// TurnContext is the input of one evaluation.
type TurnContext struct {
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}

type Activation struct {
	Source   Source `json:"source"`
	Key      string `json:"key"`
	Guidance string `json:"guidance"`
	SeedID   string `json:"seed_id"`
}

type Result struct {
	Version     uint64             `json:"version"`
	Activations []Activation       `json:"activations"`
	Categories  []lexicon.Category `json:"categories"`
	Ignored     []lexicon.Category `json:"ignored,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Degraded    bool               `json:"degraded"`
	Phase       Phase              `json:"-"`
}

// Engine is stateless between calls; it only reads the state it is handed.
type Engine struct {
	classifier lexicon.Classifier
	timeout    time.Duration
	logger     *log.Logger
}

// NewEngine creates an engine. A nil classifier detects no categories; a zero timeout
// leaves the classifier bounded only by the caller's context.
func NewEngine(classifier lexicon.Classifier, timeout time.Duration, logger *log.Logger) *Engine {
	return &Engine{
		classifier: classifier,
		timeout:    timeout,
		logger:     logging.OrDiscard(logger),
	}
}

type evaluation struct {
	phase  Phase
	logger *log.Logger
}

func (ev *evaluation) enter(p Phase) {
	ev.logger.Debug("Activation phase", "from", ev.phase, "to", p)
	ev.phase = p
}

// Evaluate resolves the activations of turn against st. It never fails: lexicon errors
// and timeouts degrade to "no categories detected" and set Result.Degraded.
func (e *Engine) Evaluate(ctx context.Context, st *blend.State, turn TurnContext) Result {
	ev := &evaluation{phase: PhaseIdle, logger: e.logger}
	var res Result
	if st != nil {
		res.Version = st.Version
	}

	ev.enter(PhaseClassifying)
	raw, degraded := e.classify(ctx, turn.Text)
	res.Degraded = degraded
	for _, c := range lexicon.Normalize(raw) {
		if c.Known() {
			res.Categories = append(res.Categories, c)
		} else {
			res.Ignored = append(res.Ignored, c)
		}
	}
	if len(res.Ignored) > 0 {
		e.logger.Debug("Ignoring unknown lexicon categories", "categories", res.Ignored)
	}
	res.Tags = normalizeTags(turn.Tags)

	ev.enter(PhaseResolving)
	if st != nil {
		res.Activations = resolve(st.Guidelines, res.Tags, res.Categories)
	}

	ev.enter(PhaseActivated)
	res.Phase = ev.phase
	e.logger.Debug("Evaluated turn",
		"version", res.Version,
		"categories", len(res.Categories),
		"tags", len(res.Tags),
		"activations", len(res.Activations),
		"degraded", res.Degraded)
	return res
}

type classification struct {
	categories []lexicon.Category
	err        error
}

func (e *Engine) classify(ctx context.Context, text string) ([]lexicon.Category, bool) {
	if e.classifier == nil || strings.TrimSpace(text) == "" {
		return nil, false
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Buffered so an abandoned classifier can still finish and exit.
	done := make(chan classification, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- classification{err: errors.Errorf("classifier panic: %v", r)}
			}
		}()
		cats, err := e.classifier.Classify(ctx, text)
		done <- classification{categories: cats, err: err}
	}()

	select {
	case c := <-done:
		if c.err != nil {
			e.logger.Warn("Lexicon lookup failed, continuing without categories", "error", c.err)
			return nil, true
		}
		return c.categories, false
	case <-ctx.Done():
		e.logger.Warn("Lexicon lookup timed out, continuing without categories", "error", ctx.Err(), "timeout", e.timeout)
		return nil, true
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		k := blend.NormalizeKey(t)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// resolve walks the merged guidelines in their priority order, principles first, so the
// output order never depends on detection order.
func resolve(g blend.Guidelines, tags []string, cats []lexicon.Category) []Activation {
	wantTags := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		wantTags[t] = struct{}{}
	}
	wantCats := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		wantCats[blend.NormalizeKey(string(c))] = struct{}{}
	}

	var out []Activation
	for _, p := range g.DecisionPrinciples {
		if _, ok := wantTags[blend.NormalizeKey(p.Key)]; ok {
			out = append(out, Activation{Source: SourcePrinciple, Key: p.Key, Guidance: p.Text, SeedID: p.SeedID})
		}
	}
	for _, m := range g.ResponseModifiers {
		if _, ok := wantCats[blend.NormalizeKey(m.Key)]; ok {
			out = append(out, Activation{Source: SourceModifier, Key: m.Key, Guidance: m.Text, SeedID: m.SeedID})
		}
	}
	return out
}
