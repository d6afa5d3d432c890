package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/EternisAI/persona-blend/pkg/logging"
	"github.com/EternisAI/persona-blend/pkg/seed"
)

// EventType names a session lifecycle change. It is also the last token of the NATS subject.
type EventType string

const (
	EventCreated         EventType = "created"
	EventRebalanced      EventType = "rebalanced"
	EventOverridden      EventType = "overridden"
	EventOverrideCleared EventType = "override_cleared"
	EventRemoved         EventType = "removed"
	EventExpired         EventType = "expired"
)

type Event struct {
	Type      EventType        `json:"type"`
	SessionID string           `json:"session_id"`
	Version   uint64           `json:"version"`
	Mix       []seed.Component `json:"mix"`
	Timestamp int64            `json:"timestamp"`
}

// Publisher receives session events. Implementations must not block for long and
// must not fail the caller; delivery problems are theirs to log.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	f(ctx, event)
}

// NatsPublisher sends events as JSON on "<prefix>.<type>".
type NatsPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *log.Logger
}

func NewNatsPublisher(nc *nats.Conn, prefix string, logger *log.Logger) *NatsPublisher {
	return &NatsPublisher{
		nc:     nc,
		prefix: prefix,
		logger: logging.OrDiscard(logger),
	}
}

func (p *NatsPublisher) Subject(t EventType) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

func (p *NatsPublisher) Publish(_ context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal session event", "type", event.Type, "error", err)
		return
	}

	subject := p.Subject(event.Type)
	if err := p.nc.Publish(subject, payload); err != nil {
		p.logger.Warn("Failed to publish session event", "subject", subject, "session_id", event.SessionID, "error", err)
		return
	}
	p.logger.Debug("Published session event", "subject", subject, "session_id", event.SessionID, "version", event.Version)
}

func newEvent(t EventType, id string, version uint64, mix []seed.Component) Event {
	return Event{
		Type:      t,
		SessionID: id,
		Version:   version,
		Mix:       mix,
		Timestamp: time.Now().Unix(),
	}
}
