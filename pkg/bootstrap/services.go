package bootstrap

import (
	"os"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/config"
	"github.com/EternisAI/persona-blend/pkg/lexicon"
	"github.com/EternisAI/persona-blend/pkg/logging"
	"github.com/EternisAI/persona-blend/pkg/session"
)

func BuildClassifier(cfg *config.Config, factory *logging.Factory) (lexicon.Classifier, error) {
	logger := factory.ForLexicon(cfg.LexiconBackend)

	switch cfg.LexiconBackend {
	case config.LexiconBackendLLM:
		return lexicon.NewLLM(logger, cfg.CompletionsAPIKey, cfg.CompletionsAPIURL, cfg.LexiconModel), nil
	default:
		if cfg.LexiconPath == "" {
			return lexicon.DefaultKeyword(logger)
		}
		f, err := os.Open(cfg.LexiconPath)
		if err != nil {
			return nil, errors.Wrap(err, "open lexicon")
		}
		defer f.Close() //nolint:errcheck
		return lexicon.LoadKeyword(f, logger)
	}
}

// BuildPublisher returns a nil publisher when no NATS server is configured. With
// embedded set it starts an in-process server and publishes there.
func BuildPublisher(cfg *config.Config, embedded bool, factory *logging.Factory) (session.Publisher, func(), error) {
	logger := factory.ForNATS("events")
	url := cfg.NatsURL
	cleanup := []func(){}
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	if embedded {
		srv, err := StartEmbeddedNATSServer(logger, -1)
		if err != nil {
			return nil, nil, err
		}
		cleanup = append(cleanup, srv.Shutdown)
		url = srv.ClientURL()
	}
	if url == "" {
		return nil, closeAll, nil
	}

	nc, err := NewNatsClient(url, logger)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	cleanup = append(cleanup, func() { drain(nc) })
	return session.NewNatsPublisher(nc, cfg.EventSubjectPrefix, logger), closeAll, nil
}

func drain(nc *nats.Conn) {
	if err := nc.Drain(); err != nil {
		nc.Close()
	}
}
