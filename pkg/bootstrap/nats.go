// Package bootstrap wires the seed repository, lexicon and event infrastructure of the commands.
package bootstrap

import (
	"net"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/logging"
)

const natsReadyTimeout = 10 * time.Second

// StartEmbeddedNATSServer runs an in-process NATS server on 127.0.0.1. A port of -1
// picks a random free port; read it back with ClientURL.
func StartEmbeddedNATSServer(logger *log.Logger, port int) (*server.Server, error) {
	logger = logging.OrDiscard(logger)
	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	s, err := server.NewServer(opts)
	if err != nil {
		return nil, errors.Wrap(err, "create nats server")
	}

	go s.Start()

	if !s.ReadyForConnections(natsReadyTimeout) {
		s.Shutdown()
		return nil, errors.New("NATS server not ready in time")
	}

	tcpAddr, ok := s.Addr().(*net.TCPAddr)
	if !ok {
		s.Shutdown()
		return nil, errors.New("unexpected address type")
	}

	logger.Info("Started NATS server", "port", tcpAddr.Port)
	return s, nil
}

// NewNatsClient connects to url and logs connection state changes.
func NewNatsClient(url string, logger *log.Logger) (*nats.Conn, error) {
	logger = logging.OrDiscard(logger)
	nc, err := nats.Connect(url,
		nats.Name("persona-blend"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to nats at %s", url)
	}
	return nc, nil
}
