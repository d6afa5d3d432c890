package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/api"
	"github.com/EternisAI/persona-blend/pkg/bootstrap"
	"github.com/EternisAI/persona-blend/pkg/config"
	"github.com/EternisAI/persona-blend/pkg/logging"
	"github.com/EternisAI/persona-blend/pkg/session"
)

const shutdownTimeout = 30 * time.Second

type options struct {
	Port         string   `short:"p" long:"port" description:"HTTP port, overrides HTTP_PORT"`
	SeedFiles    []string `long:"seed-file" value-name:"FILE" description:"Extra seed document to serve, repeatable"`
	Import       bool     `long:"import" description:"Import the foundation seeds into the SQLite seed store (SEED_SOURCE=sqlite only)"`
	EmbeddedNATS bool     `long:"embedded-nats" description:"Publish session events to an in-process NATS server"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Serve persona blends and sessions over HTTP"
	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Error("blendd failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadConfig(true)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if opts.Port != "" {
		cfg.HTTPPort = opts.Port
	}

	base := logging.NewLogger(cfg.LogLevel)
	factory := logging.NewFactoryWithConfig(base, cfg.ComponentLogLevels)
	logger := factory.ForComponent("blendd")

	repo, err := bootstrap.BuildRepository(ctx, cfg, bootstrap.RepositoryOptions{SeedFiles: opts.SeedFiles, Import: opts.Import}, factory)
	if err != nil {
		return err
	}

	classifier, err := bootstrap.BuildClassifier(cfg, factory)
	if err != nil {
		return err
	}

	publisher, closeEvents, err := bootstrap.BuildPublisher(cfg, opts.EmbeddedNATS, factory)
	if err != nil {
		return err
	}
	defer closeEvents()

	manager := session.NewManager(repo, cfg.SessionIdleTTL, session.Options{
		Classifier:     classifier,
		LexiconTimeout: cfg.LexiconTimeout,
		Logger:         factory.ForSession("session"),
		Publisher:      publisher,
	})
	go manager.Run(ctx, cfg.SessionSweep)

	server := api.NewServer(manager, repo, api.Options{
		SweepInterval: cfg.SessionSweep,
		Logger:        factory.ForComponent("api"),
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", "http://localhost:"+cfg.HTTPPort, "seeds", repo.Len())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- errors.Wrap(err, "http server")
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	return nil
}
