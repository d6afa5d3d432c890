package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/activation"
	"github.com/EternisAI/persona-blend/pkg/blend"
	"github.com/EternisAI/persona-blend/pkg/bootstrap"
	"github.com/EternisAI/persona-blend/pkg/config"
	"github.com/EternisAI/persona-blend/pkg/logging"
	"github.com/EternisAI/persona-blend/pkg/prompts"
	"github.com/EternisAI/persona-blend/pkg/seed"
	"github.com/EternisAI/persona-blend/pkg/session"
)

type options struct {
	Mix           []string `short:"m" long:"mix" value-name:"ID=WEIGHT" description:"Seed and weight to blend, repeatable"`
	Text          string   `short:"t" long:"text" description:"Turn text to evaluate"`
	Tags          []string `long:"tag" description:"Decision-principle tag for the turn, repeatable"`
	Override      string   `long:"override" value-name:"FILE" description:"JSON override applied to the blend"`
	SeedFiles     []string `long:"seed-file" value-name:"FILE" description:"Extra seed document to make available, repeatable"`
	Materialize   bool     `long:"materialize" description:"Include the blend as a standalone seed"`
	MaterializeID string   `long:"id" description:"Identifier for the materialized seed"`
	Goal          string   `long:"goal" description:"Goal statement for the materialized seed instead of the derived one"`
	Prompt        bool     `long:"prompt" description:"Include the rendered persona system prompt"`
	List          bool     `long:"list" description:"List available seeds and exit"`
	Import        bool     `long:"import" description:"Import the foundation seeds into the SQLite seed store (SEED_SOURCE=sqlite only)"`
	EmbeddedNATS  bool     `long:"embedded-nats" description:"Publish session events to an in-process NATS server"`
}

type output struct {
	SessionID string            `json:"session_id"`
	State     *blend.State      `json:"state"`
	Result    activation.Result `json:"result"`
	Seed      *seed.Seed        `json:"seed,omitempty"`
	Prompt    string            `json:"prompt,omitempty"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Blend personality seeds and evaluate a turn"
	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Error("blendctl failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadConfig(false)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	base := logging.NewLogger(cfg.LogLevel)
	base.SetOutput(os.Stderr)
	factory := logging.NewFactoryWithConfig(base, cfg.ComponentLogLevels)
	logger := factory.ForComponent("blendctl")

	repo, err := bootstrap.BuildRepository(ctx, cfg, bootstrap.RepositoryOptions{SeedFiles: opts.SeedFiles, Import: opts.Import}, factory)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if opts.List {
		return enc.Encode(listSeeds(ctx, repo))
	}

	weights, err := parseMix(opts.Mix)
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

	s, err := manager.Create(ctx, weights)
	if err != nil {
		return errors.Wrap(err, "create session")
	}
	defer manager.Remove(ctx, s.ID())

	if opts.Override != "" {
		o, err := readOverride(opts.Override)
		if err != nil {
			return err
		}
		if _, err := s.ApplyOverride(ctx, o); err != nil {
			return errors.Wrap(err, "apply override")
		}
	}

	out := output{SessionID: s.ID()}
	out.Result = s.Evaluate(ctx, activation.TurnContext{Text: opts.Text, Tags: opts.Tags})
	out.State = s.CurrentState()
	logger.Info("Turn evaluated", "version", out.Result.Version, "activations", len(out.Result.Activations), "degraded", out.Result.Degraded)

	if opts.Materialize {
		out.Seed = blend.Materialize(out.State, blend.MaterializeOptions{ID: opts.MaterializeID, Goal: opts.Goal})
	}
	if opts.Prompt {
		if out.Prompt, err = prompts.BuildPersonaSystemPrompt(out.State, out.Result); err != nil {
			return err
		}
	}

	return enc.Encode(out)
}
