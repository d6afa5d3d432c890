package bootstrap

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/EternisAI/persona-blend/pkg/config"
	"github.com/EternisAI/persona-blend/pkg/logging"
	"github.com/EternisAI/persona-blend/pkg/seed"
)

type RepositoryOptions struct {
	// SeedFiles are extra seed documents served next to the foundation seeds.
	SeedFiles []string
	// Import writes the foundation seeds into the SQLite store. Only valid with
	// SEED_SOURCE=sqlite.
	Import bool
}

// BuildRepository loads every configured seed into memory. The SQLite store is only
// read once at startup and closed before returning.
func BuildRepository(ctx context.Context, cfg *config.Config, opts RepositoryOptions, factory *logging.Factory) (*seed.MemoryRepository, error) {
	extra, err := ReadSeedFiles(opts.SeedFiles)
	if err != nil {
		return nil, err
	}

	switch cfg.SeedSource {
	case config.SeedSourceSQLite:
		return loadStore(ctx, cfg.SeedDBPath, opts.Import, extra, factory)

	default:
		if opts.Import {
			return nil, errors.Errorf("importing seeds requires SEED_SOURCE=%s", config.SeedSourceSQLite)
		}
		foundation, err := seed.FoundationSeeds()
		if err != nil {
			return nil, err
		}
		return seed.NewMemoryRepository(append(foundation, extra...)...)
	}
}

func loadStore(ctx context.Context, dbPath string, importFoundation bool, extra []*seed.Seed, factory *logging.Factory) (*seed.MemoryRepository, error) {
	logger := factory.ForRepository("seed-store")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create seed store directory")
	}
	store, err := seed.NewStore(ctx, dbPath, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing seed store", "error", err)
		}
	}()

	if importFoundation {
		foundation, err := seed.FoundationSeeds()
		if err != nil {
			return nil, err
		}
		extra = append(foundation, extra...)
	}
	if err := store.Import(ctx, extra...); err != nil {
		return nil, err
	}

	repo, err := seed.Snapshot(ctx, store)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded seeds from store", "path", dbPath, "count", repo.Len())
	return repo, nil
}

func ReadSeedFiles(paths []string) ([]*seed.Seed, error) {
	var out []*seed.Seed
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open seed file")
		}
		s, err := seed.Decode(f)
		_ = f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "seed file %s", path)
		}
		out = append(out, s)
	}
	return out, nil
}
