package seed

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/EternisAI/persona-blend/pkg/logging"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store persists seed documents in SQLite. It implements Repository; callers that need
// the load-once semantics of the engine take a Snapshot of it at startup.
type Store struct {
	db     *sqlx.DB
	logger *log.Logger
}

var _ Repository = (*Store)(nil)

type seedRow struct {
	ID       string `db:"id"`
	Document string `db:"document"`
}

// NewStore opens (or creates) the SQLite database at dbPath and migrates it.
func NewStore(ctx context.Context, dbPath string, logger *log.Logger) (*Store, error) {
	logger = logging.OrDiscard(logger)

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to SQLite")
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	if err := runMigrations(db.DB, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

func runMigrations(db *sql.DB, logger *log.Logger) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "failed to set goose dialect")
	}

	logger.Debug("Running seed store migrations")
	if err := goose.Up(db, "migrations"); err != nil {
		logger.Error("Seed store migrations failed", "error", err)
		return errors.Wrap(err, "migrate seed store")
	}
	return nil
}

// Put inserts or replaces a seed.
func (s *Store) Put(ctx context.Context, sd *Seed) error {
	return s.Import(ctx, sd)
}

// Import upserts all seeds in one transaction; nothing is written if any seed is invalid.
func (s *Store) Import(ctx context.Context, seeds ...*Seed) error {
	docs := make([]seedRow, 0, len(seeds))
	for _, sd := range seeds {
		if err := Validate(sd); err != nil {
			return err
		}
		raw, err := json.Marshal(sd)
		if err != nil {
			return errors.Wrapf(err, "encode seed %q", sd.ID)
		}
		docs = append(docs, seedRow{ID: sd.ID, Document: string(raw)})
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin import")
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range docs {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO seeds (id, document) VALUES (:id, :document)
			ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP
		`, row)
		if err != nil {
			return errors.Wrapf(err, "upsert seed %q", row.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit import")
	}
	s.logger.Info("Imported seeds", "count", len(docs))
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Seed, error) {
	var row seedRow
	err := s.db.GetContext(ctx, &row, `SELECT id, document FROM seeds WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &SeedNotFoundError{ID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get seed %q", id)
	}
	return decodeRow(row)
}

func (s *Store) LoadAll(ctx context.Context) (map[string]*Seed, error) {
	var rows []seedRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, document FROM seeds ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "list seeds")
	}
	out := make(map[string]*Seed, len(rows))
	for _, row := range rows {
		sd, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out[sd.ID] = sd
	}
	return out, nil
}

// Delete removes a seed. Deleting an unknown id returns SeedNotFoundError.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM seeds WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete seed %q", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &SeedNotFoundError{ID: id}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func decodeRow(row seedRow) (*Seed, error) {
	sd, err := Decode(bytes.NewReader([]byte(row.Document)))
	if err != nil {
		return nil, errors.Wrapf(err, "stored seed %q", row.ID)
	}
	if sd.ID != row.ID {
		return nil, errors.Errorf("stored seed %q carries seed_id %q", row.ID, sd.ID)
	}
	return sd, nil
}
