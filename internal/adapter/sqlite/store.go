// Package sqlite archives normalized datasets in a local SQLite file so the
// latest dataset per profile can be served without a Kafka consumer.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		point_start INTEGER NOT NULL,
		built_at TEXT NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_datasets_profile_built ON datasets(profile, built_at);
`

// Store is a dataset archive. Payloads are the serialized dataset JSON
// compressed with zstd. It implements pipeline.BatchLoader.
type Store struct {
	db      *sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *slog.Logger
}

// Open opens (or creates) the archive at path and ensures the schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset archive: %w", err)
	}
	// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating datasets table: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	s := &Store{db: db, encoder: enc, decoder: dec, logger: logger}

	n, err := s.Count(context.Background())
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info("dataset archive opened", "path", path, "datasets", n)
	return s, nil
}

// LoadBatch upserts every event in one transaction. Redelivered loads map to
// the same dataset ID and overwrite the earlier row.
func (s *Store) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO datasets (id, profile, point_start, built_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile = excluded.profile,
			point_start = excluded.point_start,
			built_at = excluded.built_at,
			payload = excluded.payload`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		ds, err := domain.DecodeDataset(ev.Value)
		if err != nil {
			return fmt.Errorf("archive %s: %w", ev.Key, err)
		}
		payload := s.encoder.EncodeAll(ev.Value, make([]byte, 0, len(ev.Value)/4))
		builtAt := ds.BuiltAt.UTC().Format(time.RFC3339Nano)
		if _, err := stmt.ExecContext(ctx, ds.ID, ds.Profile, int64(ds.PointStart), builtAt, payload); err != nil {
			return fmt.Errorf("upsert dataset %s: %w", ds.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	s.logger.Debug("datasets archived", "count", len(events))
	return nil
}

// Latest returns the most recently built dataset for profile.
func (s *Store) Latest(ctx context.Context, profile string) (domain.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM datasets WHERE profile = ? ORDER BY built_at DESC, point_start DESC LIMIT 1`, profile)
	return s.scan(row)
}

// Get returns the dataset with the given ID.
func (s *Store) Get(ctx context.Context, id string) (domain.Dataset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM datasets WHERE id = ?`, id)
	return s.scan(row)
}

// Count returns the number of archived datasets.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count datasets: %w", err)
	}
	return n, nil
}

func (s *Store) scan(row *sql.Row) (domain.Dataset, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Dataset{}, domain.ErrNotFound
		}
		return domain.Dataset{}, fmt.Errorf("query dataset: %w", err)
	}
	raw, err := s.decoder.DecodeAll(payload, nil)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("decompress dataset: %w", err)
	}
	return domain.DecodeDataset(raw)
}

// CheckReadiness reports whether the archive is reachable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("dataset archive: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.decoder.Close()
	_ = s.encoder.Close()
	return s.db.Close()
}
