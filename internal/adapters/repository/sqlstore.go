package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/elobattle/internal/domain/model"
	"github.com/okian/elobattle/pkg/logger"
	"github.com/okian/elobattle/pkg/metrics"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultBatchSize = 500

var itemColumns = []string{"id", "title", "genres", "rating", "comparisons", "wins", "losses", "draws"} //nolint:gochecknoglobals // column order shared by reads and writes

const itemUpsertSuffix = `ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	genres = excluded.genres,
	rating = excluded.rating,
	comparisons = excluded.comparisons,
	wins = excluded.wins,
	losses = excluded.losses,
	draws = excluded.draws`

// The DDL sticks to types both sqlite and postgres understand.
var schema = []string{ //nolint:gochecknoglobals // static DDL
	`CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		genres TEXT NOT NULL DEFAULT '[]',
		rating DOUBLE PRECISION NOT NULL,
		comparisons BIGINT NOT NULL DEFAULT 0,
		wins BIGINT NOT NULL DEFAULT 0,
		losses BIGINT NOT NULL DEFAULT 0,
		draws BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS comparisons (
		matchup_id TEXT PRIMARY KEY,
		item_a TEXT NOT NULL,
		item_b TEXT NOT NULL,
		outcome TEXT NOT NULL,
		score_a DOUBLE PRECISION NOT NULL,
		recorded_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS comparisons_recorded_at ON comparisons (recorded_at)`,
}

// SQLStore implements Store on database/sql. Queries are built with
// squirrel so the same code serves sqlite (? placeholders) and postgres
// ($n placeholders).
type SQLStore struct {
	db        *sql.DB
	driver    string
	sb        sq.StatementBuilderType
	batchSize int
	logger    logger.Logger
}

// Open connects to the database, applies driver pragmas and creates the
// schema if it does not exist.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		driver:    driver,
		batchSize: defaultBatchSize,
		logger:    logger.Get().Named("store"),
	}

	switch driver {
	case DriverSQLite:
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	case DriverPostgres:
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	s.db = db

	if driver == DriverSQLite {
		// One connection keeps pragmas in effect and serializes writers.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("storage: %s: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: create schema: %w", err)
		}
	}

	s.logger.Info(ctx, "catalog store ready", logger.String("driver", driver))
	return s, nil
}

// Driver returns the database driver name.
func (s *SQLStore) Driver() string { return s.driver }

// LoadCatalog implements Store.
func (s *SQLStore) LoadCatalog(ctx context.Context) (model.Catalog, error) {
	defer observe("load_catalog", time.Now())

	query, args, err := s.sb.Select(itemColumns...).From("items").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("storage: build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: load catalog: %w", err)
	}
	defer rows.Close()

	catalog := make(model.Catalog)
	for rows.Next() {
		var (
			it     model.Item
			genres string
		)
		if err := rows.Scan(&it.ID, &it.Title, &genres, &it.Rating, &it.Comparisons, &it.Wins, &it.Losses, &it.Draws); err != nil {
			return nil, fmt.Errorf("storage: scan item: %w", err)
		}
		if genres != "" {
			if err := json.Unmarshal([]byte(genres), &it.Genres); err != nil {
				return nil, fmt.Errorf("storage: decode genres of %s: %w", it.ID, err)
			}
		}
		catalog[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate items: %w", err)
	}
	return catalog, nil
}

// SaveCatalog implements Store. Items are written in batches inside one
// transaction.
func (s *SQLStore) SaveCatalog(ctx context.Context, catalog model.Catalog) error {
	defer observe("save_catalog", time.Now())

	if len(catalog) == 0 {
		return nil
	}

	items := make([]model.Item, 0, len(catalog))
	for _, it := range catalog {
		items = append(items, it)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(items); start += s.batchSize {
			end := min(start+s.batchSize, len(items))
			if err := s.upsertItems(ctx, tx, items[start:end]...); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordRound implements Store. A comparison whose matchup ID is already in
// the log is rejected with ErrDuplicateRound and nothing is written.
func (s *SQLStore) RecordRound(ctx context.Context, a, b model.Item, c model.Comparison) error {
	defer observe("record_round", time.Now())

	return s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sb.Insert("comparisons").
			Columns("matchup_id", "item_a", "item_b", "outcome", "score_a", "recorded_at").
			Values(c.MatchupID, c.ItemA, c.ItemB, c.Outcome, c.ScoreA, c.RecordedAt.UTC().UnixMicro()).
			Suffix("ON CONFLICT (matchup_id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("storage: build comparison insert: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("storage: append comparison: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateRound, c.MatchupID)
		}

		return s.upsertItems(ctx, tx, a, b)
	})
}

// CountComparisons implements Store.
func (s *SQLStore) CountComparisons(ctx context.Context) (int, error) {
	defer observe("count_comparisons", time.Now())

	query, args, err := s.sb.Select("COUNT(*)").From("comparisons").ToSql()
	if err != nil {
		return 0, fmt.Errorf("storage: build count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count comparisons: %w", err)
	}
	return n, nil
}

// Reset implements Store.
func (s *SQLStore) Reset(ctx context.Context, baseline float64) error {
	defer observe("reset", time.Now())

	return s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sb.Update("items").
			Set("rating", baseline).
			Set("comparisons", 0).
			Set("wins", 0).
			Set("losses", 0).
			Set("draws", 0).
			ToSql()
		if err != nil {
			return fmt.Errorf("storage: build reset: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("storage: reset items: %w", err)
		}

		query, args, err = s.sb.Delete("comparisons").ToSql()
		if err != nil {
			return fmt.Errorf("storage: build clear log: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("storage: clear outcome log: %w", err)
		}
		return nil
	})
}

// Close implements Store.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLStore) upsertItems(ctx context.Context, tx *sql.Tx, items ...model.Item) error {
	ins := s.sb.Insert("items").Columns(itemColumns...)
	for _, it := range items {
		genres, err := json.Marshal(nonNil(it.Genres))
		if err != nil {
			return fmt.Errorf("storage: encode genres of %s: %w", it.ID, err)
		}
		ins = ins.Values(it.ID, it.Title, string(genres), it.Rating, it.Comparisons, it.Wins, it.Losses, it.Draws)
	}

	query, args, err := ins.Suffix(itemUpsertSuffix).ToSql()
	if err != nil {
		return fmt.Errorf("storage: build item upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("storage: upsert items: %w", err)
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	if s.db == nil {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error(ctx, "rollback failed", logger.Error(rbErr))
			}
			metrics.RecordErrorByComponent("store", "tx_failed")
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
