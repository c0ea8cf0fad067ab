package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver with database/sql
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const pgUniqueViolation = "23505"

// MigratePostgres applies all pending schema migrations to the database at
// connStr.
func MigratePostgres(ctx context.Context, connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("ledger: open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("ledger: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("ledger: run migrations: %w", err)
	}
	return nil
}

// PgStore persists stream states in PostgreSQL. Writers of the same stream
// are serialized by a row lock held for the duration of Update.
type PgStore struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ Store = (*PgStore)(nil)

// OpenPgStore connects to the database at connStr. The schema must already be
// migrated with MigratePostgres.
func OpenPgStore(ctx context.Context, connStr string) (*PgStore, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("ledger: parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ledger: create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: ping postgres: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

// NewPgStore wraps an existing pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Close closes the connection pool.
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

// Update implements Store.
func (s *PgStore) Update(ctx context.Context, stream solana.PublicKey, fn func(*StreamState) error) error {
	if fn == nil {
		return fmt.Errorf("%w: update func", ErrNilParam)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO stream_state (stream, progress) VALUES ($1, $2) ON CONFLICT (stream) DO NOTHING`,
		stream[:], EncodeProgress(&EpochProgress{}))
	if err != nil {
		return fmt.Errorf("ledger: create stream %s: %w", stream, err)
	}

	var progress, policy []byte
	err = tx.QueryRow(ctx,
		`SELECT progress, policy FROM stream_state WHERE stream = $1 FOR UPDATE`,
		stream[:]).Scan(&progress, &policy)
	if err != nil {
		return fmt.Errorf("ledger: lock stream %s: %w", stream, err)
	}
	working, err := decodeRow(stream, progress, policy)
	if err != nil {
		return err
	}

	if err := fn(working); err != nil {
		return err
	}

	var policyData []byte
	if working.Policy != nil {
		policyData = EncodePolicy(working.Policy)
	}
	p := &working.Progress
	_, err = tx.Exec(ctx,
		`UPDATE stream_state
		    SET progress = $2, policy = $3, last_epoch_start = $4, page_cursor = $5,
		        epoch_complete = $6, updated_at = now()
		  WHERE stream = $1`,
		stream[:], EncodeProgress(p), policyData, p.LastEpochStart, int64(p.PageCursor), p.EpochComplete)
	if err != nil {
		return fmt.Errorf("ledger: update stream %s: %w", stream, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit stream %s: %w", stream, err)
	}
	return nil
}

// Load implements Store.
func (s *PgStore) Load(ctx context.Context, stream solana.PublicKey) (*StreamState, error) {
	var progress, policy []byte
	err := s.pool.QueryRow(ctx,
		`SELECT progress, policy FROM stream_state WHERE stream = $1`,
		stream[:]).Scan(&progress, &policy)
	if errors.Is(err, pgx.ErrNoRows) {
		return &StreamState{Stream: stream}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: load stream %s: %w", stream, err)
	}
	return decodeRow(stream, progress, policy)
}

func decodeRow(stream solana.PublicKey, progressData, policyData []byte) (*StreamState, error) {
	progress, err := DecodeProgress(progressData)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode stream %s: %w", stream, err)
	}
	st := &StreamState{Stream: stream, Progress: *progress}
	if policyData != nil {
		if st.Policy, err = DecodePolicy(policyData); err != nil {
			return nil, fmt.Errorf("ledger: decode stream %s: %w", stream, err)
		}
	}
	return st, nil
}

// InitGlobalConfig implements Store.
func (s *PgStore) InitGlobalConfig(ctx context.Context, cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: global config", ErrNilParam)
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO global_config (id, creator) VALUES (1, $1)`, cfg.Creator[:])
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrGlobalConfigExists
	}
	if err != nil {
		return fmt.Errorf("ledger: insert global config: %w", err)
	}
	return nil
}

// GlobalConfig implements Store.
func (s *PgStore) GlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	var creator []byte
	err := s.pool.QueryRow(ctx, `SELECT creator FROM global_config WHERE id = 1`).Scan(&creator)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGlobalConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: load global config: %w", err)
	}
	return DecodeGlobalConfig(creator)
}
