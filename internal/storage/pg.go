package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"timepay.uz/crm/internal/migrate"
)

// MigrationsTable records the applied schema files of the KV table.
const MigrationsTable = "timepay_schema_migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema files of the KV table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// PG stores keys in a single table so several workstations can share one session.
type PG struct {
	db *sql.DB
}

// OpenPG opens a pgx-backed database/sql pool.
func OpenPG(dsn string) (*PG, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)
	return &PG{db: db}, nil
}

// NewPG wraps an existing pool.
func NewPG(db *sql.DB) *PG { return &PG{db: db} }

func (s *PG) Close() error { return s.db.Close() }

// Migrator returns the schema manager for the KV table.
func (s *PG) Migrator() *migrate.Manager {
	return migrate.New(s.db, Migrations(), migrate.WithTable(MigrationsTable))
}

// Ensure applies pending schema files.
func (s *PG) Ensure(ctx context.Context) error {
	_, err := s.Migrator().Up(ctx)
	return err
}

func (s *PG) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `select value from timepay_kv where key=$1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *PG) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx, `
		insert into timepay_kv(key, value, updated_at) values ($1, $2, now())
		on conflict (key) do update set value = excluded.value, updated_at = now()
	`, key, value)
	return err
}

func (s *PG) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `delete from timepay_kv where key=$1`, k); err != nil {
			return err
		}
	}
	return tx.Commit()
}
