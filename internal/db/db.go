package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the database and applies migrations.
func Connect(ctx context.Context, dsn string, log *slog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database migrations applied")
	return db, nil
}

// Migrate creates the schema. Every statement is idempotent.
//
// Direct conversations carry a canonical pair_key; the partial unique index on
// it is what makes concurrent find-or-create calls converge on one row.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
            id UUID PRIMARY KEY,
            participants TEXT[] NOT NULL,
            is_group BOOLEAN NOT NULL DEFAULT FALSE,
            name TEXT,
            created_by TEXT,
            pair_key TEXT,
            last_message_id TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (cardinality(participants) >= 2),
            CHECK (is_group OR (pair_key IS NOT NULL AND cardinality(participants) = 2)),
            CHECK (NOT is_group OR (name IS NOT NULL AND name <> ''))
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS conversations_direct_pair_key
            ON conversations (pair_key) WHERE NOT is_group;`,
		`CREATE INDEX IF NOT EXISTS conversations_participants_idx
            ON conversations USING GIN (participants);`,
		`CREATE INDEX IF NOT EXISTS conversations_updated_at_idx
            ON conversations (updated_at DESC);`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            room UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender TEXT NOT NULL,
            text TEXT NOT NULL,
            reply_to TEXT REFERENCES messages(id) ON DELETE SET NULL,
            read_by TEXT[] NOT NULL DEFAULT '{}',
            hidden_for TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_room_created_at_idx
            ON messages (room, created_at, id);`,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
