package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"quitpath/internal/config"
)

// schema is applied on startup. The client core only owns push device tokens
// and the comment notification inbox.
const schema = `
CREATE TABLE IF NOT EXISTS device_tokens (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	token      TEXT        NOT NULL UNIQUE,
	platform   TEXT        NOT NULL DEFAULT 'expo',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_device_tokens_user_id ON device_tokens (user_id);

CREATE TABLE IF NOT EXISTS notifications (
	id                BIGSERIAL PRIMARY KEY,
	event_id          UUID        NOT NULL UNIQUE,
	user_id           TEXT        NOT NULL,
	actor_id          TEXT        NOT NULL,
	actor_name        TEXT        NOT NULL DEFAULT '',
	type              TEXT        NOT NULL,
	post_id           TEXT        NOT NULL,
	comment_id        TEXT        NOT NULL,
	parent_comment_id TEXT,
	preview           TEXT        NOT NULL DEFAULT '',
	is_read           BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC);
`

func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate creates the tables the process needs if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
