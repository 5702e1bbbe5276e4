package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/resources"
)

type sqliteClient struct {
	db       *sqlx.DB
	defaults *db.ChatPolicy
	locks    *keyedMutex
	now      func() time.Time
}

func NewSQLiteClient(ctx context.Context, dir, dbName string, defaults *db.ChatPolicy) (*sqliteClient, error) {
	dbx, err := sqlx.Open("sqlite", filepath.Join(dir, dbName))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	dbx.SetMaxOpenConns(42)

	if err := dbx.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	if _, _, err := migrate.PlanMigration(dbx.DB, "sqlite3", migrationsSource, migrate.Up, 0); err != nil {
		return nil, fmt.Errorf("plan migrations: %w", err)
	}

	n, err := migrate.Exec(dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if n > 0 {
		log.Infof("applied %d migrations!", n)
	}

	if defaults == nil {
		defaults = db.DefaultChatPolicy(0)
	}
	return &sqliteClient{
		db:       dbx,
		defaults: defaults,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}, nil
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}
