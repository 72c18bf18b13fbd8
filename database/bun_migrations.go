package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type migration struct {
	version string
	name    string
	up      func(context.Context, *bun.DB) error
}

var migrations = []migration{
	{"001", "create_kv_items_table", init001CreateKVItemsTable},
	{"002", "create_jobs_table", init002CreateJobsTable},
}

// runMigrations runs all Bun migrations that have not been applied yet
func (b *BunDB) runMigrations(ctx context.Context) error {
	_, err := b.db.NewCreateTable().
		Model((*bunMigration)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []bunMigration
	if err := b.db.NewSelect().Model(&applied).Scan(ctx); err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}
	appliedMap := make(map[string]bool, len(applied))
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, b.db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		_, err = b.db.NewInsert().
			Model(&bunMigration{Version: m.version, Name: m.name, AppliedAt: time.Now()}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: key-value items holding resume records
func init001CreateKVItemsTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunKVItem)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create kv_items table: %w", err)
	}
	return nil
}

// Migration 002: jobs tracking the upload and analysis pipeline
func init002CreateJobsTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunJob)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}

	indexes := []struct {
		name   string
		column string
	}{
		{"idx_jobs_status", "status"},
		{"idx_jobs_type", "type"},
		{"idx_jobs_created_at", "created_at"},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model((*BunJob)(nil)).
			Index(idx.name).
			IfNotExists().
			Column(idx.column).
			Exec(ctx)
		if err != nil {
			Logger.Warn("Could not create index", "index", idx.name, "error", err)
		}
	}
	return nil
}
