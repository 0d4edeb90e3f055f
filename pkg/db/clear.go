// Package db provides gateway data clearing.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearData truncates all gateway tables (blog_posts, tags, categories,
// authors, dispatch_log) in dependency order.
// Schema is preserved; only data is removed. RESTART IDENTITY resets sequences.
func ClearData(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing gateway tables", clearLogPrefix))

	// Truncate in dependency order: children first, then authors.
	// CASCADE handles any other tables that reference these.
	_, err := pool.Exec(ctx, `TRUNCATE TABLE
		blog_posts,
		tags,
		categories,
		authors,
		dispatch_log
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Gateway data cleared", clearLogPrefix))
	return nil
}
