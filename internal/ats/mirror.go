package ats

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// MirrorOptions configures a read-only connection to an ATS reporting mirror.
type MirrorOptions struct {
	Driver       string
	Source       string
	MaxOpenConns int
	QueryTimeout time.Duration
}

// OpenMirror opens and pings a mirror database. The pgx driver is used
// unless another one is named.
func OpenMirror(ctx context.Context, opts MirrorOptions) (*sqlx.DB, error) {
	driver := opts.Driver
	if driver == "" {
		driver = "pgx"
	}
	db, err := sqlx.Open(driver, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mirror: %w", err)
	}
	return db, nil
}

// QueryContext bounds a single mirror query.
func QueryContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
