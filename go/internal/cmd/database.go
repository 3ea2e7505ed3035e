package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/tempo/go/internal/database"
	"github.com/mcdev12/tempo/go/internal/dbconfig"
)

// setupDatabase opens the pool described by the DB_* environment and optionally migrates it
func setupDatabase(ctx context.Context, migrate bool) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, dbconfig.NewConfigFromEnv())
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return pool, nil
}

// MigrateCmd applies pending migrations and exits
type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	pool, err := setupDatabase(ctx, true)
	if err != nil {
		return err
	}
	pool.Close()
	return nil
}
