package pgstore

import "embed"

// Migrations holds the goose migrations for the wallets table and its
// accounting functions. Apply them with pg.MigrateFS(ctx, pool, cfg,
// Migrations, MigrationsDir, log).
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
