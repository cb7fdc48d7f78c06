// Package pg bootstraps the PostgreSQL side of the wallet service: a pgx
// connection pool with startup retries, goose migrations read from an
// embedded filesystem, a health probe and helpers that classify pgx errors.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.MigrateFS(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
//		return err
//	}
//
// Config fields are read from PG_* environment variables via pkg/config.
package pg
