package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/pg"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
	"github.com/dmitrymomot/quotakit/pkg/wallet/pgstore"
	"github.com/dmitrymomot/quotakit/pkg/wallet/storetest"
)

func TestStore_Contract(t *testing.T) {
	url := os.Getenv("TEST_PG_CONN_URL")
	if url == "" {
		t.Skip("TEST_PG_CONN_URL not set")
	}

	ctx := context.Background()
	cfg := pg.Config{ConnectionString: url, MaxConns: 10, MinConns: 1, RetryAttempts: 1, MigrationsTable: "wallet_schema_migrations"}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.MigrateFS(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, logger.Discard()))

	storetest.Run(t, func(t *testing.T) wallet.Store {
		return pgstore.New(pool)
	})
}

func TestNew_PanicsOnNilDB(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() { pgstore.New(nil) })
}
