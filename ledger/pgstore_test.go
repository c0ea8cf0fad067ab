package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres runs a disposable PostgreSQL container with the ledger schema
// applied and returns its connection string.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
		tcpostgres.WithSQLDriver("pgx"),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(ctx)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, MigratePostgres(ctx, connStr))
	return connStr
}

func TestPgStore(t *testing.T) {
	connStr := startPostgres(t)

	runStoreSuite(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := OpenPgStore(ctx, connStr)
		require.NoError(t, err)
		// Every subtest shares one database; start from empty tables.
		_, err = s.pool.Exec(ctx, `TRUNCATE stream_state, global_config`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestMigratePostgres_Idempotent(t *testing.T) {
	connStr := startPostgres(t)
	require.NoError(t, MigratePostgres(context.Background(), connStr))
}
