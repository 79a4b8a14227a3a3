package dbcheck

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("target"),
		postgres.WithUsername("target"),
		postgres.WithPassword("target"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestCheckTables(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `CREATE TABLE users (id serial PRIMARY KEY); CREATE TABLE properties (id serial PRIMARY KEY)`)
	require.NoError(t, err)
	conn.Close(ctx)

	rep, err := CheckTables(ctx, dsn, RequiredTables)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "properties"}, rep.Present)
	assert.Equal(t, []string{"finances"}, rep.Missing)
	assert.False(t, rep.OK())
}

func TestCheckTables_BadDSN(t *testing.T) {
	_, err := CheckTables(context.Background(), "postgres://nobody@127.0.0.1:1/none?connect_timeout=1", RequiredTables)
	assert.Error(t, err)
}
