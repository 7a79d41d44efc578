package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/revenue-engine/store/postgres"
	"github.com/warp/revenue-engine/store/storetest"
)

func TestDialect_UniqueViolation(t *testing.T) {
	assert.True(t, postgres.Dialect.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, postgres.Dialect.IsUniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, postgres.Dialect.IsUniqueViolation(assert.AnError))
}

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("REVENUE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REVENUE_TEST_POSTGRES_DSN not set")
	}

	store, err := postgres.New(context.Background(), dsn)
	require.NoError(t, err)
	defer store.Close()

	storetest.Run(t, func(t *testing.T) storetest.Store {
		require.NoError(t, store.Reset(context.Background()))
		return store
	})
}
