package database

import (
	"context"
	"testing"
	"time"

	"vescollector/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresJournal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ves"),
		postgres.WithUsername("collector"),
		postgres.WithPassword("collector"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	bm, err := Open(models.Journal{
		Enabled:         true,
		Driver:          DriverPostgres,
		DSN:             dsn,
		BatchSize:       4,
		FlushIntervalMs: 50,
	}, newTestLogger(t))
	require.NoError(t, err)

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 10; i++ {
		require.NoError(t, bm.AddOperation(newRecord(base.Add(time.Duration(i)*time.Second))))
	}
	bm.Stop()

	records, err := bm.ListEvents(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, records, 10)
	assert.True(t, records[0].ReceivedAt.After(records[9].ReceivedAt))

	require.NoError(t, bm.DB.Close())
}
