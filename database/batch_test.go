package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vescollector/internal/logger"
	"vescollector/internal/models"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *scribe.Scribe {
	t.Helper()
	log, err := logger.GetLoggerContext(models.LogDescriptor{
		Name: "journal-test",
		Path: filepath.Join(t.TempDir(), "test.log"),
		File: true,
	})
	require.NoError(t, err)
	return log
}

func newRecord(at time.Time) *EventRecord {
	return &EventRecord{
		UUID:           uuid.New().String(),
		TraceID:        uuid.New().String(),
		ReceivedAt:     at,
		Method:         "POST",
		Path:           "/eventListener/v5",
		RemoteAddr:     faker.IPv4() + ":40000",
		Authenticated:  true,
		Validation:     "valid",
		RequestBody:    fmt.Sprintf(`{"event":{"commonEventHeader":{"sourceName":%q}}}`, faker.Word()),
		ResponseStatus: 202,
	}
}

func openSQLite(t *testing.T) *BatchManager {
	t.Helper()
	bm, err := Open(models.Journal{
		Enabled:         true,
		Driver:          DriverSQLite,
		DSN:             filepath.Join(t.TempDir(), "journal.db"),
		BatchSize:       5,
		FlushIntervalMs: 50,
		MaxWorkers:      2,
	}, newTestLogger(t))
	require.NoError(t, err)
	return bm
}

func TestOpenDisabled(t *testing.T) {
	bm, err := Open(models.Journal{Enabled: false}, newTestLogger(t))
	assert.Nil(t, bm)
	assert.True(t, errors.Is(err, ErrJournalDisabled))

	_, err = bm.ListEvents(context.Background(), 10)
	assert.ErrorIs(t, err, ErrJournalDisabled)
	assert.False(t, bm.IsRunning())
	assert.NoError(t, bm.Close())
}

func TestBatchManagerWritesAllRecordsOnStop(t *testing.T) {
	bm := openSQLite(t)
	require.True(t, bm.IsRunning())

	base := time.Now().Add(-time.Hour)
	const total = 23
	for i := 0; i < total; i++ {
		require.NoError(t, bm.AddOperation(newRecord(base.Add(time.Duration(i)*time.Second))))
	}

	bm.Stop()
	assert.False(t, bm.IsRunning())

	records, err := bm.ListEvents(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, records, total)

	stats := bm.GetStats()
	assert.Equal(t, int64(total), stats["total_processed"])
	assert.Equal(t, int64(0), stats["total_errors"])
	assert.Equal(t, false, stats["queue_running"])
	assert.Equal(t, 0, stats["input_queue_size"])
	assert.Equal(t, 0, stats["batch_queue_size"])

	require.NoError(t, bm.DB.Close())
}

func TestBatchManagerAutoFlush(t *testing.T) {
	bm := openSQLite(t)
	defer bm.Close()

	require.NoError(t, bm.AddOperation(newRecord(time.Now())))

	// Below the batch size, so only the flush ticker writes it.
	assert.Eventually(t, func() bool {
		records, err := bm.ListEvents(context.Background(), 10)
		return err == nil && len(records) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestBatchManagerSyncFallbackAfterStop(t *testing.T) {
	bm := openSQLite(t)
	bm.Stop()

	record := newRecord(time.Now())
	require.NoError(t, bm.AddOperation(record))

	records, err := bm.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.UUID, records[0].UUID)

	require.NoError(t, bm.DB.Close())
}

func TestListEventsNewestFirst(t *testing.T) {
	bm := openSQLite(t)
	bm.Stop()
	defer bm.DB.Close()

	base := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	first := newRecord(base)
	second := newRecord(base.Add(time.Second))
	second.Authenticated = false
	second.Validation = "data_invalid"
	second.ValidationReason = "missing properties: 'event'"
	second.ResponseStatus = 401
	second.ResponseBody = `{"requestError":{}}`

	ctx := context.Background()
	require.NoError(t, InsertEvent(ctx, bm.DB, bm.Driver, first))
	require.NoError(t, InsertEvent(ctx, bm.DB, bm.Driver, second))

	records, err := bm.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	got := records[0]
	assert.Equal(t, second.UUID, got.UUID)
	assert.Equal(t, second.TraceID, got.TraceID)
	assert.False(t, got.Authenticated)
	assert.Equal(t, "data_invalid", got.Validation)
	assert.Equal(t, second.ValidationReason, got.ValidationReason)
	assert.Equal(t, 401, got.ResponseStatus)
	assert.Equal(t, second.ResponseBody, got.ResponseBody)
	assert.True(t, second.ReceivedAt.Equal(got.ReceivedAt))

	assert.Equal(t, first.UUID, records[1].UUID)
	assert.True(t, records[1].Authenticated)

	limited, err := bm.ListEvents(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestBatchManagerConcurrentProducers(t *testing.T) {
	bm := openSQLite(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				assert.NoError(t, bm.AddOperation(newRecord(time.Now().Add(time.Duration(g*10+i)*time.Millisecond))))
			}
		}(g)
	}
	wg.Wait()
	bm.Stop()

	records, err := bm.ListEvents(context.Background(), 1000)
	require.NoError(t, err)
	assert.Len(t, records, 80)

	require.NoError(t, bm.DB.Close())
}
