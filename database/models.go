package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"vescollector/database/internal"

	"github.com/SOLUCIONESSYCOM/scribe"
)

// EventRecord is one journaled request to the collector.
type EventRecord = internal.EventRecord

const (
	DriverSQLite   = internal.DriverSQLite
	DriverPostgres = internal.DriverPostgres
)

// ErrJournalDisabled is returned by journal reads when no journal is configured.
var ErrJournalDisabled = errors.New("event journal disabled")

// BatchConfig configuración del sistema de batch
type BatchConfig struct {
	BatchSize     int           `json:"batch_size"`
	FlushInterval time.Duration `json:"flush_interval"`
	MaxQueueSize  int           `json:"max_queue_size"`
	MaxBatchQueue int           `json:"max_batch_queue"`
	MaxWorkers    int           `json:"max_workers"`
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
}

// Batch is a group of records written in one transaction.
type Batch struct {
	ID        string         `json:"id"`
	Records   []*EventRecord `json:"records"`
	CreatedAt time.Time      `json:"created_at"`
	Size      int            `json:"size"`
}

// BatchManager queues journal records and writes them in batches.
type BatchManager struct {
	DB       *sql.DB
	Driver   string
	Config   BatchConfig
	QueueMgr *QueueManager
	Logger   *scribe.Scribe

	Running bool
	Mutex   sync.RWMutex

	producers sync.WaitGroup
	workers   sync.WaitGroup
	stopFlush chan struct{}

	TotalProcessed int64
	TotalBatches   int64
	TotalErrors    int64
	CurrentBatch   *Batch
	BatchMutex     sync.Mutex
	LastFlush      time.Time
	FlushTicker    *time.Ticker
}

// InsertEvent inserts a record directly, bypassing the batch queues.
func InsertEvent(ctx context.Context, db *sql.DB, driver string, record *EventRecord) error {
	return internal.InsertEvent(ctx, db, driver, record)
}

// ListEvents returns up to limit records, newest first.
func ListEvents(ctx context.Context, db *sql.DB, driver string, limit int) ([]EventRecord, error) {
	return internal.ListEvents(ctx, db, driver, limit)
}

// InitDB opens the journal database and creates its schema.
func InitDB(driver, dsn string) (*sql.DB, error) {
	return internal.InitDB(driver, dsn)
}
