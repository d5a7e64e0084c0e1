package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"vescollector/database/internal"
	"vescollector/internal/models"

	"github.com/SOLUCIONESSYCOM/scribe"
)

func NewBatchManager(db *sql.DB, driver string, config BatchConfig, logger *scribe.Scribe) *BatchManager {

	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 2 * time.Second
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = 10000
	}
	if config.MaxBatchQueue <= 0 {
		config.MaxBatchQueue = 1000
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}

	return &BatchManager{
		DB:           db,
		Driver:       driver,
		Config:       config,
		QueueMgr:     NewQueueManager(config),
		Logger:       logger,
		Running:      false,
		CurrentBatch: newBatch(config.BatchSize),
		LastFlush:    time.Now(),
	}
}

// Open initialises the journal database described by cfg and starts a
// batch manager on it. It returns ErrJournalDisabled when the journal is off.
func Open(cfg models.Journal, logger *scribe.Scribe) (*BatchManager, error) {
	if !cfg.Enabled {
		return nil, ErrJournalDisabled
	}

	db, err := InitDB(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	bm := NewBatchManager(db, cfg.Driver, BatchConfig{
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushIntervalMs) * time.Millisecond,
		MaxWorkers:    cfg.MaxWorkers,
	}, logger)

	if err := bm.Start(); err != nil {
		db.Close()
		return nil, err
	}

	return bm, nil
}

func (bm *BatchManager) Start() error {
	bm.Mutex.Lock()
	defer bm.Mutex.Unlock()

	if bm.Running {
		return nil
	}

	if err := bm.QueueMgr.Start(); err != nil {
		return err
	}
	bm.Running = true

	for i := 0; i < bm.Config.MaxWorkers; i++ {
		bm.workers.Add(1)
		go bm.batchWorker(i)
	}

	bm.producers.Add(1)
	go bm.batchAggregator()

	bm.stopFlush = make(chan struct{})
	bm.FlushTicker = time.NewTicker(bm.Config.FlushInterval)
	bm.producers.Add(1)
	go bm.autoFlush()

	bm.Logger.Info().
		Int("workers", bm.Config.MaxWorkers).
		Int("batch_size", bm.Config.BatchSize).
		Str("driver", bm.Driver).
		Msg("BatchManager started")
	return nil
}

// Stop drains the queues, writes the remaining records and stops the workers.
func (bm *BatchManager) Stop() {
	bm.Mutex.Lock()
	if !bm.Running {
		bm.Mutex.Unlock()
		return
	}
	bm.Running = false
	bm.Mutex.Unlock()

	bm.FlushTicker.Stop()
	close(bm.stopFlush)

	// The aggregator flushes the partial batch once the input is closed.
	bm.QueueMgr.CloseInput()
	bm.producers.Wait()

	bm.QueueMgr.CloseBatches()
	bm.workers.Wait()

	bm.QueueMgr.Stop()

	bm.Logger.Info().
		Int("total_processed", int(atomic.LoadInt64(&bm.TotalProcessed))).
		Int("total_errors", int(atomic.LoadInt64(&bm.TotalErrors))).
		Msg("BatchManager stopped")
}

// Close stops the manager and closes the database.
func (bm *BatchManager) Close() error {
	if bm == nil {
		return nil
	}
	bm.Stop()
	return bm.DB.Close()
}

// AddOperation queues a record, writing it synchronously when the manager
// is stopped or the queue is full.
func (bm *BatchManager) AddOperation(record *EventRecord) error {
	bm.Mutex.RLock()
	running := bm.Running
	bm.Mutex.RUnlock()

	if !running {
		return bm.insertSync(record)
	}

	if err := bm.QueueMgr.AddRequest(record); err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueNotRunning) {
			return bm.insertSync(record)
		}
		return err
	}
	return nil
}

// ListEvents returns up to limit journaled records, newest first.
func (bm *BatchManager) ListEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if bm == nil {
		return nil, ErrJournalDisabled
	}
	return ListEvents(ctx, bm.DB, bm.Driver, limit)
}

// batchAggregator agrupa peticiones en batches
func (bm *BatchManager) batchAggregator() {
	defer bm.producers.Done()

	for record := range bm.QueueMgr.InputQueue {
		bm.BatchMutex.Lock()
		bm.CurrentBatch.Records = append(bm.CurrentBatch.Records, record)
		bm.CurrentBatch.Size++

		if bm.CurrentBatch.Size >= bm.Config.BatchSize {
			bm.sendBatch()
		}
		bm.BatchMutex.Unlock()
	}

	bm.flushCurrentBatch()
}

// batchWorker procesa batches completos
func (bm *BatchManager) batchWorker(id int) {
	defer bm.workers.Done()

	for batch := range bm.QueueMgr.BatchQueue {
		if err := bm.processBatch(batch); err != nil {
			bm.Logger.Error().
				Int("worker", id).
				Str("batch_id", batch.ID).
				AnErr("error", err).
				Msg("Error processing batch")
			atomic.AddInt64(&bm.TotalErrors, 1)
			continue
		}
		atomic.AddInt64(&bm.TotalProcessed, int64(batch.Size))
	}
}

// processBatch writes a batch in one transaction, retrying on failure
func (bm *BatchManager) processBatch(batch *Batch) error {
	var lastErr error

	for attempt := 1; attempt <= bm.Config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(bm.QueueMgr.Ctx, bm.Config.Timeout)
		err := bm.insertBatchTransaction(ctx, batch)
		cancel()

		if err == nil {
			atomic.AddInt64(&bm.TotalBatches, 1)
			return nil
		}

		lastErr = err
		if attempt < bm.Config.RetryAttempts {
			bm.Logger.Warn().
				Int("attempt", attempt).
				Str("batch_id", batch.ID).
				AnErr("error", err).
				Msg("Retrying batch")

			select {
			case <-bm.QueueMgr.Ctx.Done():
				return lastErr
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	return lastErr
}

// insertBatchTransaction ejecuta la inserción del batch en una transacción
func (bm *BatchManager) insertBatchTransaction(ctx context.Context, batch *Batch) error {
	tx, err := bm.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, internal.InsertQuery(bm.Driver))
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range batch.Records {
		if _, err := stmt.ExecContext(ctx, internal.Args(record)...); err != nil {
			return fmt.Errorf("error inserting event %s: %w", record.UUID, err)
		}
	}

	return tx.Commit()
}

// insertSync inserción síncrona directa (fallback)
func (bm *BatchManager) insertSync(record *EventRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), bm.Config.Timeout)
	defer cancel()
	return InsertEvent(ctx, bm.DB, bm.Driver, record)
}

// sendBatch hands the current batch to the workers. BatchMutex must be held.
func (bm *BatchManager) sendBatch() {
	if bm.CurrentBatch.Size == 0 {
		return
	}

	if err := bm.QueueMgr.AddBatch(bm.CurrentBatch); err != nil {
		// Queue full or already closed: write it here
		if processErr := bm.processBatch(bm.CurrentBatch); processErr != nil {
			bm.Logger.Error().
				Str("batch_id", bm.CurrentBatch.ID).
				AnErr("error", processErr).
				Msg("Error processing batch directly")
			atomic.AddInt64(&bm.TotalErrors, 1)
		} else {
			atomic.AddInt64(&bm.TotalProcessed, int64(bm.CurrentBatch.Size))
		}
	}

	bm.CurrentBatch = newBatch(bm.Config.BatchSize)
	bm.LastFlush = time.Now()
}

// flushCurrentBatch envía el batch actual aunque no esté completo
func (bm *BatchManager) flushCurrentBatch() {
	bm.BatchMutex.Lock()
	defer bm.BatchMutex.Unlock()

	bm.sendBatch()
}

// autoFlush ejecuta flush automático por tiempo
func (bm *BatchManager) autoFlush() {
	defer bm.producers.Done()

	for {
		select {
		case <-bm.stopFlush:
			return
		case <-bm.FlushTicker.C:
			bm.flushCurrentBatch()
		}
	}
}

// GetStats retorna estadísticas del batch manager
func (bm *BatchManager) GetStats() map[string]interface{} {
	running := bm.IsRunning()

	bm.BatchMutex.Lock()
	currentBatchSize := bm.CurrentBatch.Size
	lastFlush := bm.LastFlush
	bm.BatchMutex.Unlock()

	stats := bm.QueueMgr.GetStats()
	stats["is_running"] = running
	stats["driver"] = bm.Driver
	stats["current_batch_size"] = currentBatchSize
	stats["total_processed"] = atomic.LoadInt64(&bm.TotalProcessed)
	stats["total_batches"] = atomic.LoadInt64(&bm.TotalBatches)
	stats["total_errors"] = atomic.LoadInt64(&bm.TotalErrors)
	stats["batch_size"] = bm.Config.BatchSize
	stats["max_workers"] = bm.Config.MaxWorkers
	stats["flush_interval"] = bm.Config.FlushInterval.String()
	stats["last_flush"] = lastFlush
	return stats
}

// IsRunning retorna si el batch manager está ejecutándose
func (bm *BatchManager) IsRunning() bool {
	if bm == nil {
		return false
	}
	bm.Mutex.RLock()
	defer bm.Mutex.RUnlock()
	return bm.Running
}

func newBatch(size int) *Batch {
	return &Batch{
		ID:        generateBatchID(),
		Records:   make([]*EventRecord, 0, size),
		CreatedAt: time.Now(),
	}
}

// generateBatchID genera un ID único para el batch
func generateBatchID() string {
	return fmt.Sprintf("batch_%d", time.Now().UnixNano())
}
