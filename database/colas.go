package database

import (
	"context"
	"errors"
	"sync"
)

// QueueManager owns the input and batch queues of the journal
type QueueManager struct {
	InputQueue chan *EventRecord
	BatchQueue chan *Batch
	Ctx        context.Context
	Cancel     context.CancelFunc
	Running    bool
	Mutex      sync.RWMutex

	batchesClosed bool
}

// NewQueueManager crea un nuevo manager de colas
func NewQueueManager(config BatchConfig) *QueueManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &QueueManager{
		InputQueue: make(chan *EventRecord, config.MaxQueueSize),
		BatchQueue: make(chan *Batch, config.MaxBatchQueue),
		Ctx:        ctx,
		Cancel:     cancel,
		Running:    false,
	}
}

// Start inicia el manager de colas
func (qm *QueueManager) Start() error {
	qm.Mutex.Lock()
	defer qm.Mutex.Unlock()

	if qm.Running {
		return nil
	}
	if qm.batchesClosed {
		return ErrQueueClosed
	}

	qm.Running = true
	return nil
}

// CloseInput stops accepting records. Records already queued are still
// delivered to the aggregator.
func (qm *QueueManager) CloseInput() {
	qm.Mutex.Lock()
	defer qm.Mutex.Unlock()

	if !qm.Running {
		return
	}

	qm.Running = false
	close(qm.InputQueue)
}

// CloseBatches closes the batch queue once no producer can send to it.
func (qm *QueueManager) CloseBatches() {
	qm.Mutex.Lock()
	defer qm.Mutex.Unlock()

	if qm.batchesClosed {
		return
	}
	qm.batchesClosed = true
	close(qm.BatchQueue)
}

// Stop cancels in-flight work
func (qm *QueueManager) Stop() {
	qm.Cancel()
}

// AddRequest agrega una petición a la cola de entrada
func (qm *QueueManager) AddRequest(record *EventRecord) error {
	// The read lock is held across the send so CloseInput cannot close the
	// channel underneath it. The send never blocks.
	qm.Mutex.RLock()
	defer qm.Mutex.RUnlock()

	if !qm.Running {
		return ErrQueueNotRunning
	}

	select {
	case qm.InputQueue <- record:
		return nil
	default:
		return ErrQueueFull
	}
}

// AddBatch agrega un batch a la cola de procesamiento
func (qm *QueueManager) AddBatch(batch *Batch) error {
	qm.Mutex.RLock()
	defer qm.Mutex.RUnlock()

	if qm.batchesClosed {
		return ErrQueueClosed
	}

	select {
	case qm.BatchQueue <- batch:
		return nil
	default:
		return ErrQueueFull
	}
}

// GetStats retorna estadísticas de las colas
func (qm *QueueManager) GetStats() map[string]interface{} {
	qm.Mutex.RLock()
	defer qm.Mutex.RUnlock()

	return map[string]interface{}{
		"queue_running":   qm.Running,
		"input_queue_size": len(qm.InputQueue),
		"batch_queue_size": len(qm.BatchQueue),
	}
}

// Errores de cola
var (
	ErrQueueNotRunning = errors.New("queue manager not running")
	ErrQueueFull       = errors.New("queue is full")
	ErrQueueClosed     = errors.New("queue is closed")
)
