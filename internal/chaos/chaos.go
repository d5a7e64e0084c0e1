package chaos

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"vescollector/internal/models"
)

// Engine decides which faults to inject into a request
type Engine struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewEngine creates a new instance of the chaos engine
func NewEngine() *Engine {
	return NewEngineWithSeed(time.Now().UnixNano())
}

func NewEngineWithSeed(seed int64) *Engine {
	return &Engine{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Apply returns the delay to add before handling the request and the status
// code to abort it with. Zero values mean no fault.
func (e *Engine) Apply(cfg *models.ChaosInjection) (time.Duration, int) {
	if cfg == nil {
		return 0, 0
	}

	return e.applyLatency(cfg.Latency), e.applyAbort(cfg.Abort)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// applyLatency returns a duration to delay the response based on the latency configuration
func (e *Engine) applyLatency(latency models.Latency) time.Duration {
	if latency.Time <= 0 {
		return 0
	}

	if !e.hit(latency.Probability) {
		return 0
	}

	return time.Duration(latency.Time) * time.Millisecond
}

// applyAbort returns an HTTP status code to abort the request based on the abort configuration
func (e *Engine) applyAbort(abort models.Abort) int {
	if abort.Code <= 0 {
		return 0
	}

	if !e.hit(abort.Probability) {
		return 0
	}

	return abort.Code
}

// hit draws against a probability given as a percentage string
func (e *Engine) hit(percent string) bool {
	probability, err := strconv.ParseFloat(percent, 64)
	if err != nil || probability <= 0 {
		return false
	}

	e.mu.Lock()
	draw := e.rand.Float64() * 100
	e.mu.Unlock()

	return draw <= probability
}
