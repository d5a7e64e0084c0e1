package pending

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vescollector/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const provideState = `{"commandList":[{"command":{"commandType":"provideThrottlingState"}}]}`

func TestMemoryStoreDrainClears(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	value, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, s.Set(ctx, json.RawMessage(provideState)))

	value, err = s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, provideState, string(value))

	value, err = s.Drain(ctx)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMemoryStorePeekIsNonDestructive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, json.RawMessage(provideState)))

	peeked, err := s.Peek(ctx)
	require.NoError(t, err)
	drained, err := s.Drain(ctx)
	require.NoError(t, err)

	assert.Equal(t, string(peeked), string(drained))
}

func TestMemoryStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, json.RawMessage(`{"commandList":[1]}`)))
	require.NoError(t, s.Set(ctx, json.RawMessage(`{"commandList":[2]}`)))

	value, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"commandList":[2]}`, string(value))
}

func TestMemoryStoreNullClears(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, json.RawMessage(provideState)))
	require.NoError(t, s.Set(ctx, json.RawMessage(" null ")))

	value, err := s.Peek(ctx)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMemoryStoreCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	input := []byte(`{"a":1}`)
	require.NoError(t, s.Set(ctx, input))
	input[2] = 'b'

	value, err := s.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(value))
}

func TestMemoryStoreConcurrentDrainDeliversOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, json.RawMessage(provideState)))

	var delivered int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := s.Drain(ctx)
			assert.NoError(t, err)
			if value != nil {
				atomic.AddInt32(&delivered, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), delivered)
}

func TestMemoryStoreSetRacingDrain(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s := NewMemoryStore()

		var got json.RawMessage
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Set(ctx, json.RawMessage(provideState)))
		}()
		go func() {
			defer wg.Done()
			got, _ = s.Drain(ctx)
		}()
		wg.Wait()

		rest, _ := s.Drain(ctx)

		// Exactly one of the racing drain and the follow-up drain sees the value.
		assert.True(t, (got == nil) != (rest == nil), "value delivered %v/%v", got, rest)
	}
}

func TestOpenMemory(t *testing.T) {
	store, closeFn, err := Open(context.Background(), models.Pending{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, closeFn())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), models.Pending{Backend: "etcd"})
	assert.Error(t, err)
}

// redisAddr returns REDIS_ADDR when set, otherwise starts a throwaway
// Redis container.
func redisAddr(t *testing.T) string {
	t.Helper()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}

func TestRedisStore(t *testing.T) {
	addr := redisAddr(t)
	ctx := context.Background()
	store, closeFn, err := Open(ctx, models.Pending{
		Backend: "redis",
		Redis:   models.RedisConfig{Addr: addr, Key: "ves:pending:test"},
	})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	require.NoError(t, store.Set(ctx, nil))

	value, err := store.Drain(ctx)
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, store.Set(ctx, json.RawMessage(`{"commandList":[1]}`)))
	require.NoError(t, store.Set(ctx, json.RawMessage(provideState)))

	peeked, err := store.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, provideState, string(peeked))

	var delivered int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := store.Drain(ctx)
			assert.NoError(t, err)
			if value != nil {
				atomic.AddInt32(&delivered, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), delivered)
}
