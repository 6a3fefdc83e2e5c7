//go:build integration

package event

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisEventBus_RoundTrip(t *testing.T) {
	client := startRedis(t)
	serializer := NewEventSerializer()
	RegisterOrderingEvents(serializer)

	bus := NewRedisEventBus(client, "", serializer, nil)
	h := newRecordingHandler(ordering.EventTypeRenderResponse)
	bus.Subscribe(h)
	require.NoError(t, bus.Start(context.Background()))

	resp := ordering.NewRenderRespondedEvent("o1", "corr-1")
	resp.Body = []byte("body")
	require.NoError(t, bus.Publish(context.Background(), resp))

	assert.Eventually(t, func() bool { return h.count() == 1 }, 5*time.Second, 20*time.Millisecond)
	h.mu.Lock()
	got := h.handled[0].(*ordering.RenderRespondedEvent)
	h.mu.Unlock()
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, []byte("body"), got.Body)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}
