// Package integration runs the lease API against real infrastructure.
// It uses testcontainers to start a Redis server for the shared rate-limit
// counters.
package integration

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/leasegen/backend/internal/infrastructure/config"
)

// TestRedis is a disposable Redis container
type TestRedis struct {
	Container testcontainers.Container
	Config    config.RedisConfig
}

// NewTestRedis starts a Redis container that lives for the duration of t.
// It skips the test in short mode.
func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

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
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	host, portStr, ok := strings.Cut(endpoint, ":")
	require.True(t, ok, "unexpected endpoint %q", endpoint)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return &TestRedis{
		Container: container,
		Config:    config.RedisConfig{Host: host, Port: port},
	}
}
