// Package testharness provides a FalkorDB-backed test fixture for
// integration tests that need a real graph store.
package testharness

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/moolen/magma/internal/store"
)

// Harness manages a disposable FalkorDB container and a connected Adapter.
type Harness struct {
	Adapter   store.Adapter
	container testcontainers.Container
	ctx       context.Context
}

// New starts a fresh FalkorDB container and returns a connected adapter
// against a uniquely named graph.
func New(t *testing.T) (*Harness, error) {
	ctx := context.Background()
	graphName := fmt.Sprintf("test-%s", uuid.New().String()[:8])

	req := testcontainers.ContainerRequest{
		Image:        "falkordb/falkordb:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		AutoRemove:   true,
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start FalkorDB container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get container port: %w", err)
	}

	config := store.DefaultClientConfig()
	config.Host = host
	config.Port = port.Int()
	config.GraphName = graphName
	config.DialTimeout = 10 * time.Second
	config.QueryCacheEnabled = false

	adapter := store.NewClient(config)
	if err := adapter.Connect(ctx); err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("connect to FalkorDB: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if adapter.HealthCheck(ctx) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if !adapter.HealthCheck(ctx) {
		adapter.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("FalkorDB not ready after startup")
	}

	if err := adapter.InitializeSchema(ctx); err != nil {
		adapter.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Harness{Adapter: adapter, container: container, ctx: ctx}, nil
}

// Close tears down the adapter connection and the backing container.
func (h *Harness) Close() {
	h.Adapter.Close()
	h.container.Terminate(h.ctx)
}
