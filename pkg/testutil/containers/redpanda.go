//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// Redpanda is a single-node Kafka-compatible broker for integration tests.
type Redpanda struct {
	Container *redpanda.Container
	Broker    string
}

// NewRedpanda starts a broker with topic auto-creation enabled.
func NewRedpanda(t *testing.T) *Redpanda {
	t.Helper()
	ctx := context.Background()

	container, err := redpanda.Run(ctx,
		"docker.redpanda.com/redpandadata/redpanda:v24.2.4",
		redpanda.WithAutoCreateTopics(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("redpanda seed broker: %v", err)
	}
	return &Redpanda{Container: container, Broker: broker}
}
