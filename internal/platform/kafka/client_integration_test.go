//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"

	"sarflow/internal/platform/config"
	"sarflow/pkg/testutil/containers"
)

func TestNew_ProvisionsTopicIdempotently(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	rp := containers.NewRedpanda(t)

	cfg := config.KafkaConfig{
		Brokers:           []string{rp.Broker},
		Topic:             "sarflow.audit.test",
		CreateTopic:       true,
		Partitions:        1,
		ReplicationFactor: 1,
	}
	client, err := New(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, EnsureTopic(ctx, kadm.NewClient(client), cfg))

	topics, err := kadm.NewClient(client).ListTopics(ctx, cfg.Topic)
	require.NoError(t, err)
	assert.True(t, topics.Has(cfg.Topic))
}

func TestNew_WithoutBrokers(t *testing.T) {
	client, err := New(context.Background(), config.KafkaConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}
