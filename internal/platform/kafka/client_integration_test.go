//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"

	"breachledger/internal/platform/config"
	"breachledger/pkg/testutil/containers"
)

func TestEnsureTopicIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := containers.NewRedpanda(t)
	cfg := config.KafkaConfig{
		Brokers:     []string{broker.Seed},
		Topic:       "incident-events-test",
		Partitions:  3,
		Replication: 1,
	}
	client, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	require.NoError(t, EnsureTopic(ctx, client, cfg))
	require.NoError(t, EnsureTopic(ctx, client, cfg))

	details, err := kadm.NewClient(client).ListTopics(ctx, cfg.Topic)
	require.NoError(t, err)
	require.True(t, details.Has(cfg.Topic))
	require.Len(t, details[cfg.Topic].Partitions, 3)
}
