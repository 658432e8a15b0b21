package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachledger/internal/platform/config"
)

func TestNewDisabledWithoutBrokers(t *testing.T) {
	client, err := New(config.KafkaConfig{Topic: "incident-events"})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewDoesNotDial(t *testing.T) {
	client, err := New(config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)
	require.NotNil(t, client)
	client.Close()
}
