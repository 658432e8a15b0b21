package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "breachledger/pkg/platform/audit"
)

type fakeProducer struct {
	failKey string
	got     []*kgo.Record
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.got = append(f.got, r)
		var err error
		if string(r.Key) == f.failKey {
			err = errors.New("broker unavailable")
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: err})
	}
	return results
}

func entry(aggregate string) audit.OutboxEntry {
	return audit.OutboxEntry{
		ID:            uuid.New(),
		AggregateType: "incident",
		AggregateID:   aggregate,
		EventType:     string(audit.EventIncidentCreated),
		Payload:       []byte(`{"action":"incident_created"}`),
		CreatedAt:     time.Now(),
	}
}

func TestKafkaPublisher_PublishesKeyedRecords(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewKafkaPublisher(producer, "incident-events")

	in := []audit.OutboxEntry{entry("inc-1"), entry("inc-2")}
	delivered, err := pub.Publish(context.Background(), in)

	require.NoError(t, err)
	assert.Len(t, delivered, 2)
	require.Len(t, producer.got, 2)
	assert.Equal(t, "incident-events", producer.got[0].Topic)
	assert.Equal(t, []byte("inc-1"), producer.got[0].Key)
	assert.Equal(t, "event_type", producer.got[0].Headers[0].Key)
}

func TestKafkaPublisher_ReportsPartialFailure(t *testing.T) {
	producer := &fakeProducer{failKey: "inc-2"}
	pub := NewKafkaPublisher(producer, "incident-events")

	in := []audit.OutboxEntry{entry("inc-1"), entry("inc-2")}
	delivered, err := pub.Publish(context.Background(), in)

	require.Error(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, in[0].ID, delivered[0].ID)
}

func TestKafkaPublisher_EmptyBatch(t *testing.T) {
	producer := &fakeProducer{}
	delivered, err := NewKafkaPublisher(producer, "t").Publish(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, delivered)
	assert.Empty(t, producer.got)
}
