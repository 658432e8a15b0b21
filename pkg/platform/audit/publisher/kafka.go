// Package publisher delivers outbox rows to Kafka.
package publisher

import (
	"context"
	"errors"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "breachledger/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher produces outbox rows to a single topic, keyed by aggregate ID.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish produces entries synchronously and returns the ones the broker acknowledged.
// The returned error joins every per-record failure.
func (p *KafkaPublisher) Publish(ctx context.Context, entries []audit.OutboxEntry) ([]audit.OutboxEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	records := make([]*kgo.Record, len(entries))
	byRecord := make(map[*kgo.Record]audit.OutboxEntry, len(entries))
	for i, e := range entries {
		r := &kgo.Record{
			Topic: p.topic,
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "aggregate_type", Value: []byte(e.AggregateType)},
				{Key: "outbox_id", Value: []byte(e.ID.String())},
			},
			Timestamp: e.CreatedAt,
		}
		records[i] = r
		byRecord[r] = e
	}

	results := p.producer.ProduceSync(ctx, records...)

	delivered := make([]audit.OutboxEntry, 0, len(entries))
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		if e, ok := byRecord[res.Record]; ok {
			delivered = append(delivered, e)
		}
	}
	return delivered, errors.Join(errs...)
}
