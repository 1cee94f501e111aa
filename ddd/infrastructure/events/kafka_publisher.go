package events

import (
	"context"
	"encoding/json"
	"time"

	"video-service/pkg/kafkaclient"
	"video-service/pkg/logger"
)

// envelope is the wire form of one lifecycle event.
type envelope struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// KafkaPublisher emits asset lifecycle events keyed by asset id, so events
// for one asset keep their order within a partition. Publishing is
// best-effort: failures are logged, never returned.
type KafkaPublisher struct {
	client *kafkaclient.Client
	topic  string
}

func NewKafkaPublisher(client *kafkaclient.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, assetID string, payload interface{}) {
	value, err := json.Marshal(envelope{
		EventType: eventType,
		AssetID:   assetID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		logger.Errorf("event marshal failed event_type=%s asset_id=%s error=%v", eventType, assetID, err)
		return
	}
	if err := p.client.Produce(ctx, p.topic, []byte(assetID), value); err != nil {
		logger.Warnf("event publish failed event_type=%s asset_id=%s error=%v", eventType, assetID, err)
	}
}
