package repository

import (
	"context"
	"fmt"

	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"
	pkgkafka "CryptoEdge/pkg/kafka"
)

// KafkaPublisher forwards events to Kafka. Logical topics are renamed via
// the topic map; unmapped topics are used as-is.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topics   map[string]string
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer *pkgkafka.Producer, topics map[string]string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topics: topics}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	if mapped, ok := p.topics[topic]; ok {
		topic = mapped
	}
	if err := p.producer.Publish(ctx, topic, messageKey(payload), payload); err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// messageKey keeps one pair's events on one partition.
func messageKey(payload interface{}) []byte {
	switch v := payload.(type) {
	case *models.Signal:
		return []byte(v.Pair)
	case models.Signal:
		return []byte(v.Pair)
	case map[string]interface{}:
		if pair, ok := v["pair"].(string); ok {
			return []byte(pair)
		}
	}
	return nil
}
