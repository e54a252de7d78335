// Package events publishes print audit events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/config"
)

// Publisher is a booth.Publisher that can be closed.
type Publisher interface {
	booth.Publisher
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by owner id, so all
// prints of one owner stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, topic, log)
}

func newKafkaPublisher(w messageWriter, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		log:    log.With().Str("component", "events").Str("topic", topic).Logger(),
	}
}

// PublishPrinted implements booth.Publisher.
func (p *KafkaPublisher) PublishPrinted(ctx context.Context, event booth.PrintedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OwnerID),
		Value: value,
		Time:  event.PrintedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event to %s: %w", p.topic, err)
	}

	p.log.Debug().Str("owner_id", event.OwnerID).Int("photos", len(event.PhotoIDs)).Msg("Published print event")
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishPrinted(context.Context, booth.PrintedEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// New returns a Kafka publisher when brokers are configured and a
// NopPublisher otherwise.
func New(cfg config.EventsConfig, log zerolog.Logger) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Debug().Msg("No Kafka brokers configured, print events are disabled")
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
}
