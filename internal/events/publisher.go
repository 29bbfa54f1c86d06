package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers venue events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evts ...Event) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by security ID, so all
// events of one instrument land on one partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evts ...Event) error {
	messages := make([]kafka.Message, 0, len(evts))
	for _, evt := range evts {
		value, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(evt.SecurityID),
			Value: value,
		})
	}
	return p.writer.WriteMessages(ctx, messages...)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes events to the log instead of a broker. Used in
// development and in the simulation when no Kafka cluster is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "event_publisher").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, evts ...Event) error {
	for _, evt := range evts {
		p.logger.Info().
			Str("event_type", string(evt.Type)).
			Int64("request_id", evt.RequestID).
			Int64("order_id", evt.OrderID).
			Str("security_id", evt.SecurityID).
			Strs("reasons", evt.Reasons).
			Int("trades", len(evt.Trades)).
			Msg("event published")
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
