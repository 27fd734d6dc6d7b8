package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"truthlens/internal/logger"
	"truthlens/internal/models"
)

const correlationHeader = "X-Correlation-ID"

// ErrMalformedEvent marks a message that could not be decoded
var ErrMalformedEvent = errors.New("malformed analysis event")

// AnalysisCompleted is published once a query has a finished report
type AnalysisCompleted struct {
	HistoryID     string                 `json:"history_id"`
	Query         string                 `json:"query"`
	Kind          models.QueryKind       `json:"kind"`
	Result        *models.AnalysisResult `json:"result"`
	CompletedAt   time.Time              `json:"completed_at"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
}

// Config holds the broker settings shared by publisher and consumer
type Config struct {
	BootstrapServers []string
	Topic            string
	GroupID          string
}

// Publisher announces completed analyses
type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, event AnalysisCompleted) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes completion events to a Kafka topic keyed by history id
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher for cfg.Topic
func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.BootstrapServers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, topic: cfg.Topic}
}

func (p *KafkaPublisher) PublishAnalysisCompleted(ctx context.Context, event AnalysisCompleted) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}

	logger.WithHistoryItem(event.CorrelationID, event.HistoryID).WithFields(map[string]interface{}{
		"topic":   p.topic,
		"verdict": event.Result.Verdict,
	}).Info("Published analysis completed event")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) PublishAnalysisCompleted(ctx context.Context, event AnalysisCompleted) error {
	logger.WithHistoryItem(event.CorrelationID, event.HistoryID).Debug("Event publishing disabled, dropping analysis completed event")
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}

// NewPublisher returns a Kafka publisher when brokers are configured and a no-op otherwise
func NewPublisher(cfg Config) Publisher {
	if len(cfg.BootstrapServers) == 0 {
		return NoopPublisher{}
	}
	return NewKafkaPublisher(cfg)
}

func encode(event AnalysisCompleted) (kafka.Message, error) {
	if event.HistoryID == "" || event.Result == nil {
		return kafka.Message{}, fmt.Errorf("%w: history id and result are required", ErrMalformedEvent)
	}
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode analysis event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.HistoryID),
		Value: value,
		Time:  event.CompletedAt,
	}
	if event.CorrelationID != "" {
		msg.Headers = []kafka.Header{{Key: correlationHeader, Value: []byte(event.CorrelationID)}}
	}
	return msg, nil
}

func decode(msg kafka.Message) (AnalysisCompleted, error) {
	var event AnalysisCompleted
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return event, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.HistoryID == "" || event.Result == nil {
		return event, fmt.Errorf("%w: history id and result are required", ErrMalformedEvent)
	}
	if event.CorrelationID == "" {
		for _, header := range msg.Headers {
			if header.Key == correlationHeader {
				event.CorrelationID = string(header.Value)
			}
		}
	}
	return event, nil
}
