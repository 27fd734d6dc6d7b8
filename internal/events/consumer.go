package events

import (
	"context"

	"github.com/segmentio/kafka-go"

	"truthlens/internal/logger"
)

// Handler processes one decoded event
type Handler func(ctx context.Context, event AnalysisCompleted) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads completion events as part of a consumer group
type Consumer struct {
	reader messageReader
}

// NewKafkaConsumer joins cfg.GroupID on cfg.Topic
func NewKafkaConsumer(cfg Config) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.BootstrapServers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader}
}

// Run feeds events to handle until ctx ends. Malformed messages are
// committed and skipped; handler failures are left uncommitted.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.LogErrorWithStack(err, map[string]interface{}{
				"operation": "kafka_fetch_message",
			})
			return err
		}

		event, err := decode(msg)
		if err != nil {
			logger.LogErrorWithStack(err, map[string]interface{}{
				"operation": "decode_analysis_event",
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
			c.commit(ctx, msg)
			continue
		}

		if err := handle(ctx, event); err != nil {
			logger.LogErrorWithStackAndCorrelation(err, event.CorrelationID, map[string]interface{}{
				"operation":  "handle_analysis_event",
				"history_id": event.HistoryID,
				"offset":     msg.Offset,
			})
			continue
		}
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "kafka_commit_message",
			"offset":    msg.Offset,
		})
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
