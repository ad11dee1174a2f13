package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Producer{Writer: writer, Topic: topic, Logger: log}
}

// PublishRunCompleted streams a finished scrape run, keyed by run id.
func (p *Producer) PublishRunCompleted(ctx context.Context, run models.ScrapeRunEvent) error {
	msgBytes, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(run.RunID),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("scrape.completed")},
			{Key: "trigger", Value: []byte(run.Trigger)},
		},
	})
	if err != nil {
		p.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish run %s to %s: %v", run.RunID, p.Topic, err))
		return fmt.Errorf("publish run event: %w", err)
	}

	p.Logger.LogKafka("PUBLISH", p.Topic, fmt.Sprintf("run %s %s (+%d ~%d)", run.RunID, run.Status, run.Added, run.Updated))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
