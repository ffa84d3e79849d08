package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/RigelNana/arkpaper/pkg/metrics"
)

const serviceName = "paperwork-service"

// KafkaPublisher writes events asynchronously, keyed by paperwork id so one
// paperwork's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher needs at least one broker")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Completion: func(messages []kafka.Message, err error) {
			status := "success"
			if err != nil {
				status = "error"
				logger.WithError(err).WithField("topic", topic).Warn("kafka delivery failed")
			}
			metrics.KafkaMessagesTotal.WithLabelValues(serviceName, topic, status).Add(float64(len(messages)))
		},
	}
	return &KafkaPublisher{writer: w, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := ev.encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.PaperworkID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Type)},
		},
	})
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
