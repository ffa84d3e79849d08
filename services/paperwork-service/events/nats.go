package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSPublisher publishes each event on "<subject>.<type>".
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string, logger *logrus.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("paperwork-service"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.WithField("url", c.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) Subject(ev Event) string {
	return p.subject + "." + ev.Type
}

func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := ev.encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.conn.Publish(p.Subject(ev), payload)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
