package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"screedflow/models"
)

const notificationSubjectPrefix = "screedflow.notifications."

// NotificationSubject is the NATS subject a notification of the given type is published on.
func NotificationSubject(t models.NotificationType) string {
	return notificationSubjectPrefix + string(t)
}

type publishConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher fans stored notifications out over NATS.
type NATSPublisher struct {
	conn   publishConn
	nc     *nats.Conn
	logger *zap.Logger
}

func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("screedflow"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc, nc: nc, logger: logger}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	subject := NotificationSubject(n.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("notification published", zap.String("subject", subject), zap.String("notification_id", n.ID))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

// NopPublisher discards notifications. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.Notification) error { return nil }
