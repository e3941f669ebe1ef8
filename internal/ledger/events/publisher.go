// Package events connects the transactional outbox to the NATS message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TrulyGourav/OrchexPay/config"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Connect establishes a NATS connection with reconnect handling.
func Connect(cfg config.NATSConfig, log zerolog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("orchexpay-ledger"),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	log.Info().Str("url", conn.ConnectedUrl()).Msg("NATS connection established")
	return conn, nil
}

// NATSPublisher implements ports.EventPublisher on a core NATS connection.
// Events are published to "<subject>.<event_type>" so consumers can
// subscribe to individual event types or the whole wallet stream.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewNATSPublisher creates a publisher rooted at the configured subject.
func NewNATSPublisher(conn *nats.Conn, subject string, log zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, log: log}
}

func (p *NATSPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.ID, err)
	}

	subject := fmt.Sprintf("%s.%s", p.subject, event.EventType)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing event %s: %w", event.ID, err)
	}

	p.log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("subject", subject).
		Msg("event published")
	return nil
}

// HealthCheck reports NATS connectivity for the health endpoint.
type HealthCheck struct {
	conn *nats.Conn
}

func NewHealthCheck(conn *nats.Conn) *HealthCheck {
	return &HealthCheck{conn: conn}
}

func (h *HealthCheck) Ping(_ context.Context) error {
	if !h.conn.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "nats"
}
