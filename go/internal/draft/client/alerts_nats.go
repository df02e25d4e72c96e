package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for publishing alerts to NATS
type NATSConfig struct {
	URL           string
	SubjectPrefix string // alerts go to <prefix>.<league>.<team>
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS alert configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "draft.alerts",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSNotifier publishes alerts to NATS for push delivery elsewhere.
type NATSNotifier struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSNotifier connects to NATS
func NewNATSNotifier(config NATSConfig) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name("draft-client-alerts"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	prefix := config.SubjectPrefix
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	return &NATSNotifier{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject an alert is published on.
func (n *NATSNotifier) Subject(alert Alert) string {
	team := alert.TeamID
	if team == "" {
		team = "observer"
	}
	return fmt.Sprintf("%s.%s.%s", n.prefix, alert.LeagueID, team)
}

// Notify implements Notifier.
func (n *NATSNotifier) Notify(ctx context.Context, alert Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := n.nc.Publish(n.Subject(alert), data); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush alert: %w", err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (n *NATSNotifier) Close() {
	if n.nc == nil {
		return
	}
	if err := n.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
		n.nc.Close()
	}
}
