/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays engine events to NATS so other processes can follow playback.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/events"
	"github.com/friendsincode/muse/internal/telemetry"
)

// SubjectPrefix prefixes every subject the bus publishes on.
const SubjectPrefix = "muse.events."

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration

	// Mirror re-publishes events from other nodes on the local bus.
	Mirror bool
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSBus delivers events to in-process subscribers and, while connected,
// to NATS subjects named after the event type.
type NATSBus struct {
	logger zerolog.Logger
	local  *events.Bus
	conn   *nats.Conn
	sub    *nats.Subscription
	nodeID string
}

// NewNATSBus connects to NATS. An unreachable server leaves the bus
// running in-process only.
func NewNATSBus(cfg NATSConfig, logger zerolog.Logger) *NATSBus {
	nb := &NATSBus{
		logger: logger.With().Str("component", "eventbus").Logger(),
		local:  events.NewBus(),
		nodeID: generateNodeID(),
	}
	if cfg.URL == "" {
		nb.logger.Info().Msg("no NATS url configured, using in-memory event bus")
		return nb
	}

	opts := []nats.Option{
		nats.Name("muse-" + nb.nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			nb.logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			nb.logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		nb.logger.Warn().Err(err).Str("url", cfg.URL).Msg("NATS unavailable, using in-memory event bus")
		return nb
	}
	nb.conn = conn

	if cfg.Mirror {
		sub, err := conn.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) { nb.handleRemote(msg.Data) })
		if err != nil {
			nb.logger.Warn().Err(err).Msg("NATS mirror subscription failed")
		} else {
			nb.sub = sub
		}
	}
	nb.logger.Info().Str("url", conn.ConnectedUrl()).Str("node", nb.nodeID).Msg("NATS event bus connected")
	return nb
}

// Connected reports whether events currently reach NATS.
func (nb *NATSBus) Connected() bool {
	return nb.conn != nil && nb.conn.IsConnected()
}

// NodeID identifies this process in relayed messages.
func (nb *NATSBus) NodeID() string { return nb.nodeID }

// Subscribe registers an in-process subscriber.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	return nb.local.Subscribe(eventType)
}

// Unsubscribe removes an in-process subscriber.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)
}

// Publish delivers payload locally and relays it to NATS.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)
	if !nb.Connected() {
		return
	}

	data, err := marshalNATSMessage(eventType, payload, nb.nodeID)
	if err != nil {
		telemetry.EventsForwarded.WithLabelValues(string(eventType), "marshal_error").Inc()
		nb.logger.Debug().Err(err).Str("event", string(eventType)).Msg("event not relayed")
		return
	}
	if err := nb.conn.Publish(Subject(eventType), data); err != nil {
		telemetry.EventsForwarded.WithLabelValues(string(eventType), "error").Inc()
		nb.logger.Debug().Err(err).Str("event", string(eventType)).Msg("NATS publish failed")
		return
	}
	telemetry.EventsForwarded.WithLabelValues(string(eventType), "ok").Inc()
}

// handleRemote republishes events from other nodes on the local bus.
func (nb *NATSBus) handleRemote(data []byte) {
	msg, err := unmarshalNATSMessage(data)
	if err != nil {
		nb.logger.Debug().Err(err).Msg("dropping malformed NATS message")
		return
	}
	if msg.NodeID == nb.nodeID {
		return
	}
	if msg.Payload == nil {
		msg.Payload = events.Payload{}
	}
	msg.Payload["origin"] = msg.NodeID
	nb.local.Publish(msg.EventType, msg.Payload)
}

// Close drains the NATS connection.
func (nb *NATSBus) Close() error {
	if nb.conn == nil {
		return nil
	}
	if nb.sub != nil {
		_ = nb.sub.Unsubscribe()
	}
	if err := nb.conn.Drain(); err != nil {
		nb.conn.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

// Subject returns the NATS subject of an event type.
func Subject(eventType events.EventType) string {
	return SubjectPrefix + string(eventType)
}

type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "muse"
	}
	host = strings.ReplaceAll(host, ".", "-")
	return host + "-" + uuid.NewString()[:8]
}
