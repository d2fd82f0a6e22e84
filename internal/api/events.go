/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/muse/internal/events"
	"github.com/friendsincode/muse/internal/telemetry"
)

const eventPingInterval = 15 * time.Second

// EventSource is the bus the events socket subscribes to.
type EventSource interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
}

type eventDelivery struct {
	eventType events.EventType
	payload   events.Payload
}

// handleEvents streams engine events over a websocket. The types query
// parameter selects event types as a comma separated list; empty means all.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	eventTypes, ok := parseEventTypes(r.URL.Query().Get("types"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_event_type")
		return
	}
	if a.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "events_unavailable")
		return
	}
	if len(eventTypes) == 0 {
		eventTypes = events.AllEventTypes
	}

	// Subscribe before the upgrade so nothing published after the handshake is missed.
	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	// Clients only listen; CloseRead cancels ctx when they go away.
	ctx := conn.CloseRead(r.Context())

	deliveries := make(chan eventDelivery)
	for i, sub := range subscribers {
		go func(eventType events.EventType, sub events.Subscriber) {
			for payload := range sub {
				select {
				case deliveries <- eventDelivery{eventType: eventType, payload: payload}:
				case <-ctx.Done():
					return
				}
			}
		}(eventTypes[i], sub)
	}

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		case d := <-deliveries:
			if err := writeEvent(ctx, conn, d.eventType, d.payload); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, data)
}

// parseEventTypes splits a comma separated list. It reports false when a
// name is not an event the engine publishes.
func parseEventTypes(raw string) ([]events.EventType, bool) {
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eventType := events.EventType(part)
		if !slices.Contains(events.AllEventTypes, eventType) {
			return nil, false
		}
		if !slices.Contains(out, eventType) {
			out = append(out, eventType)
		}
	}
	return out, true
}
