// Package hub keeps the set of live chat connections on this instance and
// fans broadcast payloads out to them.
package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/metrics"
)

var (
	ErrClosed       = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

// Conn is one registered connection. Send must not block.
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close()
}

type Hub struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]Conn),
		logger: logger.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	size := len(h.conns)
	h.mu.Unlock()

	metrics.ConnectedClients.Set(float64(size))
	h.logger.Debug().Str("conn_id", c.ID()).Int("connections", size).Msg("connection registered")
}

// Unregister removes c and closes it. It reports false when c was not
// registered, in which case nothing is closed.
func (h *Hub) Unregister(c Conn) bool {
	h.mu.Lock()
	current, ok := h.conns[c.ID()]
	if ok && current == c {
		delete(h.conns, c.ID())
	}
	size := len(h.conns)
	h.mu.Unlock()

	if !ok || current != c {
		return false
	}
	c.Close()
	metrics.ConnectedClients.Set(float64(size))
	h.logger.Debug().Str("conn_id", c.ID()).Int("connections", size).Msg("connection unregistered")
	return true
}

// Broadcast offers payload to every registered connection and returns how many
// accepted it. Connections that refuse are unregistered afterwards.
func (h *Hub) Broadcast(payload []byte) int {
	var failed []Conn

	h.mu.RLock()
	delivered := 0
	for _, c := range h.conns {
		if err := c.Send(payload); err != nil {
			failed = append(failed, c)
			continue
		}
		delivered++
	}
	h.mu.RUnlock()

	metrics.BroadcastDeliveries.WithLabelValues("ok").Add(float64(delivered))
	if len(failed) > 0 {
		metrics.BroadcastDeliveries.WithLabelValues("dropped").Add(float64(len(failed)))
		for _, c := range failed {
			h.Unregister(c)
		}
		h.logger.Warn().Int("dropped", len(failed)).Msg("dropped unresponsive connections")
	}
	return delivered
}

func (h *Hub) BroadcastJSON(v any) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode broadcast: %w", err)
	}
	return h.Broadcast(payload), nil
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll unregisters every connection, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.conns))
	for id, c := range h.conns {
		conns = append(conns, c)
		delete(h.conns, id)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	metrics.ConnectedClients.Set(0)
}
