package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Greeshmanth1/daw/internal/events"
	"github.com/Greeshmanth1/daw/internal/observability"
)

const writeWait = 10 * time.Second

// Hub bridges the event bus to websocket clients. Each attached connection
// gets its own bus subscription, so one slow or dead client never blocks
// the others.
type Hub struct {
	bus    *events.Bus
	logger *slog.Logger
}

func NewHub(bus *events.Bus, logger *slog.Logger) *Hub {
	return &Hub{bus: bus, logger: logger}
}

// Attach subscribes conn to the bus and starts its read and write pumps.
// The connection is torn down, and its subscription removed, as soon as
// either side of the socket fails.
func (h *Hub) Attach(conn *websocket.Conn) {
	sub := h.bus.Subscribe()
	observability.WSClients.Inc()
	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

func (h *Hub) writePump(conn *websocket.Conn, sub *events.Subscription) {
	for e := range sub.C {
		payload, err := events.Marshal(e)
		if err != nil {
			h.logger.Error("event marshal failed", "kind", e.Kind(), "error", err)
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			// delivery to this client stops; everyone else is unaffected
			h.logger.Debug("ws write failed, dropping client", "error", err)
			h.detach(conn, sub)
			return
		}
	}
	_ = conn.Close()
}

// readPump discards inbound frames; the read loop only exists to notice the
// peer going away.
func (h *Hub) readPump(conn *websocket.Conn, sub *events.Subscription) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.detach(conn, sub)
			return
		}
	}
}

func (h *Hub) detach(conn *websocket.Conn, sub *events.Subscription) {
	h.bus.Unsubscribe(sub)
	if err := conn.Close(); err == nil {
		observability.WSClients.Dec()
	}
}
