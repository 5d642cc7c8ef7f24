package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"collab-service/internal/models"
	"collab-service/internal/observability"
)

const wsKind = "room"
const wsRoutingKey = "ws_events.rooms"

// Hub maintains active websocket connections per room. All writes to a
// connection go through the hub, which serializes them per connection:
// gorilla/websocket allows at most one concurrent writer.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]bool
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex

	writeMu sync.Mutex
	writers map[*websocket.Conn]*sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]bool),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
		writers:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

var errConnUnregistered = errors.New("connection no longer registered")

// writeTo writes one text frame, holding the connection's write lock. A
// removed connection is skipped: its writer entry is gone and the connection
// is being closed.
func (h *Hub) writeTo(conn *websocket.Conn, payload []byte) error {
	h.writeMu.Lock()
	lock, ok := h.writers[conn]
	h.writeMu.Unlock()
	if !ok {
		return errConnUnregistered
	}

	lock.Lock()
	defer lock.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// AddClient registers a websocket connection to a room.
func (h *Hub) AddClient(roomID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	if _, ok := h.connInfo[roomID]; !ok {
		h.connInfo[roomID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[roomID][conn] = info

	h.writeMu.Lock()
	if _, ok := h.writers[conn]; !ok {
		h.writers[conn] = &sync.Mutex{}
	}
	h.writeMu.Unlock()
}

// RemoveClient removes a room websocket connection.
func (h *Hub) RemoveClient(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if infos, ok := h.connInfo[roomID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, roomID)
		}
	}

	h.writeMu.Lock()
	delete(h.writers, conn)
	h.writeMu.Unlock()
}

// BroadcastMessage sends a message event to all clients in a room.
func (h *Hub) BroadcastMessage(roomID string, msg models.Message) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	event := models.RoomEvent{Type: "message", Message: &msg}
	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := h.writeTo(conn, payload); err != nil {
			if errors.Is(err, errConnUnregistered) {
				continue
			}
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.publishWSError(roomID, conn, err)
			h.RemoveClient(roomID, conn)
		}
	}
}

// SendEvent delivers a single event to one client.
func (h *Hub) SendEvent(conn *websocket.Conn, event models.RoomEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.writeTo(conn, payload)
}

// SendSnapshot delivers the ordered message snapshot to a single client,
// typically right after it connects.
func (h *Hub) SendSnapshot(conn *websocket.Conn, msgs []models.Message) error {
	event := models.RoomEvent{Type: "snapshot", Messages: msgs}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.writeTo(conn, payload)
}

func (h *Hub) publishWSError(roomID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(roomID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        wsKind,
			"resource_id": roomID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(wsKind, "ws_error")
}

func (h *Hub) getConnInfo(roomID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[roomID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
