package ws

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"collab-service/internal/keys"
	"collab-service/internal/middleware"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
)

const snapshotLimit = 100

// RoomWebSocketHandler handles room websocket connections. On connect the
// client receives a snapshot of the room's recent messages, then incremental
// message events as they are broadcast.
type RoomWebSocketHandler struct {
	hub       *Hub
	rooms     repositories.RoomRepository
	messages  repositories.MessageRepository
	keys      *keys.Service
	jwtSecret string
}

// NewRoomWebSocketHandler constructs a RoomWebSocketHandler. A nil key
// service disables key-rotation notifications.
func NewRoomWebSocketHandler(hub *Hub, rooms repositories.RoomRepository, messages repositories.MessageRepository, keySvc *keys.Service, jwtSecret string) *RoomWebSocketHandler {
	return &RoomWebSocketHandler{hub: hub, rooms: rooms, messages: messages, keys: keySvc, jwtSecret: jwtSecret}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client with the hub.
func (h *RoomWebSocketHandler) Handle(c *gin.Context) {
	roomID := c.Param("room_id")

	ctx, span := otel.Tracer("collab-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	identity, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if _, err := h.rooms.GetRoom(ctx, roomID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}

	member, err := h.rooms.IsParticipant(ctx, roomID, identity.UserID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(roomID, conn, info)

	observability.IncWSActive(wsKind)
	observability.IncWSEvent(wsKind, "ws_connect")
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(roomID, "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	// Initial snapshot: the most recent messages, ascending.
	if msgs, err := h.messages.ListRoomMessages(ctx, roomID, snapshotLimit); err == nil {
		if err := h.hub.SendSnapshot(conn, msgs); err != nil {
			h.hub.RemoveClient(roomID, conn)
			observability.DecWSActive(wsKind)
			conn.Close()
			return
		}
	}

	// Forward key rotations so clients refetch the room key. The key
	// material itself never travels over the socket.
	cancelKeySub := func() {}
	if h.keys != nil {
		updates, cancel := h.keys.Subscribe(roomID)
		cancelKeySub = cancel
		go func() {
			for range updates {
				if err := h.hub.SendEvent(conn, models.RoomEvent{Type: "key_rotated"}); err != nil {
					return
				}
			}
		}()
	}

	// Keep connection alive and clean on close.
	go func() {
		var closeReason string
		defer func() {
			cancelKeySub()
			h.hub.RemoveClient(roomID, conn)
			observability.DecWSActive(wsKind)
			observability.IncWSEvent(wsKind, "ws_disconnect")
			_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   wsEventPayload(roomID, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(wsKind, "ws_error")
					_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   wsEventPayload(roomID, "ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
					}, observability.BuildHeaders(requestID, traceID))
				}
				return
			}
		}
	}()
}

func (h *RoomWebSocketHandler) validateToken(header string) (middleware.Identity, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return middleware.ParseToken(h.jwtSecret, parts[1])
	}
	return middleware.Identity{}, errors.New("invalid token")
}

func wsEventPayload(roomID, event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        wsKind,
			"resource_id": roomID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
