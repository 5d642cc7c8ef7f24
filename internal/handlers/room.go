package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/keys"
	"collab-service/internal/repositories"
	"collab-service/internal/telemetry"
)

// RoomHandler manages room lifecycle and key endpoints.
type RoomHandler struct {
	roomRepo repositories.RoomRepository
	keys     *keys.Service
	audit    *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(roomRepo repositories.RoomRepository, keySvc *keys.Service, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{
		roomRepo: roomRepo,
		keys:     keySvc,
		audit:    audit,
	}
}

// CreateRoom creates a room with the caller as sole participant and
// provisions its shared key.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	room, err := h.roomRepo.CreateRoom(c.Request.Context(), req.Name, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "room creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	if _, err := h.keys.Ensure(c.Request.Context(), room.ID); err != nil {
		h.emitAudit(c, "ERROR", "room key provisioning failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not provision room key"})
		return
	}

	h.emitAudit(c, "INFO", "Room created")
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// ListRooms returns the active rooms the caller participates in.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := c.GetString("userID")

	rooms, err := h.roomRepo.ListRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// JoinRoom adds the caller to the room matching the submitted code.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomRepo.GetRoomByCode(c.Request.Context(), req.Code)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}

	userID := c.GetString("userID")
	if err := h.roomRepo.AddParticipant(c.Request.Context(), room.ID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join room"})
		return
	}

	alreadyIn := false
	for _, participant := range room.Participants {
		if participant == userID {
			alreadyIn = true
			break
		}
	}
	if !alreadyIn {
		room.Participants = append(room.Participants, userID)
	}
	h.emitAudit(c, "INFO", "Room joined")
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// LeaveRoom removes the caller from the room's participants.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("userID")

	if _, err := h.roomRepo.GetRoom(c.Request.Context(), roomID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}

	if err := h.roomRepo.RemoveParticipant(c.Request.Context(), roomID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave room"})
		return
	}

	// The stored key survives for remaining members; only this process's
	// cache entry is dropped.
	h.keys.Forget(roomID)
	h.emitAudit(c, "INFO", "Room left")
	c.Status(http.StatusNoContent)
}

// DeleteRoom soft-deactivates a room. Owner only.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("userID")

	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}
	if room.CreatedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the room creator can delete it"})
		return
	}

	if err := h.roomRepo.Deactivate(c.Request.Context(), roomID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete room"})
		return
	}

	h.keys.Forget(roomID)
	h.emitAudit(c, "INFO", "Room deactivated")
	c.Status(http.StatusNoContent)
}

// GetRoomKey returns the room's shared key to a participant. While the
// creator's key has not been stored yet, joiners see 404 and retry.
func (h *RoomHandler) GetRoomKey(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("userID")

	member, err := h.roomRepo.IsParticipant(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	key, err := h.keys.Lookup(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, keys.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room key not available yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key})
}

// RotateRoomKey replaces the room key in place. Owner only.
func (h *RoomHandler) RotateRoomKey(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("userID")

	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}
	if room.CreatedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the room creator can rotate the key"})
		return
	}

	key, err := h.keys.Rotate(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not rotate room key"})
		return
	}

	h.emitAudit(c, "INFO", "Room key rotated")
	c.JSON(http.StatusOK, gin.H{"key": key})
}

func (h *RoomHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c), roomIDFromContext(c))
}
