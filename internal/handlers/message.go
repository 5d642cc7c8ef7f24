package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/ai"
	"collab-service/internal/messaging"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
	"collab-service/internal/telemetry"
)

const messageHistoryLimit = 100

// MessageHandler manages room message endpoints.
type MessageHandler struct {
	roomRepo    repositories.RoomRepository
	messageRepo repositories.MessageRepository
	sender      *messaging.Sender
	aiSvc       *ai.Service
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(roomRepo repositories.RoomRepository, messageRepo repositories.MessageRepository, sender *messaging.Sender, aiSvc *ai.Service, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		sender:      sender,
		aiSvc:       aiSvc,
		audit:       audit,
	}
}

// ListMessages returns the room's most recent messages in ascending
// timestamp order, in their persisted (possibly ciphertext) form.
func (h *MessageHandler) ListMessages(c *gin.Context) {
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

	msgs, err := h.messageRepo.ListRoomMessages(c.Request.Context(), roomID, messageHistoryLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a room message, broadcasts it, and spawns an assistant
// turn when the content addresses the assistant.
func (h *MessageHandler) PostMessage(c *gin.Context) {
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

	member, err := h.roomRepo.IsParticipant(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
		AI      *bool  `json:"ai"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.sender.Send(c.Request.Context(), models.CreateMessage{
		RoomID:       roomID,
		SenderID:     userID,
		SenderName:   c.GetString("userName"),
		SenderAvatar: avatarFromContext(c),
		Content:      req.Content,
		Type:         models.MessageTypeText,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "message persist failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	aiEnabled := req.AI == nil || *req.AI
	if aiEnabled && h.aiSvc != nil && ai.ShouldTrigger(req.Content) {
		prompt := ai.ExtractPrompt(req.Content)
		// Detached from the request so a closed connection cannot cancel
		// the assistant turn mid-flight.
		go h.aiSvc.Respond(context.Background(), room, prompt)
	}

	c.JSON(http.StatusCreated, msg)
}

func avatarFromContext(c *gin.Context) *string {
	if avatar := c.GetString("userAvatar"); avatar != "" {
		return &avatar
	}
	return nil
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c), roomIDFromContext(c))
}
