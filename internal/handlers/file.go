package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/messaging"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
	"collab-service/internal/storage"
	"collab-service/internal/telemetry"
)

// FileHandler manages room file uploads.
type FileHandler struct {
	roomRepo repositories.RoomRepository
	store    storage.BlobStore
	sender   *messaging.Sender
	audit    *telemetry.AuditEmitter
}

// NewFileHandler builds a FileHandler.
func NewFileHandler(roomRepo repositories.RoomRepository, store storage.BlobStore, sender *messaging.Sender, audit *telemetry.AuditEmitter) *FileHandler {
	return &FileHandler{
		roomRepo: roomRepo,
		store:    store,
		sender:   sender,
		audit:    audit,
	}
}

// UploadFile stores a file and emits a file message in the room. The size
// cap is enforced before anything is written.
func (h *FileHandler) UploadFile(c *gin.Context) {
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

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > storage.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 10MB limit"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer src.Close()

	info, err := h.store.Save(c.Request.Context(), roomID, header.Filename, src)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 10MB limit"})
			return
		}
		h.emitAudit(c, "ERROR", "file upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store file"})
		return
	}

	msg, err := h.sender.Send(c.Request.Context(), models.CreateMessage{
		RoomID:       roomID,
		SenderID:     userID,
		SenderName:   c.GetString("userName"),
		SenderAvatar: avatarFromContext(c),
		Content:      info.Name,
		Type:         models.MessageTypeFile,
		FileURL:      &info.URL,
		FileName:     &info.Name,
		FileType:     &info.ContentType,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "file message persist failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file message"})
		return
	}

	h.emitAudit(c, "INFO", "File shared")
	c.JSON(http.StatusCreated, msg)
}

func (h *FileHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c), roomIDFromContext(c))
}
