package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-service/internal/ai"
	"collab-service/internal/encryption"
	"collab-service/internal/messaging"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Set("userName", "alice")
		c.Next()
	})
	r.GET("/rooms/:room_id/messages", handler.ListMessages)
	r.POST("/rooms/:room_id/messages", handler.PostMessage)
	return r
}

func TestListMessagesSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(roomRepo, messageRepo, nil, nil, nil)
	router := setupMessageRouter(handler)

	roomRepo.On("IsParticipant", mock.Anything, "r1", "u1").Return(true, nil).Once()
	messageRepo.On("ListRoomMessages", mock.Anything, "r1", messageHistoryLimit).
		Return([]models.Message{{ID: "m1", RoomID: "r1", Content: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestListMessagesNonMember(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewMessageHandler(roomRepo, new(mocks.MessageRepositoryMock), nil, nil, nil)
	router := setupMessageRouter(handler)

	roomRepo.On("IsParticipant", mock.Anything, "r1", "u1").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPostMessageSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	sender := messaging.NewSender(encryption.NewKeyring(), messageRepo, nil)
	handler := NewMessageHandler(roomRepo, messageRepo, sender, nil, nil)
	router := setupMessageRouter(handler)

	roomRepo.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1", Name: "planning"}, nil).Once()
	roomRepo.On("IsParticipant", mock.Anything, "r1", "u1").Return(true, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(data models.CreateMessage) bool {
		return data.RoomID == "r1" && data.SenderID == "u1" && data.Content == "hello" && data.Type == models.MessageTypeText
	}), false).Return(models.Message{ID: "m1", RoomID: "r1", Content: "hello"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	roomRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPostMessageNonMember(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	sender := messaging.NewSender(encryption.NewKeyring(), messageRepo, nil)
	handler := NewMessageHandler(roomRepo, messageRepo, sender, nil, nil)
	router := setupMessageRouter(handler)

	roomRepo.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1"}, nil).Once()
	roomRepo.On("IsParticipant", mock.Anything, "r1", "u1").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageRoomNotFound(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewMessageHandler(roomRepo, new(mocks.MessageRepositoryMock), nil, nil, nil)
	router := setupMessageRouter(handler)

	roomRepo.On("GetRoom", mock.Anything, "r1").Return(nil, repositories.ErrRoomNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessageEmptyContent(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewMessageHandler(roomRepo, new(mocks.MessageRepositoryMock), nil, nil, nil)
	router := setupMessageRouter(handler)

	roomRepo.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1"}, nil).Once()
	roomRepo.On("IsParticipant", mock.Anything, "r1", "u1").Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", bytes.NewBufferString(`{"content":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageTriggersAssistant(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	sender := messaging.NewSender(encryption.NewKeyring(), messageRepo, nil)

	replied := make(chan models.CreateMessage, 1)
	aiSender := new(mocks.MessageSenderMock)
	aiSender.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { replied <- args.Get(1).(models.CreateMessage) }).
		Return(models.Message{ID: "m2"}, nil).Once()

	generator := new(mocks.GeneratorMock)
	generator.On("Generate", mock.Anything, mock.Anything, "help me plan").Return("sure, here is a plan", nil).Once()

	aiSvc := ai.NewService(generator, aiSender, messageRepo, encryption.NewKeyring(), 0)
	handler := NewMessageHandler(roomRepo, messageRepo, sender, aiSvc, nil)
	router := setupMessageRouter(handler)

	roomRepo.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1", Name: "planning"}, nil).Once()
	roomRepo.On("IsParticipant", mock.Anything, "r1", "u1").Return(true, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.Anything, false).
		Return(models.Message{ID: "m1", RoomID: "r1"}, nil).Once()
	messageRepo.On("ListRoomMessages", mock.Anything, "r1", ai.ContextWindowSize).
		Return([]models.Message{}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", bytes.NewBufferString(`{"content":"@ai help me plan"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	select {
	case reply := <-replied:
		require.Equal(t, ai.SenderID, reply.SenderID)
		require.Equal(t, models.MessageTypeAI, reply.Type)
		require.Equal(t, "sure, here is a plan", reply.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an assistant reply")
	}
	generator.AssertExpectations(t)
}

func TestPostMessageAssistantDisabled(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	sender := messaging.NewSender(encryption.NewKeyring(), messageRepo, nil)

	aiSender := new(mocks.MessageSenderMock)
	aiSvc := ai.NewService(new(mocks.GeneratorMock), aiSender, messageRepo, encryption.NewKeyring(), 0)
	handler := NewMessageHandler(roomRepo, messageRepo, sender, aiSvc, nil)
	router := setupMessageRouter(handler)

	roomRepo.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1"}, nil).Once()
	roomRepo.On("IsParticipant", mock.Anything, "r1", "u1").Return(true, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.Anything, false).
		Return(models.Message{ID: "m1", RoomID: "r1"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/messages", bytes.NewBufferString(`{"content":"@ai help","ai":false}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	time.Sleep(50 * time.Millisecond)
	aiSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
