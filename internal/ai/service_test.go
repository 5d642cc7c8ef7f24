package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-service/internal/encryption"
	"collab-service/internal/mocks"
	"collab-service/internal/models"
)

func TestGenerateResponseWithoutGenerator(t *testing.T) {
	svc := NewService(nil, new(mocks.MessageSenderMock), new(mocks.MessageRepositoryMock), encryption.NewKeyring(), 0)

	got := svc.GenerateResponse(context.Background(), "hello", Context{})
	assert.Equal(t, FallbackResponse, got)
}

func TestGenerateResponseGeneratorError(t *testing.T) {
	generator := new(mocks.GeneratorMock)
	generator.On("Generate", mock.Anything, mock.Anything, "hello").Return("", errors.New("upstream down")).Once()

	svc := NewService(generator, new(mocks.MessageSenderMock), new(mocks.MessageRepositoryMock), encryption.NewKeyring(), 0)

	got := svc.GenerateResponse(context.Background(), "hello", Context{})
	assert.Equal(t, FallbackResponse, got)
	generator.AssertExpectations(t)
}

func TestGenerateResponseIncludesRoomContext(t *testing.T) {
	generator := new(mocks.GeneratorMock)
	var system string
	generator.On("Generate", mock.Anything, mock.Anything, "what did bob say").
		Run(func(args mock.Arguments) { system = args.String(1) }).
		Return("bob asked about the deadline", nil).Once()

	svc := NewService(generator, new(mocks.MessageSenderMock), new(mocks.MessageRepositoryMock), encryption.NewKeyring(), 0)

	aiCtx := Context{
		RoomName: "planning",
		RecentMessages: []ContextMessage{
			{SenderName: "bob", Content: "when is the deadline?"},
		},
	}
	got := svc.GenerateResponse(context.Background(), "what did bob say", aiCtx)

	assert.Equal(t, "bob asked about the deadline", got)
	assert.Contains(t, system, `chat room called "planning"`)
	assert.Contains(t, system, "bob: when is the deadline?")
	generator.AssertExpectations(t)
}

func TestSendResponseEmitsOneMessage(t *testing.T) {
	generator := new(mocks.GeneratorMock)
	generator.On("Generate", mock.Anything, mock.Anything, "hello").Return("hi there", nil).Once()

	sender := new(mocks.MessageSenderMock)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(data models.CreateMessage) bool {
		return data.SenderID == SenderID &&
			data.SenderName == SenderName &&
			data.Type == models.MessageTypeAI &&
			data.Content == "hi there"
	})).Return(models.Message{ID: "m1"}, nil).Once()

	svc := NewService(generator, sender, new(mocks.MessageRepositoryMock), encryption.NewKeyring(), 0)
	svc.SendResponse(context.Background(), "room-1", "hello", Context{})

	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestSendResponsePersistFailureFallback(t *testing.T) {
	generator := new(mocks.GeneratorMock)
	generator.On("Generate", mock.Anything, mock.Anything, "hello").Return("hi there", nil).Once()

	sender := new(mocks.MessageSenderMock)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(data models.CreateMessage) bool {
		return data.Content == "hi there"
	})).Return(nil, errors.New("db down")).Once()
	sender.On("Send", mock.Anything, mock.MatchedBy(func(data models.CreateMessage) bool {
		return data.Content == PersistFailureResponse
	})).Return(models.Message{ID: "m2"}, nil).Once()

	svc := NewService(generator, sender, new(mocks.MessageRepositoryMock), encryption.NewKeyring(), 0)
	svc.SendResponse(context.Background(), "room-1", "hello", Context{})

	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Send", 2)
}

func TestRespondDecryptsContextWindow(t *testing.T) {
	ring := encryption.NewKeyring()
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	ring.Set("room-1", key)

	ciphertext, err := encryption.Encrypt("secret plan", key)
	require.NoError(t, err)

	messages := new(mocks.MessageRepositoryMock)
	messages.On("ListRoomMessages", mock.Anything, "room-1", ContextWindowSize).Return([]models.Message{
		{SenderName: "alice", Content: ciphertext, IsEncrypted: true},
	}, nil).Once()

	generator := new(mocks.GeneratorMock)
	var system string
	generator.On("Generate", mock.Anything, mock.Anything, "what is the plan").
		Run(func(args mock.Arguments) { system = args.String(1) }).
		Return("the plan is secret", nil).Once()

	sender := new(mocks.MessageSenderMock)
	sender.On("Send", mock.Anything, mock.Anything).Return(models.Message{ID: "m1"}, nil).Once()

	svc := NewService(generator, sender, messages, ring, 0)
	svc.Respond(context.Background(), models.Room{ID: "room-1", Name: "planning"}, "what is the plan")

	assert.Contains(t, system, "alice: secret plan")
	messages.AssertExpectations(t)
	generator.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestRespondContextLoadFailureStillReplies(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	messages.On("ListRoomMessages", mock.Anything, "room-1", ContextWindowSize).Return(nil, errors.New("db down")).Once()

	generator := new(mocks.GeneratorMock)
	generator.On("Generate", mock.Anything, mock.Anything, "hello").Return("hi", nil).Once()

	sender := new(mocks.MessageSenderMock)
	sender.On("Send", mock.Anything, mock.Anything).Return(models.Message{ID: "m1"}, nil).Once()

	svc := NewService(generator, sender, messages, encryption.NewKeyring(), 0)
	svc.Respond(context.Background(), models.Room{ID: "room-1"}, "hello")

	sender.AssertExpectations(t)
}
