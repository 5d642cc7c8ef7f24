package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-service/internal/mocks"
	"collab-service/internal/telemetry"
)

func TestEmitBuildsRoomScopedEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	var envelope telemetry.AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.events", mock.AnythingOfType("telemetry.AuditEnvelope")).
		Run(func(args mock.Arguments) { envelope = args.Get(2).(telemetry.AuditEnvelope) }).
		Return(nil).Once()

	emitter := telemetry.NewAuditEmitter(publisher, "audit.events", "collab-service", "test")
	userID := "u1"
	roomID := "r1"
	emitter.Emit(context.Background(), "INFO", "Room created", "req-1", &userID, &roomID)

	require.Equal(t, 1, envelope.SchemaVersion)
	require.Equal(t, "audit_log", envelope.EventType)
	require.Equal(t, "collab-service", envelope.Service)
	require.Equal(t, "test", envelope.Environment)
	require.Equal(t, "req-1", envelope.RequestID)
	require.NotNil(t, envelope.UserID)
	require.Equal(t, "u1", *envelope.UserID)
	require.NotNil(t, envelope.RoomID)
	require.Equal(t, "r1", *envelope.RoomID)
	require.Equal(t, "INFO", envelope.Payload.Level)
	require.Equal(t, "Room created", envelope.Payload.Text)
	require.NotEmpty(t, envelope.OccurredAt)
	publisher.AssertExpectations(t)
}

func TestEmitOmitsMissingScope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	var envelope telemetry.AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.events", mock.Anything).
		Run(func(args mock.Arguments) { envelope = args.Get(2).(telemetry.AuditEnvelope) }).
		Return(nil).Once()

	emitter := telemetry.NewAuditEmitter(publisher, "audit.events", "collab-service", "test")
	emitter.Emit(context.Background(), "ERROR", "internal error", "req-2", nil, nil)

	require.Nil(t, envelope.UserID)
	require.Nil(t, envelope.RoomID)
}

func TestEmitToleratesPublishFailure(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit.events", mock.Anything).
		Return(errors.New("broker down")).Once()

	emitter := telemetry.NewAuditEmitter(publisher, "audit.events", "collab-service", "test")
	emitter.Emit(context.Background(), "INFO", "Room joined", "req-3", nil, nil)
	publisher.AssertExpectations(t)
}

func TestEmitNilSafe(t *testing.T) {
	var emitter *telemetry.AuditEmitter
	emitter.Emit(context.Background(), "INFO", "noop", "req-4", nil, nil)

	telemetry.NewAuditEmitter(nil, "audit.events", "collab-service", "test").
		Emit(context.Background(), "INFO", "noop", "req-4", nil, nil)
}
