package ai

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/models"
)

func TestBuildContextKeepsMostRecentWindow(t *testing.T) {
	room := models.Room{ID: "r1", Name: "planning"}
	msgs := make([]models.Message, 0, 50)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		msgs = append(msgs, models.Message{
			SenderName: "alice",
			Content:    fmt.Sprintf("message %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
	}

	ctx := BuildContext(room, msgs)

	require.Len(t, ctx.RecentMessages, ContextWindowSize)
	assert.Equal(t, "message 45", ctx.RecentMessages[0].Content)
	assert.Equal(t, "message 49", ctx.RecentMessages[len(ctx.RecentMessages)-1].Content)
	assert.Equal(t, "r1", ctx.RoomID)
	assert.Equal(t, "planning", ctx.RoomName)
}

func TestBuildContextShortHistory(t *testing.T) {
	room := models.Room{ID: "r1", Name: "planning"}
	ctx := BuildContext(room, []models.Message{{SenderName: "bob", Content: "hi"}})

	require.Len(t, ctx.RecentMessages, 1)
	assert.Equal(t, "bob", ctx.RecentMessages[0].SenderName)
	assert.Equal(t, "hi", ctx.RecentMessages[0].Content)
}

func TestBuildContextEmptyHistory(t *testing.T) {
	ctx := BuildContext(models.Room{ID: "r1"}, nil)
	assert.Empty(t, ctx.RecentMessages)
}
