package notify

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

func TestStreamPublisherAppends(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := NewStreamPublisher(client, "")
	ctx := context.Background()

	err := p.Publish(ctx, model.DeviceNotification{
		ID:               "n-1",
		ScreenID:         "scr-a",
		NotificationType: model.NotificationPlaylistChange,
		Title:            "Playlist updated",
		Priority:         3,
		Payload:          []byte(`{"action":"updated"}`),
	})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "scr-a", msgs[0].Values["screen_id"])
	assert.Equal(t, "playlist_change", msgs[0].Values["type"])
	assert.Equal(t, "3", msgs[0].Values["priority"])
	assert.Equal(t, `{"action":"updated"}`, msgs[0].Values["payload"])
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "screens/abc/notifications", Topic("abc"))
}
