package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeapp/forge-server/internal/domain"
)

func receive(t *testing.T, c *Client) (Event, bool) {
	t.Helper()
	select {
	case ev := <-c.Events:
		return ev, true
	case <-time.After(200 * time.Millisecond):
		return Event{}, false
	}
}

func TestManager_DeliversOnlyToSameSpace(t *testing.T) {
	m := NewManager(nil)

	a, err := m.Subscribe("space-a", "user-1")
	require.NoError(t, err)
	b, err := m.Subscribe("space-b", "user-2")
	require.NoError(t, err)

	m.broadcast(NewCardEvent(EventCardCreated, &domain.Card{SpaceID: "space-a", Title: "x"}))

	ev, ok := receive(t, a)
	require.True(t, ok)
	assert.Equal(t, EventCardCreated, ev.Type)
	assert.Equal(t, "space-a", ev.SpaceID)

	_, ok = receive(t, b)
	assert.False(t, ok, "space-b must not see space-a events")
}

func TestManager_HeartbeatReachesEveryone(t *testing.T) {
	m := NewManager(nil)

	a, err := m.Subscribe("space-a", "user-1")
	require.NoError(t, err)
	b, err := m.Subscribe("space-b", "user-2")
	require.NoError(t, err)

	m.broadcast(NewHeartbeatEvent())

	_, ok := receive(t, a)
	assert.True(t, ok)
	_, ok = receive(t, b)
	assert.True(t, ok)
}

func TestManager_StartAndShutdown(t *testing.T) {
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	c, err := m.Subscribe("space-a", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Emit(NewDeletedEvent("space-a", EventPageDeleted, "page-1"))
	ev, ok := receive(t, c)
	require.True(t, ok)
	assert.Equal(t, EventPageDeleted, ev.Type)
	assert.Equal(t, "page-1", ev.Data.(DeletedEventData).ID)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Second)
	defer cancelShutdown()
	require.NoError(t, m.Shutdown(shutdownCtx))
	assert.Equal(t, 0, m.ClientCount())

	// Emitting after shutdown is a no-op.
	m.Emit(NewDeletedEvent("space-a", EventPageDeleted, "page-2"))
}

func TestManager_DropsEventsWithoutSpace(t *testing.T) {
	m := NewManager(nil)

	m.Emit(Event{Type: EventCardCreated})
	assert.Empty(t, m.queue)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager(nil)

	c, err := m.Subscribe("space-a", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.SpaceClientCount("space-a"))
	m.Unsubscribe(c)
	m.Unsubscribe(c)

	assert.Equal(t, 0, m.ClientCount())
	assert.Equal(t, 0, m.SpaceClientCount("space-a"))
	_, open := <-c.Done
	assert.False(t, open)
}
