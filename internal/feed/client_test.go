package feed

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestClient builds a client without a live connection; dispatch and the
// subscription registry do not touch the socket.
func newTestClient() *Client {
	return &Client{
		logger: zap.NewNop().Sugar(),
		subs:   make(map[uint64]*subscription),
		send:   make(chan *Event, sendBufSize),
		done:   make(chan struct{}),
	}
}

func changeFor(t *testing.T, table, action string, row map[string]any) ChangePayload {
	t.Helper()
	b, err := json.Marshal(row)
	require.NoError(t, err)
	return ChangePayload{Table: table, Action: action, Row: b}
}

func TestDispatchFansOutToMatchingSubs(t *testing.T) {
	c := newTestClient()
	conversationID := uuid.NewString()

	filtered, err := c.Subscribe(Spec{
		Table:   "messages",
		Actions: []string{ActionInsert},
		Filter:  &Filter{Column: "conversation_id", Value: conversationID},
	})
	require.NoError(t, err)
	all, err := c.Subscribe(Spec{
		Table:   "messages",
		Actions: []string{ActionInsert},
	})
	require.NoError(t, err)

	c.dispatch(changeFor(t, "messages", ActionInsert, map[string]any{
		"conversation_id": conversationID,
	}))
	c.dispatch(changeFor(t, "messages", ActionInsert, map[string]any{
		"conversation_id": uuid.NewString(),
	}))

	assert.Len(t, all.Events(), 2)
	assert.Len(t, filtered.Events(), 1)

	ev := <-filtered.Events()
	assert.Equal(t, "messages", ev.Table)
	assert.Equal(t, ActionInsert, ev.Action)
}

func TestDispatchIgnoresOtherActions(t *testing.T) {
	c := newTestClient()

	sub, err := c.Subscribe(Spec{Table: "messages", Actions: []string{ActionUpdate}})
	require.NoError(t, err)

	c.dispatch(changeFor(t, "messages", ActionInsert, map[string]any{"id": uuid.NewString()}))
	assert.Empty(t, sub.Events())

	c.dispatch(changeFor(t, "messages", ActionUpdate, map[string]any{"id": uuid.NewString()}))
	assert.Len(t, sub.Events(), 1)
}

func TestDispatchDropsWhenBufferFull(t *testing.T) {
	c := newTestClient()

	sub, err := c.Subscribe(Spec{Table: "messages", Actions: []string{ActionInsert}})
	require.NoError(t, err)

	change := changeFor(t, "messages", ActionInsert, map[string]any{"id": uuid.NewString()})
	for i := 0; i < eventBufSize+10; i++ {
		c.dispatch(change)
	}

	// Overflow is dropped, not blocked on.
	assert.Len(t, sub.Events(), eventBufSize)
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	c := newTestClient()

	sub, err := c.Subscribe(Spec{Table: "messages", Actions: []string{ActionInsert}})
	require.NoError(t, err)
	sub.Close()

	// Channel is closed and the registry no longer routes to it.
	_, open := <-sub.Events()
	assert.False(t, open)
	c.dispatch(changeFor(t, "messages", ActionInsert, map[string]any{"id": uuid.NewString()}))
}

func TestSubscribeAnnouncesTopic(t *testing.T) {
	c := newTestClient()
	conversationID := uuid.NewString()

	_, err := c.Subscribe(Spec{
		Table:   "messages",
		Actions: []string{ActionInsert},
		Filter:  &Filter{Column: "conversation_id", Value: conversationID},
	})
	require.NoError(t, err)

	evt := <-c.send
	assert.Equal(t, EventTypeSubscribe, evt.Type)
	assert.Equal(t, "messages:conversation_id=eq."+conversationID, evt.Topic)
}
