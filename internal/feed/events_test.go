package feed

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecTopic(t *testing.T) {
	plain := Spec{Table: "messages", Actions: []string{ActionInsert}}
	assert.Equal(t, "messages", plain.Topic())

	filtered := Spec{
		Table:   "messages",
		Actions: []string{ActionInsert},
		Filter:  &Filter{Column: "conversation_id", Value: "abc-123"},
	}
	assert.Equal(t, "messages:conversation_id=eq.abc-123", filtered.Topic())
}

func TestSpecMatchesTableAndAction(t *testing.T) {
	spec := Spec{Table: "messages", Actions: []string{ActionInsert, ActionUpdate}}

	row, _ := json.Marshal(map[string]any{"id": uuid.NewString()})
	assert.True(t, spec.Matches(ChangePayload{Table: "messages", Action: ActionInsert, Row: row}))
	assert.True(t, spec.Matches(ChangePayload{Table: "messages", Action: ActionUpdate, Row: row}))
	assert.False(t, spec.Matches(ChangePayload{Table: "messages", Action: ActionDelete, Row: row}))
	assert.False(t, spec.Matches(ChangePayload{Table: "conversations", Action: ActionInsert, Row: row}))
}

func TestSpecMatchesRowFilter(t *testing.T) {
	conversationID := uuid.NewString()
	spec := Spec{
		Table:   "messages",
		Actions: []string{ActionInsert},
		Filter:  &Filter{Column: "conversation_id", Value: conversationID},
	}

	matching, _ := json.Marshal(map[string]any{"conversation_id": conversationID})
	assert.True(t, spec.Matches(ChangePayload{Table: "messages", Action: ActionInsert, Row: matching}))

	other, _ := json.Marshal(map[string]any{"conversation_id": uuid.NewString()})
	assert.False(t, spec.Matches(ChangePayload{Table: "messages", Action: ActionInsert, Row: other}))

	missing, _ := json.Marshal(map[string]any{"id": uuid.NewString()})
	assert.False(t, spec.Matches(ChangePayload{Table: "messages", Action: ActionInsert, Row: missing}))
}

func TestRowEventDecodeInto(t *testing.T) {
	type row struct {
		ID      uuid.UUID `json:"id"`
		Content string    `json:"content"`
	}
	want := row{ID: uuid.New(), Content: "hello"}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	var got row
	ev := RowEvent{Table: "messages", Action: ActionInsert, Row: raw}
	require.NoError(t, ev.DecodeInto(&got))
	assert.Equal(t, want, got)
}

func TestNewEventCarriesPayload(t *testing.T) {
	spec := Spec{Table: "messages", Actions: []string{ActionInsert}}
	ev, err := NewEvent(EventTypeSubscribe, spec.Topic(), spec)
	require.NoError(t, err)
	assert.Equal(t, EventTypeSubscribe, ev.Type)
	assert.Equal(t, "messages", ev.Topic)
	assert.NotZero(t, ev.Timestamp)

	var decoded Spec
	require.NoError(t, json.Unmarshal(ev.Payload, &decoded))
	assert.Equal(t, spec.Table, decoded.Table)
	assert.Equal(t, spec.Actions, decoded.Actions)
}

func TestEventEnvelopeRoundTrip(t *testing.T) {
	change := ChangePayload{
		Table:  "messages",
		Action: ActionInsert,
		Row:    json.RawMessage(`{"id":"x"}`),
	}
	payload, err := json.Marshal(change)
	require.NoError(t, err)

	raw, err := json.Marshal(Event{Type: EventTypeChange, Payload: payload, Timestamp: 1700000000})
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, EventTypeChange, ev.Type)

	var got ChangePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &got))
	assert.Equal(t, "messages", got.Table)
	assert.Equal(t, ActionInsert, got.Action)
}
