package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types - Client → Server
const (
	EventTypeSubscribe   = "subscribe"
	EventTypeUnsubscribe = "unsubscribe"
	EventTypePing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeChange = "change"
	EventTypePong   = "pong"
	EventTypeError  = "error"
)

// Change actions carried in a ChangePayload.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Event is the base envelope for all feed messages.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// Filter narrows a subscription to rows whose column equals value.
type Filter struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Spec describes one logical subscription: a table, the actions of
// interest, and an optional row filter.
type Spec struct {
	Table   string   `json:"table"`
	Actions []string `json:"actions"`
	Filter  *Filter  `json:"filter,omitempty"`
}

// Topic is the channel name the spec subscribes on.
func (s Spec) Topic() string {
	if s.Filter != nil {
		return fmt.Sprintf("%s:%s=eq.%s", s.Table, s.Filter.Column, s.Filter.Value)
	}
	return s.Table
}

// Matches reports whether a change event belongs to this subscription. The
// row filter compares the column's JSON value in string form.
func (s Spec) Matches(change ChangePayload) bool {
	if change.Table != s.Table {
		return false
	}
	actionOK := false
	for _, a := range s.Actions {
		if a == change.Action {
			actionOK = true
			break
		}
	}
	if !actionOK {
		return false
	}
	if s.Filter == nil {
		return true
	}

	var row map[string]any
	if err := json.Unmarshal(change.Row, &row); err != nil {
		return false
	}
	val, ok := row[s.Filter.Column]
	if !ok {
		return false
	}
	return fmt.Sprint(val) == s.Filter.Value
}

// ChangePayload is the server→client notification body: the raw changed row
// with foreign keys only, no joined data.
type ChangePayload struct {
	Table  string          `json:"table"`
	Action string          `json:"action"`
	Row    json.RawMessage `json:"row"`
}

// RowEvent is what subscribers receive.
type RowEvent struct {
	Table  string
	Action string
	Row    json.RawMessage
}

// DecodeInto unmarshals the raw row into a domain row type.
func (e RowEvent) DecodeInto(v any) error {
	return json.Unmarshal(e.Row, v)
}

// NewEvent creates a client→server event with the current timestamp.
func NewEvent(eventType, topic string, payload any) (*Event, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return &Event{
		Type:      eventType,
		Topic:     topic,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
