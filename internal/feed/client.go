package feed

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 64
	eventBufSize = 256
)

// Feed is the consumer-facing contract of the change-subscription API.
type Feed interface {
	Subscribe(spec Spec) (Stream, error)
}

// Stream delivers the row events of one subscription. Delivery is
// at-least-once and best effort: a full buffer drops the event, and a
// connectivity gap can drop events silently. Consumers must reconcile by
// polling and must not assume feed completeness.
type Stream interface {
	Events() <-chan RowEvent
	Close()
}

// Client is a websocket connection to the change-subscription service,
// multiplexing any number of logical subscriptions.
type Client struct {
	conn   *websocket.Conn
	logger *zap.SugaredLogger

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64

	send      chan *Event
	done      chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	id     uint64
	spec   Spec
	events chan RowEvent
	client *Client
}

func (s *subscription) Events() <-chan RowEvent { return s.events }

func (s *subscription) Close() { s.client.unsubscribe(s.id) }

// Dial connects and starts the read/write pumps. Auth is done via ?token=xxx
// query param (WebSocket can't send headers).
func Dial(ctx context.Context, rawURL, token string, logger *zap.SugaredLogger) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		logger: logger,
		subs:   make(map[uint64]*subscription),
		send:   make(chan *Event, sendBufSize),
		done:   make(chan struct{}),
	}

	go c.readPump()
	go c.writePump()

	return c, nil
}

// Subscribe registers a logical subscription and announces it to the server.
func (c *Client) Subscribe(spec Spec) (Stream, error) {
	evt, err := NewEvent(EventTypeSubscribe, spec.Topic(), spec)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.nextID++
	sub := &subscription{
		id:     c.nextID,
		spec:   spec,
		events: make(chan RowEvent, eventBufSize),
		client: c,
	}
	c.subs[sub.id] = sub
	c.mu.Unlock()

	c.enqueue(evt)
	return sub, nil
}

func (c *Client) unsubscribe(id uint64) {
	c.mu.Lock()
	sub, ok := c.subs[id]
	if ok {
		delete(c.subs, id)
		close(sub.events)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	evt, err := NewEvent(EventTypeUnsubscribe, sub.spec.Topic(), nil)
	if err != nil {
		return
	}
	c.enqueue(evt)
}

// Close tears down the connection and every open subscription.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close(websocket.StatusNormalClosure, "")

		c.mu.Lock()
		for id, sub := range c.subs {
			delete(c.subs, id)
			close(sub.events)
		}
		c.mu.Unlock()
	})
}

func (c *Client) enqueue(evt *Event) {
	select {
	case c.send <- evt:
	case <-c.done:
	}
}

func (c *Client) readPump() {
	defer c.Close()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.CloseStatus(err) != -1 {
					c.logger.Infow("feed: connection closed")
				} else {
					c.logger.Warnw("feed: read error", "error", err)
				}
			}
			return
		}

		switch event.Type {
		case EventTypeChange:
			var change ChangePayload
			if err := json.Unmarshal(event.Payload, &change); err != nil {
				c.logger.Warnw("feed: bad change payload", "error", err)
				continue
			}
			c.dispatch(change)

		case EventTypePong:
			// keepalive reply, nothing to do

		case EventTypeError:
			c.logger.Warnw("feed: server error event", "payload", string(event.Payload))
		}
	}
}

// dispatch fans a change out to every matching subscription. A subscriber
// that cannot keep up loses the event; the poll fallback picks the row up.
func (c *Client) dispatch(change ChangePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		if !sub.spec.Matches(change) {
			continue
		}
		select {
		case sub.events <- RowEvent{Table: change.Table, Action: change.Action, Row: change.Row}:
		default:
			c.logger.Warnw("feed: subscriber buffer full, dropping event",
				"table", change.Table, "action", change.Action)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := wsjson.Write(ctx, c.conn, evt)
			cancel()
			if err != nil {
				c.logger.Warnw("feed: write error", "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.logger.Warnw("feed: ping error", "error", err)
				c.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}
