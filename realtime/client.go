package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// ClientConfig tunes a relay connection.
type ClientConfig struct {
	InboxSize    int
	WriteTimeout time.Duration
	ReadLimit    int64
}

// Conn is a websocket connection to a relay Server.
type Conn struct {
	ws  *websocket.Conn
	cfg ClientConfig

	writeMu sync.Mutex

	mu       sync.Mutex
	channels map[string]*wsChannel
	closed   bool
	done     chan struct{}
}

// Dial connects to a relay.
func Dial(ctx context.Context, url string, cfg ClientConfig) (*Conn, error) {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if cfg.ReadLimit > 0 {
		ws.SetReadLimit(cfg.ReadLimit)
	}
	c := &Conn{
		ws:       ws,
		cfg:      cfg,
		channels: make(map[string]*wsChannel),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Channel returns a handle on topic. One handle exists per topic; asking
// again returns the same one.
func (c *Conn) Channel(topic, key string) Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.channels[topic]; ok {
		return ch
	}
	ch := &wsChannel{conn: c, topic: topic, key: key, inbox: make(chan Message, c.cfg.InboxSize)}
	c.channels[topic] = ch
	return ch
}

// Done is closed when the read loop stops.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close shuts the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.ws.Close()
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				slog.Warn("relay_lost", "error", err)
			}
			return
		}
		var m Message
		if err := msgpack.Unmarshal(data, &m); err != nil {
			slog.Warn("relay_bad_message", "error", err)
			continue
		}
		c.mu.Lock()
		ch := c.channels[m.Topic]
		c.mu.Unlock()
		if ch == nil {
			continue
		}
		ch.deliver(m)
	}
}

func (c *Conn) write(f Frame) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	data, err := msgpack.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

type wsChannel struct {
	conn  *Conn
	topic string
	key   string
	inbox chan Message

	mu         sync.Mutex
	subscribed bool
	view       presence
}

func (ch *wsChannel) Topic() string { return ch.topic }
func (ch *wsChannel) Key() string   { return ch.key }

func (ch *wsChannel) Subscribe() error {
	ch.mu.Lock()
	ch.subscribed = true
	ch.mu.Unlock()
	if err := ch.conn.write(Frame{Op: OpSubscribe, Topic: ch.topic, Key: ch.key}); err != nil {
		ch.mu.Lock()
		ch.subscribed = false
		ch.mu.Unlock()
		return err
	}
	return nil
}

func (ch *wsChannel) Unsubscribe() error {
	ch.mu.Lock()
	was := ch.subscribed
	ch.subscribed = false
	ch.view = presence{}
	ch.mu.Unlock()
	if !was {
		return nil
	}
	return ch.conn.write(Frame{Op: OpUnsubscribe, Topic: ch.topic})
}

func (ch *wsChannel) Subscribed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.subscribed
}

func (ch *wsChannel) Track(payload any) error {
	if !ch.Subscribed() {
		return ErrNotSubscribed
	}
	b, err := Encode(payload)
	if err != nil {
		return err
	}
	return ch.conn.write(Frame{Op: OpTrack, Topic: ch.topic, Payload: b})
}

func (ch *wsChannel) Untrack() error {
	if !ch.Subscribed() {
		return nil
	}
	return ch.conn.write(Frame{Op: OpUntrack, Topic: ch.topic})
}

func (ch *wsChannel) Send(event string, payload any) error {
	if !ch.Subscribed() {
		return ErrNotSubscribed
	}
	b, err := Encode(payload)
	if err != nil {
		return err
	}
	return ch.conn.write(Frame{Op: OpSend, Topic: ch.topic, Event: event, Payload: b})
}

func (ch *wsChannel) Inbox() <-chan Message { return ch.inbox }

func (ch *wsChannel) PresenceState() map[string][]byte {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.view.snapshot()
}

func (ch *wsChannel) deliver(m Message) {
	ch.mu.Lock()
	if !ch.subscribed {
		ch.mu.Unlock()
		return
	}
	ch.view.apply(m)
	ch.mu.Unlock()
	select {
	case ch.inbox <- m:
	default:
		slog.Debug("inbox_full", "topic", m.Topic, "event", m.Event)
	}
}
