package realtime

import (
	"log/slog"
	"maps"
	"sort"
	"sync"
)

// DefaultInboxSize bounds each subscriber's undelivered messages.
const DefaultInboxSize = 1024

// Hub is an in-process relay. Every Channel it hands out shares the same
// topics, so several peers in one process (or behind one Server) see each
// other.
type Hub struct {
	mu        sync.Mutex
	topics    map[string]*topic
	inboxSize int
	closed    bool
	dropped   uint64
}

type topic struct {
	members  map[*hubChannel]struct{}
	presence map[string][]byte
}

// NewHub creates a hub. inboxSize <= 0 uses DefaultInboxSize.
func NewHub(inboxSize int) *Hub {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &Hub{topics: make(map[string]*topic), inboxSize: inboxSize}
}

// Channel returns a new, unsubscribed handle on topic for key.
func (h *Hub) Channel(name, key string) Channel {
	return h.channel(name, key)
}

func (h *Hub) channel(name, key string) *hubChannel {
	return &hubChannel{
		hub:   h,
		topic: name,
		key:   key,
		inbox: make(chan Message, h.inboxSize),
	}
}

// Close drops every subscriber. Later operations return ErrClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, t := range h.topics {
		for c := range t.members {
			c.subscribed = false
		}
	}
	h.topics = nil
	return nil
}

// Dropped counts messages discarded because an inbox was full.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Members returns the number of subscribers on a topic.
func (h *Hub) Members(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t := h.topics[name]; t != nil {
		return len(t.members)
	}
	return 0
}

func (h *Hub) subscribe(c *hubChannel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if c.subscribed {
		return nil
	}
	t := h.topics[c.topic]
	if t == nil {
		t = &topic{members: make(map[*hubChannel]struct{}), presence: make(map[string][]byte)}
		h.topics[c.topic] = t
	}
	t.members[c] = struct{}{}
	c.subscribed = true

	// Late joiners learn about everyone already present.
	keys := make([]string, 0, len(t.presence))
	for k := range t.presence {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.deliver(c, Message{Kind: KindPresence, Topic: c.topic, Event: EventJoin, Key: k, Payload: t.presence[k]})
	}
	h.deliver(c, h.syncMessage(c.topic, t))
	return nil
}

func (h *Hub) unsubscribe(c *hubChannel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !c.subscribed {
		return nil
	}
	c.subscribed = false
	t := h.topics[c.topic]
	if t == nil {
		return nil
	}
	delete(t.members, c)
	if c.tracked {
		c.tracked = false
		h.leave(c.topic, t, c.key)
	}
	if len(t.members) == 0 {
		delete(h.topics, c.topic)
	}
	return nil
}

func (h *Hub) track(c *hubChannel, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	t := h.topics[c.topic]
	if !c.subscribed || t == nil {
		return ErrNotSubscribed
	}
	c.tracked = true
	t.presence[c.key] = payload
	msg := Message{Kind: KindPresence, Topic: c.topic, Event: EventJoin, Key: c.key, Payload: payload}
	for m := range t.members {
		h.deliver(m, msg)
	}
	h.broadcastSync(c.topic, t)
	return nil
}

func (h *Hub) untrack(c *hubChannel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !c.tracked {
		return nil
	}
	c.tracked = false
	if t := h.topics[c.topic]; t != nil {
		h.leave(c.topic, t, c.key)
	}
	return nil
}

func (h *Hub) send(c *hubChannel, event string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	t := h.topics[c.topic]
	if !c.subscribed || t == nil {
		return ErrNotSubscribed
	}
	msg := Message{Kind: KindBroadcast, Topic: c.topic, Event: event, Key: c.key, Payload: payload}
	for m := range t.members {
		if m == c {
			continue
		}
		h.deliver(m, msg)
	}
	return nil
}

// leave must be called with h.mu held.
func (h *Hub) leave(name string, t *topic, key string) {
	if _, ok := t.presence[key]; !ok {
		return
	}
	delete(t.presence, key)
	msg := Message{Kind: KindPresence, Topic: name, Event: EventLeave, Key: key}
	for m := range t.members {
		h.deliver(m, msg)
	}
	h.broadcastSync(name, t)
}

func (h *Hub) broadcastSync(name string, t *topic) {
	for m := range t.members {
		h.deliver(m, h.syncMessage(name, t))
	}
}

func (h *Hub) syncMessage(name string, t *topic) Message {
	return Message{Kind: KindPresence, Topic: name, Event: EventSync, State: maps.Clone(t.presence)}
}

// deliver never blocks; a full inbox loses the message.
func (h *Hub) deliver(c *hubChannel, m Message) {
	c.mu.Lock()
	c.view.apply(m)
	c.mu.Unlock()
	select {
	case c.inbox <- m:
	default:
		h.dropped++
		slog.Debug("inbox_full", "topic", m.Topic, "key", c.key, "event", m.Event)
	}
}

type hubChannel struct {
	hub   *Hub
	topic string
	key   string
	inbox chan Message

	// guarded by hub.mu
	subscribed bool
	tracked    bool

	mu   sync.Mutex
	view presence
}

func (c *hubChannel) Topic() string { return c.topic }
func (c *hubChannel) Key() string   { return c.key }

func (c *hubChannel) Subscribe() error   { return c.hub.subscribe(c) }
func (c *hubChannel) Unsubscribe() error { return c.hub.unsubscribe(c) }
func (c *hubChannel) Untrack() error     { return c.hub.untrack(c) }

func (c *hubChannel) Subscribed() bool {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.subscribed
}

func (c *hubChannel) Track(payload any) error {
	b, err := Encode(payload)
	if err != nil {
		return err
	}
	return c.hub.track(c, b)
}

func (c *hubChannel) Send(event string, payload any) error {
	b, err := Encode(payload)
	if err != nil {
		return err
	}
	return c.hub.send(c, event, b)
}

func (c *hubChannel) Inbox() <-chan Message { return c.inbox }

func (c *hubChannel) PresenceState() map[string][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.snapshot()
}
