// Package realtime is the unreliable pub/sub transport peers meet on.
// Topics carry two kinds of traffic: presence (who is here, with a small
// payload per peer) and broadcast (fire-and-forget events). Delivery is
// best effort: a full inbox drops messages.
package realtime

import (
	"errors"
	"maps"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrClosed is returned by operations on a closed connection or hub.
	ErrClosed = errors.New("realtime: closed")
	// ErrNotSubscribed is returned when sending or tracking before Subscribe.
	ErrNotSubscribed = errors.New("realtime: not subscribed")
)

// Kind separates presence traffic from broadcast traffic.
type Kind uint8

const (
	KindPresence Kind = iota
	KindBroadcast
)

func (k Kind) String() string {
	switch k {
	case KindPresence:
		return "presence"
	case KindBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Presence events.
const (
	EventSync  = "sync"
	EventJoin  = "join"
	EventLeave = "leave"
)

// Message is what a subscriber receives. For presence, Event is sync, join
// or leave; Key is the peer the event concerns and State holds the full
// snapshot on sync. For broadcast, Event is the application event name and
// Key is the sender.
type Message struct {
	Kind    Kind              `msgpack:"kind"`
	Topic   string            `msgpack:"topic"`
	Event   string            `msgpack:"event"`
	Key     string            `msgpack:"key,omitempty"`
	Payload []byte            `msgpack:"payload,omitempty"`
	State   map[string][]byte `msgpack:"state,omitempty"`
}

// Decode unpacks the message payload into v.
func (m Message) Decode(v any) error {
	return Decode(m.Payload, v)
}

// Encode packs an application payload.
func Encode(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return msgpack.Marshal(v)
}

// Decode unpacks an application payload.
func Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// Transport opens channels. key is the local peer's presence key.
type Transport interface {
	Channel(topic, key string) Channel
}

// Channel is one peer's handle on a topic.
type Channel interface {
	Topic() string
	Key() string
	Subscribe() error
	Unsubscribe() error
	Subscribed() bool
	Track(payload any) error
	Untrack() error
	Send(event string, payload any) error
	Inbox() <-chan Message
	// PresenceState returns the last known payload per present peer.
	PresenceState() map[string][]byte
}

// presence is a channel's local view of who is present, updated as
// presence messages are delivered.
type presence struct {
	state map[string][]byte
}

func (p *presence) apply(m Message) {
	if m.Kind != KindPresence {
		return
	}
	if p.state == nil {
		p.state = make(map[string][]byte)
	}
	switch m.Event {
	case EventSync:
		p.state = maps.Clone(m.State)
		if p.state == nil {
			p.state = make(map[string][]byte)
		}
	case EventJoin:
		p.state[m.Key] = m.Payload
	case EventLeave:
		delete(p.state, m.Key)
	}
}

func (p *presence) snapshot() map[string][]byte {
	out := make(map[string][]byte, len(p.state))
	maps.Copy(out, p.state)
	return out
}
