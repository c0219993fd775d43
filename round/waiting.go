package round

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/pthm-cable/spotlight/netsync"
	"github.com/pthm-cable/spotlight/realtime"
)

// RoomTopic names a room's waiting channel.
func RoomTopic(roomID string) string { return "room_" + roomID }

// GameTopic names a round's game channel.
func GameTopic(roundID string) string { return "game" + roundID }

// SummaryTopic names a round's summary channel.
func SummaryTopic(roundID string) string { return "summary_" + roundID }

// Waiting is a room's presence channel where players gather until the
// host sends play.
type Waiting struct {
	ch   realtime.Channel
	play string
}

// NewWaiting opens the waiting channel of roomID for key.
func NewWaiting(t realtime.Transport, roomID, key string) *Waiting {
	return &Waiting{ch: t.Channel(RoomTopic(roomID), key)}
}

// Enter subscribes and announces the player.
func (w *Waiting) Enter(p netsync.Presence) error {
	if err := w.ch.Subscribe(); err != nil {
		return err
	}
	return w.ch.Track(p)
}

// Leave untracks and unsubscribes. Calling it again does nothing.
func (w *Waiting) Leave() error {
	if !w.ch.Subscribed() {
		return nil
	}
	_ = w.ch.Untrack()
	return w.ch.Unsubscribe()
}

// Count returns the number of players present.
func (w *Waiting) Count() int { return len(w.ch.PresenceState()) }

// Drain consumes queued traffic and returns the round id once play has
// arrived.
func (w *Waiting) Drain() (string, bool) {
	for {
		select {
		case m := <-w.ch.Inbox():
			if m.Kind != realtime.KindBroadcast || m.Event != netsync.EventPlay {
				continue
			}
			var p netsync.Play
			if err := m.Decode(&p); err != nil || p.UUID == "" {
				slog.Warn("bad_play", "from", m.Key, "error", err)
				continue
			}
			w.play = p.UUID
		default:
			return w.play, w.play != ""
		}
	}
}

// Play mints a round id and sends it to everyone waiting.
func (w *Waiting) Play() (string, error) {
	id := uuid.NewString()
	if err := w.ch.Send(netsync.EventPlay, netsync.Play{UUID: id}); err != nil {
		return "", err
	}
	w.play = id
	slog.Info("round_play", "round", id, "players", w.Count())
	return id, nil
}
