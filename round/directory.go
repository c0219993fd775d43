package round

import (
	"log/slog"
	"sort"

	"github.com/pthm-cable/spotlight/realtime"
)

// DirectoryTopic is the presence channel rooms are listed on.
const DirectoryTopic = "rooms"

// Room is a listed room. The host tracks it on the directory channel.
type Room struct {
	AllowedPlayers int    `msgpack:"allowed_players"`
	CurrentPlayers int    `msgpack:"current_players"`
	RoomID         string `msgpack:"room_id"`
	Password       string `msgpack:"password"`
	RoomName       string `msgpack:"room_name"`
	HostID         string `msgpack:"host_id"`
}

// Full reports whether the room is at capacity.
func (r Room) Full() bool { return r.CurrentPlayers >= r.AllowedPlayers }

// Directory lists open rooms.
type Directory struct {
	ch     realtime.Channel
	hosted *Room
}

// NewDirectory opens the directory for key.
func NewDirectory(t realtime.Transport, key string) *Directory {
	return &Directory{ch: t.Channel(DirectoryTopic, key)}
}

// Open subscribes to the listing.
func (d *Directory) Open() error {
	if d.ch.Subscribed() {
		return nil
	}
	return d.ch.Subscribe()
}

// Close unlists any hosted room and unsubscribes.
func (d *Directory) Close() error {
	if !d.ch.Subscribed() {
		return nil
	}
	if d.hosted != nil {
		_ = d.ch.Untrack()
		d.hosted = nil
	}
	return d.ch.Unsubscribe()
}

// Host lists room under this peer's key.
func (d *Directory) Host(room Room) error {
	if err := d.ch.Track(room); err != nil {
		return err
	}
	d.hosted = &room
	slog.Info("room_hosted", "room", room.RoomID, "name", room.RoomName, "allowed", room.AllowedPlayers)
	return nil
}

// UpdatePlayers re-tracks the hosted room with a new player count.
func (d *Directory) UpdatePlayers(current int) error {
	if d.hosted == nil || d.hosted.CurrentPlayers == current {
		return nil
	}
	room := *d.hosted
	room.CurrentPlayers = current
	return d.Host(room)
}

// Drain discards queued directory traffic; Rooms reads presence state.
func (d *Directory) Drain() {
	for {
		select {
		case <-d.ch.Inbox():
		default:
			return
		}
	}
}

// Rooms returns every listed room ordered by id.
func (d *Directory) Rooms() []Room {
	var rooms []Room
	for key, payload := range d.ch.PresenceState() {
		var r Room
		if err := realtime.Decode(payload, &r); err != nil {
			slog.Debug("bad_room", "key", key, "error", err)
			continue
		}
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomID < rooms[j].RoomID })
	return rooms
}

// Find looks up a room a guest may join.
func (d *Directory) Find(roomID, password string) (Room, error) {
	for _, r := range d.Rooms() {
		if r.RoomID != roomID {
			continue
		}
		if r.Password != "" && r.Password != password {
			return Room{}, ErrBadPassword
		}
		if r.Full() {
			return Room{}, ErrRoomFull
		}
		return r, nil
	}
	return Room{}, ErrNoRoom
}
