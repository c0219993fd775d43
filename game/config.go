package game

import (
	"errors"

	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/netsync"
	"github.com/pthm-cable/spotlight/realtime"
	"github.com/pthm-cable/spotlight/render"
	"github.com/pthm-cable/spotlight/round"
	"github.com/pthm-cable/spotlight/systems"
	"github.com/pthm-cable/spotlight/telemetry"
)

// Options holds everything a session needs from the caller.
type Options struct {
	Config    *config.Config
	Transport realtime.Transport
	Loader    systems.ModelLoader // nil skips models
	Scene     render.Scene        // nil keeps an in-memory graph
	Output    *telemetry.OutputManager

	LocalID  string
	Player   netsync.Presence
	Host     bool
	Room     round.Room // host: room to list; guest: RoomID and Password to join
	Clock    round.Clock
	// AutoStart makes the host send play as soon as the room is full.
	AutoStart bool
}

func (o *Options) validate() error {
	if o.Config == nil {
		return errors.New("game: config is required")
	}
	if o.Transport == nil {
		return errors.New("game: transport is required")
	}
	if o.LocalID == "" {
		return errors.New("game: local id is required")
	}
	if o.Room.RoomID == "" {
		return errors.New("game: room id is required")
	}
	if o.Host && o.Room.AllowedPlayers <= 0 {
		o.Room.AllowedPlayers = o.Config.Round.AllowedPlayers
	}
	o.Player.IsHost = o.Host
	return nil
}
