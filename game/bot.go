package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/netsync"
	"github.com/pthm-cable/spotlight/round"
	"github.com/pthm-cable/spotlight/store"
)

// DefaultBotAim is the heading slack within which a bot dashes.
const DefaultBotAim = 0.35

// Bot drives a player with arrow keys: it chases the spotlight holder, or
// runs from the nearest player while holding the spotlight itself.
type Bot struct {
	ID  string
	Aim float64 // radians
}

// Keys returns the keys to hold this tick. Idle outside an active round.
func (b Bot) Keys(g *Game) components.Keys {
	if g == nil || g.machine.State() != round.Active {
		return components.Keys{}
	}
	s := g.Store()
	me := s.Transform(b.ID)
	spot := s.Spotlight(store.SpotlightID)
	if me == nil || spot == nil {
		return components.Keys{}
	}

	var dir mgl64.Vec3
	if spot.FollowID == b.ID {
		other, ok := nearestPlayer(s, b.ID, me.Position)
		if !ok {
			return components.Keys{}
		}
		dir = me.Position.Sub(other)
	} else {
		target := s.Transform(spot.FollowID)
		if target == nil {
			return components.Keys{}
		}
		dir = target.Position.Sub(me.Position)
	}
	dir[1] = 0
	if dir.Len() < 1e-6 {
		return components.Keys{Up: true}
	}

	aim := b.Aim
	if aim <= 0 {
		aim = DefaultBotAim
	}
	want := math.Atan2(dir.X(), dir.Z())
	return components.Keys{Up: math.Abs(wrapAngle(want-me.Rotation.Y())) < aim}
}

// nearestPlayer returns the position of the closest player other than self.
func nearestPlayer(s *store.Store, self string, from mgl64.Vec3) (mgl64.Vec3, bool) {
	best, found := math.Inf(1), false
	var pos mgl64.Vec3
	for _, id := range s.IDs() {
		if id == self || s.TypeName(id) != netsync.TypePlayer {
			continue
		}
		tr := s.Transform(id)
		if tr == nil {
			continue
		}
		if d := tr.Position.Sub(from).Len(); d < best {
			best, pos, found = d, tr.Position, true
		}
	}
	return pos, found
}

// wrapAngle maps a to [-pi, pi].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
