package systems

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/store"
)

// death resolves an armed trigger. A holder with a recorded killer hands
// the spotlight over and broadcasts its final score.
func (t *Tick) death(id string) {
	d := t.store.Death(id)
	if !d.Trigger {
		return
	}
	killer := d.KilledBy
	d.Trigger = false
	d.KilledBy = ""

	if d.OnDeath != components.DeathTransferSpotlight || killer == "" || killer == id {
		return
	}
	spot := t.store.Spotlight(store.SpotlightID)
	if spot == nil || spot.FollowID != id {
		return
	}
	var final float64
	if sc := t.store.Score(id); sc != nil {
		final = sc.Score
	}
	// the attacker may have left between the hit and this tick
	if !ApplySpotlightTransfer(t.store, killer, id, final) {
		slog.Debug("spotlight_killer_gone", "holder", id, "killer", killer)
		return
	}
	t.emit.EmitSpotlightTransfer(killer, id, final)
	slog.Info("spotlight_transferred", "from", id, "to", killer, "score", final)
}

// score accrues holding time.
func (t *Tick) score(id string) {
	sc := t.store.Score(id)
	if sc.Trigger {
		sc.Score += t.dt
	}
}

// spotlight keeps the light above the followed entity.
func (t *Tick) spotlight(id string) {
	spot := t.store.Spotlight(id)
	h := t.store.Handles(id)
	if spot.FollowID == "" || h.Node == nil {
		return
	}
	target := t.store.Transform(spot.FollowID)
	if target == nil {
		return
	}
	pos := target.Position.Add(mgl64.Vec3{0, spot.Height, 0})
	if tr := t.store.Transform(id); tr != nil {
		tr.Position = pos
	}
	h.Node.Position = pos
}
