package systems

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/spotlight/components"
)

// sync emits a transform broadcast each time the accumulator crosses the
// configured interval. The remainder carries over so the rate holds when
// the tick length does not divide the interval; at most one broadcast
// goes out per tick.
func (t *Tick) sync(id string) {
	sy := t.store.Sync(id)
	tr := t.store.Transform(id)
	if tr == nil {
		return
	}
	sy.T += t.dt
	if sy.T < t.cfg.Sync.Interval {
		return
	}
	sy.T = math.Mod(sy.T, t.cfg.Sync.Interval)
	t.emit.EmitTransform(id, *tr)
}

// collision consumes the pending opponent. Knockback only applies while
// the initiator is giving input.
func (t *Tick) collision(id string) {
	col := t.store.Collision(id)
	index := col.CollideIndex
	col.CollideIndex = components.NoCollision
	if index == components.NoCollision || !t.keys.Any() {
		return
	}

	other, ok := t.store.BodyOwner(index)
	if !ok || other == id || t.store.TypeName(other) != "player" {
		return
	}
	self, target := t.store.Transform(id), t.store.Transform(other)
	if self == nil || target == nil {
		return
	}

	fallback := facing(self.Rotation.Y())
	k := Knockback{
		ID:    other,
		Push:  horizontal(target.Position.Sub(self.Position), fallback),
		Force: col.Force,
		From:  id,
	}

	meta := t.store.Meta(other)
	if (meta != nil && meta.Remote) || t.store.Has(other, components.KindSync) {
		t.emit.EmitKnockback(k)
		slog.Debug("knockback_sent", "from", id, "to", other, "force", k.Force)
		return
	}
	// local-only opponent
	ApplyKnockback(t.store, t.cfg.Knockback.Displacement, k)
	slog.Debug("knockback_applied", "from", id, "to", other, "force", k.Force)
}
