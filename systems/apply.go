package systems

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/store"
)

// Knockback is a push delivered to one target.
type Knockback struct {
	ID    string // target
	Push  mgl64.Vec3
	Force float64
	From  string // attacker
}

// Emitter publishes simulation events to peers.
type Emitter interface {
	EmitTransform(id string, tr components.Transform)
	EmitRotateReset(id string)
	EmitKnockback(k Knockback)
	EmitSpotlightTransfer(next, prev string, score float64)
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) EmitTransform(string, components.Transform)     {}
func (NopEmitter) EmitRotateReset(string)                         {}
func (NopEmitter) EmitKnockback(Knockback)                        {}
func (NopEmitter) EmitSpotlightTransfer(string, string, float64) {}

// ApplySpotlightTransfer makes next the only scoring entity, freezes prev
// at score and points the spotlight at next. Applying it twice is a no-op.
// It reports false and changes nothing when next is not a scoring entity.
func ApplySpotlightTransfer(s *store.Store, next, prev string, score float64) bool {
	if !s.Has(next, components.KindScore) {
		return false
	}
	for id, sc := range s.Scores() {
		want := id == next
		if sc.Trigger == want {
			continue
		}
		if ptr := s.Score(id); ptr != nil {
			ptr.Trigger = want
		}
	}
	if sc := s.Score(prev); sc != nil && prev != next {
		sc.Trigger = false
		sc.Score = score
	}
	if spot := s.Spotlight(store.SpotlightID); spot != nil {
		spot.FollowID = next
	}
	return true
}

// InitSpotlight gives the spotlight to holder when nobody holds it yet.
func InitSpotlight(s *store.Store, holder string) bool {
	spot := s.Spotlight(store.SpotlightID)
	if spot == nil || spot.FollowID != "" {
		return false
	}
	spot.FollowID = holder
	if sc := s.Score(holder); sc != nil {
		sc.Trigger = true
	}
	slog.Info("spotlight_initialized", "holder", holder)
	return true
}

// ApplyKnockback displaces target by push scaled with force and records
// the attacker so the death system can transfer the spotlight.
func ApplyKnockback(s *store.Store, displacement float64, k Knockback) bool {
	tr := s.Transform(k.ID)
	if tr == nil {
		return false
	}
	d := k.Push.Mul(k.Force * displacement)
	tr.Position = tr.Position.Add(d)
	if h := s.Handles(k.ID); h != nil && h.Body != nil {
		h.Body.Position = h.Body.Position.Add(d)
	}
	if ph := s.Physic(k.ID); ph != nil {
		ph.CamVel = ph.CamVel.Add(d.Mul(0.1))
	}
	if death := s.Death(k.ID); death != nil && k.From != "" {
		death.KilledBy = k.From
		death.Trigger = true
	}
	return true
}

// ApplyRemoteTransform overwrites a remote entity's body pose and transform.
func ApplyRemoteTransform(s *store.Store, id string, pos, rot, scale mgl64.Vec3) bool {
	tr := s.Transform(id)
	if tr == nil {
		return false
	}
	tr.Position = pos
	tr.Rotation = rot
	tr.Scale = scale
	if h := s.Handles(id); h != nil && h.Body != nil {
		h.Body.Position = pos
		h.Body.Quaternion = eulerQuat(rot)
	}
	return true
}

// ResetRotation restarts rotation smoothing for id.
func ResetRotation(s *store.Store, id string) bool {
	tr := s.Transform(id)
	if tr == nil {
		return false
	}
	tr.TimeRotate = 0
	return true
}
