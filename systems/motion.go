package systems

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/components"
)

// transform pulls the pose from the body and eases the render node toward
// the target. Progress only grows and stops at 1.
func (t *Tick) transform(id string) {
	tr := t.store.Transform(id)
	h := t.store.Handles(id)
	if h.Body != nil {
		tr.Position = h.Body.Position
	}

	if n := h.Node; n != nil {
		target := tr.Position.Add(tr.Offset)
		rot := eulerQuat(tr.Rotation.Add(tr.RotationOffset))
		if tr.TimeScale < 1 {
			n.Scale = lerpVec(n.Scale, tr.Scale, tr.TimeScale)
			n.Position = lerpVec(n.Position, target, tr.TimeScale)
		} else {
			n.Scale = tr.Scale
			n.Position = target
		}
		if tr.TimeRotate < 1 {
			n.Rotation = nlerp(n.Rotation, rot, tr.TimeRotate)
		} else {
			n.Rotation = rot
		}
	}

	cfg := t.cfg.Transform
	tr.TimeScale = math.Min(1, tr.TimeScale+cfg.ScaleStep*t.scale)
	tr.TimeRotate = math.Min(1, tr.TimeRotate+cfg.RotateStep*t.scale)
}

// resetRotation restarts rotation smoothing and tells peers when synced.
func (t *Tick) resetRotation(id string, tr *components.Transform) {
	tr.TimeRotate = 0
	if t.store.Has(id, components.KindSync) {
		t.emit.EmitRotateReset(id)
	}
}

// controller turns held arrows into velocity. A fresh press restarts
// rotation smoothing.
func (t *Tick) controller(id string) {
	c := t.store.Controller(id)
	ph := t.store.Physic(id)
	tr := t.store.Transform(id)
	if ph == nil || tr == nil {
		return
	}
	keys, prev := t.keys, c.Previous
	accel, shake := t.cfg.Controller.Accel, t.cfg.Controller.CameraAccel

	pressed := false
	if keys.Left {
		ph.Vel[0] -= accel
		ph.CamVel[0] -= shake
		pressed = pressed || !prev.Left
	}
	if keys.Right {
		ph.Vel[0] += accel
		ph.CamVel[0] += shake
		pressed = pressed || !prev.Right
	}
	if keys.Up {
		ph.Vel[2] -= accel
		ph.CamVel[2] -= shake
		pressed = pressed || !prev.Up
	}
	if keys.Down {
		ph.Vel[2] += accel
		ph.CamVel[2] += shake
		pressed = pressed || !prev.Down
	}
	if pressed {
		t.resetRotation(id, tr)
	}
	c.Previous = keys

	if ph.Static && keys.Any() {
		flat := mgl64.Vec3{ph.Vel.X(), 0, ph.Vel.Z()}
		if flat.Len() > 1e-9 {
			tr.Rotation[1] = math.Atan2(flat.X(), flat.Z())
		}
	}
}

// controller2 is dash locomotion: forward dashes along the facing, the
// burst decays under cooldown and regrows after; idle spins in place.
func (t *Tick) controller2(id string) {
	c := t.store.Controller2(id)
	ph := t.store.Physic(id)
	tr := t.store.Transform(id)
	if ph == nil || tr == nil {
		return
	}
	cfg := t.cfg.Dash

	if t.keys.Up {
		if c.Cooldown <= 0 {
			c.Vector = facing(tr.Rotation.Y())
			c.Speed = cfg.Speed
			c.Cooldown = c.MaxCooldown
			c.Clockwise = !c.Clockwise
			ph.CamVel = ph.CamVel.Add(c.Vector.Mul(cfg.CameraShake))
			t.resetRotation(id, tr)
			slog.Debug("dash", "id", id, "yaw", tr.Rotation.Y())
		}
		ph.Vel = ph.Vel.Add(c.Vector.Mul(c.Speed))
	} else {
		dir := 1.0
		if !c.Clockwise {
			dir = -1
		}
		tr.Rotation[1] += dir * cfg.YawRate * t.scale
	}

	if c.Cooldown > 0 {
		c.Cooldown = math.Max(0, c.Cooldown-t.scale)
		c.Speed *= math.Pow(cfg.Decay, t.scale)
	} else if c.Speed < cfg.Speed {
		c.Speed = math.Min(cfg.Speed, c.Speed+cfg.Regrow*t.scale)
	}
	c.Previous = t.keys
}

// physic writes intent into the body, damps velocity and recovers bodies
// that fell through the floor.
func (t *Tick) physic(id string) {
	ph := t.store.Physic(id)
	tr := t.store.Transform(id)
	body := t.store.Handles(id).Body

	if body != nil {
		if ph.Static && tr != nil {
			ph.Orientation = eulerQuat(tr.Rotation)
			body.Quaternion = ph.Orientation
		}
		body.Velocity = mgl64.Vec3{ph.Vel.X(), body.Velocity.Y() + ph.Vel.Y(), ph.Vel.Z()}
	}

	ph.Vel = ph.Vel.Mul(t.cfg.Decay.Velocity)
	ph.CamVel = ph.CamVel.Mul(t.cfg.Decay.Camera)

	if body == nil || body.Position.Y() >= t.cfg.Physics.FloorY {
		return
	}
	r := t.cfg.Physics.Respawn
	spawn := mgl64.Vec3{r.X, r.Y, r.Z}
	body.Position = spawn
	body.Velocity = mgl64.Vec3{}
	ph.Vel = mgl64.Vec3{}
	if tr != nil {
		tr.Position = spawn
	}
	if d := t.store.Death(id); d != nil {
		d.Trigger = true
	}
	slog.Info("floor_recovered", "id", id)
}
