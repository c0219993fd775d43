package systems

import "github.com/go-gl/mathgl/mgl64"

// devHitbox mirrors the body into its wire node.
func (t *Tick) devHitbox(id string) {
	h := t.store.Handles(id)
	if h.Debug != nil && h.Body != nil {
		h.Debug.Position = h.Body.Position
	}
}

// animation advances the bound clip.
func (t *Tick) animation(id string) {
	a := t.store.Animation(id)
	h := t.store.Handles(id)
	if h.Mixer == nil {
		return
	}
	h.Mixer.Play(a.Clip)
	speed := a.Speed
	if speed == 0 {
		speed = 1
	}
	h.Mixer.Update(t.dt * speed)
}

// camera looks at the entity from a fixed offset plus shake.
func (t *Tick) camera(id string) {
	c := t.store.Camera(id)
	tr := t.store.Transform(id)
	if tr == nil || t.cam == nil {
		return
	}
	eye := tr.Position.Add(c.Offset)
	if ph := t.store.Physic(id); ph != nil {
		eye = eye.Add(ph.CamVel)
	}
	t.cam.LookAt(eye, tr.Position)
}

// camera2 trails behind the entity's facing.
func (t *Tick) camera2(id string) {
	c := t.store.Camera2(id)
	tr := t.store.Transform(id)
	if tr == nil || t.cam == nil {
		return
	}
	back := facing(tr.Rotation.Y()).Mul(-c.Distance)
	eye := tr.Position.Add(back).Add(mgl64.Vec3{0, c.Height, 0})
	if ph := t.store.Physic(id); ph != nil {
		eye = eye.Add(ph.CamVel)
	}
	t.cam.LookAt(eye, tr.Position)
}

// text projects the label anchor into screen space.
func (t *Tick) text(id string) {
	txt := t.store.Text(id)
	tr := t.store.Transform(id)
	h := t.store.Handles(id)
	if tr == nil || h.Label == nil || t.cam == nil {
		return
	}
	sx, sy, visible := t.cam.WorldToScreen(tr.Position.Add(txt.Offset))
	h.Label.Text = txt.Text
	h.Label.X = sx + txt.ScreenX
	h.Label.Y = sy
	h.Label.Visible = visible
}
