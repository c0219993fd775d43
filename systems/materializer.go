package systems

import (
	"context"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/assets"
	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/physics"
	"github.com/pthm-cable/spotlight/render"
	"github.com/pthm-cable/spotlight/store"
)

// ModelLoader resolves a model asset. *assets.Cache implements it.
type ModelLoader interface {
	Load(ctx context.Context, bucket, file string) (*assets.Model, error)
}

type prepared struct {
	id    string
	gen   uint64
	model *assets.Model
	err   error
}

// Materializer builds live handles for pending entities. Asset loads run
// off the loop; Poll finishes them on the loop.
type Materializer struct {
	store  *store.Store
	loader ModelLoader
	cfg    *config.Config

	results  chan prepared
	inflight map[string]uint64
	gen      uint64
}

// NewMaterializer creates a materializer and installs it on s.
func NewMaterializer(s *store.Store, loader ModelLoader, cfg *config.Config) *Materializer {
	m := &Materializer{
		store:    s,
		loader:   loader,
		cfg:      cfg,
		results:  make(chan prepared, 64),
		inflight: make(map[string]uint64),
	}
	s.SetMaterializer(m)
	return m
}

// Materialize starts materializing id. Entities without a model finish
// immediately; the rest finish in a later Poll.
func (m *Materializer) Materialize(ctx context.Context, id string) error {
	if m.store.State(id) != components.Pending {
		return nil
	}
	mc := m.store.Model(id)
	if mc == nil || m.loader == nil {
		m.finish(id, nil, nil)
		return nil
	}

	m.gen++
	gen := m.gen
	m.inflight[id] = gen
	bucket, file := mc.Bucket, mc.File
	go func() {
		model, err := m.loader.Load(ctx, bucket, file)
		select {
		case m.results <- prepared{id: id, gen: gen, model: model, err: err}:
		case <-ctx.Done():
		}
	}()
	return nil
}

// MaterializeNow loads assets inline and finishes id before returning.
func (m *Materializer) MaterializeNow(ctx context.Context, id string) {
	if m.store.State(id) != components.Pending {
		return
	}
	var model *assets.Model
	var err error
	if mc := m.store.Model(id); mc != nil && m.loader != nil {
		model, err = m.loader.Load(ctx, mc.Bucket, mc.File)
	}
	delete(m.inflight, id)
	m.finish(id, model, err)
}

// Poll finishes every completed load. Results for entities removed in the
// meantime are dropped.
func (m *Materializer) Poll() int {
	n := 0
	for {
		select {
		case p := <-m.results:
			if m.inflight[p.id] != p.gen {
				continue
			}
			delete(m.inflight, p.id)
			m.finish(p.id, p.model, p.err)
			n++
		default:
			return n
		}
	}
}

// Pending returns the number of loads in flight.
func (m *Materializer) Pending() int {
	return len(m.inflight)
}

// Forget drops any in-flight load for id.
func (m *Materializer) Forget(id string) {
	delete(m.inflight, id)
}

func (m *Materializer) finish(id string, model *assets.Model, modelErr error) {
	s := m.store
	if s.State(id) != components.Pending {
		return
	}
	// handles are built locally; attaching components below moves storage
	h := &store.Handles{}
	bodies := s.Physics()
	scene := s.Scene()

	tr := s.Transform(id)
	scale := mgl64.Vec3{1, 1, 1}
	if tr != nil && tr.Scale != (mgl64.Vec3{}) {
		scale = tr.Scale
	}

	addNode := func(n *render.Node) {
		if h.Node == nil {
			h.Node = n
			return
		}
		h.Node.Children = append(h.Node.Children, n)
	}

	mc := s.Model(id)
	if mc != nil {
		switch {
		case modelErr != nil:
			slog.Warn("model_load_failed", "id", id, "bucket", mc.Bucket, "file", mc.File, "error", modelErr)
		case model != nil:
			n := render.NewNode(id, render.NodeModel)
			n.Model = model
			addNode(n)
			scale = mc.Scale
			if tr != nil {
				tr.Scale = mc.Scale
			}
			clip := mc.Animation
			if anim := s.Animation(id); anim != nil && anim.Clip != "" {
				clip = anim.Clip
			}
			if clip != "" && model.HasClip(clip) {
				h.Mixer = render.NewMixer(model.Clips)
				h.Mixer.Play(clip)
				if s.Animation(id) == nil {
					s.Attach(id, &components.Animation{Clip: clip, Speed: 1})
				}
			}
		}
	}

	if hb := s.Hitbox(id); hb != nil {
		hs := scale
		if mc != nil {
			hs = mgl64.Vec3{1, 1, 1}
		}
		h.Body = physics.NewBox(hb.Width*hs.X(), hb.Height*hs.Y(), hb.Depth*hs.Z())
	}

	if b := s.Box(id); b != nil {
		size := mgl64.Vec3{b.Width * scale.X(), b.Height * scale.Y(), b.Depth * scale.Z()}
		n := render.NewNode(id+"/box", render.NodeBox)
		n.Size = size
		n.Color = b.Color
		addNode(n)
		if h.Body == nil {
			h.Body = physics.NewBox(size.X(), size.Y(), size.Z())
		}
	}

	if cp := s.CirclePlane(id); cp != nil {
		radius := cp.Radius * scale.X()
		n := render.NewNode(id+"/disc", render.NodeDisc)
		n.Size = mgl64.Vec3{radius, 0, float64(cp.Segments)}
		n.Color = cp.Color
		addNode(n)
		if h.Body == nil {
			h.Body = physics.NewCylinder(radius, 0.1)
		}
	}

	if ph := s.Physic(id); ph != nil {
		if ph.Mass <= 0 {
			ph.Mass = 1
		}
		if ph.Orientation == (mgl64.Quat{}) {
			ph.Orientation = mgl64.QuatIdent()
		}
		if h.Body != nil {
			h.Body.Mass = ph.Mass
			if ph.ApplyForce && s.Collision(id) != nil {
				h.Body.OnCollide = func(other *physics.Body) {
					if c := s.Collision(id); c != nil {
						c.CollideIndex = other.Index
					}
				}
			}
		}
	}

	if txt := s.Text(id); txt != nil {
		if txt.Size <= 0 {
			txt.Size = m.cfg.Arena.LabelSize
		}
		txt.ScreenX = float64(len(txt.Text)) * txt.Size * -0.2
		h.Label = &render.Label{Text: txt.Text, Size: txt.Size, Color: txt.Color, OnClick: txt.OnClick}
		scene.AddLabel(h.Label)
	}

	if spot := s.Spotlight(id); spot != nil {
		light := render.NewNode(id, render.NodeLight)
		light.Color = spot.Color
		cone := render.NewNode(id+"/cone", render.NodeCone)
		cone.Color = spot.Color
		cone.Size = mgl64.Vec3{0.3, spot.Height, 0.3}
		light.Children = append(light.Children, cone)
		addNode(light)
	}

	if s.Type(id) == nil {
		s.Attach(id, &components.Type{})
	}

	if c2 := s.Controller2(id); c2 != nil {
		c2.Speed = 0
		c2.Vector = mgl64.Vec3{}
		c2.Cooldown = 0
		c2.Clockwise = true
		if c2.MaxCooldown <= 0 {
			c2.MaxCooldown = m.cfg.Dash.MaxCooldown
		}
	}
	if sy := s.Sync(id); sy != nil {
		sy.T = 0
	}
	if d := s.Death(id); d != nil {
		d.Trigger = false
		d.KilledBy = ""
	}
	if c := s.Collision(id); c != nil {
		c.CollideIndex = components.NoCollision
	}

	if s.DevHitbox(id) != nil && h.Body != nil {
		h.Debug = render.NewNode(id+"/hitbox", render.NodeWire)
		h.Debug.Size = h.Body.HalfExtents.Mul(2)
		scene.AddNode(h.Debug)
	}

	// re-read after attaching Type or Animation
	tr = s.Transform(id)
	if h.Node != nil && tr != nil {
		h.Node.Position = tr.Position.Add(tr.Offset)
		h.Node.Rotation = eulerQuat(tr.Rotation.Add(tr.RotationOffset))
		h.Node.Scale = mgl64.Vec3{}
		tr.TimeScale = 0
		tr.TimeRotate = 0
	}
	if h.Node != nil {
		scene.AddNode(h.Node)
	}
	if h.Body != nil {
		if tr != nil {
			h.Body.Position = tr.Position
			h.Body.Quaternion = eulerQuat(tr.Rotation)
		}
		bodies.Add(h.Body)
		s.RegisterBody(h.Body.Index, id)
	}
	*s.Handles(id) = *h

	s.SetState(id, components.Materialized)
	slog.Debug("entity_materialized", "id", id, "body", h.Body != nil, "node", h.Node != nil)
}
