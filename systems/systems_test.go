package systems

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/assets"
	"github.com/pthm-cable/spotlight/camera"
	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/physics"
	"github.com/pthm-cable/spotlight/render"
	"github.com/pthm-cable/spotlight/store"
)

type recorder struct {
	transforms []string
	resets     []string
	knockbacks []Knockback
	transfers  [][3]any
}

func (r *recorder) EmitTransform(id string, _ components.Transform) {
	r.transforms = append(r.transforms, id)
}
func (r *recorder) EmitRotateReset(id string) { r.resets = append(r.resets, id) }
func (r *recorder) EmitKnockback(k Knockback) { r.knockbacks = append(r.knockbacks, k) }
func (r *recorder) EmitSpotlightTransfer(next, prev string, score float64) {
	r.transfers = append(r.transfers, [3]any{next, prev, score})
}

type fakeLoader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeLoader) Load(_ context.Context, bucket, file string) (*assets.Model, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &assets.Model{Key: assets.Key(bucket, file), Clips: []string{"Idle", "Run"}}, nil
}

type harness struct {
	cfg    *config.Config
	store  *store.Store
	bodies *physics.World
	graph  *render.Graph
	mat    *Materializer
	tick   *Tick
	rec    *recorder
}

func newHarness(t *testing.T, loader ModelLoader) *harness {
	t.Helper()
	cfg := config.Default()
	bodies := physics.NewWorld(mgl64.Vec3{0, cfg.Physics.Gravity, 0}, cfg.Physics.DT)
	graph := render.NewGraph()
	s := store.New(bodies, graph)
	cam := camera.New(cfg.Derived.ScreenW, cfg.Derived.ScreenH, cfg.Camera.FovY, cfg.Camera.Near, cfg.Camera.Far)
	rec := &recorder{}
	return &harness{
		cfg:    cfg,
		store:  s,
		bodies: bodies,
		graph:  graph,
		mat:    NewMaterializer(s, loader, cfg),
		tick:   NewTick(s, cam, cfg, rec),
		rec:    rec,
	}
}

func (h *harness) spawn(t *testing.T, id string, comps ...components.Descriptor) {
	t.Helper()
	if _, err := h.store.Create(id); err != nil {
		t.Fatal(err)
	}
	for _, c := range comps {
		if err := h.store.Attach(id, c); err != nil {
			t.Fatal(err)
		}
	}
	h.mat.MaterializeNow(context.Background(), id)
	if h.store.State(id) != components.Materialized {
		t.Fatalf("%s not materialized", id)
	}
}

func (h *harness) run(n int, dt float64, keys components.Keys) {
	for i := 0; i < n; i++ {
		h.tick.Update(dt, keys)
	}
}

func TestSmoothingConvergesWithoutOvershoot(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, "crate",
		&components.Transform{Position: mgl64.Vec3{1, 0, 0}, Rotation: mgl64.Vec3{0, 1.2, 0}, Scale: mgl64.Vec3{2, 2, 2}},
		&components.Box{Width: 1, Height: 1, Depth: 1},
	)

	dt := h.cfg.Transform.ReferenceDT
	prevScale, prevRotate := -1.0, -1.0
	for i := 0; i < 150; i++ {
		h.tick.Update(dt, components.Keys{})
		tr := h.store.Transform("crate")
		if tr.TimeScale < prevScale || tr.TimeRotate < prevRotate {
			t.Fatalf("tick %d: progress decreased (%f,%f) -> (%f,%f)", i, prevScale, prevRotate, tr.TimeScale, tr.TimeRotate)
		}
		if tr.TimeScale > 1 || tr.TimeRotate > 1 {
			t.Fatalf("tick %d: progress overshot (%f,%f)", i, tr.TimeScale, tr.TimeRotate)
		}
		prevScale, prevRotate = tr.TimeScale, tr.TimeRotate
	}

	tr := h.store.Transform("crate")
	if tr.TimeScale != 1 || tr.TimeRotate != 1 {
		t.Errorf("progress = (%f,%f), want (1,1)", tr.TimeScale, tr.TimeRotate)
	}

	h.tick.Update(dt, components.Keys{})
	node := h.store.Handles("crate").Node
	if node.Scale != tr.Scale {
		t.Errorf("node scale %v, want %v", node.Scale, tr.Scale)
	}
	want := eulerQuat(tr.Rotation)
	if !node.Rotation.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("node rotation %v, want %v", node.Rotation, want)
	}
	if !node.Position.ApproxEqual(tr.Position) {
		t.Errorf("node position %v, want %v", node.Position, tr.Position)
	}
}

func TestPhysicDecay(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, "p",
		components.NewTransform(mgl64.Vec3{0, 0, 0}),
		&components.Hitbox{Width: 0.25, Height: 0.3, Depth: 0.25},
		&components.Physic{Vel: mgl64.Vec3{1, 0, 2}, CamVel: mgl64.Vec3{1, 1, 1}},
	)

	tests := []int{1, 5, 10}
	done := 0
	for _, n := range tests {
		t.Run(fmt.Sprintf("ticks_%d", n), func(t *testing.T) {
			h.run(n-done, h.cfg.Physics.DT, components.Keys{})
			done = n
			ph := h.store.Physic("p")
			want := math.Pow(0.8, float64(n))
			if math.Abs(ph.Vel.X()-want) > 1e-9 || math.Abs(ph.Vel.Z()-2*want) > 1e-9 {
				t.Errorf("vel = %v, want (%f,0,%f)", ph.Vel, want, 2*want)
			}
			wantCam := math.Pow(0.95, float64(n))
			if math.Abs(ph.CamVel.Y()-wantCam) > 1e-9 {
				t.Errorf("cam vel y = %f, want %f", ph.CamVel.Y(), wantCam)
			}
		})
	}
}

func TestControllerPressResetsRotation(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, "me",
		components.NewTransform(mgl64.Vec3{}),
		&components.Physic{Static: true},
		&components.Controller{},
		&components.Sync{},
	)
	h.store.Transform("me").TimeRotate = 0.5

	h.tick.Update(h.cfg.Physics.DT, components.Keys{Left: true})

	tr := h.store.Transform("me")
	if tr.TimeRotate != 0 {
		t.Errorf("time_rotate = %f, want 0 after press", tr.TimeRotate)
	}
	if len(h.rec.resets) != 1 {
		t.Fatalf("got %d rotate resets, want 1", len(h.rec.resets))
	}
	ph := h.store.Physic("me")
	if math.Abs(ph.Vel.X()-(-0.1*0.8)) > 1e-9 {
		t.Errorf("vel x = %f, want %f", ph.Vel.X(), -0.08)
	}
	if math.Abs(ph.CamVel.X()-(-0.005*0.95)) > 1e-9 {
		t.Errorf("cam vel x = %f, want %f", ph.CamVel.X(), -0.005*0.95)
	}
	if tr.Rotation.Y() >= 0 {
		t.Errorf("static body should face -x, yaw = %f", tr.Rotation.Y())
	}

	// held, not pressed
	h.tick.Update(h.cfg.Physics.DT, components.Keys{Left: true})
	if len(h.rec.resets) != 1 {
		t.Errorf("held key emitted another reset")
	}
}

func TestDashCooldown(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, "me",
		components.NewTransform(mgl64.Vec3{}),
		&components.Physic{},
		&components.Controller2{},
	)
	c := h.store.Controller2("me")
	if c.MaxCooldown != 36 || !c.Clockwise {
		t.Fatalf("defaults = %+v", c)
	}

	dt := h.cfg.Transform.ReferenceDT
	h.tick.Update(dt, components.Keys{Up: true})
	c = h.store.Controller2("me")
	if c.Cooldown != 35 {
		t.Errorf("cooldown = %f, want 35", c.Cooldown)
	}
	if c.Clockwise {
		t.Error("dash did not toggle spin direction")
	}
	if math.Abs(c.Vector.Z()-1) > 1e-9 {
		t.Errorf("dash vector = %v, want +z at yaw 0", c.Vector)
	}
	first := c.Speed

	h.tick.Update(dt, components.Keys{Up: true})
	if h.store.Controller2("me").Speed >= first {
		t.Error("speed did not decay under cooldown")
	}

	yaw := h.store.Transform("me").Rotation.Y()
	h.tick.Update(dt, components.Keys{})
	if got := h.store.Transform("me").Rotation.Y(); math.Abs(got-(yaw-h.cfg.Dash.YawRate)) > 1e-9 {
		t.Errorf("idle yaw = %f, want %f", got, yaw-h.cfg.Dash.YawRate)
	}
}

func TestSyncCadence(t *testing.T) {
	tests := []struct {
		name  string
		dt    float64
		ticks int
	}{
		{"30hz", 1.0 / 30.0, 300},
		{"60hz", 1.0 / 60.0, 600},
		{"uneven", 0.035, 286},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.spawn(t, "me", components.NewTransform(mgl64.Vec3{}), &components.Sync{})

			h.run(tt.ticks, tt.dt, components.Keys{})
			elapsed := float64(tt.ticks) * tt.dt
			rate := float64(len(h.rec.transforms)) / elapsed
			want := 1 / h.cfg.Sync.Interval
			if math.Abs(rate-want) > 0.2 {
				t.Errorf("%.2f broadcasts/s over %.1fs, want %.0f", rate, elapsed, want)
			}
		})
	}
}

func TestSyncCadenceLongTick(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, "me", components.NewTransform(mgl64.Vec3{}), &components.Sync{})

	h.run(10, 0.2, components.Keys{})
	if len(h.rec.transforms) != 10 {
		t.Errorf("emitted %d transforms in 10 long ticks, want 10", len(h.rec.transforms))
	}
	if got := h.store.Sync("me").T; got >= h.cfg.Sync.Interval {
		t.Errorf("accumulator = %f, want below interval", got)
	}
}

func spawnPlayer(t *testing.T, h *harness, id string, x float64, extra ...components.Descriptor) {
	comps := []components.Descriptor{
		components.NewTransform(mgl64.Vec3{x, 0, 0}),
		&components.Hitbox{Width: 0.25, Height: 0.3, Depth: 0.25},
		&components.Type{Name: "player"},
	}
	h.spawn(t, id, append(comps, extra...)...)
}

func TestKnockbackConsumedOnce(t *testing.T) {
	h := newHarness(t, nil)
	spawnPlayer(t, h, "a", 0,
		&components.Physic{ApplyForce: true},
		components.NewCollision(0.8),
		&components.Sync{},
	)
	h.store.Create("b")
	h.store.Meta("b").Remote = true
	h.store.Attach("b", components.NewTransform(mgl64.Vec3{2, 0, 0}))
	h.store.Attach("b", &components.Hitbox{Width: 0.25, Height: 0.3, Depth: 0.25})
	h.store.Attach("b", &components.Type{Name: "player"})
	h.mat.MaterializeNow(context.Background(), "b")

	body := h.store.Handles("b").Body
	h.store.Collision("a").CollideIndex = body.Index

	h.tick.Update(h.cfg.Physics.DT, components.Keys{Right: true})

	if got := h.store.Collision("a").CollideIndex; got != components.NoCollision {
		t.Errorf("collide index = %d, want consumed", got)
	}
	if len(h.rec.knockbacks) != 1 {
		t.Fatalf("got %d knockbacks, want 1", len(h.rec.knockbacks))
	}
	k := h.rec.knockbacks[0]
	if k.ID != "b" || k.From != "a" || k.Force != 0.8 {
		t.Errorf("knockback = %+v", k)
	}
	if math.Abs(k.Push.Len()-1) > 1e-9 || k.Push.X() <= 0 || k.Push.Y() != 0 {
		t.Errorf("push = %v, want unit +x", k.Push)
	}

	h.tick.Update(h.cfg.Physics.DT, components.Keys{Right: true})
	if len(h.rec.knockbacks) != 1 {
		t.Error("knockback emitted twice for one contact")
	}
}

func TestKnockbackNeedsInput(t *testing.T) {
	h := newHarness(t, nil)
	spawnPlayer(t, h, "a", 0, &components.Physic{}, components.NewCollision(1))
	spawnPlayer(t, h, "b", 2, &components.Sync{})

	h.store.Collision("a").CollideIndex = h.store.Handles("b").Body.Index
	h.tick.Update(h.cfg.Physics.DT, components.Keys{})

	if len(h.rec.knockbacks) != 0 {
		t.Error("idle initiator emitted knockback")
	}
	if h.store.Collision("a").CollideIndex != components.NoCollision {
		t.Error("flag not cleared")
	}
}

func TestKnockbackLocalOpponentDisplaced(t *testing.T) {
	h := newHarness(t, nil)
	spawnPlayer(t, h, "a", 0, &components.Physic{}, components.NewCollision(1))
	spawnPlayer(t, h, "dummy", 2)

	before := h.store.Handles("dummy").Body.Position.X()
	h.store.Collision("a").CollideIndex = h.store.Handles("dummy").Body.Index
	h.tick.Update(h.cfg.Physics.DT, components.Keys{Left: true})

	if len(h.rec.knockbacks) != 0 {
		t.Error("local opponent should not produce a broadcast")
	}
	after := h.store.Handles("dummy").Body.Position.X()
	if math.Abs(after-before-h.cfg.Knockback.Displacement) > 1e-6 {
		t.Errorf("dummy moved %f, want %f", after-before, h.cfg.Knockback.Displacement)
	}
}

func TestScoreAndSpotlightTransfer(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, store.SpotlightID, components.NewTransform(mgl64.Vec3{}), &components.Spotlight{Height: 1})
	h.spawn(t, "a",
		components.NewTransform(mgl64.Vec3{}),
		&components.Score{},
		&components.Death{OnDeath: components.DeathTransferSpotlight},
	)
	h.spawn(t, "b", components.NewTransform(mgl64.Vec3{1, 0, 0}), &components.Score{})

	if !InitSpotlight(h.store, "a") {
		t.Fatal("InitSpotlight refused")
	}
	if InitSpotlight(h.store, "b") {
		t.Fatal("InitSpotlight replaced an existing holder")
	}

	dt := 1.0 / 30.0
	h.run(150, dt, components.Keys{})
	score := h.store.Score("a").Score
	if math.Abs(score-5.0) > dt {
		t.Fatalf("score after 5s = %f, want 5.0", score)
	}

	ApplyKnockback(h.store, h.cfg.Knockback.Displacement, Knockback{ID: "a", Push: mgl64.Vec3{1, 0, 0}, Force: 1, From: "b"})
	h.tick.Update(dt, components.Keys{})

	if len(h.rec.transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(h.rec.transfers))
	}
	tr := h.rec.transfers[0]
	if tr[0] != "b" || tr[1] != "a" || math.Abs(tr[2].(float64)-score) > 1e-9 {
		t.Errorf("transfer = %v, want [b a %f]", tr, score)
	}
	if h.store.Spotlight(store.SpotlightID).FollowID != "b" {
		t.Error("spotlight not following b")
	}

	h.run(30, dt, components.Keys{})
	if got := h.store.Score("a").Score; got != score {
		t.Errorf("a kept scoring: %f != %f", got, score)
	}
	holders := 0
	for _, sc := range h.store.Scores() {
		if sc.Trigger {
			holders++
		}
	}
	if holders != 1 || !h.store.Score("b").Trigger {
		t.Errorf("holders = %d, b trigger = %v", holders, h.store.Score("b").Trigger)
	}
}

func TestDeathIgnoresMissingKiller(t *testing.T) {
	tests := []struct {
		name   string
		killer string
	}{
		{"departed peer", "ghost"},
		{"not a player", "crate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.spawn(t, store.SpotlightID, components.NewTransform(mgl64.Vec3{}), &components.Spotlight{Height: 1})
			h.spawn(t, "a",
				components.NewTransform(mgl64.Vec3{}),
				&components.Score{},
				&components.Death{OnDeath: components.DeathTransferSpotlight},
			)
			h.spawn(t, "crate", components.NewTransform(mgl64.Vec3{3, 0, 0}), &components.Box{Width: 1, Height: 1, Depth: 1})
			InitSpotlight(h.store, "a")

			dt := 1.0 / 30.0
			ApplyKnockback(h.store, h.cfg.Knockback.Displacement, Knockback{ID: "a", Push: mgl64.Vec3{1, 0, 0}, Force: 1, From: tt.killer})
			h.run(30, dt, components.Keys{})

			if len(h.rec.transfers) != 0 {
				t.Errorf("transfers = %v, want none", h.rec.transfers)
			}
			if got := h.store.Spotlight(store.SpotlightID).FollowID; got != "a" {
				t.Errorf("follow = %q, want a", got)
			}
			if !h.store.Score("a").Trigger || h.store.Score("a").Score <= 0 {
				t.Errorf("holder stopped scoring: %+v", *h.store.Score("a"))
			}
			if d := h.store.Death("a"); d.Trigger || d.KilledBy != "" {
				t.Errorf("death = %+v, want consumed", *d)
			}
		})
	}
}

func TestTransferRejectsUnknownTarget(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, store.SpotlightID, &components.Spotlight{FollowID: "a"})
	h.spawn(t, "a", &components.Score{Score: 3, Trigger: true})

	if ApplySpotlightTransfer(h.store, "ghost", "a", 1) {
		t.Fatal("transfer to a missing entity accepted")
	}
	if sc := h.store.Score("a"); sc.Score != 3 || !sc.Trigger {
		t.Errorf("a = %+v, want untouched", *sc)
	}
	if got := h.store.Spotlight(store.SpotlightID).FollowID; got != "a" {
		t.Errorf("follow = %q, want a", got)
	}
}

func TestTransferIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, store.SpotlightID, &components.Spotlight{})
	h.spawn(t, "a", &components.Score{Score: 3, Trigger: true})
	h.spawn(t, "b", &components.Score{})

	ApplySpotlightTransfer(h.store, "b", "a", 2.5)
	ApplySpotlightTransfer(h.store, "b", "a", 2.5)

	if h.store.Score("a").Score != 2.5 || h.store.Score("a").Trigger {
		t.Errorf("a = %+v", h.store.Score("a"))
	}
	if !h.store.Score("b").Trigger || h.store.Spotlight(store.SpotlightID).FollowID != "b" {
		t.Error("b is not the holder")
	}
}

func TestFloorRecoveryArmsDeath(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, "p",
		components.NewTransform(mgl64.Vec3{0, -5, 0}),
		&components.Hitbox{Width: 0.25, Height: 0.3, Depth: 0.25},
		&components.Physic{Vel: mgl64.Vec3{1, 0, 0}},
		&components.Death{},
	)

	h.tick.Update(h.cfg.Physics.DT, components.Keys{})

	if !h.store.Death("p").Trigger {
		t.Error("death not armed by floor recovery")
	}
	if h.store.Physic("p").Vel != (mgl64.Vec3{}) {
		t.Error("velocity not cleared on recovery")
	}
	if y := h.store.Handles("p").Body.Position.Y(); y < h.cfg.Physics.FloorY {
		t.Errorf("body still below floor: %f", y)
	}

	h.tick.Update(h.cfg.Physics.DT, components.Keys{})
	if h.store.Death("p").Trigger {
		t.Error("death trigger not consumed")
	}
}

func TestStoppedTickIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, "p", components.NewTransform(mgl64.Vec3{}), &components.Score{Trigger: true})

	h.tick.SetStopped(true)
	if h.tick.Update(0.1, components.Keys{}) {
		t.Error("Update ran while stopped")
	}
	if h.bodies.Steps() != 0 || h.graph.Frames() != 0 || h.store.Score("p").Score != 0 {
		t.Error("stopped tick touched the world")
	}

	h.tick.SetStopped(false)
	h.tick.Update(0.1, components.Keys{})
	if h.bodies.Steps() != 1 || h.graph.Frames() != 1 {
		t.Error("resumed tick did not step and render")
	}
}

func TestMaterializePlayer(t *testing.T) {
	loader := &fakeLoader{}
	h := newHarness(t, loader)
	h.spawn(t, "me",
		components.NewTransform(mgl64.Vec3{0, 0.5, 0}),
		&components.Model{Bucket: "characters", File: "players/knight.glb", Scale: mgl64.Vec3{0.001, 0.001, 0.001}, Animation: "Idle"},
		&components.Hitbox{Width: 0.25, Height: 0.3, Depth: 0.25},
		&components.Text{Text: "alice", Offset: mgl64.Vec3{0, 0.22, 0}},
		&components.Physic{ApplyForce: true},
		components.NewCollision(1),
		&components.Controller2{},
		&components.Sync{T: 3},
		&components.Death{Trigger: true, KilledBy: "x"},
	)

	hd := h.store.Handles("me")
	if hd.Node == nil || hd.Node.Scale != (mgl64.Vec3{}) {
		t.Fatalf("node = %+v, want zero initial scale", hd.Node)
	}
	tr := h.store.Transform("me")
	if tr.TimeScale != 0 || tr.TimeRotate != 0 || tr.Scale.X() != 0.001 {
		t.Errorf("transform = %+v", tr)
	}
	if hd.Body == nil || hd.Body.Mass != 1 || hd.Body.Position != tr.Position {
		t.Fatalf("body = %+v", hd.Body)
	}
	if math.Abs(hd.Body.HalfExtents.X()-0.125) > 1e-9 {
		t.Errorf("model hitbox was scaled: %v", hd.Body.HalfExtents)
	}
	if owner, ok := h.store.BodyOwner(hd.Body.Index); !ok || owner != "me" {
		t.Errorf("BodyOwner = %q, %v", owner, ok)
	}
	if txt := h.store.Text("me"); txt.Size != 12 || math.Abs(txt.ScreenX-(-0.2*5*12)) > 1e-9 {
		t.Errorf("text = %+v", txt)
	}
	if !h.graph.HasLabel(hd.Label) || !h.graph.HasNode(hd.Node) {
		t.Error("handles not added to scene")
	}
	if h.store.Type("me") == nil || h.store.TypeName("me") != "" {
		t.Error("missing type fallback")
	}
	if anim := h.store.Animation("me"); anim == nil || anim.Clip != "Idle" || hd.Mixer == nil {
		t.Error("animation not bound")
	}
	if h.store.Sync("me").T != 0 || h.store.Death("me").Trigger || h.store.Death("me").KilledBy != "" {
		t.Error("one-time defaults not applied")
	}
	if h.store.Collision("me").CollideIndex != components.NoCollision {
		t.Error("collision not reset")
	}

	// collide callback records the opponent
	other := physics.NewBox(1, 1, 1)
	h.bodies.Add(other)
	hd.Body.OnCollide(other)
	if h.store.Collision("me").CollideIndex != other.Index {
		t.Error("collide callback did not record opponent")
	}

	// materialization happens once
	h.mat.MaterializeNow(context.Background(), "me")
	if loader.calls != 1 || h.bodies.Len() != 2 {
		t.Errorf("rematerialized: loads=%d bodies=%d", loader.calls, h.bodies.Len())
	}
}

func TestMaterializeModelFailureKeepsEntity(t *testing.T) {
	h := newHarness(t, &fakeLoader{err: assets.ErrNotFound})
	h.spawn(t, "me",
		components.NewTransform(mgl64.Vec3{}),
		&components.Model{Bucket: "characters", File: "gone.glb", Scale: mgl64.Vec3{1, 1, 1}},
		&components.Hitbox{Width: 1, Height: 1, Depth: 1},
	)

	hd := h.store.Handles("me")
	if hd.Node != nil {
		t.Error("node created for a failed model")
	}
	if hd.Body == nil {
		t.Error("hitbox dropped along with the model")
	}
}

func TestMaterializeAsyncDropsRemoved(t *testing.T) {
	fetcher := fetchFunc(func(context.Context, string, string) ([]byte, error) {
		return []byte(`{"asset":{"version":"2.0"}}`), nil
	})
	cache := assets.NewCache(fetcher)
	h := newHarness(t, cache)

	for _, id := range []string{"a", "b"} {
		h.store.Create(id)
		h.store.Attach(id, components.NewTransform(mgl64.Vec3{}))
		h.store.Attach(id, &components.Model{Bucket: "characters", File: "k.glb", Scale: mgl64.Vec3{1, 1, 1}})
		h.store.Attach(id, &components.Hitbox{Width: 1, Height: 1, Depth: 1})
		if err := h.store.Materialize(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}
	if h.mat.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", h.mat.Pending())
	}
	h.store.Remove("b")

	deadline := time.Now().Add(2 * time.Second)
	for h.mat.Pending() > 0 && time.Now().Before(deadline) {
		h.mat.Poll()
		time.Sleep(time.Millisecond)
	}

	if h.store.State("a") != components.Materialized {
		t.Errorf("a state = %s", h.store.State("a"))
	}
	if h.store.Exists("b") || h.bodies.Len() != 1 {
		t.Errorf("removed entity was materialized: bodies=%d", h.bodies.Len())
	}
	if cache.Fetches() != 1 {
		t.Errorf("fetches = %d, want 1", cache.Fetches())
	}
}

type fetchFunc func(ctx context.Context, bucket, file string) ([]byte, error)

func (f fetchFunc) Fetch(ctx context.Context, bucket, file string) ([]byte, error) {
	return f(ctx, bucket, file)
}

func TestRegistryFollowsPriority(t *testing.T) {
	reg := NewSystemRegistry()
	ids := reg.IDs()
	if len(ids) != len(components.Priority) {
		t.Fatalf("registry has %d systems, want %d", len(ids), len(components.Priority))
	}
	for i, k := range components.Priority {
		if ids[i] != k.String() {
			t.Errorf("system %d = %s, want %s", i, ids[i], k)
		}
	}
	if reg.GetName("death") != "Death" || reg.GetName("nope") != "nope" {
		t.Error("GetName lookup wrong")
	}
	if len(reg.ByCategory("view")) != 3 {
		t.Errorf("view systems = %d, want 3", len(reg.ByCategory("view")))
	}
}
