package netsync

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/physics"
	"github.com/pthm-cable/spotlight/realtime"
	"github.com/pthm-cable/spotlight/render"
	"github.com/pthm-cable/spotlight/store"
	"github.com/pthm-cable/spotlight/systems"
)

type peer struct {
	cfg    *config.Config
	store  *store.Store
	bodies *physics.World
	mat    *systems.Materializer
	sync   *Sync
}

func newPeer(t *testing.T, hub *realtime.Hub, id string) *peer {
	t.Helper()
	cfg := config.Default()
	bodies := physics.NewWorld(mgl64.Vec3{0, cfg.Physics.Gravity, 0}, cfg.Physics.DT)
	s := store.New(bodies, render.NewGraph())
	mat := systems.NewMaterializer(s, nil, cfg)

	if _, err := s.Create(store.SpotlightID); err != nil {
		t.Fatal(err)
	}
	if err := s.Attach(store.SpotlightID, &components.Spotlight{Height: cfg.Arena.SpotlightY}); err != nil {
		t.Fatal(err)
	}

	return &peer{
		cfg:    cfg,
		store:  s,
		bodies: bodies,
		mat:    mat,
		sync:   New(hub.Channel("game1", id), s, cfg, mat),
	}
}

func (p *peer) join(t *testing.T, pr Presence) {
	t.Helper()
	if err := p.sync.Join(pr); err != nil {
		t.Fatal(err)
	}
}

func drainAll(peers ...*peer) {
	for _, p := range peers {
		p.sync.Drain(context.Background())
	}
}

func TestJoinLocalVersusRemote(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob := newPeer(t, hub, "alice"), newPeer(t, hub, "bob")
	alice.join(t, Presence{Username: "Alice", Skin: "knight2.glb", IsHost: true, Force: 5})
	bob.join(t, Presence{Username: "Bob"})
	drainAll(alice, bob)

	s := alice.store
	for _, id := range []string{"alice", "bob"} {
		if s.State(id) != components.Materialized {
			t.Fatalf("%s state = %v", id, s.State(id))
		}
		if s.TypeName(id) != TypePlayer {
			t.Errorf("%s type = %q", id, s.TypeName(id))
		}
	}

	localOnly := []components.Kind{
		components.KindPhysic, components.KindController2, components.KindCamera2,
		components.KindSync, components.KindDeath, components.KindCollision,
	}
	for _, k := range localOnly {
		if !s.Has("alice", k) {
			t.Errorf("local player missing %v", k)
		}
		if s.Has("bob", k) {
			t.Errorf("remote player has %v", k)
		}
	}
	if !s.Meta("bob").Remote || s.Meta("alice").Remote {
		t.Error("remote flags wrong")
	}
	if got := s.Collision("alice").Force; got != alice.cfg.Knockback.MaxForce {
		t.Errorf("force = %v, want clamped %v", got, alice.cfg.Knockback.MaxForce)
	}
	if got := s.Model("alice").File; got != "players/knight2.glb" {
		t.Errorf("model file = %q", got)
	}
	if got := s.Text("bob").Text; got != "Bob" {
		t.Errorf("label = %q", got)
	}

	// host starts with the spotlight on both sides
	for _, p := range []*peer{alice, bob} {
		if got := p.store.Spotlight(store.SpotlightID).FollowID; got != "alice" {
			t.Errorf("follow = %q, want alice", got)
		}
		if !p.store.Score("alice").Trigger || p.store.Score("bob").Trigger {
			t.Error("only the host should be scoring")
		}
	}
}

func TestTransformIgnoredForLocal(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob := newPeer(t, hub, "alice"), newPeer(t, hub, "bob")
	alice.join(t, Presence{Username: "Alice"})
	bob.join(t, Presence{Username: "Bob"})
	drainAll(alice, bob)

	before := alice.store.Transform("alice").Position
	pose := components.Transform{
		Position: mgl64.Vec3{1, 2, 3},
		Rotation: mgl64.Vec3{0, 0.5, 0},
		Scale:    mgl64.Vec3{1, 1, 1},
	}
	bob.sync.EmitTransform("alice", pose)
	bob.sync.EmitTransform("bob", pose)
	drainAll(alice)

	if got := alice.store.Transform("alice").Position; got != before {
		t.Errorf("local position overwritten: %v", got)
	}
	if got := alice.store.Transform("bob").Position; got != pose.Position {
		t.Errorf("remote position = %v, want %v", got, pose.Position)
	}
	if body := alice.store.Handles("bob").Body; body == nil || body.Position != pose.Position {
		t.Error("remote body not moved")
	}
}

func TestRotateResetRemote(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob := newPeer(t, hub, "alice"), newPeer(t, hub, "bob")
	alice.join(t, Presence{})
	bob.join(t, Presence{})
	drainAll(alice, bob)

	alice.store.Transform("bob").TimeRotate = 1
	bob.sync.EmitRotateReset("bob")
	drainAll(alice)
	if got := alice.store.Transform("bob").TimeRotate; got != 0 {
		t.Errorf("time_rotate = %v, want 0", got)
	}
}

func TestLeaveReleasesBody(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob := newPeer(t, hub, "alice"), newPeer(t, hub, "bob")
	alice.join(t, Presence{})
	bob.join(t, Presence{})
	drainAll(alice, bob)

	body := alice.store.Handles("bob").Body
	if body == nil {
		t.Fatal("remote player has no body")
	}
	index := body.Index

	if err := bob.sync.Leave(); err != nil {
		t.Fatal(err)
	}
	if err := bob.sync.Leave(); err != nil {
		t.Fatalf("second leave: %v", err)
	}
	drainAll(alice)

	if alice.store.Exists("bob") {
		t.Error("bob still in store")
	}
	if _, ok := alice.store.BodyOwner(index); ok {
		t.Error("body index still resolves")
	}
	if _, ok := alice.bodies.Body(index); ok {
		t.Error("body still in world")
	}
	if got := alice.sync.Peers(); len(got) != 1 || got[0] != "alice" {
		t.Errorf("peers = %v", got)
	}
}

func TestKnockbackOnlyForTarget(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob, carol := newPeer(t, hub, "alice"), newPeer(t, hub, "bob"), newPeer(t, hub, "carol")
	for _, p := range []*peer{alice, bob, carol} {
		p.join(t, Presence{})
	}
	drainAll(alice, bob, carol)

	before := bob.store.Transform("bob").Position
	carolView := carol.store.Transform("bob").Position
	alice.sync.EmitKnockback(systems.Knockback{ID: "bob", Push: mgl64.Vec3{1, 0, 0}, Force: 0.5, From: "alice"})
	drainAll(bob, carol)

	moved := bob.store.Transform("bob").Position.Sub(before)
	want := 0.5 * bob.cfg.Knockback.Displacement
	if math.Abs(moved.X()-want) > 1e-9 {
		t.Errorf("displacement = %v, want %v", moved.X(), want)
	}
	d := bob.store.Death("bob")
	if d.KilledBy != "alice" || !d.Trigger {
		t.Errorf("death = %+v", *d)
	}
	if carol.store.Transform("bob").Position != carolView {
		t.Error("bystander applied knockback")
	}
}

func TestSpotlightTransferOrderAndRepeat(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob, carol := newPeer(t, hub, "alice"), newPeer(t, hub, "bob"), newPeer(t, hub, "carol")
	alice.join(t, Presence{IsHost: true})
	bob.join(t, Presence{})
	carol.join(t, Presence{})
	drainAll(alice, bob, carol)

	// delivered twice and out of order
	alice.sync.EmitSpotlightTransfer("bob", "alice", 3)
	bob.sync.EmitSpotlightTransfer("carol", "bob", 2)
	alice.sync.EmitSpotlightTransfer("bob", "alice", 3)
	drainAll(carol)

	s := carol.store
	triggered := 0
	for _, sc := range s.Scores() {
		if sc.Trigger {
			triggered++
		}
	}
	if triggered != 1 {
		t.Fatalf("%d scoring entities, want 1", triggered)
	}
	if s.Score("alice").Score != 3 || s.Score("bob").Score != 2 {
		t.Errorf("frozen scores = %v / %v", s.Score("alice").Score, s.Score("bob").Score)
	}
	follow := s.Spotlight(store.SpotlightID).FollowID
	if !s.Score(follow).Trigger {
		t.Errorf("follow %q is not the scoring entity", follow)
	}
}

type roundEvents struct {
	starts []int64
	ends   int
	plays  []string
}

func (r *roundEvents) OnStart(ms int64)     { r.starts = append(r.starts, ms) }
func (r *roundEvents) OnEnd()               { r.ends++ }
func (r *roundEvents) OnPlay(roundID string) { r.plays = append(r.plays, roundID) }

func TestRoundEventsForwarded(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob := newPeer(t, hub, "alice"), newPeer(t, hub, "bob")
	alice.join(t, Presence{})
	bob.join(t, Presence{})
	drainAll(alice, bob)

	ev := &roundEvents{}
	bob.sync.SetListener(ev)
	alice.sync.Send(EventStart, Start{Time: 1234})
	alice.sync.Send(EventEnd, nil)
	alice.sync.Send(EventPlay, Play{UUID: "r1"})
	drainAll(bob)

	if len(ev.starts) != 1 || ev.starts[0] != 1234 {
		t.Errorf("starts = %v", ev.starts)
	}
	if ev.ends != 1 {
		t.Errorf("ends = %d", ev.ends)
	}
	if len(ev.plays) != 1 || ev.plays[0] != "r1" {
		t.Errorf("plays = %v", ev.plays)
	}
	if alice.sync.Sent(EventEnd) != 1 {
		t.Errorf("sent end = %d", alice.sync.Sent(EventEnd))
	}
}

func TestDepartedPeerEventsIgnored(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob, carol := newPeer(t, hub, "alice"), newPeer(t, hub, "bob"), newPeer(t, hub, "carol")
	alice.join(t, Presence{IsHost: true})
	bob.join(t, Presence{})
	carol.join(t, Presence{})
	drainAll(alice, bob, carol)

	if err := carol.sync.Leave(); err != nil {
		t.Fatal(err)
	}
	drainAll(alice, bob)

	// a stale socket still relays frames naming carol after her leave
	late := hub.Channel("game1", "carol")
	if err := late.Subscribe(); err != nil {
		t.Fatal(err)
	}
	before := bob.store.Transform("bob").Position
	if err := late.Send(EventKnockback, Knockback{ID: "bob", X: 1, Force: 0.5, From: "carol"}); err != nil {
		t.Fatal(err)
	}
	if err := late.Send(EventSpotlight, SpotlightTransfer{ID: "carol", Prev: "alice", Score: 4}); err != nil {
		t.Fatal(err)
	}
	drainAll(alice, bob)

	if got := bob.store.Transform("bob").Position; got != before {
		t.Errorf("knockback from departed peer moved bob to %v", got)
	}
	if d := bob.store.Death("bob"); d.Trigger || d.KilledBy != "" {
		t.Errorf("death = %+v, want untouched", *d)
	}
	for _, p := range []*peer{alice, bob} {
		if got := p.store.Spotlight(store.SpotlightID).FollowID; got != "alice" {
			t.Errorf("follow = %q, want alice", got)
		}
		if !p.store.Score("alice").Trigger {
			t.Error("holder stopped scoring")
		}
	}
}

func TestHolderLeaveReleasesSpotlight(t *testing.T) {
	tests := []struct {
		name   string
		holder string
		want   string
	}{
		{"host takes over", "bob", "alice"},
		{"lowest id when host leaves", "alice", "bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := realtime.NewHub(64)
			alice, bob, carol := newPeer(t, hub, "alice"), newPeer(t, hub, "bob"), newPeer(t, hub, "carol")
			alice.join(t, Presence{IsHost: true})
			bob.join(t, Presence{})
			carol.join(t, Presence{})
			drainAll(alice, bob, carol)

			if tt.holder != "alice" {
				alice.sync.EmitSpotlightTransfer(tt.holder, "alice", 1)
				drainAll(alice, bob, carol)
			}

			leaver := map[string]*peer{"alice": alice, "bob": bob}[tt.holder]
			if err := leaver.sync.Leave(); err != nil {
				t.Fatal(err)
			}
			drainAll(alice, bob, carol)

			for _, p := range []*peer{alice, bob, carol} {
				if p == leaver {
					continue
				}
				if got := p.store.Spotlight(store.SpotlightID).FollowID; got != tt.want {
					t.Errorf("follow = %q, want %q", got, tt.want)
				}
				if !p.store.Score(tt.want).Trigger {
					t.Errorf("%s not scoring", tt.want)
				}
			}
		})
	}
}

func TestLastPeerLeaveClearsSpotlight(t *testing.T) {
	hub := realtime.NewHub(64)
	alice, bob := newPeer(t, hub, "alice"), newPeer(t, hub, "bob")
	alice.join(t, Presence{IsHost: true})
	bob.join(t, Presence{})
	drainAll(alice, bob)

	alice.sync.onLeave("bob")
	alice.sync.onLeave("alice")
	if got := alice.store.Spotlight(store.SpotlightID).FollowID; got != "" {
		t.Errorf("follow = %q, want empty", got)
	}
}
