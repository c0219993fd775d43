package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestWorld() *World {
	return NewWorld(mgl64.Vec3{0, -9.81, 0}, 1.0/30.0)
}

func TestStepAppliesGravity(t *testing.T) {
	w := newTestWorld()
	b := NewBox(1, 1, 1)
	b.Mass = 1
	w.Add(b)

	w.Step()

	wantVel := -9.81 / 30.0
	if math.Abs(b.Velocity.Y()-wantVel) > 1e-9 {
		t.Errorf("vel y = %f, want %f", b.Velocity.Y(), wantVel)
	}
	if math.Abs(b.Position.Y()-wantVel/30.0) > 1e-9 {
		t.Errorf("pos y = %f, want %f", b.Position.Y(), wantVel/30.0)
	}
}

func TestStaticBodiesDoNotMove(t *testing.T) {
	w := newTestWorld()
	ground := NewBox(7, 0.1, 3.2)
	ground.Position = mgl64.Vec3{0, -0.5, 0}
	w.Add(ground)

	for i := 0; i < 10; i++ {
		w.Step()
	}
	if ground.Position != (mgl64.Vec3{0, -0.5, 0}) {
		t.Errorf("static body moved to %v", ground.Position)
	}
}

func TestBodyRestsOnGround(t *testing.T) {
	w := newTestWorld()
	ground := NewBox(7, 0.1, 3.2)
	ground.Position = mgl64.Vec3{0, -0.5, 0}
	w.Add(ground)

	player := NewBox(0.25, 0.3, 0.25)
	player.Mass = 1
	player.Position = mgl64.Vec3{0, 0.5, 0}
	w.Add(player)

	for i := 0; i < 120; i++ {
		w.Step()
	}

	bottom := player.Position.Y() - 0.15
	top := -0.45
	if math.Abs(bottom-top) > 0.02 {
		t.Errorf("player bottom at %f, want near %f", bottom, top)
	}
}

func TestCollideFiresOncePerContact(t *testing.T) {
	w := newTestWorld()
	ground := NewBox(7, 0.1, 3.2)
	ground.Position = mgl64.Vec3{0, -0.5, 0}
	w.Add(ground)

	player := NewBox(0.25, 0.3, 0.25)
	player.Mass = 1
	player.Position = mgl64.Vec3{0, -0.3, 0}
	var hits []int
	player.OnCollide = func(other *Body) { hits = append(hits, other.Index) }
	w.Add(player)

	for i := 0; i < 30; i++ {
		w.Step()
	}

	if len(hits) != 1 {
		t.Fatalf("got %d collide callbacks, want 1", len(hits))
	}
	if hits[0] != ground.Index {
		t.Errorf("collided with %d, want %d", hits[0], ground.Index)
	}
}

func TestDynamicPairSeparates(t *testing.T) {
	w := NewWorld(mgl64.Vec3{}, 1.0/30.0)
	a := NewBox(1, 1, 1)
	a.Mass = 1
	a.Position = mgl64.Vec3{-0.4, 0, 0}
	b := NewBox(1, 1, 1)
	b.Mass = 1
	b.Position = mgl64.Vec3{0.4, 0, 0}
	w.Add(a)
	w.Add(b)

	w.Step()

	gap := b.Position.X() - a.Position.X()
	if math.Abs(gap-1) > 1e-9 {
		t.Errorf("centers %f apart after resolve, want 1", gap)
	}
}

func TestRemoveReleasesIndex(t *testing.T) {
	w := newTestWorld()
	a := NewBox(1, 1, 1)
	b := NewBox(1, 1, 1)
	ia := w.Add(a)
	w.Remove(a)
	w.Remove(a)
	ib := w.Add(b)

	if ia == ib {
		t.Errorf("index %d reused", ia)
	}
	if _, ok := w.Body(ia); ok {
		t.Error("removed body still resolvable")
	}
	if a.InWorld() {
		t.Error("removed body still reports InWorld")
	}
	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}
}

func TestCandidatesFromGrid(t *testing.T) {
	w := NewWorld(mgl64.Vec3{}, 1.0/30.0)
	a := NewBox(0.25, 0.3, 0.25)
	a.Mass = 1
	near := NewBox(0.25, 0.3, 0.25)
	near.Mass = 1
	near.Position = mgl64.Vec3{0.2, 0, 0.1}
	far := NewBox(0.25, 0.3, 0.25)
	far.Position = mgl64.Vec3{5, 0, 5}
	w.Add(a)
	w.Add(near)
	w.Add(far)

	pairs := w.candidates()
	if len(pairs) != 1 || pairs[0] != makePair(a.Index, near.Index) {
		t.Fatalf("pairs = %v, want only %d-%d", pairs, a.Index, near.Index)
	}

	w.Remove(near)
	if pairs := w.candidates(); len(pairs) != 0 {
		t.Errorf("pairs after remove = %v, want none", pairs)
	}
}

func TestCandidatesFollowMovedBody(t *testing.T) {
	w := NewWorld(mgl64.Vec3{}, 1.0/30.0)
	a := NewBox(0.5, 0.5, 0.5)
	a.Mass = 1
	b := NewBox(0.5, 0.5, 0.5)
	b.Position = mgl64.Vec3{10, 0, 0}
	w.Add(a)
	w.Add(b)

	var hits int
	a.OnCollide = func(*Body) { hits++ }
	w.Step()
	if hits != 0 {
		t.Fatalf("hits = %d before moving, want 0", hits)
	}

	// teleported bodies are re-indexed on the next step
	b.Position = mgl64.Vec3{0.3, 0, 0}
	w.Step()
	if hits != 1 {
		t.Errorf("hits = %d after moving, want 1", hits)
	}
}
