// Package physics provides a small fixed-timestep rigid-body world.
//
// Bodies are axis-aligned boxes or upright cylinders with fixed rotation and
// no friction. Candidate pairs come from a resolv grid over the ground
// plane; contacts are resolved along the axis of least penetration.
package physics

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"
)

// Broadphase grid in centimetres with 1 m cells. resolv treats the far
// edge of a footprint as exclusive by one grid unit. Footprints outside
// the square around the origin are not indexed and never collide.
const (
	gridScale    = 100
	spaceCell    = 100
	spaceCells   = 64
	spaceExtent  = spaceCell * spaceCells
	spaceOrigin  = spaceExtent / 2
	minFootprint = 2
)

// Shape selects a body's collision volume.
type Shape uint8

const (
	ShapeBox Shape = iota
	ShapeCylinder
)

// Body is a rigid body. Mass zero means static.
type Body struct {
	Index       int
	Shape       Shape
	HalfExtents mgl64.Vec3 // cylinders use X as radius and Y as half height
	Position    mgl64.Vec3
	Velocity    mgl64.Vec3
	Quaternion  mgl64.Quat
	Mass        float64

	// OnCollide fires once when a contact with other begins.
	OnCollide func(other *Body)

	world *World
	obj   *resolv.Object
}

// NewBox creates a static box body from full extents.
func NewBox(width, height, depth float64) *Body {
	return &Body{
		Index:       -1,
		Shape:       ShapeBox,
		HalfExtents: mgl64.Vec3{width * 0.5, height * 0.5, depth * 0.5},
		Quaternion:  mgl64.QuatIdent(),
	}
}

// NewCylinder creates a static upright cylinder body.
func NewCylinder(radius, height float64) *Body {
	return &Body{
		Index:       -1,
		Shape:       ShapeCylinder,
		HalfExtents: mgl64.Vec3{radius, height * 0.5, radius},
		Quaternion:  mgl64.QuatIdent(),
	}
}

// Dynamic reports whether the body is integrated by Step.
func (b *Body) Dynamic() bool {
	return b.Mass > 0
}

// InWorld reports whether the body is currently part of a world.
func (b *Body) InWorld() bool {
	return b.world != nil
}

// Bounds returns the world-space AABB of the body.
func (b *Body) Bounds() (min, max mgl64.Vec3) {
	return b.Position.Sub(b.HalfExtents), b.Position.Add(b.HalfExtents)
}

// footprint returns the body's X/Z rectangle in grid space.
func (b *Body) footprint() (x, y, w, h float64) {
	w = math.Max(b.HalfExtents.X()*2*gridScale, minFootprint)
	h = math.Max(b.HalfExtents.Z()*2*gridScale, minFootprint)
	x = b.Position.X()*gridScale - w/2 + spaceOrigin
	y = b.Position.Z()*gridScale - h/2 + spaceOrigin
	return x, y, w, h
}

// syncObject moves the grid object onto the body's current footprint.
func (b *Body) syncObject() {
	x, y, w, h := b.footprint()
	b.obj.X, b.obj.Y, b.obj.W, b.obj.H = x, y, w, h
	b.obj.Update()
}

type pairKey struct{ a, b int }

func makePair(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// World owns bodies and steps them.
type World struct {
	Gravity  mgl64.Vec3
	DT       float64
	MaxSpeed float64 // zero disables the clamp

	bodies    map[int]*Body
	order     []int
	nextIndex int
	contacts  map[pairKey]struct{}
	steps     int
	space     *resolv.Space
}

// NewWorld creates an empty world.
func NewWorld(gravity mgl64.Vec3, dt float64) *World {
	return &World{
		Gravity:  gravity,
		DT:       dt,
		bodies:   make(map[int]*Body),
		contacts: make(map[pairKey]struct{}),
		space:    resolv.NewSpace(spaceExtent, spaceExtent, spaceCell, spaceCell),
	}
}

// Add inserts a body and assigns its index. Indices are never reused.
func (w *World) Add(b *Body) int {
	if b.world == w {
		return b.Index
	}
	b.Index = w.nextIndex
	w.nextIndex++
	b.world = w
	w.bodies[b.Index] = b
	w.order = append(w.order, b.Index)

	x, y, bw, bh := b.footprint()
	b.obj = resolv.NewObject(x, y, bw, bh, "body")
	b.obj.SetShape(resolv.NewRectangle(0, 0, bw, bh))
	b.obj.Data = b
	w.space.Add(b.obj)
	return b.Index
}

// Remove detaches a body. Removing a body twice is a no-op.
func (w *World) Remove(b *Body) {
	if b == nil || b.world != w {
		return
	}
	delete(w.bodies, b.Index)
	for i, idx := range w.order {
		if idx == b.Index {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	for k := range w.contacts {
		if k.a == b.Index || k.b == b.Index {
			delete(w.contacts, k)
		}
	}
	if b.obj != nil {
		w.space.Remove(b.obj)
		b.obj = nil
	}
	b.world = nil
}

// Body returns the live body with the given index.
func (w *World) Body(index int) (*Body, bool) {
	b, ok := w.bodies[index]
	return b, ok
}

// Len returns the number of live bodies.
func (w *World) Len() int {
	return len(w.bodies)
}

// Steps returns the number of completed steps.
func (w *World) Steps() int {
	return w.steps
}

// Step advances the world by DT. Collide callbacks run before Step returns.
func (w *World) Step() {
	dt := w.DT
	for _, idx := range w.order {
		b := w.bodies[idx]
		if !b.Dynamic() {
			continue
		}
		b.Velocity = b.Velocity.Add(w.Gravity.Mul(dt))
		if w.MaxSpeed > 0 {
			if l := b.Velocity.Len(); l > w.MaxSpeed {
				b.Velocity = b.Velocity.Mul(w.MaxSpeed / l)
			}
		}
		b.Position = b.Position.Add(b.Velocity.Mul(dt))
	}

	current := make(map[pairKey]struct{}, len(w.contacts))
	var begun []pairKey
	for _, key := range w.candidates() {
		a, b := w.bodies[key.a], w.bodies[key.b]
		if !resolve(a, b) {
			continue
		}
		current[key] = struct{}{}
		if _, ok := w.contacts[key]; !ok {
			begun = append(begun, key)
		}
	}
	w.contacts = current
	w.steps++

	sort.Slice(begun, func(i, j int) bool {
		if begun[i].a != begun[j].a {
			return begun[i].a < begun[j].a
		}
		return begun[i].b < begun[j].b
	})
	for _, key := range begun {
		a, okA := w.bodies[key.a]
		b, okB := w.bodies[key.b]
		if !okA || !okB {
			continue
		}
		if a.OnCollide != nil {
			a.OnCollide(b)
		}
		// a's callback may have removed b
		if b.OnCollide != nil && b.world == w && a.world == w {
			b.OnCollide(a)
		}
	}
}

// candidates returns the pairs sharing a grid cell with at least one
// dynamic body, in index order.
func (w *World) candidates() []pairKey {
	for _, idx := range w.order {
		w.bodies[idx].syncObject()
	}
	seen := make(map[pairKey]struct{})
	var pairs []pairKey
	for _, idx := range w.order {
		a := w.bodies[idx]
		if !a.Dynamic() {
			continue
		}
		col := a.obj.Check(0, 0)
		if col == nil {
			continue
		}
		for _, o := range col.Objects {
			b, ok := o.Data.(*Body)
			if !ok || b.world != w {
				continue
			}
			key := makePair(a.Index, b.Index)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pairs = append(pairs, key)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	return pairs
}

// resolve separates two overlapping bodies and reports whether they touched.
func resolve(a, b *Body) bool {
	aMin, aMax := a.Bounds()
	bMin, bMax := b.Bounds()

	best := math.MaxFloat64
	axis := -1
	sign := 1.0
	for i := 0; i < 3; i++ {
		overlap := math.Min(aMax[i], bMax[i]) - math.Max(aMin[i], bMin[i])
		if overlap <= 0 {
			return false
		}
		if overlap < best {
			best = overlap
			axis = i
			if a.Position[i] < b.Position[i] {
				sign = -1
			} else {
				sign = 1
			}
		}
	}

	// push along axis; sign points from b towards a
	var shareA, shareB float64
	switch {
	case a.Dynamic() && b.Dynamic():
		shareA, shareB = 0.5, 0.5
	case a.Dynamic():
		shareA = 1
	default:
		shareB = 1
	}
	a.Position[axis] += sign * best * shareA
	b.Position[axis] -= sign * best * shareB

	if shareA > 0 && a.Velocity[axis]*sign < 0 {
		a.Velocity[axis] = 0
	}
	if shareB > 0 && b.Velocity[axis]*sign > 0 {
		b.Velocity[axis] = 0
	}
	return true
}
