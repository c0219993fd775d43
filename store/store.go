// Package store maps entity identifiers to typed components held in an
// ark world, plus the engine handles built during materialization.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/physics"
	"github.com/pthm-cable/spotlight/render"
)

var (
	// ErrEntityExists is returned by Create for a duplicate identifier.
	ErrEntityExists = errors.New("entity already exists")
	// ErrNoEntity is returned when an identifier is unknown.
	ErrNoEntity = errors.New("no such entity")
)

// Reserved singleton identifiers.
const (
	GroundID    = "ground"
	SpotlightID = "spotlight"
)

// Handles are the live engine objects of one entity. They are never
// serialized and are rebuilt on materialization.
type Handles struct {
	Node  *render.Node
	Debug *render.Node
	Body  *physics.Body
	Label *render.Label
	Mixer *render.Mixer
}

// Materializer turns an entity's descriptors into live handles.
type Materializer interface {
	Materialize(ctx context.Context, id string) error
}

// Store owns the entity world. It is not safe for concurrent use.
type Store struct {
	world *ecs.World

	meta    *ecs.Map[components.Meta]
	handles *ecs.Map[Handles]

	transform   *ecs.Map[components.Transform]
	model       *ecs.Map[components.Model]
	hitbox      *ecs.Map[components.Hitbox]
	physic      *ecs.Map[components.Physic]
	controller  *ecs.Map[components.Controller]
	controller2 *ecs.Map[components.Controller2]
	camera      *ecs.Map[components.Camera]
	camera2     *ecs.Map[components.Camera2]
	sync        *ecs.Map[components.Sync]
	text        *ecs.Map[components.Text]
	score       *ecs.Map[components.Score]
	death       *ecs.Map[components.Death]
	collision   *ecs.Map[components.Collision]
	spotlight   *ecs.Map[components.Spotlight]
	typ         *ecs.Map[components.Type]
	animation   *ecs.Map[components.Animation]
	devHitbox   *ecs.Map[components.DevHitbox]
	circlePlane *ecs.Map[components.CirclePlane]
	box         *ecs.Map[components.Box]

	filter *ecs.Filter1[components.Meta]

	ids       map[string]ecs.Entity
	bodyIndex map[int]string
	scratch   []string

	bodies       *physics.World
	scene        render.Scene
	materializer Materializer
}

// New creates an empty store whose handles live in bodies and scene.
func New(bodies *physics.World, scene render.Scene) *Store {
	s := &Store{
		world:     ecs.NewWorld(),
		ids:       make(map[string]ecs.Entity),
		bodyIndex: make(map[int]string),
		bodies:    bodies,
		scene:     scene,
	}
	w := s.world
	s.meta = ecs.NewMap[components.Meta](w)
	s.handles = ecs.NewMap[Handles](w)
	s.transform = ecs.NewMap[components.Transform](w)
	s.model = ecs.NewMap[components.Model](w)
	s.hitbox = ecs.NewMap[components.Hitbox](w)
	s.physic = ecs.NewMap[components.Physic](w)
	s.controller = ecs.NewMap[components.Controller](w)
	s.controller2 = ecs.NewMap[components.Controller2](w)
	s.camera = ecs.NewMap[components.Camera](w)
	s.camera2 = ecs.NewMap[components.Camera2](w)
	s.sync = ecs.NewMap[components.Sync](w)
	s.text = ecs.NewMap[components.Text](w)
	s.score = ecs.NewMap[components.Score](w)
	s.death = ecs.NewMap[components.Death](w)
	s.collision = ecs.NewMap[components.Collision](w)
	s.spotlight = ecs.NewMap[components.Spotlight](w)
	s.typ = ecs.NewMap[components.Type](w)
	s.animation = ecs.NewMap[components.Animation](w)
	s.devHitbox = ecs.NewMap[components.DevHitbox](w)
	s.circlePlane = ecs.NewMap[components.CirclePlane](w)
	s.box = ecs.NewMap[components.Box](w)
	s.filter = ecs.NewFilter1[components.Meta](w)
	return s
}

// SetMaterializer installs the collaborator used by Materialize.
func (s *Store) SetMaterializer(m Materializer) {
	s.materializer = m
}

// Physics returns the physics world bodies are added to.
func (s *Store) Physics() *physics.World { return s.bodies }

// Scene returns the scene nodes and labels are added to.
func (s *Store) Scene() render.Scene { return s.scene }

// Create registers a new pending entity.
func (s *Store) Create(id string) (ecs.Entity, error) {
	if _, ok := s.ids[id]; ok {
		return ecs.Entity{}, fmt.Errorf("create %q: %w", id, ErrEntityExists)
	}
	e := s.meta.NewEntity(&components.Meta{ID: id, State: components.Pending})
	s.handles.Add(e, &Handles{})
	s.ids[id] = e
	return e, nil
}

// Exists reports whether id is a live entity.
func (s *Store) Exists(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of live entities.
func (s *Store) Len() int {
	return len(s.ids)
}

// Meta returns the bookkeeping of id, or nil.
func (s *Store) Meta(id string) *components.Meta {
	e, ok := s.ids[id]
	if !ok {
		return nil
	}
	return s.meta.Get(e)
}

// State returns the lifecycle state of id. Unknown ids report Destroyed.
func (s *Store) State(id string) components.LifeState {
	if m := s.Meta(id); m != nil {
		return m.State
	}
	return components.Destroyed
}

// Handles returns the engine handles of id, or nil.
func (s *Store) Handles(id string) *Handles {
	e, ok := s.ids[id]
	if !ok {
		return nil
	}
	return s.handles.Get(e)
}

// Attach inserts or overwrites the component of d's kind.
func (s *Store) Attach(id string, d components.Descriptor) error {
	e, ok := s.ids[id]
	if !ok {
		return fmt.Errorf("attach %s to %q: %w", d.Kind(), id, ErrNoEntity)
	}
	switch c := d.(type) {
	case *components.Transform:
		put(s.transform, e, c)
	case *components.Model:
		put(s.model, e, c)
	case *components.Hitbox:
		put(s.hitbox, e, c)
	case *components.Physic:
		put(s.physic, e, c)
	case *components.Controller:
		put(s.controller, e, c)
	case *components.Controller2:
		put(s.controller2, e, c)
	case *components.Camera:
		put(s.camera, e, c)
	case *components.Camera2:
		put(s.camera2, e, c)
	case *components.Sync:
		put(s.sync, e, c)
	case *components.Text:
		put(s.text, e, c)
	case *components.Score:
		put(s.score, e, c)
	case *components.Death:
		put(s.death, e, c)
	case *components.Collision:
		put(s.collision, e, c)
	case *components.Spotlight:
		put(s.spotlight, e, c)
	case *components.Type:
		put(s.typ, e, c)
	case *components.Animation:
		put(s.animation, e, c)
	case *components.DevHitbox:
		put(s.devHitbox, e, c)
	case *components.CirclePlane:
		put(s.circlePlane, e, c)
	case *components.Box:
		put(s.box, e, c)
	default:
		return fmt.Errorf("attach %T: unsupported component", d)
	}
	return nil
}

// put overwrites in place when present so pointers held this tick stay valid.
func put[T any](m *ecs.Map[T], e ecs.Entity, c *T) {
	if m.Has(e) {
		*m.Get(e) = *c
		return
	}
	m.Add(e, c)
}

// Has reports whether id carries a component of kind k.
func (s *Store) Has(id string, k components.Kind) bool {
	e, ok := s.ids[id]
	if !ok {
		return false
	}
	return s.has(e, k)
}

func (s *Store) has(e ecs.Entity, k components.Kind) bool {
	switch k {
	case components.KindTransform:
		return s.transform.Has(e)
	case components.KindModel:
		return s.model.Has(e)
	case components.KindHitbox:
		return s.hitbox.Has(e)
	case components.KindPhysic:
		return s.physic.Has(e)
	case components.KindController:
		return s.controller.Has(e)
	case components.KindController2:
		return s.controller2.Has(e)
	case components.KindCamera:
		return s.camera.Has(e)
	case components.KindCamera2:
		return s.camera2.Has(e)
	case components.KindSync:
		return s.sync.Has(e)
	case components.KindText:
		return s.text.Has(e)
	case components.KindScore:
		return s.score.Has(e)
	case components.KindDeath:
		return s.death.Has(e)
	case components.KindCollision:
		return s.collision.Has(e)
	case components.KindSpotlight:
		return s.spotlight.Has(e)
	case components.KindType:
		return s.typ.Has(e)
	case components.KindAnimation:
		return s.animation.Has(e)
	case components.KindDevHitbox:
		return s.devHitbox.Has(e)
	case components.KindCirclePlane:
		return s.circlePlane.Has(e)
	case components.KindBox:
		return s.box.Has(e)
	}
	return false
}

// Kinds returns the component kinds id carries, in kind order.
func (s *Store) Kinds(id string) []components.Kind {
	e, ok := s.ids[id]
	if !ok {
		return nil
	}
	var kinds []components.Kind
	for k := components.Kind(0); k < components.KindCount; k++ {
		if s.has(e, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Materialize delegates to the installed Materializer.
func (s *Store) Materialize(ctx context.Context, id string) error {
	if !s.Exists(id) {
		return fmt.Errorf("materialize %q: %w", id, ErrNoEntity)
	}
	if s.materializer == nil {
		return fmt.Errorf("materialize %q: no materializer installed", id)
	}
	return s.materializer.Materialize(ctx, id)
}

// SetState moves id to the given lifecycle state.
func (s *Store) SetState(id string, st components.LifeState) {
	if m := s.Meta(id); m != nil {
		m.State = st
	}
}

// RegisterBody records that the body with index belongs to id.
func (s *Store) RegisterBody(index int, id string) {
	s.bodyIndex[index] = id
}

// BodyOwner resolves a physics body index to its entity.
func (s *Store) BodyOwner(index int) (string, bool) {
	id, ok := s.bodyIndex[index]
	return id, ok
}

// Remove detaches every handle of id and evicts it. Unknown ids are a no-op.
func (s *Store) Remove(id string) bool {
	e, ok := s.ids[id]
	if !ok {
		return false
	}

	h := s.handles.Get(e)
	if h.Node != nil {
		s.scene.RemoveNode(h.Node)
	}
	if h.Debug != nil {
		s.scene.RemoveNode(h.Debug)
	}
	if h.Label != nil {
		s.scene.RemoveLabel(h.Label)
	}
	if h.Body != nil {
		delete(s.bodyIndex, h.Body.Index)
		s.bodies.Remove(h.Body)
	}
	*h = Handles{}

	s.meta.Get(e).State = components.Destroyed
	s.world.RemoveEntity(e)
	delete(s.ids, id)
	slog.Debug("entity_removed", "id", id)
	return true
}

// IDs returns every live id in sorted order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Each calls fn for every materialized entity in a stable order.
// fn may attach, detach or remove entities; removed ids are skipped.
func (s *Store) Each(fn func(id string)) {
	s.scratch = s.scratch[:0]
	query := s.filter.Query()
	for query.Next() {
		m := query.Get()
		if m.State == components.Materialized {
			s.scratch = append(s.scratch, m.ID)
		}
	}
	sort.Strings(s.scratch)

	ids := append([]string(nil), s.scratch...)
	for _, id := range ids {
		if s.State(id) != components.Materialized {
			continue
		}
		fn(id)
	}
}

// Detach removes the component of kind k from id, if present.
func (s *Store) Detach(id string, k components.Kind) {
	e, ok := s.ids[id]
	if !ok || !s.has(e, k) {
		return
	}
	switch k {
	case components.KindTransform:
		s.transform.Remove(e)
	case components.KindModel:
		s.model.Remove(e)
	case components.KindHitbox:
		s.hitbox.Remove(e)
	case components.KindPhysic:
		s.physic.Remove(e)
	case components.KindController:
		s.controller.Remove(e)
	case components.KindController2:
		s.controller2.Remove(e)
	case components.KindCamera:
		s.camera.Remove(e)
	case components.KindCamera2:
		s.camera2.Remove(e)
	case components.KindSync:
		s.sync.Remove(e)
	case components.KindText:
		s.text.Remove(e)
	case components.KindScore:
		s.score.Remove(e)
	case components.KindDeath:
		s.death.Remove(e)
	case components.KindCollision:
		s.collision.Remove(e)
	case components.KindSpotlight:
		s.spotlight.Remove(e)
	case components.KindType:
		s.typ.Remove(e)
	case components.KindAnimation:
		s.animation.Remove(e)
	case components.KindDevHitbox:
		s.devHitbox.Remove(e)
	case components.KindCirclePlane:
		s.circlePlane.Remove(e)
	case components.KindBox:
		s.box.Remove(e)
	}
}
