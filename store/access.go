package store

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/spotlight/components"
)

// Typed accessors return nil when the entity or component is missing.
// Returned pointers are valid until the next structural change to the entity.

func get[T any](s *Store, m *ecs.Map[T], id string) *T {
	e, ok := s.ids[id]
	if !ok || !m.Has(e) {
		return nil
	}
	return m.Get(e)
}

func (s *Store) Transform(id string) *components.Transform { return get(s, s.transform, id) }
func (s *Store) Model(id string) *components.Model         { return get(s, s.model, id) }
func (s *Store) Hitbox(id string) *components.Hitbox       { return get(s, s.hitbox, id) }
func (s *Store) Physic(id string) *components.Physic       { return get(s, s.physic, id) }
func (s *Store) Controller(id string) *components.Controller {
	return get(s, s.controller, id)
}
func (s *Store) Controller2(id string) *components.Controller2 {
	return get(s, s.controller2, id)
}
func (s *Store) Camera(id string) *components.Camera       { return get(s, s.camera, id) }
func (s *Store) Camera2(id string) *components.Camera2     { return get(s, s.camera2, id) }
func (s *Store) Sync(id string) *components.Sync           { return get(s, s.sync, id) }
func (s *Store) Text(id string) *components.Text           { return get(s, s.text, id) }
func (s *Store) Score(id string) *components.Score         { return get(s, s.score, id) }
func (s *Store) Death(id string) *components.Death         { return get(s, s.death, id) }
func (s *Store) Collision(id string) *components.Collision { return get(s, s.collision, id) }
func (s *Store) Spotlight(id string) *components.Spotlight { return get(s, s.spotlight, id) }
func (s *Store) Type(id string) *components.Type           { return get(s, s.typ, id) }
func (s *Store) Animation(id string) *components.Animation { return get(s, s.animation, id) }
func (s *Store) DevHitbox(id string) *components.DevHitbox { return get(s, s.devHitbox, id) }
func (s *Store) CirclePlane(id string) *components.CirclePlane {
	return get(s, s.circlePlane, id)
}
func (s *Store) Box(id string) *components.Box { return get(s, s.box, id) }

// TypeName returns the entity's type name, or "" when absent.
func (s *Store) TypeName(id string) string {
	if t := s.Type(id); t != nil {
		return t.Name
	}
	return ""
}

// Scores returns every entity carrying a score component, keyed by id.
func (s *Store) Scores() map[string]components.Score {
	out := make(map[string]components.Score)
	for id, e := range s.ids {
		if s.score.Has(e) {
			out[id] = *s.score.Get(e)
		}
	}
	return out
}

// Component returns the component of kind k, or nil when absent.
func (s *Store) Component(id string, k components.Kind) components.Descriptor {
	if !s.Has(id, k) {
		return nil
	}
	switch k {
	case components.KindTransform:
		return s.Transform(id)
	case components.KindModel:
		return s.Model(id)
	case components.KindHitbox:
		return s.Hitbox(id)
	case components.KindPhysic:
		return s.Physic(id)
	case components.KindController:
		return s.Controller(id)
	case components.KindController2:
		return s.Controller2(id)
	case components.KindCamera:
		return s.Camera(id)
	case components.KindCamera2:
		return s.Camera2(id)
	case components.KindSync:
		return s.Sync(id)
	case components.KindText:
		return s.Text(id)
	case components.KindScore:
		return s.Score(id)
	case components.KindDeath:
		return s.Death(id)
	case components.KindCollision:
		return s.Collision(id)
	case components.KindSpotlight:
		return s.Spotlight(id)
	case components.KindType:
		return s.Type(id)
	case components.KindAnimation:
		return s.Animation(id)
	case components.KindDevHitbox:
		return s.DevHitbox(id)
	case components.KindCirclePlane:
		return s.CirclePlane(id)
	case components.KindBox:
		return s.Box(id)
	}
	return nil
}
