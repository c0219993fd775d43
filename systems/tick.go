// Package systems contains the materializer and the per-kind tick systems.
package systems

import (
	"github.com/pthm-cable/spotlight/camera"
	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/physics"
	"github.com/pthm-cable/spotlight/render"
	"github.com/pthm-cable/spotlight/store"
)

// PhaseTimer receives phase boundaries. *telemetry.PerfCollector implements it.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Tick runs one frame: every materialized entity's systems in priority
// order, then one physics step, then render.
type Tick struct {
	store  *store.Store
	bodies *physics.World
	scene  render.Scene
	cam    *camera.Camera
	cfg    *config.Config
	emit   Emitter
	perf   PhaseTimer

	Registry *SystemRegistry

	keys    components.Keys
	dt      float64
	scale   float64 // dt relative to the reference frame
	stopped bool
	ticks   int
}

// NewTick creates a tick over s. A nil emitter drops outbound events.
func NewTick(s *store.Store, cam *camera.Camera, cfg *config.Config, emit Emitter) *Tick {
	if emit == nil {
		emit = NopEmitter{}
	}
	return &Tick{
		store:    s,
		bodies:   s.Physics(),
		scene:    s.Scene(),
		cam:      cam,
		cfg:      cfg,
		emit:     emit,
		Registry: NewSystemRegistry(),
	}
}

// SetEmitter replaces the outbound event sink.
func (t *Tick) SetEmitter(e Emitter) {
	if e == nil {
		e = NopEmitter{}
	}
	t.emit = e
}

// SetPerf installs a phase timer.
func (t *Tick) SetPerf(p PhaseTimer) {
	t.perf = p
}

// SetStopped pauses or resumes the tick.
func (t *Tick) SetStopped(stopped bool) {
	t.stopped = stopped
}

// Stopped reports whether the tick is paused.
func (t *Tick) Stopped() bool {
	return t.stopped
}

// Ticks returns the number of completed ticks.
func (t *Tick) Ticks() int {
	return t.ticks
}

// Camera returns the view camera.
func (t *Tick) Camera() *camera.Camera {
	return t.cam
}

// Update runs one tick with the measured dt and sampled keys.
// Returns false without touching the world while stopped.
func (t *Tick) Update(dt float64, keys components.Keys) bool {
	if t.stopped {
		return false
	}
	t.dt = dt
	t.scale = dt / t.cfg.Transform.ReferenceDT
	t.keys = keys

	t.phase("systems")
	t.store.Each(t.runEntity)

	t.phase("physics")
	t.bodies.Step()

	t.phase("render")
	t.scene.Render(t.cam)

	t.ticks++
	return true
}

func (t *Tick) phase(name string) {
	if t.perf != nil {
		t.perf.StartPhase(name)
	}
}

func (t *Tick) runEntity(id string) {
	for _, k := range components.Priority {
		if !t.store.Has(id, k) {
			continue
		}
		switch k {
		case components.KindDeath:
			t.death(id)
		case components.KindScore:
			t.score(id)
		case components.KindSpotlight:
			t.spotlight(id)
		case components.KindDevHitbox:
			t.devHitbox(id)
		case components.KindTransform:
			t.transform(id)
		case components.KindAnimation:
			t.animation(id)
		case components.KindSync:
			t.sync(id)
		case components.KindController:
			t.controller(id)
		case components.KindController2:
			t.controller2(id)
		case components.KindCollision:
			t.collision(id)
		case components.KindPhysic:
			t.physic(id)
		case components.KindCamera:
			t.camera(id)
		case components.KindCamera2:
			t.camera2(id)
		case components.KindText:
			t.text(id)
		}
	}
}
