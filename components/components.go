// Package components defines ECS components for the arena simulation.
package components

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Transform holds an entity's target pose and its smoothing progress.
// TimeScale and TimeRotate stay in [0,1].
type Transform struct {
	Position       mgl64.Vec3
	Offset         mgl64.Vec3 // fixed render offset
	Rotation       mgl64.Vec3 // euler radians, target
	RotationOffset mgl64.Vec3
	Scale          mgl64.Vec3
	TimeScale      float64 `inspect:"bar"`
	TimeRotate     float64 `inspect:"bar"`
}

// Model references a binary model asset.
type Model struct {
	Bucket    string
	File      string
	Scale     mgl64.Vec3
	Animation string // default clip, empty for none
}

// Hitbox describes a fixed-rotation box body sized in world units.
type Hitbox struct {
	Width, Height, Depth float64
}

// Physic holds locally simulated motion state.
type Physic struct {
	Vel         mgl64.Vec3
	CamVel      mgl64.Vec3 // camera-shake velocity, decays separately
	Static      bool       // orientation driven by Orientation, not torque
	Orientation mgl64.Quat `inspect:"skip"`
	Mass        float64
	ApplyForce  bool // record opponents in Collision on contact
}

// Keys is the arrow-key state sampled once per tick.
type Keys struct {
	Left, Right, Up, Down bool
}

// Any reports whether any direction is held.
func (k Keys) Any() bool {
	return k.Left || k.Right || k.Up || k.Down
}

// Controller is omnidirectional strafing driven by held keys.
type Controller struct {
	Previous Keys
}

// Controller2 is forward-dash locomotion with a cooldown.
type Controller2 struct {
	Vector      mgl64.Vec3 // last dash direction
	Speed       float64
	Cooldown    float64 `inspect:"bar,max:36"` // frames remaining
	MaxCooldown float64
	Clockwise   bool
	Previous    Keys
}

// Camera follows the entity with a fixed offset plus camera shake.
type Camera struct {
	Offset mgl64.Vec3
}

// Camera2 trails behind the entity along its facing.
type Camera2 struct {
	Distance float64
	Height   float64
}

// Sync gates the outbound transform broadcast cadence.
type Sync struct {
	T float64 // seconds since last emit
}

// Text is a screen-space label anchored to the entity.
type Text struct {
	Text    string
	Offset  mgl64.Vec3
	Size    float64
	Color   uint32
	ScreenX float64 `inspect:"skip"` // horizontal centering offset in pixels
	OnClick func() `inspect:"skip"`
}

// Score accrues holding time while Trigger is set.
type Score struct {
	Score   float64 `inspect:"label,fmt:%.2f"`
	Trigger bool
}

// DeathPolicy selects what happens when Death fires.
type DeathPolicy uint8

const (
	DeathNone DeathPolicy = iota
	DeathTransferSpotlight
)

// Death is armed by floor recovery and resolved by the death system.
type Death struct {
	Trigger  bool
	KilledBy string
	OnDeath  DeathPolicy
}

// NoCollision marks an empty Collision.CollideIndex.
const NoCollision = -1

// Collision holds the pending opponent body index and push force.
type Collision struct {
	CollideIndex int
	Force        float64 `inspect:"bar"`
}

// Spotlight names the entity currently followed.
type Spotlight struct {
	FollowID string
	Height   float64
	Color    uint32
}

// Type names the entity class ("player", "ground", ...).
type Type struct {
	Name string
}

// Animation is a bound clip played by the entity's mixer.
type Animation struct {
	Clip  string
	Speed float64
}

// DevHitbox draws the body's bounds for debugging.
type DevHitbox struct {
	Color uint32
}

// CirclePlane is a flat disc primitive with a matching static body.
type CirclePlane struct {
	Radius   float64
	Segments int
	Color    uint32
}

// Box is a cuboid primitive with a matching static body.
type Box struct {
	Width, Height, Depth float64
	Color                uint32
}

// NewTransform returns a transform at pos with unit scale.
func NewTransform(pos mgl64.Vec3) *Transform {
	return &Transform{Position: pos, Scale: mgl64.Vec3{1, 1, 1}}
}

// NewCollision returns a collision with no pending opponent.
func NewCollision(force float64) *Collision {
	return &Collision{CollideIndex: NoCollision, Force: force}
}
