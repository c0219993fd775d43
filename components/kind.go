package components

// Kind identifies a component variant.
type Kind uint8

const (
	KindTransform Kind = iota
	KindModel
	KindHitbox
	KindPhysic
	KindController
	KindController2
	KindCamera
	KindCamera2
	KindSync
	KindText
	KindScore
	KindDeath
	KindCollision
	KindSpotlight
	KindType
	KindAnimation
	KindDevHitbox
	KindCirclePlane
	KindBox

	KindCount
)

var kindNames = [KindCount]string{
	"transform", "model", "hitbox", "physic", "controller", "controller2",
	"camera", "camera2", "sync", "text", "score", "death", "collision",
	"spotlight", "type", "animation", "dev_hitbox", "circle_plane", "box",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if k < KindCount {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind resolves a wire name.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Priority is the per-entity dispatch order of the simulation tick.
// Round logic resolves before movement, controllers before physic,
// cameras and labels last.
var Priority = []Kind{
	KindDeath,
	KindScore,
	KindSpotlight,
	KindDevHitbox,
	KindTransform,
	KindAnimation,
	KindSync,
	KindController,
	KindController2,
	KindCollision,
	KindPhysic,
	KindCamera,
	KindCamera2,
	KindText,
}

// Descriptor is implemented by every component struct.
type Descriptor interface {
	Kind() Kind
}

func (*Transform) Kind() Kind   { return KindTransform }
func (*Model) Kind() Kind       { return KindModel }
func (*Hitbox) Kind() Kind      { return KindHitbox }
func (*Physic) Kind() Kind      { return KindPhysic }
func (*Controller) Kind() Kind  { return KindController }
func (*Controller2) Kind() Kind { return KindController2 }
func (*Camera) Kind() Kind      { return KindCamera }
func (*Camera2) Kind() Kind     { return KindCamera2 }
func (*Sync) Kind() Kind        { return KindSync }
func (*Text) Kind() Kind        { return KindText }
func (*Score) Kind() Kind       { return KindScore }
func (*Death) Kind() Kind       { return KindDeath }
func (*Collision) Kind() Kind   { return KindCollision }
func (*Spotlight) Kind() Kind   { return KindSpotlight }
func (*Type) Kind() Kind        { return KindType }
func (*Animation) Kind() Kind   { return KindAnimation }
func (*DevHitbox) Kind() Kind   { return KindDevHitbox }
func (*CirclePlane) Kind() Kind { return KindCirclePlane }
func (*Box) Kind() Kind         { return KindBox }

// LifeState is the materialization stage of an entity.
type LifeState uint8

const (
	Pending LifeState = iota
	Materialized
	Destroyed
)

func (s LifeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Materialized:
		return "materialized"
	case Destroyed:
		return "destroyed"
	}
	return "unknown"
}

// Meta is engine bookkeeping present on every entity.
type Meta struct {
	ID     string
	State  LifeState
	Remote bool // created from a remote peer's join
}
