// Package netsync replicates the simulation over a realtime channel:
// presence joins and leaves become player entities, broadcasts correct
// remote state, and local systems publish through Sync's Emitter methods.
package netsync

import "github.com/go-gl/mathgl/mgl64"

// Broadcast event names.
const (
	EventTransform = "t"
	EventRotate    = "tr"
	EventKnockback = "k"
	EventSpotlight = "tr_spot"
	EventStart     = "start"
	EventEnd       = "end"
	EventPlay      = "play"
)

// Presence is what every peer tracks on a round or room channel.
type Presence struct {
	Username string  `msgpack:"username"`
	Skin     string  `msgpack:"skin"`
	IsHost   bool    `msgpack:"is_host"`
	Force    float64 `msgpack:"force"`
}

// Vec is a wire vector.
type Vec struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
	Z float64 `msgpack:"z"`
}

func toVec(v mgl64.Vec3) Vec    { return Vec{v[0], v[1], v[2]} }
func (v Vec) Vec3() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

// TransformState is the pose carried by a t event.
type TransformState struct {
	Position Vec `msgpack:"position"`
	Rotation Vec `msgpack:"rotation"`
	Scale    Vec `msgpack:"scale"`
}

// Transform is the t payload.
type Transform struct {
	ID        string         `msgpack:"id"`
	Transform TransformState `msgpack:"transform"`
}

// RotateReset is the tr payload.
type RotateReset struct {
	ID string `msgpack:"id"`
}

// Knockback is the k payload.
type Knockback struct {
	ID    string  `msgpack:"id"`
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	Z     float64 `msgpack:"z"`
	Force float64 `msgpack:"force"`
	From  string  `msgpack:"from"`
}

// SpotlightTransfer is the tr_spot payload.
type SpotlightTransfer struct {
	ID    string  `msgpack:"id"`
	Prev  string  `msgpack:"prev"`
	Score float64 `msgpack:"score"`
}

// Start is the start payload: host wall clock in milliseconds.
type Start struct {
	Time int64 `msgpack:"time"`
}

// Play is the play payload.
type Play struct {
	UUID string `msgpack:"uuid"`
}
