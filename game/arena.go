package game

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/store"
)

// groundColor is used for the fallback disc when no model loader is set.
const groundColor = 0x3a3a44

// setupArena creates the ground and the spotlight.
func (g *Game) setupArena() error {
	a := g.cfg.Arena

	if _, err := g.store.Create(store.GroundID); err != nil {
		return err
	}
	ground := []components.Descriptor{
		&components.Type{Name: "ground"},
		components.NewTransform(mgl64.Vec3{0, a.GroundY, 0}),
		&components.Model{Bucket: a.Ground.Bucket, File: a.Ground.File, Scale: a.Ground.Scale.Vec3()},
		&components.Hitbox{Width: a.GroundHitbox.Width, Height: a.GroundHitbox.Height, Depth: a.GroundHitbox.Depth},
	}
	if g.loader == nil {
		ground = append(ground, &components.CirclePlane{Radius: a.GroundHitbox.Width / 2, Segments: 48, Color: groundColor})
	}
	if err := g.attach(store.GroundID, ground); err != nil {
		return err
	}

	if _, err := g.store.Create(store.SpotlightID); err != nil {
		return err
	}
	spot := []components.Descriptor{
		&components.Type{Name: "spotlight"},
		components.NewTransform(mgl64.Vec3{0, a.SpotlightY, 0}),
		&components.Spotlight{Height: a.SpotlightY, Color: a.SpotlightColor},
	}
	if err := g.attach(store.SpotlightID, spot); err != nil {
		return err
	}

	if err := g.store.Materialize(g.ctx, store.GroundID); err != nil {
		return err
	}
	return g.store.Materialize(g.ctx, store.SpotlightID)
}

func (g *Game) attach(id string, descs []components.Descriptor) error {
	for _, d := range descs {
		if err := g.store.Attach(id, d); err != nil {
			return err
		}
	}
	return nil
}
