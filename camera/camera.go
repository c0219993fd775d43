// Package camera provides a perspective follow camera and screen projection.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective view into the arena.
type Camera struct {
	// Eye and Target define the view direction
	Eye, Target, Up mgl64.Vec3

	// Vertical field of view in degrees
	FovY float64

	// Clip planes
	Near, Far float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float64
}

// New creates a camera looking at the origin from the default follow offset.
func New(viewportW, viewportH, fovY, near, far float64) *Camera {
	return &Camera{
		Eye:       mgl64.Vec3{0, 0.4, 0.6},
		Target:    mgl64.Vec3{0, 0, 0},
		Up:        mgl64.Vec3{0, 1, 0},
		FovY:      fovY,
		Near:      near,
		Far:       far,
		ViewportW: viewportW,
		ViewportH: viewportH,
	}
}

// LookAt places the camera at eye looking at target.
func (c *Camera) LookAt(eye, target mgl64.Vec3) {
	c.Eye = eye
	c.Target = target
}

// Aspect returns the viewport aspect ratio.
func (c *Camera) Aspect() float64 {
	if c.ViewportH == 0 {
		return 1
	}
	return c.ViewportW / c.ViewportH
}

// ViewProjection returns the combined projection * view matrix.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	proj := mgl64.Perspective(mgl64.DegToRad(c.FovY), c.Aspect(), c.Near, c.Far)
	view := mgl64.LookAtV(c.Eye, c.Target, c.Up)
	return proj.Mul4(view)
}

// WorldToScreen converts a world point to screen pixels.
// Returns false when the point is behind the camera or outside the clip volume.
func (c *Camera) WorldToScreen(p mgl64.Vec3) (sx, sy float64, visible bool) {
	clip := c.ViewProjection().Mul4x1(p.Vec4(1))
	w := clip.W()
	if w <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / w)
	sx = (ndc.X() + 1) / 2 * c.ViewportW
	sy = (1 - ndc.Y()) / 2 * c.ViewportH
	visible = absf(ndc.X()) <= 1 && absf(ndc.Y()) <= 1 && ndc.Z() >= -1 && ndc.Z() <= 1
	return sx, sy, visible
}

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl64.Vec3 {
	d := c.Target.Sub(c.Eye)
	if d.Len() == 0 {
		return mgl64.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float64) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// SetFov sets the field of view, clamped to a usable range.
func (c *Camera) SetFov(deg float64) {
	c.FovY = clamp(deg, 10, 120)
}

// absf returns the absolute value of a float64.
func absf(x float64) float64 {
	return math.Abs(x)
}

// clamp restricts a value to a range.
func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
