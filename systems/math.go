package systems

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// eulerQuat converts xyz euler radians to a quaternion.
func eulerQuat(r mgl64.Vec3) mgl64.Quat {
	return mgl64.AnglesToQuat(r.X(), r.Y(), r.Z(), mgl64.XYZ)
}

// nlerp interpolates along the shorter arc.
func nlerp(from, to mgl64.Quat, t float64) mgl64.Quat {
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return mgl64.QuatNlerp(from, to, t)
}

func lerpVec(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// facing returns the horizontal unit vector for a yaw angle.
func facing(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(yaw), 0, math.Cos(yaw)}
}

// horizontal returns v with y dropped and normalized, or fallback when v is vertical.
func horizontal(v, fallback mgl64.Vec3) mgl64.Vec3 {
	v[1] = 0
	if v.Len() < 1e-9 {
		return fallback
	}
	return v.Normalize()
}
