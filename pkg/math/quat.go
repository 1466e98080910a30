package math

import "github.com/chewxy/math32"

// Quat is a rotation quaternion; W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the quaternion of no rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle returns the rotation of angle radians around a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math32.Sincos(angle / 2)
	v := axis.Scale(s)
	return Quat{v.X, v.Y, v.Z, c}
}

// Dot returns the four-component dot product.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

func (q Quat) scale(s float32) Quat {
	return Quat{q.X * s, q.Y * s, q.Z * s, q.W * s}
}

func (q Quat) add(other Quat) Quat {
	return Quat{q.X + other.X, q.Y + other.Y, q.Z + other.Z, q.W + other.W}
}

// Normalize returns q scaled to unit length. Degenerate quaternions
// become the identity.
func (q Quat) Normalize() Quat {
	n := q.Dot(q)
	if n < 1e-8 {
		return QuatIdentity()
	}
	return q.scale(1 / math32.Sqrt(n))
}

// Slerp interpolates from q to other along the shorter arc, t in [0, 1].
func (q Quat) Slerp(other Quat, t float32) Quat {
	cos := q.Dot(other)
	if cos < 0 {
		other, cos = other.scale(-1), -cos
	}
	if cos > 0.9995 {
		return q.scale(1 - t).add(other.scale(t)).Normalize()
	}

	theta := math32.Acos(cos)
	sin := math32.Sin(theta)
	a := math32.Sin((1-t)*theta) / sin
	b := math32.Sin(t*theta) / sin
	return q.scale(a).add(other.scale(b))
}

// ToMat4 returns the rotation matrix of the normalized quaternion.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z

	xx, yy, zz := q.X*x2, q.Y*y2, q.Z*z2
	xy, xz, yz := q.X*y2, q.X*z2, q.Y*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	return Mat4{
		1 - yy - zz, xy + wz, xz - wy, 0,
		xy - wz, 1 - xx - zz, yz + wx, 0,
		xz + wy, yz - wx, 1 - xx - yy, 0,
		0, 0, 0, 1,
	}
}

// Vec4 returns the components as (X, Y, Z, W).
func (q Quat) Vec4() Vec4 {
	return Vec4{q.X, q.Y, q.Z, q.W}
}
