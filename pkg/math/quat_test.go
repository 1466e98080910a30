package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}

	if got := (Quat{}).Normalize(); got != QuatIdentity() {
		t.Errorf("zero quaternion should normalize to identity, got %v", got)
	}
}

func TestQuatSlerp(t *testing.T) {
	q1 := QuatIdentity()
	q2 := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	if r := q1.Slerp(q2, 0); math.Abs(float64(r.W-q1.W)) > 0.001 {
		t.Errorf("Slerp at t=0 should equal q1")
	}
	if r := q1.Slerp(q2, 1); math.Abs(float64(r.W-q2.W)) > 0.001 {
		t.Errorf("Slerp at t=1 should equal q2")
	}

	// Halfway through a 90 degree turn is 45 degrees.
	r := q1.Slerp(q2, 0.5)
	expectedW := float32(math.Cos(math.Pi / 8))
	if math.Abs(float64(r.W-expectedW)) > 0.01 {
		t.Errorf("Slerp at t=0.5: expected W ~%v, got %v", expectedW, r.W)
	}
}

func TestQuatToMat4(t *testing.T) {
	m := QuatIdentity().ToMat4()
	identity := Identity()
	for i := 0; i < 16; i++ {
		if math.Abs(float64(m[i]-identity[i])) > 0.0001 {
			t.Errorf("Identity quat should produce identity matrix, element %d: got %v, want %v", i, m[i], identity[i])
		}
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	expectedW := float32(math.Cos(math.Pi / 4))
	expectedY := float32(math.Sin(math.Pi / 4))

	if math.Abs(float64(q.W-expectedW)) > 0.001 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math.Abs(float64(q.Y-expectedY)) > 0.001 {
		t.Errorf("QuatFromAxisAngle Y: expected %v, got %v", expectedY, q.Y)
	}
}

func TestQuatSlerpShortestPath(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{Y: 1}, 0.2)
	flipped := Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}

	// q and -q are the same rotation; interpolating between them must not
	// swing through a full turn.
	r := q.Slerp(flipped, 0.5)
	if math.Abs(float64(r.Dot(q))) < 0.999 {
		t.Errorf("Slerp(q, -q, 0.5) = %v, want a rotation equal to %v", r, q)
	}
}

func TestQuatToMat4RotatesY(t *testing.T) {
	m := QuatFromAxisAngle(Vec3{Y: 1}, float32(math.Pi/2)).ToMat4()
	p := m.TransformPoint(Vec3{X: 1})
	if math.Abs(float64(p.X)) > 1e-5 || math.Abs(float64(p.Z+1)) > 1e-5 {
		t.Errorf("rotating +X by 90 degrees around Y: got %v, want (0, 0, -1)", p)
	}
}
