package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	if result != m {
		t.Errorf("M * I should equal M: got %v, want %v", result, m)
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation lives in column 4 (indices 12, 13, 14)
	if got := m.Translation(); got != (Vec3{5, 10, 15}) {
		t.Errorf("Translation: got %v, want (5, 10, 15)", got)
	}
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		p    Vec3
		want Vec3
	}{
		{"translate", Translate(10, 20, 30), Vec3{1, 2, 3}, Vec3{11, 22, 33}},
		{"scale", Scale(2, 2, 2), Vec3{1, 2, 3}, Vec3{2, 4, 6}},
		{"identity", Identity(), Vec3{-1, 0, 4}, Vec3{-1, 0, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.TransformPoint(tt.p); got != tt.want {
				t.Errorf("TransformPoint: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(10, 20, 30).Mul(Scale(2, 2, 2))
	got := m.TransformDirection(Vec3{1, 0, 0})
	if got != (Vec3{2, 0, 0}) {
		t.Errorf("TransformDirection: got %v, want (2, 0, 0)", got)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2))
	result := m.TransformPoint(Vec3{1, 0, 0})

	// (1,0,0) rotated 90 degrees about Y is (0,0,-1)
	if abs(result.X) > 0.001 || abs(result.Y) > 0.001 || abs(result.Z+1) > 0.001 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestFromTRS(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 1, 0}, float32(math.Pi/2))
	m := FromTRS(Vec3{1, 2, 3}, q, Vec3{2, 2, 2})

	got := m.TransformPoint(Vec3{1, 0, 0})
	want := Vec3{1, 2, 1} // scaled to (2,0,0), rotated to (0,0,-2), translated
	if abs(got.X-want.X) > 0.001 || abs(got.Y-want.Y) > 0.001 || abs(got.Z-want.Z) > 0.001 {
		t.Errorf("FromTRS: got %v, want %v", got, want)
	}
}

func TestInverse(t *testing.T) {
	m := Translate(3, -2, 7).Mul(Scale(2, 4, 0.5))
	result := m.Mul(m.Inverse())
	id := Identity()

	for i := 0; i < 16; i++ {
		if abs(result[i]-id[i]) > 0.0001 {
			t.Fatalf("M * M^-1 element %d: got %f, want %f", i, result[i], id[i])
		}
	}
}

func TestInverseSingular(t *testing.T) {
	if got := Scale(0, 1, 1).Inverse(); got != Identity() {
		t.Errorf("singular inverse should be identity, got %v", got)
	}
}

func TestDeterminant(t *testing.T) {
	if got := Scale(2, 3, 4).Determinant(); got != 24 {
		t.Errorf("Determinant: got %f, want 24", got)
	}
	if got := Scale(-1, 1, 1).Determinant(); got != -1 {
		t.Errorf("Determinant mirrored: got %f, want -1", got)
	}
}

func TestNormalMatrix(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		want Mat4
	}{
		{
			name: "non-uniform scale",
			m:    Scale(2, 3, 4),
			want: Scale(12, 8, 6),
		},
		{
			name: "mirror keeps orientation",
			m:    Scale(-1, 1, 1),
			want: Scale(-1, 1, 1),
		},
		{
			name: "translation dropped",
			m:    Translate(5, 5, 5),
			want: Identity(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.NormalMatrix(); got != tt.want {
				t.Errorf("NormalMatrix: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalMatrixRotation(t *testing.T) {
	r := RotateY(0.7)
	n := r.NormalMatrix()
	for i := 0; i < 16; i++ {
		if abs(n[i]-r[i]) > 0.0001 {
			t.Fatalf("rotation normal matrix element %d: got %f, want %f", i, n[i], r[i])
		}
	}
}

func TestNormalMatrixKeepsSurfacePerpendicular(t *testing.T) {
	m := Scale(1, 5, 1).Mul(RotateY(0.3))
	tangent := Vec3{1, 1, 0}
	normal := Vec3{1, -1, 0}

	tw := m.TransformDirection(tangent)
	nw := m.NormalMatrix().TransformDirection(normal)
	if d := tw.Dot(nw); abs(d) > 0.001 {
		t.Errorf("transformed normal not perpendicular: dot = %f", d)
	}
}

func TestTranspose(t *testing.T) {
	m := Translate(1, 2, 3)
	tr := m.Transpose()
	if tr[3] != 1 || tr[7] != 2 || tr[11] != 3 {
		t.Errorf("Transpose: got %v", tr)
	}
	if tr.Transpose() != m {
		t.Error("double transpose should be identity operation")
	}
}

func TestAffine(t *testing.T) {
	m := Identity()
	m[3], m[15] = 5, 2
	a := m.Affine()
	if a[3] != 0 || a[15] != 1 {
		t.Errorf("Affine: got %v", a)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
