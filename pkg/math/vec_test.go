package math

import (
	"testing"
)

func TestVec2Add(t *testing.T) {
	got := Vec2{1, 2}.Add(Vec2{3, 4})
	want := Vec2{4, 6}
	if got != want {
		t.Errorf("Vec2.Add() = %v, want %v", got, want)
	}
}

func TestVec2Length(t *testing.T) {
	if got := (Vec2{3, 4}).Length(); got != 5 {
		t.Errorf("Vec2.Length() = %v, want 5", got)
	}
}

func TestVec3Cross(t *testing.T) {
	got := Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0})
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	l := Vec3{3, 4, 12}.Normalize().Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero vector should stay zero, got %v", got)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, 0}
	if got := a.Min(b); got != (Vec3{1, -1, -2}) {
		t.Errorf("Min = %v", got)
	}
	if got := a.Max(b); got != (Vec3{3, 5, 0}) {
		t.Errorf("Max = %v", got)
	}
}

func TestVec3Lerp(t *testing.T) {
	got := Vec3{0, 0, 0}.Lerp(Vec3{10, 20, 30}, 0.5)
	if got != (Vec3{5, 10, 15}) {
		t.Errorf("Lerp = %v, want (5, 10, 15)", got)
	}
}

func TestVec4Sum(t *testing.T) {
	v := Vec4{0.1, 0.2, 0.3, 0.4}
	if got := v.Sum(); got < 0.999 || got > 1.001 {
		t.Errorf("Sum = %v, want ~1", got)
	}
	if got := Vec4FromArray(v.Array()); got != v {
		t.Errorf("array round trip = %v", got)
	}
}
