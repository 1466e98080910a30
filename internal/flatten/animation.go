package flatten

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/math"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// bakeAnimation samples every curve of a stack at a fixed frame rate.
// Curves of unknown nodes are dropped.
func bakeAnimation(stack *fbxscene.AnimStack, fps float32, index map[int]int32, log *zap.Logger) scene.Animation {
	anim := scene.Animation{
		Name:      stack.Name,
		Duration:  stack.Duration,
		FrameRate: fps,
	}
	times := frameTimes(stack.Duration, fps)

	for _, curves := range stack.Curves {
		node, ok := index[curves.NodeID]
		if !ok {
			log.Warn("dropping animation curves of unknown node",
				zap.String("animation", stack.Name),
				zap.Int("node_id", curves.NodeID))
			continue
		}
		ch := scene.AnimationChannel{NodeIndex: node}
		if len(curves.Translation) > 0 {
			ch.Positions = make([]scene.Vec3Key, len(times))
			for i, t := range times {
				ch.Positions[i] = scene.Vec3Key{Time: t, Value: interpolateVec3Keys(curves.Translation, t, math.Vec3{})}
			}
		}
		if len(curves.Rotation) > 0 {
			ch.Rotations = make([]scene.QuatKey, len(times))
			for i, t := range times {
				ch.Rotations[i] = scene.QuatKey{Time: t, Value: interpolateQuatKeys(curves.Rotation, t)}
			}
		}
		if len(curves.Scale) > 0 {
			ch.Scales = make([]scene.Vec3Key, len(times))
			for i, t := range times {
				ch.Scales[i] = scene.Vec3Key{Time: t, Value: interpolateVec3Keys(curves.Scale, t, math.Vec3{X: 1, Y: 1, Z: 1})}
			}
		}
		anim.Channels = append(anim.Channels, ch)
	}
	return anim
}

// frameTimes returns the sample times of a take: every frame from zero,
// with the last sample clamped to the duration.
func frameTimes(duration, fps float32) []float32 {
	if duration <= 0 {
		return []float32{0}
	}
	frames := int(gomath.Ceil(float64(duration*fps) - 1e-4))
	times := make([]float32, frames+1)
	for i := range times {
		times[i] = min(float32(i)/fps, duration)
	}
	return times
}

// surroundingKeys finds the keys bracketing t in a time-sorted key list.
// prev == next when t is outside the keyed range.
func surroundingKeys(n int, timeAt func(int) float32, t float32) (prev, next int, frac float32) {
	for i := 0; i < n; i++ {
		if timeAt(i) > t {
			next = i
			break
		}
		prev = i
		next = i
	}
	if prev == next {
		return prev, next, 0
	}
	t0, t1 := timeAt(prev), timeAt(next)
	if t1 != t0 {
		frac = (t - t0) / (t1 - t0)
	}
	return prev, next, frac
}

// interpolateVec3Keys linearly interpolates vector keyframes at time t.
func interpolateVec3Keys(keys []fbxscene.Vec3Key, t float32, fallback math.Vec3) math.Vec3 {
	if len(keys) == 0 {
		return fallback
	}
	prev, next, frac := surroundingKeys(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if prev == next {
		return keys[prev].Value
	}
	return keys[prev].Value.Lerp(keys[next].Value, frac)
}

// interpolateQuatKeys spherically interpolates rotation keyframes at time t.
func interpolateQuatKeys(keys []fbxscene.QuatKey, t float32) math.Quat {
	if len(keys) == 0 {
		return math.QuatIdentity()
	}
	prev, next, frac := surroundingKeys(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if prev == next {
		return keys[prev].Value
	}
	return keys[prev].Value.Slerp(keys[next].Value, frac)
}
