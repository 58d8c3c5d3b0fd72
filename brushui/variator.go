package brushui

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush/terrain"
)

const (
	rad2deg = 180 / math32.Pi
	// Cursor offsets from the pivot shorter than this carry no direction.
	minArm = 1e-5
)

// RotationVariator derives brush rotation from cursor motion around a pivot while
// its shortcut is held. The accumulated rotation survives release and later presses;
// only Set changes it outside of tracking.
type RotationVariator struct {
	rotation float32
	pivot    ms3.Vec
	last     ms3.Vec
	tracking bool
}

// Press starts tracking. pivot is the point the brush rotates around, usually the
// brush center, and cursor the current cursor hit.
func (rv *RotationVariator) Press(pivot, cursor ms3.Vec) {
	rv.pivot = pivot
	rv.last = cursor
	rv.tracking = true
}

// Update adds the signed angle swept around the pivot between the previous and the
// current cursor hit. It does nothing while not tracking.
func (rv *RotationVariator) Update(cursor ms3.Vec) {
	if !rv.tracking {
		return
	}
	a := ms3.Sub(rv.last, rv.pivot)
	b := ms3.Sub(cursor, rv.pivot)
	rv.last = cursor
	rv.rotation = wrapDegrees(rv.rotation + SignedAngle(a, b))
}

// Release stops tracking and freezes the rotation.
func (rv *RotationVariator) Release() { rv.tracking = false }

// Tracking reports whether the variator's shortcut is held.
func (rv *RotationVariator) Tracking() bool { return rv.tracking }

// Rotation returns the accumulated rotation in degrees within [0, 360).
func (rv *RotationVariator) Rotation() float32 { return rv.rotation }

// Set overrides the accumulated rotation.
func (rv *RotationVariator) Set(degrees float32) { rv.rotation = wrapDegrees(degrees) }

// SignedAngle returns the angle in degrees that turns a onto b about [terrain.Up],
// both projected onto the ground plane. Positive angles turn +X toward +Z,
// matching brush rotation. Degenerate vectors yield zero.
func SignedAngle(a, b ms3.Vec) float32 {
	up := terrain.Up
	a = ms3.Sub(a, ms3.Scale(ms3.Dot(a, up), up))
	b = ms3.Sub(b, ms3.Scale(ms3.Dot(b, up), up))
	if ms3.Norm(a) < minArm || ms3.Norm(b) < minArm {
		return 0
	}
	// X toward Z is a negative turn about +Y by the right-hand rule.
	sin := -ms3.Dot(up, ms3.Cross(a, b))
	cos := ms3.Dot(a, b)
	return math32.Atan2(sin, cos) * rad2deg
}

func wrapDegrees(d float32) float32 {
	d = math32.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// ScalarVariator adjusts a brush parameter from horizontal cursor motion while
// its shortcut is held.
type ScalarVariator struct {
	// Sensitivity is the change per unit of cursor motion.
	Sensitivity float32
	// Multiplicative variators scale the value by 1+Sensitivity*dx, additive ones add Sensitivity*dx.
	Multiplicative bool
	Min, Max       float32

	value    float32
	tracking bool
}

// Press starts tracking from the current parameter value.
func (sv *ScalarVariator) Press(value float32) {
	sv.value = value
	sv.tracking = true
}

// Move applies cursor motion dx and returns the new value. ok is false while not tracking.
func (sv *ScalarVariator) Move(dx float32) (value float32, ok bool) {
	if !sv.tracking {
		return sv.value, false
	}
	if sv.Multiplicative {
		sv.value *= math32.Max(0, 1+sv.Sensitivity*dx)
	} else {
		sv.value += sv.Sensitivity * dx
	}
	sv.value = math32.Max(sv.Min, math32.Min(sv.value, sv.Max))
	return sv.value, true
}

// Release stops tracking.
func (sv *ScalarVariator) Release() { sv.tracking = false }

// Tracking reports whether the variator's shortcut is held.
func (sv *ScalarVariator) Tracking() bool { return sv.tracking }
