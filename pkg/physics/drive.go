// pkg/physics/drive.go
package physics

import "math"

// TrackEpsilon is the tolerance under which two track velocities count as equal.
const TrackEpsilon = 1.1920929e-7

// DriveState tracks differential-drive body physics. TrackVelocity.X is the
// left track and TrackVelocity.Y the right track.
type DriveState struct {
	Position      Vector2D
	Heading       float64 // radians, counter-clockwise, zero faces +Y
	TrackVelocity Vector2D
}

// IntegrateTracks applies acceleration for dt seconds and clamps the result
// component-wise to maxVelocity.
func IntegrateTracks(velocity, acceleration, maxVelocity Vector2D, dt float64) Vector2D {
	return velocity.Add(acceleration.Scale(dt)).Clamp(maxVelocity)
}

// UpdateDrive moves the body for dt seconds using its current track velocities.
// halfWidth is the distance from the body's center to either track.
//
// Equal tracks drive straight along the heading. Otherwise the body rotates
// about a pivot on its right axis, halfWidth+radius from the center, where
// radius is derived from the track ratio. When the right track is stopped the
// primary formula degenerates (0/0) and the left track drives the rotation instead.
func UpdateDrive(state *DriveState, halfWidth, dt float64) {
	left, right := state.TrackVelocity.X, state.TrackVelocity.Y

	if math.Abs(left-right) < TrackEpsilon {
		state.Position = state.Position.Add(Forward(state.Heading).Scale((left + right) * 0.5 * dt))
		return
	}

	width := 2 * halfWidth
	radius := (width * right) / (left - right)
	pivot := state.Position.Add(Right(state.Heading).Scale(halfWidth + radius))

	angle := right / (2 * math.Pi * radius) * dt
	if !isNormal(angle) {
		angle = left / (2 * math.Pi * (width + radius)) * dt
	}
	if !isFinite(angle) {
		return
	}

	state.Position = state.Position.RotateAround(pivot, -angle)
	state.Heading = normalizeAngle(state.Heading - angle)
}

// UpdateTurret integrates turret angular acceleration into a clamped angular
// velocity and returns the new relative angle and velocity.
func UpdateTurret(angle, velocity, acceleration, maxVelocity, dt float64) (float64, float64) {
	velocity = ClampScalar(velocity+acceleration*dt, maxVelocity)
	return normalizeAngle(angle + velocity*dt), velocity
}

// isNormal reports whether f is a finite, non-zero, non-subnormal number.
func isNormal(f float64) bool {
	if !isFinite(f) {
		return false
	}
	return math.Abs(f) >= 0x1p-1022
}

// normalizeAngle wraps an angle into (-pi, pi].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
