// pkg/physics/vector.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vector2D represents a 2D vector with x and y components
type Vector2D struct {
	X float64
	Y float64
}

// Add returns the sum of two vectors
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{
		X: v.X + other.X,
		Y: v.Y + other.Y,
	}
}

// Sub returns the difference between two vectors
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{
		X: v.X - other.X,
		Y: v.Y - other.Y,
	}
}

// Scale multiplies the vector by a scalar value
func (v Vector2D) Scale(factor float64) Vector2D {
	return Vector2D{
		X: v.X * factor,
		Y: v.Y * factor,
	}
}

// Length returns the magnitude of the vector
func (v Vector2D) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LengthSquared returns magnitude squared (optimization for comparisons)
func (v Vector2D) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalize returns a unit vector in the same direction
func (v Vector2D) Normalize() Vector2D {
	length := v.Length()
	if length == 0 {
		return Vector2D{}
	}
	return Vector2D{
		X: v.X / length,
		Y: v.Y / length,
	}
}

// Distance returns the distance between two vectors
func (v Vector2D) Distance(other Vector2D) float64 {
	return v.Sub(other).Length()
}

// Dot returns the dot product of two vectors
func (v Vector2D) Dot(other Vector2D) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Rotate rotates the vector counter-clockwise by angle (in radians)
func (v Vector2D) Rotate(angle float64) Vector2D {
	r := mgl64.Rotate2D(angle).Mul2x1(mgl64.Vec2{v.X, v.Y})
	return Vector2D{X: r.X(), Y: r.Y()}
}

// RotateAround rotates the point v counter-clockwise by angle about pivot.
func (v Vector2D) RotateAround(pivot Vector2D, angle float64) Vector2D {
	return pivot.Add(v.Sub(pivot).Rotate(angle))
}

// Reflect mirrors the vector about a unit normal: v - 2(v·n)n.
func (v Vector2D) Reflect(normal Vector2D) Vector2D {
	return v.Sub(normal.Scale(2 * v.Dot(normal)))
}

// Clamp limits each component to [-limit, +limit] of the matching component.
// A NaN component clamps to zero.
func (v Vector2D) Clamp(limit Vector2D) Vector2D {
	return Vector2D{
		X: ClampScalar(v.X, limit.X),
		Y: ClampScalar(v.Y, limit.Y),
	}
}

// IsFinite reports whether both components are finite numbers.
func (v Vector2D) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

// Float32 converts the vector to the wire representation.
func (v Vector2D) Float32() [2]float32 {
	return [2]float32{float32(v.X), float32(v.Y)}
}

// FromFloat32 converts a wire pair into a vector.
func FromFloat32(p [2]float32) Vector2D {
	return Vector2D{X: float64(p[0]), Y: float64(p[1])}
}

// Forward returns the unit vector a body with the given heading faces.
// Heading zero faces +Y and positive headings turn counter-clockwise.
func Forward(heading float64) Vector2D {
	return Vector2D{X: -math.Sin(heading), Y: math.Cos(heading)}
}

// Right returns the unit vector to the right of a body with the given heading.
func Right(heading float64) Vector2D {
	return Vector2D{X: math.Cos(heading), Y: math.Sin(heading)}
}

// ClampScalar limits value to [-limit, +limit]. NaN clamps to zero.
func ClampScalar(value, limit float64) float64 {
	limit = math.Abs(limit)
	switch {
	case math.IsNaN(value):
		return 0
	case value > limit:
		return limit
	case value < -limit:
		return -limit
	}
	return value
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
