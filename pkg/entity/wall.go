package entity

import (
	"errors"

	"github.com/opd-ai/go-tanks/pkg/physics"
	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// ErrDegenerateWall is returned for walls whose endpoints coincide.
var ErrDegenerateWall = errors.New("wall has zero length")

// Wall is an immovable segment. Normal points to the side bullets bounce off.
type Wall struct {
	Origin     physics.Vector2D
	Direction  physics.Vector2D
	HalfLength float64
	Normal     physics.Vector2D
}

// NewWall builds a wall between two endpoints. A zero normal defaults to the
// direction rotated a quarter turn counter-clockwise.
func NewWall(from, to, normal physics.Vector2D) (Wall, error) {
	span := to.Sub(from)
	length := span.Length()
	if length == 0 || !span.IsFinite() {
		return Wall{}, ErrDegenerateWall
	}
	direction := span.Scale(1 / length)
	if normal.LengthSquared() == 0 {
		normal = physics.Vector2D{X: -direction.Y, Y: direction.X}
	} else {
		normal = normal.Normalize()
	}
	return Wall{
		Origin:     from.Add(span.Scale(0.5)),
		Direction:  direction,
		HalfLength: length / 2,
		Normal:     normal,
	}, nil
}

// Segment returns the wall geometry for proximity tests.
func (w Wall) Segment() physics.Segment {
	return physics.Segment{Origin: w.Origin, Direction: w.Direction, HalfLength: w.HalfLength}
}

// Snapshot describes the wall for a MapChange message.
func (w Wall) Snapshot() protocol.Wall {
	return protocol.Wall{
		Origin:          w.Origin.Float32(),
		DirectionLength: w.Direction.Scale(w.HalfLength).Float32(),
	}
}

// Spawn is a point where tanks may appear.
type Spawn struct {
	Position physics.Vector2D
}
