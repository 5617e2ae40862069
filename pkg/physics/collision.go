// pkg/physics/collision.go
package physics

// Circle represents a circular collision shape
type Circle struct {
	Center Vector2D
	Radius float64
}

// Collides checks if two circles are colliding. Touching circles do not collide.
func (c Circle) Collides(other Circle) bool {
	return c.Center.Distance(other.Center) < c.Radius+other.Radius
}

// Segment is a line segment described by its midpoint, unit direction and half-length.
type Segment struct {
	Origin     Vector2D
	Direction  Vector2D
	HalfLength float64
}

// SegmentProximity describes where a point lies relative to a segment.
type SegmentProximity struct {
	// Along is the signed distance from the point to the segment origin,
	// measured along the segment direction.
	Along float64
	// Across is the unsigned distance from the point to the segment's line.
	Across float64
	// ToLine is the perpendicular vector from the point to the segment's line.
	ToLine Vector2D
}

// Proximity measures the point p against the segment's line.
func (s Segment) Proximity(p Vector2D) SegmentProximity {
	offset := s.Origin.Sub(p)
	along := offset.Dot(s.Direction)
	toLine := offset.Sub(s.Direction.Scale(along))
	return SegmentProximity{
		Along:  along,
		Across: toLine.Length(),
		ToLine: toLine,
	}
}

// Touches reports whether a circle of the given radius centered at p overlaps
// the segment's band: within radius of the line and within the segment's
// extent widened by radius.
func (s Segment) Touches(p Vector2D, radius float64) (SegmentProximity, bool) {
	prox := s.Proximity(p)
	abs := prox.Along
	if abs < 0 {
		abs = -abs
	}
	return prox, abs <= s.HalfLength+radius && prox.Across < radius
}
