package valueobjects

import (
	"math"

	pkgerrors "docgraph/pkg/errors"
)

// Position is a 2D coordinate produced by the layout engine or pinned by a user
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position, rejecting NaN and infinite coordinates
func NewPosition(x, y float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, pkgerrors.NewInvalidArgumentError("invalid coordinates: must be finite numbers")
	}
	return Position{X: x, Y: y}, nil
}

// DistanceTo calculates the Euclidean distance to another position
func (p Position) DistanceTo(other Position) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Equals checks if two positions are equal within a small tolerance
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.X-other.X) < epsilon && math.Abs(p.Y-other.Y) < epsilon
}

// Translate moves the position by the given offsets
func (p Position) Translate(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Polar returns the point at the given radius and angle around p
func (p Position) Polar(radius, angle float64) Position {
	return Position{X: p.X + radius*math.Cos(angle), Y: p.Y + radius*math.Sin(angle)}
}

// IsValid reports whether both coordinates are finite
func (p Position) IsValid() bool {
	return isValidCoordinate(p.X) && isValidCoordinate(p.Y)
}

func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
