package canvas

import "slices"

const (
	// MinStrokePoints is the fewest points a stroke needs to be finalized.
	MinStrokePoints = 2
	// MaxStrokePoints bounds a single relayed stroke.
	MaxStrokePoints = 4096
)

// Stroke is a finalized, immutable point sequence in logical space.
type Stroke struct {
	points []Point
}

// NewStroke copies pts into a finalized stroke. ok is false when there are
// too few points.
func NewStroke(pts []Point) (Stroke, bool) {
	if len(pts) < MinStrokePoints {
		return Stroke{}, false
	}
	return Stroke{points: slices.Clone(pts)}, true
}

// Points returns a copy of the stroke's points.
func (s Stroke) Points() []Point { return slices.Clone(s.points) }

func (s Stroke) Len() int { return len(s.points) }

func (s Stroke) Equal(o Stroke) bool { return slices.Equal(s.points, o.points) }

// CloneStrokes returns a copy of the list. Strokes share their backing points,
// which is safe because they are never mutated.
func CloneStrokes(list []Stroke) []Stroke {
	if list == nil {
		return nil
	}
	return slices.Clone(list)
}

// DropLast removes the most recently appended stroke. Empty lists are returned unchanged.
func DropLast(list []Stroke) []Stroke {
	if len(list) == 0 {
		return list
	}
	return list[:len(list)-1]
}
