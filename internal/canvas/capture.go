package canvas

import "slices"

// Capture accumulates normalized points for one pen gesture.
// Idle -> Active on Down, Active -> Idle on Up/Leave/Cancel.
type Capture struct {
	surface Surface
	active  bool
	points  []Point
}

func NewCapture(surface Surface) *Capture {
	return &Capture{surface: surface}
}

// Resize changes the surface used for later events.
func (c *Capture) Resize(surface Surface) { c.surface = surface }

func (c *Capture) Active() bool { return c.active }

// Down starts a gesture. It is a no-op when capture is disabled.
func (c *Capture) Down(e InputEvent, enabled bool) bool {
	if !enabled {
		return false
	}
	c.active = true
	c.points = []Point{c.surface.NormalizeEvent(e)}
	return true
}

// Move extends the gesture. Points past MaxStrokePoints are dropped.
func (c *Capture) Move(e InputEvent) {
	if !c.active || len(c.points) >= MaxStrokePoints {
		return
	}
	c.points = append(c.points, c.surface.NormalizeEvent(e))
}

// Up ends the gesture. ok is true only when the gesture produced a stroke
// with at least MinStrokePoints points; shorter gestures are discarded.
func (c *Capture) Up() (Stroke, bool) {
	if !c.active {
		return Stroke{}, false
	}
	pts := c.points
	c.active = false
	c.points = nil
	return NewStroke(pts)
}

// Leave behaves like Up: the pointer left the surface.
func (c *Capture) Leave() (Stroke, bool) { return c.Up() }

// Cancel drops any in-progress gesture.
func (c *Capture) Cancel() {
	c.active = false
	c.points = nil
}

// InProgress returns a copy of the uncommitted points.
func (c *Capture) InProgress() []Point {
	if !c.active {
		return nil
	}
	return slices.Clone(c.points)
}
