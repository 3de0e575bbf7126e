package canvas

// Logical drawing surface. Every relayed point lives in this space.
const (
	LogicalWidth  = 800.0
	LogicalHeight = 600.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Surface is the on-screen rectangle of a drawing canvas, in viewport pixels.
type Surface struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Touch is one contact point of a touch event.
type Touch struct {
	ClientX float64
	ClientY float64
}

// InputEvent is a raw pointer or touch event. When Touches is non-empty the
// primary (first) contact is used and ClientX/ClientY are ignored.
type InputEvent struct {
	ClientX float64
	ClientY float64
	Touches []Touch
}

func (e InputEvent) position() (float64, float64) {
	if len(e.Touches) > 0 {
		return e.Touches[0].ClientX, e.Touches[0].ClientY
	}
	return e.ClientX, e.ClientY
}

// Normalize maps viewport coordinates into logical space. Points outside the
// surface are passed through uncapped.
func (s Surface) Normalize(clientX, clientY float64) Point {
	var p Point
	if s.Width > 0 {
		p.X = (clientX - s.Left) / s.Width * LogicalWidth
	}
	if s.Height > 0 {
		p.Y = (clientY - s.Top) / s.Height * LogicalHeight
	}
	return p
}

func (s Surface) NormalizeEvent(e InputEvent) Point {
	x, y := e.position()
	return s.Normalize(x, y)
}

// Denormalize maps a logical point back into this surface's pixel space.
func (s Surface) Denormalize(p Point) (float64, float64) {
	return s.Left + p.X/LogicalWidth*s.Width, s.Top + p.Y/LogicalHeight*s.Height
}
