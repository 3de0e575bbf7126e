package canvas

import (
	"math"
	"strconv"
	"strings"
)

// Profile is the fixed smoothing profile applied to every stroke.
type Profile struct {
	Size       float64 // base stroke diameter in logical units
	Thinning   float64 // how much speed narrows the stroke
	Smoothing  float64 // fraction of Size below which points are merged
	Streamline float64 // how strongly each point is pulled toward the previous one
}

var DefaultProfile = Profile{Size: 8, Thinning: 0.5, Smoothing: 0.5, Streamline: 0.5}

const (
	capSegments       = 8
	pressureRate      = 0.275
	committedOpacity  = 1.0
	inProgressOpacity = 0.5
)

// Path is a renderable outline.
type Path struct {
	Outline []Point
	D       string
	Opacity float64
}

// Render outlines pts with DefaultProfile. In-progress strokes are drawn at
// reduced opacity.
func Render(pts []Point, committed bool) Path {
	outline := Outline(pts, DefaultProfile)
	p := Path{Outline: outline, D: PathData(outline), Opacity: committedOpacity}
	if !committed {
		p.Opacity = inProgressOpacity
	}
	return p
}

// Outline converts a point sequence into a closed polygon around it. The
// result is a pure function of pts and prof and is quantized to 1/100 of a
// logical unit.
func Outline(pts []Point, prof Profile) []Point {
	if len(pts) == 0 {
		return nil
	}
	line := streamline(pts, prof)
	if len(line) == 1 {
		return quantize(dot(line[0], prof.Size/2))
	}

	radii := radii(line, prof)
	n := len(line)
	left := make([]Point, n)
	right := make([]Point, n)
	normals := make([]Point, n)
	for i := range line {
		dir := direction(line, i)
		normal := Point{X: -dir.Y, Y: dir.X}
		normals[i] = normal
		left[i] = Point{X: line[i].X + normal.X*radii[i], Y: line[i].Y + normal.Y*radii[i]}
		right[i] = Point{X: line[i].X - normal.X*radii[i], Y: line[i].Y - normal.Y*radii[i]}
	}

	out := make([]Point, 0, 2*n+2*capSegments)
	out = append(out, left...)
	out = append(out, arc(line[n-1], radii[n-1], angle(normals[n-1]))...)
	for i := n - 1; i >= 0; i-- {
		out = append(out, right[i])
	}
	out = append(out, arc(line[0], radii[0], angle(normals[0])+math.Pi)...)
	return quantize(out)
}

// PathData formats an outline as an SVG path with fixed precision.
func PathData(outline []Point) string {
	if len(outline) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range outline {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString(" L")
		}
		b.WriteString(formatCoord(p.X))
		b.WriteByte(',')
		b.WriteString(formatCoord(p.Y))
	}
	b.WriteString(" Z")
	return b.String()
}

func streamline(pts []Point, prof Profile) []Point {
	t := 0.15 + (1-prof.Streamline)*0.85
	minDist := prof.Size * prof.Smoothing
	out := []Point{pts[0]}
	for _, p := range pts[1:] {
		last := out[len(out)-1]
		q := Point{X: last.X + (p.X-last.X)*t, Y: last.Y + (p.Y-last.Y)*t}
		if distance(q, last) < minDist {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 1 {
		if end := pts[len(pts)-1]; end != pts[0] {
			out = append(out, end)
		}
	}
	return out
}

// radii simulates pen pressure from speed: fast segments are thinner.
func radii(line []Point, prof Profile) []float64 {
	out := make([]float64, len(line))
	pressure := 0.5
	for i := range line {
		if i > 0 {
			sp := math.Min(1, distance(line[i], line[i-1])/prof.Size)
			rp := math.Min(1, 1-sp)
			pressure = math.Min(1, pressure+(rp-pressure)*(sp*pressureRate))
		}
		r := prof.Size * (0.5 - prof.Thinning*(0.5-pressure))
		out[i] = math.Max(r, prof.Size*0.05)
	}
	return out
}

func direction(line []Point, i int) Point {
	var d Point
	if i > 0 {
		d = unit(Point{X: line[i].X - line[i-1].X, Y: line[i].Y - line[i-1].Y})
	}
	if i < len(line)-1 {
		next := unit(Point{X: line[i+1].X - line[i].X, Y: line[i+1].Y - line[i].Y})
		d = unit(Point{X: d.X + next.X, Y: d.Y + next.Y})
	}
	if d == (Point{}) {
		return Point{X: 1}
	}
	return d
}

// arc returns the cap points strictly between from and from-π, sweeping clockwise.
func arc(c Point, r, from float64) []Point {
	out := make([]Point, 0, capSegments-1)
	for k := 1; k < capSegments; k++ {
		a := from - float64(k)*math.Pi/capSegments
		out = append(out, Point{X: c.X + math.Cos(a)*r, Y: c.Y + math.Sin(a)*r})
	}
	return out
}

func dot(c Point, r float64) []Point {
	out := make([]Point, 0, 2*capSegments)
	for k := 0; k < 2*capSegments; k++ {
		a := float64(k) * math.Pi / capSegments
		out = append(out, Point{X: c.X + math.Cos(a)*r, Y: c.Y + math.Sin(a)*r})
	}
	return out
}

func unit(p Point) Point {
	l := math.Hypot(p.X, p.Y)
	if l == 0 {
		return Point{}
	}
	return Point{X: p.X / l, Y: p.Y / l}
}

func angle(p Point) float64 { return math.Atan2(p.Y, p.X) }

func distance(a, b Point) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

func quantize(pts []Point) []Point {
	for i := range pts {
		pts[i] = Point{X: round2(pts[i].X), Y: round2(pts[i].Y)}
	}
	return pts
}

func round2(v float64) float64 {
	v = math.Round(v*100) / 100
	if v == 0 {
		return 0 // no negative zero
	}
	return v
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
