package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/vector"
)

// Rasterize fills the outlines of strokes into an alpha mask of the given
// pixel size. The same strokes rasterize consistently at any size because
// outlines are computed in logical space first.
func Rasterize(width, height int, strokes []Stroke) *image.Alpha {
	dst := image.NewAlpha(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return dst
	}
	surface := Surface{Width: float64(width), Height: float64(height)}
	r := vector.NewRasterizer(width, height)
	drawn := false
	for _, s := range strokes {
		outline := Outline(s.points, DefaultProfile)
		if len(outline) < 3 {
			continue
		}
		x, y := surface.Denormalize(outline[0])
		r.MoveTo(float32(x), float32(y))
		for _, p := range outline[1:] {
			x, y = surface.Denormalize(p)
			r.LineTo(float32(x), float32(y))
		}
		r.ClosePath()
		drawn = true
	}
	if drawn {
		r.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	}
	return dst
}

// WritePNG encodes strokes as black ink on a white background.
func WritePNG(w io.Writer, width, height int, strokes []Stroke) error {
	mask := Rasterize(width, height, strokes)
	img := image.NewGray(mask.Bounds())
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.DrawMask(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, mask, image.Point{}, draw.Over)
	return png.Encode(w, img)
}
