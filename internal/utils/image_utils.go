package utils

import (
	"image"
	"image/color"
	"image/draw"
)

// CanonicalRect returns r with Min <= Max on both axes. Rectangles built
// from a corner and a signed extent can be inverted.
func CanonicalRect(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h).Canon()
}

// FillRect blends col over dst inside rect. The alpha of col controls the
// strength of the fill.
func FillRect(dst draw.Image, rect image.Rectangle, col color.Color) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, image.NewUniform(col), image.Point{}, draw.Over)
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst draw.Image, rect image.Rectangle, col color.Color, thickness int) {
	DashedRect(dst, rect, col, thickness, 0, 0)
}

// DashedRect draws a rectangle outline made of dash-pixel strokes separated by
// gap pixels. A zero dash draws a solid outline.
func DashedRect(dst draw.Image, rect image.Rectangle, col color.Color, thickness, dash, gap int) {
	if thickness < 1 {
		thickness = 1
	}
	bounds := dst.Bounds()
	if rect.Intersect(bounds).Empty() {
		return
	}
	on := func(i int) bool {
		return dash <= 0 || i%(dash+gap) < dash
	}
	set := func(x, y int) {
		if image.Pt(x, y).In(bounds) {
			dst.Set(x, y, col)
		}
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if on(x - rect.Min.X) {
				set(x, yTop)
				set(x, yBot)
			}
		}
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			if on(y - rect.Min.Y) {
				set(xLeft, y)
				set(xRight, y)
			}
		}
	}
}

// DrawPolygon draws connected line segments and closes the polygon.
func DrawPolygon(dst draw.Image, pts []image.Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	for i := range pts {
		drawLine(dst, pts[i], pts[(i+1)%len(pts)], col, thickness)
	}
}

// drawLine draws a line between two points using a simple Bresenham variant.
func drawLine(dst draw.Image, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst draw.Image, x, y int, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r := (thickness - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
