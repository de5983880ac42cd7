package chart

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// band is a translucent vertical span [X0, X1] covering the y range [Y0, Y1], optionally hatched.
type band struct {
	X0, X1 float64
	Y0, Y1 float64
	Fill   color.Color
	Hatch  *draw.LineStyle
}

func newBand(x0, x1, y0, y1 float64, fill color.Color) *band {
	return &band{X0: x0, X1: x1, Y0: y0, Y1: y1, Fill: fill}
}

func (b *band) hatched(c color.Color) *band {
	b.Hatch = &draw.LineStyle{Color: c, Width: vg.Points(0.5)}
	return b
}

// Plot implements plot.Plotter.
func (b *band) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	x0, x1 := trX(b.X0), trX(b.X1)
	y0, y1 := trY(b.Y0), trY(b.Y1)
	rect := []vg.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
	c.FillPolygon(b.Fill, c.ClipPolygonXY(rect))

	if b.Hatch == nil || x1 <= x0 || y1 <= y0 {
		return
	}
	area := draw.Canvas{Canvas: c.Canvas, Rectangle: vg.Rectangle{
		Min: vg.Point{X: x0, Y: y0},
		Max: vg.Point{X: x1, Y: y1},
	}}
	step := vg.Points(6)
	height := y1 - y0
	var lines [][]vg.Point
	for x := x0 - height; x < x1; x += step {
		lines = append(lines, []vg.Point{{X: x, Y: y0}, {X: x + height, Y: y1}})
	}
	area.StrokeLines(*b.Hatch, area.ClipLinesXY(lines...)...)
}

// Thumbnail implements plot.Thumbnailer for the legend.
func (b *band) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		c.Min,
		{X: c.Max.X, Y: c.Min.Y},
		c.Max,
		{X: c.Min.X, Y: c.Max.Y},
	}
	c.FillPolygon(b.Fill, pts)
}
