package chart

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/vg"
)

const (
	uTurnAlpha = 0.2
	swingAlpha = 0.3
)

var (
	signalColor  = mustHex("#1f77b4")
	uTurnColor   = color.Color(colornames.Red)
	eventColor   = color.Color(colornames.Dimgray)
	swingColor   = color.Color(colornames.Green)
	overviewBack = color.Color(colornames.White)

	dashes = []vg.Length{vg.Points(4), vg.Points(2)}
)

func mustHex(s string) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c.Clamped()
}

// translucent returns c with the given opacity.
func translucent(c color.Color, alpha float64) color.Color {
	cf, _ := colorful.MakeColor(c)
	r, g, b := cf.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}
}

// shade darkens c in Lab space, used for band hatching.
func shade(c color.Color, amount float64) color.Color {
	cf, _ := colorful.MakeColor(c)
	return cf.BlendLab(colorful.Color{}, amount).Clamped()
}
