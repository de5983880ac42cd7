// Package chart draws one time-series chart per gait channel, annotated with the U-turn and the
// swing phases of the matching foot.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	gaitnotes "gait-analyzer"
)

const (
	DefaultFormat = "svg"
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// ErrUnsupportedFormat is returned for image formats gonum/plot cannot write.
var ErrUnsupportedFormat = errors.New("unsupported chart format")

var formats = map[string]bool{
	"svg": true, "png": true, "pdf": true, "eps": true,
	"jpg": true, "jpeg": true, "tif": true, "tiff": true,
}

// Options controls chart size, format and overlays.
type Options struct {
	Width  vg.Length
	Height vg.Length
	// Format is the file extension of the output, svg by default.
	Format string
	// SharedYLimits gives charts of the same kind a common y range.
	SharedYLimits bool
	// HatchUTurn draws diagonal hatching over the U-turn band.
	HatchUTurn bool
	// Concurrency bounds RenderAll; 0 means one worker per chart.
	Concurrency int
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	o.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(o.Format), "."))
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// ValidateFormat reports whether charts can be written with this extension.
func ValidateFormat(format string) error {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "" || formats[f] {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// FileName is the artifact name of a channel chart.
func FileName(channel, format string) string {
	if format == "" {
		format = DefaultFormat
	}
	return channel + "." + strings.ToLower(format)
}

// figure is a built plot plus what was drawn on it.
type figure struct {
	plot   *plot.Plot
	yRange Range
	bands  []*band
	events int
}

// New builds the chart of one channel. limits may be nil; otherwise the channel's group range is
// used for the y axis.
func New(a *gaitnotes.Analysis, ch gaitnotes.Channel, opts Options, limits map[string]Range) (*plot.Plot, error) {
	f, err := newFigure(a, ch, opts.withDefaults(), limits)
	if err != nil {
		return nil, err
	}
	return f.plot, nil
}

func newFigure(a *gaitnotes.Analysis, ch gaitnotes.Channel, opts Options, limits map[string]Range) (*figure, error) {
	if a == nil || a.Metadata == nil {
		return nil, fmt.Errorf("chart %s: analysis has no metadata", ch.Name)
	}
	rate := a.SampleRateHz
	if rate <= 0 {
		rate = gaitnotes.DefaultSampleRateHz
	}

	p := plot.New()
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = ch.Units
	p.X.Label.TextStyle.Font.Size = vg.Points(15)
	p.Y.Label.TextStyle.Font.Size = vg.Points(15)
	p.X.Tick.Label.Font.Size = vg.Points(12)
	p.Y.Tick.Label.Font.Size = vg.Points(12)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.Padding = vg.Points(5)

	n := len(ch.Values)
	p.X.Min = 0
	p.X.Max = float64(n) / rate

	yr, ok := limits[groupOf(ch.Name)]
	if !ok {
		yr = autoRange(ch.Values)
	}
	p.Y.Min, p.Y.Max = yr.Min, yr.Max

	xys := make(plotter.XYs, n)
	for i, v := range ch.Values {
		xys[i].X = float64(i) / rate
		xys[i].Y = v
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", ch.Name, err)
	}
	line.Color = signalColor
	p.Add(line)

	f := &figure{plot: p, yRange: yr}

	ut := a.Metadata.UTurnBoundaries
	u0, u1 := float64(ut[0])/rate, float64(ut[1])/rate
	for i, x := range []float64{u0, u1} {
		vl, err := vline(x, yr, uTurnColor)
		if err != nil {
			return nil, err
		}
		p.Add(vl)
		if i == 0 {
			p.Legend.Add("U-turn Boundaries", vl)
		}
	}
	ub := newBand(u0, u1, yr.Min, yr.Max, translucent(uTurnColor, uTurnAlpha))
	if opts.HatchUTurn {
		ub.hatched(shade(uTurnColor, 0.3))
	}
	p.Add(ub)
	p.Legend.Add("U-Turn Phase", ub)
	f.bands = append(f.bands, ub)

	side, isFoot := ch.Foot()
	if !isFoot {
		return f, nil
	}
	for _, e := range a.Metadata.FootEvents(side) {
		if !e.OutsideUTurn(ut) {
			continue
		}
		x0, x1 := float64(e.Start)/rate, float64(e.End)/rate
		var first *plotter.Line
		for _, x := range []float64{x0, x1} {
			vl, err := vline(x, yr, eventColor)
			if err != nil {
				return nil, err
			}
			if first == nil {
				first = vl
			}
			p.Add(vl)
		}
		sb := newBand(x0, x1, yr.Min, yr.Max, translucent(swingColor, swingAlpha))
		p.Add(sb)
		if f.events == 0 {
			p.Legend.Add("Gait Events", first)
			p.Legend.Add("Swing Phases", sb)
		}
		f.bands = append(f.bands, sb)
		f.events++
	}
	return f, nil
}

func vline(x float64, yr Range, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: yr.Min}, {X: x, Y: yr.Max}})
	if err != nil {
		return nil, fmt.Errorf("vertical line at %g: %w", x, err)
	}
	l.Color = c
	l.Width = vg.Points(1)
	l.Dashes = dashes
	return l, nil
}

// Render encodes the chart of one channel in opts.Format.
func Render(a *gaitnotes.Analysis, ch gaitnotes.Channel, opts Options, limits map[string]Range) ([]byte, error) {
	opts = opts.withDefaults()
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}
	p, err := New(a, ch, opts, limits)
	if err != nil {
		return nil, err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", ch.Name, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("chart %s: encode %s: %w", ch.Name, opts.Format, err)
	}
	return buf.Bytes(), nil
}

// Image rasterises the chart of one channel at the given DPI.
func Image(a *gaitnotes.Analysis, ch gaitnotes.Channel, opts Options, limits map[string]Range, dpi int) (image.Image, error) {
	opts = opts.withDefaults()
	p, err := New(a, ch, opts, limits)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = vgimg.DefaultDPI
	}
	c := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))
	return c.Image(), nil
}
