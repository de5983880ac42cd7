package chart

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	gaitnotes "gait-analyzer"
)

// Rendered is one encoded chart.
type Rendered struct {
	Channel  string
	FileName string
	Data     []byte
}

// RenderAll renders the named channels concurrently. Results keep the order of names.
func RenderAll(ctx context.Context, a *gaitnotes.Analysis, names []string, opts Options) ([]Rendered, error) {
	opts = opts.withDefaults()
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}
	channels, err := a.Select(names)
	if err != nil {
		return nil, err
	}
	var limits map[string]Range
	if opts.SharedYLimits {
		limits = SharedLimits(channels)
	}

	out := make([]Rendered, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := Render(a, ch, opts, limits)
			if err != nil {
				return err
			}
			out[i] = Rendered{Channel: ch.Name, FileName: FileName(ch.Name, opts.Format), Data: data}
			opts.Logger.Debug("rendered chart",
				zap.String("channel", ch.Name),
				zap.String("format", opts.Format),
				zap.Int("bytes", len(data)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveAll renders the named channels into dir and returns the written paths.
func SaveAll(ctx context.Context, a *gaitnotes.Analysis, names []string, dir string, opts Options) ([]string, error) {
	rendered, err := RenderAll(ctx, a, names, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}
	paths := make([]string, 0, len(rendered))
	for _, r := range rendered {
		path := filepath.Join(dir, r.FileName)
		if err := os.WriteFile(path, r.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write chart %s: %w", r.FileName, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

const (
	overviewDPI        = 96
	overviewTileWidth  = 480
	overviewColumns    = 3
	overviewTileMargin = 8
)

// Overview tiles the named charts into a single contact sheet, three per row.
func Overview(a *gaitnotes.Analysis, names []string, opts Options) (*image.NRGBA, error) {
	opts = opts.withDefaults()
	channels, err := a.Select(names)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("overview: no channels")
	}
	var limits map[string]Range
	if opts.SharedYLimits {
		limits = SharedLimits(channels)
	}

	tiles := make([]*image.NRGBA, len(channels))
	for i, ch := range channels {
		img, err := Image(a, ch, opts, limits, overviewDPI)
		if err != nil {
			return nil, err
		}
		tiles[i] = imaging.Resize(img, overviewTileWidth, 0, imaging.Lanczos)
	}

	tileH := tiles[0].Bounds().Dy()
	cols := overviewColumns
	if len(tiles) < cols {
		cols = len(tiles)
	}
	rows := int(math.Ceil(float64(len(tiles)) / float64(cols)))
	sheet := imaging.New(
		cols*overviewTileWidth+(cols+1)*overviewTileMargin,
		rows*tileH+(rows+1)*overviewTileMargin,
		overviewBack,
	)
	for i, tile := range tiles {
		x := overviewTileMargin + (i%cols)*(overviewTileWidth+overviewTileMargin)
		y := overviewTileMargin + (i/cols)*(tileH+overviewTileMargin)
		sheet = imaging.Paste(sheet, tile, image.Pt(x, y))
	}
	return sheet, nil
}

// WriteOverview encodes the contact sheet as PNG.
func WriteOverview(w io.Writer, a *gaitnotes.Analysis, names []string, opts Options) error {
	sheet, err := Overview(a, names, opts)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, sheet, imaging.PNG); err != nil {
		return fmt.Errorf("encode overview: %w", err)
	}
	return nil
}
