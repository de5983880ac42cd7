package chart

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	gaitnotes "gait-analyzer"
	"gait-analyzer/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func analysis(t *testing.T) *gaitnotes.Analysis {
	t.Helper()
	paths := testutil.WriteTrial(t, t.TempDir(), testutil.DefaultFixture())
	a, err := gaitnotes.AnalyzeTrial(paths, gaitnotes.DefaultConfig())
	require.NoError(t, err)
	return a
}

func TestFigureOverlays(t *testing.T) {
	a := analysis(t)
	opts := Options{}.withDefaults()

	tests := []struct {
		channel string
		bands   int
		events  int
	}{
		{channel: "TOX", bands: 1},
		{channel: "TAX", bands: 1},
		{channel: "LAV", bands: 7, events: 6},
		{channel: "LAZ_LP", bands: 7, events: 6},
		{channel: "RRY", bands: 7, events: 6},
	}
	for _, tc := range tests {
		t.Run(tc.channel, func(t *testing.T) {
			ch, ok := a.Channel(tc.channel)
			require.True(t, ok)
			f, err := newFigure(a, ch, opts, nil)
			require.NoError(t, err)
			assert.Len(t, f.bands, tc.bands)
			assert.Equal(t, tc.events, f.events)
			assert.Equal(t, 0.0, f.plot.X.Min)
			assert.InDelta(t, 12.0, f.plot.X.Max, 1e-12)
			assert.Equal(t, "Time (s)", f.plot.X.Label.Text)
			assert.Equal(t, ch.Units, f.plot.Y.Label.Text)

			u := f.bands[0]
			assert.Equal(t, 5.0, u.X0)
			assert.Equal(t, 6.5, u.X1)
			assert.Equal(t, f.yRange.Min, u.Y0)
			assert.Equal(t, f.yRange.Max, u.Y1)
			assert.Nil(t, u.Hatch)
		})
	}

	ch, _ := a.Channel("TOX")
	opts.HatchUTurn = true
	f, err := newFigure(a, ch, opts, nil)
	require.NoError(t, err)
	assert.NotNil(t, f.bands[0].Hatch)
}

func TestSharedLimits(t *testing.T) {
	channels := []gaitnotes.Channel{
		{Name: "TOX", Values: []float64{-500, 500}},
		{Name: "TAX", Values: []float64{-1, 2}},
		{Name: "RAV", Values: []float64{0, 5}},
		{Name: "LRY", Values: []float64{-300, 250}},
		{Name: "RRY_LP", Values: []float64{-100, 400}},
	}
	got := SharedLimits(channels)
	assert.Len(t, got, 3)
	assert.InDelta(t, -1.1, got[GroupTrunkAcc].Min, 1e-12)
	assert.InDelta(t, 2.1, got[GroupTrunkAcc].Max, 1e-12)
	assert.InDelta(t, -1.1, got[GroupAcc].Min, 1e-12)
	assert.InDelta(t, 5.1, got[GroupAcc].Max, 1e-12)
	assert.Equal(t, Range{Min: -320, Max: 420}, got[GroupRotation])

	a := analysis(t)
	ch, _ := a.Channel("RAZ")
	f, err := newFigure(a, ch, Options{}.withDefaults(), map[string]Range{GroupAcc: {Min: -50, Max: 50}})
	require.NoError(t, err)
	assert.Equal(t, -50.0, f.plot.Y.Min)
	assert.Equal(t, 50.0, f.plot.Y.Max)
}

func TestRenderFormats(t *testing.T) {
	a := analysis(t)
	ch, _ := a.Channel("LAV")

	svg, err := Render(a, ch, Options{}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	raw, err := Render(a, ch, Options{Format: "png"}, nil)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 960, cfg.Width)
	assert.Equal(t, 384, cfg.Height)

	_, err = Render(a, ch, Options{Format: "bmp"}, nil)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderAll(t *testing.T) {
	a := analysis(t)
	names := []string{"TOX", "RAV", "LRY", "TAY_LP"}

	out, err := RenderAll(context.Background(), a, names, Options{Concurrency: 2, SharedYLimits: true})
	require.NoError(t, err)
	require.Len(t, out, len(names))
	for i, r := range out {
		assert.Equal(t, names[i], r.Channel)
		assert.Equal(t, names[i]+".svg", r.FileName)
		assert.NotEmpty(t, r.Data)
	}

	_, err = RenderAll(context.Background(), a, []string{"TOX", "NOPE"}, Options{})
	require.True(t, errors.Is(err, gaitnotes.ErrUnknownChannel))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RenderAll(ctx, a, names, Options{Concurrency: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSaveAll(t *testing.T) {
	a := analysis(t)
	dir := filepath.Join(t.TempDir(), "charts")

	paths, err := SaveAll(context.Background(), a, nil, dir, Options{Format: ".PDF"})
	require.NoError(t, err)
	require.Len(t, paths, len(gaitnotes.ChannelNames()))
	for _, p := range paths {
		assert.True(t, strings.HasSuffix(p, ".pdf"), p)
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestOverview(t *testing.T) {
	a := analysis(t)

	sheet, err := Overview(a, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3*480+4*8, sheet.Bounds().Dx())
	assert.Equal(t, 3*192+4*8, sheet.Bounds().Dy())

	var buf bytes.Buffer
	require.NoError(t, WriteOverview(&buf, a, []string{"TOX", "TAX"}, Options{}))
	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2*480+3*8, cfg.Width)
	assert.Equal(t, 192+2*8, cfg.Height)
}
