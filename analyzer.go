package gaitnotes

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gait-analyzer/dsp"
	"gait-analyzer/trial"
	"gait-analyzer/xsens"
)

const (
	DefaultSampleRateHz    = xsens.DefaultRateHz
	DefaultWalkedDistanceM = 20.0
	DefaultFilterOrder     = 4
	DefaultFilterCutoffHz  = 5.0

	// AlignTruncate cuts every recording to the shortest one.
	AlignTruncate = "truncate"
	// AlignInterpolate resamples every recording onto a common uniform time base.
	AlignInterpolate = "interpolate"

	// FilteredSuffix names the low-pass variant of a channel.
	FilteredSuffix = "_LP"
)

// ErrUnknownChannel is returned for channel names outside the fixed catalogue.
var ErrUnknownChannel = errors.New("check the names of the dimensions to plot")

// FilterConfig selects the zero-phase Butterworth low-pass. Order 0 disables filtered channels.
type FilterConfig struct {
	Order    int     `json:"order" yaml:"order"`
	CutoffHz float64 `json:"cutoff_hz" yaml:"cutoff_hz"`
}

// Config controls alignment and derived signals.
type Config struct {
	SampleRateHz    float64      `json:"sample_rate_hz" yaml:"sample_rate_hz"`
	Alignment       string       `json:"alignment" yaml:"alignment"`
	WalkedDistanceM float64      `json:"walked_distance_m" yaml:"walked_distance_m"`
	Filter          FilterConfig `json:"filter" yaml:"filter"`
}

// DefaultConfig is 100 Hz, truncation, a 20 m walk and a 4th order 5 Hz low-pass.
func DefaultConfig() Config {
	return Config{
		SampleRateHz:    DefaultSampleRateHz,
		Alignment:       AlignTruncate,
		WalkedDistanceM: DefaultWalkedDistanceM,
		Filter: FilterConfig{
			Order:    DefaultFilterOrder,
			CutoffHz: DefaultFilterCutoffHz,
		},
	}
}

func (c Config) withDefaults() Config {
	if c.SampleRateHz <= 0 {
		c.SampleRateHz = DefaultSampleRateHz
	}
	c.Alignment = strings.ToLower(strings.TrimSpace(c.Alignment))
	if c.Alignment == "" {
		c.Alignment = AlignTruncate
	}
	if c.WalkedDistanceM <= 0 {
		c.WalkedDistanceM = DefaultWalkedDistanceM
	}
	return c
}

// Validate rejects unknown alignments and filters the sample rate cannot support.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch c.Alignment {
	case AlignTruncate, AlignInterpolate:
	default:
		return fmt.Errorf("unsupported alignment %q (expected %s or %s)", c.Alignment, AlignTruncate, AlignInterpolate)
	}
	if c.Filter.Order < 0 {
		return fmt.Errorf("filter order must not be negative, got %d", c.Filter.Order)
	}
	if c.Filter.Order > 0 && !(c.Filter.CutoffHz > 0 && c.Filter.CutoffHz < c.SampleRateHz/2) {
		return fmt.Errorf("filter cutoff %g Hz must lie between 0 and %g Hz", c.Filter.CutoffHz, c.SampleRateHz/2)
	}
	return nil
}

// Channel is one derived signal, aligned on Analysis.Time.
type Channel struct {
	Name        string    `json:"name"`
	Units       string    `json:"units"`
	Description string    `json:"description"`
	Sensor      string    `json:"sensor"`
	Filtered    bool      `json:"filtered,omitempty"`
	Values      []float64 `json:"-"`
}

// Foot reports which foot a channel belongs to, if any.
func (c Channel) Foot() (trial.Side, bool) {
	return footOf(c.Name)
}

// Analysis is the aligned, derived view of one trial.
type Analysis struct {
	Code            string          `json:"code"`
	Metadata        *trial.Metadata `json:"metadata"`
	SampleRateHz    float64         `json:"sample_rate_hz"`
	Alignment       string          `json:"alignment"`
	SampleCount     int             `json:"sample_count"`
	DurationSeconds float64         `json:"duration_seconds"`
	SourceSamples   map[string]int  `json:"source_samples"`
	Filter          FilterConfig    `json:"filter"`
	Time            []float64       `json:"-"`
	Channels        []Channel       `json:"channels"`
	Info            TrialInfo       `json:"trial_info"`
	Structure       GaitStructure   `json:"gait_structure"`
	Warnings        []string        `json:"warnings,omitempty"`
	Notes           string          `json:"notes"`
}

// Channel looks a channel up by name.
func (a *Analysis) Channel(name string) (Channel, bool) {
	for _, c := range a.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}

// Select returns the named channels in order, or ErrUnknownChannel for the first one missing.
func (a *Analysis) Select(names []string) ([]Channel, error) {
	if len(names) == 0 {
		names = ChannelNames()
	}
	out := make([]Channel, 0, len(names))
	for _, name := range names {
		c, ok := a.Channel(name)
		if !ok {
			return nil, fmt.Errorf("channel %q: %w", name, ErrUnknownChannel)
		}
		out = append(out, c)
	}
	return out, nil
}

type channelSpec struct {
	name        string
	units       string
	description string
	sensor      string
	derive      func(rec *xsens.Recording, rateHz float64) ([]float64, error)
}

const (
	sensorTrunk     = "trunk"
	sensorLeftFoot  = "left_foot"
	sensorRightFoot = "right_foot"
)

var channelSpecs = []channelSpec{
	{"TOX", "deg", "trunk rotation angle about the vertical axis, 0 at the start and ±180 after the U-turn", sensorTrunk, rotationAngle},
	{"TAX", "m/s²", "trunk acceleration along X", sensorTrunk, column(xsens.AccX)},
	{"TAY", "m/s²", "trunk acceleration along Y", sensorTrunk, column(xsens.AccY)},
	{"RAV", "m/s²", "right foot free acceleration magnitude", sensorRightFoot, freeAccMagnitude},
	{"RAZ", "m/s²", "right foot free acceleration along Z", sensorRightFoot, column(xsens.FreeAccZ)},
	{"RRY", "deg/s", "right foot angular velocity about Y", sensorRightFoot, column(xsens.GyrY)},
	{"LAV", "m/s²", "left foot free acceleration magnitude", sensorLeftFoot, freeAccMagnitude},
	{"LAZ", "m/s²", "left foot free acceleration along Z", sensorLeftFoot, column(xsens.FreeAccZ)},
	{"LRY", "deg/s", "left foot angular velocity about Y", sensorLeftFoot, column(xsens.GyrY)},
}

// ChannelNames lists the base channels in catalogue order.
func ChannelNames() []string {
	out := make([]string, len(channelSpecs))
	for i, s := range channelSpecs {
		out[i] = s.name
	}
	return out
}

// ValidateChannels checks every name against the catalogue. Filtered names (<NAME>_LP) are accepted.
func ValidateChannels(names []string) error {
	for _, name := range names {
		base := strings.TrimSuffix(name, FilteredSuffix)
		if _, ok := lookupSpec(base); !ok {
			return fmt.Errorf("channel %q: %w", name, ErrUnknownChannel)
		}
	}
	return nil
}

// ParseChannelList splits a comma separated list, upper-cases and validates it. Empty means all.
func ParseChannelList(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return ChannelNames(), nil
	}
	if err := ValidateChannels(out); err != nil {
		return nil, err
	}
	return out, nil
}

func lookupSpec(name string) (channelSpec, bool) {
	for _, s := range channelSpecs {
		if s.name == name {
			return s, true
		}
	}
	return channelSpec{}, false
}

func footOf(name string) (trial.Side, bool) {
	switch {
	case strings.HasPrefix(name, "R"):
		return trial.Right, true
	case strings.HasPrefix(name, "L"):
		return trial.Left, true
	}
	return "", false
}

// AnalyzeTrial loads the four files of a trial and derives its channels.
func AnalyzeTrial(paths trial.Paths, cfg Config) (*Analysis, error) {
	cfg = cfg.withDefaults()
	meta, err := trial.LoadMetadata(paths.Metadata)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	recs := make(map[string]*xsens.Recording, 3)
	for sensor, path := range map[string]string{
		sensorTrunk:     paths.Trunk,
		sensorLeftFoot:  paths.LeftFoot,
		sensorRightFoot: paths.RightFoot,
	} {
		rec, err := xsens.LoadFile(path, cfg.SampleRateHz)
		if err != nil {
			return nil, fmt.Errorf("load %s recording: %w", sensor, err)
		}
		recs[sensor] = rec
	}
	return analyze(paths.Code, meta, recs, cfg)
}

// AnalyzeReaders is AnalyzeTrial over in-memory inputs.
func AnalyzeReaders(code string, meta, trunk, left, right io.Reader, cfg Config) (*Analysis, error) {
	cfg = cfg.withDefaults()
	m, err := trial.ParseMetadata(meta)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	recs := make(map[string]*xsens.Recording, 3)
	for _, in := range []struct {
		sensor string
		r      io.Reader
	}{
		{sensorTrunk, trunk},
		{sensorLeftFoot, left},
		{sensorRightFoot, right},
	} {
		rec, err := xsens.Parse(in.r, cfg.SampleRateHz)
		if err != nil {
			return nil, fmt.Errorf("load %s recording: %w", in.sensor, err)
		}
		rec.Source = in.sensor
		recs[in.sensor] = rec
	}
	return analyze(code, m, recs, cfg)
}

func analyze(code string, meta *trial.Metadata, recs map[string]*xsens.Recording, cfg Config) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if code == "" {
		code = meta.Code
	}
	if code == "" {
		code = meta.Subject.String() + "-" + meta.Trial.String()
	}

	analysis := &Analysis{
		Code:         code,
		Metadata:     meta,
		SampleRateHz: cfg.SampleRateHz,
		Alignment:    cfg.Alignment,
		Filter:       cfg.Filter,
	}

	analysis.SourceSamples = make(map[string]int, len(recs))
	for sensor, rec := range recs {
		analysis.SourceSamples[sensor] = rec.Len()
	}

	n, err := align(recs, cfg)
	if err != nil {
		return nil, err
	}
	analysis.SampleCount = n
	analysis.Time = make([]float64, n)
	for i := range analysis.Time {
		analysis.Time[i] = float64(i) / cfg.SampleRateHz
	}
	analysis.DurationSeconds = float64(n) / cfg.SampleRateHz
	if last := meta.TrialBoundaries[1]; last >= n {
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("trial boundary %d is past the last aligned sample %d", last, n))
	}

	for _, spec := range channelSpecs {
		values, err := spec.derive(recs[spec.sensor], cfg.SampleRateHz)
		if errors.Is(err, dsp.ErrFlatRotation) {
			analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("%s: %v, angle left unscaled", spec.name, err))
		} else if err != nil {
			return nil, fmt.Errorf("derive %s: %w", spec.name, err)
		}
		analysis.Channels = append(analysis.Channels, Channel{
			Name:        spec.name,
			Units:       spec.units,
			Description: spec.description,
			Sensor:      spec.sensor,
			Values:      values,
		})
	}

	if cfg.Filter.Order > 0 {
		filtered, err := lowPassChannels(analysis.Channels, cfg)
		if err != nil {
			analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("low-pass channels skipped: %v", err))
		}
		analysis.Channels = append(analysis.Channels, filtered...)
	}

	analysis.Info = NewTrialInfo(meta, cfg.WalkedDistanceM, cfg.SampleRateHz)
	analysis.Structure = InferGaitStructure(meta, cfg.SampleRateHz)
	analysis.Notes = BuildGaitNotes(analysis)
	return analysis, nil
}

// align brings the three recordings to a common length and returns it.
func align(recs map[string]*xsens.Recording, cfg Config) (int, error) {
	n := math.MaxInt
	end := math.Inf(1)
	for _, rec := range recs {
		if rec.Len() < n {
			n = rec.Len()
		}
		if last := rec.Time[rec.Len()-1]; last < end {
			end = last
		}
	}
	if cfg.Alignment == AlignTruncate {
		for _, rec := range recs {
			rec.Truncate(n)
		}
		return n, nil
	}

	grid := dsp.UniformGrid(end, cfg.SampleRateHz)
	for sensor, rec := range recs {
		resampled := make(map[string][]float64, len(alignedColumns))
		for _, name := range alignedColumns {
			values, err := dsp.Interpolate(rec.Time, rec.Column(name), grid)
			if err != nil {
				return 0, fmt.Errorf("resample %s %s: %w", sensor, name, err)
			}
			resampled[name] = values
		}
		rec.Time = grid
		rec.Columns = resampled
	}
	return len(grid), nil
}

var alignedColumns = []string{
	xsens.AccX, xsens.AccY, xsens.AccZ,
	xsens.GyrX, xsens.GyrY, xsens.GyrZ,
	xsens.FreeAccX, xsens.FreeAccY, xsens.FreeAccZ,
}

func lowPassChannels(base []Channel, cfg Config) ([]Channel, error) {
	b, a, err := dsp.Butterworth(cfg.Filter.Order, cfg.Filter.CutoffHz, cfg.SampleRateHz)
	if err != nil {
		return nil, err
	}
	out := make([]Channel, 0, len(base))
	for _, c := range base {
		values, err := dsp.FiltFilt(b, a, c.Values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		out = append(out, Channel{
			Name:        c.Name + FilteredSuffix,
			Units:       c.Units,
			Description: fmt.Sprintf("%s, low-pass %g Hz order %d", c.Description, cfg.Filter.CutoffHz, cfg.Filter.Order),
			Sensor:      c.Sensor,
			Filtered:    true,
			Values:      values,
		})
	}
	return out, nil
}

func column(name string) func(*xsens.Recording, float64) ([]float64, error) {
	return func(rec *xsens.Recording, _ float64) ([]float64, error) {
		v := rec.Column(name)
		if v == nil {
			return nil, fmt.Errorf("missing column %s", name)
		}
		return append([]float64(nil), v...), nil
	}
}

func freeAccMagnitude(rec *xsens.Recording, _ float64) ([]float64, error) {
	return dsp.Magnitude(rec.Column(xsens.FreeAccX), rec.Column(xsens.FreeAccY), rec.Column(xsens.FreeAccZ)), nil
}

func rotationAngle(rec *xsens.Recording, rateHz float64) ([]float64, error) {
	return dsp.RotationAngle(rec.Column(xsens.GyrX), rateHz)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
