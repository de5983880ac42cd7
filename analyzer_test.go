package gaitnotes

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"gait-analyzer/testutil"
	"gait-analyzer/trial"
)

func TestAnalyzeTrialTruncates(t *testing.T) {
	f := testutil.DefaultFixture()
	paths := testutil.WriteTrial(t, t.TempDir(), f)

	a, err := AnalyzeTrial(paths, DefaultConfig())
	if err != nil {
		t.Fatalf("AnalyzeTrial() error: %v", err)
	}
	if a.Code != "1-2" {
		t.Fatalf("code = %q, want 1-2", a.Code)
	}
	if a.SampleCount != f.Samples {
		t.Fatalf("sample count = %d, want %d", a.SampleCount, f.Samples)
	}
	if a.DurationSeconds != 12 {
		t.Fatalf("duration = %v, want 12", a.DurationSeconds)
	}
	if len(a.Channels) != 2*len(ChannelNames()) {
		t.Fatalf("expected base and low-pass channels, got %d", len(a.Channels))
	}
	for _, c := range a.Channels {
		if len(c.Values) != a.SampleCount {
			t.Fatalf("%s has %d values, want %d", c.Name, len(c.Values), a.SampleCount)
		}
	}

	tox, ok := a.Channel("TOX")
	if !ok {
		t.Fatalf("TOX missing")
	}
	if tox.Units != "deg" {
		t.Fatalf("TOX units = %q", tox.Units)
	}
	if math.Abs(tox.Values[0]) > 1e-9 || math.Abs(tox.Values[len(tox.Values)-1]-180) > 1e-9 {
		t.Fatalf("TOX should run from 0 to 180, got %v .. %v", tox.Values[0], tox.Values[len(tox.Values)-1])
	}

	rav, _ := a.Channel("RAV")
	for i, v := range rav.Values {
		if v < 0 {
			t.Fatalf("RAV[%d] = %v is negative", i, v)
		}
	}
	if lp, ok := a.Channel("RAV_LP"); !ok || !lp.Filtered {
		t.Fatalf("RAV_LP missing or not flagged as filtered")
	}
	if len(a.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", a.Warnings)
	}
	if !strings.Contains(a.Notes, "walk_out") {
		t.Fatalf("notes missing phases:\n%s", a.Notes)
	}
}

func TestAnalyzeReadersMatchesFiles(t *testing.T) {
	f := testutil.DefaultFixture()
	paths := testutil.WriteTrial(t, t.TempDir(), f)
	fromFiles, err := AnalyzeTrial(paths, DefaultConfig())
	if err != nil {
		t.Fatalf("AnalyzeTrial() error: %v", err)
	}

	meta, trunk, left, right := f.Files()
	fromBytes, err := AnalyzeReaders(f.Code(), bytes.NewReader(meta), bytes.NewReader(trunk), bytes.NewReader(left), bytes.NewReader(right), DefaultConfig())
	if err != nil {
		t.Fatalf("AnalyzeReaders() error: %v", err)
	}
	for _, name := range ChannelNames() {
		want, _ := fromFiles.Channel(name)
		got, _ := fromBytes.Channel(name)
		if diff := cmp.Diff(want.Values, got.Values); diff != "" {
			t.Fatalf("%s mismatch (-files +readers):\n%s", name, diff)
		}
	}
}

func TestAnalyzeInterpolateAndCounterWrap(t *testing.T) {
	base := testutil.DefaultFixture()
	wrapped := base
	wrapped.CounterStart = 65000

	cfg := DefaultConfig()
	cfg.Alignment = AlignInterpolate

	dir := t.TempDir()
	a, err := AnalyzeTrial(testutil.WriteTrial(t, dir, base), cfg)
	if err != nil {
		t.Fatalf("AnalyzeTrial(base) error: %v", err)
	}
	wrapped.Subject = 2
	b, err := AnalyzeTrial(testutil.WriteTrial(t, dir, wrapped), cfg)
	if err != nil {
		t.Fatalf("AnalyzeTrial(wrapped) error: %v", err)
	}
	if a.SampleCount != 1200 || b.SampleCount != 1200 {
		t.Fatalf("sample counts = %d, %d; want 1200", a.SampleCount, b.SampleCount)
	}
	for _, name := range []string{"TOX", "LAV", "RRY"} {
		ca, _ := a.Channel(name)
		cb, _ := b.Channel(name)
		if diff := cmp.Diff(ca.Values, cb.Values, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Fatalf("%s differs after counter wrap:\n%s", name, diff)
		}
	}
}

func TestAnalyzeFlatRotationWarns(t *testing.T) {
	f := testutil.DefaultFixture()
	f.TurnRotation = 0
	cfg := DefaultConfig()
	cfg.Filter.Order = 0

	a, err := AnalyzeTrial(testutil.WriteTrial(t, t.TempDir(), f), cfg)
	if err != nil {
		t.Fatalf("AnalyzeTrial() error: %v", err)
	}
	if len(a.Channels) != len(ChannelNames()) {
		t.Fatalf("filter disabled but got %d channels", len(a.Channels))
	}
	if len(a.Warnings) != 1 || !strings.Contains(a.Warnings[0], "unscaled") {
		t.Fatalf("expected a flat rotation warning, got %v", a.Warnings)
	}
}

func TestAnalyzeWarnsOnBoundaryAtSampleCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filter.Order = 0

	for _, tc := range []struct {
		last int
		warn bool
	}{
		{last: 1199, warn: false},
		{last: 1200, warn: true},
	} {
		f := testutil.DefaultFixture()
		f.TrialBoundaries = trial.Boundaries{100, tc.last}
		a, err := AnalyzeTrial(testutil.WriteTrial(t, t.TempDir(), f), cfg)
		if err != nil {
			t.Fatalf("AnalyzeTrial() error: %v", err)
		}
		if a.SampleCount != 1200 {
			t.Fatalf("sample count = %d", a.SampleCount)
		}
		warned := false
		for _, w := range a.Warnings {
			if strings.Contains(w, "past the last aligned sample") {
				warned = true
			}
		}
		if warned != tc.warn {
			t.Fatalf("boundary %d: warned=%v, warnings %v", tc.last, warned, a.Warnings)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alignment = "nearest"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected alignment error")
	}
	cfg = DefaultConfig()
	cfg.Filter.CutoffHz = 80
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected cutoff error")
	}
	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("zero config should validate: %v", err)
	}
}

func TestChannelNames(t *testing.T) {
	if err := ValidateChannels([]string{"TOX", "LRY", "LAV_LP"}); err != nil {
		t.Fatalf("ValidateChannels() error: %v", err)
	}
	err := ValidateChannels([]string{"TOX", "XYZ"})
	if !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}

	got, err := ParseChannelList(" tox, rav_lp ,")
	if err != nil {
		t.Fatalf("ParseChannelList() error: %v", err)
	}
	if diff := cmp.Diff([]string{"TOX", "RAV_LP"}, got); diff != "" {
		t.Fatalf("ParseChannelList mismatch:\n%s", diff)
	}
	all, _ := ParseChannelList("")
	if diff := cmp.Diff(ChannelNames(), all); diff != "" {
		t.Fatalf("empty list should select all channels:\n%s", diff)
	}

	side, ok := Channel{Name: "RRY_LP"}.Foot()
	if !ok || side != trial.Right {
		t.Fatalf("RRY_LP foot = %v, %v", side, ok)
	}
	if _, ok := (Channel{Name: "TAX"}).Foot(); ok {
		t.Fatalf("TAX is not a foot channel")
	}
}

func TestInferGaitStructure(t *testing.T) {
	meta, _, _, _ := testutil.DefaultFixture().Files()
	m, err := trial.ParseMetadata(bytes.NewReader(meta))
	if err != nil {
		t.Fatalf("ParseMetadata() error: %v", err)
	}

	got := InferGaitStructure(m, 100)
	want := GaitStructure{
		SchemaVersion: gaitStructureSchemaVersion,
		Phases: []Phase{
			{Name: PhaseWalkOut, StartSample: 100, EndSample: 500, DurationSeconds: 4, LeftSwings: 3, RightSwings: 3},
			{Name: PhaseUTurn, StartSample: 500, EndSample: 650, DurationSeconds: 1.5, LeftSwings: 1},
			{Name: PhaseWalkBack, StartSample: 650, EndSample: 1100, DurationSeconds: 4.5, LeftSwings: 3, RightSwings: 3},
		},
		Left: FootStats{
			Side: trial.Left, Events: 7, OutsideUTurn: 6,
			MeanSwingSeconds: 0.4, MinSwingSeconds: 0.4, MaxSwingSeconds: 0.4, MeanStrideSeconds: 1,
		},
		Right: FootStats{
			Side: trial.Right, Events: 6, OutsideUTurn: 6,
			MeanSwingSeconds: 0.4, MinSwingSeconds: 0.4, MaxSwingSeconds: 0.4, MeanStrideSeconds: 1,
		},
		CadenceStepsPerMin: 12 * 60 / 8.5,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("InferGaitStructure mismatch (-want +got):\n%s", diff)
	}
}

func TestPhaseAtAndInSwing(t *testing.T) {
	meta, _, _, _ := testutil.DefaultFixture().Files()
	m, err := trial.ParseMetadata(bytes.NewReader(meta))
	if err != nil {
		t.Fatalf("ParseMetadata() error: %v", err)
	}
	phases := map[int]string{
		0:    "",
		100:  PhaseWalkOut,
		499:  PhaseWalkOut,
		500:  PhaseUTurn,
		650:  PhaseUTurn,
		651:  PhaseWalkBack,
		1100: PhaseWalkBack,
		1101: "",
	}
	for i, want := range phases {
		if got := PhaseAt(m, i); got != want {
			t.Fatalf("PhaseAt(%d) = %q, want %q", i, got, want)
		}
	}
	if !InSwing(m, trial.Left, 150) || !InSwing(m, trial.Left, 190) || InSwing(m, trial.Left, 191) {
		t.Fatalf("left swing bounds are inclusive of [150, 190]")
	}
	if InSwing(m, trial.Right, 150) {
		t.Fatalf("right foot is not swinging at 150")
	}
}
