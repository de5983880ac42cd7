package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tormoder/fit"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"

	gaitnotes "gait-analyzer"
	"gait-analyzer/testutil"
)

var fixedStart = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestRunWritesArtifacts(t *testing.T) {
	dataDir := t.TempDir()
	fx := testutil.DefaultFixture()
	testutil.WriteTrial(t, dataDir, fx)

	outDir := filepath.Join(t.TempDir(), "out")
	res, err := Run(Options{
		DataDir:     dataDir,
		Subject:     fx.Subject,
		Trial:       fx.Trial,
		OutDir:      outDir,
		Format:      "csv",
		FIT:         true,
		StartTime:   fixedStart,
		CopySources: true,
		RunID:       "run-1",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.TrialCode != "1-2" {
		t.Fatalf("trial code = %q", res.TrialCode)
	}

	required := []string{
		"trial_info.txt", "gait_summary.txt", "gait_summary.json", "signals.csv",
		"manifest.json", "samples.jsonl", "trial.fit",
		"TOX.svg", "TAX.svg", "TAY.svg", "RAV.svg", "RAZ.svg", "RRY.svg", "LAV.svg", "LAZ.svg", "LRY.svg",
		"sources/1-2_lf.txt", "sources/1-2.json",
	}
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}
	if len(res.ChartPaths) != 9 {
		t.Fatalf("expected 9 charts, got %d", len(res.ChartPaths))
	}
	if res.OverviewPath != "" {
		t.Fatalf("overview written without being requested")
	}

	info, err := os.ReadFile(res.TrialInfoPath)
	if err != nil {
		t.Fatalf("read trial info: %v", err)
	}
	if string(info) != gaitnotes.BuildTrialInfo(res.Analysis.Info) {
		t.Fatalf("trial_info.txt does not match the report:\n%s", info)
	}

	f, err := os.Open(res.SignalsPath)
	if err != nil {
		t.Fatalf("open signals: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read signals csv: %v", err)
	}
	if len(rows)-1 != 1200 {
		t.Fatalf("expected 1200 signal rows, got %d", len(rows)-1)
	}
	header := rows[0]
	if header[0] != "sample_index" || header[1] != "time_s" || header[2] != "tox" || header[len(header)-1] != "lry_lp" {
		t.Fatalf("unexpected header: %v", header)
	}
	if len(header) != 20 {
		t.Fatalf("expected 20 columns, got %d", len(header))
	}
	if rows[2][0] != "1" || rows[2][1] != "0.010000" {
		t.Fatalf("unexpected second row: %v", rows[2][:2])
	}

	var summary map[string]any
	data, err := os.ReadFile(res.SummaryJSONPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary["code"] != "1-2" {
		t.Fatalf("summary code = %v", summary["code"])
	}
}

func TestRunRejectsNonEmptyOutput(t *testing.T) {
	dataDir := t.TempDir()
	testutil.WriteTrial(t, dataDir, testutil.DefaultFixture())

	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(outDir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Run(Options{DataDir: dataDir, Code: "1-2", OutDir: outDir})
	if err == nil || !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("expected non-empty output error, got %v", err)
	}
}

func TestRunValidatesOptions(t *testing.T) {
	dataDir := t.TempDir()
	testutil.WriteTrial(t, dataDir, testutil.DefaultFixture())

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"missing_out", Options{DataDir: dataDir, Code: "1-2"}, "output directory is required"},
		{"bad_format", Options{DataDir: dataDir, Code: "1-2", OutDir: t.TempDir(), Format: "xlsx"}, "unsupported format"},
		{"bad_chart", Options{DataDir: dataDir, Code: "1-2", OutDir: t.TempDir(), ChartFormat: "bmp"}, "unsupported chart format"},
		{"bad_channel", Options{DataDir: dataDir, Code: "1-2", OutDir: t.TempDir(), Channels: []string{"XYZ"}}, "check the names"},
		{"unknown_code", Options{DataDir: dataDir, Code: "9-9", OutDir: t.TempDir()}, "does not exist: 9-9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Run(tc.opts)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRunRejectsFilteredChannelsWithoutFilter(t *testing.T) {
	dataDir := t.TempDir()
	testutil.WriteTrial(t, dataDir, testutil.DefaultFixture())

	// The zero analysis config leaves the low-pass filter off.
	outDir := filepath.Join(t.TempDir(), "out")
	_, err := Run(Options{DataDir: dataDir, Code: "1-2", OutDir: outDir, Channels: []string{"TOX", "TOX_LP"}})
	if err == nil || !strings.Contains(err.Error(), "check the names") {
		t.Fatalf("expected unknown channel error, got %v", err)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("output directory should not be created, stat err = %v", err)
	}

	fx := testutil.DefaultFixture()
	meta, trunk, left, right := fx.Files()
	_, err = RunBytes(BytesOptions{
		Code:      fx.Code(),
		Metadata:  meta,
		Trunk:     trunk,
		LeftFoot:  left,
		RightFoot: right,
		Channels:  []string{"LAV_LP"},
	})
	if err == nil || !strings.Contains(err.Error(), "check the names") {
		t.Fatalf("RunBytes: expected unknown channel error, got %v", err)
	}
}

func TestRunBytesProducesArtifacts(t *testing.T) {
	fx := testutil.DefaultFixture()
	meta, trunk, left, right := fx.Files()

	res, err := RunBytes(BytesOptions{
		Code:        fx.Code(),
		Metadata:    meta,
		Trunk:       trunk,
		LeftFoot:    left,
		RightFoot:   right,
		ChartFormat: "png",
		Channels:    []string{"TOX", "LAV"},
		Overview:    true,
		FIT:         true,
		StartTime:   fixedStart,
		CopySources: true,
	})
	if err != nil {
		t.Fatalf("RunBytes() error: %v", err)
	}

	required := []string{
		"trial_info.txt", "gait_summary.txt", "gait_summary.json", "signals.parquet",
		"TOX.png", "LAV.png", "overview.png", "manifest.json", "samples.jsonl", "trial.fit",
		"sources/1-2.json", "sources/1-2_lb.txt", "sources/1-2_lf.txt", "sources/1-2_rf.txt",
	}
	for _, name := range required {
		if _, ok := res.Files[name]; !ok {
			t.Fatalf("missing artifact %s", name)
		}
	}
	if _, ok := res.Files["TAX.png"]; ok {
		t.Fatalf("unrequested channel rendered")
	}
	if !bytes.Equal(res.Files["sources/1-2_lf.txt"], left) {
		t.Fatalf("source copy differs from input")
	}

	fr := parquetbuffer.NewBufferFileFromBytes(res.Files["signals.parquet"])
	pr, err := reader.NewParquetReader(fr, new(signalRow), 1)
	if err != nil {
		t.Fatalf("new parquet reader: %v", err)
	}
	defer pr.ReadStop()
	if n := pr.GetNumRows(); n != 1200 {
		t.Fatalf("expected 1200 parquet rows, got %d", n)
	}
	got := make([]signalRow, 2)
	if err := pr.Read(&got); err != nil {
		t.Fatalf("read parquet rows: %v", err)
	}
	if got[1].SampleIndex != 1 || got[1].TimeS != 0.01 {
		t.Fatalf("unexpected second parquet row: %+v", got[1])
	}

	lines := bytes.Count(res.Files["samples.jsonl"], []byte("\n"))
	if lines != 1200 {
		t.Fatalf("expected 1200 sample lines, got %d", lines)
	}
}

func TestRunBytesRequiresInputs(t *testing.T) {
	fx := testutil.DefaultFixture()
	meta, trunk, left, _ := fx.Files()
	_, err := RunBytes(BytesOptions{Metadata: meta, Trunk: trunk, LeftFoot: left})
	if err == nil || !strings.Contains(err.Error(), "right_foot input is required") {
		t.Fatalf("expected missing input error, got %v", err)
	}
}

func TestEncodeActivityLapsPerPhase(t *testing.T) {
	fx := testutil.DefaultFixture()
	meta, trunk, left, right := fx.Files()
	a, err := gaitnotes.AnalyzeReaders(fx.Code(), bytes.NewReader(meta), bytes.NewReader(trunk), bytes.NewReader(left), bytes.NewReader(right), gaitnotes.DefaultConfig())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	data, err := encodeActivity(a, fixedStart)
	if err != nil {
		t.Fatalf("encodeActivity() error: %v", err)
	}
	decoded, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode fit: %v", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		t.Fatalf("activity accessor: %v", err)
	}

	if len(activity.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(activity.Sessions))
	}
	session := activity.Sessions[0]
	if session.Sport != fit.SportWalking || session.NumLaps != 3 {
		t.Fatalf("unexpected session: sport=%v laps=%d", session.Sport, session.NumLaps)
	}
	if len(activity.Laps) != 3 {
		t.Fatalf("expected 3 laps, got %d", len(activity.Laps))
	}
	if activity.Activity == nil || activity.Activity.Type != fit.ActivityModeManual {
		t.Fatalf("activity summary should be a manual activity, got %+v", activity.Activity)
	}

	// walk_out spans samples 100-500, the U-turn 500-650.
	walkOut, uturn := activity.Laps[0], activity.Laps[1]
	if !walkOut.StartTime.Equal(fixedStart.Add(time.Second)) {
		t.Fatalf("walk_out lap starts at %v", walkOut.StartTime)
	}
	if walkOut.TotalElapsedTime != 4000 || uturn.TotalElapsedTime != 1500 {
		t.Fatalf("unexpected lap durations: %d, %d", walkOut.TotalElapsedTime, uturn.TotalElapsedTime)
	}
	if uturn.TotalDistance != 0 {
		t.Fatalf("U-turn lap should carry no distance, got %d", uturn.TotalDistance)
	}

	if len(activity.Records) != 12 {
		t.Fatalf("expected 12 records, got %d", len(activity.Records))
	}
	// Second 1 holds the left swing at 150, second 2 the right swing at 200 and the left at 250.
	if activity.Records[1].Cadence != 60 || activity.Records[2].Cadence != 120 {
		t.Fatalf("unexpected cadence: %d, %d", activity.Records[1].Cadence, activity.Records[2].Cadence)
	}
}

func TestSignalColumnsMatchRow(t *testing.T) {
	var r signalRow
	if got, want := len(signalColumns()), 2+len(r.values()); got != want {
		t.Fatalf("columns = %d, row values = %d", got, want)
	}
}
