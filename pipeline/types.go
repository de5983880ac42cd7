package pipeline

import (
	"time"

	"go.uber.org/zap"

	gaitnotes "gait-analyzer"
)

// Artifact names.
const (
	TrialInfoFileName   = "trial_info.txt"
	SummaryTextFileName = "gait_summary.txt"
	SummaryJSONFileName = "gait_summary.json"
	SignalsBaseName     = "signals"
	OverviewFileName    = "overview.png"
	ActivityFileName    = "trial.fit"

	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// Options configures the gait_analyze pipeline.
type Options struct {
	// DataDir is the flat folder of <code>_lb/_lf/_rf.txt and <code>.json files; the trial is
	// picked by Code or by Subject and Trial.
	DataDir string
	Code    string
	Subject int
	Trial   int

	// OutDir receives the artifacts of the trial directly.
	OutDir    string
	Overwrite bool
	Format    string // parquet|csv

	ChartFormat   string
	Channels      []string
	ChartWidthIn  float64
	ChartHeightIn float64
	SharedYLimits bool
	HatchUTurn    bool
	Overview      bool

	// FIT writes trial.fit; StartTime anchors its timestamps (now when zero).
	FIT       bool
	StartTime time.Time

	CopySources bool
	RunID       string
	Concurrency int
	Logger      *zap.Logger
	Analysis    gaitnotes.Config
}

// Result returns generated output paths.
type Result struct {
	OutputDir       string   `json:"output_dir"`
	TrialCode       string   `json:"trial_code"`
	TrialInfoPath   string   `json:"trial_info_path"`
	SummaryPath     string   `json:"summary_path"`
	SummaryJSONPath string   `json:"summary_json_path"`
	SignalsPath     string   `json:"signals_path"`
	ChartPaths      []string `json:"chart_paths"`
	OverviewPath    string   `json:"overview_path,omitempty"`
	ManifestPath    string   `json:"manifest_path"`
	SamplesPath     string   `json:"samples_path"`
	ActivityPath    string   `json:"activity_path,omitempty"`
	SourceCopyPaths []string `json:"source_copy_paths,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`

	Analysis *gaitnotes.Analysis `json:"-"`
}

// BytesOptions is Options for in-memory inputs, as used by the browser build.
type BytesOptions struct {
	Code      string
	Metadata  []byte
	Trunk     []byte
	LeftFoot  []byte
	RightFoot []byte

	Format        string
	ChartFormat   string
	Channels      []string
	ChartWidthIn  float64
	ChartHeightIn float64
	SharedYLimits bool
	HatchUTurn    bool
	Overview      bool
	FIT           bool
	StartTime     time.Time
	CopySources   bool
	RunID         string
	Logger        *zap.Logger
	Analysis      gaitnotes.Config
}

// BytesResult holds every artifact keyed by its relative path.
type BytesResult struct {
	TrialCode string
	Files     map[string][]byte
	Warnings  []string
	Analysis  *gaitnotes.Analysis
}
