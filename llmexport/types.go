package llmexport

import "time"

const (
	// ExportFormatVersion identifies the on-disk schema for LLM exports.
	ExportFormatVersion = "gait_llm_jsonl_v1"

	ManifestFileName = "manifest.json"
	SamplesFileName  = "samples.jsonl"
	SourcesDirName   = "sources"
)

// ExportOptions controls export behavior.
type ExportOptions struct {
	// Overwrite allows writing into a non-empty output directory.
	Overwrite bool

	// CopySourceFiles writes byte-for-byte copies of the four inputs under sources/.
	CopySourceFiles bool

	// RunID overrides the generated UUID, for reproducible bundles.
	RunID string

	// Now overrides the generation clock.
	Now func() time.Time
}

// ExportResult describes generated files.
type ExportResult struct {
	OutputDir       string   `json:"output_dir"`
	ManifestPath    string   `json:"manifest_path"`
	SamplesPath     string   `json:"samples_path"`
	SourceCopyPaths []string `json:"source_copy_paths,omitempty"`
	SampleCount     int      `json:"sample_count"`
	ChannelCount    int      `json:"channel_count"`
	RunID           string   `json:"run_id"`
}

// Manifest captures export metadata and pointers to exported files.
type Manifest struct {
	FormatVersion     string        `json:"format_version"`
	GeneratedAt       time.Time     `json:"generated_at"`
	RunID             string        `json:"run_id"`
	TrialCode         string        `json:"trial_code"`
	Subject           string        `json:"subject"`
	Trial             string        `json:"trial"`
	Sources           []SourceInfo  `json:"sources"`
	SampleRateHz      float64       `json:"sample_rate_hz"`
	Alignment         string        `json:"alignment"`
	SampleCount       int           `json:"sample_count"`
	DurationSeconds   float64       `json:"duration_seconds"`
	TrialBoundaries   [2]int        `json:"trial_boundaries"`
	UTurnBoundaries   [2]int        `json:"uturn_boundaries"`
	Channels          []ChannelInfo `json:"channels"`
	SamplesPath       string        `json:"samples_path"`
	Warnings          []string      `json:"warnings,omitempty"`
	SchemaDescription SchemaDetails `json:"schema_description"`
}

// SchemaDetails documents the record shape for downstream applications.
type SchemaDetails struct {
	RecordType string   `json:"record_type"`
	Notes      []string `json:"notes"`
}

// SourceInfo fingerprints one input file.
type SourceInfo struct {
	Role      string `json:"role"`
	FileName  string `json:"file_name"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
	Rows      int    `json:"rows,omitempty"`
}

// ChannelInfo is one entry of the channel catalogue.
type ChannelInfo struct {
	Name        string `json:"name"`
	Units       string `json:"units"`
	Description string `json:"description"`
	Sensor      string `json:"sensor"`
	Filtered    bool   `json:"filtered,omitempty"`
}

// SampleEnvelope is one JSONL line in samples.jsonl.
type SampleEnvelope struct {
	FormatVersion string             `json:"format_version"`
	SampleIndex   int                `json:"sample_index"`
	TimeS         float64            `json:"time_s"`
	Phase         string             `json:"phase,omitempty"`
	LeftSwing     bool               `json:"left_swing,omitempty"`
	RightSwing    bool               `json:"right_swing,omitempty"`
	Channels      map[string]float64 `json:"channels"`
}

// Source is one input file held in memory.
type Source struct {
	Role string
	Name string
	Data []byte
}
