// Package pipeline runs a trial end to end: analysis, report, signal tables, charts, the export
// bundle and the optional FIT activity.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	gaitnotes "gait-analyzer"
	"gait-analyzer/chart"
	"gait-analyzer/llmexport"
	"gait-analyzer/trial"
)

// Run executes the full gait_analyze pipeline and writes all required artifacts.
func Run(opts Options) (*Result, error) {
	return RunContext(context.Background(), opts)
}

// RunContext is Run with cancellation of chart rendering.
func RunContext(ctx context.Context, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if err := chart.ValidateFormat(opts.ChartFormat); err != nil {
		return nil, err
	}
	if err := gaitnotes.ValidateChannels(opts.Channels); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	code := strings.TrimSpace(opts.Code)
	if code == "" {
		code = trial.Code(opts.Subject, opts.Trial)
	}
	paths, err := trial.Catalog{Dir: opts.DataDir}.Resolve(code)
	if err != nil {
		return nil, err
	}
	log.Info("analyzing trial", zap.String("code", code), zap.String("data_dir", opts.DataDir))

	analysis, err := gaitnotes.AnalyzeTrial(paths, opts.Analysis)
	if err != nil {
		return nil, fmt.Errorf("analyze trial %s: %w", code, err)
	}
	for _, w := range analysis.Warnings {
		log.Warn("analysis warning", zap.String("code", code), zap.String("warning", w))
	}
	// Filtered channels only exist when the filter ran; fail before anything is written.
	if _, err := analysis.Select(opts.Channels); err != nil {
		return nil, err
	}

	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}
	res := &Result{
		OutputDir: opts.OutDir,
		TrialCode: analysis.Code,
		Warnings:  analysis.Warnings,
		Analysis:  analysis,
	}

	reports, err := buildReports(analysis)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{TrialInfoFileName, SummaryTextFileName, SummaryJSONFileName} {
		if err := os.WriteFile(filepath.Join(opts.OutDir, name), reports[name], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	res.TrialInfoPath = filepath.Join(opts.OutDir, TrialInfoFileName)
	res.SummaryPath = filepath.Join(opts.OutDir, SummaryTextFileName)
	res.SummaryJSONPath = filepath.Join(opts.OutDir, SummaryJSONFileName)

	rows := buildSignalRows(analysis)
	res.SignalsPath = filepath.Join(opts.OutDir, signalsFileName(format))
	switch format {
	case FormatCSV:
		if err := writeSignalsCSVFile(res.SignalsPath, rows); err != nil {
			return nil, fmt.Errorf("write signals csv: %w", err)
		}
	case FormatParquet:
		if err := writeSignalsParquet(res.SignalsPath, rows); err != nil {
			return nil, fmt.Errorf("write signals parquet: %w", err)
		}
	}

	chartOpts := chartOptions(opts.ChartFormat, opts.ChartWidthIn, opts.ChartHeightIn, opts.SharedYLimits, opts.HatchUTurn, opts.Concurrency, log)
	res.ChartPaths, err = chart.SaveAll(ctx, analysis, opts.Channels, opts.OutDir, chartOpts)
	if err != nil {
		return nil, fmt.Errorf("render charts: %w", err)
	}
	if opts.Overview {
		res.OverviewPath = filepath.Join(opts.OutDir, OverviewFileName)
		if err := writeOverviewFile(res.OverviewPath, analysis, opts.Channels, chartOpts); err != nil {
			return nil, err
		}
	}

	export, err := llmexport.ExportTrial(analysis, paths, opts.OutDir, llmexport.ExportOptions{
		Overwrite:       true,
		CopySourceFiles: opts.CopySources,
		RunID:           opts.RunID,
	})
	if err != nil {
		return nil, fmt.Errorf("export bundle: %w", err)
	}
	res.ManifestPath = export.ManifestPath
	res.SamplesPath = export.SamplesPath
	res.SourceCopyPaths = export.SourceCopyPaths

	if opts.FIT {
		data, err := encodeActivity(analysis, startTime(opts.StartTime))
		if err != nil {
			return nil, err
		}
		res.ActivityPath = filepath.Join(opts.OutDir, ActivityFileName)
		if err := os.WriteFile(res.ActivityPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", ActivityFileName, err)
		}
	}

	log.Info("trial complete",
		zap.String("code", analysis.Code),
		zap.String("out", opts.OutDir),
		zap.Int("samples", analysis.SampleCount),
		zap.Int("charts", len(res.ChartPaths)),
	)
	return res, nil
}

// RunBytes runs the pipeline on in-memory inputs and returns every artifact in memory.
func RunBytes(opts BytesOptions) (*BytesResult, error) {
	return RunBytesContext(context.Background(), opts)
}

// RunBytesContext is RunBytes with cancellation of chart rendering.
func RunBytesContext(ctx context.Context, opts BytesOptions) (*BytesResult, error) {
	for role, data := range map[string][]byte{
		"metadata":   opts.Metadata,
		"trunk":      opts.Trunk,
		"left_foot":  opts.LeftFoot,
		"right_foot": opts.RightFoot,
	} {
		if len(data) == 0 {
			return nil, fmt.Errorf("%s input is required", role)
		}
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if err := chart.ValidateFormat(opts.ChartFormat); err != nil {
		return nil, err
	}
	if err := gaitnotes.ValidateChannels(opts.Channels); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	analysis, err := gaitnotes.AnalyzeReaders(
		opts.Code,
		bytes.NewReader(opts.Metadata),
		bytes.NewReader(opts.Trunk),
		bytes.NewReader(opts.LeftFoot),
		bytes.NewReader(opts.RightFoot),
		opts.Analysis,
	)
	if err != nil {
		return nil, fmt.Errorf("analyze trial: %w", err)
	}
	if _, err := analysis.Select(opts.Channels); err != nil {
		return nil, err
	}

	files, err := buildReports(analysis)
	if err != nil {
		return nil, err
	}

	rows := buildSignalRows(analysis)
	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		if err := writeSignalsCSV(&buf, rows); err != nil {
			return nil, fmt.Errorf("write signals csv: %w", err)
		}
		files[signalsFileName(format)] = buf.Bytes()
	case FormatParquet:
		data, err := marshalSignalsParquet(rows)
		if err != nil {
			return nil, fmt.Errorf("write signals parquet: %w", err)
		}
		files[signalsFileName(format)] = data
	}

	chartOpts := chartOptions(opts.ChartFormat, opts.ChartWidthIn, opts.ChartHeightIn, opts.SharedYLimits, opts.HatchUTurn, 0, log)
	charts, err := chart.RenderAll(ctx, analysis, opts.Channels, chartOpts)
	if err != nil {
		return nil, fmt.Errorf("render charts: %w", err)
	}
	for _, c := range charts {
		files[c.FileName] = c.Data
	}
	if opts.Overview {
		var buf bytes.Buffer
		if err := chart.WriteOverview(&buf, analysis, opts.Channels, chartOpts); err != nil {
			return nil, fmt.Errorf("render overview: %w", err)
		}
		files[OverviewFileName] = buf.Bytes()
	}

	code := analysis.Code
	sources := []llmexport.Source{
		{Role: "metadata", Name: code + ".json", Data: opts.Metadata},
		{Role: "trunk", Name: code + "_lb.txt", Data: opts.Trunk},
		{Role: "left_foot", Name: code + "_lf.txt", Data: opts.LeftFoot},
		{Role: "right_foot", Name: code + "_rf.txt", Data: opts.RightFoot},
	}
	manifest, err := llmexport.BuildManifest(analysis, sources, llmexport.ExportOptions{RunID: opts.RunID})
	if err != nil {
		return nil, err
	}
	if files[llmexport.ManifestFileName], err = llmexport.MarshalJSON(manifest); err != nil {
		return nil, fmt.Errorf("write %s: %w", llmexport.ManifestFileName, err)
	}
	if files[llmexport.SamplesFileName], err = llmexport.MarshalSamplesJSONL(analysis); err != nil {
		return nil, fmt.Errorf("write %s: %w", llmexport.SamplesFileName, err)
	}
	if opts.CopySources {
		for _, s := range sources {
			files[llmexport.SourcesDirName+"/"+s.Name] = s.Data
		}
	}

	if opts.FIT {
		data, err := encodeActivity(analysis, startTime(opts.StartTime))
		if err != nil {
			return nil, err
		}
		files[ActivityFileName] = data
	}

	return &BytesResult{
		TrialCode: code,
		Files:     files,
		Warnings:  analysis.Warnings,
		Analysis:  analysis,
	}, nil
}

// buildReports renders the three text artifacts shared by Run and RunBytes.
func buildReports(a *gaitnotes.Analysis) (map[string][]byte, error) {
	summary, err := llmexport.MarshalJSON(a)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", SummaryJSONFileName, err)
	}
	return map[string][]byte{
		TrialInfoFileName:   []byte(gaitnotes.BuildTrialInfo(a.Info)),
		SummaryTextFileName: []byte(a.Notes + "\n"),
		SummaryJSONFileName: summary,
	}, nil
}

func chartOptions(format string, widthIn, heightIn float64, shared, hatch bool, concurrency int, log *zap.Logger) chart.Options {
	return chart.Options{
		Width:         vg.Length(widthIn) * vg.Inch,
		Height:        vg.Length(heightIn) * vg.Inch,
		Format:        format,
		SharedYLimits: shared,
		HatchUTurn:    hatch,
		Concurrency:   concurrency,
		Logger:        log,
	}
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatParquet
	}
	if format != FormatParquet && format != FormatCSV {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	return format, nil
}

func startTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

func writeSignalsCSVFile(path string, rows []signalRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := writeSignalsCSV(f, rows); err != nil {
		return err
	}
	return f.Sync()
}

func writeOverviewFile(path string, a *gaitnotes.Analysis, names []string, opts chart.Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", OverviewFileName, err)
	}
	defer f.Close()
	if err := chart.WriteOverview(f, a, names, opts); err != nil {
		return fmt.Errorf("render overview: %w", err)
	}
	return f.Sync()
}
