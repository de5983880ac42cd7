package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	gaitnotes "gait-analyzer"
	"gait-analyzer/config"
	"gait-analyzer/pipeline"
	"gait-analyzer/trial"
)

func main() {
	var (
		configPath  = flag.String("config", config.DefaultPath, "YAML configuration file (optional)")
		subject     = flag.Int("subject", 0, "Subject number")
		trialNum    = flag.Int("trial", 0, "Trial number")
		code        = flag.String("code", "", "Trial code <subject>-<trial>, instead of --subject/--trial")
		dataDir     = flag.String("data", trial.DefaultDir, "Folder holding the recordings and metadata")
		outDir      = flag.String("out", "out", "Output directory; artifacts go to <out>/<code>")
		format      = flag.String("format", pipeline.FormatParquet, "Signal table format: parquet|csv")
		chartFormat = flag.String("chart-format", "svg", "Chart format: svg|png|pdf")
		channels    = flag.String("channels", "", "Comma separated channels to plot, e.g. TOX,TAX,LAV_LP (default all)")
		overview    = flag.Bool("overview", false, "Also write overview.png with every chart")
		fitOut      = flag.Bool("fit", false, "Also write trial.fit")
		overwrite   = flag.Bool("overwrite", true, "Allow writing into non-empty output directories")
		verbose     = flag.Bool("verbose", false, "Debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --subject 1 --trial 2 [--data GaitData] [--out out] [--channels TOX,LAV] [--format parquet|csv]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gait_analyze failed: %v\n", err)
		os.Exit(1)
	}

	// Flags given on the command line win over the configuration file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.DataDir = *dataDir
		case "out":
			cfg.OutDir = *outDir
		case "format":
			cfg.Output.Format = *format
		case "chart-format":
			cfg.Charts.Format = *chartFormat
		case "channels":
			names, err := gaitnotes.ParseChannelList(*channels)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Charts.Channels = names
		case "overview":
			cfg.Charts.Overview = *overview
		case "fit":
			cfg.Output.FIT = *fitOut
		case "overwrite":
			cfg.Output.Overwrite = *overwrite
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "gait_analyze failed: %v\n", flagErr)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "gait_analyze failed: %v\n", err)
		os.Exit(2)
	}

	trialCode := strings.TrimSpace(*code)
	if trialCode == "" {
		if *subject <= 0 || *trialNum <= 0 {
			flag.Usage()
			os.Exit(2)
		}
		trialCode = trial.Code(*subject, *trialNum)
	}

	logger, err := cfg.NewLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gait_analyze failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := pipeline.RunContext(ctx, cfg.PipelineOptions(trialCode, logger))
	if err != nil {
		logger.Error("pipeline failed", zap.String("code", trialCode), zap.Error(err))
		fmt.Fprintf(os.Stderr, "gait_analyze failed: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}

	fmt.Printf("gait_analyze complete\n")
	fmt.Printf("Trial:               %s\n", result.TrialCode)
	fmt.Printf("Output dir:          %s\n", result.OutputDir)
	fmt.Printf("trial_info.txt:      %s\n", result.TrialInfoPath)
	fmt.Printf("gait summary:        %s\n", result.SummaryPath)
	fmt.Printf("signals:             %s\n", result.SignalsPath)
	fmt.Printf("charts:              %d\n", len(result.ChartPaths))
	if result.OverviewPath != "" {
		fmt.Printf("overview:            %s\n", result.OverviewPath)
	}
	fmt.Printf("manifest.json:       %s\n", result.ManifestPath)
	fmt.Printf("samples.jsonl:       %s\n", result.SamplesPath)
	if result.ActivityPath != "" {
		fmt.Printf("FIT activity:        %s\n", result.ActivityPath)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning:             %s\n", w)
	}
}
