package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	gaitnotes "gait-analyzer"
	"gait-analyzer/chart"
	"gait-analyzer/config"
	"gait-analyzer/trial"
)

func main() {
	var (
		configPath string
		dataDir    string
		verbose    bool

		outDir   string
		widthIn  float64
		heightIn float64
		format   string
		sharedY  bool
		hatch    bool
		overview bool
	)

	app := &cli.App{
		Name:    "gaitplot",
		Usage:   "plot the gait channels of a trial",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "YAML configuration file",
				Destination: &configPath,
				Value:       config.DefaultPath,
			},
			&cli.StringFlag{
				Name:        "data",
				Aliases:     []string{"d"},
				Usage:       "folder holding the recordings and metadata",
				Destination: &dataDir,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "debug logging",
				Destination: &verbose,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the trial codes in the data folder",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(configPath, dataDir)
					if err != nil {
						return err
					}
					codes, err := trial.Catalog{Dir: cfg.DataDir}.Codes()
					if err != nil {
						return err
					}
					for _, code := range codes {
						fmt.Fprintln(c.App.Writer, code)
					}
					return nil
				},
			},
			{
				Name:      "plot",
				Usage:     "render one chart per channel",
				ArgsUsage: "<code> [channel...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "out",
						Aliases:     []string{"o"},
						Usage:       "output directory (default <out_dir>/<code>)",
						Destination: &outDir,
					},
					&cli.Float64Flag{
						Name:        "width",
						Aliases:     []string{"W"},
						Usage:       "chart width in inches",
						Destination: &widthIn,
						Value:       10,
					},
					&cli.Float64Flag{
						Name:        "height",
						Aliases:     []string{"H"},
						Usage:       "chart height in inches",
						Destination: &heightIn,
						Value:       4,
					},
					&cli.StringFlag{
						Name:        "format",
						Aliases:     []string{"f"},
						Usage:       "svg, png, pdf, ...",
						Destination: &format,
						Value:       chart.DefaultFormat,
					},
					&cli.BoolFlag{
						Name:        "shared-y",
						Usage:       "share y limits between charts of the same kind",
						Destination: &sharedY,
					},
					&cli.BoolFlag{
						Name:        "hatch",
						Usage:       "hatch the U-turn band",
						Destination: &hatch,
					},
					&cli.BoolFlag{
						Name:        "overview",
						Usage:       "also write overview.png",
						Destination: &overview,
					},
				},
				Action: func(c *cli.Context) error {
					code := c.Args().First()
					if code == "" {
						return cli.Exit("no trial code given", 2)
					}
					var names []string
					for _, arg := range c.Args().Tail() {
						names = append(names, strings.ToUpper(arg))
					}
					if err := gaitnotes.ValidateChannels(names); err != nil {
						return cli.Exit(err.Error(), 2)
					}

					cfg, err := loadConfig(configPath, dataDir)
					if err != nil {
						return err
					}
					logger, err := cfg.NewLogger(verbose)
					if err != nil {
						return err
					}
					defer func() { _ = logger.Sync() }()

					paths, err := trial.Catalog{Dir: cfg.DataDir}.Resolve(code)
					if err != nil {
						return err
					}
					analysis, err := gaitnotes.AnalyzeTrial(paths, cfg.Analysis)
					if err != nil {
						return err
					}
					if _, err := analysis.Select(names); err != nil {
						return cli.Exit(err.Error(), 2)
					}
					if outDir == "" {
						outDir = filepath.Join(cfg.OutDir, code)
					}
					if err := os.MkdirAll(outDir, 0o755); err != nil {
						return err
					}

					opts := chart.Options{
						Width:         vg.Length(widthIn) * vg.Inch,
						Height:        vg.Length(heightIn) * vg.Inch,
						Format:        format,
						SharedYLimits: sharedY,
						HatchUTurn:    hatch,
						Logger:        logger,
					}
					written, err := chart.SaveAll(c.Context, analysis, names, outDir, opts)
					if err != nil {
						return err
					}
					if overview {
						path := filepath.Join(outDir, "overview.png")
						f, err := os.Create(path)
						if err != nil {
							return err
						}
						defer f.Close()
						if err := chart.WriteOverview(f, analysis, names, opts); err != nil {
							return err
						}
						written = append(written, path)
					}
					for _, p := range written {
						fmt.Fprintln(c.App.Writer, p)
					}
					logger.Info("charts written", zap.String("code", code), zap.Int("count", len(written)))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gaitplot failed: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, dataDir string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}
