package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	gaitnotes "gait-analyzer"
	"gait-analyzer/trial"
)

func main() {
	var (
		dataDir   = flag.String("data", trial.DefaultDir, "Folder holding the recordings and metadata")
		list      = flag.Bool("list", false, "List the available trial codes")
		jsonOut   = flag.Bool("json", false, "Emit full analysis as JSON")
		showNotes = flag.Bool("notes", false, "Append the phase and swing summary to the trial info")
		distance  = flag.Float64("distance", gaitnotes.DefaultWalkedDistanceM, "Walked distance in metres, for the walking speed")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <subject-trial code>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	catalog := trial.Catalog{Dir: *dataDir}
	if *list {
		codes, err := catalog.Codes()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
			os.Exit(1)
		}
		for _, c := range codes {
			fmt.Println(c)
		}
		return
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	paths, err := catalog.Resolve(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	cfg := gaitnotes.DefaultConfig()
	cfg.WalkedDistanceM = *distance
	analysis, err := gaitnotes.AnalyzeTrial(paths, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysis); err != nil {
			fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Print(gaitnotes.BuildTrialInfo(analysis.Info))
	if *showNotes {
		fmt.Println()
		fmt.Println(analysis.Notes)
	}
}
