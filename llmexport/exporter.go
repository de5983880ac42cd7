package llmexport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gaitnotes "gait-analyzer"
	"gait-analyzer/trial"
)

// ExportTrial writes an LLM-friendly bundle for an analysed trial.
// Output files:
//   - manifest.json
//   - samples.jsonl
//   - sources/ (optional)
func ExportTrial(a *gaitnotes.Analysis, paths trial.Paths, outputDir string, opts ExportOptions) (*ExportResult, error) {
	if a == nil {
		return nil, fmt.Errorf("analysis is required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	sources, err := ReadSources(paths)
	if err != nil {
		return nil, err
	}
	manifest, err := BuildManifest(a, sources, opts)
	if err != nil {
		return nil, err
	}

	if err := ensureOutputDir(outputDir, opts.Overwrite); err != nil {
		return nil, err
	}

	samplesPath := filepath.Join(outputDir, SamplesFileName)
	if err := writeSamplesFile(samplesPath, a); err != nil {
		return nil, fmt.Errorf("write %s: %w", SamplesFileName, err)
	}

	manifestPath := filepath.Join(outputDir, ManifestFileName)
	if err := writeJSON(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write %s: %w", ManifestFileName, err)
	}

	var copies []string
	if opts.CopySourceFiles {
		dir := filepath.Join(outputDir, SourcesDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sources dir: %w", err)
		}
		for _, s := range sources {
			dst := filepath.Join(dir, filepath.Base(s.Name))
			if err := os.WriteFile(dst, s.Data, 0o644); err != nil {
				return nil, fmt.Errorf("copy source %s: %w", s.Role, err)
			}
			copies = append(copies, dst)
		}
	}

	return &ExportResult{
		OutputDir:       outputDir,
		ManifestPath:    manifestPath,
		SamplesPath:     samplesPath,
		SourceCopyPaths: copies,
		SampleCount:     a.SampleCount,
		ChannelCount:    len(a.Channels),
		RunID:           manifest.RunID,
	}, nil
}

// ReadSources loads the four inputs of a trial in role order.
func ReadSources(paths trial.Paths) ([]Source, error) {
	var out []Source
	for _, s := range paths.Sources() {
		if strings.TrimSpace(s.Path) == "" {
			continue
		}
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s source: %w", s.Role, err)
		}
		out = append(out, Source{Role: s.Role, Name: s.Path, Data: data})
	}
	return out, nil
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

func writeJSON(path string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeSamplesFile(path string, a *gaitnotes.Analysis) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeSamples(f, a); err != nil {
		return err
	}
	return f.Sync()
}
