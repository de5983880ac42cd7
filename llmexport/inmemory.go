package llmexport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	gaitnotes "gait-analyzer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BuildManifest describes an analysis and its inputs.
func BuildManifest(a *gaitnotes.Analysis, sources []Source, opts ExportOptions) (Manifest, error) {
	if a == nil || a.Metadata == nil {
		return Manifest{}, fmt.Errorf("analysis with metadata is required")
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Manifest{}, fmt.Errorf("generate run id: %w", err)
		}
		runID = id.String()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	return Manifest{
		FormatVersion:   ExportFormatVersion,
		GeneratedAt:     now().UTC(),
		RunID:           runID,
		TrialCode:       a.Code,
		Subject:         a.Info.Subject,
		Trial:           a.Info.Trial,
		Sources:         describeSources(a, sources),
		SampleRateHz:    a.SampleRateHz,
		Alignment:       a.Alignment,
		SampleCount:     a.SampleCount,
		DurationSeconds: a.DurationSeconds,
		TrialBoundaries: a.Metadata.TrialBoundaries,
		UTurnBoundaries: a.Metadata.UTurnBoundaries,
		Channels:        describeChannels(a),
		SamplesPath:     SamplesFileName,
		Warnings:        dedupeStrings(a.Warnings),
		SchemaDescription: SchemaDetails{
			RecordType: "JSONL line-per-sample of the aligned gait channels",
			Notes:      schemaNotes,
		},
	}, nil
}

// MarshalJSON renders indented JSON.
func MarshalJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	out = append(out, '\n')
	return out, nil
}

// MarshalSamplesJSONL renders every aligned sample as JSONL bytes.
func MarshalSamplesJSONL(a *gaitnotes.Analysis) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSamples(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSamples(w io.Writer, a *gaitnotes.Analysis) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i := 0; i < a.SampleCount; i++ {
		if err := enc.Encode(sampleAt(a, i)); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return bw.Flush()
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
