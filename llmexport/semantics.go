package llmexport

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"path/filepath"

	gaitnotes "gait-analyzer"
	"gait-analyzer/trial"
)

var schemaNotes = []string{
	"One line per aligned sample, in time order; sample_index matches the metadata sample indices.",
	"Channel values are in the units listed in the manifest channel catalogue.",
	"Non-finite values are omitted from the channels object.",
	"phase is walk_out, u_turn or walk_back; samples outside the trial boundaries have no phase.",
	"left_swing and right_swing flag samples inside a swing phase from the metadata events.",
}

func describeChannels(a *gaitnotes.Analysis) []ChannelInfo {
	out := make([]ChannelInfo, len(a.Channels))
	for i, c := range a.Channels {
		out[i] = ChannelInfo{
			Name:        c.Name,
			Units:       c.Units,
			Description: c.Description,
			Sensor:      c.Sensor,
			Filtered:    c.Filtered,
		}
	}
	return out
}

func describeSources(a *gaitnotes.Analysis, sources []Source) []SourceInfo {
	out := make([]SourceInfo, 0, len(sources))
	for _, s := range sources {
		sum := sha256.Sum256(s.Data)
		out = append(out, SourceInfo{
			Role:      s.Role,
			FileName:  filepath.Base(s.Name),
			SHA256:    hex.EncodeToString(sum[:]),
			SizeBytes: int64(len(s.Data)),
			Rows:      a.SourceSamples[s.Role],
		})
	}
	return out
}

func sampleAt(a *gaitnotes.Analysis, i int) SampleEnvelope {
	env := SampleEnvelope{
		FormatVersion: ExportFormatVersion,
		SampleIndex:   i,
		TimeS:         a.Time[i],
		Phase:         gaitnotes.PhaseAt(a.Metadata, i),
		LeftSwing:     gaitnotes.InSwing(a.Metadata, trial.Left, i),
		RightSwing:    gaitnotes.InSwing(a.Metadata, trial.Right, i),
		Channels:      make(map[string]float64, len(a.Channels)),
	}
	for _, c := range a.Channels {
		if i >= len(c.Values) {
			continue
		}
		v := c.Values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		env.Channels[c.Name] = v
	}
	return env
}
