package chart

import (
	"strings"

	gaitnotes "gait-analyzer"
	"gait-analyzer/dsp"
)

// Range is a closed [Min, Max] interval on the value axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Limit groups share one y range across their charts.
const (
	GroupTrunkAcc = "trunk_acc"
	GroupAcc      = "acc"
	GroupRotation = "rotation"
)

// groupOf classifies a channel for shared limits: trunk accelerations (TA*), other accelerations
// (?A*) and rotation rates (?R*). The trunk angle has no group.
func groupOf(name string) string {
	switch {
	case strings.HasPrefix(name, "TA"):
		return GroupTrunkAcc
	case len(name) > 1 && name[1] == 'A':
		return GroupAcc
	case len(name) > 1 && name[1] == 'R':
		return GroupRotation
	}
	return ""
}

// SharedLimits computes the y range of each group over the given channels. Accelerations are padded
// by 0.1 and rotation rates by 20. The acceleration group includes the trunk accelerations.
func SharedLimits(channels []gaitnotes.Channel) map[string]Range {
	members := map[string][][]float64{}
	for _, c := range channels {
		g := groupOf(c.Name)
		switch g {
		case "":
			continue
		case GroupTrunkAcc:
			members[GroupAcc] = append(members[GroupAcc], c.Values)
		}
		members[g] = append(members[g], c.Values)
	}

	out := make(map[string]Range, len(members))
	for g, series := range members {
		lo, hi, ok := dsp.Range(series...)
		if !ok {
			continue
		}
		pad := 0.1
		if g == GroupRotation {
			pad = 20
		}
		out[g] = Range{Min: lo - pad, Max: hi + pad}
	}
	return out
}

// autoRange pads the data range by 5% on each side.
func autoRange(values []float64) Range {
	lo, hi, ok := dsp.Range(values)
	if !ok {
		return Range{Min: -1, Max: 1}
	}
	if lo == hi {
		return Range{Min: lo - 1, Max: hi + 1}
	}
	margin := 0.05 * (hi - lo)
	return Range{Min: lo - margin, Max: hi + margin}
}
