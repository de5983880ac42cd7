package gaitnotes

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"gait-analyzer/trial"
)

const gaitStructureSchemaVersion = "gait_structure_v1"

// Phase names, in walking order.
const (
	PhaseWalkOut  = "walk_out"
	PhaseUTurn    = "u_turn"
	PhaseWalkBack = "walk_back"
)

// GaitStructure is the trial broken into its straight walks and U-turn, read from the metadata
// boundaries and events.
type GaitStructure struct {
	SchemaVersion      string    `json:"schema_version"`
	Phases             []Phase   `json:"phases"`
	Left               FootStats `json:"left"`
	Right              FootStats `json:"right"`
	CadenceStepsPerMin float64   `json:"cadence_steps_per_min"`
	SwingAsymmetryPct  float64   `json:"swing_asymmetry_pct"`
}

// Phase is one contiguous segment of the trial.
type Phase struct {
	Name            string  `json:"name"`
	StartSample     int     `json:"start_sample"`
	EndSample       int     `json:"end_sample"`
	DurationSeconds float64 `json:"duration_seconds"`
	LeftSwings      int     `json:"left_swings"`
	RightSwings     int     `json:"right_swings"`
}

// FootStats describes the swing phases of one foot outside the U-turn.
type FootStats struct {
	Side              trial.Side `json:"side"`
	Events            int        `json:"events"`
	OutsideUTurn      int        `json:"outside_uturn"`
	MeanSwingSeconds  float64    `json:"mean_swing_seconds"`
	StdSwingSeconds   float64    `json:"std_swing_seconds"`
	MinSwingSeconds   float64    `json:"min_swing_seconds"`
	MaxSwingSeconds   float64    `json:"max_swing_seconds"`
	MeanStrideSeconds float64    `json:"mean_stride_seconds"`
}

// InferGaitStructure splits the trial at the U-turn and computes per-foot swing statistics.
func InferGaitStructure(m *trial.Metadata, rateHz float64) GaitStructure {
	gs := GaitStructure{SchemaVersion: gaitStructureSchemaVersion}
	if m == nil || rateHz <= 0 {
		return gs
	}
	tb, ut := m.TrialBoundaries, m.UTurnBoundaries

	gs.Phases = []Phase{
		buildPhase(m, PhaseWalkOut, tb[0], ut[0], rateHz, func(e trial.Event) bool {
			return e.Start >= tb[0] && e.End < ut[0]
		}),
		buildPhase(m, PhaseUTurn, ut[0], ut[1], rateHz, func(e trial.Event) bool {
			return e.Start >= ut[0] && e.End <= ut[1]
		}),
		buildPhase(m, PhaseWalkBack, ut[1], tb[1], rateHz, func(e trial.Event) bool {
			return e.Start > ut[1] && e.End <= tb[1]
		}),
	}

	gs.Left = buildFootStats(m, trial.Left, rateHz)
	gs.Right = buildFootStats(m, trial.Right, rateHz)

	straight := gs.Phases[0].DurationSeconds + gs.Phases[2].DurationSeconds
	steps := gs.Phases[0].LeftSwings + gs.Phases[0].RightSwings + gs.Phases[2].LeftSwings + gs.Phases[2].RightSwings
	gs.CadenceStepsPerMin = safeDiv(float64(steps)*60, straight)

	if gs.Left.MeanSwingSeconds > 0 && gs.Right.MeanSwingSeconds > 0 {
		gs.SwingAsymmetryPct = (gs.Left.MeanSwingSeconds/gs.Right.MeanSwingSeconds - 1) * 100
	}
	return gs
}

func buildPhase(m *trial.Metadata, name string, start, end int, rateHz float64, inside func(trial.Event) bool) Phase {
	p := Phase{
		Name:            name,
		StartSample:     start,
		EndSample:       end,
		DurationSeconds: math.Max(0, float64(end-start)/rateHz),
	}
	for _, e := range m.LeftFootEvents {
		if inside(e) {
			p.LeftSwings++
		}
	}
	for _, e := range m.RightFootEvents {
		if inside(e) {
			p.RightSwings++
		}
	}
	return p
}

func buildFootStats(m *trial.Metadata, side trial.Side, rateHz float64) FootStats {
	events := m.FootEvents(side)
	fs := FootStats{Side: side, Events: len(events)}
	ut := m.UTurnBoundaries

	var swings, strides []float64
	var prev *trial.Event
	for i := range events {
		e := events[i]
		if !e.OutsideUTurn(ut) {
			prev = nil
			continue
		}
		swings = append(swings, float64(e.Samples())/rateHz)
		// Strides are only measured within one straight walk.
		if prev != nil && (prev.End < ut[0]) == (e.End < ut[0]) {
			strides = append(strides, float64(e.Start-prev.Start)/rateHz)
		}
		prev = &events[i]
	}
	fs.OutsideUTurn = len(swings)
	if len(swings) == 0 {
		return fs
	}

	fs.MeanSwingSeconds = stat.Mean(swings, nil)
	if len(swings) > 1 {
		fs.StdSwingSeconds = stat.StdDev(swings, nil)
	}
	fs.MinSwingSeconds, fs.MaxSwingSeconds = swings[0], swings[0]
	for _, v := range swings[1:] {
		fs.MinSwingSeconds = math.Min(fs.MinSwingSeconds, v)
		fs.MaxSwingSeconds = math.Max(fs.MaxSwingSeconds, v)
	}
	if len(strides) > 0 {
		fs.MeanStrideSeconds = stat.Mean(strides, nil)
	}
	return fs
}

// PhaseAt names the phase containing sample i, or "" outside the trial boundaries.
func PhaseAt(m *trial.Metadata, i int) string {
	if m == nil {
		return ""
	}
	tb, ut := m.TrialBoundaries, m.UTurnBoundaries
	switch {
	case i >= ut[0] && i <= ut[1]:
		return PhaseUTurn
	case i >= tb[0] && i < ut[0]:
		return PhaseWalkOut
	case i > ut[1] && i <= tb[1]:
		return PhaseWalkBack
	}
	return ""
}

// InSwing reports whether sample i falls inside a swing phase of the given foot.
func InSwing(m *trial.Metadata, side trial.Side, i int) bool {
	if m == nil {
		return false
	}
	for _, e := range m.FootEvents(side) {
		if i >= e.Start && i <= e.End {
			return true
		}
	}
	return false
}
