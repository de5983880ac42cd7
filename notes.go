package gaitnotes

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"gait-analyzer/trial"
)

const infoColumnWidth = 30

const trialInfoTemplate = "\n" +
	"    {Subject:^30}|{Trial:^30}\n" +
	"    ------------------------------+------------------------------\n" +
	"    {Age:<30}| {WalkingSpeed:<30}\n" +
	"    {Height:<30}| Number of footsteps:\n" +
	"    {Weight:<30}| {LeftGaitCycles:<30}\n" +
	"    {UTurnDuration:<30}| {RightGaitCycles:<30}\n" +
	"    \n"

// TrialInfo holds the fields of trial_info.txt, already formatted for display.
type TrialInfo struct {
	Subject         string  `json:"subject"`
	Trial           string  `json:"trial"`
	Age             string  `json:"age"`
	Gender          string  `json:"gender"`
	Height          string  `json:"height"`
	Weight          string  `json:"weight"`
	WalkingSpeedMps float64 `json:"walking_speed_mps"`
	UTurnSeconds    float64 `json:"uturn_duration_seconds"`
	LeftGaitCycles  int     `json:"left_gait_cycles"`
	RightGaitCycles int     `json:"right_gait_cycles"`
}

// NewTrialInfo extracts the report fields. Walking speed is rounded to 3 decimals.
func NewTrialInfo(m *trial.Metadata, walkedDistanceM, rateHz float64) TrialInfo {
	if m == nil {
		return TrialInfo{}
	}
	return TrialInfo{
		Subject:         formatNumber(m.Subject),
		Trial:           formatNumber(m.Trial),
		Age:             formatNumber(m.Age),
		Gender:          m.Gender,
		Height:          formatNumber(m.Height),
		Weight:          formatNumber(m.Weight),
		WalkingSpeedMps: roundTo(m.WalkingSpeed(walkedDistanceM, rateHz), 3),
		UTurnSeconds:    m.UTurnDuration(rateHz),
		LeftGaitCycles:  len(m.LeftFootEvents),
		RightGaitCycles: len(m.RightFootEvents),
	}
}

// BuildTrialInfo renders the two-column trial_info.txt report.
func BuildTrialInfo(info TrialInfo) string {
	fields := map[string]string{
		"Subject":         "Subject: " + info.Subject,
		"Trial":           "Trial: " + info.Trial,
		"Age":             "Age (year): " + info.Age,
		"Height":          "Height (cm): " + info.Height,
		"Weight":          "Weight (kg): " + info.Weight,
		"WalkingSpeed":    "WalkingSpeed (m/s): " + formatFloat(info.WalkingSpeedMps),
		"UTurnDuration":   "U-Turn Duration (s): " + formatFloat(info.UTurnSeconds),
		"LeftGaitCycles":  fmt.Sprintf("    - Left foot: %d", info.LeftGaitCycles),
		"RightGaitCycles": fmt.Sprintf("    - Right foot: %d", info.RightGaitCycles),
	}

	var b strings.Builder
	rest := trialInfoTemplate
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		end := strings.IndexByte(rest[open:], '}') + open
		name, spec, _ := strings.Cut(rest[open+1:end], ":")
		b.WriteString(pad(fields[name], spec))
		rest = rest[end+1:]
	}
	return b.String()
}

// pad applies a "^30" or "<30" alignment spec. Centering puts the odd space on the right.
func pad(s, spec string) string {
	width := infoColumnWidth
	if len(spec) > 1 {
		if w, err := strconv.Atoi(spec[1:]); err == nil {
			width = w
		}
	}
	gap := width - utf8.RuneCountInString(s)
	if gap <= 0 {
		return s
	}
	if strings.HasPrefix(spec, "^") {
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	}
	return s + strings.Repeat(" ", gap)
}

// formatNumber prints integers as written and decimals as floats.
func formatNumber(n json.Number) string {
	s := n.String()
	if s == "" {
		return "unknown"
	}
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	v, err := n.Float64()
	if err != nil {
		return s
	}
	return formatFloat(v)
}

// formatFloat prints the shortest representation that round-trips, keeping ".0" on integral values
// and switching to exponent form below 1e-4 and from 1e16.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// roundTo rounds half-to-even on the exact binary value.
func roundTo(v float64, decimals int) float64 {
	if !isFinite(v) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// BuildGaitNotes summarises the trial structure for a human reader.
func BuildGaitNotes(a *Analysis) string {
	if a == nil {
		return ""
	}
	var b strings.Builder
	s := a.Structure

	fmt.Fprintf(&b, "Trial %s: subject %s, trial %s\n", a.Code, a.Info.Subject, a.Info.Trial)
	fmt.Fprintf(
		&b,
		"Signals %d samples at %.0f Hz (%s) | %s aligned by %s\n",
		a.SampleCount,
		a.SampleRateHz,
		formatDuration(a.DurationSeconds),
		pluralize(len(a.Channels), "channel"),
		a.Alignment,
	)
	fmt.Fprintf(
		&b,
		"Walk %.3f m/s | U-turn %.2f s | Cadence %.1f steps/min\n",
		a.Info.WalkingSpeedMps,
		a.Info.UTurnSeconds,
		s.CadenceStepsPerMin,
	)

	b.WriteString("\nPhases\n")
	for _, p := range s.Phases {
		fmt.Fprintf(
			&b,
			"- %s: samples %d-%d, %s, swings L%d / R%d\n",
			p.Name,
			p.StartSample,
			p.EndSample,
			formatDuration(p.DurationSeconds),
			p.LeftSwings,
			p.RightSwings,
		)
	}

	b.WriteString("\nSwing Phases\n")
	for _, f := range []FootStats{s.Left, s.Right} {
		if f.Events == 0 {
			fmt.Fprintf(&b, "- %s foot: no events\n", f.Side)
			continue
		}
		fmt.Fprintf(
			&b,
			"- %s foot: %d events, %d outside the U-turn | swing %.2f ± %.2f s (%.2f-%.2f) | stride %.2f s\n",
			f.Side,
			f.Events,
			f.OutsideUTurn,
			f.MeanSwingSeconds,
			f.StdSwingSeconds,
			f.MinSwingSeconds,
			f.MaxSwingSeconds,
			f.MeanStrideSeconds,
		)
	}
	if s.SwingAsymmetryPct != 0 {
		fmt.Fprintf(&b, "- Swing asymmetry: %+.1f%% (left vs right)\n", s.SwingAsymmetryPct)
	}

	if len(a.Warnings) > 0 {
		b.WriteString("\nWarnings\n")
		for _, w := range a.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return strings.TrimSpace(b.String())
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	if seconds < 60 {
		return strconv.FormatFloat(seconds, 'f', 2, 64) + "s"
	}
	s := int(math.Round(seconds))
	return fmt.Sprintf("%dm%02ds", s/60, s%60)
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
