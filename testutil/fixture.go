// Package testutil generates synthetic gait trials for package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gait-analyzer/trial"
)

// Fixture describes a synthetic trial. Zero fields take the defaults of DefaultFixture.
type Fixture struct {
	Subject int
	Trial   int
	Samples int
	// Extra samples appended to the left and right foot recordings, to exercise alignment.
	LeftExtra  int
	RightExtra int
	// First PacketCounter value; set close to 65535 to exercise counter wrap.
	CounterStart int
	// Total trunk rotation over the U-turn, in gyroscope units.
	TurnRotation float64

	TrialBoundaries trial.Boundaries
	UTurnBoundaries trial.Boundaries
	LeftEvents      []trial.Event
	RightEvents     []trial.Event
}

// DefaultFixture is a 12 s walk at 100 Hz with a U-turn in the middle.
func DefaultFixture() Fixture {
	return Fixture{
		Subject:         1,
		Trial:           2,
		Samples:         1200,
		LeftExtra:       5,
		RightExtra:      3,
		CounterStart:    1000,
		TurnRotation:    math.Pi,
		TrialBoundaries: trial.Boundaries{100, 1100},
		UTurnBoundaries: trial.Boundaries{500, 650},
		LeftEvents: []trial.Event{
			{Start: 150, End: 190}, {Start: 250, End: 290}, {Start: 350, End: 390},
			{Start: 560, End: 600},
			{Start: 700, End: 740}, {Start: 800, End: 840}, {Start: 900, End: 940},
		},
		RightEvents: []trial.Event{
			{Start: 200, End: 240}, {Start: 300, End: 340}, {Start: 400, End: 440},
			{Start: 750, End: 790}, {Start: 850, End: 890}, {Start: 950, End: 990},
		},
	}
}

// Code is the fixture's subject-trial code.
func (f Fixture) Code() string {
	return trial.Code(f.Subject, f.Trial)
}

// Files renders the metadata document and the three sensor recordings.
func (f Fixture) Files() (meta, trunk, left, right []byte) {
	doc := map[string]any{
		"Subject":         f.Subject,
		"Trial":           f.Trial,
		"Age":             29,
		"Gender":          "F",
		"Height":          172,
		"Weight":          64.5,
		"TrialBoundaries": f.TrialBoundaries,
		"UTurnBoundaries": f.UTurnBoundaries,
		"LeftFootEvents":  eventPairs(f.LeftEvents),
		"RightFootEvents": eventPairs(f.RightEvents),
	}
	meta, _ = json.MarshalIndent(doc, "", "  ")
	trunk = f.recording(f.Samples, f.trunkRow)
	left = f.recording(f.Samples+f.LeftExtra, f.footRow(0))
	right = f.recording(f.Samples+f.RightExtra, f.footRow(math.Pi/2))
	return meta, trunk, left, right
}

// WriteTrial writes the fixture into dir and returns its paths.
func WriteTrial(tb testing.TB, dir string, f Fixture) trial.Paths {
	tb.Helper()
	meta, trunk, left, right := f.Files()
	base := filepath.Join(dir, f.Code())
	p := trial.Paths{
		Code:      f.Code(),
		Metadata:  base + ".json",
		Trunk:     base + "_lb.txt",
		LeftFoot:  base + "_lf.txt",
		RightFoot: base + "_rf.txt",
	}
	for path, data := range map[string][]byte{p.Metadata: meta, p.Trunk: trunk, p.LeftFoot: left, p.RightFoot: right} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			tb.Fatalf("write fixture %s: %v", path, err)
		}
	}
	return p
}

func (f Fixture) recording(n int, row func(i int) [6]float64) []byte {
	var b bytes.Buffer
	b.WriteString("// Start Time: Unknown\n")
	b.WriteString("PacketCounter\tAcc_X\tAcc_Y\tAcc_Z\tGyr_X\tGyr_Y\tGyr_Z\tMag_X\n")
	for i := 0; i < n; i++ {
		v := row(i)
		counter := (f.CounterStart + i) % 65536
		fmt.Fprintf(&b, "%d\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.3f\n", counter, v[0], v[1], v[2], v[3], v[4], v[5], 0.5)
	}
	return b.Bytes()
}

func (f Fixture) trunkRow(i int) [6]float64 {
	t := float64(i) / 100
	gyrX := 0.0
	if span := f.UTurnBoundaries.Samples(); span > 0 && i >= f.UTurnBoundaries[0] && i < f.UTurnBoundaries[1] {
		gyrX = f.TurnRotation * 100 / float64(span)
	}
	return [6]float64{
		0.8 * math.Sin(2*math.Pi*t),
		0.3 * math.Cos(2*math.Pi*t),
		9.81,
		gyrX,
		0.05,
		0,
	}
}

func (f Fixture) footRow(phase float64) func(i int) [6]float64 {
	return func(i int) [6]float64 {
		t := float64(i) / 100
		return [6]float64{
			2 * math.Sin(2*math.Pi*t+phase),
			1.5 * math.Cos(2*math.Pi*t+phase),
			9.81 + 3*math.Sin(4*math.Pi*t+phase),
			0,
			200 * math.Sin(2*math.Pi*t+phase),
			0,
		}
	}
}

func eventPairs(events []trial.Event) [][2]int {
	out := make([][2]int, len(events))
	for i, e := range events {
		out[i] = [2]int{e.Start, e.End}
	}
	return out
}
