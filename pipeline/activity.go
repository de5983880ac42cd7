package pipeline

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/tormoder/fit"

	gaitnotes "gait-analyzer"
	"gait-analyzer/trial"
)

// FIT scale factors: times in ms, distances in cm.
const (
	fitTimeScale     = 1000
	fitDistanceScale = 100
)

// encodeActivity writes the trial as a FIT walking activity: one session, one lap per phase,
// timer and lap events, and a record per second carrying step cadence and distance.
func encodeActivity(a *gaitnotes.Analysis, start time.Time) ([]byte, error) {
	if a == nil || a.Metadata == nil {
		return nil, fmt.Errorf("analysis with metadata is required")
	}
	if a.SampleRateHz <= 0 || a.SampleCount == 0 {
		return nil, fmt.Errorf("analysis has no samples")
	}
	start = start.UTC().Truncate(time.Second)
	rate := a.SampleRateHz
	at := func(sample int) time.Time {
		return start.Add(time.Duration(float64(sample) / rate * float64(time.Second)))
	}
	speed := a.Info.WalkingSpeedMps
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = 0
	}

	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		return nil, fmt.Errorf("new fit file: %w", err)
	}
	activity, err := file.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity accessor: %w", err)
	}

	end := at(a.SampleCount - 1)
	activity.Events = append(activity.Events, timerEvent(start, fit.EventTypeStart))

	var totalDistance float64
	for i, p := range a.Structure.Phases {
		lapStart, lapEnd := at(p.StartSample), at(p.EndSample)
		distance := 0.0
		if p.Name != gaitnotes.PhaseUTurn {
			distance = speed * p.DurationSeconds
		}
		totalDistance += distance

		lap := fit.NewLapMsg()
		lap.MessageIndex = fit.MessageIndex(i)
		lap.Timestamp = lapEnd
		lap.StartTime = lapStart
		lap.Event = fit.EventLap
		lap.EventType = fit.EventTypeStop
		lap.Sport = fit.SportWalking
		lap.TotalElapsedTime = scaled(p.DurationSeconds, fitTimeScale)
		lap.TotalTimerTime = lap.TotalElapsedTime
		lap.TotalDistance = scaled(distance, fitDistanceScale)
		lap.AvgCadence = cadence(p.LeftSwings+p.RightSwings, p.DurationSeconds)
		activity.Laps = append(activity.Laps, lap)

		marker := fit.NewEventMsg()
		marker.Timestamp = lapEnd
		marker.Event = fit.EventLap
		marker.EventType = fit.EventTypeMarker
		activity.Events = append(activity.Events, marker)
	}

	activity.Records = buildRecords(a, start, speed)
	activity.Events = append(activity.Events, timerEvent(end, fit.EventTypeStopAll))

	elapsed := end.Sub(start).Seconds()
	session := fit.NewSessionMsg()
	session.Timestamp = end
	session.StartTime = start
	session.Event = fit.EventSession
	session.EventType = fit.EventTypeStop
	session.Sport = fit.SportWalking
	session.TotalElapsedTime = scaled(elapsed, fitTimeScale)
	session.TotalTimerTime = session.TotalElapsedTime
	session.TotalDistance = scaled(totalDistance, fitDistanceScale)
	session.NumLaps = uint16(len(activity.Laps))
	session.AvgCadence = clampCadence(a.Structure.CadenceStepsPerMin)
	activity.Sessions = append(activity.Sessions, session)

	summary := fit.NewActivityMsg()
	summary.Timestamp = end
	summary.TotalTimerTime = session.TotalTimerTime
	summary.NumSessions = 1
	summary.Type = fit.ActivityModeManual
	summary.Event = fit.EventActivity
	summary.EventType = fit.EventTypeStop
	activity.Activity = summary

	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode fit: %w", err)
	}
	return buf.Bytes(), nil
}

// buildRecords emits one record per second. Cadence counts swing phases starting in that second,
// distance grows at walking speed outside the U-turn.
func buildRecords(a *gaitnotes.Analysis, start time.Time, speed float64) []*fit.RecordMsg {
	m := a.Metadata
	rate := a.SampleRateHz
	step := int(math.Round(rate))
	if step < 1 {
		step = 1
	}
	starts := make(map[int]int)
	for _, side := range []trial.Side{trial.Left, trial.Right} {
		for _, e := range m.FootEvents(side) {
			starts[e.Start/step]++
		}
	}

	var out []*fit.RecordMsg
	distance := 0.0
	for i := 0; i < a.SampleCount; i += step {
		phase := gaitnotes.PhaseAt(m, i)
		if phase == gaitnotes.PhaseWalkOut || phase == gaitnotes.PhaseWalkBack {
			distance += speed * float64(step) / rate
		}
		r := fit.NewRecordMsg()
		r.Timestamp = start.Add(time.Duration(i/step) * time.Second)
		r.Cadence = clampCadence(float64(starts[i/step]) * 60 * rate / float64(step))
		r.Distance = scaled(distance, fitDistanceScale)
		out = append(out, r)
	}
	return out
}

func timerEvent(ts time.Time, kind fit.EventType) *fit.EventMsg {
	e := fit.NewEventMsg()
	e.Timestamp = ts
	e.Event = fit.EventTimer
	e.EventType = kind
	return e
}

// cadence is steps per minute over a phase.
func cadence(steps int, seconds float64) uint8 {
	if seconds <= 0 {
		return 0
	}
	return clampCadence(float64(steps) * 60 / seconds)
}

func clampCadence(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	// 0xFF is the FIT invalid value for uint8.
	return uint8(math.Min(math.Round(v), 254))
}

func scaled(v float64, scale float64) uint32 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return uint32(math.Round(v * scale))
}
