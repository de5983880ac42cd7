package trial

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Side selects one foot.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Event is one swing phase of a foot, as a pair of sample indices.
type Event struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// UnmarshalJSON accepts the [start, end] pair used by the metadata files.
func (e *Event) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("foot event: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("foot event: expected [start, end], got %d values", len(pair))
	}
	e.Start, e.End = pair[0], pair[1]
	return nil
}

// MarshalJSON writes the event back as a [start, end] pair.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{e.Start, e.End})
}

// OutsideUTurn reports whether the event lies entirely before or after the U-turn.
func (e Event) OutsideUTurn(uturn Boundaries) bool {
	return e.End < uturn[0] || e.Start > uturn[1]
}

// Samples is the event length in samples.
func (e Event) Samples() int {
	return e.End - e.Start
}

// Boundaries is a [start, end] pair of sample indices.
type Boundaries [2]int

// Samples is the span length in samples.
func (b Boundaries) Samples() int {
	return b[1] - b[0]
}

// Metadata describes one trial. Numeric subject attributes keep their JSON text so the report
// shows them as recorded.
type Metadata struct {
	Code            string      `json:"Code,omitempty"`
	Subject         json.Number `json:"Subject"`
	Trial           json.Number `json:"Trial"`
	Age             json.Number `json:"Age"`
	Gender          string      `json:"Gender"`
	Height          json.Number `json:"Height"`
	Weight          json.Number `json:"Weight"`
	TrialBoundaries Boundaries  `json:"TrialBoundaries"`
	UTurnBoundaries Boundaries  `json:"UTurnBoundaries"`
	LeftFootEvents  []Event     `json:"LeftFootEvents"`
	RightFootEvents []Event     `json:"RightFootEvents"`
}

// LoadMetadata reads and validates <code>.json.
func LoadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()
	return ParseMetadata(f)
}

// ParseMetadata decodes and validates a metadata document.
func ParseMetadata(r io.Reader) (*Metadata, error) {
	var m Metadata
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks boundary ordering and event spans.
func (m *Metadata) Validate() error {
	if m.TrialBoundaries[1] <= m.TrialBoundaries[0] {
		return fmt.Errorf("invalid metadata: trial boundaries %v are not increasing", m.TrialBoundaries)
	}
	if m.UTurnBoundaries[1] < m.UTurnBoundaries[0] {
		return fmt.Errorf("invalid metadata: u-turn boundaries %v are not ordered", m.UTurnBoundaries)
	}
	for _, side := range []Side{Left, Right} {
		for i, e := range m.FootEvents(side) {
			if e.End < e.Start {
				return fmt.Errorf("invalid metadata: %s foot event %d ends before it starts (%d > %d)", side, i, e.Start, e.End)
			}
		}
	}
	return nil
}

// FootEvents returns the swing phases of one foot.
func (m *Metadata) FootEvents(side Side) []Event {
	if side == Left {
		return m.LeftFootEvents
	}
	return m.RightFootEvents
}

// WalkingSpeed is the mean speed over the trial boundaries for a walk of distanceM metres.
func (m *Metadata) WalkingSpeed(distanceM, rateHz float64) float64 {
	n := m.TrialBoundaries.Samples()
	if n <= 0 {
		return 0
	}
	return distanceM * rateHz / float64(n)
}

// UTurnDuration is the U-turn length in seconds.
func (m *Metadata) UTurnDuration(rateHz float64) float64 {
	if rateHz <= 0 {
		return 0
	}
	return float64(m.UTurnBoundaries.Samples()) / rateHz
}
