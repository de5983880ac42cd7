// Package xsens reads the tab-separated exports of XSens inertial sensors.
package xsens

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Column names of an XSens export.
const (
	PacketCounter = "PacketCounter"
	AccX          = "Acc_X"
	AccY          = "Acc_Y"
	AccZ          = "Acc_Z"
	GyrX          = "Gyr_X"
	GyrY          = "Gyr_Y"
	GyrZ          = "Gyr_Z"
	FreeAccX      = "FreeAcc_X"
	FreeAccY      = "FreeAcc_Y"
	FreeAccZ      = "FreeAcc_Z"
)

// DefaultRateHz is the sampling rate of the recordings.
const DefaultRateHz = 100.0

const counterModulus = 1 << 16

var requiredColumns = []string{PacketCounter, AccX, AccY, AccZ, GyrX, GyrY, GyrZ}

// ErrEmptyRecording is returned for a file with a header but no samples.
var ErrEmptyRecording = errors.New("recording has no samples")

// Recording is one sensor file converted to float columns.
type Recording struct {
	Source  string               `json:"source"`
	Header  []string             `json:"header"`
	Time    []float64            `json:"-"`
	Columns map[string][]float64 `json:"-"`
}

// Len is the number of samples.
func (r *Recording) Len() int {
	return len(r.Time)
}

// Column returns a column by name, or nil.
func (r *Recording) Column(name string) []float64 {
	return r.Columns[name]
}

// Truncate keeps the first n samples.
func (r *Recording) Truncate(n int) {
	if n < 0 || n >= r.Len() {
		return
	}
	r.Time = r.Time[:n]
	for k, v := range r.Columns {
		r.Columns[k] = v[:n]
	}
}

// LoadFile reads a recording from disk.
func LoadFile(path string, rateHz float64) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sensor file: %w", err)
	}
	defer f.Close()

	rec, err := Parse(f, rateHz)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rec.Source = path
	return rec, nil
}

// Parse reads a tab-separated export. Leading "//" lines are skipped, the next line is the header.
// Time is derived from PacketCounter and the FreeAcc columns are the accelerations minus their mean.
func Parse(r io.Reader, rateHz float64) (*Recording, error) {
	if rateHz <= 0 {
		rateHz = DefaultRateHz
	}
	br := bufio.NewReader(r)
	if err := skipComments(br); err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header line")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		if h != "" {
			index[h] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	columns := make(map[string][]float64, len(index))
	for name := range index {
		columns[name] = make([]float64, 0, 4096)
	}

	row := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		for name, i := range index {
			v, err := parseCell(fields, i)
			if err != nil {
				if isRequired(name) {
					return nil, fmt.Errorf("row %d: column %s: %w", row, name, err)
				}
				v = math.NaN()
			}
			columns[name] = append(columns[name], v)
		}
	}
	if len(columns[PacketCounter]) == 0 {
		return nil, ErrEmptyRecording
	}

	rec := &Recording{
		Header:  header,
		Time:    counterToSeconds(columns[PacketCounter], rateHz),
		Columns: columns,
	}
	for _, axis := range [][2]string{{AccX, FreeAccX}, {AccY, FreeAccY}, {AccZ, FreeAccZ}} {
		rec.Columns[axis[1]] = centered(rec.Columns[axis[0]])
	}
	return rec, nil
}

func skipComments(br *bufio.Reader) error {
	for {
		peek, err := br.Peek(2)
		if err != nil && len(peek) == 0 {
			if err == io.EOF {
				return fmt.Errorf("missing header line")
			}
			return err
		}
		if string(peek) != "//" && !(len(peek) > 0 && (peek[0] == '\n' || peek[0] == '\r')) {
			return nil
		}
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return fmt.Errorf("missing header line")
			}
			return err
		}
	}
}

func parseCell(fields []string, i int) (float64, error) {
	if i >= len(fields) {
		return 0, fmt.Errorf("missing value")
	}
	s := strings.TrimSpace(fields[i])
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

func isRequired(name string) bool {
	for _, r := range requiredColumns {
		if r == name {
			return true
		}
	}
	return false
}

// counterToSeconds converts the 16-bit packet counter to seconds from the first sample, unwrapping
// overflows.
func counterToSeconds(counter []float64, rateHz float64) []float64 {
	out := make([]float64, len(counter))
	if len(counter) == 0 {
		return out
	}
	offset := 0.0
	prev := counter[0]
	for i, c := range counter {
		if c < prev {
			offset += counterModulus
		}
		prev = c
		out[i] = (c + offset - counter[0]) / rateHz
	}
	return out
}

func centered(values []float64) []float64 {
	mean := stat.Mean(values, nil)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - mean
	}
	return out
}
