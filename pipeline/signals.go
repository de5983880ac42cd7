package pipeline

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	gaitnotes "gait-analyzer"
)

// signalRow is one aligned sample. Filtered columns are NaN when low-pass filtering is off.
type signalRow struct {
	SampleIndex int64   `parquet:"name=sample_index, type=INT64"`
	TimeS       float64 `parquet:"name=time_s, type=DOUBLE"`
	TOX         float64 `parquet:"name=tox, type=DOUBLE"`
	TAX         float64 `parquet:"name=tax, type=DOUBLE"`
	TAY         float64 `parquet:"name=tay, type=DOUBLE"`
	RAV         float64 `parquet:"name=rav, type=DOUBLE"`
	RAZ         float64 `parquet:"name=raz, type=DOUBLE"`
	RRY         float64 `parquet:"name=rry, type=DOUBLE"`
	LAV         float64 `parquet:"name=lav, type=DOUBLE"`
	LAZ         float64 `parquet:"name=laz, type=DOUBLE"`
	LRY         float64 `parquet:"name=lry, type=DOUBLE"`
	TOXLP       float64 `parquet:"name=tox_lp, type=DOUBLE"`
	TAXLP       float64 `parquet:"name=tax_lp, type=DOUBLE"`
	TAYLP       float64 `parquet:"name=tay_lp, type=DOUBLE"`
	RAVLP       float64 `parquet:"name=rav_lp, type=DOUBLE"`
	RAZLP       float64 `parquet:"name=raz_lp, type=DOUBLE"`
	RRYLP       float64 `parquet:"name=rry_lp, type=DOUBLE"`
	LAVLP       float64 `parquet:"name=lav_lp, type=DOUBLE"`
	LAZLP       float64 `parquet:"name=laz_lp, type=DOUBLE"`
	LRYLP       float64 `parquet:"name=lry_lp, type=DOUBLE"`
}

// values points at the channel columns, base channels first, in gaitnotes.ChannelNames order.
func (r *signalRow) values() []*float64 {
	return []*float64{
		&r.TOX, &r.TAX, &r.TAY, &r.RAV, &r.RAZ, &r.RRY, &r.LAV, &r.LAZ, &r.LRY,
		&r.TOXLP, &r.TAXLP, &r.TAYLP, &r.RAVLP, &r.RAZLP, &r.RRYLP, &r.LAVLP, &r.LAZLP, &r.LRYLP,
	}
}

// signalColumns is the header shared by the csv and parquet outputs.
func signalColumns() []string {
	names := gaitnotes.ChannelNames()
	out := []string{"sample_index", "time_s"}
	for _, n := range names {
		out = append(out, strings.ToLower(n))
	}
	for _, n := range names {
		out = append(out, strings.ToLower(n)+"_lp")
	}
	return out
}

// buildSignalRows lays the analysis out as one row per aligned sample.
func buildSignalRows(a *gaitnotes.Analysis) []signalRow {
	names := gaitnotes.ChannelNames()
	series := make([][]float64, 0, 2*len(names))
	for _, n := range names {
		c, _ := a.Channel(n)
		series = append(series, c.Values)
	}
	for _, n := range names {
		c, _ := a.Channel(n + gaitnotes.FilteredSuffix)
		series = append(series, c.Values)
	}

	rows := make([]signalRow, a.SampleCount)
	for i := range rows {
		r := &rows[i]
		r.SampleIndex = int64(i)
		if i < len(a.Time) {
			r.TimeS = a.Time[i]
		} else {
			r.TimeS = float64(i) / a.SampleRateHz
		}
		for j, dst := range r.values() {
			*dst = valueOrNaN(series[j], i)
		}
	}
	return rows
}

func writeSignalsCSV(w io.Writer, rows []signalRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(signalColumns()); err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{strconv.FormatInt(r.SampleIndex, 10), formatFloat(r.TimeS)}
		for _, v := range r.values() {
			rec = append(rec, formatFloat(*v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func valueOrNaN(values []float64, i int) float64 {
	if i >= len(values) {
		return math.NaN()
	}
	return values[i]
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func signalsFileName(format string) string {
	if format == FormatCSV {
		return SignalsBaseName + ".csv"
	}
	return SignalsBaseName + ".parquet"
}
