package sweep

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV emits the sweep as CSV, one row per grid point with the swept
// axis in the first column.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{
		r.Axis,
		"mean_loaded_q",
		"min_finesse",
		"worst_insertion_loss_db",
		"crosstalk_pairs",
		"failed_rings",
		"split_tunable",
		"split_error_pct",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, p := range r.Points {
		record := []string{
			formatFloat(p.Value),
			formatFloat(p.MeanLoadedQ),
			formatFloat(p.MinFinesse),
			formatFloat(p.WorstInsertionLossDB),
			strconv.Itoa(p.CrosstalkPairs),
			strconv.Itoa(p.FailedRings),
			strconv.FormatBool(p.SplitTunable),
			formatFloat(p.SplitErrorPct),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
