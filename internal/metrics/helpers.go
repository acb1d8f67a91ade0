package metrics

import (
	"strconv"

	"github.com/lumen-phi/photonic-core/pkg/models"
	"github.com/lumen-phi/photonic-core/pkg/utils"
)

// Series names shared between the executor and the streaming endpoint
const (
	SeriesCoherence       = "coherence"
	SeriesPhase           = "phase_rad"
	SeriesLoadedQ         = "loaded_q"
	SeriesFinesse         = "finesse"
	SeriesFWHM            = "fwhm_nm"
	SeriesInsertionLossDB = "insertion_loss_db"
	SeriesBusTransmission = "bus_transmission"
)

// RingLabels builds the label set for a per-ring series
func RingLabels(index int) map[string]string {
	return map[string]string{"ring": strconv.Itoa(index)}
}

// OscillatorLabels builds the label set for a per-oscillator series
func OscillatorLabels(index int) map[string]string {
	return map[string]string{"oscillator": strconv.Itoa(index)}
}

// RecordTrace replays an oscillator trace into the collector as the
// unlabeled coherence series, one point per recorded step.
func RecordTrace(c *Collector, trace *models.OscillatorTrace) {
	if trace == nil {
		return
	}
	for i, r := range trace.Coherence {
		c.Record(SeriesCoherence, r, int64(i), nil)
	}
}

// RecordFinalPhases records each oscillator's terminal phase as a labeled
// single-point series at the trace's last step. Phases are wrapped to
// (-pi, pi] since the raw values accumulate natural-frequency drift.
func RecordFinalPhases(c *Collector, trace *models.OscillatorTrace) {
	if trace == nil {
		return
	}
	for i, theta := range trace.FinalPhases {
		c.Record(SeriesPhase, utils.WrapPhase(theta), int64(trace.Steps), OscillatorLabels(i))
	}
}

// RecordRingResults records the per-ring figures of merit as labeled series
// keyed by the ring index. Failed rings are skipped.
func RecordRingResults(c *Collector, rings []models.RingResult) {
	for _, r := range rings {
		if r.Failed {
			continue
		}
		labels := RingLabels(r.RingIndex)
		step := int64(r.RingIndex)
		c.Record(SeriesLoadedQ, r.LoadedQ, step, labels)
		c.Record(SeriesFinesse, r.Finesse, step, labels)
		c.Record(SeriesFWHM, r.FWHMNm, step, labels)
	}
}

// RecordCascade records the cascade figures of merit as unlabeled
// single-point series.
func RecordCascade(c *Collector, cascade *models.CascadeSummary) {
	if cascade == nil {
		return
	}
	c.Record(SeriesBusTransmission, cascade.MeanTransmission, 0, nil)
	c.Record(SeriesInsertionLossDB, cascade.WorstInsertionLossDB, 0, nil)
}
