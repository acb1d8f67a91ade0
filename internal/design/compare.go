package design

import (
	"fmt"
	"math"
)

// VariantComparison holds the figure-of-merit deltas between two variants.
// Every diff is candidate minus baseline.
type VariantComparison struct {
	Baseline  string `json:"baseline"`
	Candidate string `json:"candidate"`

	ScoreDiff   float64 `json:"score_diff"`
	Improvement bool    `json:"improvement"`

	MeanLoadedQDiff     float64 `json:"mean_loaded_q_diff"`
	MinFinesseDiff      float64 `json:"min_finesse_diff"`
	InsertionLossDiffDB float64 `json:"insertion_loss_diff_db"`
	CrosstalkDiff       int     `json:"crosstalk_diff"`
	FailedRingsDiff     int     `json:"failed_rings_diff"`
}

// Compare evaluates both variants under the objective and reports the
// deltas. Scores are normalized so that lower is better regardless of the
// objective direction.
func Compare(baseline, candidate *VariantResult, objective Objective) (*VariantComparison, error) {
	if baseline == nil {
		return nil, fmt.Errorf("baseline is nil")
	}
	if candidate == nil {
		return nil, fmt.Errorf("candidate is nil")
	}
	if objective == nil {
		return nil, fmt.Errorf("objective is nil")
	}

	baseScore, err := objective.Evaluate(baseline)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate baseline %s: %w", baseline.Variant, err)
	}
	candScore, err := objective.Evaluate(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate candidate %s: %w", candidate.Variant, err)
	}

	return &VariantComparison{
		Baseline:            baseline.Variant,
		Candidate:           candidate.Variant,
		ScoreDiff:           candScore - baseScore,
		Improvement:         candScore < baseScore,
		MeanLoadedQDiff:     candidate.MeanLoadedQ - baseline.MeanLoadedQ,
		MinFinesseDiff:      candidate.MinFinesse - baseline.MinFinesse,
		InsertionLossDiffDB: candidate.WorstInsertionLossDB - baseline.WorstInsertionLossDB,
		CrosstalkDiff:       candidate.CrosstalkPairs - baseline.CrosstalkPairs,
		FailedRingsDiff:     candidate.FailedRings - baseline.FailedRings,
	}, nil
}

// ImprovementPercentage reports how much better score2 is than score1, in
// percent of score1's magnitude. Scores follow the lower-is-better
// convention, so a positive return always means improvement.
func ImprovementPercentage(score1, score2 float64) float64 {
	if score1 == 0 {
		return 0
	}
	diff := score2 - score1
	return -(diff / math.Abs(score1)) * 100
}
