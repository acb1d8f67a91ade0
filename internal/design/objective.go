// Package design compares coupling variants of a ring bank over identical
// geometry: the conventional half split, the golden 1/φ² split, and the
// φ-nested recursive split. Each variant is solved with imposed couplings
// and scored by a pluggable objective.
package design

// Objective scores a solved variant. Lower scores are better; maximization
// objectives negate their figure of merit.
type Objective interface {
	// Evaluate computes the objective value from a variant result.
	Evaluate(result *VariantResult) (float64, error)

	// Name returns the name of the objective.
	Name() string

	// Direction returns whether we're minimizing (true) or maximizing (false).
	Direction() bool
}

// ObjectiveType names a built-in objective
type ObjectiveType string

const (
	// ObjectiveMeanLoadedQ maximizes the mean loaded quality factor
	ObjectiveMeanLoadedQ ObjectiveType = "mean_loaded_q"
	// ObjectiveWorstInsertionLoss minimizes the worst bus insertion loss
	ObjectiveWorstInsertionLoss ObjectiveType = "worst_insertion_loss_db"
	// ObjectiveMinFinesse maximizes the weakest ring's finesse
	ObjectiveMinFinesse ObjectiveType = "min_finesse"
	// ObjectiveCrosstalkPairs minimizes the number of crosstalk pairs
	ObjectiveCrosstalkPairs ObjectiveType = "crosstalk_pairs"
)

// failedVariantPenalty keeps a variant with no healthy rings out of the
// running without aborting the study.
const failedVariantPenalty = 1e9

// NewObjective creates an objective from a type string
func NewObjective(objType string) (Objective, error) {
	switch ObjectiveType(objType) {
	case ObjectiveMeanLoadedQ:
		return &MeanLoadedQObjective{}, nil
	case ObjectiveWorstInsertionLoss:
		return &InsertionLossObjective{}, nil
	case ObjectiveMinFinesse:
		return &MinFinesseObjective{}, nil
	case ObjectiveCrosstalkPairs:
		return &CrosstalkObjective{}, nil
	default:
		return nil, &UnknownObjectiveError{ObjectiveType: objType}
	}
}

// MeanLoadedQObjective maximizes the mean loaded Q across healthy rings
type MeanLoadedQObjective struct{}

func (o *MeanLoadedQObjective) Name() string {
	return string(ObjectiveMeanLoadedQ)
}

func (o *MeanLoadedQObjective) Direction() bool {
	return false // maximize
}

func (o *MeanLoadedQObjective) Evaluate(result *VariantResult) (float64, error) {
	if result == nil {
		return 0, &InvalidResultError{Reason: "result is nil"}
	}
	if result.MeanLoadedQ <= 0 {
		return failedVariantPenalty, nil
	}
	// For maximization, return negative so that lower is better.
	return -result.MeanLoadedQ, nil
}

// InsertionLossObjective minimizes the worst-case bus insertion loss
type InsertionLossObjective struct{}

func (o *InsertionLossObjective) Name() string {
	return string(ObjectiveWorstInsertionLoss)
}

func (o *InsertionLossObjective) Direction() bool {
	return true // minimize
}

func (o *InsertionLossObjective) Evaluate(result *VariantResult) (float64, error) {
	if result == nil {
		return 0, &InvalidResultError{Reason: "result is nil"}
	}
	if result.FailedRings == len(result.Rings) {
		return failedVariantPenalty, nil
	}
	return result.WorstInsertionLossDB, nil
}

// MinFinesseObjective maximizes the weakest ring's finesse
type MinFinesseObjective struct{}

func (o *MinFinesseObjective) Name() string {
	return string(ObjectiveMinFinesse)
}

func (o *MinFinesseObjective) Direction() bool {
	return false // maximize
}

func (o *MinFinesseObjective) Evaluate(result *VariantResult) (float64, error) {
	if result == nil {
		return 0, &InvalidResultError{Reason: "result is nil"}
	}
	if result.MinFinesse <= 0 {
		return failedVariantPenalty, nil
	}
	return -result.MinFinesse, nil
}

// CrosstalkObjective minimizes the count of spectrally colliding ring pairs
type CrosstalkObjective struct{}

func (o *CrosstalkObjective) Name() string {
	return string(ObjectiveCrosstalkPairs)
}

func (o *CrosstalkObjective) Direction() bool {
	return true // minimize
}

func (o *CrosstalkObjective) Evaluate(result *VariantResult) (float64, error) {
	if result == nil {
		return 0, &InvalidResultError{Reason: "result is nil"}
	}
	return float64(result.CrosstalkPairs), nil
}

// UnknownObjectiveError indicates an unknown objective type
type UnknownObjectiveError struct {
	ObjectiveType string
}

func (e *UnknownObjectiveError) Error() string {
	return "unknown objective type: " + e.ObjectiveType
}

// InvalidResultError indicates a variant result unfit for evaluation
type InvalidResultError struct {
	Reason string
}

func (e *InvalidResultError) Error() string {
	return "invalid variant result: " + e.Reason
}
