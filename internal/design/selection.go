package design

import (
	"fmt"
	"math"
)

// SelectionStrategy picks a winner from the evaluated variants
type SelectionStrategy interface {
	// SelectBest chooses the best variant from a list of results
	SelectBest(results []*VariantResult, objective Objective) (*VariantResult, error)
	// Name returns the name of the selection strategy
	Name() string
}

// scoreEpsilon is the tolerance below which two scores count as equal.
const scoreEpsilon = 1e-4

// BestScoreStrategy selects the variant with the best (lowest) score
type BestScoreStrategy struct{}

func (s *BestScoreStrategy) Name() string {
	return "best_score"
}

func (s *BestScoreStrategy) SelectBest(results []*VariantResult, objective Objective) (*VariantResult, error) {
	evaluated, err := evaluatedOnly(results, objective)
	if err != nil {
		return nil, err
	}

	best := evaluated[0]
	for i := 1; i < len(evaluated); i++ {
		if evaluated[i].Score < best.Score {
			best = evaluated[i]
		}
	}
	return best, nil
}

// ParetoStrategy selects among variants not dominated in any objective.
// The primary objective is already folded into each result's score; the
// secondary objectives break the Pareto front down further.
type ParetoStrategy struct {
	secondary []Objective
}

// NewParetoStrategy creates a Pareto selection strategy with the given
// secondary objectives.
func NewParetoStrategy(secondary []Objective) *ParetoStrategy {
	return &ParetoStrategy{secondary: secondary}
}

func (s *ParetoStrategy) Name() string {
	return "pareto"
}

func (s *ParetoStrategy) SelectBest(results []*VariantResult, objective Objective) (*VariantResult, error) {
	evaluated, err := evaluatedOnly(results, objective)
	if err != nil {
		return nil, err
	}

	front := paretoFront(evaluated, s.secondary)
	if len(front) == 0 {
		fallback := &BestScoreStrategy{}
		return fallback.SelectBest(results, objective)
	}

	// Tie-break the front on the primary score.
	best := front[0]
	for i := 1; i < len(front); i++ {
		if front[i].Score < best.Score {
			best = front[i]
		}
	}
	return best, nil
}

// evaluatedOnly filters to scored results, erroring when nothing remains
func evaluatedOnly(results []*VariantResult, objective Objective) ([]*VariantResult, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no variants provided")
	}
	if objective == nil {
		return nil, fmt.Errorf("objective is required")
	}

	evaluated := make([]*VariantResult, 0, len(results))
	for _, r := range results {
		if r.Evaluated {
			evaluated = append(evaluated, r)
		}
	}
	if len(evaluated) == 0 {
		return nil, fmt.Errorf("no evaluated variants")
	}
	return evaluated, nil
}

// paretoFront returns the variants not dominated by any other
func paretoFront(results []*VariantResult, secondary []Objective) []*VariantResult {
	front := make([]*VariantResult, 0, len(results))
	for _, candidate := range results {
		dominated := false
		for _, other := range results {
			if candidate == other {
				continue
			}
			if dominates(other, candidate, secondary) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, candidate)
		}
	}
	return front
}

// dominates reports whether a is better-or-equal to b in every objective and
// strictly better in at least one. The primary objective is carried by the
// stored scores.
func dominates(a, b *VariantResult, secondary []Objective) bool {
	primaryBetter := a.Score < b.Score-scoreEpsilon
	primaryEqual := math.Abs(a.Score-b.Score) <= scoreEpsilon
	if !primaryBetter && !primaryEqual {
		return false
	}

	allBetterOrEqual := true
	atLeastOneBetter := primaryBetter

	for _, obj := range secondary {
		scoreA, errA := obj.Evaluate(a)
		scoreB, errB := obj.Evaluate(b)
		if errA != nil || errB != nil {
			continue
		}

		better := scoreA < scoreB-scoreEpsilon
		equal := math.Abs(scoreA-scoreB) <= scoreEpsilon
		if !better && !equal {
			return false
		}
		allBetterOrEqual = allBetterOrEqual && (better || equal)
		atLeastOneBetter = atLeastOneBetter || better
	}

	return allBetterOrEqual && atLeastOneBetter
}
