// Package drc checks built layouts against the design rules a foundry run
// would enforce: ring-to-ring clearance, the chip outline, the golden radius
// progression, and splitter power conservation. Rules run after generation
// and before any mask is written; the first violation aborts the run.
package drc

import (
	"github.com/lumen-phi/photonic-core/internal/geometry"
	"github.com/lumen-phi/photonic-core/pkg/config"
)

// Rule is a single design rule evaluated against a built layout
type Rule interface {
	// Name returns the rule name for identification
	Name() string
	// Check returns a LayoutError describing the first violation found
	Check(layout *geometry.Layout, cfg *config.ChipConfig) error
}

// Checker runs a rule set against a layout in registration order
type Checker struct {
	rules []Rule
}

// NewChecker creates a checker with the standard rule set.
func NewChecker() *Checker {
	return &Checker{
		rules: []Rule{
			&SpacingRule{},
			&BoundsRule{},
			&ProgressionRule{},
			&SplitRule{},
		},
	}
}

// AddRule appends a rule to the set.
func (c *Checker) AddRule(r Rule) {
	c.rules = append(c.rules, r)
}

// Rules returns the registered rule names in evaluation order.
func (c *Checker) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}

// Check evaluates every rule and returns the first violation.
func (c *Checker) Check(layout *geometry.Layout, cfg *config.ChipConfig) error {
	for _, rule := range c.rules {
		if err := rule.Check(layout, cfg); err != nil {
			return err
		}
	}
	return nil
}
