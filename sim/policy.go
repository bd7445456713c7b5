package sim

import (
	"fmt"
	"maps"
	"slices"
)

// BehaviorParams are the per-cycle parameters a policy may adapt before a
// behavior runs.
type BehaviorParams struct {
	Time float64 // hours per unit of work (production cycle, per-order fulfilment, ...)
}

// LoopPolicy decides whether, when and how a behavior repeats on one node.
// One instance is bound per (node, behavior) each time the node starts, so
// implementations may keep state without it leaking across nodes.
type LoopPolicy interface {
	// ShouldContinue is asked before every cycle. Returning false ends the loop.
	ShouldContinue(n *Node) bool
	// NextInterval is the wait in hours after a cycle. Negative values are floored at 0.
	NextInterval(n *Node) float64
	// Parameters may adjust the binding's defaults for the next cycle.
	Parameters(n *Node, defaults BehaviorParams) BehaviorParams
}

// ContinuousPolicy repeats forever with a fixed interval between cycles.
// The production, fulfilment and generation tags all map to it and differ only
// in their configured interval.
type ContinuousPolicy struct {
	Tag      string
	Interval float64
}

func (c *ContinuousPolicy) ShouldContinue(_ *Node) bool { return true }

func (c *ContinuousPolicy) NextInterval(_ *Node) float64 { return c.Interval }

func (c *ContinuousPolicy) Parameters(_ *Node, defaults BehaviorParams) BehaviorParams {
	return defaults
}

// StaticPolicy runs its behavior exactly once and then ends the loop.
type StaticPolicy struct {
	ran bool
}

func (s *StaticPolicy) ShouldContinue(_ *Node) bool {
	if s.ran {
		return false
	}
	s.ran = true
	return true
}

func (s *StaticPolicy) NextInterval(_ *Node) float64 { return 0 }

func (s *StaticPolicy) Parameters(_ *Node, defaults BehaviorParams) BehaviorParams {
	return defaults
}

// validLoopPolicies maps policy tags to validity. Unexported to prevent mutation.
var validLoopPolicies = map[string]bool{
	PolicyContinuousProduction:  true,
	PolicyContinuousFulfillment: true,
	PolicyContinuousGeneration:  true,
	PolicyStatic:                true,
}

// legacyPolicyTags accepts the class-style names older scenario files use.
var legacyPolicyTags = map[string]string{
	"ContinuousProductionPolicy":       PolicyContinuousProduction,
	"ContinuousOrderFulfillmentPolicy": PolicyContinuousFulfillment,
	"ContinuousOrderGenerationPolicy":  PolicyContinuousGeneration,
	"StaticPolicy":                     PolicyStatic,
}

// CanonicalPolicyTag resolves legacy names to the kebab-case tag.
func CanonicalPolicyTag(tag string) string {
	if t, ok := legacyPolicyTags[tag]; ok {
		return t
	}
	return tag
}

// IsValidLoopPolicy returns true if tag names a known loop policy.
func IsValidLoopPolicy(tag string) bool {
	return validLoopPolicies[CanonicalPolicyTag(tag)]
}

// ValidLoopPolicyNames returns the sorted list of loop policy tags.
func ValidLoopPolicyNames() []string {
	return sortedKeys(validLoopPolicies)
}

// NewLoopPolicy creates a fresh policy instance for cfg.
func NewLoopPolicy(cfg PolicyConfig) (LoopPolicy, error) {
	tag := CanonicalPolicyTag(cfg.Type)
	switch tag {
	case PolicyContinuousProduction, PolicyContinuousFulfillment, PolicyContinuousGeneration:
		return &ContinuousPolicy{Tag: tag, Interval: cfg.Interval}, nil
	case PolicyStatic:
		return &StaticPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown policy type %q (valid: %v): %w", cfg.Type, ValidLoopPolicyNames(), ErrInvalidConfig)
	}
}

func sortedKeys(m map[string]bool) []string {
	return slices.Sorted(maps.Keys(m))
}
