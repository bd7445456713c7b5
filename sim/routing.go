package sim

import (
	"fmt"
	"math"
	"strings"
)

// Sourcing policy tags.
const (
	SourcingNearestNeighbor      = "nearest-neighbor"
	SourcingCostMinimizer        = "cost-minimizer"
	SourcingReliabilityThreshold = "reliability-threshold"
	SourcingWeightedScore        = "weighted-score"
	SourcingLoyaltyBased         = "loyalty-based"
)

// SourcingDecision encapsulates which center a distributor buys from and why.
// A zero Supplier means no manufacturing center exists.
type SourcingDecision struct {
	Supplier   string             // Center ID to order from
	Policy     string             // Tag of the deciding policy
	Reason     string             // Human-readable explanation
	Distance   float64            // Miles to the chosen supplier
	TotalCost  float64            // Quoted total order price
	Fallback   bool               // Reliability filter removed every candidate
	Scores     map[string]float64 // Center ID -> score (weighted-score only)
	Reputation float64            // On-time rate used, when the policy reads it
}

// SourcingPolicy picks a supplier for an order of qty units.
// Implementations MUST NOT mutate the distributor, the graph or any center.
// Candidates are visited in graph insertion order and ties go to the first seen,
// so repeated calls on identical state return the same supplier.
type SourcingPolicy interface {
	Select(d *Node, g *Graph, qty int) SourcingDecision
}

// NearestNeighbor always buys from the geometrically closest center.
type NearestNeighbor struct{}

func (NearestNeighbor) Select(d *Node, g *Graph, qty int) SourcingDecision {
	center, dist, ok := g.NearestCenter(d)
	if !ok {
		return SourcingDecision{}
	}
	q := g.QuoteBetween(d, center, qty)
	return SourcingDecision{
		Supplier:  center.ID,
		Policy:    SourcingNearestNeighbor,
		Reason:    fmt.Sprintf("closest supplier (%.1f mi)", dist),
		Distance:  dist,
		TotalCost: q.TotalOrderPrice,
	}
}

// CostMinimizer buys from the center with the lowest total order price.
type CostMinimizer struct{}

func (CostMinimizer) Select(d *Node, g *Graph, qty int) SourcingDecision {
	var best *Node
	var bestQuote Quote
	for _, c := range g.NodesOfKind(KindCenter) {
		q := g.QuoteBetween(d, c, qty)
		if best == nil || q.TotalOrderPrice < bestQuote.TotalOrderPrice {
			best, bestQuote = c, q
		}
	}
	if best == nil {
		return SourcingDecision{}
	}
	return SourcingDecision{
		Supplier:  best.ID,
		Policy:    SourcingCostMinimizer,
		Reason:    fmt.Sprintf("lowest cost ($%.2f)", bestQuote.TotalOrderPrice),
		Distance:  bestQuote.DistanceMiles,
		TotalCost: bestQuote.TotalOrderPrice,
	}
}

// ReliabilityThreshold buys from the nearest center whose on-time rate meets
// MinOnTimeRate. Centers without history pass the filter. When nothing
// passes, it falls back to the global nearest and flags the fallback.
type ReliabilityThreshold struct {
	MinOnTimeRate float64
}

func (r *ReliabilityThreshold) Select(d *Node, g *Graph, qty int) SourcingDecision {
	var best *Node
	bestDist, bestRep := math.Inf(1), 0.0
	bestHasHistory := false
	for _, c := range g.NodesOfKind(KindCenter) {
		rep, seen := d.Reputation(c.ID)
		if seen && rep < r.MinOnTimeRate {
			continue
		}
		if dist := g.Distance(d, c); dist < bestDist {
			best, bestDist, bestRep, bestHasHistory = c, dist, rep, seen
		}
	}
	if best == nil {
		center, dist, ok := g.NearestCenter(d)
		if !ok {
			return SourcingDecision{}
		}
		q := g.QuoteBetween(d, center, qty)
		return SourcingDecision{
			Supplier:  center.ID,
			Policy:    SourcingReliabilityThreshold,
			Reason:    "no reliable suppliers, fallback to nearest",
			Distance:  dist,
			TotalCost: q.TotalOrderPrice,
			Fallback:  true,
		}
	}
	q := g.QuoteBetween(d, best, qty)
	history := "no history"
	if bestHasHistory {
		history = fmt.Sprintf("%.1f%%", bestRep*100)
	}
	return SourcingDecision{
		Supplier:   best.ID,
		Policy:     SourcingReliabilityThreshold,
		Reason:     fmt.Sprintf("reliable supplier (on-time: %s, threshold: %.1f%%)", history, r.MinOnTimeRate*100),
		Distance:   bestDist,
		TotalCost:  q.TotalOrderPrice,
		Reputation: bestRep,
	}
}

// WeightedScore combines normalized cost, normalized delivery time and
// reputation: score = wc*costScore + wd*deliveryScore + wr*reputation, then argmax.
// Cost and delivery are min-max normalized over the current candidates
// (best = 1, worst = 0). Centers without history use DefaultReputation.
type WeightedScore struct {
	CostWeight        float64
	DeliveryWeight    float64
	ReputationWeight  float64
	DefaultReputation float64
}

// NewWeightedScore re-normalizes the weights to sum to 1 when they are off
// by more than 0.01. All-zero weights fall back to equal weights.
func NewWeightedScore(cost, delivery, reputation, defaultReputation float64) *WeightedScore {
	total := cost + delivery + reputation
	if total <= 0 {
		cost, delivery, reputation, total = 1, 1, 1, 3
	}
	if math.Abs(total-1.0) > 0.01 {
		cost, delivery, reputation = cost/total, delivery/total, reputation/total
	}
	return &WeightedScore{CostWeight: cost, DeliveryWeight: delivery, ReputationWeight: reputation, DefaultReputation: defaultReputation}
}

func (w *WeightedScore) Select(d *Node, g *Graph, qty int) SourcingDecision {
	centers := g.NodesOfKind(KindCenter)
	if len(centers) == 0 {
		return SourcingDecision{}
	}
	quotes := make([]Quote, len(centers))
	minCost, maxCost := math.Inf(1), math.Inf(-1)
	minTime, maxTime := math.Inf(1), math.Inf(-1)
	for i, c := range centers {
		q := g.QuoteBetween(d, c, qty)
		quotes[i] = q
		minCost, maxCost = math.Min(minCost, q.TotalOrderPrice), math.Max(maxCost, q.TotalOrderPrice)
		minTime, maxTime = math.Min(minTime, q.DeliveryTimeHours), math.Max(maxTime, q.DeliveryTimeHours)
	}
	costRange := maxCost - minCost
	if costRange <= 0 {
		costRange = 1
	}
	timeRange := maxTime - minTime
	if timeRange <= 0 {
		timeRange = 1
	}

	scores := make(map[string]float64, len(centers))
	bestIdx, bestScore, bestRep := -1, math.Inf(-1), 0.0
	for i, c := range centers {
		rep, seen := d.Reputation(c.ID)
		if !seen {
			rep = w.DefaultReputation
		}
		costScore := 1.0 - (quotes[i].TotalOrderPrice-minCost)/costRange
		timeScore := 1.0 - (quotes[i].DeliveryTimeHours-minTime)/timeRange
		score := w.CostWeight*costScore + w.DeliveryWeight*timeScore + w.ReputationWeight*rep
		scores[c.ID] = score
		if score > bestScore {
			bestIdx, bestScore, bestRep = i, score, rep
		}
	}
	best := centers[bestIdx]
	return SourcingDecision{
		Supplier:   best.ID,
		Policy:     SourcingWeightedScore,
		Reason:     fmt.Sprintf("best weighted score (%.3f)", bestScore),
		Distance:   quotes[bestIdx].DistanceMiles,
		TotalCost:  quotes[bestIdx].TotalOrderPrice,
		Scores:     scores,
		Reputation: bestRep,
	}
}

// LoyaltyBased discounts the effective cost of centers that have delivered
// at least MinOrdersForLoyalty orders, then picks the minimum.
type LoyaltyBased struct {
	LoyaltyBonus        float64
	MinOrdersForLoyalty int
}

func (l *LoyaltyBased) Select(d *Node, g *Graph, qty int) SourcingDecision {
	var best *Node
	var bestQuote Quote
	bestEffective, bestLoyal := math.Inf(1), false
	for _, c := range g.NodesOfKind(KindCenter) {
		q := g.QuoteBetween(d, c, qty)
		effective, loyal := q.TotalOrderPrice, false
		if rel, ok := d.SupplierMetrics(c.ID); ok && rel.OrdersDelivered >= l.MinOrdersForLoyalty {
			effective *= 1 - l.LoyaltyBonus
			loyal = true
		}
		if effective < bestEffective {
			best, bestQuote, bestEffective, bestLoyal = c, q, effective, loyal
		}
	}
	if best == nil {
		return SourcingDecision{}
	}
	kind := "new supplier"
	if bestLoyal {
		kind = "loyal supplier"
	}
	return SourcingDecision{
		Supplier:  best.ID,
		Policy:    SourcingLoyaltyBased,
		Reason:    fmt.Sprintf("%s (effective cost: $%.2f)", kind, bestEffective),
		Distance:  bestQuote.DistanceMiles,
		TotalCost: bestQuote.TotalOrderPrice,
	}
}

// validSourcingPolicies maps sourcing tags to validity. Unexported to prevent mutation.
var validSourcingPolicies = map[string]bool{
	SourcingNearestNeighbor:      true,
	SourcingCostMinimizer:        true,
	SourcingReliabilityThreshold: true,
	SourcingWeightedScore:        true,
	SourcingLoyaltyBased:         true,
}

// legacySourcingTags accepts the class-style names older scenario files use.
var legacySourcingTags = map[string]string{
	"NearestNeighbor":                    SourcingNearestNeighbor,
	"NearestNeighborSourcingPolicy":      SourcingNearestNeighbor,
	"CostMinimizer":                      SourcingCostMinimizer,
	"CostMinimizerSourcingPolicy":        SourcingCostMinimizer,
	"ReliabilityThreshold":               SourcingReliabilityThreshold,
	"ReliabilityThresholdSourcingPolicy": SourcingReliabilityThreshold,
	"WeightedScore":                      SourcingWeightedScore,
	"WeightedScoreSourcingPolicy":        SourcingWeightedScore,
	"LoyaltyBased":                       SourcingLoyaltyBased,
	"LoyaltyBasedSourcingPolicy":         SourcingLoyaltyBased,
}

// canonicalSourcingTag accepts snake_case spellings (nearest_neighbor) and
// the class-style names in legacySourcingTags.
func canonicalSourcingTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if t, ok := legacySourcingTags[tag]; ok {
		return t
	}
	return strings.ReplaceAll(strings.ToLower(tag), "_", "-")
}

// IsValidSourcingPolicy returns true if tag names a known sourcing policy.
// Empty string is valid and means nearest-neighbor.
func IsValidSourcingPolicy(tag string) bool {
	return tag == "" || validSourcingPolicies[canonicalSourcingTag(tag)]
}

// ValidSourcingPolicyNames returns the sorted list of sourcing tags.
func ValidSourcingPolicyNames() []string {
	return sortedKeys(validSourcingPolicies)
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// NewSourcingPolicy creates a sourcing policy from configuration.
// A nil config or empty type defaults to nearest-neighbor.
func NewSourcingPolicy(cfg *SourcingConfig) (SourcingPolicy, error) {
	if cfg == nil || cfg.Type == "" {
		return NearestNeighbor{}, nil
	}
	p := cfg.Params
	switch canonicalSourcingTag(cfg.Type) {
	case SourcingNearestNeighbor:
		return NearestNeighbor{}, nil
	case SourcingCostMinimizer:
		return CostMinimizer{}, nil
	case SourcingReliabilityThreshold:
		return &ReliabilityThreshold{MinOnTimeRate: floatOr(p.MinOnTimeRate, 0.80)}, nil
	case SourcingWeightedScore:
		return NewWeightedScore(
			floatOr(p.CostWeight, 0.4),
			floatOr(p.DeliveryWeight, 0.3),
			floatOr(p.ReputationWeight, 0.3),
			floatOr(p.DefaultReputation, 0.5),
		), nil
	case SourcingLoyaltyBased:
		minOrders := 3
		if p.MinOrdersForLoyalty != nil {
			minOrders = *p.MinOrdersForLoyalty
		}
		return &LoyaltyBased{LoyaltyBonus: floatOr(p.LoyaltyBonus, 0.2), MinOrdersForLoyalty: minOrders}, nil
	default:
		return nil, fmt.Errorf("unknown sourcing policy %q (valid: %v): %w", cfg.Type, ValidSourcingPolicyNames(), ErrInvalidConfig)
	}
}
