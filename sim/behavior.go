package sim

import (
	"fmt"
)

// DefaultIdleIntervalHours is the wait a loop takes when a cycle consumed
// no simulated time and its policy asked for a zero interval.
const DefaultIdleIntervalHours = 0.1

// Env is everything a running node may touch outside its own state.
// It is passed to Node.Start explicitly; nodes keep no pointer to the Graph.
type Env struct {
	Clock        *Clock
	Graph        *Graph
	RNG          *PartitionedRNG
	Orders       *OrderSequence
	Costs        CostTable
	Observer     Observer
	IdleInterval float64 // hours, > 0
	StartWeekday int     // 0 = monday
}

func (e *Env) idleInterval() float64 {
	if e.IdleInterval > 0 {
		return e.IdleInterval
	}
	return DefaultIdleIntervalHours
}

func (e *Env) observer() Observer {
	if e.Observer == nil {
		return NopObserver{}
	}
	return e.Observer
}

// Weekday returns the calendar day index (0 = monday) at simulated time now.
// Days are 24 hours and weeks are 7 days.
func (e *Env) Weekday(now float64) int {
	return ((e.StartWeekday+int(now/24))%7 + 7) % 7
}

// Observer receives domain events as they happen. Implementations must not
// mutate the nodes or orders they are handed.
type Observer interface {
	OrderPlaced(distributor *Node, o *Order, d SourcingDecision)
	OrderShipped(center *Node, o *Order, wait float64)
	OrderDelivered(center *Node, o *Order)
	OrderMissed(center *Node, o *Order)
	BatchProduced(center *Node, units, cost float64)
	RateChanged(center *Node, rate float64)
	NodeInserted(n *Node, edges int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OrderPlaced(*Node, *Order, SourcingDecision) {}
func (NopObserver) OrderShipped(*Node, *Order, float64)         {}
func (NopObserver) OrderDelivered(*Node, *Order)                {}
func (NopObserver) OrderMissed(*Node, *Order)                   {}
func (NopObserver) BatchProduced(*Node, float64, float64)       {}
func (NopObserver) RateChanged(*Node, float64)                  {}
func (NopObserver) NodeInserted(*Node, int)                     {}

// Cycle is the context of one behavior invocation: the owning node, the
// resolved resource, the bound policy and the adapted parameters.
// Behaviors suspend only through Wait.
type Cycle struct {
	Node   *Node
	Graph  *Graph // nil unless the binding asked for the graph resource
	Policy LoopPolicy
	Params BehaviorParams

	env  *Env
	proc *Process
}

// Now returns the current simulated time.
func (c *Cycle) Now() float64 { return c.env.Clock.Now() }

// Wait suspends the cycle for d hours and then runs then.
func (c *Cycle) Wait(d float64, then func()) { c.proc.Wait(d, then) }

// Behavior is one cycle of domain logic. It must call done exactly once,
// after at least one Wait, unless the process is stopped first.
type Behavior func(c *Cycle, done func())

type behaviorSpec struct {
	fn            Behavior
	needsGraph    bool
	needsSourcing bool
}

// behaviorRegistry is the closed set of behavior tags. Unexported to prevent mutation.
var behaviorRegistry = map[string]behaviorSpec{
	BehaviorProduceBatch:      {fn: produceBatch},
	BehaviorFulfillOrders:     {fn: checkAndFulfillOrders},
	BehaviorProcessDeliveries: {fn: processDeliveries, needsGraph: true},
	BehaviorGenerateOrder:     {fn: checkAndGenerateOrder, needsGraph: true, needsSourcing: true},
}

// behaviorAliases keeps older function names working.
var behaviorAliases = map[string]string{
	"continuous_production":  BehaviorProduceBatch,
	"process_pending_orders": BehaviorFulfillOrders,
	"generate_orders":        BehaviorGenerateOrder,
}

// IsValidBehavior returns true if name (or an alias) is a registered behavior.
func IsValidBehavior(name string) bool {
	_, err := lookupBehavior(name)
	return err == nil
}

// ValidBehaviorNames returns the sorted list of canonical behavior tags.
func ValidBehaviorNames() []string {
	names := make(map[string]bool, len(behaviorRegistry))
	for k := range behaviorRegistry {
		names[k] = true
	}
	return sortedKeys(names)
}

func lookupBehavior(name string) (behaviorSpec, error) {
	if canon, ok := behaviorAliases[name]; ok {
		name = canon
	}
	spec, ok := behaviorRegistry[name]
	if !ok {
		return behaviorSpec{}, fmt.Errorf("unknown behavior function %q (valid: %v): %w", name, ValidBehaviorNames(), ErrInvalidConfig)
	}
	return spec, nil
}
