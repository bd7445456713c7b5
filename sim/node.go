package sim

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// binding is one configured behavior, compiled once at node construction.
// A non-nil err marks a mis-wired behavior that Start reports and skips.
type binding struct {
	cfg    BehaviorConfig
	spec   behaviorSpec
	policy PolicyConfig
	err    error
}

// Node is a resource node: a manufacturing center or a distributor.
// Exactly one of Center / Distributor is non-nil, matching Kind.
//
// Thread-safety: NOT thread-safe. Nodes are only touched from the goroutine
// driving the Clock.
type Node struct {
	ID       string
	Kind     NodeKind
	Name     string
	Location Location
	Props    NodeProperties

	Center      *CenterState
	Distributor *DistributorState

	sourcing SourcingPolicy
	bindings []binding
	active   []*Process
	oneShots []*Process
}

// NewNode builds a node with canonical initial state. props must already be
// a private copy (see NodeProperties.Clone); range errors in props are
// returned, wiring errors are deferred to Start.
func NewNode(id string, kind NodeKind, name string, loc Location, props NodeProperties) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("node id is required: %w", ErrInvalidConfig)
	}
	if kind != KindCenter && kind != KindDistributor {
		return nil, fmt.Errorf("node %s: unknown type %q: %w", id, kind, ErrWrongNodeType)
	}
	if err := validate.Struct(loc); err != nil {
		return nil, fmt.Errorf("node %s: %w", id, formatValidationError("location", err))
	}
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}
	if name == "" {
		name = id
	}
	n := &Node{ID: id, Kind: kind, Name: name, Location: loc, Props: props}
	sourcing, sourcingErr := NewSourcingPolicy(props.SourcingPolicy)
	n.sourcing = sourcing
	n.bindings = compileBindings(props, sourcingErr)
	n.ResetState()
	return n, nil
}

func compileBindings(props NodeProperties, sourcingErr error) []binding {
	out := make([]binding, 0, len(props.Behaviors))
	for _, cfg := range props.Behaviors {
		b := binding{cfg: cfg}
		spec, err := lookupBehavior(cfg.Function)
		switch {
		case err != nil:
			b.err = err
		case cfg.PolicyRef == "":
			b.err = fmt.Errorf("behavior %q has no policy_ref: %w", cfg.Name, ErrInvalidConfig)
		default:
			pc, ok := props.Policies[cfg.PolicyRef]
			if !ok {
				b.err = fmt.Errorf("policy %q not found for behavior %q: %w", cfg.PolicyRef, cfg.Name, ErrInvalidConfig)
			} else if !IsValidLoopPolicy(pc.Type) {
				_, b.err = NewLoopPolicy(pc)
			} else if spec.needsGraph && cfg.Resource != ResourceGraph {
				b.err = fmt.Errorf("behavior %q needs resource %q: %w", cfg.Name, ResourceGraph, ErrInvalidConfig)
			} else if spec.needsSourcing && sourcingErr != nil {
				b.err = sourcingErr
			}
			b.policy = pc
		}
		b.spec = spec
		out = append(out, b)
	}
	return out
}

// ConfigErrors returns the wiring errors of this node's auto-start behaviors.
func (n *Node) ConfigErrors() []error {
	var errs []error
	for _, b := range n.bindings {
		if b.cfg.AutoStart && b.err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", n.ID, b.err))
		}
	}
	return errs
}

// Start launches one policy-driven loop per auto-start behavior. It is a
// no-op if loops are already active. Mis-wired behaviors are logged and
// skipped; the rest still start. Returns the number of loops started.
func (n *Node) Start(env *Env) int {
	if len(n.active) > 0 {
		return 0
	}
	started := 0
	for _, b := range n.bindings {
		if !b.cfg.AutoStart {
			continue
		}
		if b.err != nil {
			logrus.Warnf("[t=%9.3fh] %s: skipping behavior %q: %v", env.Clock.Now(), n.ID, b.cfg.Name, b.err)
			continue
		}
		pol, err := NewLoopPolicy(b.policy)
		if err != nil {
			logrus.Warnf("[t=%9.3fh] %s: skipping behavior %q: %v", env.Clock.Now(), n.ID, b.cfg.Name, err)
			continue
		}
		p := newProcess(b.cfg.Name, env.Clock)
		p.onExit = n.release
		n.active = append(n.active, p)
		n.runLoop(env, p, b, pol)
		started++
		logrus.Debugf("[t=%9.3fh] %s: started %s (%s, %s)", env.Clock.Now(), n.ID, b.cfg.Name, b.cfg.Function, b.policy.Type)
	}
	return started
}

// runLoop drives: ShouldContinue -> one behavior cycle -> wait NextInterval.
// Every iteration suspends at least once and never waits zero time twice in
// a row without work: a cycle that consumed no time with a zero interval
// waits the idle interval instead.
func (n *Node) runLoop(env *Env, p *Process, b binding, pol LoopPolicy) {
	var graph *Graph
	if b.cfg.Resource == ResourceGraph {
		graph = env.Graph
	}
	defaults := BehaviorParams{Time: b.cfg.Time}

	var iterate func()
	iterate = func() {
		if !pol.ShouldContinue(n) {
			p.finish()
			return
		}
		begin := env.Clock.Now()
		c := &Cycle{Node: n, Graph: graph, Policy: pol, Params: pol.Parameters(n, defaults), env: env, proc: p}
		b.spec.fn(c, func() {
			interval := max(pol.NextInterval(n), 0)
			if interval == 0 && env.Clock.Now() == begin {
				interval = env.idleInterval()
			}
			p.Wait(interval, iterate)
		})
	}
	p.Wait(0, iterate)
}

func (n *Node) release(p *Process) {
	if i := slices.Index(n.active, p); i >= 0 {
		n.active = slices.Delete(n.active, i, i+1)
	}
}

// Stop cancels every active loop and clears the registry. Side effects
// already committed stay. Safe on a node with nothing running.
func (n *Node) Stop() {
	for _, p := range n.active {
		p.Stop()
	}
	for _, p := range n.oneShots {
		p.Stop()
	}
	n.active = nil
	n.oneShots = nil
}

// runOnce executes a single behavior-like routine outside the policy loop,
// e.g. an administrative rate change. It is cancelled by Stop like any loop.
func (n *Node) runOnce(env *Env, name string, fn Behavior) {
	p := newProcess(name, env.Clock)
	p.onExit = func(p *Process) {
		if i := slices.Index(n.oneShots, p); i >= 0 {
			n.oneShots = slices.Delete(n.oneShots, i, i+1)
		}
	}
	n.oneShots = append(n.oneShots, p)
	c := &Cycle{Node: n, Graph: env.Graph, Policy: &StaticPolicy{ran: true}, env: env, proc: p}
	fn(c, p.finish)
}

// Running reports whether any loop is active.
func (n *Node) Running() bool {
	return len(n.active) > 0
}

// ActiveBehaviors returns the names of the running loops in start order.
func (n *Node) ActiveBehaviors() []string {
	names := make([]string, 0, len(n.active))
	for _, p := range n.active {
		names = append(names, p.Name())
	}
	return names
}

// ResetState restores the canonical initial state for the node's kind.
// It does not touch running loops: callers must Stop first.
func (n *Node) ResetState() {
	n.Center, n.Distributor = nil, nil
	switch n.Kind {
	case KindCenter:
		n.Center = newCenterState(n.Props)
	case KindDistributor:
		n.Distributor = newDistributorState()
	}
}

// RecordOrderPlacement tracks an order this distributor placed with supplierID.
func (n *Node) RecordOrderPlacement(supplierID string, o *Order, now float64) {
	if n.Distributor == nil {
		return
	}
	n.Distributor.recordPlacement(supplierID, o, now)
}

// RecordOrderDelivery updates the supplier aggregate for a delivered order.
// Returns false (and changes nothing) if the order was already recorded or
// was never placed by this distributor.
func (n *Node) RecordOrderDelivery(o *Order, now float64) bool {
	if n.Distributor == nil {
		return false
	}
	return n.Distributor.recordDelivery(o, now)
}

// RecordOrderMissed notes that the supplier gave up on o.
func (n *Node) RecordOrderMissed(o *Order) bool {
	if n.Distributor == nil {
		return false
	}
	return n.Distributor.recordMissed(o)
}

// Reputation returns the on-time rate for supplierID, and false when this
// distributor has no history with it.
func (n *Node) Reputation(supplierID string) (float64, bool) {
	rel, ok := n.SupplierMetrics(supplierID)
	if !ok {
		return 0, false
	}
	return rel.OnTimeRate, true
}

// SupplierMetrics returns a copy of the relationship aggregate for supplierID.
func (n *Node) SupplierMetrics(supplierID string) (SupplierRelationship, bool) {
	if n.Distributor == nil {
		return SupplierRelationship{}, false
	}
	rel, ok := n.Distributor.SupplierRelationships[supplierID]
	if !ok {
		return SupplierRelationship{}, false
	}
	return *rel, true
}

// This method returns a human-readable string representation of a Node.
func (n *Node) String() string {
	return fmt.Sprintf("%s %q (%s)", n.Kind, n.Name, n.ID)
}
