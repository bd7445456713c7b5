package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Fixed points used across tests. Chicago and Pittsburgh are ~410 miles
// apart on the flat-earth metric; Indianapolis sits closest to Chicago.
var (
	locChicago      = Location{Lat: 41.8781, Lon: -87.6298, City: "Chicago", State: "IL"}
	locPittsburgh   = Location{Lat: 40.4406, Lon: -79.9959, City: "Pittsburgh", State: "PA"}
	locIndianapolis = Location{Lat: 39.7684, Lon: -86.1581, City: "Indianapolis", State: "IN"}
	locBoston       = Location{Lat: 42.3601, Lon: -71.0589, City: "Boston", State: "MA"}
)

// stubGeocoder resolves only the cities it is given.
type stubGeocoder map[string]Location

func (s stubGeocoder) Geocode(city, state string) (float64, float64, bool) {
	loc, ok := s[city+","+state]
	return loc.Lat, loc.Lon, ok
}

// centerProps returns the default center template with the given rate and
// inventory and an effectively unlimited max rate.
func centerProps(rate, inventory float64) NodeProperties {
	p := DefaultTemplates()[KindCenter].Clone()
	p.InitialProductionRate = rate
	p.InitialInventory = inventory
	p.MaxProductionRate = 1000
	return p
}

// distributorProps returns the default distributor template that orders
// with probability prob every day.
func distributorProps(prob float64) NodeProperties {
	p := DefaultTemplates()[KindDistributor].Clone()
	for _, day := range Weekdays {
		p.OrderProbability[day] = prob
	}
	return p
}

func mustNode(t *testing.T, id string, kind NodeKind, loc Location, props NodeProperties) *Node {
	t.Helper()
	n, err := NewNode(id, kind, id, loc, props)
	require.NoError(t, err)
	return n
}

func mustAdd(t *testing.T, g *Graph, n *Node) *Node {
	t.Helper()
	_, err := g.AddNode(n)
	require.NoError(t, err)
	return n
}

// newTestEnv wraps g in an Env with a fresh clock.
func newTestEnv(g *Graph, seed int64) *Env {
	return &Env{
		Clock:  NewClock(),
		Graph:  g,
		RNG:    NewPartitionedRNG(NewSimulationKey(seed)),
		Orders: &OrderSequence{},
		Costs:  g.Costs(),
	}
}

// newTestCycle builds a Cycle bound to a standalone process on env's clock.
func newTestCycle(env *Env, n *Node, time float64) *Cycle {
	return &Cycle{
		Node:   n,
		Graph:  env.Graph,
		Policy: &StaticPolicy{},
		Params: BehaviorParams{Time: time},
		env:    env,
		proc:   newProcess("test", env.Clock),
	}
}

// queueOrder places a pending order of qty units from d on center c at now.
func queueOrder(env *Env, d, c *Node, qty int) *Order {
	now := env.Clock.Now()
	o := NewOrder(env.Orders.Next(), d.ID, qty, now)
	o.Route(c.ID, env.Graph.QuoteBetween(d, c, qty))
	d.RecordOrderPlacement(c.ID, o, now)
	c.Center.PendingOrders = append(c.Center.PendingOrders, o)
	return o
}

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	NopObserver
	placed, shipped, delivered, missed, batches, rates, inserted int
	decisions                                                   []SourcingDecision
}

func (r *recordingObserver) OrderPlaced(_ *Node, _ *Order, d SourcingDecision) {
	r.placed++
	r.decisions = append(r.decisions, d)
}
func (r *recordingObserver) OrderShipped(*Node, *Order, float64)   { r.shipped++ }
func (r *recordingObserver) OrderDelivered(*Node, *Order)          { r.delivered++ }
func (r *recordingObserver) OrderMissed(*Node, *Order)             { r.missed++ }
func (r *recordingObserver) BatchProduced(*Node, float64, float64) { r.batches++ }
func (r *recordingObserver) RateChanged(*Node, float64)            { r.rates++ }
func (r *recordingObserver) NodeInserted(*Node, int)               { r.inserted++ }
