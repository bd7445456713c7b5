package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrder_CertainDemandPlacesOrder(t *testing.T) {
	// GIVEN a distributor that always orders, nearer to Chicago than Pittsburgh
	g := NewGraph(DefaultCostTable())
	chicago := mustAdd(t, g, mustNode(t, "chicago", KindCenter, locChicago, centerProps(0, 0)))
	pittsburgh := mustAdd(t, g, mustNode(t, "pittsburgh", KindCenter, locPittsburgh, centerProps(0, 0)))
	d := mustAdd(t, g, mustNode(t, "indy", KindDistributor, locIndianapolis, distributorProps(1)))
	env := newTestEnv(g, 42)
	obs := &recordingObserver{}
	env.Observer = obs

	// WHEN one demand check runs
	done := false
	checkAndGenerateOrder(newTestCycle(env, d, 1), func() { done = true })
	env.Clock.RunUntil(1)

	// THEN one order lands on the nearest center at the end of the cycle
	require.True(t, done)
	require.Len(t, chicago.Center.PendingOrders, 1)
	assert.Empty(t, pittsburgh.Center.PendingOrders)
	o := chicago.Center.PendingOrders[0]
	assert.Equal(t, "ORD-00001", o.ID)
	assert.Equal(t, 1.0, o.PlacementTime)
	assert.Equal(t, "chicago", o.AssignedCenterID)
	assert.GreaterOrEqual(t, o.Quantity, 1)
	assert.Equal(t, g.QuoteBetween(d, chicago, o.Quantity), o.Pricing)

	assert.Equal(t, 1, d.Distributor.OrdersPlaced)
	assert.Equal(t, o.Quantity, d.Distributor.TotalOrderQuantity)
	assert.Equal(t, []*Order{o}, d.Distributor.InFlight)
	rel, ok := d.SupplierMetrics("chicago")
	require.True(t, ok)
	assert.Equal(t, 1, rel.OrdersPlaced)
	assert.Equal(t, 1, obs.placed)
	assert.Equal(t, SourcingNearestNeighbor, obs.decisions[0].Policy)
}

func TestGenerateOrder_ZeroProbabilityNeverOrders(t *testing.T) {
	g := NewGraph(DefaultCostTable())
	c := mustAdd(t, g, mustNode(t, "c", KindCenter, locChicago, centerProps(0, 0)))
	d := mustAdd(t, g, mustNode(t, "d", KindDistributor, locIndianapolis, distributorProps(0)))
	env := newTestEnv(g, 42)

	for i := 0; i < 50; i++ {
		checkAndGenerateOrder(newTestCycle(env, d, 1), func() {})
		env.Clock.RunUntil(float64(i + 1))
	}

	assert.Empty(t, c.Center.PendingOrders)
	assert.Zero(t, d.Distributor.OrdersPlaced)
	assert.Zero(t, env.Orders.Issued())
}

func TestGenerateOrder_QuantityFloorIsOne(t *testing.T) {
	props := distributorProps(1)
	props.OrderSizeMean = 0
	props.OrderSizeStd = 0
	g := NewGraph(DefaultCostTable())
	c := mustAdd(t, g, mustNode(t, "c", KindCenter, locChicago, centerProps(0, 0)))
	d := mustAdd(t, g, mustNode(t, "d", KindDistributor, locIndianapolis, props))
	env := newTestEnv(g, 7)

	checkAndGenerateOrder(newTestCycle(env, d, 1), func() {})
	env.Clock.RunUntil(1)

	require.Len(t, c.Center.PendingOrders, 1)
	assert.Equal(t, 1, c.Center.PendingOrders[0].Quantity)
}

func TestGenerateOrder_NoCentersPlacesNothing(t *testing.T) {
	g := NewGraph(DefaultCostTable())
	d := mustAdd(t, g, mustNode(t, "d", KindDistributor, locIndianapolis, distributorProps(1)))
	env := newTestEnv(g, 1)

	checkAndGenerateOrder(newTestCycle(env, d, 1), func() {})
	env.Clock.RunUntil(1)

	assert.Zero(t, d.Distributor.OrdersPlaced)
	assert.Empty(t, d.Distributor.InFlight)
}

func TestGenerateOrder_UsesWeekdayProbability(t *testing.T) {
	// GIVEN a distributor that only orders on tuesdays
	props := distributorProps(0)
	props.OrderProbability["tuesday"] = 1
	g := NewGraph(DefaultCostTable())
	c := mustAdd(t, g, mustNode(t, "c", KindCenter, locChicago, centerProps(0, 0)))
	d := mustAdd(t, g, mustNode(t, "d", KindDistributor, locIndianapolis, props))
	env := newTestEnv(g, 3)

	// WHEN checks run hourly across monday (hours 0-23) and tuesday (24-47)
	for h := 0; h < 48; h++ {
		checkAndGenerateOrder(newTestCycle(env, d, 1), func() {})
		env.Clock.RunUntil(float64(h + 1))
	}

	// THEN exactly the 24 tuesday checks ordered
	assert.Len(t, c.Center.PendingOrders, 24)
	for _, o := range c.Center.PendingOrders {
		assert.GreaterOrEqual(t, o.PlacementTime, 25.0)
	}
}

func TestEnv_Weekday(t *testing.T) {
	env := &Env{StartWeekday: 5} // saturday
	assert.Equal(t, 5, env.Weekday(0))
	assert.Equal(t, 6, env.Weekday(24))
	assert.Equal(t, 0, env.Weekday(48))
	assert.Equal(t, 5, env.Weekday(7*24))

	// an out-of-range start still lands on a valid day
	env = &Env{StartWeekday: -3}
	assert.Equal(t, 4, env.Weekday(0))
	assert.Equal(t, 0, env.Weekday(3*24))
}
