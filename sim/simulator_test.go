package sim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultSimulation(t *testing.T, opts Options) *Simulation {
	t.Helper()
	s, err := DefaultScenario().NewSimulation(opts)
	require.NoError(t, err)
	return s
}

// comparableSummary drops the per-run identifier.
func comparableSummary(s *Simulation) Summary {
	sum := s.Summary()
	sum.RunID = ""
	return sum
}

func TestSimulation_SameSeedSameRun(t *testing.T) {
	// GIVEN two simulations of the default network with the same seed
	a := newDefaultSimulation(t, Options{})
	b := newDefaultSimulation(t, Options{})

	// WHEN both run three days
	a.StartAll()
	b.StartAll()
	a.Advance(72)
	b.Advance(72)

	// THEN every aggregate matches
	require.Greater(t, a.OrdersIssued(), 0)
	assert.Equal(t, comparableSummary(a), comparableSummary(b))
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestSimulation_DifferentSeedDifferentRun(t *testing.T) {
	sc := DefaultScenario()
	a, err := sc.NewSimulation(Options{})
	require.NoError(t, err)
	sc.Seed = 4242
	b, err := sc.NewSimulation(Options{})
	require.NoError(t, err)

	a.StartAll()
	b.StartAll()
	a.Advance(72)
	b.Advance(72)

	assert.NotEqual(t, comparableSummary(a), comparableSummary(b))
}

func TestSimulation_StepAndAdvance(t *testing.T) {
	s := newDefaultSimulation(t, Options{})
	assert.False(t, s.Step(), "nothing scheduled before StartAll")
	assert.False(t, s.Started())

	assert.Equal(t, 3*3+8, s.StartAll())
	assert.True(t, s.Started())
	next, ok := s.NextEventTime()
	require.True(t, ok)
	assert.Zero(t, next)
	assert.True(t, s.Step())

	s.Advance(-1)
	assert.Zero(t, s.Now())
	s.Advance(5)
	assert.Equal(t, 5.0, s.Now())
}

func TestSimulation_ResetRestoresInitialState(t *testing.T) {
	// GIVEN a simulation that has run for two days with an admin action
	s := newDefaultSimulation(t, Options{})
	s.StartAll()
	require.NoError(t, s.ChangeProductionRate("nashville_center", 50))
	s.Advance(48)
	require.Greater(t, s.OrdersIssued(), 0)
	runID := s.RunID

	// WHEN it is reset twice
	s.Reset()
	s.Reset()

	// THEN time, counters and queues are back to their initial values
	assert.Zero(t, s.Now())
	assert.False(t, s.Started())
	assert.Zero(t, s.OrdersIssued())
	assert.Zero(t, s.Clock().Pending())
	assert.Equal(t, runID, s.RunID)
	for _, n := range s.Graph().Nodes() {
		assert.False(t, n.Running(), n.ID)
		if n.Center != nil {
			assert.Equal(t, n.Props.InitialInventory, n.Center.Inventory, n.ID)
			assert.Equal(t, n.Props.InitialProductionRate, n.Center.ProductionRate, n.ID)
			assert.Empty(t, n.Center.PendingOrders, n.ID)
			assert.Zero(t, n.Center.TotalProduced, n.ID)
		}
		if n.Distributor != nil {
			assert.Empty(t, n.Distributor.SupplierRelationships, n.ID)
			assert.Zero(t, n.Distributor.OrdersPlaced, n.ID)
		}
	}
	log := s.ActionLog()
	require.Len(t, log, 1)
	assert.Equal(t, "reset", log[0].Action)
}

func TestSimulation_ResetReplaysIdentically(t *testing.T) {
	s := newDefaultSimulation(t, Options{})
	s.StartAll()
	s.Advance(48)
	first := comparableSummary(s)

	s.Reset()
	s.StartAll()
	s.Advance(48)

	assert.Equal(t, first, comparableSummary(s))
}

func TestSimulation_AddDistributorWhileRunning(t *testing.T) {
	// GIVEN a running simulation with a geocoder that knows Denver
	obs := &recordingObserver{}
	geo := stubGeocoder{"Denver,CO": {Lat: 39.7392, Lon: -104.9903}}
	s := newDefaultSimulation(t, Options{Geocoder: geo, Observer: obs})
	s.StartAll()
	s.Advance(10)

	// WHEN a distributor is added
	n, err := s.AddDistributor("Denver", "CO", map[string]any{"order_probability": map[string]any{
		"monday": 1.0, "tuesday": 1.0, "wednesday": 1.0, "thursday": 1.0, "friday": 1.0, "saturday": 1.0, "sunday": 1.0,
	}})

	// THEN it is wired to every center and starts right away
	require.NoError(t, err)
	assert.Equal(t, "distributor_denver", n.ID)
	assert.Len(t, s.Graph().EdgesFrom(n.ID), 3)
	assert.Len(t, s.Graph().Edges(), 27)
	assert.True(t, n.Running())
	assert.Equal(t, 1, obs.inserted)

	s.Advance(5)
	assert.Greater(t, n.Distributor.OrdersPlaced, 0)

	last := s.RecentActions(1)
	require.Len(t, last, 1)
	assert.Equal(t, "add_distributor", last[0].Action)
	assert.Equal(t, "distributor_denver", last[0].NodeID)
	assert.Equal(t, "completed", last[0].Result)
	assert.Equal(t, 10.0, last[0].SimTime)
}

func TestSimulation_AddManufacturerBeforeStartWaits(t *testing.T) {
	geo := stubGeocoder{"Denver,CO": {Lat: 39.7392, Lon: -104.9903}}
	s := newDefaultSimulation(t, Options{Geocoder: geo})

	n, err := s.AddManufacturer("Denver", "CO", nil)
	require.NoError(t, err)
	assert.Equal(t, "denver_center", n.ID)
	assert.Len(t, s.Graph().EdgesTo(n.ID), 8)
	assert.False(t, n.Running())

	s.StartAll()
	assert.True(t, n.Running())
}

func TestSimulation_InsertFailuresAreLogged(t *testing.T) {
	// GIVEN a simulation without a geocoder
	s := newDefaultSimulation(t, Options{})

	// WHEN an insertion is attempted
	_, err := s.AddManufacturer("Denver", "CO", nil)

	// THEN it fails, the graph is unchanged and the attempt is logged
	assert.ErrorIs(t, err, ErrGeocode)
	assert.Len(t, s.Graph().Nodes(), 11)
	log := s.ActionLog()
	require.Len(t, log, 1)
	assert.Equal(t, "add_manufacturing_center", log[0].Action)
	assert.Contains(t, log[0].Result, "geocoded")
}

func TestSimulation_NodeStateExport(t *testing.T) {
	s := newDefaultSimulation(t, Options{})
	s.StartAll()
	s.Advance(30)

	st, err := s.NodeState("chicago_center")
	require.NoError(t, err)
	assert.Equal(t, KindCenter, st.Type)
	assert.Equal(t, 8, st.Connections)
	require.NotNil(t, st.Center)
	assert.Nil(t, st.Distributor)
	assert.Len(t, st.ActiveBehaviors, 3)

	// the export is detached from the live node
	st.Properties.Behaviors[0].Time = 99
	n, _ := s.Graph().Node("chicago_center")
	assert.Equal(t, 1.0, n.Props.Behaviors[0].Time)

	_, err = s.NodeState("nope")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	all := s.Snapshot()
	assert.Len(t, all, 11)
	data, err := json.Marshal(all)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"node_id":"distributor_boston"`)
}

func TestSimulation_OrdersConserved(t *testing.T) {
	// GIVEN the default network stepped event by event for a week
	s := newDefaultSimulation(t, Options{})
	s.StartAll()
	centers := s.Graph().NodesOfKind(KindCenter)
	events := 0
	for next, ok := s.NextEventTime(); ok && next <= 7*24; next, ok = s.NextEventTime() {
		require.True(t, s.Step())
		events++

		// THEN inventory balances after every event
		for _, c := range centers {
			st := c.Center
			want := c.Props.InitialInventory + st.TotalProduced - float64(st.TotalQuantityFulfilled)
			require.InDelta(t, want, st.Inventory, 1e-6, "%s after event %d at t=%.3f", c.ID, events, s.Now())
			require.GreaterOrEqual(t, st.Inventory, 0.0, c.ID)
		}
	}
	require.Greater(t, events, 0)

	// AND every placed order is pending, in transit, delivered or missed
	placed, tracked := 0, 0
	for _, n := range s.Graph().Nodes() {
		if d := n.Distributor; d != nil {
			placed += d.OrdersPlaced
			tracked += d.OrdersFulfilled + d.OrdersMissed + len(d.InFlight)
		}
	}
	assert.Equal(t, s.OrdersIssued(), placed)
	assert.Equal(t, placed, tracked)

	for _, c := range s.Summary().Centers {
		assert.InDelta(t, 500+c.Produced-float64(c.QuantityFulfilled), c.Inventory, 1e-6, c.ID)
		assert.GreaterOrEqual(t, c.Inventory, 0.0, c.ID)
	}
}

func TestSimulation_RecentActionsBounds(t *testing.T) {
	s := newDefaultSimulation(t, Options{})
	require.NoError(t, s.ChangeProductionRate("chicago_center", 80))
	require.NoError(t, s.ChangeProductionRate("nashville_center", 40))

	tests := []struct {
		n    int
		want int
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{2, 2},
		{10, 2},
	}
	for _, tt := range tests {
		assert.Len(t, s.RecentActions(tt.n), tt.want, "n=%d", tt.n)
	}
	assert.Equal(t, "nashville_center", s.RecentActions(1)[0].NodeID)
}

func TestNewSimulation_NormalizesStartWeekday(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-1, 6},
		{-8, 6},
		{0, 0},
		{9, 2},
	}
	for _, tt := range tests {
		s := NewSimulation(NewGraph(DefaultCostTable()), Options{StartWeekday: tt.in})
		assert.Equal(t, tt.want, s.env.Weekday(0), "start %d", tt.in)
		assert.Equal(t, (tt.want+1)%7, s.env.Weekday(24), "start %d", tt.in)
	}
}
