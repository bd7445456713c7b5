// sim/simulator.go
package sim

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options configures a Simulation. Zero values fall back to defaults.
type Options struct {
	Seed         int64
	StartWeekday int     // 0 = monday
	IdleInterval float64 // hours; default DefaultIdleIntervalHours
	Observer     Observer
	Geocoder     Geocoder  // required for AddManufacturer / AddDistributor
	Templates    Templates // default DefaultTemplates()
}

// ActionEntry records one administrative action.
type ActionEntry struct {
	ID         string         `json:"id"`
	SimTime    float64        `json:"sim_time"`
	WallTime   time.Time      `json:"wall_time"`
	Action     string         `json:"action"`
	NodeID     string         `json:"node_id,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Result     string         `json:"result"`
}

// Simulation binds a Graph to a Clock and exposes the control surface:
// start, advance, reset, inspect and administrative mutations.
//
// Thread-safety: NOT thread-safe. Callers serialize access (the CLI drives
// it from one goroutine).
type Simulation struct {
	RunID uuid.UUID

	graph     *Graph
	env       *Env
	geocoder  Geocoder
	templates Templates
	started   bool
	actions   []ActionEntry
}

// NewSimulation wraps g. Nodes are not started until StartAll.
func NewSimulation(g *Graph, opts Options) *Simulation {
	templates := opts.Templates
	if templates == nil {
		templates = DefaultTemplates()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	idle := opts.IdleInterval
	if idle <= 0 {
		idle = DefaultIdleIntervalHours
	}
	s := &Simulation{
		RunID: uuid.New(),
		graph: g,
		env: &Env{
			Clock:        NewClock(),
			Graph:        g,
			RNG:          NewPartitionedRNG(NewSimulationKey(opts.Seed)),
			Orders:       &OrderSequence{},
			Costs:        g.Costs(),
			Observer:     observer,
			IdleInterval: idle,
			StartWeekday: ((opts.StartWeekday % 7) + 7) % 7,
		},
		geocoder:  opts.Geocoder,
		templates: templates,
	}
	logrus.Infof("Simulation %s created with %d nodes", s.RunID, len(g.Nodes()))
	return s
}

// Graph returns the simulated network.
func (s *Simulation) Graph() *Graph { return s.graph }

// Clock returns the simulation clock.
func (s *Simulation) Clock() *Clock { return s.env.Clock }

// Now returns the current simulated time in hours.
func (s *Simulation) Now() float64 { return s.env.Clock.Now() }

// Started reports whether StartAll has run since the last Reset.
func (s *Simulation) Started() bool { return s.started }

// OrdersIssued returns how many orders have been created since the last Reset.
func (s *Simulation) OrdersIssued() int { return s.env.Orders.Issued() }

// StartAll starts every node's auto-start behaviors. Nodes already running
// are left alone. Returns the number of loops started.
func (s *Simulation) StartAll() int {
	count := 0
	for _, n := range s.graph.Nodes() {
		count += n.Start(s.env)
	}
	s.started = true
	logrus.Infof("[t=%9.3fh] %d processes activated", s.Now(), count)
	return count
}

// Step executes the next pending event regardless of its time. Returns
// false, doing nothing, when no events are pending.
func (s *Simulation) Step() bool {
	return s.env.Clock.Step()
}

// NextEventTime returns the timestamp of the next pending event.
func (s *Simulation) NextEventTime() (float64, bool) {
	return s.env.Clock.NextAt()
}

// RunUntil executes every event with timestamp <= until and moves the clock
// to until. Running out of events is normal termination.
func (s *Simulation) RunUntil(until float64) int {
	return s.env.Clock.RunUntil(until)
}

// Advance runs the simulation forward by dt hours.
func (s *Simulation) Advance(dt float64) int {
	if dt < 0 {
		dt = 0
	}
	return s.RunUntil(s.Now() + dt)
}

// Reset stops every loop, rewinds the clock to zero and restores every node
// to its initial state. Nodes inserted at runtime are kept. Calling Reset
// twice in a row is the same as calling it once.
func (s *Simulation) Reset() {
	for _, n := range s.graph.Nodes() {
		n.Stop()
	}
	s.env.Clock = NewClock()
	for _, n := range s.graph.Nodes() {
		n.ResetState()
	}
	s.env.Orders.Reset()
	s.env.RNG.Reset()
	s.started = false
	s.actions = nil
	s.record("reset", "", nil, "completed")
	logrus.Infof("Simulation %s reset to time 0", s.RunID)
}

// ChangeProductionRate ramps a center to rate over the default adjustment time.
func (s *Simulation) ChangeProductionRate(centerID string, rate float64) error {
	return s.ChangeProductionRateOver(centerID, rate, DefaultAdjustmentHours)
}

// ChangeProductionRateOver ramps a center to rate over adjust hours. The
// target rate and "adjusting" state are visible immediately; the new rate
// takes effect once the simulation has advanced past the adjustment.
func (s *Simulation) ChangeProductionRateOver(centerID string, rate, adjust float64) error {
	n, ok := s.graph.Node(centerID)
	if !ok {
		return fmt.Errorf("%s: %w", centerID, ErrNodeNotFound)
	}
	if n.Kind != KindCenter {
		return fmt.Errorf("%s is a %s: %w", centerID, n.Kind, ErrWrongNodeType)
	}
	if rate < 0 || (n.Center.MaxProductionRate > 0 && rate > n.Center.MaxProductionRate) {
		return fmt.Errorf("%s: rate %.2f outside [0, %.2f]: %w", centerID, rate, n.Center.MaxProductionRate, ErrInvalidRate)
	}
	if adjust < 0 {
		adjust = 0
	}
	n.runOnce(s.env, "change_production_rate", changeProductionRate(rate, adjust))
	s.record("change_production_rate", centerID, map[string]any{"new_rate": rate, "adjustment_time": adjust}, "scheduled")
	return nil
}

// AddManufacturer inserts a center at city/state and starts it when the
// simulation is running.
func (s *Simulation) AddManufacturer(city, state string, overrides map[string]any) (*Node, error) {
	return s.insert(KindCenter, city, state, overrides)
}

// AddDistributor inserts a distributor at city/state and starts it when the
// simulation is running.
func (s *Simulation) AddDistributor(city, state string, overrides map[string]any) (*Node, error) {
	return s.insert(KindDistributor, city, state, overrides)
}

func (s *Simulation) insert(kind NodeKind, city, state string, overrides map[string]any) (*Node, error) {
	action := "add_" + string(kind)
	params := map[string]any{"city": city, "state": state}
	maps.Copy(params, overrides)
	if s.geocoder == nil {
		err := fmt.Errorf("no geocoder configured: %w", ErrGeocode)
		s.record(action, "", params, err.Error())
		return nil, err
	}
	n, edges, err := s.graph.Insert(kind, city, state, s.geocoder, s.templates, overrides)
	if err != nil {
		s.record(action, "", params, err.Error())
		return nil, err
	}
	if s.started {
		started := n.Start(s.env)
		logrus.Infof("[t=%9.3fh] started %d processes for %s", s.Now(), started, n.Name)
	}
	s.env.observer().NodeInserted(n, edges)
	s.record(action, n.ID, params, "completed")
	return n, nil
}

func (s *Simulation) record(action, nodeID string, params map[string]any, result string) {
	s.actions = append(s.actions, ActionEntry{
		ID:         uuid.NewString(),
		SimTime:    s.Now(),
		WallTime:   time.Now(),
		Action:     action,
		NodeID:     nodeID,
		Parameters: params,
		Result:     result,
	})
}

// ActionLog returns the administrative actions since the last Reset.
func (s *Simulation) ActionLog() []ActionEntry {
	out := make([]ActionEntry, len(s.actions))
	copy(out, s.actions)
	return out
}

// RecentActions returns the last n entries of the action log.
func (s *Simulation) RecentActions(n int) []ActionEntry {
	if n <= 0 {
		return nil
	}
	all := s.ActionLog()
	if n < len(all) {
		return all[len(all)-n:]
	}
	return all
}
