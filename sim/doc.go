// Package sim provides the discrete-event engine for supply network simulation.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: the Clock, an (at, seq) ordered event queue driven by Step/RunUntil
//   - process.go: cancellable continuations that let behaviors wait in simulated time
//   - node.go: resource nodes and the policy-driven loop that runs each behavior
//
// # Architecture
//
// A Graph holds manufacturing centers and distributors. Every distributor is
// connected to every center; edge cost is flat-earth distance. Behaviors are
// registered by name (manufacturing.go, ordering.go) and bound to loop
// policies (policy.go) through NodeProperties. Distributors pick suppliers
// through a SourcingPolicy (routing.go) that may read the reputation they
// keep per supplier (state.go).
//
// Simulation (simulator.go) owns the Clock and exposes the control surface:
// start, advance, reset, rate changes and runtime node insertion. Scenario
// (bundle.go) builds a Simulation from YAML; DefaultScenario is embedded.
//
// Sub-packages:
//   - sim/geo/: static US city geocoder used by runtime insertion
//
// # Key Interfaces
//
//   - LoopPolicy: whether a behavior loop continues and how long it sleeps
//   - SourcingPolicy: choose a center for an order
//   - Observer: receive order, production and insertion events
//   - Geocoder: resolve city/state to coordinates
package sim
