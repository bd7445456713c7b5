// Package observability exports simulation events as Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supplynet/supplysim/sim"
)

// Collector implements sim.Observer by updating Prometheus collectors.
// Labels are node IDs, so cardinality is bounded by the network size.
type Collector struct {
	gatherer prometheus.Gatherer

	OrdersPlaced    *prometheus.CounterVec
	OrdersShipped   *prometheus.CounterVec
	OrdersDelivered *prometheus.CounterVec
	OrdersLate      *prometheus.CounterVec
	OrdersMissed    *prometheus.CounterVec
	SourcingChoices *prometheus.CounterVec
	UnitsProduced   *prometheus.CounterVec
	ProductionCost  *prometheus.CounterVec
	FulfillmentWait prometheus.Histogram
	ProductionRate  *prometheus.GaugeVec
	NodesInserted   *prometheus.CounterVec
}

var _ sim.Observer = (*Collector)(nil)

// NewCollector registers the simulation metrics against reg. A nil reg uses
// the default registerer. Registering twice against the same registry
// returns collectors bound to the existing series.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	counters := []struct {
		dst    **prometheus.CounterVec
		name   string
		help   string
		labels []string
	}{
		{&c.OrdersPlaced, "supplysim_orders_placed_total", "Orders placed, by distributor and chosen center.", []string{"distributor", "center"}},
		{&c.OrdersShipped, "supplysim_orders_shipped_total", "Orders shipped from a center's inventory.", []string{"center"}},
		{&c.OrdersDelivered, "supplysim_orders_delivered_total", "Orders delivered to their distributor.", []string{"center"}},
		{&c.OrdersLate, "supplysim_orders_late_total", "Orders delivered after the SLA threshold.", []string{"center"}},
		{&c.OrdersMissed, "supplysim_orders_missed_total", "Orders dropped after the pending timeout.", []string{"center"}},
		{&c.SourcingChoices, "supplysim_sourcing_decisions_total", "Sourcing decisions, by policy and fallback flag.", []string{"policy", "fallback"}},
		{&c.UnitsProduced, "supplysim_units_produced_total", "Units produced by each center.", []string{"center"}},
		{&c.ProductionCost, "supplysim_production_cost_total", "Production cost accrued by each center.", []string{"center"}},
		{&c.NodesInserted, "supplysim_nodes_inserted_total", "Nodes inserted at runtime, by type.", []string{"type"}},
	}
	for _, spec := range counters {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: spec.name, Help: spec.help}, spec.labels)
		if *spec.dst, err = registerCounterVec(reg, vec, spec.name); err != nil {
			return nil, err
		}
	}

	wait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "supplysim_fulfillment_wait_hours",
		Help:    "Simulated hours between order placement and shipment.",
		Buckets: []float64{0, 1, 2, 4, 8, 12, 24, 48, 96, 168},
	})
	if c.FulfillmentWait, err = registerHistogram(reg, wait, "supplysim_fulfillment_wait_hours"); err != nil {
		return nil, err
	}

	rate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "supplysim_production_rate",
		Help: "Current production rate of each center in units per hour.",
	}, []string{"center"})
	if c.ProductionRate, err = registerGaugeVec(reg, rate, "supplysim_production_rate"); err != nil {
		return nil, err
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

func (c *Collector) OrderPlaced(d *sim.Node, o *sim.Order, dec sim.SourcingDecision) {
	c.OrdersPlaced.WithLabelValues(d.ID, o.AssignedCenterID).Inc()
	c.SourcingChoices.WithLabelValues(dec.Policy, fmt.Sprint(dec.Fallback)).Inc()
}

func (c *Collector) OrderShipped(center *sim.Node, _ *sim.Order, wait float64) {
	c.OrdersShipped.WithLabelValues(center.ID).Inc()
	c.FulfillmentWait.Observe(wait)
}

func (c *Collector) OrderDelivered(center *sim.Node, o *sim.Order) {
	c.OrdersDelivered.WithLabelValues(center.ID).Inc()
	if o.DeliveredTime-o.PlacementTime > sim.SLAThresholdHours {
		c.OrdersLate.WithLabelValues(center.ID).Inc()
	}
}

func (c *Collector) OrderMissed(center *sim.Node, _ *sim.Order) {
	c.OrdersMissed.WithLabelValues(center.ID).Inc()
}

func (c *Collector) BatchProduced(center *sim.Node, units, cost float64) {
	c.UnitsProduced.WithLabelValues(center.ID).Add(units)
	c.ProductionCost.WithLabelValues(center.ID).Add(cost)
	if center.Center != nil {
		c.ProductionRate.WithLabelValues(center.ID).Set(center.Center.ProductionRate)
	}
}

func (c *Collector) RateChanged(center *sim.Node, rate float64) {
	c.ProductionRate.WithLabelValues(center.ID).Set(rate)
}

func (c *Collector) NodeInserted(n *sim.Node, _ int) {
	c.NodesInserted.WithLabelValues(string(n.Kind)).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
