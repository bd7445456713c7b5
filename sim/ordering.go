package sim

import (
	"github.com/sirupsen/logrus"
)

// defaultOrderProbability applies to weekdays missing from order_probability.
const defaultOrderProbability = 0.5

// checkAndGenerateOrder runs one demand check for a distributor. A Bernoulli
// draw against today's order probability decides whether an order is placed.
// Either way the cycle takes Params.Time hours; on success the order is
// sized, sourced, priced and queued on the chosen center at the end of it.
func checkAndGenerateOrder(c *Cycle, done func()) {
	d := c.Node
	if d.Distributor == nil || c.Graph == nil {
		c.Wait(c.Params.Time, done)
		return
	}
	rng := c.env.RNG.ForSubsystem(SubsystemDemand(d.ID))
	day := Weekdays[c.env.Weekday(c.Now())]
	prob, ok := d.Props.OrderProbability[day]
	if !ok {
		prob = defaultOrderProbability
	}
	if rng.Float64() >= prob {
		c.Wait(c.Params.Time, done)
		return
	}

	c.Wait(c.Params.Time, func() {
		qty := max(1, int(rng.NormFloat64()*d.Props.OrderSizeStd+d.Props.OrderSizeMean))
		placeOrder(c, qty)
		done()
	})
}

// placeOrder sources, prices and enqueues one order of qty units.
func placeOrder(c *Cycle, qty int) {
	d, g := c.Node, c.Graph
	now := c.Now()
	decision := d.sourcing.Select(d, g, qty)
	if decision.Supplier == "" {
		logrus.Warnf("[t=%9.3fh] %s: no manufacturing center to order from", now, d.ID)
		return
	}
	center, ok := g.Node(decision.Supplier)
	if !ok || center.Center == nil {
		logrus.Errorf("[t=%9.3fh] %s: sourcing chose unknown center %q", now, d.ID, decision.Supplier)
		return
	}
	q := g.QuoteBetween(d, center, qty)

	o := NewOrder(c.env.Orders.Next(), d.ID, qty, now)
	o.Route(center.ID, q)
	d.RecordOrderPlacement(center.ID, o, now)
	center.Center.PendingOrders = append(center.Center.PendingOrders, o)

	c.env.observer().OrderPlaced(d, o, decision)
	logrus.Infof("[t=%9.3fh] %s: %s -> %s, %d units, %.1f mi, $%.2f (%s: %s)",
		now, o.ID, d.ID, center.ID, qty, q.DistanceMiles, q.TotalOrderPrice, decision.Policy, decision.Reason)
}
