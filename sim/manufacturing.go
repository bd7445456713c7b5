package sim

import (
	"slices"

	"github.com/sirupsen/logrus"
)

// DefaultAdjustmentHours is how long a production line takes to ramp to a new rate.
const DefaultAdjustmentHours = 2.0

// produceBatch runs one production cycle of Params.Time hours. Units land in
// inventory at the end of the cycle at the rate read at its start. A line
// that is mid-adjustment keeps its "adjusting" status.
func produceBatch(c *Cycle, done func()) {
	s := c.Node.Center
	if s == nil {
		c.Wait(c.Params.Time, done)
		return
	}
	costs := c.env.Costs
	rate := s.ProductionRate
	hours := c.Params.Time

	if rate <= 0 {
		if s.MachineState != MachineAdjusting {
			s.MachineState = MachineIdle
		}
		c.Wait(hours, func() {
			s.accrueHolding(c.Now(), costs.HoldingCostPerUnitDay)
			done()
		})
		return
	}

	if s.MachineState != MachineAdjusting {
		s.MachineState = MachineProducing
	}
	unitCost := costs.UnitCost(rate)
	c.Wait(hours, func() {
		units := rate * hours
		cost := units * unitCost
		s.Inventory += units
		s.TotalProduced += units
		s.TotalProductionCosts += cost
		s.ProductionHours += hours
		s.accrueHolding(c.Now(), costs.HoldingCostPerUnitDay)
		c.env.observer().BatchProduced(c.Node, units, cost)
		logrus.Debugf("[t=%9.3fh] %s: produced %.1f units (inventory %.1f)", c.Now(), c.Node.ID, units, s.Inventory)
		done()
	})
}

// changeProductionRate returns a one-shot routine that ramps the line to
// rate over adjust hours. Target rate and "adjusting" are visible at once;
// the new rate, its cost and the final machine state land when the ramp ends.
func changeProductionRate(rate, adjust float64) Behavior {
	return func(c *Cycle, done func()) {
		s := c.Node.Center
		s.TargetRate = rate
		s.MachineState = MachineAdjusting
		c.Wait(adjust, func() {
			s.ProductionRate = rate
			s.LastRateChangeTime = c.Now()
			s.TotalRateChangeCosts += c.env.Costs.RateChangeCost
			s.RateChangesCount++
			if rate > 0 {
				s.MachineState = MachineProducing
			} else {
				s.MachineState = MachineIdle
			}
			c.env.observer().RateChanged(c.Node, rate)
			logrus.Infof("[t=%9.3fh] %s: production rate now %.1f units/h", c.Now(), c.Node.ID, rate)
			done()
		})
	}
}

// checkAndFulfillOrders drains the pending queue strictly FIFO. Each shipped
// order costs Params.Time hours. Processing stops at the first order the
// inventory cannot cover; that order and everything behind it stay queued.
// With pending_timeout_hours > 0, a blocked head that has waited longer than
// the timeout is marked missed and the next order is tried.
func checkAndFulfillOrders(c *Cycle, done func()) {
	s := c.Node.Center
	if s == nil {
		c.Wait(0, done)
		return
	}
	timeout := c.Node.Props.PendingTimeoutHours
	waited := false
	finish := func() {
		if waited {
			done()
			return
		}
		c.Wait(0, done)
	}

	var next func()
	next = func() {
		if len(s.PendingOrders) == 0 {
			finish()
			return
		}
		head := s.PendingOrders[0]
		if s.Inventory < float64(head.Quantity) {
			if timeout > 0 && head.WaitTime(c.Now()) > timeout {
				missOrder(c, head)
				next()
				return
			}
			finish()
			return
		}
		waited = true
		c.Wait(c.Params.Time, func() {
			// Inventory or the queue may have moved while we waited.
			if len(s.PendingOrders) == 0 || s.PendingOrders[0] != head || s.Inventory < float64(head.Quantity) {
				next()
				return
			}
			shipOrder(c, head)
			next()
		})
	}
	next()
}

func shipOrder(c *Cycle, o *Order) {
	s := c.Node.Center
	now := c.Now()
	if err := o.ship(now); err != nil {
		logrus.Errorf("[t=%9.3fh] %s: dropping %s from pending queue: %v", now, c.Node.ID, o.ID, err)
		s.PendingOrders = s.PendingOrders[1:]
		return
	}
	s.Inventory -= float64(o.Quantity)
	s.TotalOrdersFulfilled++
	s.TotalQuantityFulfilled += o.Quantity
	s.TotalRevenue += o.Pricing.TotalOrderPrice

	wait := o.FulfillmentTime - o.PlacementTime
	s.FulfillmentTimes = append(s.FulfillmentTimes, wait)
	if wait > SLAThresholdHours {
		s.SLAViolations++
	}
	s.PendingOrders = s.PendingOrders[1:]
	s.InDelivery = append(s.InDelivery, o)

	c.env.observer().OrderShipped(c.Node, o, wait)
	logrus.Infof("[t=%9.3fh] %s: %s shipped to %s (%d units, revenue=$%.2f, ETA=%.1fh)",
		now, c.Node.ID, o.ID, o.DistributorID, o.Quantity, o.Pricing.TotalOrderPrice, o.DeliveryDuration)
}

// missOrder drops the queue head as missed and tells its distributor.
func missOrder(c *Cycle, o *Order) {
	s := c.Node.Center
	now := c.Now()
	s.PendingOrders = s.PendingOrders[1:]
	if err := o.miss(now); err != nil {
		logrus.Errorf("[t=%9.3fh] %s: %v", now, c.Node.ID, err)
		return
	}
	s.TotalOrdersMissed++
	s.TotalQuantityMissed += o.Quantity
	if g := c.env.Graph; g != nil {
		if d, ok := g.Node(o.DistributorID); ok {
			d.RecordOrderMissed(o)
		}
	}
	c.env.observer().OrderMissed(c.Node, o)
	logrus.Infof("[t=%9.3fh] %s: %s missed after %.1fh pending", now, c.Node.ID, o.ID, o.WaitTime(now))
}

// processDeliveries scans the in-delivery set once. Every order whose
// arrival time has been reached costs Params.Time hours to close out, is
// marked delivered and reported to its distributor exactly once.
func processDeliveries(c *Cycle, done func()) {
	s := c.Node.Center
	if s == nil {
		c.Wait(0, done)
		return
	}
	now := c.Now()
	var arrived []*Order
	for _, o := range s.InDelivery {
		if now >= o.DeliveryArrivalTime {
			arrived = append(arrived, o)
		}
	}
	if len(arrived) == 0 {
		c.Wait(0, done)
		return
	}

	i := 0
	var next func()
	next = func() {
		if i == len(arrived) {
			done()
			return
		}
		o := arrived[i]
		i++
		c.Wait(c.Params.Time, func() {
			idx := slices.Index(s.InDelivery, o)
			if idx < 0 {
				next()
				return
			}
			if err := o.deliver(c.Now()); err != nil {
				logrus.Errorf("[t=%9.3fh] %s: %v", c.Now(), c.Node.ID, err)
				next()
				return
			}
			s.InDelivery = slices.Delete(s.InDelivery, idx, idx+1)
			s.TotalOrdersDelivered++
			if d, ok := c.Graph.Node(o.DistributorID); ok {
				d.RecordOrderDelivery(o, c.Now())
			}
			c.env.observer().OrderDelivered(c.Node, o)
			logrus.Infof("[t=%9.3fh] %s: %s delivered to %s (total time=%.1fh)",
				c.Now(), c.Node.ID, o.ID, o.DistributorID, o.WaitTime(c.Now()))
			next()
		})
	}
	next()
}
