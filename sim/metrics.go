// Aggregates end-of-run statistics per center and per distributor:
// production, fulfilment waits, SLA violations, financials and supplier
// relationships.

package sim

import (
	"fmt"
	"io"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CenterSummary aggregates one manufacturing center.
type CenterSummary struct {
	ID                 string
	Produced           float64
	Inventory          float64
	OrdersFulfilled    int
	QuantityFulfilled  int
	OrdersMissed       int
	OrdersDelivered    int
	Pending            int
	InDelivery         int
	SLAViolations      int
	AvgFulfillmentWait float64 // hours, placement to shipment
	StdFulfillmentWait float64
	MaxFulfillmentWait float64
	Revenue            float64
	Costs              float64
	Profit             float64
}

// DistributorSummary aggregates one distributor.
type DistributorSummary struct {
	ID              string
	OrdersPlaced    int
	OrdersFulfilled int
	OrdersMissed    int
	Quantity        int
	Suppliers       map[string]SupplierRelationship
}

// Summary is the end-of-run report.
type Summary struct {
	RunID        string
	SimTime      float64
	OrdersIssued int
	Centers      []CenterSummary
	Distributors []DistributorSummary
}

// Summary computes the report for the current state. It does not mutate
// any node.
func (s *Simulation) Summary() Summary {
	sum := Summary{RunID: s.RunID.String(), SimTime: s.Now(), OrdersIssued: s.OrdersIssued()}
	for _, n := range s.graph.Nodes() {
		switch {
		case n.Center != nil:
			c := n.Center
			cs := CenterSummary{
				ID:                n.ID,
				Produced:          c.TotalProduced,
				Inventory:         c.Inventory,
				OrdersFulfilled:   c.TotalOrdersFulfilled,
				QuantityFulfilled: c.TotalQuantityFulfilled,
				OrdersMissed:      c.TotalOrdersMissed,
				OrdersDelivered:   c.TotalOrdersDelivered,
				Pending:           len(c.PendingOrders),
				InDelivery:        len(c.InDelivery),
				SLAViolations:     c.SLAViolations,
				Revenue:           c.TotalRevenue,
				Costs:             c.TotalCosts(),
				Profit:            c.Profit(),
			}
			if waits := c.FulfillmentTimes; len(waits) > 0 {
				cs.AvgFulfillmentWait = stat.Mean(waits, nil)
				cs.MaxFulfillmentWait = floats.Max(waits)
				if len(waits) > 1 {
					cs.StdFulfillmentWait = stat.StdDev(waits, nil)
				}
			}
			sum.Centers = append(sum.Centers, cs)
		case n.Distributor != nil:
			d := n.Distributor
			ds := DistributorSummary{
				ID:              n.ID,
				OrdersPlaced:    d.OrdersPlaced,
				OrdersFulfilled: d.OrdersFulfilled,
				OrdersMissed:    d.OrdersMissed,
				Quantity:        d.TotalOrderQuantity,
				Suppliers:       make(map[string]SupplierRelationship, len(d.SupplierRelationships)),
			}
			for id, rel := range d.SupplierRelationships {
				ds.Suppliers[id] = *rel
			}
			sum.Distributors = append(sum.Distributors, ds)
		}
	}
	return sum
}

// TotalProduced sums production across centers.
func (s Summary) TotalProduced() float64 {
	total := 0.0
	for _, c := range s.Centers {
		total += c.Produced
	}
	return total
}

// Print writes a human-readable report to w.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Summary ===")
	fmt.Fprintf(w, "Run ID               : %s\n", s.RunID)
	fmt.Fprintf(w, "Simulated Time       : %.2f h\n", s.SimTime)
	fmt.Fprintf(w, "Orders Created       : %d\n", s.OrdersIssued)
	fmt.Fprintf(w, "Total Produced       : %.1f units\n", s.TotalProduced())

	fmt.Fprintln(w, "\n--- Manufacturing Centers ---")
	for _, c := range s.Centers {
		fmt.Fprintf(w, "%s\n", c.ID)
		fmt.Fprintf(w, "  Produced           : %.1f units (inventory %.1f)\n", c.Produced, c.Inventory)
		fmt.Fprintf(w, "  Fulfilled          : %d orders / %d units\n", c.OrdersFulfilled, c.QuantityFulfilled)
		fmt.Fprintf(w, "  Delivered / Missed : %d / %d\n", c.OrdersDelivered, c.OrdersMissed)
		fmt.Fprintf(w, "  Pending / Transit  : %d / %d\n", c.Pending, c.InDelivery)
		if c.OrdersFulfilled > 0 {
			fmt.Fprintf(w, "  Fulfilment Wait    : avg %.2f h, std %.2f h, max %.2f h\n", c.AvgFulfillmentWait, c.StdFulfillmentWait, c.MaxFulfillmentWait)
		}
		fmt.Fprintf(w, "  SLA Violations     : %d\n", c.SLAViolations)
		fmt.Fprintf(w, "  Revenue: $%.2f | Costs: $%.2f | Profit: $%.2f\n", c.Revenue, c.Costs, c.Profit)
	}

	fmt.Fprintln(w, "\n--- Distributors ---")
	for _, d := range s.Distributors {
		fmt.Fprintf(w, "%s: placed %d, fulfilled %d, missed %d (%d units)\n", d.ID, d.OrdersPlaced, d.OrdersFulfilled, d.OrdersMissed, d.Quantity)
		ids := make([]string, 0, len(d.Suppliers))
		for id := range d.Suppliers {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			rel := d.Suppliers[id]
			fmt.Fprintf(w, "  %-22s placed %3d, delivered %3d, late %3d, on-time %5.1f%%, avg wait %.1f h\n",
				id, rel.OrdersPlaced, rel.OrdersDelivered, rel.OrdersLate, rel.OnTimeRate*100, rel.AvgWaitTime)
		}
	}
}
