package sim

import (
	"fmt"
	"slices"
)

// CenterSnapshot is the serializable state of a manufacturing center with
// its orders expanded to records.
type CenterSnapshot struct {
	CenterCounters
	PendingOrders    []OrderRecord `json:"pending_orders"`
	InDelivery       []OrderRecord `json:"in_delivery"`
	FulfillmentTimes []float64     `json:"fulfillment_times"`
	TotalCosts       float64       `json:"total_costs"`
	Profit           float64       `json:"profit"`
}

// DistributorSnapshot is the serializable state of a distributor.
type DistributorSnapshot struct {
	DistributorCounters
	SupplierRelationships map[string]SupplierRelationship `json:"supplier_relationships"`
	OrdersInDelivery      []OrderRecord                   `json:"orders_in_delivery"`
}

// NodeState is a read-only export of one node. It shares nothing with the
// live node, so callers may keep or mutate it freely.
type NodeState struct {
	ID              string               `json:"node_id"`
	Type            NodeKind             `json:"type"`
	Name            string               `json:"name"`
	Location        Location             `json:"location"`
	Properties      NodeProperties       `json:"properties"`
	Connections     int                  `json:"num_connections"`
	ActiveBehaviors []string             `json:"active_behaviors"`
	Center          *CenterSnapshot      `json:"center,omitempty"`
	Distributor     *DistributorSnapshot `json:"distributor,omitempty"`
}

func orderRecords(orders []*Order) []OrderRecord {
	out := make([]OrderRecord, len(orders))
	for i, o := range orders {
		out[i] = o.Record()
	}
	return out
}

func (g *Graph) exportNode(n *Node) NodeState {
	st := NodeState{
		ID:              n.ID,
		Type:            n.Kind,
		Name:            n.Name,
		Location:        n.Location,
		Properties:      n.Props.Clone(),
		Connections:     len(g.EdgesFrom(n.ID)) + len(g.EdgesTo(n.ID)),
		ActiveBehaviors: n.ActiveBehaviors(),
	}
	if c := n.Center; c != nil {
		st.Center = &CenterSnapshot{
			CenterCounters:   c.CenterCounters,
			PendingOrders:    orderRecords(c.PendingOrders),
			InDelivery:       orderRecords(c.InDelivery),
			FulfillmentTimes: slices.Clone(c.FulfillmentTimes),
			TotalCosts:       c.TotalCosts(),
			Profit:           c.Profit(),
		}
	}
	if d := n.Distributor; d != nil {
		rels := make(map[string]SupplierRelationship, len(d.SupplierRelationships))
		for id, rel := range d.SupplierRelationships {
			rels[id] = *rel
		}
		st.Distributor = &DistributorSnapshot{
			DistributorCounters:   d.DistributorCounters,
			SupplierRelationships: rels,
			OrdersInDelivery:      orderRecords(d.InFlight),
		}
	}
	return st
}

// Snapshot exports every node in insertion order.
func (s *Simulation) Snapshot() []NodeState {
	nodes := s.graph.Nodes()
	out := make([]NodeState, len(nodes))
	for i, n := range nodes {
		out[i] = s.graph.exportNode(n)
	}
	return out
}

// NodeState exports one node.
func (s *Simulation) NodeState(id string) (NodeState, error) {
	n, ok := s.graph.Node(id)
	if !ok {
		return NodeState{}, fmt.Errorf("%s: %w", id, ErrNodeNotFound)
	}
	return s.graph.exportNode(n), nil
}
