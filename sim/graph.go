package sim

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

// MilesPerDegree converts a degree of latitude (and of longitude at the
// equator) to miles in the flat-earth projection.
const MilesPerDegree = 69.0

// EdgeDistributorToCenter is the type of every edge in the network.
const EdgeDistributorToCenter = "distributor_to_center"

// FlatEarthMiles approximates the distance between two points. Longitude
// deltas are scaled by the cosine of the mean latitude.
func FlatEarthMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * MilesPerDegree
	meanLat := (lat1 + lat2) / 2 * math.Pi / 180
	dLon := (lon2 - lon1) * MilesPerDegree * math.Cos(meanLat)
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Edge links a distributor to a center. Distance and cost are rounded to
// two decimals for display; pricing always recomputes from coordinates.
type Edge struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	Type          string  `json:"type"`
	DistanceMiles float64 `json:"distance_miles"`
	RoutingCost   float64 `json:"routing_cost"`
}

// Geocoder resolves a city/state pair to coordinates.
type Geocoder interface {
	Geocode(city, state string) (lat, lon float64, ok bool)
}

// Graph owns every node and edge. Every distributor has exactly one edge to
// every center at all times: AddNode wires a new node to all nodes of the
// opposite kind before returning.
//
// Behaviors never mutate the node or edge collections; only insertion does.
type Graph struct {
	nodes map[string]*Node
	order []*Node // insertion order, used for deterministic tie-breaking
	edges []Edge
	costs CostTable
}

// NewGraph creates an empty graph priced with costs.
func NewGraph(costs CostTable) *Graph {
	return &Graph{nodes: make(map[string]*Node), costs: costs}
}

// Costs returns the graph's cost table.
func (g *Graph) Costs() CostTable {
	return g.costs
}

// AddNode inserts n and connects it to every node of the opposite kind.
// Returns the number of edges created.
func (g *Graph) AddNode(n *Node) (int, error) {
	if _, exists := g.nodes[n.ID]; exists {
		return 0, fmt.Errorf("%s: %w", n.ID, ErrDuplicateNode)
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n)
	created := 0
	for _, other := range g.NodesOfKind(n.Kind.Opposite()) {
		d, c := n, other
		if n.Kind == KindCenter {
			d, c = other, n
		}
		dist := g.Distance(d, c)
		g.edges = append(g.edges, Edge{
			From:          d.ID,
			To:            c.ID,
			Type:          EdgeDistributorToCenter,
			DistanceMiles: roundCents(dist),
			RoutingCost:   roundCents(dist * g.costs.DeliveryCostPerMile),
		})
		created++
	}
	return created, nil
}

// Node returns the node with id.
func (g *Graph) Node(id string) (*Node, bool) {
	if g == nil {
		return nil, false
	}
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	copy(out, g.order)
	return out
}

// NodesOfKind returns the nodes of one kind in insertion order.
func (g *Graph) NodesOfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, n := range g.order {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesFrom returns the edges leaving id.
func (g *Graph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns the edges arriving at id.
func (g *Graph) EdgesTo(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// Distance is the flat-earth distance in miles between two nodes.
func (g *Graph) Distance(a, b *Node) float64 {
	return FlatEarthMiles(a.Location.Lat, a.Location.Lon, b.Location.Lat, b.Location.Lon)
}

// NearestCenter returns the closest center to d, ties going to the first
// inserted. ok is false when the graph has no centers.
func (g *Graph) NearestCenter(d *Node) (center *Node, miles float64, ok bool) {
	miles = math.Inf(1)
	for _, c := range g.NodesOfKind(KindCenter) {
		if dist := g.Distance(d, c); dist < miles {
			center, miles = c, dist
		}
	}
	return center, miles, center != nil
}

// QuoteBetween prices qty units shipped from center to distributor:
// total = unit_price * qty + distance * cost_per_mile, ETA = distance / average_speed.
func (g *Graph) QuoteBetween(distributor, center *Node, qty int) Quote {
	dist := g.Distance(distributor, center)
	delivery := dist * g.costs.DeliveryCostPerMile
	perUnit := 0.0
	if qty > 0 {
		perUnit = delivery / float64(qty)
	}
	eta := 0.0
	if g.costs.AverageSpeedMPH > 0 {
		eta = dist / g.costs.AverageSpeedMPH
	}
	return Quote{
		DistanceMiles:       dist,
		BaseUnitPrice:       g.costs.BaseUnitPrice,
		DeliveryCostTotal:   roundCents(delivery),
		DeliveryCostPerUnit: roundCents(perUnit),
		TotalOrderPrice:     roundCents(g.costs.BaseUnitPrice*float64(qty) + delivery),
		DeliveryTimeHours:   roundCents(eta),
	}
}

// Quote prices an order between two nodes by id.
func (g *Graph) Quote(distributorID, centerID string, qty int) (Quote, error) {
	d, ok := g.Node(distributorID)
	if !ok {
		return Quote{}, fmt.Errorf("distributor %s: %w", distributorID, ErrNodeNotFound)
	}
	c, ok := g.Node(centerID)
	if !ok {
		return Quote{}, fmt.Errorf("center %s: %w", centerID, ErrNodeNotFound)
	}
	if d.Kind != KindDistributor || c.Kind != KindCenter {
		return Quote{}, fmt.Errorf("quote %s -> %s: %w", distributorID, centerID, ErrWrongNodeType)
	}
	return g.QuoteBetween(d, c, qty), nil
}

// InsertionID derives the node id for a dynamically inserted node.
func InsertionID(kind NodeKind, city string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(city)), " ", "_")
	if kind == KindCenter {
		return slug + "_center"
	}
	return "distributor_" + slug
}

func insertionName(kind NodeKind, city string) string {
	if kind == KindCenter {
		return city + " Manufacturing Center"
	}
	return city + " Distributor"
}

// Insert geocodes city/state, builds a node of kind from the template plus
// overrides and adds it. Every check runs before the graph is touched, so a
// failed insert leaves it unmodified. Returns the node and the number of
// edges created.
func (g *Graph) Insert(kind NodeKind, city, state string, geo Geocoder, templates Templates, overrides map[string]any) (*Node, int, error) {
	city = strings.TrimSpace(city)
	lat, lon, ok := geo.Geocode(city, state)
	if !ok {
		return nil, 0, fmt.Errorf("%s, %s: %w", city, state, ErrGeocode)
	}
	id := InsertionID(kind, city)
	if _, exists := g.nodes[id]; exists {
		return nil, 0, fmt.Errorf("%s: %w", id, ErrDuplicateNode)
	}
	props, err := templates.Build(kind, overrides)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", id, err)
	}
	loc := Location{Lat: lat, Lon: lon, City: city, State: state}
	n, err := NewNode(id, kind, insertionName(kind, city), loc, props)
	if err != nil {
		return nil, 0, err
	}
	edges, err := g.AddNode(n)
	if err != nil {
		return nil, 0, err
	}
	logrus.Infof("%s created at (%.4f, %.4f), %d edges", n.Name, lat, lon, edges)
	return n, edges, nil
}
