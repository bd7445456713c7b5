// Defines the Order struct that models one purchase from a distributor to a
// manufacturing center. Tracks placement, routing, pricing, and the delivery
// timestamps used for SLA and reputation bookkeeping.

package sim

import (
	"fmt"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInDelivery OrderStatus = "in_delivery"
	OrderDelivered  OrderStatus = "delivered"
	OrderMissed     OrderStatus = "missed"
)

// validTransitions lists the only forward moves an order may make.
// pending -> in_delivery -> delivered, or pending -> missed.
var validTransitions = map[OrderStatus]OrderStatus{
	OrderPending:    OrderInDelivery,
	OrderInDelivery: OrderDelivered,
}

// Quote is the pricing breakdown for shipping quantity units from a center
// to a distributor. Money values are rounded to cents.
type Quote struct {
	DistanceMiles       float64 `json:"distance_miles"`
	BaseUnitPrice       float64 `json:"base_unit_price"`
	DeliveryCostTotal   float64 `json:"delivery_cost_total"`
	DeliveryCostPerUnit float64 `json:"delivery_cost_per_unit"`
	TotalOrderPrice     float64 `json:"total_order_price"`
	DeliveryTimeHours   float64 `json:"delivery_time_hours"`
}

type Order struct {
	ID            string  // Unique identifier, e.g. ORD-00001
	DistributorID string  // Distributor that placed the order
	Quantity      int     // Units requested
	PlacementTime float64 // Simulated hour when the order was placed

	Status OrderStatus // pending, in_delivery, delivered, missed

	AssignedCenterID string  // Set by Route
	RoutingDistance  float64 // Miles between distributor and center
	Pricing          Quote   // Pricing snapshot taken at placement

	FulfillmentTime     float64 // Hour the center shipped the order
	DeliveryStartTime   float64
	DeliveryArrivalTime float64
	DeliveryDuration    float64
	DeliveredTime       float64
	MissedTime          float64
}

// NewOrder constructs a pending order. The id comes from the caller's
// OrderSequence so independent simulations never share a counter.
func NewOrder(id, distributorID string, quantity int, placedAt float64) *Order {
	return &Order{
		ID:            id,
		DistributorID: distributorID,
		Quantity:      quantity,
		PlacementTime: placedAt,
		Status:        OrderPending,
	}
}

// Route assigns the order to a center with the quoted pricing.
func (o *Order) Route(centerID string, q Quote) {
	o.AssignedCenterID = centerID
	o.RoutingDistance = q.DistanceMiles
	o.Pricing = q
}

// WaitTime returns hours elapsed since placement.
func (o *Order) WaitTime(now float64) float64 {
	return now - o.PlacementTime
}

func (o *Order) advance(to OrderStatus) error {
	if to == OrderMissed && o.Status == OrderPending {
		o.Status = to
		return nil
	}
	if next, ok := validTransitions[o.Status]; !ok || next != to {
		return fmt.Errorf("order %s: %s -> %s: %w", o.ID, o.Status, to, ErrInvalidTransition)
	}
	o.Status = to
	return nil
}

// ship moves a pending order into delivery. Transit time is distance over
// the fixed truck speed.
func (o *Order) ship(now float64) error {
	if err := o.advance(OrderInDelivery); err != nil {
		return err
	}
	o.FulfillmentTime = now
	o.DeliveryStartTime = now
	o.DeliveryDuration = o.RoutingDistance / TruckSpeedMPH
	o.DeliveryArrivalTime = now + o.DeliveryDuration
	return nil
}

func (o *Order) deliver(now float64) error {
	if err := o.advance(OrderDelivered); err != nil {
		return err
	}
	o.DeliveredTime = now
	return nil
}

func (o *Order) miss(now float64) error {
	if err := o.advance(OrderMissed); err != nil {
		return err
	}
	o.MissedTime = now
	return nil
}

// Record returns the serializable form of the order.
func (o *Order) Record() OrderRecord {
	return OrderRecord{
		ID:                  o.ID,
		DistributorID:       o.DistributorID,
		Quantity:            o.Quantity,
		PlacementTime:       o.PlacementTime,
		AssignedCenterID:    o.AssignedCenterID,
		RoutingDistance:     o.RoutingDistance,
		BaseUnitPrice:       o.Pricing.BaseUnitPrice,
		DeliveryCostTotal:   o.Pricing.DeliveryCostTotal,
		TotalOrderPrice:     o.Pricing.TotalOrderPrice,
		DeliveryTimeHours:   o.Pricing.DeliveryTimeHours,
		Status:              o.Status,
		FulfillmentTime:     o.FulfillmentTime,
		DeliveryStartTime:   o.DeliveryStartTime,
		DeliveryArrivalTime: o.DeliveryArrivalTime,
		DeliveryDuration:    o.DeliveryDuration,
	}
}

// This method returns a human-readable string representation of an Order.
func (o Order) String() string {
	return fmt.Sprintf("Order(%s, qty=%d, from=%s, to=%s, status=%s)", o.ID, o.Quantity, o.DistributorID, o.AssignedCenterID, o.Status)
}

// OrderRecord is the plain serializable view of an Order.
type OrderRecord struct {
	ID                  string      `json:"id"`
	DistributorID       string      `json:"distributor_id"`
	Quantity            int         `json:"quantity"`
	PlacementTime       float64     `json:"placement_time"`
	AssignedCenterID    string      `json:"assigned_center_id"`
	RoutingDistance     float64     `json:"routing_distance"`
	BaseUnitPrice       float64     `json:"base_unit_price"`
	DeliveryCostTotal   float64     `json:"delivery_cost_total"`
	TotalOrderPrice     float64     `json:"total_order_price"`
	DeliveryTimeHours   float64     `json:"delivery_time_hours"`
	Status              OrderStatus `json:"status"`
	FulfillmentTime     float64     `json:"fulfillment_time"`
	DeliveryStartTime   float64     `json:"delivery_start_time"`
	DeliveryArrivalTime float64     `json:"delivery_arrival_time"`
	DeliveryDuration    float64     `json:"delivery_duration"`
}

// OrderSequence hands out monotonically increasing order ids.
// One sequence is owned by each Simulation.
type OrderSequence struct {
	next int
}

// Next returns the next id in the form ORD-00001.
func (s *OrderSequence) Next() string {
	s.next++
	return fmt.Sprintf("ORD-%05d", s.next)
}

// Issued returns how many ids have been handed out.
func (s *OrderSequence) Issued() int {
	return s.next
}

// Reset restarts numbering at ORD-00001.
func (s *OrderSequence) Reset() {
	s.next = 0
}
