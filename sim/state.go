package sim

import "slices"

// SLAThresholdHours is the wait beyond which an order counts as late.
const SLAThresholdHours = 48.0

// TruckSpeedMPH converts routing distance to in-transit hours at shipment.
const TruckSpeedMPH = 50.0

// MachineState is the visible status of a center's production line.
type MachineState string

const (
	MachineIdle      MachineState = "idle"
	MachineProducing MachineState = "producing"
	MachineAdjusting MachineState = "adjusting"
)

// CenterCounters are the scalar fields of a manufacturing center's state.
type CenterCounters struct {
	Inventory          float64      `json:"inventory"`
	ProductionRate     float64      `json:"production_rate"`
	TargetRate         float64      `json:"target_rate"`
	MaxProductionRate  float64      `json:"max_production_rate"`
	MachineState       MachineState `json:"machine_state"`
	LastRateChangeTime float64      `json:"last_rate_change_time"`

	TotalProduced          float64 `json:"total_produced"`
	TotalOrdersFulfilled   int     `json:"total_orders_fulfilled"`
	TotalQuantityFulfilled int     `json:"total_quantity_fulfilled"`
	TotalOrdersMissed      int     `json:"total_orders_missed"`
	TotalQuantityMissed    int     `json:"total_quantity_missed"`
	TotalOrdersDelivered   int     `json:"total_orders_delivered"`
	SLAViolations          int     `json:"sla_violations"`

	TotalRevenue         float64 `json:"total_revenue"`
	TotalProductionCosts float64 `json:"total_production_costs"`
	TotalHoldingCosts    float64 `json:"total_holding_costs"`
	TotalRateChangeCosts float64 `json:"total_rate_change_costs"`
	ProductionHours      float64 `json:"production_hours"`
	RateChangesCount     int     `json:"rate_changes_count"`
	LastCostUpdateTime   float64 `json:"last_cost_update_time"`
}

// CenterState is the mutable state of a manufacturing center. Only the
// center's own behaviors mutate it (and Reset).
type CenterState struct {
	CenterCounters
	PendingOrders    []*Order  // FIFO by placement
	InDelivery       []*Order  // shipped, not yet arrived
	FulfillmentTimes []float64 // placement-to-shipment wait per fulfilled order
}

func newCenterState(p NodeProperties) *CenterState {
	machine := MachineIdle
	if p.InitialProductionRate > 0 {
		machine = MachineProducing
	}
	return &CenterState{
		CenterCounters: CenterCounters{
			Inventory:         p.InitialInventory,
			ProductionRate:    p.InitialProductionRate,
			TargetRate:        p.InitialProductionRate,
			MaxProductionRate: p.MaxProductionRate,
			MachineState:      machine,
		},
		PendingOrders:    []*Order{},
		InDelivery:       []*Order{},
		FulfillmentTimes: []float64{},
	}
}

// TotalCosts is production + holding + rate-change costs.
func (s *CenterState) TotalCosts() float64 {
	return s.TotalProductionCosts + s.TotalHoldingCosts + s.TotalRateChangeCosts
}

// Profit is revenue minus total costs.
func (s *CenterState) Profit() float64 {
	return s.TotalRevenue - s.TotalCosts()
}

// accrueHolding charges holding cost for inventory held since the last update.
func (s *CenterState) accrueHolding(now, dailyCostPerUnit float64) {
	elapsed := now - s.LastCostUpdateTime
	if elapsed <= 0 {
		return
	}
	s.TotalHoldingCosts += s.Inventory * (elapsed / 24.0) * dailyCostPerUnit
	s.LastCostUpdateTime = now
}

// SupplierRelationship is a distributor's performance aggregate for one
// supplier. OnTimeRate is the reputation signal used by sourcing policies.
type SupplierRelationship struct {
	OrdersPlaced    int     `json:"orders_placed"`
	OrdersDelivered int     `json:"orders_delivered"`
	OrdersLate      int     `json:"orders_late"`
	OrdersMissed    int     `json:"orders_missed"`
	TotalCostPaid   float64 `json:"total_cost_paid"`
	TotalWaitTime   float64 `json:"total_wait_time"`
	AvgWaitTime     float64 `json:"avg_wait_time"`
	OnTimeRate      float64 `json:"on_time_rate"`
	LastOrderTime   float64 `json:"last_order_time"`
}

// DistributorCounters are the scalar fields of a distributor's state.
type DistributorCounters struct {
	OrdersPlaced           int     `json:"orders_placed"`
	OrdersFulfilled        int     `json:"orders_fulfilled"`
	OrdersMissed           int     `json:"orders_missed"`
	TotalOrderQuantity     int     `json:"total_order_quantity"`
	TotalFulfilledQuantity int     `json:"total_fulfilled_quantity"`
	LastOrderTime          float64 `json:"last_order_time"`
}

// DistributorState is the mutable state of a distributor.
type DistributorState struct {
	DistributorCounters
	SupplierRelationships map[string]*SupplierRelationship
	InFlight              []*Order // placed and not yet delivered or missed
}

func newDistributorState() *DistributorState {
	return &DistributorState{
		SupplierRelationships: map[string]*SupplierRelationship{},
		InFlight:              []*Order{},
	}
}

// recordPlacement opens or updates the relationship with supplierID and
// starts tracking the order.
func (s *DistributorState) recordPlacement(supplierID string, o *Order, now float64) {
	rel, ok := s.SupplierRelationships[supplierID]
	if !ok {
		rel = &SupplierRelationship{OnTimeRate: 1.0}
		s.SupplierRelationships[supplierID] = rel
	}
	rel.OrdersPlaced++
	rel.LastOrderTime = now
	s.InFlight = append(s.InFlight, o)
	s.OrdersPlaced++
	s.TotalOrderQuantity += o.Quantity
	s.LastOrderTime = now
}

// untrack removes o from InFlight. Returns false if it was not tracked.
func (s *DistributorState) untrack(o *Order) bool {
	i := slices.Index(s.InFlight, o)
	if i < 0 {
		return false
	}
	s.InFlight = slices.Delete(s.InFlight, i, i+1)
	return true
}

// recordDelivery folds a delivered order into the supplier aggregate.
// Each order counts once: a second call for the same order is a no-op.
func (s *DistributorState) recordDelivery(o *Order, now float64) bool {
	rel, ok := s.SupplierRelationships[o.AssignedCenterID]
	if !ok || !s.untrack(o) {
		return false
	}
	wait := now - o.PlacementTime
	rel.OrdersDelivered++
	rel.TotalWaitTime += wait
	rel.AvgWaitTime = rel.TotalWaitTime / float64(rel.OrdersDelivered)
	if wait > SLAThresholdHours {
		rel.OrdersLate++
	}
	rel.OnTimeRate = 1.0 - float64(rel.OrdersLate)/float64(rel.OrdersDelivered)
	rel.TotalCostPaid += o.Pricing.TotalOrderPrice
	s.OrdersFulfilled++
	s.TotalFulfilledQuantity += o.Quantity
	return true
}

// recordMissed notes an order the supplier gave up on. Reputation is
// unaffected; only deliveries move the on-time rate.
func (s *DistributorState) recordMissed(o *Order) bool {
	rel, ok := s.SupplierRelationships[o.AssignedCenterID]
	if !ok || !s.untrack(o) {
		return false
	}
	rel.OrdersMissed++
	s.OrdersMissed++
	return true
}
