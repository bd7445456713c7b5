package sim

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors returned by graph insertion and administrative actions.
var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrDuplicateNode     = errors.New("node already exists")
	ErrGeocode           = errors.New("location could not be geocoded")
	ErrWrongNodeType     = errors.New("wrong node type")
	ErrInvalidRate       = errors.New("invalid production rate")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUnknownOverride   = errors.New("unknown or malformed property override")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// NodeKind is the structural type of a resource node.
type NodeKind string

const (
	KindCenter      NodeKind = "manufacturing_center"
	KindDistributor NodeKind = "distributor"
)

// Opposite returns the kind a node of this kind is connected to.
func (k NodeKind) Opposite() NodeKind {
	if k == KindCenter {
		return KindDistributor
	}
	return KindCenter
}

// Weekdays in calendar order. Index 0 is the start_weekday default.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// WeekdayIndex resolves a weekday name (case-insensitive) to 0..6.
func WeekdayIndex(name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	i := slices.Index(Weekdays, strings.ToLower(strings.TrimSpace(name)))
	if i < 0 {
		return 0, fmt.Errorf("unknown weekday %q: %w", name, ErrInvalidConfig)
	}
	return i, nil
}

// Location is a geocoded point. Lat/Lon are degrees.
type Location struct {
	Lat   float64 `yaml:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lon   float64 `yaml:"lon" json:"lon" validate:"gte=-180,lte=180"`
	City  string  `yaml:"city,omitempty" json:"city,omitempty"`
	State string  `yaml:"state,omitempty" json:"state,omitempty"`
}

// BehaviorConfig wires one named behavior to a function tag, a policy and
// an optional resource. Time is the per-cycle timing parameter in hours.
type BehaviorConfig struct {
	Name      string  `yaml:"name" json:"name" validate:"required"`
	Function  string  `yaml:"function" json:"function" validate:"required"`
	AutoStart bool    `yaml:"auto_start" json:"auto_start"`
	PolicyRef string  `yaml:"policy_ref" json:"policy_ref"`
	Resource  string  `yaml:"resource,omitempty" json:"resource,omitempty" validate:"omitempty,oneof=graph"`
	Time      float64 `yaml:"time" json:"time" validate:"gte=0"`
}

// PolicyConfig selects a loop policy by tag. Interval is the wait between
// cycles for the continuous policies.
type PolicyConfig struct {
	Type     string  `yaml:"type" json:"type" validate:"required"`
	Interval float64 `yaml:"interval" json:"interval" validate:"gte=0"`
}

// SourcingParams are the tunables of the sourcing policies. Nil means
// "use the policy default".
type SourcingParams struct {
	MinOnTimeRate       *float64 `yaml:"min_on_time_rate,omitempty" json:"min_on_time_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	CostWeight          *float64 `yaml:"cost_weight,omitempty" json:"cost_weight,omitempty" validate:"omitempty,gte=0"`
	DeliveryWeight      *float64 `yaml:"delivery_weight,omitempty" json:"delivery_weight,omitempty" validate:"omitempty,gte=0"`
	ReputationWeight    *float64 `yaml:"reputation_weight,omitempty" json:"reputation_weight,omitempty" validate:"omitempty,gte=0"`
	DefaultReputation   *float64 `yaml:"default_reputation,omitempty" json:"default_reputation,omitempty" validate:"omitempty,gte=0,lte=1"`
	LoyaltyBonus        *float64 `yaml:"loyalty_bonus,omitempty" json:"loyalty_bonus,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinOrdersForLoyalty *int     `yaml:"min_orders_for_loyalty,omitempty" json:"min_orders_for_loyalty,omitempty" validate:"omitempty,gte=0"`
}

// SourcingConfig selects a distributor's supplier-selection policy.
type SourcingConfig struct {
	Type   string         `yaml:"type" json:"type"`
	Params SourcingParams `yaml:"params,omitempty" json:"params,omitempty"`
}

// NodeProperties is the static configuration of a node. Center fields and
// distributor fields share one struct; each kind ignores the other's.
type NodeProperties struct {
	// Manufacturing center
	Capacity              float64 `yaml:"capacity,omitempty" json:"capacity,omitempty" validate:"gte=0"`
	InitialInventory      float64 `yaml:"initial_inventory,omitempty" json:"initial_inventory,omitempty" validate:"gte=0"`
	InitialProductionRate float64 `yaml:"initial_production_rate,omitempty" json:"initial_production_rate,omitempty" validate:"gte=0"`
	MaxProductionRate     float64 `yaml:"max_production_rate,omitempty" json:"max_production_rate,omitempty" validate:"gte=0"`
	MachineType           string  `yaml:"machine_type,omitempty" json:"machine_type,omitempty"`
	PendingTimeoutHours   float64 `yaml:"pending_timeout_hours,omitempty" json:"pending_timeout_hours,omitempty" validate:"gte=0"`

	// Distributor
	OrderProbability map[string]float64 `yaml:"order_probability,omitempty" json:"order_probability,omitempty" validate:"omitempty,dive,keys,oneof=monday tuesday wednesday thursday friday saturday sunday,endkeys,gte=0,lte=1"`
	OrderSizeMean    float64            `yaml:"order_size_mean,omitempty" json:"order_size_mean,omitempty" validate:"gte=0"`
	OrderSizeStd     float64            `yaml:"order_size_std,omitempty" json:"order_size_std,omitempty" validate:"gte=0"`
	SourcingPolicy   *SourcingConfig    `yaml:"sourcing_policy,omitempty" json:"sourcing_policy,omitempty"`

	Behaviors []BehaviorConfig         `yaml:"behaviors,omitempty" json:"behaviors,omitempty" validate:"dive"`
	Policies  map[string]PolicyConfig `yaml:"policies,omitempty" json:"policies,omitempty" validate:"dive"`
}

// Clone returns a deep copy. Nodes built from the same template never share
// maps, slices or pointers.
func (p NodeProperties) Clone() NodeProperties {
	out := p
	out.OrderProbability = maps.Clone(p.OrderProbability)
	out.Behaviors = slices.Clone(p.Behaviors)
	out.Policies = maps.Clone(p.Policies)
	if p.SourcingPolicy != nil {
		sc := *p.SourcingPolicy
		sc.Params = sc.Params.clone()
		out.SourcingPolicy = &sc
	}
	return out
}

func (sp SourcingParams) clone() SourcingParams {
	cp := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		x := *v
		return &x
	}
	out := SourcingParams{
		MinOnTimeRate:     cp(sp.MinOnTimeRate),
		CostWeight:        cp(sp.CostWeight),
		DeliveryWeight:    cp(sp.DeliveryWeight),
		ReputationWeight:  cp(sp.ReputationWeight),
		DefaultReputation: cp(sp.DefaultReputation),
		LoyaltyBonus:      cp(sp.LoyaltyBonus),
	}
	if sp.MinOrdersForLoyalty != nil {
		n := *sp.MinOrdersForLoyalty
		out.MinOrdersForLoyalty = &n
	}
	return out
}

// CostTier prices production for rates in [RateMin, RateMax).
type CostTier struct {
	RateMin     float64 `yaml:"rate_min" json:"rate_min" validate:"gte=0"`
	RateMax     float64 `yaml:"rate_max" json:"rate_max" validate:"gtfield=RateMin"`
	CostPerUnit float64 `yaml:"cost_per_unit" json:"cost_per_unit" validate:"gte=0"`
}

// CostTable holds every economic constant of the network. All money values
// are notional.
type CostTable struct {
	ProductionTiers       []CostTier `yaml:"production_tiers" json:"production_tiers" validate:"dive"`
	DefaultUnitCost       float64    `yaml:"default_unit_cost" json:"default_unit_cost" validate:"gte=0"`
	RateChangeCost        float64    `yaml:"rate_change_cost" json:"rate_change_cost" validate:"gte=0"`
	HoldingCostPerUnitDay float64    `yaml:"holding_cost_per_unit_day" json:"holding_cost_per_unit_day" validate:"gte=0"`
	BaseUnitPrice         float64    `yaml:"base_unit_price" json:"base_unit_price" validate:"gte=0"`
	DeliveryCostPerMile   float64    `yaml:"delivery_cost_per_mile" json:"delivery_cost_per_mile" validate:"gte=0"`
	AverageSpeedMPH       float64    `yaml:"average_speed_mph" json:"average_speed_mph" validate:"gt=0"`
}

// DefaultCostTable returns the built-in cost parameters.
func DefaultCostTable() CostTable {
	return CostTable{
		ProductionTiers: []CostTier{
			{RateMin: 0, RateMax: 30, CostPerUnit: 12},
			{RateMin: 30, RateMax: 75, CostPerUnit: 10},
			{RateMin: 75, RateMax: 1e9, CostPerUnit: 8.5},
		},
		DefaultUnitCost:       10,
		RateChangeCost:        400,
		HoldingCostPerUnitDay: 0.34,
		BaseUnitPrice:         500,
		DeliveryCostPerMile:   0.5,
		AverageSpeedMPH:       50,
	}
}

// UnitCost returns the production cost per unit at the given rate, using
// the first tier whose [min, max) range contains it.
func (c CostTable) UnitCost(rate float64) float64 {
	for _, t := range c.ProductionTiers {
		if t.RateMin <= rate && rate < t.RateMax {
			return t.CostPerUnit
		}
	}
	return c.DefaultUnitCost
}

// Validate checks the table's field ranges.
func (c CostTable) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError("costs", err)
	}
	return nil
}

// Validate checks the struct-tag rules of a node's properties.
func (p *NodeProperties) Validate() error {
	if err := validate.Struct(p); err != nil {
		return formatValidationError("properties", err)
	}
	return nil
}

func formatValidationError(scope string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%s: %w", scope, err)
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s.%s: field is required: %w", scope, e.Namespace(), ErrInvalidConfig)
	case "oneof":
		return fmt.Errorf("%s.%s: must be one of [%s], got %v: %w", scope, e.Namespace(), e.Param(), e.Value(), ErrInvalidConfig)
	default:
		return fmt.Errorf("%s.%s: validation failed (%s %s), got %v: %w", scope, e.Namespace(), e.Tag(), e.Param(), e.Value(), ErrInvalidConfig)
	}
}
