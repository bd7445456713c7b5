package sim

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Behavior, policy and sourcing tags accepted in configuration.
const (
	BehaviorProduceBatch        = "produce_batch"
	BehaviorFulfillOrders       = "check_and_fulfill_orders"
	BehaviorProcessDeliveries   = "process_deliveries"
	BehaviorGenerateOrder       = "check_and_generate_order"
	PolicyContinuousProduction  = "continuous-production"
	PolicyContinuousFulfillment = "continuous-fulfillment"
	PolicyContinuousGeneration  = "continuous-generation"
	PolicyStatic                = "static"
	ResourceGraph               = "graph"
)

// Templates holds the default properties for each node kind. Nodes built
// from a template receive a deep copy.
type Templates map[NodeKind]NodeProperties

// DefaultTemplates returns the built-in templates used for dynamically
// inserted nodes and as the base for scenario nodes.
func DefaultTemplates() Templates {
	return Templates{
		KindCenter: {
			Capacity:              1000,
			InitialInventory:      300,
			InitialProductionRate: 10,
			MaxProductionRate:     20,
			MachineType:           "Standard Production Line",
			Behaviors: []BehaviorConfig{
				{Name: "continuous_production", Function: BehaviorProduceBatch, AutoStart: true, PolicyRef: "production_policy", Time: 1.0},
				{Name: "process_pending_orders", Function: BehaviorFulfillOrders, AutoStart: true, PolicyRef: "fulfillment_policy", Time: 0.1},
				{Name: "process_deliveries", Function: BehaviorProcessDeliveries, AutoStart: true, PolicyRef: "delivery_policy", Resource: ResourceGraph, Time: 0.1},
			},
			Policies: map[string]PolicyConfig{
				"production_policy":  {Type: PolicyContinuousProduction},
				"fulfillment_policy": {Type: PolicyContinuousFulfillment},
				"delivery_policy":    {Type: PolicyContinuousFulfillment},
			},
		},
		KindDistributor: {
			OrderProbability: map[string]float64{
				"monday":    0.3,
				"tuesday":   0.4,
				"wednesday": 0.35,
				"thursday":  0.4,
				"friday":    0.5,
				"saturday":  0.2,
				"sunday":    0.1,
			},
			OrderSizeMean:  50,
			OrderSizeStd:   10,
			SourcingPolicy: &SourcingConfig{Type: SourcingNearestNeighbor},
			Behaviors: []BehaviorConfig{
				{Name: "generate_orders", Function: BehaviorGenerateOrder, AutoStart: true, PolicyRef: "order_policy", Resource: ResourceGraph, Time: 1.0},
			},
			Policies: map[string]PolicyConfig{
				"order_policy": {Type: PolicyContinuousGeneration},
			},
		},
	}
}

// Build returns a deep copy of the template for kind with overrides applied.
func (t Templates) Build(kind NodeKind, overrides map[string]any) (NodeProperties, error) {
	base, ok := t[kind]
	if !ok {
		return NodeProperties{}, fmt.Errorf("no template for %q: %w", kind, ErrWrongNodeType)
	}
	props := base.Clone()
	if err := ApplyOverrides(&props, overrides); err != nil {
		return NodeProperties{}, err
	}
	return props, nil
}

// ApplyOverrides overlays key/value pairs onto props. Keys use the yaml
// field names. Maps are merged key by key, lists are replaced and unknown
// keys are rejected. props is left untouched on error.
func ApplyOverrides(props *NodeProperties, overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encoding overrides: %v: %w", err, ErrUnknownOverride)
	}
	return overlayYAML(props, raw)
}

// overlayYAML strictly decodes raw onto a copy of props and commits the
// result only if decoding succeeds.
func overlayYAML(props *NodeProperties, raw []byte) error {
	next := props.Clone()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&next); err != nil {
		return fmt.Errorf("%v: %w", err, ErrUnknownOverride)
	}
	*props = next
	return nil
}
