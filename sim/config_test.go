package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostTable_UnitCost(t *testing.T) {
	costs := DefaultCostTable()
	tests := []struct {
		rate float64
		want float64
	}{
		{0, 12},
		{29.9, 12},
		{30, 10},
		{74.99, 10},
		{75, 8.5},
		{1e12, 10}, // beyond every tier: default
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, costs.UnitCost(tt.rate), "rate %v", tt.rate)
	}
}

func TestCostTable_Validate(t *testing.T) {
	assert.NoError(t, DefaultCostTable().Validate())

	bad := DefaultCostTable()
	bad.AverageSpeedMPH = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	inverted := DefaultCostTable()
	inverted.ProductionTiers = []CostTier{{RateMin: 10, RateMax: 5, CostPerUnit: 1}}
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidConfig)
}

func TestWeekdayIndex(t *testing.T) {
	i, err := WeekdayIndex("")
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = WeekdayIndex(" Friday ")
	require.NoError(t, err)
	assert.Equal(t, 4, i)

	_, err = WeekdayIndex("someday")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNodeProperties_CloneIsDeep(t *testing.T) {
	// GIVEN a distributor template with a parameterized sourcing policy
	bonus := 0.3
	base := DefaultTemplates()[KindDistributor]
	base.SourcingPolicy = &SourcingConfig{Type: SourcingLoyaltyBased, Params: SourcingParams{LoyaltyBonus: &bonus}}

	// WHEN a clone is mutated everywhere
	cp := base.Clone()
	cp.OrderProbability["monday"] = 0.99
	cp.Behaviors[0].Time = 42
	cp.Policies["order_policy"] = PolicyConfig{Type: PolicyStatic}
	*cp.SourcingPolicy.Params.LoyaltyBonus = 0.9
	cp.SourcingPolicy.Type = SourcingCostMinimizer

	// THEN the original is untouched
	assert.Equal(t, 0.3, base.OrderProbability["monday"])
	assert.Equal(t, 1.0, base.Behaviors[0].Time)
	assert.Equal(t, PolicyContinuousGeneration, base.Policies["order_policy"].Type)
	assert.Equal(t, 0.3, *base.SourcingPolicy.Params.LoyaltyBonus)
	assert.Equal(t, SourcingLoyaltyBased, base.SourcingPolicy.Type)
}

func TestTemplates_BuildAppliesOverrides(t *testing.T) {
	tmpl := DefaultTemplates()

	tests := []struct {
		name      string
		kind      NodeKind
		overrides map[string]any
		check     func(t *testing.T, p NodeProperties)
	}{
		{
			name:      "scalar replaced",
			kind:      KindCenter,
			overrides: map[string]any{"initial_production_rate": 15, "machine_type": "Robotic"},
			check: func(t *testing.T, p NodeProperties) {
				assert.Equal(t, 15.0, p.InitialProductionRate)
				assert.Equal(t, "Robotic", p.MachineType)
				assert.Equal(t, 300.0, p.InitialInventory)
			},
		},
		{
			name:      "map merged key by key",
			kind:      KindDistributor,
			overrides: map[string]any{"order_probability": map[string]any{"sunday": 0.9}},
			check: func(t *testing.T, p NodeProperties) {
				assert.Equal(t, 0.9, p.OrderProbability["sunday"])
				assert.Equal(t, 0.3, p.OrderProbability["monday"])
				assert.Len(t, p.OrderProbability, 7)
			},
		},
		{
			name: "list replaced",
			kind: KindCenter,
			overrides: map[string]any{"behaviors": []any{
				map[string]any{"name": "solo", "function": BehaviorProduceBatch, "auto_start": true, "policy_ref": "production_policy", "time": 2.0},
			}},
			check: func(t *testing.T, p NodeProperties) {
				require.Len(t, p.Behaviors, 1)
				assert.Equal(t, "solo", p.Behaviors[0].Name)
				assert.Equal(t, 2.0, p.Behaviors[0].Time)
			},
		},
		{
			name:      "sourcing policy replaced",
			kind:      KindDistributor,
			overrides: map[string]any{"sourcing_policy": map[string]any{"type": SourcingReliabilityThreshold, "params": map[string]any{"min_on_time_rate": 0.9}}},
			check: func(t *testing.T, p NodeProperties) {
				require.NotNil(t, p.SourcingPolicy)
				assert.Equal(t, SourcingReliabilityThreshold, p.SourcingPolicy.Type)
				require.NotNil(t, p.SourcingPolicy.Params.MinOnTimeRate)
				assert.Equal(t, 0.9, *p.SourcingPolicy.Params.MinOnTimeRate)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tmpl.Build(tt.kind, tt.overrides)
			require.NoError(t, err)
			tt.check(t, p)
		})
	}

	// the templates themselves never change
	assert.Equal(t, DefaultTemplates(), tmpl)
}

func TestApplyOverrides_RejectsUnknownKeysWithoutMutation(t *testing.T) {
	p := DefaultTemplates()[KindCenter].Clone()
	before := p.Clone()

	err := ApplyOverrides(&p, map[string]any{"initial_inventory": 5, "flux_capacitor": true})

	assert.ErrorIs(t, err, ErrUnknownOverride)
	assert.Equal(t, before, p)
}

func TestTemplates_BuildUnknownKind(t *testing.T) {
	_, err := DefaultTemplates().Build(NodeKind("warehouse"), nil)
	assert.ErrorIs(t, err, ErrWrongNodeType)
}

func TestLoopPolicies(t *testing.T) {
	for _, tag := range []string{PolicyContinuousProduction, PolicyContinuousFulfillment, PolicyContinuousGeneration, "ContinuousProductionPolicy"} {
		p, err := NewLoopPolicy(PolicyConfig{Type: tag, Interval: 2})
		require.NoError(t, err, tag)
		assert.True(t, p.ShouldContinue(nil))
		assert.Equal(t, 2.0, p.NextInterval(nil))
		assert.Equal(t, BehaviorParams{Time: 0.5}, p.Parameters(nil, BehaviorParams{Time: 0.5}))
	}

	static, err := NewLoopPolicy(PolicyConfig{Type: PolicyStatic})
	require.NoError(t, err)
	assert.True(t, static.ShouldContinue(nil))
	assert.False(t, static.ShouldContinue(nil))

	_, err = NewLoopPolicy(PolicyConfig{Type: "whenever"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, []string{"continuous-fulfillment", "continuous-generation", "continuous-production", "static"}, ValidLoopPolicyNames())
}

func TestBehaviorRegistry(t *testing.T) {
	assert.True(t, IsValidBehavior(BehaviorProduceBatch))
	assert.True(t, IsValidBehavior("generate_orders"))
	assert.False(t, IsValidBehavior("teleport"))
	assert.Equal(t, []string{BehaviorFulfillOrders, BehaviorGenerateOrder, BehaviorProcessDeliveries, BehaviorProduceBatch}, ValidBehaviorNames())
}
