package sim

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios/default.yaml
var defaultScenarioYAML []byte

// Scenario is a complete network definition loadable from YAML: run
// parameters, the cost table, per-kind templates and the node list.
// Omitted cost fields keep their defaults. Template and node properties are
// overlays: each node starts from a deep copy of its kind's template.
type Scenario struct {
	Seed              int64                  `yaml:"seed"`
	StartWeekday      string                 `yaml:"start_weekday"`
	IdleIntervalHours float64                `yaml:"idle_interval_hours" validate:"gte=0"`
	Costs             CostTable              `yaml:"costs"`
	Templates         map[NodeKind]yaml.Node `yaml:"templates"`
	Nodes             []ScenarioNode         `yaml:"nodes" validate:"dive"`
}

// ScenarioNode declares one node of the initial network.
type ScenarioNode struct {
	ID         string    `yaml:"id" validate:"required"`
	Type       NodeKind  `yaml:"type" validate:"oneof=manufacturing_center distributor"`
	Name       string    `yaml:"name"`
	Location   Location  `yaml:"location"`
	Properties yaml.Node `yaml:"properties"`
}

// LoadScenario reads and parses a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// DefaultScenario returns the built-in three-center, eight-distributor network.
func DefaultScenario() *Scenario {
	sc, err := ParseScenario(defaultScenarioYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default scenario: %v", err))
	}
	return sc
}

// ParseScenario strictly decodes a scenario: unknown keys are errors.
func ParseScenario(data []byte) (*Scenario, error) {
	sc := Scenario{Costs: DefaultCostTable()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks ranges and names and builds every node to surface
// property errors. Wiring problems that Start would skip are not errors
// here; see Warnings.
func (sc *Scenario) Validate() error {
	_, err := sc.build()
	return err
}

// Warnings lists mis-wired behaviors that would be skipped at start-up.
func (sc *Scenario) Warnings() []error {
	g, err := sc.build()
	if err != nil {
		return nil
	}
	var out []error
	for _, n := range g.graph.Nodes() {
		out = append(out, n.ConfigErrors()...)
	}
	return out
}

// NewSimulation builds the network and wraps it in a Simulation.
// opts.Seed, StartWeekday, IdleInterval and Templates come from the scenario.
func (sc *Scenario) NewSimulation(opts Options) (*Simulation, error) {
	b, err := sc.build()
	if err != nil {
		return nil, err
	}
	opts.Seed = sc.Seed
	opts.StartWeekday = b.weekday
	opts.IdleInterval = sc.IdleIntervalHours
	opts.Templates = b.templates
	return NewSimulation(b.graph, opts), nil
}

type builtScenario struct {
	graph     *Graph
	templates Templates
	weekday   int
}

func (sc *Scenario) build() (*builtScenario, error) {
	if err := validate.Struct(sc); err != nil {
		return nil, formatValidationError("scenario", err)
	}
	if err := sc.Costs.Validate(); err != nil {
		return nil, err
	}
	weekday, err := WeekdayIndex(sc.StartWeekday)
	if err != nil {
		return nil, err
	}

	templates := DefaultTemplates()
	for kind, raw := range sc.Templates {
		base, ok := templates[kind]
		if !ok {
			return nil, fmt.Errorf("templates: unknown node type %q: %w", kind, ErrWrongNodeType)
		}
		if err := overlayNode(&base, &raw); err != nil {
			return nil, fmt.Errorf("templates.%s: %w", kind, err)
		}
		templates[kind] = base
	}

	g := NewGraph(sc.Costs)
	var errs []error
	for i := range sc.Nodes {
		sn := &sc.Nodes[i]
		props := templates[sn.Type].Clone()
		if err := overlayNode(&props, &sn.Properties); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", sn.ID, err))
			continue
		}
		n, err := NewNode(sn.ID, sn.Type, sn.Name, sn.Location, props)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := g.AddNode(n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &builtScenario{graph: g, templates: templates, weekday: weekday}, nil
}

// overlayNode applies a raw YAML mapping onto props. An absent node is a no-op.
func overlayNode(props *NodeProperties, raw *yaml.Node) error {
	if raw.Kind == 0 {
		return nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrUnknownOverride)
	}
	return overlayYAML(props, data)
}
