package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/supplynet/supplysim/sim"
)

// scheduledAction is an administrative mutation applied once the simulation
// reaches At hours.
type scheduledAction struct {
	At    float64
	Label string
	Apply func(s *sim.Simulation) error
}

// splitAt separates "body@hours". A missing suffix means hour 0.
func splitAt(raw string) (string, float64, error) {
	body, at, found := strings.Cut(raw, "@")
	if !found {
		return strings.TrimSpace(body), 0, nil
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(at), 64)
	if err != nil || hours < 0 {
		return "", 0, fmt.Errorf("invalid time %q in %q", at, raw)
	}
	return strings.TrimSpace(body), hours, nil
}

// parseInsertion parses "City,ST[@hours]" into an insertion of kind.
func parseInsertion(kind sim.NodeKind, raw string) (scheduledAction, error) {
	body, at, err := splitAt(raw)
	if err != nil {
		return scheduledAction{}, err
	}
	city, state, found := strings.Cut(body, ",")
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)
	if !found || city == "" || state == "" {
		return scheduledAction{}, fmt.Errorf("expected City,State in %q", raw)
	}
	return scheduledAction{
		At:    at,
		Label: fmt.Sprintf("add %s %s, %s", kind, city, state),
		Apply: func(s *sim.Simulation) error {
			var err error
			if kind == sim.KindCenter {
				_, err = s.AddManufacturer(city, state, nil)
			} else {
				_, err = s.AddDistributor(city, state, nil)
			}
			return err
		},
	}, nil
}

// parseRateChange parses "center_id=rate[:adjust_hours][@hours]".
func parseRateChange(raw string) (scheduledAction, error) {
	body, at, err := splitAt(raw)
	if err != nil {
		return scheduledAction{}, err
	}
	id, value, found := strings.Cut(body, "=")
	id = strings.TrimSpace(id)
	if !found || id == "" {
		return scheduledAction{}, fmt.Errorf("expected center=rate in %q", raw)
	}
	rateText, adjustText, hasAdjust := strings.Cut(value, ":")
	rate, err := strconv.ParseFloat(strings.TrimSpace(rateText), 64)
	if err != nil {
		return scheduledAction{}, fmt.Errorf("invalid rate in %q", raw)
	}
	adjust := sim.DefaultAdjustmentHours
	if hasAdjust {
		if adjust, err = strconv.ParseFloat(strings.TrimSpace(adjustText), 64); err != nil {
			return scheduledAction{}, fmt.Errorf("invalid adjustment time in %q", raw)
		}
	}
	return scheduledAction{
		At:    at,
		Label: fmt.Sprintf("rate %s -> %.2f over %.2fh", id, rate, adjust),
		Apply: func(s *sim.Simulation) error {
			return s.ChangeProductionRateOver(id, rate, adjust)
		},
	}, nil
}

// buildActions parses every mutation flag and orders the result by time.
// Actions at the same hour keep flag order.
func buildActions(manufacturers, distributors, rateChanges []string) ([]scheduledAction, error) {
	var out []scheduledAction
	for _, raw := range manufacturers {
		a, err := parseInsertion(sim.KindCenter, raw)
		if err != nil {
			return nil, fmt.Errorf("--add-manufacturer: %w", err)
		}
		out = append(out, a)
	}
	for _, raw := range distributors {
		a, err := parseInsertion(sim.KindDistributor, raw)
		if err != nil {
			return nil, fmt.Errorf("--add-distributor: %w", err)
		}
		out = append(out, a)
	}
	for _, raw := range rateChanges {
		a, err := parseRateChange(raw)
		if err != nil {
			return nil, fmt.Errorf("--rate-change: %w", err)
		}
		out = append(out, a)
	}
	slices.SortStableFunc(out, func(a, b scheduledAction) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	return out, nil
}

// applyDue runs every action due at or before now and returns the rest.
// A failed action is logged; the run continues.
func applyDue(s *sim.Simulation, actions []scheduledAction) []scheduledAction {
	for len(actions) > 0 && actions[0].At <= s.Now() {
		a := actions[0]
		actions = actions[1:]
		if err := a.Apply(s); err != nil {
			logrus.Errorf("[t=%9.3fh] %s failed: %v", s.Now(), a.Label, err)
			continue
		}
		logrus.Infof("[t=%9.3fh] %s", s.Now(), a.Label)
	}
	return actions
}
