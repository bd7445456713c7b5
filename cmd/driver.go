package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/supplynet/supplysim/sim"
)

type driveOptions struct {
	horizon   float64 // hours
	step      float64 // hours per step; <= 0 runs each segment in one go
	eventMode bool
	pace      float64 // wall-clock seconds between steps
}

// drive starts every node and advances s to the horizon, applying scheduled
// actions as their hour is reached. Cancelling ctx stops between steps.
// Returns the number of events executed.
func drive(ctx context.Context, s *sim.Simulation, o driveOptions, actions []scheduledAction) int {
	s.StartAll()
	actions = applyDue(s, actions)

	executed := 0
	for ctx.Err() == nil {
		target := o.horizon
		if len(actions) > 0 && actions[0].At < target {
			target = actions[0].At
		}

		if o.eventMode {
			// events at exactly the horizon still run, as in RunUntil
			if next, ok := s.NextEventTime(); ok && next <= target {
				s.Step()
				executed++
				logrus.Tracef("[t=%9.3fh] event executed", s.Now())
				if !sleepPace(ctx, o.pace) {
					break
				}
				continue
			}
			if s.Now() >= o.horizon {
				applyDue(s, actions)
				break
			}
			executed += s.RunUntil(target)
		} else {
			if s.Now() >= o.horizon {
				break
			}
			end := target
			if o.step > 0 && s.Now()+o.step < end {
				end = s.Now() + o.step
			}
			executed += s.RunUntil(end)
			if !sleepPace(ctx, o.pace) {
				break
			}
		}
		actions = applyDue(s, actions)
	}
	if err := ctx.Err(); err != nil {
		logrus.Warnf("[t=%9.3fh] run interrupted: %v", s.Now(), err)
	}
	return executed
}

// sleepPace waits pace seconds of wall time. Returns false if ctx ended.
func sleepPace(ctx context.Context, pace float64) bool {
	if pace <= 0 {
		return true
	}
	timer := time.NewTimer(time.Duration(pace * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// stateDump is the JSON document written by --dump-state.
type stateDump struct {
	RunID   string            `json:"run_id"`
	SimTime float64           `json:"sim_time"`
	Nodes   []sim.NodeState   `json:"nodes"`
	Edges   []sim.Edge        `json:"edges"`
	Actions []sim.ActionEntry `json:"actions"`
	Summary sim.Summary       `json:"summary"`
}

func writeStateDump(path string, s *sim.Simulation) error {
	dump := stateDump{
		RunID:   s.RunID.String(),
		SimTime: s.Now(),
		Nodes:   s.Snapshot(),
		Edges:   s.Graph().Edges(),
		Actions: s.ActionLog(),
		Summary: s.Summary(),
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}
