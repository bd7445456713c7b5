package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/supplynet/supplysim/internal/observability"
	"github.com/supplynet/supplysim/sim"
	"github.com/supplynet/supplysim/sim/geo"
)

var (
	// CLI flags for the run
	scenarioPath string  // YAML scenario; empty uses the built-in network
	seed         int64   // Overrides the scenario seed when set
	horizon      float64 // Simulated hours to run
	stepHours    float64 // Simulated hours per driver step
	eventMode    bool    // Advance one event at a time
	pace         float64 // Wall-clock seconds to sleep between steps
	logLevel     string  // Log verbosity level
	dumpState    string  // Path for the final JSON state dump
	metricsAddr  string  // Address for the Prometheus endpoint

	// Scheduled administrative actions
	addManufacturers []string
	addDistributors  []string
	rateChanges      []string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "supplysim",
	Short: "Discrete-event simulator for manufacturing and distribution networks",
}

// loadScenario returns the scenario at path, or the built-in one.
func loadScenario(path string) (*sim.Scenario, error) {
	if path == "" {
		return sim.DefaultScenario(), nil
	}
	return sim.LoadScenario(path)
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supply network simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevel()

		sc, err := loadScenario(scenarioPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			sc.Seed = seed
		}
		actions, err := buildActions(addManufacturers, addDistributors, rateChanges)
		if err != nil {
			return err
		}

		opts := sim.Options{Geocoder: geo.NewTable()}
		var shutdown func()
		if metricsAddr != "" {
			collector, err := observability.NewCollector(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			opts.Observer = collector
			shutdown = serveMetrics(metricsAddr, collector.Handler())
			defer shutdown()
		}

		s, err := sc.NewSimulation(opts)
		if err != nil {
			return err
		}
		for _, w := range sc.Warnings() {
			logrus.Warn(w)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logrus.Infof("Starting simulation %s: seed=%d, horizon=%.1fh, %d scheduled actions",
			s.RunID, sc.Seed, horizon, len(actions))
		startTime := time.Now()
		drive(ctx, s, driveOptions{horizon: horizon, step: stepHours, eventMode: eventMode, pace: pace}, actions)
		logrus.Infof("Simulation finished at t=%.2fh in %s", s.Now(), time.Since(startTime))

		s.Summary().Print(cmd.OutOrStdout())
		if dumpState != "" {
			if err := writeStateDump(dumpState, s); err != nil {
				return err
			}
			logrus.Infof("State written to %s", dumpState)
		}
		return nil
	},
}

// validateCmd loads a scenario and reports errors and wiring warnings.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a scenario file without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevel()
		sc, err := loadScenario(scenarioPath)
		if err != nil {
			return err
		}
		if err := sc.Validate(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		warnings := sc.Warnings()
		for _, w := range warnings {
			fmt.Fprintf(out, "warning: %v\n", w)
		}
		fmt.Fprintf(out, "scenario OK: %d nodes, %d warnings\n", len(sc.Nodes), len(warnings))
		return nil
	},
}

// serveMetrics exposes handler on addr/metrics and returns a shutdown func.
func serveMetrics(addr string, handler http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("metrics server: %v", err)
		}
	}()
	logrus.Infof("Serving metrics on %s/metrics", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "Path to a YAML scenario (default: built-in network)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for demand generation (overrides the scenario seed)")
	runCmd.Flags().Float64Var(&horizon, "horizon", 24, "Simulated hours to run")
	runCmd.Flags().Float64Var(&stepHours, "step", 1, "Simulated hours per driver step")
	runCmd.Flags().BoolVar(&eventMode, "event-mode", false, "Advance one event at a time instead of fixed steps")
	runCmd.Flags().Float64Var(&pace, "pace", 0, "Wall-clock seconds to sleep between steps (0 runs flat out)")
	runCmd.Flags().StringVar(&dumpState, "dump-state", "", "Write the final node states and action log as JSON to this path")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	runCmd.Flags().StringArrayVar(&addManufacturers, "add-manufacturer", nil, "Insert a center: City,ST[@hour] (repeatable)")
	runCmd.Flags().StringArrayVar(&addDistributors, "add-distributor", nil, "Insert a distributor: City,ST[@hour] (repeatable)")
	runCmd.Flags().StringArrayVar(&rateChanges, "rate-change", nil, "Change a center's rate: center_id=rate[:adjust_hours][@hour] (repeatable)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
