package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/institute-of-production-systems/shopsim/sim"
	"github.com/institute-of-production-systems/shopsim/sim/history/sqlstore"
	"github.com/institute-of-production-systems/shopsim/sim/metrics"
	"github.com/institute-of-production-systems/shopsim/sim/plant"
	"github.com/institute-of-production-systems/shopsim/sim/trace"
)

var (
	// Run configuration flags; see RunConfig for the matching config keys
	configPath   string // Optional run config file
	plantPath    string // Plant definition (YAML)
	seed         int64  // Master seed of the partitioned RNG
	startTime    int64  // Simulation start (s)
	endTime      int64  // Simulation end (s)
	wsSeq        string // Workstation sequencing heuristic
	wsRoute      string // Workstation routing heuristic
	trRoute      string // Transport routing heuristic
	trSeq        string // Transport sequencing heuristic
	historyPath  string // sqlite database receiving status and fill histories
	printMetrics bool   // Print prometheus KPIs after the run
	logLevel     string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "shopsim",
	Short: "Discrete-event scheduler for manufacturing shop floors",
}

// runCmd resolves every decision with a heuristic and prints the KPI report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation with heuristics for every decision category",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)
		if err := runSimulation(cfg, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// validateCmd loads and validates a plant definition
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a plant definition",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		if plantPath == "" {
			logrus.Fatalf("--plant is required")
		}
		if err := validatePlant(plantPath, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// mustLoadConfig merges flags, environment and config file, and applies the log level.
func mustLoadConfig(cmd *cobra.Command) *RunConfig {
	cfg, err := LoadRunConfig(configPath, cmd.Flags())
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	level, err := logrus.ParseLevel(cfg.Log)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", cfg.Log)
	}
	logrus.SetLevel(level)
	return cfg
}

// validatePlant loads the definition at path, validates it and prints a one-line summary.
func validatePlant(path string, w io.Writer) error {
	p, err := plant.LoadPlant(path)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, _ = fmt.Fprintf(w, "%s: plant %q is valid (%d workstations, %d inventories, %d transports, %d products, %d orders)\n",
		path, p.Name, len(p.Workstations), len(p.Inventories), len(p.Transports), len(p.Products), len(p.Orders))
	return nil
}

// newSimulator builds a simulator for cfg with the collaborators it asks for. The returned cleanup
// flushes and closes them and must always be called.
func newSimulator(cfg *RunConfig, simCfg sim.Config, w io.Writer) (*sim.Simulator, *prometheus.Registry, func() error, error) {
	cleanup := func() error { return nil }
	p, err := plant.LoadPlant(cfg.Plant)
	if err != nil {
		return nil, nil, cleanup, err
	}
	opts := []sim.Option{sim.WithTrace(trace.NewDecisionTrace(trace.TraceLevelDecisions))}

	var reg *prometheus.Registry
	if cfg.Metrics {
		reg = prometheus.NewRegistry()
		collector := metrics.NewCollector()
		if err := collector.Register(reg); err != nil {
			return nil, nil, cleanup, fmt.Errorf("registering metrics: %w", err)
		}
		opts = append(opts, sim.WithMetrics(collector))
	}
	if cfg.History != "" {
		store, err := sqlstore.Open(cfg.History)
		if err != nil {
			return nil, nil, cleanup, err
		}
		cleanup = store.Close
		runID, err := store.BeginRun(p.Name, cfg.Seed)
		if err != nil {
			_ = store.Close()
			return nil, nil, func() error { return nil }, err
		}
		logrus.Infof("recording history of run %s into %s", runID, cfg.History)
		_, _ = fmt.Fprintf(w, "History run: %s (%s)\n", runID, cfg.History)
		opts = append(opts, sim.WithHistory(store))
	}

	s, err := sim.New(p, simCfg, opts...)
	if err != nil {
		_ = cleanup()
		return nil, nil, func() error { return nil }, err
	}
	return s, reg, cleanup, nil
}

// runSimulation runs cfg to the end time and prints the report. Categories without a configured
// heuristic fall back to DefaultHeuristics.
func runSimulation(cfg *RunConfig, w io.Writer) (err error) {
	simCfg := cfg.SimConfig()
	for cat, name := range DefaultHeuristics {
		if _, ok := simCfg.Heuristics[cat]; !ok {
			simCfg.Heuristics[cat] = name
		}
	}
	s, reg, cleanup, err := newSimulator(cfg, simCfg, w)
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err != nil {
		return err
	}
	if err := s.RunUntilDecision(); err != nil {
		return err
	}
	if d := s.Pending(); d != nil {
		return fmt.Errorf("t=%d: %s decision for %q is still open",
			s.Clock(), d.Category, d.Subject)
	}
	s.Report().Print(w)
	if reg != nil {
		return writeMetrics(w, reg)
	}
	return nil
}

// writeMetrics prints every gathered sample as "name{labels} value", sorted by name.
func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	_, _ = fmt.Fprintln(w, "=== Metrics ===")
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			value := m.GetCounter().GetValue() + m.GetGauge().GetValue()
			if len(labels) == 0 {
				_, _ = fmt.Fprintf(w, "%s %g\n", mf.GetName(), value)
				continue
			}
			_, _ = fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags attaches the run configuration flags shared by run and plan.
func registerRunFlags(c *cobra.Command) {
	c.Flags().StringVar(&configPath, "config", "", "Run config file (default: shopsim.yaml in . or ./config)")
	c.Flags().StringVar(&plantPath, "plant", "", "Plant definition (YAML)")
	c.Flags().Int64Var(&seed, "seed", 42, "Seed for supply draws and random heuristics")
	c.Flags().Int64Var(&startTime, "start", 0, "Simulation start time (s)")
	c.Flags().Int64Var(&endTime, "end", 86400, "Simulation end time (s)")
	c.Flags().StringVar(&wsSeq, "ws-seq", "", "Workstation sequencing heuristic (FIFO, LPT, SPT, EDF, LOR, MOR, RANDOM, EXPR)")
	c.Flags().StringVar(&wsRoute, "ws-route", "", "Workstation routing heuristic (LQO, LQPO, LQT, RANDOM, EXPR)")
	c.Flags().StringVar(&trRoute, "tr-route", "", "Transport routing heuristic (CT, LQTO, RANDOM, EXPR)")
	c.Flags().StringVar(&trSeq, "tr-seq", "", "Transport sequencing heuristic (CD, FIFO, RANDOM, EXPR)")
	c.Flags().StringVar(&historyPath, "history", "", "sqlite database receiving the recorded histories")
	c.Flags().BoolVar(&printMetrics, "metrics", false, "Print prometheus KPIs after the run")
	c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd)
	registerRunFlags(planCmd)

	validateCmd.Flags().StringVar(&plantPath, "plant", "", "Plant definition (YAML)")
	validateCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
}
