package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"persistbench/benchmark"
	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/insert"
	"persistbench/benchmark/update"
	"persistbench/config"
	"persistbench/metrics"
	"persistbench/report"
	"persistbench/runner"

	_ "persistbench/benchmark/engines/badger"
	_ "persistbench/benchmark/engines/bolt"
	_ "persistbench/benchmark/engines/memory"
	_ "persistbench/benchmark/engines/native"
	_ "persistbench/benchmark/engines/pebble"
	_ "persistbench/benchmark/engines/redis"
	_ "persistbench/benchmark/engines/riak"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		noLog bool
		level string
	)
	rootCmd := &cobra.Command{
		Use:   "persistbench",
		Short: "Compare persistence backends on the same workload",
		Long: `persistbench runs identical insert and update workloads against two or more
storage backends and reports the average time per operation, the fastest
backend and its improvement over the slowest.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(noLog, level)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&noLog, "no-log", false, "Disable logging")
	rootCmd.PersistentFlags().StringVar(&level, "level", "info", "Log level (debug|info|warn)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newBackendsCmd())

	return rootCmd.ExecuteContext(context.Background())
}

// Prepare zerolog
func setupLogging(disableLog bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var zlevel zerolog.Level
	switch {
	case disableLog:
		zlevel = zerolog.Disabled
	case level == "info":
		zlevel = zerolog.InfoLevel
	case level == "warn":
		zlevel = zerolog.WarnLevel
	default:
		zlevel = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(zlevel)
}

func newRunCmd() *cobra.Command {
	var (
		conf        string
		records     int
		repetitions int
		phases      []string
		format      string
		metricsFile string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmarks described in a config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := config.Load(conf)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("records") {
				args.Records = records
			}
			if flags.Changed("repetitions") {
				args.Repetitions = repetitions
			}
			if flags.Changed("phase") {
				args.Phases = phases
			}
			if flags.Changed("format") {
				args.Format = format
			}
			if flags.Changed("metrics-file") {
				args.MetricsFile = metricsFile
			}
			if err := args.Validate(); err != nil {
				return err
			}
			if !slices.Contains(report.Formats, args.Format) {
				return fmt.Errorf("unknown report format %q (available: %s)", args.Format, strings.Join(report.Formats, ", "))
			}

			return runBenchmarks(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVar(&conf, "conf", "", "Path to the YAML config file")
	cmd.Flags().IntVar(&records, "records", config.DefaultRecords, "Records per workload")
	cmd.Flags().IntVar(&repetitions, "repetitions", config.DefaultRepetitions, "Timed repetitions per operation")
	cmd.Flags().StringSliceVar(&phases, "phase", nil, "Phase to run (insert|update), repeatable")
	cmd.Flags().StringVar(&format, "format", config.DefaultFormat, "Report format ("+strings.Join(report.Formats, "|")+")")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	_ = cmd.MarkFlagRequired("conf")
	return cmd
}

// buildTargets opens every configured backend. On failure the ones already open
// are closed again.
func buildTargets(ctx context.Context, backends []config.Backend) ([]benchmark.Target, error) {
	targets := make([]benchmark.Target, 0, len(backends))
	for _, b := range backends {
		be, err := engine.New(ctx, b.Engine, b.Options)
		if err != nil {
			closeTargets(targets)
			return nil, fmt.Errorf("backend %q: %w", b.Name, err)
		}
		targets = append(targets, benchmark.Target{Name: b.Name, Backend: be})
	}
	return targets, nil
}

func closeTargets(targets []benchmark.Target) {
	for _, t := range targets {
		if err := t.Backend.Close(); err != nil {
			zlog.Warn().Str("backend", t.Name).Err(err).Msg("Close failed")
		}
	}
}

func runBenchmarks(ctx context.Context, args *config.Args) error {
	targets, err := buildTargets(ctx, args.Backends)
	if err != nil {
		return err
	}
	defer closeTargets(targets)

	var m *metrics.Metrics
	cfg := runner.Config{Records: args.Records, Repetitions: args.Repetitions, RunID: uuid.NewString()}
	if args.MetricsFile != "" {
		m = metrics.New()
		cfg.Observer = m
	}

	r, err := runner.New(cfg, targets...)
	if err != nil {
		return err
	}

	var benchmarks []benchmark.Benchmark
	if args.HasPhase(config.PhaseInsert) {
		benchmarks = append(benchmarks, insert.New())
	}
	if args.HasPhase(config.PhaseUpdate) {
		benchmarks = append(benchmarks, update.New())
	}

	results, err := r.Run(ctx, benchmarks...)
	if err != nil {
		return err
	}

	err = report.Render(os.Stdout, results, report.Options{
		Format:      args.Format,
		Records:     r.Records(),
		Repetitions: r.Repetitions(),
		RunID:       cfg.RunID,
	})
	if m != nil {
		err = errors.Join(err, m.WriteTextfile(args.MetricsFile))
	}
	return err
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available backends and their default options",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"Engine", "Option", "Default"})
			for _, name := range engine.ListEngines() {
				defaults := engine.GetDefaults(name)
				keys := make([]string, 0, len(defaults))
				for k := range defaults {
					keys = append(keys, k)
				}
				slices.Sort(keys)
				if len(keys) == 0 {
					tw.AppendRow(table.Row{name, "", ""})
				}
				for _, k := range keys {
					tw.AppendRow(table.Row{name, k, defaults[k]})
				}
				tw.AppendSeparator()
			}
			tw.Render()
			return nil
		},
	}
}
