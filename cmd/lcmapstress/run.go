package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/puzpuzpuz/lcmap/internal/config"
	"github.com/puzpuzpuz/lcmap/internal/logutil"
	"github.com/puzpuzpuz/lcmap/internal/stress"
)

type runFlags struct {
	configFile  string
	workers     int
	ops         int
	keys        int
	capacity    int
	keyKind     string
	mix         string
	seed        int64
	logLevel    string
	metricsAddr string
}

func runCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a concurrent workload against one table and verify it",
		Long: "Run a randomized insert/remove/lookup workload on a single table. " +
			"Every worker owns a disjoint key range, so each result is checked " +
			"against the worker's own history. The table structure and the " +
			"release of every stored handle are verified at the end.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return run(cmd, cfg, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.configFile, "config", "c", "", "configuration file (.yaml, .yml, .toml or .json)")
	flags.IntVarP(&f.workers, "workers", "w", 0, "number of concurrent workers")
	flags.IntVarP(&f.ops, "ops", "n", 0, "operations per worker")
	flags.IntVarP(&f.keys, "keys", "k", 0, "keys owned by each worker")
	flags.IntVar(&f.capacity, "capacity", 0, "number of table buckets")
	flags.StringVar(&f.keyKind, "key-kind", "", "key kind: int or string")
	flags.StringVar(&f.mix, "mix", "", "insert/remove/lookup percentages, e.g. 50/25/25")
	flags.Int64Var(&f.seed, "seed", 0, "seed of the operation sequences (random when unset)")
	flags.StringVar(&f.logLevel, "log-level", "", "log level")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve table gauges for Prometheus on this address during the run")
	return cmd
}

// load reads the configuration file, if any, and applies the flags that
// were set explicitly on top of it.
func (f *runFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		if cfg, err = config.FromFile(f.configFile); err != nil {
			return config.Config{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workload.Workers = f.workers
	}
	if flags.Changed("ops") {
		cfg.Workload.Ops = f.ops
	}
	if flags.Changed("keys") {
		cfg.Workload.Keys = f.keys
	}
	if flags.Changed("capacity") {
		cfg.Capacity = f.capacity
	}
	if flags.Changed("key-kind") {
		cfg.Workload.KeyKind = f.keyKind
	}
	if flags.Changed("mix") {
		mix, err := config.ParseMix(f.mix)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Workload.Mix = mix
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, cfg config.Config, f *runFlags) error {
	logger, err := logutil.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var options []stress.Option
	if cmd.Flags().Changed("seed") {
		options = append(options, stress.WithSeed(f.seed))
	}
	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		options = append(options, stress.WithRegisterer(reg))
		srv := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	runner, err := stress.NewRunner(cfg, logger, options...)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	report, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, stress.ErrViolation) {
			logger.Error("stress run failed", zap.Error(err))
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"ops=%d inserts=%d replaces=%d removes=%d missing=%d hits=%d misses=%d live=%d elapsed=%s\n",
		report.Ops, report.Inserts, report.Replaces, report.Removes, report.Missing,
		report.Hits, report.Misses, report.Live, report.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(cmd.OutOrStdout(), report.Stats.ToString())
	return nil
}
