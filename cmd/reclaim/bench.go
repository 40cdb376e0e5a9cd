package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/reclaim/internal/simulation"
	"github.com/ajitpratap0/reclaim/pkg/config"
	"github.com/ajitpratap0/reclaim/pkg/jsonpool"
	"github.com/ajitpratap0/reclaim/pkg/logger"
	"github.com/ajitpratap0/reclaim/pkg/metrics"
)

// benchFlags are the settings that only exist on the command line.
type benchFlags struct {
	configFile string
	jsonReport bool
	verify     bool
	otelStdout bool
	linger     time.Duration
	profileDir string
	cpuProfile bool
	memProfile bool
}

// flagKeys maps each overriding flag to its configuration key. Every key can
// also be set with a RECLAIM_ environment variable, e.g.
// RECLAIM_WORKLOAD_FRAMES=100. The root's logging flags are bound the same
// way by rootFlagKeys once the command tree is assembled.
var flagKeys = map[string]string{
	"kind":         "pool.kind",
	"prewarm":      "pool.prewarm",
	"workers":      "workload.workers",
	"frames":       "workload.frames",
	"objects":      "workload.objects_per_frame",
	"payload":      "workload.payload_bytes",
	"reject-every": "workload.reject_every",
	"timeout":      "workload.timeout",
	"compress":     "compression.algorithm",
	"level":        "compression.level",
	"metrics-addr": "observability.metrics_addr",
}

var rootFlagKeys = map[string]string{
	"log-level":  "observability.log_level",
	"log-format": "observability.log_encoding",
}

func newBenchCmd() *cobra.Command {
	var (
		flags benchFlags
		v     *viper.Viper
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the frame-loop workload against a pool",
		Long: `Run the frame-loop workload against a pool and print a report.

Settings come from the defaults, then the --config file, then RECLAIM_*
environment variables, then flags.

Example:
  reclaim bench --kind fixed --workers 4 --frames 1000 --objects 512 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for name, key := range rootFlagKeys {
				if f := cmd.Flag(name); f != nil {
					_ = v.BindPFlag(key, f)
				}
			}
			cfg, err := loadBenchConfig(v, flags.configFile)
			if err != nil {
				return err
			}
			return runBench(cmd, cfg, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configFile, "config", "c", "", "Path to a YAML bench configuration")
	f.BoolVar(&flags.jsonReport, "json", false, "Print the report as JSON")
	f.BoolVar(&flags.verify, "verify", false, "Fail if a particle is rented twice in one frame")
	f.BoolVar(&flags.otelStdout, "otel-stdout", false, "Export traces and pool metrics through OpenTelemetry to stderr")
	f.DurationVar(&flags.linger, "linger", 0, "Keep serving metrics for this long after the run")
	f.StringVar(&flags.profileDir, "profile-dir", "profiles", "Directory for pprof output")
	f.BoolVar(&flags.cpuProfile, "cpuprofile", false, "Write a CPU profile")
	f.BoolVar(&flags.memProfile, "memprofile", false, "Write a heap profile")

	f.String("kind", config.KindTiered, "Pool kind (stack, fixed, tiered)")
	f.Int("prewarm", 0, "Objects to create before the run")
	f.Int("workers", 0, "Worker goroutines (0 = one per CPU)")
	f.Int("frames", 600, "Frames per worker")
	f.Int("objects", 256, "Objects rented per frame")
	f.Int("payload", 64, "Payload bytes per object")
	f.Int("reject-every", 0, "Refuse every Nth returned object (0 = never)")
	f.Duration("timeout", 0, "Stop the run after this long (0 = none)")
	f.String("compress", "", "Compress each frame's payloads (gzip, deflate, snappy, lz4, zstd, s2)")
	f.String("level", "default", "Compression level (fastest, default, better, best)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	v = bindBenchFlags(f)
	return cmd
}

// bindBenchFlags returns a viper instance reading RECLAIM_ environment
// variables and the overriding flags of f.
func bindBenchFlags(f *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RECLAIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for name, key := range flagKeys {
		_ = v.BindPFlag(key, f.Lookup(name))
	}
	return v
}

// loadBenchConfig layers the config file, environment and flags over the
// defaults. Only keys explicitly set in the environment or on the command line
// override the file.
func loadBenchConfig(v *viper.Viper, path string) (*config.BenchConfig, error) {
	cfg := config.NewBenchConfig("reclaim")
	if path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	setString("pool.kind", &cfg.Pool.Kind)
	setInt("pool.prewarm", &cfg.Pool.Prewarm)
	setInt("workload.workers", &cfg.Workload.Workers)
	setInt("workload.frames", &cfg.Workload.Frames)
	setInt("workload.objects_per_frame", &cfg.Workload.ObjectsPerFrame)
	setInt("workload.payload_bytes", &cfg.Workload.PayloadBytes)
	setInt("workload.reject_every", &cfg.Workload.RejectEvery)
	if v.IsSet("workload.timeout") {
		cfg.Workload.Timeout = v.GetDuration("workload.timeout")
	}
	if v.IsSet("compression.algorithm") {
		cfg.Compression.Algorithm = v.GetString("compression.algorithm")
		cfg.Compression.Enabled = cfg.Compression.Algorithm != ""
	}
	setString("compression.level", &cfg.Compression.Level)
	setString("observability.log_level", &cfg.Observability.LogLevel)
	setString("observability.log_encoding", &cfg.Observability.LogEncoding)
	setString("observability.metrics_addr", &cfg.Observability.MetricsAddr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runBench(cmd *cobra.Command, cfg *config.BenchConfig, flags benchFlags) error {
	// The layered config decides logging; explicit root log flags are bound into it.
	if err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Encoding:    cfg.Observability.LogEncoding,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, logger.RunIDKey, fmt.Sprintf("%s-%d", cfg.Name, time.Now().Unix()))
	log := logger.WithContext(ctx)

	registry := metrics.NewRegistry()

	if flags.otelStdout {
		tel, err := startTelemetry(cmd.ErrOrStderr(), registry, cfg.Observability.SampleInterval)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				log.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv, err := startMetricsServer(addr, registry, log)
		if err != nil {
			return err
		}
		defer func() {
			if flags.linger > 0 {
				log.Info("lingering for scrapes", zap.String("addr", srv.Addr()), zap.Duration("linger", flags.linger))
				select {
				case <-time.After(flags.linger):
				case <-ctx.Done():
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	runCfg := simulation.FromBench(cfg)
	runCfg.Registry = registry
	runCfg.Verify = flags.verify
	runCfg.ProfileDir = flags.profileDir
	runCfg.CPUProfile = flags.cpuProfile
	runCfg.MemProfile = flags.memProfile

	report, err := simulation.Run(ctx, runCfg, logger.Get())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.jsonReport || cfg.Observability.ReportFormat == "json" {
		return jsonpool.Default().Encode(out, report, "  ")
	}
	return report.WriteText(out)
}
