// Package commands implements the multirw command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/utkarsh5026/multirw/internal/logger"
	"github.com/utkarsh5026/multirw/internal/metrics"
	"github.com/utkarsh5026/multirw/internal/report"
	"github.com/utkarsh5026/multirw/stress"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
)

const envPrefix = "MULTIRW"

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the multirw command with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "multirw [flags] <file>",
		Short: "Concurrent random read/write stress on a single file",
		Long: `multirw spawns several threads that hammer one shared file with bursts
of random-offset, random-size reads and writes for a fixed duration,
either through positional I/O or through a shared memory mapping.

Every flag can also be set through a MULTIRW_<FLAG> environment variable
(dashes become underscores) or a YAML file given with --config.`,
		Args:          cobra.ExactArgs(1),
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadViper(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args[0])
		},
	}

	f := cmd.Flags()
	f.BoolP("bypass-cache", "b", false, "open the file with O_DIRECT")
	f.UintP("duration", "d", uint(stress.DefaultDuration/time.Second), "run time in seconds")
	f.Uint32P("threads", "t", stress.DefaultThreads, "number of concurrent I/O threads")
	f.BoolP("mmap", "m", false, "access the file through a shared memory mapping")
	f.StringP("pattern", "p", "rw", "I/O pattern: read, write or rw (0, 1, 2)")
	f.Uint32P("seed", "s", 0, "base random seed (default: process id)")
	f.CountP("verbose", "v", "print configuration, bursts and tail touches")
	f.StringP("io-size-max", "i", fmt.Sprint(stress.DefaultMaxIOSize), "exclusive upper bound of a transfer size (e.g. 512KiB)")
	f.BoolP("multiple-fd", "F", false, "open one descriptor per thread")
	f.StringP("file-size", "f", fmt.Sprint(stress.DefaultFileSize), "target file size (e.g. 512MiB)")
	f.BoolP("last-chunk", "l", true, "finish each thread with a transfer touching the last byte")
	f.Uint32("burst-count", stress.DefaultBurstCount, "transfers per burst")
	f.Bool("align", false, "align offsets and sizes to the direct I/O block size")
	f.Float64("rate", 0, "per-thread transfer rate limit in IOPS (0 = unlimited)")
	f.Int("rate-burst", 1, "rate limiter burst size")
	f.Bool("pin-cpu", false, "pin each thread to a CPU core")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.StringP("output", "o", report.FormatTable, "summary format: table, json or none")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	f.String("log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")
	f.String("log-format", "text", "log format: text or json")
	f.String("log-output", "stderr", "log output: stdout, stderr or a file path")
	f.String("config", "", "YAML config file")

	return cmd
}

// loadViper binds the flags, the environment and the optional config file.
func loadViper(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// buildConfig turns the merged settings into a validated stress.Config.
func buildConfig(v *viper.Viper, path string) (stress.Config, error) {
	cfg := stress.DefaultConfig(path)

	fileSize, err := humanize.ParseBytes(v.GetString("file-size"))
	if err != nil {
		return cfg, fmt.Errorf("%w: file-size: %v", stress.ErrInvalidConfig, err)
	}
	maxIO, err := humanize.ParseBytes(v.GetString("io-size-max"))
	if err != nil {
		return cfg, fmt.Errorf("%w: io-size-max: %v", stress.ErrInvalidConfig, err)
	}
	if maxIO > uint64(^uint32(0)) {
		return cfg, fmt.Errorf("%w: io-size-max %s does not fit 32 bits", stress.ErrInvalidConfig, humanize.IBytes(maxIO))
	}
	mode, err := stress.ParseIOMode(v.GetString("pattern"))
	if err != nil {
		return cfg, err
	}

	cfg.FileSize = fileSize
	cfg.MaxIOSize = uint32(maxIO)
	cfg.Mode = mode
	cfg.Threads = v.GetUint32("threads")
	cfg.BurstCount = v.GetUint32("burst-count")
	cfg.Duration = time.Duration(v.GetUint("duration")) * time.Second
	cfg.Mapped = v.GetBool("mmap")
	cfg.CacheBypass = v.GetBool("bypass-cache")
	cfg.PerThreadFD = v.GetBool("multiple-fd")
	cfg.TouchFinalChunk = v.GetBool("last-chunk")
	cfg.Verbosity = uint8(min(v.GetInt("verbose"), 255))
	cfg.Align = v.GetBool("align")
	cfg.RateLimit = v.GetFloat64("rate")
	cfg.RateBurst = v.GetInt("rate-burst")
	cfg.PinCPU = v.GetBool("pin-cpu")
	if v.IsSet("seed") {
		cfg.Seed = v.GetUint32("seed")
	}

	return cfg, cfg.Validate()
}

func setupLogger(v *viper.Viper, verbosity uint8) error {
	level := v.GetString("log-level")
	if verbosity > 0 && !v.IsSet("log-level") {
		level = "DEBUG"
	}
	return logger.Init(logger.Config{
		Level:  level,
		Format: v.GetString("log-format"),
		Output: v.GetString("log-output"),
	})
}

func run(cmd *cobra.Command, v *viper.Viper, path string) error {
	cfg, err := buildConfig(v, path)
	if err != nil {
		return err
	}
	if err := setupLogger(v, cfg.Verbosity); err != nil {
		return err
	}
	format, err := report.ParseFormat(v.GetString("output"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := report.NewConsole(cmd.OutOrStdout(), cfg.Verbosity)
	opts := console.Options()

	if addr := v.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		m := metrics.NewMetrics(reg)
		opts = append(opts, m.Options()...)

		srv, err := metrics.Listen(addr, reg)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		logger.Info("serving metrics", "addr", srv.Addr())
	}

	runner, err := stress.NewRunner(cfg, opts...)
	if err != nil {
		return err
	}

	console.Banner(cfg)
	logger.Debug("starting run",
		"path", cfg.Path,
		"file_size", cfg.FileSize,
		"threads", cfg.Threads,
		"mode", cfg.Mode.String(),
		"mmap", cfg.Mapped,
		"bypass_cache", cfg.CacheBypass,
		"multiple_fd", cfg.PerThreadFD)

	var stopProgress func()
	if v.GetBool("progress") && cfg.Duration > 0 {
		stopProgress = report.TrackDuration(ctx, cmd.ErrOrStderr(), cfg.Duration)
	}
	rep, err := runner.Run(ctx)
	if stopProgress != nil {
		stopProgress()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("run interrupted")
		}
		return err
	}

	logger.Debug("run complete", "elapsed", rep.Elapsed, "bursts", rep.Totals().Bursts)
	return report.Write(cmd.OutOrStdout(), rep, format)
}
