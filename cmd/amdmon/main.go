package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"amdmon/internal/config"
	"amdmon/internal/export"
	"amdmon/internal/logging"
	"amdmon/internal/session"
	"amdmon/internal/telemetry"
	"amdmon/internal/tui"
)

const version = "0.1.0"

type cliOptions struct {
	configPath string
	once       bool
	save       bool
	watch      bool
	listen     string
	interval   float64
	fast       bool
	slow       bool
	debug      bool
	quiet      bool
	amdsmiOnly bool
	rocmOnly   bool
	version    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	if opts.version {
		fmt.Printf("amdmon version %s\n", version)
		return 0
	}

	if opts.fast && opts.slow {
		fmt.Fprintln(os.Stderr, "Error: --fast and --slow are mutually exclusive")
		return 1
	}
	if opts.amdsmiOnly && opts.rocmOnly {
		fmt.Fprintln(os.Stderr, "Error: --amdsmi-only and --rocmsmi-only are mutually exclusive")
		return 1
	}

	cfg, repairs, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	applyFlagOverrides(&cfg, opts)
	repairs = append(repairs, cfg.Normalize()...)

	logger, err := buildLogger(&cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Close()
	for _, repair := range repairs {
		logger.Warn("config.repaired", repair, nil)
	}

	candidates := buildCandidates(&cfg, logger)
	printBanner(&cfg)

	sources := telemetry.Discover(candidates, logger)
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "No GPU telemetry sources available.")
		fmt.Fprintln(os.Stderr, "Install the AMD SMI library or the rocm-smi tool and try again.")
		return 1
	}
	printAvailability(&cfg, sources)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observer session.Observer
	if cfg.Export.ListenAddress != "" {
		exporter := export.New()
		observer = exporter
		go func() {
			if err := exporter.Serve(ctx, cfg.Export.ListenAddress, logger); err != nil {
				logger.Error("export.serve.failed", "Metrics listener failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	if opts.watch {
		model := tui.NewModel(logger, sources, cfg.Interval())
		if observer != nil {
			model = model.WithObserver(observer)
		}
		if err := tui.Run(model); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	sess := session.New(&cfg, sources, logger, session.Options{
		Save:     opts.save,
		Stdout:   os.Stdout,
		Observer: observer,
	})

	if opts.once {
		sess.RunOnce()
		return 0
	}

	fmt.Printf("Monitoring session %s started. Press Ctrl+C to stop.\n", sess.ID())
	if err := sess.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() cliOptions {
	var opts cliOptions

	pflag.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file")
	pflag.BoolVar(&opts.once, "once", false, "sample once, print status, exit")
	pflag.BoolVarP(&opts.save, "save", "s", false, "persist record streams and reports to the data directory")
	pflag.BoolVarP(&opts.watch, "watch", "w", false, "live terminal dashboard")
	pflag.StringVarP(&opts.listen, "listen", "l", "", "expose Prometheus metrics on this address (e.g. :9402)")
	pflag.Float64VarP(&opts.interval, "interval", "i", 0, "sampling interval in seconds")
	pflag.BoolVar(&opts.fast, "fast", false, fmt.Sprintf("shorthand for --interval %.1f", config.FastIntervalSeconds))
	pflag.BoolVar(&opts.slow, "slow", false, fmt.Sprintf("shorthand for --interval %.1f", config.SlowIntervalSeconds))
	pflag.BoolVar(&opts.debug, "debug", false, "verbose logging")
	pflag.BoolVarP(&opts.quiet, "quiet", "q", false, "errors only")
	pflag.BoolVar(&opts.amdsmiOnly, "amdsmi-only", false, "restrict discovery to the AMD SMI library backend")
	pflag.BoolVar(&opts.rocmOnly, "rocmsmi-only", false, "restrict discovery to the rocm-smi tool backend")
	pflag.BoolVarP(&opts.version, "version", "V", false, "print version and exit")
	pflag.Parse()

	return opts
}

func applyFlagOverrides(cfg *config.Config, opts cliOptions) {
	switch {
	case opts.interval > 0:
		cfg.Sampling.IntervalSeconds = opts.interval
	case opts.fast:
		cfg.Sampling.IntervalSeconds = config.FastIntervalSeconds
	case opts.slow:
		cfg.Sampling.IntervalSeconds = config.SlowIntervalSeconds
	}

	if opts.listen != "" {
		cfg.Export.ListenAddress = opts.listen
	}
	if opts.amdsmiOnly {
		cfg.Backends.AMDSMI = true
		cfg.Backends.ROCmSMI = false
	}
	if opts.rocmOnly {
		cfg.Backends.AMDSMI = false
		cfg.Backends.ROCmSMI = true
	}
}

func buildLogger(cfg *config.Config, opts cliOptions) (*logging.Logger, error) {
	level := logging.VerbosityLevel(opts.debug, opts.quiet, logging.Level(cfg.Logging.Level))
	if cfg.Logging.File != "" {
		return logging.NewFileLogger(level, cfg.Logging.File)
	}
	return logging.NewLogger(level), nil
}

func buildCandidates(cfg *config.Config, logger *logging.Logger) []telemetry.Source {
	var candidates []telemetry.Source
	if cfg.Backends.AMDSMI {
		candidates = append(candidates, telemetry.NewAMDSMISource(logger))
	}
	if cfg.Backends.ROCmSMI {
		candidates = append(candidates, telemetry.NewROCmSMISource(cfg.ToolTimeout(), logger))
	}
	return candidates
}

func printBanner(cfg *config.Config) {
	fmt.Printf("amdmon %s\n", version)
	fmt.Printf("Backends: amdsmi=%s rocmsmi=%s\n",
		enabledString(cfg.Backends.AMDSMI), enabledString(cfg.Backends.ROCmSMI))
	fmt.Printf("Sampling interval: %.1fs\n", cfg.Sampling.IntervalSeconds)
}

func printAvailability(cfg *config.Config, sources []telemetry.Source) {
	active := make(map[string]bool, len(sources))
	for _, src := range sources {
		active[src.Name()] = true
	}

	if cfg.Backends.AMDSMI && !active[telemetry.SourceAMDSMI] && active[telemetry.SourceROCmSMI] {
		fmt.Println("AMD SMI not available, falling back to ROCm-SMI")
	}
	for _, src := range sources {
		fmt.Printf("Using telemetry source: %s\n", src.Name())
	}
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
