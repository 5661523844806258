package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ironsheep/mask-overlay/internal/config"
	"github.com/ironsheep/mask-overlay/internal/detection"
	"github.com/ironsheep/mask-overlay/internal/imaging"
	"github.com/ironsheep/mask-overlay/internal/labels"
	"github.com/ironsheep/mask-overlay/internal/logger"
	"github.com/ironsheep/mask-overlay/internal/metrics"
	"github.com/ironsheep/mask-overlay/internal/segment"
	"github.com/ironsheep/mask-overlay/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `mask-overlay - render instance segmentation masks onto images

Usage:
  mask-overlay render -image IMG -detections FILE [-labels FILE] [-out DIR] [options]
  mask-overlay serve [-config FILE] [-log-level LEVEL]

Commands:
  render     Draw detections onto IMG and write the composite and one
             masked crop per accepted detection to DIR
  serve      Run the MCP tool server on stdin/stdout

Options:
  --version, -v    Print version information
  --help, -h       Print this help message

Run "mask-overlay render -h" for render options.

Environment variables:
  MASK_OVERLAY_LOG_LEVEL=debug         Log level (debug, info, warn, error, silent)
  MASK_OVERLAY_CONFIDENCE_THRESHOLD    Any config key, upper-cased, overrides
                                       the config file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("mask-overlay %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	case "--help", "-h", "help":
		fmt.Print(usage)
	case "render":
		os.Exit(runRender(os.Args[2:], os.Stderr))
	case "serve":
		os.Exit(runServe(os.Args[2:], os.Stderr))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

// loadConfig resolves defaults, the optional YAML file, then environment.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger picks the level from the flag, then MASK_OVERLAY_LOG_LEVEL.
func newLogger(level string, w io.Writer) (*logger.Logger, error) {
	if level == "" {
		level = os.Getenv(config.EnvPrefix + "LOG_LEVEL")
	}
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logger.New(lvl, w), nil
}

type renderFlags struct {
	image, detections, labels, out string
	configPath, metricsOut, level  string

	conf, maskThreshold, alpha float64
	color                      string
	clamp                      bool
	workers                    int
}

func newRenderFlagSet(f *renderFlags, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.image, "image", "", "base image (png, jpeg, gif, bmp)")
	fs.StringVar(&f.detections, "detections", "", "detections JSON file")
	fs.StringVar(&f.labels, "labels", "", "label file, one class name per line")
	fs.StringVar(&f.out, "out", ".", "output directory")
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.metricsOut, "metrics-out", "", "write Prometheus metrics to this file")
	fs.StringVar(&f.level, "log-level", "", "debug, info, warn, error or silent")
	fs.Float64Var(&f.conf, "conf", 0, "confidence threshold (default from config, 0.5)")
	fs.Float64Var(&f.maskThreshold, "mask-threshold", 0, "mask threshold (default from config, 0.3)")
	fs.Float64Var(&f.alpha, "alpha", 0, "overlay alpha (default from config, 0.4)")
	fs.StringVar(&f.color, "color", "", "overlay color #RRGGBB (default from config, #FF0000)")
	fs.BoolVar(&f.clamp, "clamp", false, "clamp boxes to the image before rasterizing")
	fs.IntVar(&f.workers, "workers", 0, "worker goroutines (default from config, NumCPU)")
	return fs
}

// applyFlags copies only the flags given on the command line onto cfg, so
// unset flags never mask the config file or environment.
func applyFlags(fs *flag.FlagSet, f *renderFlags, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "conf":
			cfg.ConfidenceThreshold = f.conf
		case "mask-threshold":
			cfg.MaskThreshold = f.maskThreshold
		case "alpha":
			cfg.OverlayAlpha = f.alpha
		case "color":
			cfg.OverlayColor = f.color
		case "clamp":
			cfg.ClampBoxes = f.clamp
		case "workers":
			cfg.Workers = f.workers
		}
	})
}

func runRender(args []string, stderr io.Writer) int {
	var f renderFlags
	fs := newRenderFlagSet(&f, stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	log, err := newLogger(f.level, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if f.image == "" || f.detections == "" {
		log.Error("main", "-image and -detections are required")
		return 2
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		log.Error("main", "config: %v", err)
		return 1
	}
	applyFlags(fs, &f, &cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("main", "config: %v", err)
		return 1
	}

	base, err := imaging.NewImageCache().Load(f.image)
	if err != nil {
		log.Error("main", "%v", err)
		return 1
	}
	file, err := detection.ReadFile(f.detections)
	if err != nil {
		log.Error("main", "%v", err)
		return 1
	}
	var table *labels.Table
	if f.labels != "" {
		if table, err = labels.Load(f.labels); err != nil {
			log.Error("main", "%v", err)
			return 1
		}
	}
	sink, err := segment.NewDirSink(f.out, cfg)
	if err != nil {
		log.Error("main", "%v", err)
		return 1
	}

	m := metrics.New()
	p, err := segment.New(cfg, table, sink, segment.WithMetrics(m), segment.WithLogger(log))
	if err != nil {
		log.Error("main", "%v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Debug("main", "mask-overlay %s: %s, %d detections, %d labels", Version, f.image, len(file.Detections), table.Len())
	rep, err := p.Run(ctx, imaging.NewCanvas(base), file.Width, file.Height, file.Detections)
	if err != nil {
		log.Error("main", "render: %v", err)
		return 1
	}

	log.Info("main", "%d of %d detections rendered, composite %s", rep.Accepted, rep.Seen, rep.Composite)
	if rep.CompositeErr != nil {
		log.Error("main", "%v", rep.CompositeErr)
	}

	if f.metricsOut != "" {
		if err := m.WriteFile(f.metricsOut); err != nil {
			log.Warn("main", "%v", err)
		}
	}
	return 0
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file")
	level := fs.String("log-level", "", "debug, info, warn, error or silent")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	// stdout is for MCP protocol
	log, err := newLogger(*level, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("main", "config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Error("main", "config: %v", err)
		return 1
	}

	server.Version = Version
	log.Debug("main", "MCP server v%s (built %s, commit %s), workers=%d", Version, BuildTime, GitCommit, cfg.Workers)

	srv := server.New(cfg, log)
	if err := srv.Run(); err != nil {
		log.Error("main", "server error: %v", err)
		return 1
	}
	return 0
}
