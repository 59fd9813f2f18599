package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/orbiter/core"
	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/observability"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
	"github.com/signalsfoundry/orbiter/internal/render/svg"
	"github.com/signalsfoundry/orbiter/internal/render/term"
	"github.com/signalsfoundry/orbiter/model"
	"github.com/signalsfoundry/orbiter/timectrl"
)

// Config holds the command line.
type Config struct {
	SemiMajorAxis string
	Eccentricity  string
	Rate          string
	Body          string
	Name          string
	TLE1          string
	TLE2          string
	At            time.Time // TLE propagation instant; zero means now
	Motion        string
	Format        string // svg | json | term
	Out           string
	Static        bool

	Duration    time.Duration
	Tick        time.Duration
	Accelerated bool
}

func parseFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("orbiter", flag.ContinueOnError)
	fs.StringVar(&cfg.SemiMajorAxis, "sma", "1", "semi-major axis in AU")
	fs.StringVar(&cfg.Eccentricity, "ecc", "0.0167", "eccentricity, 0 <= e < 1")
	fs.StringVar(&cfg.Rate, "rate", "", "animation rate in simulated years per second (default 0.2)")
	fs.StringVar(&cfg.Body, "body", "", "catalog body to draw instead of -sma/-ecc, e.g. mars or halley")
	fs.StringVar(&cfg.Name, "name", "", "label for the orbiting body")
	fs.StringVar(&cfg.TLE1, "tle1", "", "first TLE line of an Earth satellite")
	fs.StringVar(&cfg.TLE2, "tle2", "", "second TLE line of an Earth satellite")
	at := fs.String("at", "", "TLE propagation time, RFC 3339 (default now)")
	fs.StringVar(&cfg.Motion, "motion", "arc-length", "body motion: arc-length, kepler or static")
	fs.StringVar(&cfg.Format, "format", "svg", "output format: svg, json or term")
	fs.StringVar(&cfg.Out, "out", "", "output file (default stdout)")
	fs.BoolVar(&cfg.Static, "static", false, "svg: draw the body at periapsis without animation")
	fs.DurationVar(&cfg.Duration, "duration", 0, "term: stop after this much animation time (0 runs until q)")
	fs.DurationVar(&cfg.Tick, "tick", 50*time.Millisecond, "term: frame interval")
	fs.BoolVar(&cfg.Accelerated, "accelerated", false, "term: advance frames as fast as possible")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return Config{}, fmt.Errorf("parse -at: %w", err)
		}
		cfg.At = t
	}
	switch cfg.Format {
	case "svg", "json", "term":
	default:
		return Config{}, fmt.Errorf("unknown format %q", cfg.Format)
	}
	if cfg.Tick <= 0 {
		return Config{}, fmt.Errorf("-tick must be positive, got %v", cfg.Tick)
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Diagrams go to stdout, so logs and traces go to stderr.
	log := logging.NewFromEnv(os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tcfg := observability.TracingConfigFromEnv("orbiter")
	tcfg.Writer = os.Stderr
	shutdownTracing, err := observability.InitTracing(ctx, tcfg, log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", logging.Err(err))
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	if err := run(ctx, cfg, log, os.Stdout); err != nil {
		log.Error(ctx, "orbiter failed", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log logging.Logger, stdout io.Writer) error {
	svc := orbiter.NewService(log)
	scene, err := buildScene(ctx, svc, cfg)
	if err != nil {
		return err
	}

	if cfg.Format == "term" {
		return animate(ctx, cfg, scene, log)
	}

	out := stdout
	if cfg.Out != "" {
		f, err := os.Create(cfg.Out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch cfg.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scene.View())
	default:
		return svg.Render(out, scene, svg.Options{Static: cfg.Static})
	}
}

func buildScene(ctx context.Context, svc *orbiter.Service, cfg Config) (orbiter.Scene, error) {
	motion, err := core.ParseMotionKind(cfg.Motion)
	if err != nil {
		return orbiter.Scene{}, err
	}
	in, err := orbiter.ParseInput(cfg.SemiMajorAxis, cfg.Eccentricity, cfg.Rate)
	if err != nil {
		return orbiter.Scene{}, err
	}

	switch {
	case cfg.TLE1 != "" || cfg.TLE2 != "":
		at := cfg.At
		if at.IsZero() {
			at = time.Now()
		}
		return svc.SetOrbitFromTLE(ctx, cfg.Name, cfg.TLE1, cfg.TLE2, at, in.AnimationRate, motion)
	case strings.TrimSpace(cfg.Body) != "":
		return svc.SetOrbitForBody(ctx, cfg.Body, in.AnimationRate, motion)
	}
	in.Motion = motion
	in.Body = model.Body{Name: cfg.Name}
	return svc.SetOrbit(ctx, in)
}

func animate(ctx context.Context, cfg Config, scene orbiter.Scene, log logging.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	mode := timectrl.RealTime
	if cfg.Accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTimeController(cfg.Tick, mode)
	return term.NewAnimator(screen, scene, term.WithLogger(log)).Run(ctx, tc, cfg.Duration)
}
