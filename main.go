package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/controller"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/session"
	"github.com/nvr-ai/go-detect/store"
	"github.com/nvr-ai/go-detect/video"
)

// main analyses every clip of a directory. Flags default to the DETECT_* environment,
// which ./.env may populate.
func main() {
	cfg := config.Load()

	flag.StringVar(&cfg.VideoDir, "dir", cfg.VideoDir, "Directory of clips to analyse")
	flag.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for source and annotated frames (empty: none)")
	flag.StringVar(&cfg.ReportName, "report", cfg.ReportName, "Report file name inside -dir (empty: none)")
	flag.StringVar(&cfg.Variant, "variant", cfg.Variant, "Detector: background, history, cascade or vehicle")
	flag.StringVar(&cfg.ObjectKind, "kind", cfg.ObjectKind, "Object kind of the cascade detector: car, human or face")
	flag.StringVar(&cfg.Sensitivity, "sensitivity", cfg.Sensitivity, "NONE, LOW, MEDIUM or HIGH")
	flag.IntVar(&cfg.Frames, "frames", cfg.Frames, "Frames sampled per clip")
	flag.BoolVar(&cfg.Grayscale, "grayscale", cfg.Grayscale, "Detect on grayscale frames")
	flag.StringVar(&cfg.Region, "region", cfg.Region, "Region polygon as x,y;x,y;... (empty: whole frame)")
	flag.StringVar(&cfg.ScaleBound, "scale-bound", cfg.ScaleBound, "Largest frame handed to classifiers: a name like 720p or WIDTHxHEIGHT")
	flag.StringVar(&cfg.Cascade, "cascade", cfg.Cascade, "Cascade file of the cascade detector")
	flag.StringVar(&cfg.VehicleDir, "vehicle-dir", cfg.VehicleDir, "Directory holding the vehicle cascades")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file receiving every clip report (empty: none)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "DEBUG, INFO, WARN or ERROR")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Label detections and log every frame")
	flag.BoolVar(&cfg.Profile, "profile", cfg.Profile, "Log runtime statistics periodically")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s, err := cfg.Settings()
	if err != nil {
		return err
	}
	variant, err := cfg.DetectorVariant()
	if err != nil {
		return err
	}

	opts := controller.Options{Logger: logger, CascadePath: cfg.Cascade, VehicleDir: cfg.VehicleDir, Kind: detector.KindUnknown}
	if variant == controller.Cascade {
		if opts.Kind, err = cfg.Kind(); err != nil {
			return err
		}
	}

	lib, sources := backends(logger)
	src := video.NewMux(sources...)
	defer src.Close()

	det, err := controller.New(variant, lib, s, opts)
	if err != nil {
		return err
	}
	defer det.Close()

	sessionOpts := []session.Option{session.WithLogger(logger)}

	if cfg.Profile {
		p := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{
			ReportInterval: 5 * time.Second,
			Logger:         logger,
		})
		p.Start()
		defer func() {
			p.Stop()
			p.LogReport()
		}()
		sessionOpts = append(sessionOpts, session.WithProfiler(p))
	}

	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return errors.Wrap(err, "open report store")
		}
		defer st.Close()
		sessionOpts = append(sessionOpts, session.WithSink(st))
	}

	logger.Info("detection run starting",
		"dir", cfg.VideoDir,
		"variant", variant,
		"backend", lib.Name(),
		"sensitivity", s.Sensitivity,
		"frames", s.FramesToSample(),
		"region", s.Region.String(),
		"scale_bound", s.ScaleBound,
		"extensions", src.Extensions(),
	)

	clips, err := session.New(src, sessionOpts...).RunOnDirectory(ctx, det, s, cfg.VideoDir, cfg.ReportName, cfg.OutputDir)
	for _, c := range clips {
		fmt.Println(c.String())
	}
	return err
}
