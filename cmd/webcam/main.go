//go:build withcv

// Command webcam runs a detector on a live capture device and shows the annotated frames.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/controller"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/vision/cv"
)

func main() {
	cfg := config.Load()
	deviceID := flag.Int("device", 0, "Video capture device")
	flag.StringVar(&cfg.Variant, "variant", string(controller.Cascade), "Detector: background, history, cascade or vehicle")
	flag.StringVar(&cfg.ObjectKind, "kind", detector.KindFace.String(), "Object kind of the cascade detector")
	flag.StringVar(&cfg.Cascade, "cascade", "haarcascade_frontalface_default.xml", "Cascade file of the cascade detector")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	s, err := cfg.Settings()
	if err != nil {
		logger.Error("invalid settings", "error", err)
		os.Exit(1)
	}
	variant, err := cfg.DetectorVariant()
	if err != nil {
		logger.Error("invalid variant", "error", err)
		os.Exit(1)
	}
	opts := controller.Options{Logger: logger, CascadePath: cfg.Cascade, VehicleDir: cfg.VehicleDir}
	if opts.Kind, err = cfg.Kind(); err != nil {
		logger.Error("invalid kind", "error", err)
		os.Exit(1)
	}

	det, err := controller.New(variant, cv.New(logger), s, opts)
	if err != nil {
		logger.Error("detector not created", "error", err)
		os.Exit(1)
	}
	guarded := controller.Guard(det)
	defer guarded.Close()

	webcam, err := gocv.OpenVideoCapture(*deviceID)
	if err != nil {
		logger.Error("cannot open device", "device", *deviceID, "error", err)
		return
	}
	defer webcam.Close()

	window := gocv.NewWindow("go-detect")
	defer window.Close()

	img := gocv.NewMat()
	defer img.Close()

	p := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{ReportInterval: 5 * time.Second, Logger: logger})
	p.Start()
	defer p.Stop()

	if err := guarded.BeforeClip(s); err != nil {
		logger.Error("detector not ready", "error", err)
		return
	}
	defer guarded.AfterClip()

	stride := s.FrameToDetect
	if stride < 1 {
		stride = 1
	}

	start := time.Now()
	shown := gocv.NewMat()
	defer shown.Close()

	logger.Info("reading camera", "device", *deviceID, "variant", variant, "stride", stride)
	for n := 0; ; n++ {
		if ok := webcam.Read(&img); !ok {
			logger.Warn("cannot read device", "device", *deviceID)
			return
		}
		if img.Empty() {
			continue
		}

		if n%stride == 0 {
			if annotated, ok := detect(guarded, img, time.Since(start), s, p, logger); ok {
				shown.Close()
				shown = annotated
			}
		}
		if shown.Empty() {
			window.IMShow(img)
		} else {
			window.IMShow(shown)
		}
		if window.WaitKey(1) == 27 {
			return
		}
	}
}

// detect runs det on one captured frame and returns the annotated frame as a Mat.
func detect(det detector.Detector, img gocv.Mat, ts time.Duration, s settings.Settings, p *profiler.RuntimeProfiler, logger *slog.Logger) (gocv.Mat, bool) {
	frame, err := cv.FromMat(img, ts)
	if err != nil {
		logger.Warn("frame conversion failed", "error", err)
		return gocv.Mat{}, false
	}
	if frame, err = images.Normalize(frame); err != nil {
		logger.Warn("frame conversion failed", "error", err)
		return gocv.Mat{}, false
	}

	done := p.StartOperation("detect")
	res, err := det.Detect(frame, s.Region)
	done()
	if err != nil {
		logger.Warn("detection failed", "error", err)
		return gocv.Mat{}, false
	}
	if res.Detected {
		logger.Info("detected", "kind", res.Kind, "shapes", len(res.Shapes), "elapsed", res.Elapsed)
	}

	m, err := cv.ToMat(res.Frame)
	if err != nil {
		logger.Warn("frame conversion failed", "error", err)
		return gocv.Mat{}, false
	}
	return m, true
}
