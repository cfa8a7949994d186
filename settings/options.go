package settings

import (
	"image"

	"github.com/nvr-ai/go-detect/region"
)

// Option mutates settings under construction and rejects invalid values.
type Option func(*Settings) error

// WithSensitivity sets the sensitivity level.
func WithSensitivity(v Sensitivity) Option {
	return func(s *Settings) error {
		if !v.Valid() {
			return invalid("sensitivity", int(v), "unknown level")
		}
		s.Sensitivity = v
		return nil
	}
}

// WithFrameToDetect sets the live-capture detection stride: every Nth frame is analysed, 0 analyses all.
func WithFrameToDetect(v int) Option {
	return func(s *Settings) error {
		if v < 0 {
			return invalid("frameToDetect", v, "must be >= 0")
		}
		s.FrameToDetect = v
		return nil
	}
}

// WithFramesToAnalyze sets how many frames are sampled per clip.
func WithFramesToAnalyze(v int) Option {
	return func(s *Settings) error {
		if v < s.minFrames() {
			return invalid("framesToAnalyze", v, "too few frames for "+s.Family.String())
		}
		s.FramesToAnalyze = v
		return nil
	}
}

// WithGrayscale toggles conversion to gray before detection.
func WithGrayscale(v bool) Option {
	return func(s *Settings) error {
		s.Grayscale = v
		return nil
	}
}

// WithRegion restricts detections to a polygon. An empty polygon means the whole frame.
func WithRegion(p region.Polygon) Option {
	return func(s *Settings) error {
		if len(p) > 0 && len(p) < 3 {
			return invalid("region", p.String(), "a polygon needs at least 3 vertices")
		}
		s.Region = append(region.Polygon(nil), p...)
		return nil
	}
}

// WithDebugMode enables labels on detections and per-frame log lines.
func WithDebugMode(v bool) Option {
	return func(s *Settings) error {
		s.DebugMode = v
		return nil
	}
}

// WithScaleBound downsizes frames larger than the bound before classification.
func WithScaleBound(width, height int) Option {
	return func(s *Settings) error {
		if width < 0 || height < 0 {
			return invalid("scaleBound", image.Pt(width, height), "must not be negative")
		}
		s.ScaleBound = image.Pt(width, height)
		return nil
	}
}

// WithHistory sets the background model history length.
func WithHistory(v int) Option {
	return func(s *Settings) error {
		if v <= 0 {
			return invalid("history", v, "must be > 0")
		}
		s.Background.History = v
		return nil
	}
}

// WithMixtures sets the number of Gaussian components per pixel.
func WithMixtures(v int) Option {
	return func(s *Settings) error {
		if v <= 0 {
			return invalid("mixtures", v, "must be > 0")
		}
		s.Background.Mixtures = v
		return nil
	}
}

// WithBackgroundRatio sets the background weight threshold.
func WithBackgroundRatio(v float64) Option {
	return func(s *Settings) error {
		if v <= 0 || v > 1 {
			return invalid("backgroundRatio", v, "must be in (0,1]")
		}
		s.Background.BackgroundRatio = v
		return nil
	}
}

// WithNoiseSigma sets the initial component deviation.
func WithNoiseSigma(v float64) Option {
	return func(s *Settings) error {
		if v < 0 {
			return invalid("noiseSigma", v, "must be >= 0")
		}
		s.Background.NoiseSigma = v
		return nil
	}
}

// WithLearningRate sets the background adaptation rate.
func WithLearningRate(v float64) Option {
	return func(s *Settings) error {
		if v < 0 {
			return invalid("learningRate", v, "must be >= 0")
		}
		s.Background.LearningRate = v
		return nil
	}
}

// WithMinContourAreaRatio sets the foreground share that counts as motion.
func WithMinContourAreaRatio(v float64) Option {
	return func(s *Settings) error {
		if v < 0 || v > 1 {
			return invalid("minContourAreaRatio", v, "must be in [0,1]")
		}
		s.Background.MinContourAreaRatio = v
		return nil
	}
}

// WithMorphKernelSize sets the morphology kernel size.
func WithMorphKernelSize(v int) Option {
	return func(s *Settings) error {
		if v < 0 {
			return invalid("morphKernelSize", v, "must be >= 0")
		}
		s.Background.MorphKernelSize = v
		return nil
	}
}

// apply runs opt against a copy and commits it only when it succeeds.
func (s *Settings) apply(opt Option) bool {
	c := *s
	if err := opt(&c); err != nil {
		return false
	}
	*s = c
	return true
}

// The setters below ignore invalid values and report whether the value was taken.

func (s *Settings) SetSensitivity(v Sensitivity) bool { return s.apply(WithSensitivity(v)) }
func (s *Settings) SetFrameToDetect(v int) bool { return s.apply(WithFrameToDetect(v)) }
func (s *Settings) SetFramesToAnalyze(v int) bool { return s.apply(WithFramesToAnalyze(v)) }
func (s *Settings) SetGrayscale(v bool) bool { return s.apply(WithGrayscale(v)) }
func (s *Settings) SetRegion(p region.Polygon) bool { return s.apply(WithRegion(p)) }
func (s *Settings) SetDebugMode(v bool) bool { return s.apply(WithDebugMode(v)) }
func (s *Settings) SetHistory(v int) bool { return s.apply(WithHistory(v)) }
func (s *Settings) SetMixtures(v int) bool { return s.apply(WithMixtures(v)) }
func (s *Settings) SetBackgroundRatio(v float64) bool { return s.apply(WithBackgroundRatio(v)) }
func (s *Settings) SetNoiseSigma(v float64) bool { return s.apply(WithNoiseSigma(v)) }
func (s *Settings) SetLearningRate(v float64) bool { return s.apply(WithLearningRate(v)) }
func (s *Settings) SetMinContourAreaRatio(v float64) bool { return s.apply(WithMinContourAreaRatio(v)) }
func (s *Settings) SetMorphKernelSize(v int) bool { return s.apply(WithMorphKernelSize(v)) }
