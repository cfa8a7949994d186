// Package settings - Validated detection settings shared by the session and the detectors.
package settings

import (
	"image"

	"github.com/nvr-ai/go-detect/region"
)

// Family groups detectors by what they look for.
type Family int

const (
	// Motion detectors report moving areas.
	Motion Family = iota
	// Object detectors report classified objects.
	Object
)

// String returns the family name.
func (f Family) String() string {
	if f == Object {
		return "object"
	}
	return "motion"
}

// DefaultFramesToAnalyze is used when a run asks for one frame or fewer.
const DefaultFramesToAnalyze = 20

// Background holds the background-subtraction tunables.
type Background struct {
	// History is the number of frames that shape the background model.
	History int
	// Mixtures is the number of Gaussian components per pixel.
	Mixtures int
	// BackgroundRatio is the weight share a component needs to count as background.
	BackgroundRatio float64
	// NoiseSigma is the initial standard deviation of new components; 0 lets the library choose.
	NoiseSigma float64
	// LearningRate controls how fast the model adapts.
	LearningRate float64
	// MinContourAreaRatio is the foreground share of the frame that counts as motion.
	MinContourAreaRatio float64
	// MorphKernelSize is the open/close kernel size; 0 disables morphology.
	MorphKernelSize int
}

// Settings is the validated configuration consumed by detectors and sessions.
//
// Settings is a value: treat it as immutable for the duration of a run.
type Settings struct {
	Family          Family
	Sensitivity     Sensitivity
	FrameToDetect   int
	FramesToAnalyze int
	Grayscale       bool
	Region          region.Polygon
	DebugMode       bool
	Background      Background
	// ScaleBound downsizes frames larger than the bound before classification; zero disables it.
	ScaleBound image.Point
}

// DefaultMotion returns the motion detector defaults.
func DefaultMotion() Settings {
	return Settings{
		Family:          Motion,
		Sensitivity:     Medium,
		FrameToDetect:   3,
		FramesToAnalyze: DefaultFramesToAnalyze,
		Grayscale:       true,
		Background: Background{
			History:             3,
			Mixtures:            4,
			BackgroundRatio:     0.8,
			NoiseSigma:          0,
			LearningRate:        0.1,
			MinContourAreaRatio: 0.01,
			MorphKernelSize:     0,
		},
	}
}

// DefaultObject returns the object detector defaults.
func DefaultObject() Settings {
	s := DefaultMotion()
	s.Family = Object
	s.FrameToDetect = 10
	return s
}

// Default returns the defaults of a family.
func Default(f Family) Settings {
	if f == Object {
		return DefaultObject()
	}
	return DefaultMotion()
}

// New builds settings for a family from its defaults and the given options.
//
// Options are applied to a copy; the first invalid option aborts construction.
//
// Arguments:
//   - family: Motion or Object.
//   - opts: Options to apply in order.
//
// Returns:
//   - Settings: The validated settings.
//   - error: A *ConfigurationError if any option is invalid.
//
// @example
// s, err := settings.New(settings.Motion, settings.WithSensitivity(settings.High))
func New(family Family, opts ...Option) (Settings, error) {
	s := Default(family)
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return Settings{}, err
		}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every field against the family constraints.
func (s Settings) Validate() error {
	if !s.Sensitivity.Valid() {
		return invalid("sensitivity", int(s.Sensitivity), "unknown level")
	}
	if s.FrameToDetect < 0 {
		return invalid("frameToDetect", s.FrameToDetect, "must be >= 0")
	}
	if s.FramesToAnalyze < s.minFrames() {
		return invalid("framesToAnalyze", s.FramesToAnalyze, "too few frames for "+s.Family.String())
	}
	if s.ScaleBound.X < 0 || s.ScaleBound.Y < 0 {
		return invalid("scaleBound", s.ScaleBound, "must not be negative")
	}
	if len(s.Region) > 0 && len(s.Region) < 3 {
		return invalid("region", s.Region.String(), "a polygon needs at least 3 vertices")
	}
	return s.Background.validate()
}

func (s Settings) minFrames() int {
	if s.Family == Object {
		return 1
	}
	return 2
}

func (b Background) validate() error {
	switch {
	case b.History <= 0:
		return invalid("history", b.History, "must be > 0")
	case b.Mixtures <= 0:
		return invalid("mixtures", b.Mixtures, "must be > 0")
	case b.BackgroundRatio <= 0 || b.BackgroundRatio > 1:
		return invalid("backgroundRatio", b.BackgroundRatio, "must be in (0,1]")
	case b.NoiseSigma < 0:
		return invalid("noiseSigma", b.NoiseSigma, "must be >= 0")
	case b.LearningRate < 0:
		return invalid("learningRate", b.LearningRate, "must be >= 0")
	case b.MinContourAreaRatio < 0 || b.MinContourAreaRatio > 1:
		return invalid("minContourAreaRatio", b.MinContourAreaRatio, "must be in [0,1]")
	case b.MorphKernelSize < 0:
		return invalid("morphKernelSize", b.MorphKernelSize, "must be >= 0")
	}
	return nil
}

// FramesToSample returns FramesToAnalyze, falling back to the default when it is 1 or less.
func (s Settings) FramesToSample() int {
	if s.FramesToAnalyze <= 1 {
		return DefaultFramesToAnalyze
	}
	return s.FramesToAnalyze
}
