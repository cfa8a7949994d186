// Package detector defines the contract shared by every frame detector.
package detector

import (
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/region"
	"github.com/nvr-ai/go-detect/settings"
)

// Detector analyses one frame at a time.
//
// Implementations keep per-clip state between BeforeClip and AfterClip and are
// not safe for concurrent use; wrap them with controller.Guarded when sharing.
type Detector interface {
	// Detect analyses frame and returns an annotated copy. Shapes outside a
	// non-empty poly are discarded.
	Detect(frame images.Frame, poly region.Polygon) (Result, error)
	// BeforeClip resets per-clip state and applies s.
	BeforeClip(s settings.Settings) error
	// AfterClip releases per-clip resources.
	AfterClip() error
	// Style is the annotation style.
	Style() Style
	// Grayscale reports whether frames are converted to gray before detection.
	Grayscale() bool
	// Family reports whether the detector looks for motion or objects.
	Family() settings.Family
	// Close releases every resource held by the detector.
	Close() error
}

// Result is the outcome of one Detect call.
type Result struct {
	// Detected is true when at least one shape passed every check.
	Detected bool
	// Frame is the annotated copy of the input; the input is never modified.
	Frame images.Frame
	// Shapes are the shapes drawn on Frame, after region filtering, in source coordinates.
	Shapes []images.Rect
	// Kind is the object class for object detectors, KindUnknown otherwise.
	Kind Kind
	// Elapsed is the time spent in Detect.
	Elapsed time.Duration
}

// Kind is the object class an object detector looks for.
type Kind int

const (
	// KindUnknown is used by motion detectors.
	KindUnknown Kind = iota - 1
	// KindCar selects vehicle detection.
	KindCar
	// KindHuman selects people detection.
	KindHuman
	// KindFace selects face detection.
	KindFace
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindCar:     "car",
	KindHuman:   "human",
	KindFace:    "face",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, errors.Errorf("unknown object kind %q", s)
}

// Style is how detections are drawn.
type Style struct {
	Color     color.RGBA
	Thickness int
}

// DefaultStyle draws in blue with a one pixel line.
var DefaultStyle = Style{Color: color.RGBA{0, 0, 255, 255}, Thickness: 1}

// Stats counts frames across clips. It implements profiler.MetricsCollector.
type Stats struct {
	mu       sync.Mutex
	frames   int
	detected int
	elapsed  time.Duration
}

// Observe adds one result to the counters.
func (s *Stats) Observe(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	if r.Detected {
		s.detected++
	}
	s.elapsed += r.Elapsed
}

// CollectMetrics reports the counters and the mean detect time.
func (s *Stats) CollectMetrics() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[string]float64{
		"frames_total":    float64(s.frames),
		"frames_detected": float64(s.detected),
	}
	if s.frames > 0 {
		m["frame_processing_ms"] = float64(s.elapsed.Microseconds()) / 1e3 / float64(s.frames)
	}
	return m
}
