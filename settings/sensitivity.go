package settings

import (
	"strings"

	"github.com/pkg/errors"
)

// Sensitivity is the ordered detector sensitivity level.
type Sensitivity int

const (
	// None disables detection: every frame reports "not detected".
	None Sensitivity = iota - 1
	Low
	Medium
	High
)

var sensitivityNames = map[Sensitivity]string{
	None:   "NONE",
	Low:    "LOW",
	Medium: "MEDIUM",
	High:   "HIGH",
}

// String returns the upper-case level name.
func (s Sensitivity) String() string {
	if name, ok := sensitivityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the defined levels.
func (s Sensitivity) Valid() bool {
	_, ok := sensitivityNames[s]
	return ok
}

// ParseSensitivity parses a level name, case-insensitively.
func ParseSensitivity(s string) (Sensitivity, error) {
	for level, name := range sensitivityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return level, nil
		}
	}
	return None, errors.Errorf("unknown sensitivity %q", s)
}

// AreaRatioScale multiplies the background detector's minimum contour area ratio.
// Higher sensitivity accepts smaller moving areas.
func (s Sensitivity) AreaRatioScale() float64 {
	switch s {
	case Low:
		return 2
	case High:
		return 0.5
	default:
		return 1
	}
}

// DiffThreshold is the silhouette threshold used by the motion-history detector.
func (s Sensitivity) DiffThreshold() uint8 {
	switch s {
	case Low:
		return 50
	case High:
		return 15
	default:
		return 30
	}
}

// ScaleFactor is the cascade classifier's pyramid scale step.
func (s Sensitivity) ScaleFactor() float64 {
	switch s {
	case Low:
		return 1.3
	case High:
		return 1.05
	default:
		return 1.1
	}
}

// MinNeighbors is the number of overlapping cascade hits required to keep a candidate.
func (s Sensitivity) MinNeighbors() int {
	switch s {
	case Low:
		return 5
	case High:
		return 2
	default:
		return 3
	}
}
