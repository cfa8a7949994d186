// Package report aggregates per-frame detection results into per-clip reports.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
)

// Frame is the outcome of one analysed frame, kept for object detection runs.
type Frame struct {
	Position time.Duration `json:"position"`
	Detected bool          `json:"detected"`
	Kind     detector.Kind `json:"kind"`
	Shapes   []images.Rect `json:"shapes"`
	Elapsed  time.Duration `json:"elapsed"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
}

// String renders the frame details.
func (f Frame) String() string {
	shapes := make([]string, len(f.Shapes))
	for i, s := range f.Shapes {
		shapes[i] = s.String()
	}
	return fmt.Sprintf("Frame [position=%d ms, width=%d, height=%d, detected=%t, kind=%s, shapes=[%s], processingTime=%d ms]",
		f.Position.Milliseconds(), f.Width, f.Height, f.Detected, f.Kind, strings.Join(shapes, ", "), f.Elapsed.Milliseconds())
}

// Clip summarises one clip run.
type Clip struct {
	// RunID groups the clips of one directory run.
	RunID string `json:"run_id"`
	// Video is the clip reference.
	Video string `json:"video"`
	// Detected is true when at least one frame was detected.
	Detected bool `json:"detected"`
	// Ratio is len(Positions) / Analyzed, 0 when nothing was analysed.
	Ratio float64 `json:"ratio"`
	// Positions are the timestamps of the detected frames, ascending.
	Positions []time.Duration `json:"positions"`
	// Analyzed counts the frames handed to the detector.
	Analyzed int `json:"analyzed"`
	// Elapsed is the wall time of the clip run.
	Elapsed time.Duration `json:"elapsed"`
	// Frames holds per-frame details for object detection.
	Frames []Frame `json:"frames,omitempty"`
}

// Builder accumulates frame outcomes in sampling order.
type Builder struct {
	clip Clip
}

// NewBuilder starts a report for video.
func NewBuilder(runID, video string) *Builder {
	return &Builder{clip: Clip{RunID: runID, Video: video}}
}

// Add records one analysed frame; keepFrame also stores its details.
func (b *Builder) Add(f Frame, keepFrame bool) {
	b.clip.Analyzed++
	if f.Detected {
		b.clip.Positions = append(b.clip.Positions, f.Position)
	}
	if keepFrame {
		b.clip.Frames = append(b.clip.Frames, f)
	}
}

// Build finalises the derived fields.
func (b *Builder) Build(elapsed time.Duration) Clip {
	c := b.clip
	c.Elapsed = elapsed
	c.Detected = len(c.Positions) > 0
	if c.Analyzed > 0 {
		c.Ratio = float64(len(c.Positions)) / float64(c.Analyzed)
	}
	return c
}

// Consistent reports whether the derived fields agree with the positions.
func (c Clip) Consistent() bool {
	if c.Ratio < 0 || c.Ratio > 1 || len(c.Positions) > c.Analyzed {
		return false
	}
	if c.Detected != (len(c.Positions) > 0) {
		return false
	}
	if c.Analyzed == 0 {
		return c.Ratio == 0
	}
	return math.Abs(c.Ratio-float64(len(c.Positions))/float64(c.Analyzed)) < 1e-9
}

// String renders the clip on a single line.
func (c Clip) String() string {
	positions := make([]string, len(c.Positions))
	for i, p := range c.Positions {
		positions[i] = fmt.Sprint(p.Milliseconds())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ClipDetectionReport [video=%s, detected=%t, ratio=%.4f, positions=[%s], analyzed=%d, processingTime=%d ms",
		c.Video, c.Detected, c.Ratio, strings.Join(positions, ", "), c.Analyzed, c.Elapsed.Milliseconds())
	if len(c.Frames) > 0 {
		frames := make([]string, len(c.Frames))
		for i, f := range c.Frames {
			frames[i] = f.String()
		}
		fmt.Fprintf(&b, ", frames=[%s]", strings.Join(frames, ", "))
	}
	b.WriteString("]")
	return b.String()
}

// WriteFile writes one line per clip to path, replacing any previous file.
//
// Arguments:
//   - path: Report file; parent directories are created.
//   - clips: Reports in run order.
//
// Returns:
//   - error: An error if the file cannot be written.
func WriteFile(path string, clips []Clip) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	var b strings.Builder
	for _, c := range clips {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return errors.Wrapf(os.WriteFile(path, []byte(b.String()), 0o644), "write report %s", path)
}
