// Package video reads frames out of clips and samples them at even intervals.
package video

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

var (
	// ErrInvalidSource is returned when a clip cannot be decoded or has no duration.
	ErrInvalidSource = errors.New("invalid video source")
	// ErrInvalidCount is returned for a sample count below one.
	ErrInvalidCount = errors.New("invalid frame count")
)

// CaptureExtensions are the container formats read through OpenCV.
var CaptureExtensions = []string{".3gp", ".mp4", ".mov", ".mpg", ".avi", ".mkv"}

// Source decodes frames from clips identified by a reference, usually a file path.
type Source interface {
	// Duration returns the clip length. Unknown durations are reported as 0.
	Duration(ref string) (time.Duration, error)
	// FrameAt returns the frame shown at ts. ok is false when no frame exists there.
	FrameAt(ref string, ts time.Duration) (frame images.Frame, ok bool, err error)
	// Extensions lists the lower-case file extensions, with the dot, the source reads.
	Extensions() []string
	Close() error
}

// Ext returns the lower-case extension of ref.
func Ext(ref string) string {
	return strings.ToLower(filepath.Ext(ref))
}

// Supports reports whether src reads files with the extension of ref.
func Supports(src Source, ref string) bool {
	ext := Ext(ref)
	for _, e := range src.Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}
