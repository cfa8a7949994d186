//go:build withcv

package video

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/vision/cv"
)

// CaptureSource reads container formats through OpenCV's VideoCapture.
//
// The most recently used clip stays open between calls.
type CaptureSource struct {
	mu     sync.Mutex
	opened string
	cap    *gocv.VideoCapture
	img    gocv.Mat
}

var _ Source = (*CaptureSource)(nil)

// NewCaptureSource creates an OpenCV clip reader. Close releases it.
func NewCaptureSource() *CaptureSource {
	return &CaptureSource{img: gocv.NewMat()}
}

// Extensions returns CaptureExtensions.
func (s *CaptureSource) Extensions() []string { return CaptureExtensions }

// Duration derives the clip length from its frame count and frame rate.
func (s *CaptureSource) Duration(ref string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vc, err := s.open(ref)
	if err != nil {
		return 0, err
	}
	count := vc.Get(gocv.VideoCaptureFrameCount)
	fps := vc.Get(gocv.VideoCaptureFPS)
	if count <= 0 || fps <= 0 {
		return 0, nil
	}
	return time.Duration(count / fps * float64(time.Second)), nil
}

// FrameAt seeks to ts and decodes the next frame.
func (s *CaptureSource) FrameAt(ref string, ts time.Duration) (images.Frame, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vc, err := s.open(ref)
	if err != nil {
		return images.Frame{}, false, err
	}
	vc.Set(gocv.VideoCapturePosMsec, float64(ts.Milliseconds()))
	if ok := vc.Read(&s.img); !ok || s.img.Empty() {
		return images.Frame{}, false, nil
	}
	frame, err := cv.FromMat(s.img, ts)
	if err != nil {
		return images.Frame{}, false, err
	}
	return frame, true, nil
}

// Close releases the open clip and the decode buffer.
func (s *CaptureSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
	return s.img.Close()
}

func (s *CaptureSource) open(ref string) (*gocv.VideoCapture, error) {
	if s.cap != nil && s.opened == ref {
		return s.cap, nil
	}
	s.release()
	vc, err := gocv.VideoCaptureFile(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", ref)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Wrapf(ErrInvalidSource, "cannot open %s", ref)
	}
	s.cap, s.opened = vc, ref
	return vc, nil
}

func (s *CaptureSource) release() {
	if s.cap != nil {
		s.cap.Close()
		s.cap, s.opened = nil, ""
	}
}
