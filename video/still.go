package video

import (
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/nvr-ai/go-detect/images"
)

// StillExtensions are the picture formats StillSource decodes.
var StillExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// StillSource serves a single picture as a clip lasting FirstPosition, so the
// sampler retrieves it exactly once. EXIF orientation is applied on decode.
type StillSource struct {
	mu     sync.Mutex
	cached string
	frame  images.Frame
}

var _ Source = (*StillSource)(nil)

// NewStillSource creates a picture reader.
func NewStillSource() *StillSource {
	return &StillSource{}
}

// Extensions returns StillExtensions.
func (s *StillSource) Extensions() []string { return StillExtensions }

// Duration returns FirstPosition once the picture decodes.
func (s *StillSource) Duration(ref string) (time.Duration, error) {
	if _, err := s.load(ref); err != nil {
		return 0, err
	}
	return FirstPosition, nil
}

// FrameAt returns the picture for any ts within [0, FirstPosition].
func (s *StillSource) FrameAt(ref string, ts time.Duration) (images.Frame, bool, error) {
	frame, err := s.load(ref)
	if err != nil {
		return images.Frame{}, false, err
	}
	if ts < 0 || ts > FirstPosition {
		return images.Frame{}, false, nil
	}
	out := frame.Clone()
	out.Timestamp = ts
	return out, true, nil
}

// Close drops the decoded picture.
func (s *StillSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached, s.frame = "", images.Frame{}
	return nil
}

func (s *StillSource) load(ref string) (images.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == ref && !s.frame.Empty() {
		return s.frame, nil
	}

	img, err := imaging.Open(ref, imaging.AutoOrientation(true))
	if err != nil {
		return images.Frame{}, errors.Wrapf(err, "decode %s", ref)
	}
	s.cached, s.frame = ref, images.FromImage(img, 0)
	return s.frame, nil
}
