package video

import (
	"image"
	"image/draw"
	"image/gif"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// gifDelayUnit is the GIF frame delay resolution.
const gifDelayUnit = 10 * time.Millisecond

// GIFSource reads animated GIF clips.
//
// The most recently used clip stays decoded, so sampling one clip decodes it once.
type GIFSource struct {
	mu     sync.Mutex
	cached string
	clip   *gifClip
}

var _ Source = (*GIFSource)(nil)

// gifClip holds every frame of a clip composited onto the full canvas.
type gifClip struct {
	frames   []images.Frame
	starts   []time.Duration
	duration time.Duration
}

// NewGIFSource creates a GIF reader.
func NewGIFSource() *GIFSource {
	return &GIFSource{}
}

// Extensions returns ".gif".
func (s *GIFSource) Extensions() []string { return []string{".gif"} }

// Duration returns the sum of the frame delays.
func (s *GIFSource) Duration(ref string) (time.Duration, error) {
	clip, err := s.load(ref)
	if err != nil {
		return 0, err
	}
	return clip.duration, nil
}

// FrameAt returns the frame on screen at ts, or ok=false past the end of the clip.
func (s *GIFSource) FrameAt(ref string, ts time.Duration) (images.Frame, bool, error) {
	clip, err := s.load(ref)
	if err != nil {
		return images.Frame{}, false, err
	}
	if ts < 0 || ts > clip.duration || len(clip.frames) == 0 {
		return images.Frame{}, false, nil
	}

	i := len(clip.starts) - 1
	for i > 0 && clip.starts[i] > ts {
		i--
	}
	frame := clip.frames[i].Clone()
	frame.Timestamp = ts
	return frame, true, nil
}

// Close drops the decoded clip.
func (s *GIFSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached, s.clip = "", nil
	return nil
}

func (s *GIFSource) load(ref string) (*gifClip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clip != nil && s.cached == ref {
		return s.clip, nil
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", ref)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", ref)
	}
	clip := composite(g)
	s.cached, s.clip = ref, clip
	return clip, nil
}

// composite renders every GIF frame onto the logical screen, honouring the
// disposal method of the frame before it.
func composite(g *gif.GIF) *gifClip {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() && len(g.Image) > 0 {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)
	clip := &gifClip{}

	var elapsed time.Duration
	for i, frame := range g.Image {
		var previous *image.RGBA
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = image.NewRGBA(bounds)
			copy(previous.Pix, canvas.Pix)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		clip.frames = append(clip.frames, images.FromImage(canvas, elapsed))
		clip.starts = append(clip.starts, elapsed)

		if i < len(g.Delay) {
			elapsed += time.Duration(g.Delay[i]) * gifDelayUnit
		}

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			copy(canvas.Pix, previous.Pix)
		}
	}
	clip.duration = elapsed
	return clip
}
