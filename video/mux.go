package video

import (
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// Mux routes every call to the first source that reads the clip's extension.
type Mux struct {
	sources []Source
}

var _ Source = (*Mux)(nil)

// NewMux combines sources; earlier sources win for shared extensions.
//
// @example
// src := video.NewMux(video.NewGIFSource())
func NewMux(sources ...Source) *Mux {
	return &Mux{sources: sources}
}

func (m *Mux) route(ref string) (Source, error) {
	for _, s := range m.sources {
		if Supports(s, ref) {
			return s, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidSource, "no reader for %q files", Ext(ref))
}

// Duration returns the clip length reported by the matching source.
func (m *Mux) Duration(ref string) (time.Duration, error) {
	s, err := m.route(ref)
	if err != nil {
		return 0, err
	}
	return s.Duration(ref)
}

// FrameAt returns the frame at ts from the matching source.
func (m *Mux) FrameAt(ref string, ts time.Duration) (images.Frame, bool, error) {
	s, err := m.route(ref)
	if err != nil {
		return images.Frame{}, false, err
	}
	return s.FrameAt(ref, ts)
}

// Extensions returns the union of every source's extensions.
func (m *Mux) Extensions() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range m.sources {
		for _, e := range s.Extensions() {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// Close closes every source and returns the first error.
func (m *Mux) Close() error {
	var first error
	for _, s := range m.sources {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
