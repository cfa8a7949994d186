// Package test provides deterministic frames and clips for exercising the pipeline.
package test

import (
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// Background and Foreground are the two intensities of generated scenes.
const (
	Background uint8 = 128
	Foreground uint8 = 255
)

// MockFrameGenerator creates deterministic test frames for idempotent testing.
//
// Arguments:
// - None.
//
// Returns:
// - A generator for creating test frames with controlled motion patterns.
//
// @example
// gen := NewMockFrameGenerator(640, 480)
// frame := gen.GenerateStaticFrame()
type MockFrameGenerator struct {
	width  int
	height int
}

// NewMockFrameGenerator creates a new frame generator with specified dimensions.
//
// Arguments:
// - width: Frame width in pixels.
// - height: Frame height in pixels.
//
// Returns:
// - A configured MockFrameGenerator instance.
//
// @example
// gen := NewMockFrameGenerator(1920, 1080)
func NewMockFrameGenerator(width, height int) *MockFrameGenerator {
	return &MockFrameGenerator{width: width, height: height}
}

// GenerateStaticFrame creates a flat mid-gray BGR frame.
//
// Returns:
// - A 3-channel frame filled with Background.
func (g *MockFrameGenerator) GenerateStaticFrame() images.Frame {
	frame := images.NewFrame(g.width, g.height, 3)
	for i := range frame.Data {
		frame.Data[i] = Background
	}
	return frame
}

// GenerateMotionFrame creates a static frame with a white square at (x, y).
//
// Arguments:
// - x: X coordinate of the square.
// - y: Y coordinate of the square.
// - size: Side of the square in pixels.
//
// Returns:
// - A 3-channel frame with the square drawn, clipped to the frame.
//
// @example
// frame := gen.GenerateMotionFrame(100, 100, 50)
func (g *MockFrameGenerator) GenerateMotionFrame(x, y, size int) images.Frame {
	frame := g.GenerateStaticFrame()
	white := color.RGBA{R: Foreground, G: Foreground, B: Foreground, A: 255}
	for yy := y; yy < y+size; yy++ {
		for xx := x; xx < x+size; xx++ {
			frame.Set(xx, yy, white)
		}
	}
	return frame
}

// CrossingSequence returns n frames of a square moving right by step pixels per frame.
func (g *MockFrameGenerator) CrossingSequence(n, size, step int) []images.Frame {
	frames := make([]images.Frame, n)
	y := (g.height - size) / 2
	for i := range frames {
		frames[i] = g.GenerateMotionFrame(i*step, y, size)
	}
	return frames
}

// clipPalette holds the only two colours generated scenes use.
var clipPalette = color.Palette{
	color.Gray{Y: Background},
	color.Gray{Y: Foreground},
}

// WriteGIF encodes frames as an animated GIF with a fixed delay per frame.
//
// Arguments:
// - path: Destination file; parent directories are created.
// - frames: Frames in Background/Foreground intensities.
// - delay: Frame delay in hundredths of a second.
//
// Returns:
// - An error if the file cannot be written.
//
// @example
// err := test.WriteGIF("clips/block.gif", gen.CrossingSequence(20, 30, 10), 10)
func WriteGIF(path string, frames []images.Frame, delay int) error {
	if len(frames) == 0 {
		return errors.New("no frames")
	}
	anim := &gif.GIF{}
	for _, f := range frames {
		bounds := image.Rect(0, 0, f.Width, f.Height)
		p := image.NewPaletted(bounds, clipPalette)
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				if int(f.Gray(x, y)) > (int(Background)+int(Foreground))/2 {
					p.SetColorIndex(x, y, 1)
				}
			}
		}
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := gif.EncodeAll(out, anim); err != nil {
		out.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return out.Close()
}

// WriteStaticClip writes a clip of n identical flat frames.
func WriteStaticClip(path string, width, height, n, delay int) error {
	gen := NewMockFrameGenerator(width, height)
	frames := make([]images.Frame, n)
	for i := range frames {
		frames[i] = gen.GenerateStaticFrame()
	}
	return WriteGIF(path, frames, delay)
}

// WriteCrossingClip writes a clip of a square crossing the frame left to right.
func WriteCrossingClip(path string, width, height, n, size, delay int) error {
	gen := NewMockFrameGenerator(width, height)
	step := (width - size) / max(1, n-1)
	return WriteGIF(path, gen.CrossingSequence(n, size, max(1, step)), delay)
}

// WriteCorruptClip writes bytes that carry a GIF extension but do not decode.
func WriteCorruptClip(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	return errors.Wrap(os.WriteFile(path, []byte("GIF89a this is not a clip"), 0o644), "write corrupt clip")
}
