// Package images - Frame definition and pixel buffer helpers for the detection pipeline.
package images

import (
	"image"
	"image/color"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidFrame is returned for frames with an unsupported channel count or a
// pixel buffer that does not match the declared dimensions.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a timestamped pixel buffer.
//
// Channel layouts follow the OpenCV convention: 1 = gray, 3 = BGR, 4 = BGRA.
type Frame struct {
	// The width of the frame in pixels.
	Width int `json:"width" yaml:"width"`
	// The height of the frame in pixels.
	Height int `json:"height" yaml:"height"`
	// The number of interleaved channels per pixel.
	Channels int `json:"channels" yaml:"channels"`
	// The raw pixel data, row-major, Width*Height*Channels bytes.
	Data []byte `json:"-" yaml:"-"`
	// The position of the frame inside its clip.
	Timestamp time.Duration `json:"timestamp" yaml:"timestamp"`
}

// NewFrame allocates a zeroed frame.
//
// Arguments:
//   - width: Frame width in pixels.
//   - height: Frame height in pixels.
//   - channels: 1, 3 or 4.
//
// Returns:
//   - Frame: The allocated frame.
func NewFrame(width, height, channels int) Frame {
	return Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]byte, width*height*channels),
	}
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Data) == 0
}

// Area returns Width*Height.
func (f Frame) Area() int {
	return f.Width * f.Height
}

// Bounds returns the frame rectangle anchored at the origin.
func (f Frame) Bounds() Rect {
	return Rect{X1: 0, Y1: 0, X2: f.Width, Y2: f.Height}
}

// SameSize reports whether two frames share width and height.
func (f Frame) SameSize(o Frame) bool {
	return f.Width == o.Width && f.Height == o.Height
}

// Validate checks the frame layout.
//
// Returns:
//   - error: ErrInvalidFrame (wrapped) when the frame cannot be processed.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Wrapf(ErrInvalidFrame, "incorrect size %dx%d", f.Width, f.Height)
	}
	switch f.Channels {
	case 1, 3, 4:
	default:
		return errors.Wrapf(ErrInvalidFrame, "incorrect channels number: %d", f.Channels)
	}
	if len(f.Data) != f.Width*f.Height*f.Channels {
		return errors.Wrapf(ErrInvalidFrame, "data length %d does not match %dx%dx%d",
			len(f.Data), f.Width, f.Height, f.Channels)
	}
	return nil
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	out := f
	out.Data = make([]byte, len(f.Data))
	copy(out.Data, f.Data)
	return out
}

// Resize reallocates the pixel buffer when the dimensions change.
//
// Returns:
//   - bool: true when a new buffer was allocated.
func (f *Frame) Resize(width, height, channels int) bool {
	if f.Width == width && f.Height == height && f.Channels == channels && len(f.Data) == width*height*channels {
		return false
	}
	f.Width, f.Height, f.Channels = width, height, channels
	f.Data = make([]byte, width*height*channels)
	return true
}

// Gray returns the single-channel intensity at (x, y).
func (f Frame) Gray(x, y int) uint8 {
	i := (y*f.Width + x) * f.Channels
	if f.Channels == 1 {
		return f.Data[i]
	}
	return luma(f.Data[i+2], f.Data[i+1], f.Data[i])
}

// Set writes a color at (x, y); out-of-bounds writes are ignored.
func (f Frame) Set(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := (y*f.Width + x) * f.Channels
	switch f.Channels {
	case 1:
		f.Data[i] = luma(c.R, c.G, c.B)
	case 3:
		f.Data[i], f.Data[i+1], f.Data[i+2] = c.B, c.G, c.R
	case 4:
		f.Data[i], f.Data[i+1], f.Data[i+2], f.Data[i+3] = c.B, c.G, c.R, 255
	}
}

// ToImage converts the frame into a standard library image.
//
// Gray frames become *image.Gray, color frames *image.RGBA.
func (f Frame) ToImage() image.Image {
	if f.Channels == 1 {
		img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		copy(img.Pix, f.Data)
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for p, q := 0, 0; p < len(f.Data); p, q = p+f.Channels, q+4 {
		img.Pix[q] = f.Data[p+2]
		img.Pix[q+1] = f.Data[p+1]
		img.Pix[q+2] = f.Data[p]
		img.Pix[q+3] = 255
	}
	return img
}

// FromImage converts a standard library image into a frame.
//
// Arguments:
//   - img: Source image; *image.Gray keeps a single channel, everything else becomes BGR.
//   - ts: Timestamp of the frame inside its clip.
//
// Returns:
//   - Frame: The converted frame.
func FromImage(img image.Image, ts time.Duration) Frame {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok {
		f := NewFrame(b.Dx(), b.Dy(), 1)
		for y := 0; y < b.Dy(); y++ {
			copy(f.Data[y*f.Width:(y+1)*f.Width], g.Pix[y*g.Stride:y*g.Stride+b.Dx()])
		}
		f.Timestamp = ts
		return f
	}
	f := NewFrame(b.Dx(), b.Dy(), 3)
	f.Timestamp = ts
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Data[i], f.Data[i+1], f.Data[i+2] = uint8(bl>>8), uint8(g>>8), uint8(r>>8)
			i += 3
		}
	}
	return f
}

// Normalize converts a frame into 3-channel BGR, the layout every detector accepts.
//
// Returns:
//   - Frame: A new BGR frame, or the input when it is already BGR.
//   - error: ErrInvalidFrame (wrapped) when the frame cannot be converted.
func Normalize(f Frame) (Frame, error) {
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	if f.Channels == 3 {
		return f, nil
	}
	out := NewFrame(f.Width, f.Height, 3)
	out.Timestamp = f.Timestamp
	for p, q := 0, 0; q < len(out.Data); p, q = p+f.Channels, q+3 {
		if f.Channels == 1 {
			out.Data[q], out.Data[q+1], out.Data[q+2] = f.Data[p], f.Data[p], f.Data[p]
			continue
		}
		out.Data[q], out.Data[q+1], out.Data[q+2] = f.Data[p], f.Data[p+1], f.Data[p+2]
	}
	return out, nil
}

func luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}
