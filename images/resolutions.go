package images

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Resolution is a named surveillance camera frame size.
type Resolution struct {
	Name   string
	Width  int
	Height int
}

// Resolutions lists the common surveillance frame sizes, smallest first.
var Resolutions = []Resolution{
	{Name: "nhd", Width: 640, Height: 360},
	{Name: "vga", Width: 640, Height: 480},
	{Name: "480p", Width: 854, Height: 480},
	{Name: "540p", Width: 960, Height: 540},
	{Name: "720p", Width: 1280, Height: 720},
	{Name: "1mp", Width: 1280, Height: 1024},
	{Name: "1080p", Width: 1920, Height: 1080},
	{Name: "3mp", Width: 2048, Height: 1536},
	{Name: "1440p", Width: 2560, Height: 1440},
	{Name: "4k", Width: 3840, Height: 2160},
}

// Point returns the size as an image.Point.
func (r Resolution) Point() image.Point { return image.Pt(r.Width, r.Height) }

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return math.Round(float64(r.Width*r.Height)/10_000) / 100
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// ParseResolution reads a named resolution ("720p") or explicit "WIDTHxHEIGHT" dimensions.
//
// Arguments:
//   - s: Name or dimensions, case-insensitive. An empty string yields the zero Resolution.
//
// Returns:
//   - Resolution: The matched or parsed resolution.
//   - error: An error for an unknown name or malformed dimensions.
//
// @example
// r, err := images.ParseResolution("720p")
// s, err := settings.New(settings.Object, settings.WithScaleBound(r.Width, r.Height))
func ParseResolution(s string) (Resolution, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Resolution{}, nil
	}
	for _, r := range Resolutions {
		if r.Name == s {
			return r, nil
		}
	}

	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return Resolution{}, errors.Errorf("unknown resolution %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Resolution{}, errors.Wrapf(err, "resolution %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Resolution{}, errors.Wrapf(err, "resolution %q", s)
	}
	if width <= 0 || height <= 0 {
		return Resolution{}, errors.Errorf("resolution %q must be positive", s)
	}
	return Resolution{Name: s, Width: width, Height: height}, nil
}

// HighestUnder returns the largest known resolution that fits within width x height.
func HighestUnder(width, height int) (Resolution, bool) {
	fits := make([]Resolution, 0, len(Resolutions))
	for _, r := range Resolutions {
		if r.Width <= width && r.Height <= height {
			fits = append(fits, r)
		}
	}
	if len(fits) == 0 {
		return Resolution{}, false
	}
	sort.SliceStable(fits, func(i, j int) bool { return fits[i].Width*fits[i].Height < fits[j].Width*fits[j].Height })
	return fits[len(fits)-1], true
}
