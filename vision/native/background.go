package native

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/vision"
)

const (
	// Components match when the pixel lies within this many deviations of the mean.
	matchSigmas = 2.5
	// Deviation used for new components when the caller leaves NoiseSigma at 0.
	defaultNoiseSigma = 15
)

// gaussian is one mixture component of a pixel.
type gaussian struct {
	weight   float32
	mean     float32
	variance float32
}

// mixtureModel is an adaptive Gaussian-mixture background model over pixel
// intensity, in the style of OpenCV's BackgroundSubtractorMOG.
type mixtureModel struct {
	params   vision.BackgroundParams
	width    int
	height   int
	frames   int
	mixtures []gaussian
	gray     images.Frame
	lib      *Library
}

// NewBackgroundModel creates a Gaussian-mixture background model.
func (l *Library) NewBackgroundModel(p vision.BackgroundParams) (vision.BackgroundModel, error) {
	if p.History <= 0 || p.Mixtures <= 0 || p.BackgroundRatio <= 0 || p.BackgroundRatio > 1 || p.NoiseSigma < 0 {
		return nil, errors.Errorf("invalid background parameters %+v", p)
	}
	if p.NoiseSigma == 0 {
		p.NoiseSigma = defaultNoiseSigma
	}
	return &mixtureModel{params: p, lib: l}, nil
}

// Apply updates the model with src and writes 255 for foreground pixels into fgMask.
func (m *mixtureModel) Apply(src images.Frame, learningRate float64, fgMask *images.Frame) error {
	if err := m.lib.GrayInto(src, &m.gray); err != nil {
		return errors.Wrap(err, "background model input")
	}
	if m.width != src.Width || m.height != src.Height {
		m.width, m.height, m.frames = src.Width, src.Height, 0
		m.mixtures = make([]gaussian, src.Width*src.Height*m.params.Mixtures)
	}
	m.frames++

	fgMask.Resize(src.Width, src.Height, 1)
	fgMask.Timestamp = src.Timestamp

	k := m.params.Mixtures
	minVar := float32(m.params.NoiseSigma * m.params.NoiseSigma)
	ratio := float32(m.params.BackgroundRatio)
	alpha := float32(learningRate)

	// The first frame seeds one component per pixel, so it is background by definition.
	if m.frames == 1 {
		for i, v := range m.gray.Data {
			m.mixtures[i*k] = gaussian{weight: 1, mean: float32(v), variance: minVar}
			fgMask.Data[i] = 0
		}
		return nil
	}

	for i, v := range m.gray.Data {
		g := m.mixtures[i*k : (i+1)*k]
		if updatePixel(g, float32(v), alpha, minVar, ratio) {
			fgMask.Data[i] = 0
		} else {
			fgMask.Data[i] = 255
		}
	}
	return nil
}

// updatePixel folds x into the pixel's mixture and reports whether x is background.
func updatePixel(g []gaussian, x, alpha, minVar, ratio float32) bool {
	matched := -1
	for j := range g {
		if g[j].weight <= 0 {
			break
		}
		d := x - g[j].mean
		if d*d < matchSigmas*matchSigmas*g[j].variance {
			matched = j
			break
		}
	}

	// Background components are the leading ones whose cumulative weight first exceeds ratio.
	background := false
	if matched >= 0 {
		var cum float32
		for j := 0; j <= matched; j++ {
			if j == matched {
				background = true
				break
			}
			cum += g[j].weight
			if cum > ratio {
				break
			}
		}
	}

	if alpha == 0 {
		return background
	}

	var total float32
	if matched >= 0 {
		for j := range g {
			if g[j].weight <= 0 {
				break
			}
			g[j].weight *= 1 - alpha
			if j == matched {
				g[j].weight += alpha
				rho := alpha / g[j].weight
				d := x - g[j].mean
				g[j].mean += rho * d
				g[j].variance = max(g[j].variance+rho*(d*d-g[j].variance), minVar)
			}
			total += g[j].weight
		}
	} else {
		// Replace the least probable component with one centred on x.
		last := len(g) - 1
		for j := range g {
			if g[j].weight <= 0 {
				last = j
				break
			}
		}
		g[last] = gaussian{weight: alpha, mean: x, variance: minVar}
		for j := range g {
			if g[j].weight <= 0 {
				break
			}
			if j != last {
				g[j].weight *= 1 - alpha
			}
			total += g[j].weight
		}
	}

	if total > 0 {
		for j := range g {
			g[j].weight /= total
		}
	}
	// Keep components ordered by weight/deviation, most probable first.
	for j := 1; j < len(g); j++ {
		for i := j; i > 0 && rank(g[i]) > rank(g[i-1]); i-- {
			g[i], g[i-1] = g[i-1], g[i]
		}
	}
	return background
}

func rank(g gaussian) float32 {
	if g.weight <= 0 || g.variance <= 0 {
		return 0
	}
	return g.weight * g.weight / g.variance
}

// Close releases the model buffers.
func (m *mixtureModel) Close() error {
	m.mixtures = nil
	m.gray = images.Frame{}
	return nil
}
