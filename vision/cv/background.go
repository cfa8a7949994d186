//go:build withcv

package cv

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/vision"
)

// Variance threshold OpenCV uses when none is given.
const defaultVarThreshold = 16.0

type mog2 struct {
	sub gocv.BackgroundSubtractorMOG2
	lib *Library
}

// NewBackgroundModel creates an OpenCV MOG2 background subtractor.
//
// gocv does not expose the mixture count or the background ratio; History and
// NoiseSigma (squared into the variance threshold) are the parameters that reach
// OpenCV. The learning rate is passed on every Apply.
func (l *Library) NewBackgroundModel(p vision.BackgroundParams) (vision.BackgroundModel, error) {
	if p.History <= 0 || p.NoiseSigma < 0 {
		return nil, errors.Errorf("invalid background parameters %+v", p)
	}
	varThreshold := defaultVarThreshold
	if p.NoiseSigma > 0 {
		varThreshold = p.NoiseSigma * p.NoiseSigma
	}
	return &mog2{
		sub: gocv.NewBackgroundSubtractorMOG2WithParams(p.History, varThreshold, false),
		lib: l,
	}, nil
}

// Apply updates the model with src at learningRate and writes the foreground mask.
func (m *mog2) Apply(src images.Frame, learningRate float64, fgMask *images.Frame) error {
	mat, err := ToMat(src)
	if err != nil {
		return errors.Wrap(err, "background model input")
	}
	defer mat.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	if err := m.sub.ApplyWithLearningRate(mat, &mask, learningRate); err != nil {
		return errors.Wrap(err, "background model apply")
	}

	fgMask.Resize(src.Width, src.Height, 1)
	fgMask.Timestamp = src.Timestamp
	copy(fgMask.Data, mask.ToBytes())
	return nil
}

// Close releases the subtractor.
func (m *mog2) Close() error {
	return m.sub.Close()
}
