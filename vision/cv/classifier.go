//go:build withcv

package cv

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/vision"
)

// LoadClassifier loads a cascade file or prepares the HOG people detector.
//
// Arguments:
//   - spec: Kind and, for cascades, the XML path.
//
// Returns:
//   - vision.Classifier: The loaded classifier.
//   - error: vision.ErrClassifierNotLoaded (wrapped) when the model cannot be loaded.
func (l *Library) LoadClassifier(spec vision.ClassifierSpec) (vision.Classifier, error) {
	switch spec.Kind {
	case vision.ClassifierHOG:
		hog := gocv.NewHOGDescriptor()
		people := gocv.HOGDefaultPeopleDetector()
		defer people.Close()
		hog.SetSVMDetector(people)
		return &hogClassifier{hog: hog}, nil
	default:
		cc := gocv.NewCascadeClassifier()
		if !cc.Load(spec.Path) {
			cc.Close()
			return nil, errors.Wrapf(vision.ErrClassifierNotLoaded, "cascade %q", spec.Path)
		}
		l.logger.Debug("cascade loaded", "path", spec.Path)
		return &cascade{cc: cc}, nil
	}
}

type cascade struct {
	cc gocv.CascadeClassifier
}

func (c *cascade) Detect(src images.Frame, p vision.DetectParams) ([]images.Rect, error) {
	mat, err := ToMat(src)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	found := c.cc.DetectMultiScaleWithParams(mat, p.ScaleFactor, p.MinNeighbors, 0, p.MinSize, p.MaxSize)
	return toRects(found), nil
}

func (c *cascade) Close() error {
	return c.cc.Close()
}

type hogClassifier struct {
	hog gocv.HOGDescriptor
}

func (h *hogClassifier) Detect(src images.Frame, _ vision.DetectParams) ([]images.Rect, error) {
	mat, err := ToMat(src)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return toRects(h.hog.DetectMultiScale(mat)), nil
}

func (h *hogClassifier) Close() error {
	return h.hog.Close()
}
