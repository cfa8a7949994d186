package object

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/region"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/vision"
	"github.com/nvr-ai/go-detect/vision/native"
)

// scriptedClassifier returns one prepared answer per Detect call.
type scriptedClassifier struct {
	answers [][]images.Rect
	calls   int
	frames  []images.Frame
	params  []vision.DetectParams
	closed  bool
}

func (c *scriptedClassifier) Detect(src images.Frame, p vision.DetectParams) ([]images.Rect, error) {
	c.frames = append(c.frames, src)
	c.params = append(c.params, p)
	c.calls++
	if c.calls > len(c.answers) {
		return nil, nil
	}
	return c.answers[c.calls-1], nil
}

func (c *scriptedClassifier) Close() error {
	c.closed = true
	return nil
}

// fakeLibrary hands out scripted classifiers by path; unknown paths fail to load.
type fakeLibrary struct {
	*native.Library
	classifiers map[string]*scriptedClassifier
	loads       map[string]int
}

func newFakeLibrary(classifiers map[string]*scriptedClassifier) *fakeLibrary {
	return &fakeLibrary{Library: native.New(nil), classifiers: classifiers, loads: map[string]int{}}
}

func (l *fakeLibrary) LoadClassifier(spec vision.ClassifierSpec) (vision.Classifier, error) {
	l.loads[spec.Path]++
	c, ok := l.classifiers[spec.Path]
	if !ok {
		return nil, errors.Errorf("no such file %q", spec.Path)
	}
	c.closed = false
	return c, nil
}

func flatFrame(w, h int) images.Frame {
	f := images.NewFrame(w, h, 3)
	for i := range f.Data {
		f.Data[i] = 90
	}
	return f
}

func pixel(f images.Frame, x, y int) color.RGBA {
	i := (y*f.Width + x) * f.Channels
	return color.RGBA{R: f.Data[i+2], G: f.Data[i+1], B: f.Data[i], A: 255}
}

func TestVerify(t *testing.T) {
	r := images.RectXYWH(10, 10, 100, 50)

	tests := []struct {
		name   string
		hit    images.Rect
		centre image.Point
		want   bool
	}{
		{name: "interior hit", hit: images.RectXYWH(45, 20, 10, 10), centre: image.Pt(60, 35), want: true},
		{name: "corner hit", hit: images.RectXYWH(0, 0, 4, 4), centre: image.Pt(12, 12), want: false},
		{name: "on left margin", hit: images.RectXYWH(10, 20, 10, 10), centre: image.Pt(25, 35), want: false},
		{name: "just inside left margin", hit: images.RectXYWH(11, 20, 10, 10), centre: image.Pt(26, 35), want: true},
		{name: "near bottom", hit: images.RectXYWH(45, 30, 10, 10), centre: image.Pt(60, 45), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.centre, HitCentre(r, tt.hit))
			assert.Equal(t, tt.want, Verify(r, tt.hit))
		})
	}
}

func TestParamsFor(t *testing.T) {
	face := ParamsFor(detector.KindFace, settings.Low, 100)
	assert.Equal(t, 1.1, face.ScaleFactor)
	assert.Equal(t, 2, face.MinNeighbors)
	assert.Equal(t, image.Pt(20, 20), face.MinSize)

	car := ParamsFor(detector.KindCar, settings.High, 100)
	assert.Equal(t, 1.05, car.ScaleFactor)
	assert.Equal(t, 2, car.MinNeighbors)
	assert.Equal(t, image.Point{}, car.MinSize)

	assert.Equal(t, vision.ClassifierHOG, ClassifierFor(detector.KindHuman, "ignored").Kind)
	assert.Equal(t, vision.ClassifierSpec{Kind: vision.ClassifierCascade, Path: "f.xml"}, ClassifierFor(detector.KindFace, "f.xml"))
}

func TestPaletteColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, A: 255}, PaletteColor(0))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, PaletteColor(1))
	assert.Equal(t, PaletteColor(0), PaletteColor(9))
	assert.Equal(t, PaletteColor(8), PaletteColor(-1))
}

func TestFitWithin(t *testing.T) {
	assert.Equal(t, image.Pt(640, 360), fitWithin(image.Pt(1920, 1080), image.Pt(640, 480)))
	assert.Equal(t, image.Pt(320, 240), fitWithin(image.Pt(320, 240), image.Pt(640, 480)))
	assert.Equal(t, image.Pt(1920, 1080), fitWithin(image.Pt(1920, 1080), image.Point{}))
}

func TestCascadeDetector_ClassifierNotLoaded(t *testing.T) {
	lib := newFakeLibrary(nil)
	det, err := NewCascadeDetector(lib, detector.KindFace, ClassifierFor(detector.KindFace, "missing.xml"), settings.DefaultObject())
	require.NoError(t, err)

	_, err = det.Detect(flatFrame(40, 40), nil)
	assert.ErrorIs(t, err, vision.ErrClassifierNotLoaded)
}

func TestCascadeDetector_RejectsInvalidFrame(t *testing.T) {
	lib := newFakeLibrary(map[string]*scriptedClassifier{"face.xml": {}})
	det, err := NewCascadeDetector(lib, detector.KindFace, ClassifierFor(detector.KindFace, "face.xml"), settings.DefaultObject())
	require.NoError(t, err)

	_, err = det.Detect(images.Frame{Width: 4, Height: 4, Channels: 2, Data: make([]byte, 32)}, nil)
	assert.ErrorIs(t, err, images.ErrInvalidFrame)
}

func TestCascadeDetector_SensitivityNone(t *testing.T) {
	c := &scriptedClassifier{answers: [][]images.Rect{{images.RectXYWH(1, 1, 10, 10)}}}
	lib := newFakeLibrary(map[string]*scriptedClassifier{"face.xml": c})
	s := settings.DefaultObject()
	s.Sensitivity = settings.None
	det, err := NewCascadeDetector(lib, detector.KindFace, ClassifierFor(detector.KindFace, "face.xml"), s)
	require.NoError(t, err)

	frame := flatFrame(40, 40)
	res, err := det.Detect(frame, nil)
	require.NoError(t, err)
	assert.False(t, res.Detected)
	assert.Equal(t, frame.Data, res.Frame.Data)
	assert.Zero(t, c.calls)
}

func TestCascadeDetector_MapsRectsToSource(t *testing.T) {
	c := &scriptedClassifier{answers: [][]images.Rect{{images.RectXYWH(10, 10, 20, 20)}}}
	lib := newFakeLibrary(map[string]*scriptedClassifier{"car.xml": c})
	s := settings.DefaultObject()
	s.ScaleBound = image.Pt(100, 50)
	det, err := NewCascadeDetector(lib, detector.KindCar, ClassifierFor(detector.KindCar, "car.xml"), s)
	require.NoError(t, err)

	frame := flatFrame(200, 100)
	res, err := det.Detect(frame, nil)
	require.NoError(t, err)

	require.Len(t, c.frames, 1)
	assert.Equal(t, 100, c.frames[0].Width)
	assert.Equal(t, 50, c.frames[0].Height)
	assert.Equal(t, 1, c.frames[0].Channels)

	assert.True(t, res.Detected)
	assert.Equal(t, detector.KindCar, res.Kind)
	assert.Equal(t, []images.Rect{images.RectXYWH(20, 20, 40, 40)}, res.Shapes)
	assert.Equal(t, 200, res.Frame.Width)
	assert.Equal(t, detector.DefaultStyle.Color, pixel(res.Frame, 20, 20))
	assert.Equal(t, color.RGBA{R: 90, G: 90, B: 90, A: 255}, pixel(frame, 20, 20))
}

func TestCascadeDetector_RegionFilter(t *testing.T) {
	c := &scriptedClassifier{answers: [][]images.Rect{{
		images.RectXYWH(5, 5, 10, 10),
		images.RectXYWH(60, 5, 10, 10),
	}}}
	lib := newFakeLibrary(map[string]*scriptedClassifier{"face.xml": c})
	det, err := NewCascadeDetector(lib, detector.KindFace, ClassifierFor(detector.KindFace, "face.xml"), settings.DefaultObject())
	require.NoError(t, err)

	left := region.Polygon{{0, 0}, {40, 0}, {40, 40}, {0, 40}}
	res, err := det.Detect(flatFrame(80, 40), left)
	require.NoError(t, err)
	assert.True(t, res.Detected)
	assert.Equal(t, []images.Rect{images.RectXYWH(5, 5, 10, 10)}, res.Shapes)
}

func TestCascadeDetector_CloseReleasesClassifier(t *testing.T) {
	c := &scriptedClassifier{}
	lib := newFakeLibrary(map[string]*scriptedClassifier{"face.xml": c})
	det, err := NewCascadeDetector(lib, detector.KindFace, ClassifierFor(detector.KindFace, "face.xml"), settings.DefaultObject())
	require.NoError(t, err)

	require.NoError(t, det.Close())
	assert.True(t, c.closed)
	_, err = det.Detect(flatFrame(10, 10), nil)
	assert.ErrorIs(t, err, vision.ErrClassifierNotLoaded)
}

func vehicleFixture() (*fakeLibrary, *scriptedClassifier, *scriptedClassifier, *scriptedClassifier) {
	primary1 := &scriptedClassifier{answers: [][]images.Rect{{
		images.RectXYWH(10, 10, 100, 50),
		{},
		images.RectXYWH(120, 10, 60, 50),
		images.RectXYWH(120, 70, 60, 45),
	}}}
	primary2 := &scriptedClassifier{answers: [][]images.Rect{{
		images.RectXYWH(20, 60, 80, 50),
	}}}
	check := &scriptedClassifier{answers: [][]images.Rect{
		{images.RectXYWH(0, 0, 4, 4), images.RectXYWH(45, 20, 10, 10), images.RectXYWH(45, 20, 10, 10)},
		nil,
		{images.RectXYWH(15, 15, 20, 15)},
		{images.RectXYWH(30, 20, 10, 10)},
	}}
	lib := newFakeLibrary(map[string]*scriptedClassifier{
		"p1.xml":    primary1,
		"p2.xml":    primary2,
		"check.xml": check,
	})
	return lib, primary1, primary2, check
}

func TestVehicleDetector_VerifiesCandidates(t *testing.T) {
	lib, primary1, primary2, check := vehicleFixture()
	det, err := NewVehicleDetector(lib, []string{"p1.xml", "missing.xml", "p2.xml"}, "check.xml", settings.DefaultObject())
	require.NoError(t, err)

	res, err := det.Detect(flatFrame(200, 120), nil)
	require.NoError(t, err)

	assert.True(t, res.Detected)
	assert.Equal(t, detector.KindCar, res.Kind)
	assert.Equal(t, []images.Rect{
		images.RectXYWH(10, 10, 100, 50),
		images.RectXYWH(120, 70, 60, 45),
		images.RectXYWH(20, 60, 80, 50),
	}, res.Shapes)

	assert.Equal(t, 1, primary1.calls)
	assert.Equal(t, 1, primary2.calls)
	assert.Equal(t, 4, check.calls, "the empty candidate is never checked")
	assert.Equal(t, 100, check.frames[0].Width)
	assert.Equal(t, 50, check.frames[0].Height)

	assert.Equal(t, PaletteColor(0), pixel(res.Frame, 10, 10))
	assert.Equal(t, PaletteColor(1), pixel(res.Frame, 120, 70), "candidates without hits do not advance the colour")
	assert.Equal(t, PaletteColor(0), pixel(res.Frame, 20, 60), "the colour restarts for every primary")
}

func TestVehicleDetector_SkipsCandidatesOutsideRegion(t *testing.T) {
	lib, _, _, check := vehicleFixture()
	det, err := NewVehicleDetector(lib, []string{"p1.xml"}, "check.xml", settings.DefaultObject())
	require.NoError(t, err)

	left := region.Polygon{{0, 0}, {115, 0}, {115, 119}, {0, 119}}
	res, err := det.Detect(flatFrame(200, 120), left)
	require.NoError(t, err)

	assert.Equal(t, 1, check.calls)
	assert.Equal(t, []images.Rect{images.RectXYWH(10, 10, 100, 50)}, res.Shapes)
}

func TestVehicleDetector_NothingVerified(t *testing.T) {
	primary := &scriptedClassifier{answers: [][]images.Rect{{images.RectXYWH(10, 10, 100, 50)}}}
	check := &scriptedClassifier{answers: [][]images.Rect{{images.RectXYWH(0, 0, 4, 4)}}}
	lib := newFakeLibrary(map[string]*scriptedClassifier{"p.xml": primary, "check.xml": check})
	det, err := NewVehicleDetector(lib, []string{"p.xml"}, "check.xml", settings.DefaultObject())
	require.NoError(t, err)

	res, err := det.Detect(flatFrame(200, 120), nil)
	require.NoError(t, err)
	assert.False(t, res.Detected)
	assert.Empty(t, res.Shapes)
}

func TestVehicleDetector_PrimaryLifecycle(t *testing.T) {
	lib, primary1, _, check := vehicleFixture()
	det, err := NewVehicleDetector(lib, []string{"p1.xml"}, "check.xml", settings.DefaultObject())
	require.NoError(t, err)
	assert.Zero(t, lib.loads["p1.xml"], "primaries load per clip")

	require.NoError(t, det.BeforeClip(settings.DefaultObject()))
	assert.Equal(t, 1, lib.loads["p1.xml"])

	require.NoError(t, det.AfterClip())
	assert.True(t, primary1.closed)
	assert.False(t, check.closed, "the check classifier outlives clips")

	_, err = det.Detect(flatFrame(200, 120), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, lib.loads["p1.xml"], "Detect reloads primaries lazily")

	require.NoError(t, det.Close())
	assert.True(t, check.closed)
}

func TestVehicleDetector_CheckNotLoaded(t *testing.T) {
	lib, _, _, _ := vehicleFixture()
	det, err := NewVehicleDetector(lib, []string{"p1.xml"}, "missing.xml", settings.DefaultObject())
	require.NoError(t, err)

	_, err = det.Detect(flatFrame(200, 120), nil)
	assert.ErrorIs(t, err, vision.ErrClassifierNotLoaded)
}

func TestNewVehicleDetector_RequiresPrimaries(t *testing.T) {
	_, err := NewVehicleDetector(newFakeLibrary(nil), nil, "check.xml", settings.DefaultObject())
	assert.True(t, settings.IsConfigurationError(err))
}
