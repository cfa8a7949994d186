package settings

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/region"
)

func TestDefaults(t *testing.T) {
	m := DefaultMotion()
	require.NoError(t, m.Validate())
	assert.Equal(t, Medium, m.Sensitivity)
	assert.Equal(t, 3, m.FrameToDetect)
	assert.Equal(t, 20, m.FramesToAnalyze)
	assert.True(t, m.Grayscale)
	assert.Equal(t, 3, m.Background.History)
	assert.Equal(t, 4, m.Background.Mixtures)
	assert.InDelta(t, 0.8, m.Background.BackgroundRatio, 1e-9)
	assert.InDelta(t, 0.1, m.Background.LearningRate, 1e-9)
	assert.InDelta(t, 0.01, m.Background.MinContourAreaRatio, 1e-9)

	o := DefaultObject()
	require.NoError(t, o.Validate())
	assert.Equal(t, Object, o.Family)
	assert.Equal(t, 10, o.FrameToDetect)
}

func TestNew_RejectsInvalidOptionsWithoutPartialState(t *testing.T) {
	tests := []struct {
		name   string
		family Family
		opts   []Option
		field  string
	}{
		{name: "history", family: Motion, opts: []Option{WithHistory(0)}, field: "history"},
		{name: "mixtures", family: Motion, opts: []Option{WithMixtures(-1)}, field: "mixtures"},
		{name: "ratio zero", family: Motion, opts: []Option{WithBackgroundRatio(0)}, field: "backgroundRatio"},
		{name: "ratio above one", family: Motion, opts: []Option{WithBackgroundRatio(1.5)}, field: "backgroundRatio"},
		{name: "noise", family: Motion, opts: []Option{WithNoiseSigma(-0.1)}, field: "noiseSigma"},
		{name: "learning", family: Motion, opts: []Option{WithLearningRate(-1)}, field: "learningRate"},
		{name: "area", family: Motion, opts: []Option{WithMinContourAreaRatio(2)}, field: "minContourAreaRatio"},
		{name: "kernel", family: Motion, opts: []Option{WithMorphKernelSize(-3)}, field: "morphKernelSize"},
		{name: "motion frames", family: Motion, opts: []Option{WithFramesToAnalyze(1)}, field: "framesToAnalyze"},
		{name: "object frames", family: Object, opts: []Option{WithFramesToAnalyze(0)}, field: "framesToAnalyze"},
		{name: "sensitivity", family: Object, opts: []Option{WithSensitivity(Sensitivity(7))}, field: "sensitivity"},
		{
			name:   "region",
			family: Motion,
			opts:   []Option{WithHistory(9), WithRegion(region.Polygon{{0, 0}, {1, 1}})},
			field:  "region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.family, tt.opts...)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))

			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, Settings{}, s)
		})
	}
}

func TestNew_AppliesOptions(t *testing.T) {
	s, err := New(Object,
		WithSensitivity(High),
		WithFramesToAnalyze(1),
		WithGrayscale(false),
		WithRegion(region.Polygon{{0, 0}, {0, 10}, {10, 10}}),
		WithScaleBound(320, 240),
	)
	require.NoError(t, err)
	assert.Equal(t, High, s.Sensitivity)
	assert.Equal(t, 1, s.FramesToAnalyze)
	assert.False(t, s.Grayscale)
	assert.Len(t, s.Region, 3)
	assert.Equal(t, 320, s.ScaleBound.X)
}

func TestSetters_IgnoreInvalidValues(t *testing.T) {
	s := DefaultMotion()

	assert.False(t, s.SetHistory(0))
	assert.False(t, s.SetLearningRate(-0.5))
	assert.False(t, s.SetFramesToAnalyze(1))
	assert.False(t, s.SetRegion(region.Polygon{{1, 1}}))
	assert.Equal(t, DefaultMotion(), s)

	assert.True(t, s.SetHistory(50))
	assert.True(t, s.SetMinContourAreaRatio(0))
	assert.True(t, s.SetSensitivity(None))
	assert.Equal(t, 50, s.Background.History)
	assert.Equal(t, 0.0, s.Background.MinContourAreaRatio)
	assert.Equal(t, None, s.Sensitivity)
}

func TestFramesToSample(t *testing.T) {
	s := DefaultObject()
	s.FramesToAnalyze = 1
	assert.Equal(t, DefaultFramesToAnalyze, s.FramesToSample())

	s.FramesToAnalyze = 7
	assert.Equal(t, 7, s.FramesToSample())
}

func TestSensitivity(t *testing.T) {
	for _, name := range []string{"none", "LOW", "Medium", " high "} {
		_, err := ParseSensitivity(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseSensitivity("extreme")
	assert.Error(t, err)

	assert.Equal(t, "MEDIUM", Medium.String())
	assert.True(t, None < Low && Low < Medium && Medium < High)
	assert.Greater(t, Low.AreaRatioScale(), High.AreaRatioScale())
	assert.Greater(t, Low.DiffThreshold(), High.DiffThreshold())
	assert.Greater(t, Low.ScaleFactor(), High.ScaleFactor())
	assert.Greater(t, Low.MinNeighbors(), High.MinNeighbors())
}
