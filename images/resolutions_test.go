package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolution_MegaPixels(t *testing.T) {
	r, err := ParseResolution("1080p")
	require.NoError(t, err)
	assert.Equal(t, 2.07, r.MegaPixels())
	assert.Equal(t, "1080p (1920x1080, 2.07MP)", r.String())
	assert.Zero(t, Resolution{}.MegaPixels())
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    image.Point
		wantErr bool
	}{
		{"", image.Point{}, false},
		{"720P", image.Pt(1280, 720), false},
		{" 4k ", image.Pt(3840, 2160), false},
		{"320x240", image.Pt(320, 240), false},
		{"8k", image.Point{}, true},
		{"320xabc", image.Point{}, true},
		{"0x240", image.Point{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseResolution(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Point())
		})
	}
}

func TestHighestUnder(t *testing.T) {
	r, ok := HighestUnder(1920, 1200)
	require.True(t, ok)
	assert.Equal(t, "1080p", r.Name)

	r, ok = HighestUnder(1300, 1100)
	require.True(t, ok)
	assert.Equal(t, "1mp", r.Name)

	_, ok = HighestUnder(320, 240)
	assert.False(t, ok)
}
