package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder("run-1", "a.gif")
	b.Add(Frame{Position: time.Millisecond}, false)
	b.Add(Frame{Position: 101 * time.Millisecond, Detected: true}, false)
	b.Add(Frame{Position: 201 * time.Millisecond, Detected: true}, false)
	b.Add(Frame{Position: 301 * time.Millisecond}, false)

	c := b.Build(40 * time.Millisecond)
	assert.Equal(t, "run-1", c.RunID)
	assert.True(t, c.Detected)
	assert.Equal(t, 4, c.Analyzed)
	assert.Equal(t, 0.5, c.Ratio)
	assert.Equal(t, []time.Duration{101 * time.Millisecond, 201 * time.Millisecond}, c.Positions)
	assert.Empty(t, c.Frames)
	assert.True(t, c.Consistent())
}

func TestBuilder_NothingAnalyzed(t *testing.T) {
	c := NewBuilder("", "a.gif").Build(0)
	assert.False(t, c.Detected)
	assert.Zero(t, c.Ratio)
	assert.True(t, c.Consistent())
}

func TestConsistent(t *testing.T) {
	tests := []struct {
		name string
		clip Clip
		want bool
	}{
		{"ratio above one", Clip{Ratio: 1.5, Analyzed: 2, Positions: []time.Duration{1, 2}, Detected: true}, false},
		{"detected without positions", Clip{Detected: true, Analyzed: 3}, false},
		{"wrong ratio", Clip{Ratio: 0.5, Analyzed: 3, Positions: []time.Duration{1}, Detected: true}, false},
		{"more positions than frames", Clip{Ratio: 1, Analyzed: 1, Positions: []time.Duration{1, 2}, Detected: true}, false},
		{"all detected", Clip{Ratio: 1, Analyzed: 2, Positions: []time.Duration{1, 2}, Detected: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.clip.Consistent())
		})
	}
}

func TestString(t *testing.T) {
	b := NewBuilder("", "clips/car.gif")
	b.Add(Frame{
		Position: 1001 * time.Millisecond,
		Detected: true,
		Kind:     detector.KindCar,
		Shapes:   []images.Rect{images.RectXYWH(1, 2, 30, 40)},
		Width:    320,
		Height:   240,
	}, true)
	line := b.Build(12 * time.Millisecond).String()

	assert.True(t, strings.HasPrefix(line, "ClipDetectionReport [video=clips/car.gif, detected=true, ratio=1.0000, positions=[1001]"))
	assert.Contains(t, line, "processingTime=12 ms")
	assert.Contains(t, line, "kind=car")
	assert.Contains(t, line, "shapes=[{1, 2, 30x40}]")
	assert.NotContains(t, line, "\n")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.txt")
	clips := []Clip{
		NewBuilder("", "a.gif").Build(0),
		NewBuilder("", "b.gif").Build(0),
	}
	require.NoError(t, WriteFile(path, clips))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "video=a.gif")
	assert.Contains(t, lines[1], "video=b.gif")
}
