package video

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/test"
)

// fakeSource serves blank frames and fails at chosen positions.
type fakeSource struct {
	duration    time.Duration
	durationErr error
	missing     map[time.Duration]bool
	broken      map[time.Duration]bool
	requested   []time.Duration
}

func (f *fakeSource) Duration(string) (time.Duration, error) { return f.duration, f.durationErr }

func (f *fakeSource) FrameAt(_ string, ts time.Duration) (images.Frame, bool, error) {
	f.requested = append(f.requested, ts)
	if f.broken[ts] {
		return images.Frame{}, false, errors.New("decode failed")
	}
	if f.missing[ts] {
		return images.Frame{}, false, nil
	}
	return images.NewFrame(4, 4, 3), true, nil
}

func (f *fakeSource) Extensions() []string { return []string{".fake"} }
func (f *fakeSource) Close() error         { return nil }

func TestSample_EvenlySpaced(t *testing.T) {
	src := &fakeSource{duration: 10 * time.Second}
	frames, err := Sample(src, "clip.fake", 10)
	require.NoError(t, err)

	require.NotEmpty(t, frames)
	assert.LessOrEqual(t, len(frames), 10)
	assert.GreaterOrEqual(t, frames[0].Timestamp, time.Millisecond)
	assert.LessOrEqual(t, frames[len(frames)-1].Timestamp, 10*time.Second)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Timestamp, frames[i-1].Timestamp)
	}
	assert.Equal(t, time.Millisecond, src.requested[0])
	assert.Equal(t, 1001*time.Millisecond, src.requested[1])
}

func TestSample_SkipsFailedPositions(t *testing.T) {
	src := &fakeSource{
		duration: 400 * time.Millisecond,
		missing:  map[time.Duration]bool{101 * time.Millisecond: true},
		broken:   map[time.Duration]bool{201 * time.Millisecond: true},
	}
	frames, err := Sample(src, "clip.fake", 4)
	require.NoError(t, err)

	assert.Len(t, src.requested, 4)
	require.Len(t, frames, 2)
	assert.Equal(t, time.Millisecond, frames[0].Timestamp)
	assert.Equal(t, 301*time.Millisecond, frames[1].Timestamp)
}

func TestSample_MinimumInterval(t *testing.T) {
	src := &fakeSource{duration: 5 * time.Millisecond}
	frames, err := Sample(src, "clip.fake", 100)
	require.NoError(t, err)
	assert.Len(t, frames, 5)
}

func TestSample_Errors(t *testing.T) {
	_, err := Sample(&fakeSource{duration: time.Second}, "clip.fake", 0)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = Sample(&fakeSource{}, "clip.fake", 10)
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = Sample(&fakeSource{durationErr: errors.New("probe failed")}, "clip.fake", 10)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestGIFSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossing.gif")
	require.NoError(t, test.WriteCrossingClip(path, 80, 40, 5, 10, 10))

	src := NewGIFSource()
	defer src.Close()

	d, err := src.Duration(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)

	first, ok, err := src.FrameAt(path, time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 80, first.Width)
	assert.Equal(t, 40, first.Height)
	assert.Equal(t, 3, first.Channels)
	assert.Equal(t, test.Foreground, first.Gray(5, 20))

	third, ok, err := src.FrameAt(path, 250*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, third.Timestamp)
	assert.Equal(t, test.Foreground, third.Gray(36, 20))
	assert.Equal(t, test.Background, third.Gray(5, 20))

	_, ok, err = src.FrameAt(path, 600*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	frames, err := Sample(src, path, 5)
	require.NoError(t, err)
	assert.Len(t, frames, 5)
}

func TestGIFSource_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.gif")
	require.NoError(t, test.WriteCorruptClip(path))

	_, err := NewGIFSource().Duration(path)
	assert.Error(t, err)

	_, err = Sample(NewGIFSource(), path, 5)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestMux(t *testing.T) {
	fake := &fakeSource{duration: time.Second}
	m := NewMux(NewGIFSource(), fake)

	assert.Equal(t, []string{".gif", ".fake"}, m.Extensions())

	d, err := m.Duration("clip.FAKE")
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	_, err = m.Duration("clip.mp4")
	assert.ErrorIs(t, err, ErrInvalidSource)
	assert.True(t, Supports(m, "a.gif"))
	assert.False(t, Supports(m, "a.txt"))
	assert.NoError(t, m.Close())
}

func TestStillSource(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	img.Set(3, 4, color.NRGBA{R: 255, A: 255})
	path := filepath.Join(dir, "shot.png")
	require.NoError(t, imaging.Save(img, path))

	src := NewStillSource()
	defer src.Close()
	assert.True(t, Supports(src, path))

	d, err := src.Duration(path)
	require.NoError(t, err)
	assert.Equal(t, FirstPosition, d)

	frames, err := Sample(src, path, 5)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	f := frames[0]
	assert.Equal(t, FirstPosition, f.Timestamp)
	assert.Equal(t, 20, f.Width)
	assert.Equal(t, 3, f.Channels)
	i := (4*f.Width + 3) * 3
	assert.Equal(t, []byte{0, 0, 255}, f.Data[i:i+3])

	_, ok, err := src.FrameAt(path, 2*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStillSource_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a picture"), 0o644))

	_, err := NewStillSource().Duration(path)
	assert.Error(t, err)
}
