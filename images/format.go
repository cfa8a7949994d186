package images

import (
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// JPEGQuality is the encoder quality of frames written as JPEG.
const JPEGQuality = 90

// WriteFile encodes a frame to disk, creating parent directories on demand.
//
// Arguments:
//   - path: Destination file; the extension (.png, .jpg, .bmp, .gif, .tif) selects the encoder.
//   - f: Frame to encode.
//
// Returns:
//   - error: An error if the frame is invalid, the extension is unknown or the file cannot be written.
func WriteFile(path string, f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := imaging.Save(f.ToImage(), path, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return nil
}
