//go:build withcv

package main

import (
	"log/slog"

	"github.com/nvr-ai/go-detect/video"
	"github.com/nvr-ai/go-detect/vision"
	"github.com/nvr-ai/go-detect/vision/cv"
)

// backends returns the OpenCV vision library and every clip source.
func backends(logger *slog.Logger) (vision.Library, []video.Source) {
	return cv.New(logger), []video.Source{video.NewCaptureSource(), video.NewGIFSource(), video.NewStillSource()}
}
