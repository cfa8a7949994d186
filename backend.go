//go:build !withcv

package main

import (
	"log/slog"

	"github.com/nvr-ai/go-detect/video"
	"github.com/nvr-ai/go-detect/vision"
	"github.com/nvr-ai/go-detect/vision/native"
)

// backends returns the pure Go vision library and the clip sources it can read.
func backends(logger *slog.Logger) (vision.Library, []video.Source) {
	return native.New(logger), []video.Source{video.NewGIFSource(), video.NewStillSource()}
}
