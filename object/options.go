package object

import (
	"log/slog"

	"github.com/nvr-ai/go-detect/detector"
)

type config struct {
	logger *slog.Logger
	style  detector.Style
}

// Option customises an object detector.
type Option func(*config)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStyle sets the annotation style.
func WithStyle(s detector.Style) Option {
	return func(c *config) { c.style = s }
}

func newConfig(opts []Option) config {
	c := config{logger: slog.Default(), style: detector.DefaultStyle}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
