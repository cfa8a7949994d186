package motion

import (
	"log/slog"
	"time"

	"github.com/nvr-ai/go-detect/detector"
)

type config struct {
	logger *slog.Logger
	style  detector.Style
	now    func() time.Time
}

// Option customises a motion detector.
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

// WithClock sets the clock used for frames that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		logger: slog.Default(),
		style:  detector.DefaultStyle,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
