package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/report"
)

// ReportSink receives every clip report of a directory run.
type ReportSink interface {
	SaveClip(ctx context.Context, c report.Clip) error
}

// Option customises a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProfiler records operation timings and frame counters into p.
func WithProfiler(p *profiler.RuntimeProfiler) Option {
	return func(s *Session) { s.profiler = p }
}

// WithSink forwards clip reports of directory runs to sink.
func WithSink(sink ReportSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithClock replaces time.Now for elapsed-time bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
