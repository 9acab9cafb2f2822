package tau

import "log/slog"

// config holds configuration for an archive session.
type config struct {
	logger   *slog.Logger
	progress ProgressFunc
	maxFiles int
	atomic   bool
}

// Option configures an archive session.
type Option func(*config)

func newConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// log returns the logger, falling back to a discard logger if nil.
func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// reportProgress sends a progress event if a callback is configured.
func (c *config) reportProgress(ev ProgressEvent) {
	if c.progress != nil {
		c.progress(ev)
	}
}

// WithLogger sets the logger for session events.
// By default, nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithProgress sets a callback that receives progress updates.
// The callback is invoked on the session's goroutine.
func WithProgress(fn ProgressFunc) Option {
	return func(cfg *config) {
		cfg.progress = fn
	}
}

// WithMaxFiles limits the number of regular files a directory archive may
// contain. Zero or negative means no limit.
func WithMaxFiles(n int) Option {
	return func(cfg *config) {
		cfg.maxFiles = n
	}
}

// WithAtomicWrite makes CompressPath stage the archive in a temporary file
// next to the output and rename it into place on success. On failure the
// output path is left untouched. Other functions ignore this option.
func WithAtomicWrite() Option {
	return func(cfg *config) {
		cfg.atomic = true
	}
}
