package pool

import "go.uber.org/zap"

// Option configures a pool at construction.
type Option func(*options)

type options struct {
	name       string
	logger     *zap.Logger
	sharedRing bool
}

func buildOptions(kind string, opts []Option) options {
	o := options{
		name:   kind,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(zap.String("pool", o.name), zap.String("kind", kind))
	return o
}

// WithName names the pool in logs, errors and Stats.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger used for lifecycle events. Rent and Return never log.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSharedRing makes a Tiered pool use a bounded FIFO ring as its shared
// tier instead of the default LIFO stack. The ring does not allocate on
// return; the stack hands out the most recently returned objects first.
// Other pool kinds ignore it.
func WithSharedRing() Option {
	return func(o *options) {
		o.sharedRing = true
	}
}
