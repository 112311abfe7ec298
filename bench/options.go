package bench

import (
	"errors"

	"github.com/arloliu/go-scpi/instrument"
	"github.com/arloliu/go-scpi/logger"
)

type benchConfig struct {
	logger         logger.Logger
	instrumentOpts []instrument.Option
}

func newBenchConfig(opts ...Option) (*benchConfig, error) {
	cfg := &benchConfig{logger: logger.GetLogger()}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option represents a functional option for New.
type Option interface {
	apply(*benchConfig) error
}

type optFunc func(*benchConfig) error

func (f optFunc) apply(cfg *benchConfig) error { return f(cfg) }

// WithLogger sets the logger of the bench and of the clients it opens.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *benchConfig) error {
		if l == nil {
			return errors.New("bench: logger is nil")
		}
		cfg.logger = l
		cfg.instrumentOpts = append(cfg.instrumentOpts, instrument.WithLogger(l))

		return nil
	})
}

// WithInstrumentOptions appends options passed to instrument.Open for every connection.
func WithInstrumentOptions(opts ...instrument.Option) Option {
	return optFunc(func(cfg *benchConfig) error {
		cfg.instrumentOpts = append(cfg.instrumentOpts, opts...)
		return nil
	})
}
