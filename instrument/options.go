package instrument

import (
	"context"
	"errors"

	"github.com/arloliu/go-scpi/logger"
	"github.com/arloliu/go-scpi/scpi"
	"github.com/arloliu/go-scpi/transport"
)

// Opener opens the transport of an instrument. transport.Open is the default.
type Opener func(ctx context.Context, d transport.Descriptor, opts ...transport.Option) (transport.Transport, error)

type clientConfig struct {
	logger        logger.Logger
	transportOpts []transport.Option
	connOpts      []scpi.ConnOption
	opener        Opener
}

func newClientConfig(opts ...Option) (*clientConfig, error) {
	cfg := &clientConfig{
		logger: logger.GetLogger(),
		opener: transport.Open,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option represents a functional option for Open and With.
type Option interface {
	apply(*clientConfig) error
}

type optFunc func(*clientConfig) error

func (f optFunc) apply(cfg *clientConfig) error { return f(cfg) }

// WithLogger sets the logger of the client. It is also passed to the transport and the line protocol.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *clientConfig) error {
		if l == nil {
			return errors.New("instrument: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithTransportOptions appends options passed to the transport opener.
func WithTransportOptions(opts ...transport.Option) Option {
	return optFunc(func(cfg *clientConfig) error {
		cfg.transportOpts = append(cfg.transportOpts, opts...)
		return nil
	})
}

// WithConnOptions appends options passed to scpi.NewConn.
func WithConnOptions(opts ...scpi.ConnOption) Option {
	return optFunc(func(cfg *clientConfig) error {
		cfg.connOpts = append(cfg.connOpts, opts...)
		return nil
	})
}

// WithOpener replaces transport.Open, e.g. to connect through a custom driver.
func WithOpener(o Opener) Option {
	return optFunc(func(cfg *clientConfig) error {
		if o == nil {
			return errors.New("instrument: opener is nil")
		}
		cfg.opener = o

		return nil
	})
}
