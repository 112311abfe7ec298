package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arloliu/go-scpi/logger"
)

// Default transport settings.
const (
	DefaultTCPPort      = 5025
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultDialTimeout  = 5 * time.Second
	DefaultBaudRate     = 9600
)

// config holds the settings shared by all transport variants.
type config struct {
	readTimeout  time.Duration
	writeTimeout time.Duration
	dialTimeout  time.Duration

	// reset controls the reset sent right after the link is opened.
	reset bool

	// serial line settings
	dataBits int
	parity   Parity
	stopBits StopBits

	busDriver BusDriver

	wsHeader   http.Header
	wsInsecure bool
	wsText     bool

	logger logger.Logger
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		dialTimeout:  DefaultDialTimeout,
		reset:        true,
		dataBits:     8,
		parity:       NoParity,
		stopBits:     OneStopBit,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Parity is the serial parity mode.
type Parity uint8

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits is the number of serial stop bits.
type StopBits uint8

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// Option is a functional option for Open.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithReadTimeout sets the per-read timeout. DefaultReadTimeout (30s) is used otherwise.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("transport: read timeout must be positive")
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithWriteTimeout sets the per-write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("transport: write timeout must be positive")
		}
		cfg.writeTimeout = d

		return nil
	})
}

// WithDialTimeout sets the connect timeout for network transports.
func WithDialTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("transport: dial timeout must be positive")
		}
		cfg.dialTimeout = d

		return nil
	})
}

// WithoutReset skips the reset performed right after opening
// ("*CLS"/"*RST" on sockets, device clear on bus devices).
func WithoutReset() Option {
	return optFunc(func(cfg *config) error {
		cfg.reset = false
		return nil
	})
}

// WithSerialFraming sets data bits, parity and stop bits of a serial port. The default is 8N1.
func WithSerialFraming(dataBits int, parity Parity, stopBits StopBits) Option {
	return optFunc(func(cfg *config) error {
		if dataBits < 5 || dataBits > 8 {
			return fmt.Errorf("transport: data bits %d out of range [5, 8]", dataBits)
		}
		if parity > EvenParity {
			return fmt.Errorf("transport: invalid parity %d", parity)
		}
		if stopBits > TwoStopBits {
			return fmt.Errorf("transport: invalid stop bits %d", stopBits)
		}
		cfg.dataBits = dataBits
		cfg.parity = parity
		cfg.stopBits = stopBits

		return nil
	})
}

// WithBusDriver sets the driver used to open KindBus descriptors.
func WithBusDriver(d BusDriver) Option {
	return optFunc(func(cfg *config) error {
		if d == nil {
			return errors.New("transport: bus driver must not be nil")
		}
		cfg.busDriver = d

		return nil
	})
}

// WithWebSocketHeader sets extra HTTP headers for the WebSocket handshake, e.g. Authorization.
func WithWebSocketHeader(h http.Header) Option {
	return optFunc(func(cfg *config) error {
		cfg.wsHeader = h.Clone()
		return nil
	})
}

// WithWebSocketInsecure skips TLS certificate verification for wss:// URLs.
func WithWebSocketInsecure() Option {
	return optFunc(func(cfg *config) error {
		cfg.wsInsecure = true
		return nil
	})
}

// WithWebSocketText sends commands as text frames instead of binary frames.
func WithWebSocketText() Option {
	return optFunc(func(cfg *config) error {
		cfg.wsText = true
		return nil
	})
}

// WithLogger sets the logger for the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
