package scpi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arloliu/go-scpi/internal/pool"
	"github.com/arloliu/go-scpi/logger"
)

const (
	// DefaultTerminator is appended to every command written by Conn.
	DefaultTerminator = "\n"

	// DefaultChunkSize is the read size used while accumulating ASCII responses.
	DefaultChunkSize = pool.DefaultBufferSize

	// DefaultSyncDirective is written after a command by AskSynchronized.
	DefaultSyncDirective = "*OPC"

	// maxEmptyReads bounds consecutive (0, nil) reads before giving up with io.ErrNoProgress.
	maxEmptyReads = 100
)

var errConnConfigNil = errors.New("scpi: conn config is nil")

// connConfig holds the settings of a Conn.
type connConfig struct {
	terminator    string
	chunkSize     int
	syncDirective string
	logger        logger.Logger
}

func newConnConfig(opts ...ConnOption) (*connConfig, error) {
	cfg := &connConfig{
		terminator:    DefaultTerminator,
		chunkSize:     DefaultChunkSize,
		syncDirective: DefaultSyncDirective,
		logger:        logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ConnOption represents a functional option for configuring a Conn.
type ConnOption interface {
	apply(*connConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*connConfig) error
}

func (o *connOptFunc) apply(cfg *connConfig) error {
	if cfg == nil {
		return errConnConfigNil
	}

	return o.applyFunc(cfg)
}

func newConnOptFunc(name string, f func(*connConfig) error) *connOptFunc {
	return &connOptFunc{name: name, applyFunc: f}
}

// WithTerminator sets the line terminator appended to every command.
//
// The terminator must end with a line-feed, since responses are delimited by one.
// The default is "\n".
func WithTerminator(term string) ConnOption {
	return newConnOptFunc("WithTerminator", func(cfg *connConfig) error {
		if !strings.HasSuffix(term, "\n") {
			return fmt.Errorf("scpi: terminator %q must end with a line-feed", term)
		}
		cfg.terminator = term

		return nil
	})
}

// WithChunkSize sets the read size used by ReadASCII. The default is 4096 bytes.
func WithChunkSize(size int) ConnOption {
	return newConnOptFunc("WithChunkSize", func(cfg *connConfig) error {
		if size <= 0 {
			return fmt.Errorf("scpi: invalid chunk size %d", size)
		}
		cfg.chunkSize = size

		return nil
	})
}

// WithSyncDirective sets the operation-complete directive written by AskSynchronized.
// The default is "*OPC".
func WithSyncDirective(directive string) ConnOption {
	return newConnOptFunc("WithSyncDirective", func(cfg *connConfig) error {
		if strings.TrimSpace(directive) == "" {
			return errors.New("scpi: sync directive is empty")
		}
		cfg.syncDirective = directive

		return nil
	})
}

// WithLogger sets the logger of the Conn. The default is the package-level logger.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *connConfig) error {
		if l == nil {
			return errors.New("scpi: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
