// Package bench drives many instruments concurrently.
//
// A Bench keeps at most one connection per instrument, opened lazily on first use. Calls for
// the same instrument are serialized; calls for different instruments run in parallel with no
// shared mutable state between their connections. A connection that hits a framing error is
// closed and dropped, so the next call for that instrument starts on a fresh, aligned stream.
package bench

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/arloliu/go-scpi/catalog"
	"github.com/arloliu/go-scpi/instrument"
	"github.com/arloliu/go-scpi/logger"
	"github.com/arloliu/go-scpi/scpi"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrBenchClosed indicates the bench has been closed.
var ErrBenchClosed = errors.New("bench: closed")

// Bench owns one lazily opened connection per instrument of a catalog.
type Bench struct {
	catalog *catalog.Catalog
	cfg     *benchConfig
	logger  logger.Logger
	slots   *xsync.MapOf[string, *slot]
	closed  atomic.Bool
}

// slot serializes access to one instrument; sem holds a token while the instrument is in use.
type slot struct {
	sem    chan struct{}
	client atomic.Pointer[instrument.Client]
}

func newSlot() *slot {
	return &slot{sem: make(chan struct{}, 1)}
}

func (s *slot) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *slot) release() {
	<-s.sem
}

// New creates a bench over the instruments of c.
func New(c *catalog.Catalog, opts ...Option) (*Bench, error) {
	if c == nil {
		return nil, errors.New("bench: catalog is nil")
	}

	cfg, err := newBenchConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Bench{
		catalog: c,
		cfg:     cfg,
		logger:  cfg.logger,
		slots:   xsync.NewMapOf[string, *slot](),
	}, nil
}

// Do runs fn with the client of the instrument named nickname, opening the connection first
// if needed. Only one fn runs per instrument at a time; waiting for it honors ctx.
//
// When fn fails with a framing error or panics, the connection is closed and dropped.
func (b *Bench) Do(ctx context.Context, nickname string, fn func(*instrument.Client) error) error {
	if b.closed.Load() {
		return ErrBenchClosed
	}

	p, err := b.catalog.Get(nickname)
	if err != nil {
		return err
	}

	key := strings.ToLower(p.Nickname)
	s, _ := b.slots.LoadOrCompute(key, newSlot)

	if err := s.acquire(ctx); err != nil {
		return fmt.Errorf("bench: waiting for %s: %w", key, err)
	}
	defer s.release()

	// Close may have run while we waited
	if b.closed.Load() {
		return ErrBenchClosed
	}

	c := s.client.Load()
	if c == nil {
		c, err = instrument.Open(ctx, p, b.cfg.instrumentOpts...)
		if err != nil {
			return err
		}
		s.client.Store(c)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = b.drop(key, s, c, fmt.Errorf("callback panicked: %v", r))
			panic(r)
		}
	}()

	err = fn(c)
	if errors.Is(err, scpi.ErrFraming) || errors.Is(err, scpi.ErrIncomplete) || c.Misaligned() {
		if closeErr := b.drop(key, s, c, err); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	return err
}

// drop closes c and forgets it, so the next Do for the instrument reconnects.
func (b *Bench) drop(key string, s *slot, c *instrument.Client, cause error) error {
	b.logger.Warn("bench: dropping connection", "instrument", key, "cause", cause)
	s.client.CompareAndSwap(c, nil)

	return c.Close()
}

// Connected returns the sorted nicknames of instruments with an open connection.
func (b *Bench) Connected() []string {
	var names []string
	b.slots.Range(func(key string, s *slot) bool {
		if s.client.Load() != nil {
			names = append(names, key)
		}
		return true
	})
	slices.Sort(names)

	return names
}

// Metrics returns the metrics of the open connection to nickname.
func (b *Bench) Metrics(nickname string) (*instrument.ClientMetrics, bool) {
	s, ok := b.slots.Load(strings.ToLower(strings.TrimSpace(nickname)))
	if !ok {
		return nil, false
	}

	c := s.client.Load()
	if c == nil {
		return nil, false
	}

	return c.Metrics(), true
}

// Close waits for in-flight calls, closes every connection and joins their close errors.
// Later calls to Do return ErrBenchClosed.
func (b *Bench) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	b.slots.Range(func(key string, s *slot) bool {
		s.sem <- struct{}{}
		if c := s.client.Swap(nil); c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("bench: close %s: %w", key, err))
			}
		}
		s.release()

		return true
	})

	b.logger.Info("bench: closed")

	return errors.Join(errs...)
}
