package instrument

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-scpi/logger"
	"github.com/arloliu/go-scpi/scpi"
	"github.com/arloliu/go-scpi/transport"
)

// Client talks to one instrument described by a Profile.
type Client struct {
	profile Profile
	tr      transport.Transport
	conn    *scpi.Conn
	logger  logger.Logger
	metrics ClientMetrics

	misaligned atomic.Bool
	closed     atomic.Bool
	closeOnce  sync.Once
	closeErr   error
}

var _ scpi.Asker = (*Client)(nil)

// Open validates p, opens its transport and returns a ready client.
//
// The caller must Close the client; With does so automatically.
func Open(ctx context.Context, p Profile, opts ...Option) (*Client, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	cfg, err := newClientConfig(opts...)
	if err != nil {
		return nil, err
	}

	log := cfg.logger.With("instrument", p.Nickname)

	trOpts := append([]transport.Option{transport.WithLogger(log)}, cfg.transportOpts...)
	tr, err := cfg.opener(ctx, p.Transport, trOpts...)
	if err != nil {
		log.Error("instrument: open failed", "transport", p.Transport.String(), "error", err)
		return nil, err
	}

	connOpts := append([]scpi.ConnOption{scpi.WithLogger(log)}, cfg.connOpts...)
	conn, err := scpi.NewConn(tr, connOpts...)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}

	log.Info("instrument: opened", "transport", p.Transport.String())

	return &Client{profile: p, tr: tr, conn: conn, logger: log}, nil
}

// With opens the instrument, runs fn and closes the instrument on every exit path, panics included.
// A close error is joined with the error returned by fn.
func With(ctx context.Context, p Profile, fn func(*Client) error, opts ...Option) (err error) {
	c, err := Open(ctx, p, opts...)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := c.Close()
		if r := recover(); r != nil {
			panic(r)
		}
		err = errors.Join(err, closeErr)
	}()

	return fn(c)
}

// Profile returns the profile the client was opened with.
func (c *Client) Profile() Profile {
	return c.profile
}

// Metrics returns the live metrics of the client.
func (c *Client) Metrics() *ClientMetrics {
	return &c.metrics
}

// Misaligned reports whether a framing error or an interrupted response has made the
// connection unusable.
func (c *Client) Misaligned() bool {
	return c.misaligned.Load()
}

// Write sends cmd followed by the line terminator.
func (c *Client) Write(cmd string) (int, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}

	n, err := c.conn.Write(cmd)
	c.metrics.addBytesSent(n)
	if err != nil {
		return n, c.fail("write", err)
	}
	c.metrics.incCommandCount()

	return n, nil
}

// Read reads raw bytes from the transport.
func (c *Client) Read(p []byte) (int, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}

	n, err := c.conn.Read(p)
	c.metrics.addBytesReceived(n)
	if err != nil {
		return n, c.fail("read", err)
	}

	return n, nil
}

// ReadASCII reads one response line, terminator included.
func (c *Client) ReadASCII() (string, error) {
	if err := c.usable(); err != nil {
		return "", err
	}

	line, err := c.conn.ReadASCII()
	c.metrics.addBytesReceived(len(line))
	if err != nil {
		return "", c.fail("readASCII", err)
	}

	return line, nil
}

// Ask writes the query cmd and reads the response line. Instruments whose profile is
// Synchronized use AskSynchronized instead. A query header followed by parameters, such as
// ":MEAS:VOLT? (@1)", counts as a query (see scpi.IsQuery).
func (c *Client) Ask(cmd string) (string, error) {
	if c.profile.Synchronized {
		return c.AskSynchronized(cmd)
	}

	return c.ask(cmd, false)
}

// AskSynchronized writes the query cmd and the operation-complete directive, then reads the response line.
func (c *Client) AskSynchronized(cmd string) (string, error) {
	return c.ask(cmd, true)
}

func (c *Client) ask(cmd string, synchronized bool) (string, error) {
	if err := c.usable(); err != nil {
		return "", err
	}

	var (
		resp string
		err  error
	)
	if synchronized {
		resp, err = c.conn.AskSynchronized(cmd)
	} else {
		resp, err = c.conn.Ask(cmd)
	}
	c.metrics.addBytesReceived(len(resp))
	if err != nil {
		return "", c.fail("ask", err, "cmd", cmd)
	}
	c.metrics.incQueryCount()

	return resp, nil
}

// ReadBlock reads one definite-length block and returns its payload.
func (c *Client) ReadBlock() ([]byte, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}

	payload, err := c.conn.ReadBlock()
	if err != nil {
		return nil, c.fail("readBlock", err)
	}
	c.metrics.addBytesReceived(len(payload))
	c.metrics.incBlockCount()

	return payload, nil
}

// WriteBlock sends cmd with payload framed as a definite-length block.
func (c *Client) WriteBlock(cmd string, payload []byte) (int, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}

	n, err := c.conn.WriteBlock(cmd, payload)
	c.metrics.addBytesSent(n)
	if err != nil {
		return n, c.fail("writeBlock", err)
	}
	c.metrics.incCommandCount()

	return n, nil
}

// ByteOrder asks the instrument for its current byte order.
func (c *Client) ByteOrder() (scpi.ByteOrder, error) {
	return scpi.ResolveByteOrder(c, c.profile.ByteOrderQuery, c.profile.LittleEndianToken)
}

// ElementWidth asks the instrument for the element width of binary blocks.
func (c *Client) ElementWidth() (scpi.Width, error) {
	return scpi.ResolveWidth(c, c.profile.DataFormatQuery, c.profile.Format, c.profile.defaultWidth())
}

// AskBinaryFloats writes cmd, reads the binary block it returns, resolves byte order and
// element width, and decodes the payload.
func (c *Client) AskBinaryFloats(cmd string) ([]float32, error) {
	if _, err := c.Write(cmd); err != nil {
		return nil, err
	}

	payload, err := c.ReadBlock()
	if err != nil {
		return nil, err
	}

	order, err := c.ByteOrder()
	if err != nil {
		return nil, err
	}

	width, err := c.ElementWidth()
	if err != nil {
		return nil, err
	}

	values, err := scpi.DecodeFloats(payload, order, width)
	if err != nil {
		return nil, c.fail("decode", err, "order", order.String(), "width", width.String())
	}
	c.logger.Debug("instrument: decoded block", "cmd", cmd, "samples", len(values), "order", order.String(), "width", width.String())

	return values, nil
}

// Close releases the transport. Only the first call does any work; later calls return its result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.tr.Close()
		if c.closeErr != nil {
			c.logger.Warn("instrument: close failed", "error", c.closeErr)
			return
		}
		c.logger.Info("instrument: closed")
	})

	return c.closeErr
}

func (c *Client) usable() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if c.misaligned.Load() {
		return ErrMisaligned
	}

	return nil
}

// fail records err and marks the connection misaligned when err is a framing error,
// interrupted a response partway through, or broke the transport.
func (c *Client) fail(op string, err error, keysAndValues ...any) error {
	c.metrics.incErrorCount()

	framing := errors.Is(err, scpi.ErrFraming)
	if framing || errors.Is(err, scpi.ErrIncomplete) || errors.Is(err, transport.ErrBroken) {
		if framing {
			c.metrics.incFramingErrorCount()
		}
		if c.misaligned.CompareAndSwap(false, true) {
			c.logger.Error("instrument: connection misaligned", append([]any{"op", op, "error", err}, keysAndValues...)...)
		}

		return fmt.Errorf("%s: %w", c.profile.Nickname, err)
	}

	c.logger.Debug("instrument: operation failed", append([]any{"op", op, "error", err}, keysAndValues...)...)

	return err
}
