package scpi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arloliu/go-scpi/internal/pool"
	"github.com/arloliu/go-scpi/logger"
	"github.com/arloliu/go-scpi/transport"
)

// Conn is the SCPI line protocol over a byte stream.
//
// A Conn does not own rw; closing the underlying transport is the caller's job.
// Conn is not safe for concurrent use.
type Conn struct {
	rw     io.ReadWriter
	cfg    *connConfig
	logger logger.Logger
}

// NewConn creates a Conn over rw, normally a transport.Transport.
func NewConn(rw io.ReadWriter, opts ...ConnOption) (*Conn, error) {
	if rw == nil {
		return nil, errors.New("scpi: nil reader/writer")
	}

	cfg, err := newConnConfig(opts...)
	if err != nil {
		return nil, err
	}

	c := &Conn{rw: rw, cfg: cfg, logger: cfg.logger}
	if t, ok := rw.(transport.Transport); ok {
		c.logger = cfg.logger.With("kind", t.Kind().String(), "addr", t.Addr())
	}

	return c, nil
}

// Write sends cmd followed by the line terminator and returns the number of bytes written,
// terminator included. Trailing line breaks in cmd are replaced by the terminator.
//
// An empty or blank command fails with ErrProtocolUsage and nothing is written.
func (c *Conn) Write(cmd string) (int, error) {
	cmd = strings.TrimRight(cmd, "\r\n")
	if strings.TrimSpace(cmd) == "" {
		return 0, fmt.Errorf("%w: empty command", ErrProtocolUsage)
	}

	buf := make([]byte, 0, len(cmd)+len(c.cfg.terminator))
	buf = append(buf, cmd...)
	buf = append(buf, c.cfg.terminator...)

	n, err := c.writeAll(buf)
	if err != nil {
		c.logger.Debug("scpi: write failed", "cmd", cmd, "written", n, "error", err)
		return n, err
	}
	c.logger.Debug("scpi: write", "cmd", cmd, "bytes", n)

	return n, nil
}

// WriteBlock sends cmd followed by payload framed as a definite-length block and the terminator,
// e.g. ":TRAC:DATA #14<4 bytes>\n".
func (c *Conn) WriteBlock(cmd string, payload []byte) (int, error) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return 0, fmt.Errorf("%w: empty command", ErrProtocolUsage)
	}

	buf := make([]byte, 0, len(cmd)+len(payload)+len(c.cfg.terminator)+12)
	buf = append(buf, cmd...)
	buf = append(buf, ' ')
	buf = appendBlockHeader(buf, len(payload))
	buf = append(buf, payload...)
	buf = append(buf, c.cfg.terminator...)

	n, err := c.writeAll(buf)
	if err != nil {
		c.logger.Debug("scpi: write block failed", "cmd", cmd, "written", n, "error", err)
		return n, err
	}
	c.logger.Debug("scpi: write block", "cmd", cmd, "payload", len(payload), "bytes", n)

	return n, nil
}

// Ask writes the query cmd and reads one ASCII response line.
//
// cmd must be a query (see IsQuery); otherwise Ask fails with ErrProtocolUsage before
// writing anything. The query header may be followed by parameters, as in
// ":MEAS:VOLT? (@1)", so cmd need not end with '?'.
func (c *Conn) Ask(cmd string) (string, error) {
	if !IsQuery(cmd) {
		return "", fmt.Errorf("%w: %q is not a query", ErrProtocolUsage, cmd)
	}

	if _, err := c.Write(cmd); err != nil {
		return "", err
	}

	return c.ReadASCII()
}

// AskSynchronized writes the query cmd, then the operation-complete directive, then reads
// one ASCII response line.
//
// cmd must be a query as defined by IsQuery, parameters after the header included; the
// check happens before any bytes are sent.
func (c *Conn) AskSynchronized(cmd string) (string, error) {
	if !IsQuery(cmd) {
		return "", fmt.Errorf("%w: %q is not a query", ErrProtocolUsage, cmd)
	}

	if _, err := c.Write(cmd); err != nil {
		return "", err
	}
	if _, err := c.Write(c.cfg.syncDirective); err != nil {
		return "", err
	}

	return c.ReadASCII()
}

// ReadASCII reads chunks until one contains a line-feed and returns everything received up to
// and including it. Chunks are concatenated in arrival order; bytes after the line-feed in
// the final chunk are discarded.
//
// A read error after part of the line arrived is wrapped in ErrIncomplete.
func (c *Conn) ReadASCII() (string, error) {
	bp := pool.GetBuffer(c.cfg.chunkSize)
	defer pool.PutBuffer(bp)
	chunk := *bp

	var line []byte
	empty := 0
	for {
		n, err := c.rw.Read(chunk)
		if n > 0 {
			empty = 0
			if i := bytes.IndexByte(chunk[:n], '\n'); i >= 0 {
				if i+1 < n {
					c.logger.Debug("scpi: discarded bytes after line-feed", "count", n-i-1)
				}
				line = append(line, chunk[:i+1]...)
				c.logger.Debug("scpi: read line", "bytes", len(line))

				return string(line), nil
			}
			line = append(line, chunk[:n]...)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", c.readError(fmt.Errorf("no line-feed after %d bytes: %w", len(line), err))
			}
			if len(line) > 0 {
				return "", fmt.Errorf("%w: line cut after %d bytes: %w", ErrIncomplete, len(line), err)
			}
			return "", err
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				if len(line) > 0 {
					return "", c.readError(fmt.Errorf("%w: %w", ErrIncomplete, io.ErrNoProgress))
				}
				return "", c.readError(io.ErrNoProgress)
			}
		}
	}
}

// ReadBlock reads one definite-length block from the connection and returns its payload.
func (c *Conn) ReadBlock() ([]byte, error) {
	payload, err := ReadBlock(c.rw)
	if err != nil {
		c.logger.Debug("scpi: read block failed", "error", err)
		return nil, err
	}
	c.logger.Debug("scpi: read block", "payload", len(payload))

	return payload, nil
}

// Read reads raw bytes from the underlying stream.
func (c *Conn) Read(p []byte) (int, error) {
	return c.rw.Read(p)
}

func (c *Conn) writeAll(buf []byte) (int, error) {
	written := 0
	empty := 0
	for written < len(buf) {
		n, err := c.rw.Write(buf[written:])
		written += n
		if err != nil {
			return written, err
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return written, c.writeError(io.ErrShortWrite)
			}
			continue
		}
		empty = 0
	}

	return written, nil
}

// readError reports a stream failure detected by Conn itself as a transport error.
func (c *Conn) readError(err error) error {
	return c.streamError("read", err)
}

func (c *Conn) writeError(err error) error {
	return c.streamError("write", err)
}

func (c *Conn) streamError(op string, err error) error {
	var existing *transport.Error
	if errors.As(err, &existing) {
		return err
	}

	te := &transport.Error{Op: op, Err: err}
	if t, ok := c.rw.(transport.Transport); ok {
		te.Kind = t.Kind()
		te.Addr = t.Addr()
	}

	return te
}

// IsQuery reports whether cmd is a query: the program header of its last
// semicolon-separated unit ends with '?'.
//
//	IsQuery("*IDN?")                // true
//	IsQuery(":MEAS:VOLT? (@1)")     // true
//	IsQuery(":FORM:DATA REAL,32")   // false
//	IsQuery("*CLS;:SYST:ERR?")      // true
func IsQuery(cmd string) bool {
	unit := cmd
	if i := strings.LastIndexByte(cmd, ';'); i >= 0 {
		unit = cmd[i+1:]
	}

	header := strings.TrimSpace(unit)
	if i := strings.IndexAny(header, " \t"); i >= 0 {
		header = header[:i]
	}

	return strings.HasSuffix(header, "?")
}
