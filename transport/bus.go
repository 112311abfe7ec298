package transport

import (
	"context"
	"sync/atomic"

	"github.com/arloliu/go-scpi/logger"
)

// BusDriver opens addressed devices on an instrument bus.
//
// The driver owns the bus and hands out one BusDevice per address. GPIB adapters and
// USBTMC are typical drivers; package transport/usbtmc provides the latter.
type BusDriver interface {
	// OpenDevice opens the device at address.
	OpenDevice(ctx context.Context, address string) (BusDevice, error)
}

// BusDevice is a device handle managed by a BusDriver.
type BusDevice interface {
	// Read reads at most len(p) bytes of the pending response.
	Read(p []byte) (int, error)
	// Write sends p as one complete message.
	Write(p []byte) (int, error)
	// Clear performs a device clear, discarding pending input and output.
	Clear() error
	// Close releases the handle.
	Close() error
}

// BusTransport is a Transport over a BusDevice.
type BusTransport struct {
	dev    BusDevice
	addr   string
	logger logger.Logger
	closed atomic.Bool
}

var _ Transport = (*BusTransport)(nil)

func openBus(ctx context.Context, address string, cfg *config) (*BusTransport, error) {
	if cfg.busDriver == nil {
		return nil, newError("open", KindBus, address, ErrNoBusDriver)
	}

	dev, err := cfg.busDriver.OpenDevice(ctx, address)
	if err != nil {
		return nil, newError("open", KindBus, address, err)
	}

	t := &BusTransport{dev: dev, addr: address, logger: cfg.logger}
	if cfg.reset {
		if err := dev.Clear(); err != nil {
			_ = t.Close()
			return nil, newError("reset", KindBus, address, err)
		}
	}

	t.logger.Debug("transport: bus device opened", "addr", address)

	return t, nil
}

func (t *BusTransport) Read(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, newError("read", KindBus, t.addr, ErrClosed)
	}

	n, err := t.dev.Read(p)
	if err != nil {
		return n, newError("read", KindBus, t.addr, err)
	}

	return n, nil
}

func (t *BusTransport) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, newError("write", KindBus, t.addr, ErrClosed)
	}

	n, err := t.dev.Write(p)
	if err != nil {
		return n, newError("write", KindBus, t.addr, err)
	}

	return n, nil
}

// Clear performs a device clear on the underlying bus device.
func (t *BusTransport) Clear() error {
	if t.closed.Load() {
		return newError("reset", KindBus, t.addr, ErrClosed)
	}

	return newError("reset", KindBus, t.addr, t.dev.Clear())
}

// Close releases the device handle. Only the first call releases it; later calls return nil.
func (t *BusTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := t.dev.Close(); err != nil {
		return newError("close", KindBus, t.addr, err)
	}
	t.logger.Debug("transport: bus device closed", "addr", t.addr)

	return nil
}

func (t *BusTransport) Kind() Kind { return KindBus }

func (t *BusTransport) Addr() string { return t.addr }
