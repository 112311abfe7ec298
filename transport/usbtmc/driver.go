// Package usbtmc provides a transport.BusDriver for USB Test & Measurement Class instruments.
//
// It is built on github.com/google/gousb and therefore needs cgo and libusb-1.0. Programs that
// only use TCP, serial or WebSocket instruments do not import it.
//
//	drv := usbtmc.NewDriver(5 * time.Second)
//	defer drv.Close()
//
//	tr, err := transport.Open(ctx, transport.Descriptor{Kind: transport.KindBus, Address: "0957:1796"},
//		transport.WithBusDriver(drv))
package usbtmc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-scpi/transport"
	"github.com/google/gousb"
)

// Class requests and standard requests used by Clear (USBTMC 1.0, table 15).
const (
	initiateClear       = 5
	checkClearStatus    = 6
	statusSuccess       = 0x01
	statusPending       = 0x02
	classInterfaceIn    = 0xA1 // IN | class | interface
	standardEndpoint    = 0x02 // OUT | standard | endpoint
	clearFeature        = 0x01
	featureEndpointHalt = 0x00
	interfaceClass      = 0xFE
	interfaceSubClass   = 0x03

	clearPollInterval = 10 * time.Millisecond
	clearPollLimit    = 100
)

var (
	// ErrNotFound indicates no device matched the address.
	ErrNotFound = errors.New("usbtmc: device not found")

	// ErrProtocol indicates a malformed or unexpected USBTMC transfer.
	ErrProtocol = errors.New("usbtmc: protocol error")

	// ErrInvalidAddress indicates an address that is not "VID:PID[:SERIAL]".
	ErrInvalidAddress = errors.New("usbtmc: invalid address")
)

// Address identifies a USBTMC instrument by vendor ID, product ID and optional serial.
type Address struct {
	Vendor  uint16
	Product uint16
	Serial  string
}

// ParseAddress parses "VID:PID[:SERIAL]" with hexadecimal IDs,
// optionally prefixed by "usb:" or "usbtmc:".
func ParseAddress(address string) (Address, error) {
	s := strings.TrimSpace(address)
	s = strings.TrimPrefix(s, "usbtmc:")
	s = strings.TrimPrefix(s, "usb:")

	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return Address{}, fmt.Errorf("%w: %q, want VID:PID[:SERIAL]", ErrInvalidAddress, address)
	}

	vid, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 16)
	if err != nil {
		return Address{}, fmt.Errorf("%w: vendor id %q: %w", ErrInvalidAddress, parts[0], err)
	}
	pid, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 16)
	if err != nil {
		return Address{}, fmt.Errorf("%w: product id %q: %w", ErrInvalidAddress, parts[1], err)
	}

	addr := Address{Vendor: uint16(vid), Product: uint16(pid)}
	if len(parts) == 3 {
		addr.Serial = parts[2]
	}

	return addr, nil
}

func (a Address) String() string {
	if a.Serial == "" {
		return fmt.Sprintf("%04x:%04x", a.Vendor, a.Product)
	}

	return fmt.Sprintf("%04x:%04x:%s", a.Vendor, a.Product, a.Serial)
}

// Driver is a transport.BusDriver for USBTMC instruments.
//
// The driver owns one libusb context, created on first use and released by Close.
type Driver struct {
	timeout time.Duration

	mu  sync.Mutex
	ctx *gousb.Context
}

var _ transport.BusDriver = (*Driver)(nil)

// NewDriver creates a driver whose bulk transfers time out after timeout.
// A non-positive timeout selects transport.DefaultReadTimeout.
func NewDriver(timeout time.Duration) *Driver {
	if timeout <= 0 {
		timeout = transport.DefaultReadTimeout
	}

	return &Driver{timeout: timeout}
}

// OpenDevice opens the USBTMC interface of the device at address ("VID:PID[:SERIAL]").
func (d *Driver) OpenDevice(ctx context.Context, address string) (transport.BusDevice, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.ctx == nil {
		d.ctx = gousb.NewContext()
	}
	usbCtx := d.ctx
	d.mu.Unlock()

	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return uint16(desc.Vendor) == addr.Vendor && uint16(desc.Product) == addr.Product
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("usbtmc: enumerate devices: %w", err)
	}

	var dev *gousb.Device
	for _, candidate := range devs {
		if dev == nil && matchSerial(candidate, addr.Serial) {
			dev = candidate
			continue
		}
		_ = candidate.Close()
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}

	tmc, err := claim(ctx, dev, d.timeout)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	return tmc, nil
}

// Close releases the libusb context. Devices opened by the driver must be closed first.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return nil
	}
	err := d.ctx.Close()
	d.ctx = nil

	return err
}

func matchSerial(dev *gousb.Device, serial string) bool {
	if serial == "" {
		return true
	}
	sn, err := dev.SerialNumber()

	return err == nil && sn == serial
}

// device is one claimed USBTMC interface.
type device struct {
	ctx     context.Context
	dev     *gousb.Device
	cfg     *gousb.Config
	intf    *gousb.Interface
	in      *gousb.InEndpoint
	out     *gousb.OutEndpoint
	intfNum int
	timeout time.Duration
	tag     byte
}

func claim(ctx context.Context, dev *gousb.Device, timeout time.Duration) (*device, error) {
	_ = dev.SetAutoDetach(true)

	cfgNum, setting, ok := findSetting(dev.Desc)
	if !ok {
		return nil, fmt.Errorf("%w: no USBTMC interface on bus %d address %d", ErrNotFound, dev.Desc.Bus, dev.Desc.Address)
	}

	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return nil, fmt.Errorf("usbtmc: config %d: %w", cfgNum, err)
	}

	intf, err := cfg.Interface(setting.Number, setting.Alternate)
	if err != nil {
		_ = cfg.Close()
		return nil, fmt.Errorf("usbtmc: claim interface %d: %w", setting.Number, err)
	}

	d := &device{
		ctx:     context.WithoutCancel(ctx),
		dev:     dev,
		cfg:     cfg,
		intf:    intf,
		intfNum: setting.Number,
		timeout: timeout,
	}

	for _, ep := range setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn && d.in == nil {
			d.in, err = intf.InEndpoint(ep.Number)
		} else if ep.Direction == gousb.EndpointDirectionOut && d.out == nil {
			d.out, err = intf.OutEndpoint(ep.Number)
		}
		if err != nil {
			d.release()
			return nil, fmt.Errorf("usbtmc: open endpoint %d: %w", ep.Number, err)
		}
	}

	if d.in == nil || d.out == nil {
		d.release()
		return nil, fmt.Errorf("%w: missing bulk endpoints", ErrProtocol)
	}

	return d, nil
}

func findSetting(desc *gousb.DeviceDesc) (int, gousb.InterfaceSetting, bool) {
	for cfgNum, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.Class(interfaceClass) && alt.SubClass == gousb.Class(interfaceSubClass) {
					return cfgNum, alt, true
				}
			}
		}
	}

	return 0, gousb.InterfaceSetting{}, false
}

func (d *device) nextTag() byte {
	d.tag++
	if d.tag == 0 {
		d.tag = 1
	}

	return d.tag
}

func (d *device) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	msg := encodeMsgOut(d.nextTag(), p)
	if _, err := d.out.WriteContext(ctx, msg); err != nil {
		return 0, timeoutError(ctx, err)
	}

	return len(p), nil
}

func (d *device) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	tag := d.nextTag()
	if _, err := d.out.WriteContext(ctx, encodeRequestMsgIn(tag, len(p))); err != nil {
		return 0, timeoutError(ctx, err)
	}

	maxPacket := d.in.Desc.MaxPacketSize
	if maxPacket <= 0 {
		maxPacket = 64
	}
	bufSize := (headerSize + len(p) + maxPacket - 1) / maxPacket * maxPacket
	buf := make([]byte, bufSize)

	n, err := d.in.ReadContext(ctx, buf)
	if err != nil {
		return 0, timeoutError(ctx, err)
	}

	size, err := decodeMsgIn(buf[:n], tag)
	if err != nil {
		return 0, err
	}
	if size > len(p) {
		return 0, fmt.Errorf("%w: transfer size %d exceeds request %d", ErrProtocol, size, len(p))
	}

	got := copy(p[:size], buf[headerSize:n])
	for got < size {
		m, err := d.in.ReadContext(ctx, buf)
		if err != nil {
			return got, timeoutError(ctx, err)
		}
		got += copy(p[got:size], buf[:m])
	}

	return got, nil
}

// Clear runs the USBTMC INITIATE_CLEAR / CHECK_CLEAR_STATUS sequence and clears the
// halt condition of the bulk-out endpoint.
func (d *device) Clear() error {
	status := make([]byte, 1)
	if _, err := d.dev.Control(classInterfaceIn, initiateClear, 0, uint16(d.intfNum), status); err != nil {
		return fmt.Errorf("usbtmc: initiate clear: %w", err)
	}
	if status[0] != statusSuccess {
		return fmt.Errorf("%w: initiate clear status 0x%02X", ErrProtocol, status[0])
	}

	check := make([]byte, 2)
	for i := 0; ; i++ {
		if _, err := d.dev.Control(classInterfaceIn, checkClearStatus, 0, uint16(d.intfNum), check); err != nil {
			return fmt.Errorf("usbtmc: check clear status: %w", err)
		}
		if check[0] != statusPending {
			break
		}
		if i >= clearPollLimit {
			return fmt.Errorf("%w: clear still pending", transport.ErrTimeout)
		}
		time.Sleep(clearPollInterval)
	}

	epAddr := uint16(d.out.Desc.Address)
	if _, err := d.dev.Control(standardEndpoint, clearFeature, featureEndpointHalt, epAddr, nil); err != nil {
		return fmt.Errorf("usbtmc: clear halt: %w", err)
	}

	return nil
}

func (d *device) Close() error {
	d.release()
	return d.dev.Close()
}

func (d *device) release() {
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.cfg != nil {
		_ = d.cfg.Close()
		d.cfg = nil
	}
}

// timeoutError marks err as a transport timeout when the transfer deadline expired.
func timeoutError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", transport.ErrTimeout, err)
	}

	return err
}
