package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/arloliu/go-scpi/catalog"
	"github.com/arloliu/go-scpi/instrument"
	"github.com/arloliu/go-scpi/scpi"
	"github.com/arloliu/go-scpi/transport"
	"github.com/arloliu/go-scpi/transport/usbtmc"
	"golang.org/x/term"
)

// loadCatalog returns the built-in catalog, extended by --catalog when given.
func loadCatalog() (*catalog.Catalog, error) {
	c := catalog.Builtin()
	if catalogPath == "" {
		return c, nil
	}

	extra, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, err
	}

	return c.Extend(extra.Profiles()...)
}

// resolveProfile turns a nickname or URL target into a profile.
func resolveProfile(target string) (instrument.Profile, error) {
	if !strings.Contains(target, "://") {
		c, err := loadCatalog()
		if err != nil {
			return instrument.Profile{}, err
		}

		p, err := c.Get(target)
		if err != nil {
			return instrument.Profile{}, err
		}
		if synchronized {
			p.Synchronized = true
		}

		return p, nil
	}

	d, err := parseDescriptor(target)
	if err != nil {
		return instrument.Profile{}, err
	}

	p := instrument.Profile{
		Nickname:          target,
		Transport:         d,
		ByteOrderQuery:    byteOrderQuery,
		LittleEndianToken: littleToken,
		DataFormatQuery:   formatQuery,
		Synchronized:      synchronized,
	}
	if formatQuery != "" {
		p.Format = scpi.DefaultFormatTokens
	}
	if widthName != "" {
		if p.DefaultWidth, err = scpi.ParseWidth(widthName); err != nil {
			return instrument.Profile{}, err
		}
	}

	return p, p.Validate()
}

// parseDescriptor parses "kind://address". WebSocket URLs keep their scheme.
func parseDescriptor(target string) (transport.Descriptor, error) {
	scheme, rest, ok := strings.Cut(target, "://")
	if !ok || rest == "" {
		return transport.Descriptor{}, fmt.Errorf("invalid target %q, want kind://address", target)
	}

	switch strings.ToLower(scheme) {
	case "ws", "wss":
		return transport.Descriptor{Kind: transport.KindWebSocket, Address: target}, nil
	}

	kind, err := transport.ParseKind(scheme)
	if err != nil {
		return transport.Descriptor{}, err
	}

	d := transport.Descriptor{Kind: kind, Address: rest}
	if kind == transport.KindSerial {
		d.BaudRate = baudRate
	}

	return d, nil
}

// instrumentOptions builds the client options for p from the command-line flags.
// The returned cleanup releases resources such as the USB context.
func instrumentOptions(p instrument.Profile) ([]instrument.Option, func(), error) {
	trOpts := []transport.Option{transport.WithReadTimeout(readTimeout)}
	if noReset {
		trOpts = append(trOpts, transport.WithoutReset())
	}

	cleanup := func() {}

	switch p.Transport.Kind {
	case transport.KindBus:
		if _, err := usbtmc.ParseAddress(p.Transport.Address); err != nil {
			return nil, cleanup, fmt.Errorf("%w: %s is at bus address %q; scpictl only drives USBTMC addresses (VID:PID[:SERIAL])",
				transport.ErrNoBusDriver, p.Nickname, p.Transport.Address)
		}
		drv := usbtmc.NewDriver(readTimeout)
		trOpts = append(trOpts, transport.WithBusDriver(drv))
		cleanup = func() { _ = drv.Close() }

	case transport.KindWebSocket:
		if wsUsername != "" {
			password, err := readPassword()
			if err != nil {
				return nil, cleanup, err
			}
			header := http.Header{}
			credentials := base64.StdEncoding.EncodeToString([]byte(wsUsername + ":" + password))
			header.Set("Authorization", "Basic "+credentials)
			trOpts = append(trOpts, transport.WithWebSocketHeader(header))
		}
		if wsNoSSLVerify {
			trOpts = append(trOpts, transport.WithWebSocketInsecure())
		}
	}

	return []instrument.Option{instrument.WithTransportOptions(trOpts...)}, cleanup, nil
}

// readPassword reads the WebSocket password from SCPI_PASSWORD or the terminal.
func readPassword() (string, error) {
	if pw := os.Getenv("SCPI_PASSWORD"); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(pw), nil
}

// withClient opens target, runs fn and closes the instrument.
func withClient(ctx context.Context, target string, fn func(*instrument.Client) error) error {
	p, err := resolveProfile(target)
	if err != nil {
		return err
	}

	opts, cleanup, err := instrumentOptions(p)
	defer cleanup()
	if err != nil {
		return err
	}

	return instrument.With(ctx, p, fn, opts...)
}
