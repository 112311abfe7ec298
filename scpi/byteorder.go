package scpi

import (
	"fmt"
	"strings"
)

// Asker sends a query and returns the response line. *Conn implements it.
type Asker interface {
	Ask(cmd string) (string, error)
}

var _ Asker = (*Conn)(nil)

// ResolveByteOrder asks the instrument for its current byte order.
//
// An empty query means the instrument has no byte-order setting; BigEndian is returned and
// nothing is sent. Otherwise the trimmed response is compared, ignoring case, with
// littleToken (e.g. "NORM" for ":format:border?" or "LSBF" for ":waveform:byteorder?");
// a match is LittleEndian and anything else is BigEndian.
//
// The result is never cached because instruments can change byte order at run time.
func ResolveByteOrder(a Asker, query string, littleToken string) (ByteOrder, error) {
	if strings.TrimSpace(query) == "" {
		return BigEndian, nil
	}
	if strings.TrimSpace(littleToken) == "" {
		return BigEndian, fmt.Errorf("%w: byte-order query %q has no little-endian token", ErrProtocolUsage, query)
	}

	resp, err := a.Ask(query)
	if err != nil {
		return BigEndian, err
	}

	if strings.EqualFold(strings.TrimSpace(resp), strings.TrimSpace(littleToken)) {
		return LittleEndian, nil
	}

	return BigEndian, nil
}

// FormatTokens are the responses of a data-format query for each element width,
// e.g. "REAL,32" and "REAL,64". An empty token is never matched.
type FormatTokens struct {
	Half   string `toml:"half,omitempty"`
	Single string `toml:"single,omitempty"`
	Double string `toml:"double,omitempty"`
}

// DefaultFormatTokens are the IEEE 488.2 ":FORMat:DATA?" responses.
var DefaultFormatTokens = FormatTokens{Single: "REAL,32", Double: "REAL,64"}

// ResolveWidth asks the instrument for its data format and maps the response to a Width.
//
// An empty query returns fallback without sending anything. Responses are compared ignoring
// case and blanks, so "REAL, 32\n" matches "REAL,32". A response that matches no token fails
// with ErrDecode.
func ResolveWidth(a Asker, query string, tokens FormatTokens, fallback Width) (Width, error) {
	if strings.TrimSpace(query) == "" {
		if !fallback.Valid() {
			return 0, fmt.Errorf("%w: no data-format query and invalid default width %d", ErrDecode, int(fallback))
		}
		return fallback, nil
	}

	resp, err := a.Ask(query)
	if err != nil {
		return 0, err
	}

	got := normalizeToken(resp)
	for _, c := range []struct {
		token string
		width Width
	}{
		{tokens.Half, WidthHalf},
		{tokens.Single, WidthSingle},
		{tokens.Double, WidthDouble},
	} {
		if c.token != "" && strings.EqualFold(got, normalizeToken(c.token)) {
			return c.width, nil
		}
	}

	return 0, fmt.Errorf("%w: unrecognized data format %q", ErrDecode, strings.TrimSpace(resp))
}

func normalizeToken(s string) string {
	return strings.Join(strings.Fields(s), "")
}
