package instrument

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-scpi/scpi"
	"github.com/arloliu/go-scpi/transport"
)

// Profile is the immutable description of one instrument.
type Profile struct {
	// Nickname is the short lookup key, e.g. "deoxys".
	Nickname string `toml:"nickname"`
	// Name is the human-readable model name.
	Name string `toml:"name"`
	// Transport describes how to reach the instrument.
	Transport transport.Descriptor `toml:"transport"`

	// ByteOrderQuery returns the current byte order, e.g. ":format:border?".
	// Empty means the instrument always sends big-endian data.
	ByteOrderQuery string `toml:"byte_order_query"`
	// LittleEndianToken is the ByteOrderQuery response meaning little-endian, e.g. "NORM" or "LSBF".
	LittleEndianToken string `toml:"little_endian_token"`

	// DataFormatQuery returns the element format of binary blocks, e.g. ":format:data?".
	// Empty means DefaultWidth is always used.
	DataFormatQuery string `toml:"data_format_query"`
	// Format maps DataFormatQuery responses to element widths.
	Format scpi.FormatTokens `toml:"format"`
	// DefaultWidth is used when DataFormatQuery is empty. Zero means single precision.
	DefaultWidth scpi.Width `toml:"default_width"`

	// Synchronized makes Ask use the operation-complete synchronized exchange.
	Synchronized bool `toml:"synchronized"`
}

// Validate checks that the profile is usable.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Nickname) == "" {
		return fmt.Errorf("%w: empty nickname", ErrInvalidProfile)
	}
	if err := p.Transport.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidProfile, p.Nickname, err)
	}

	if p.ByteOrderQuery != "" {
		if !scpi.IsQuery(p.ByteOrderQuery) {
			return fmt.Errorf("%w: %s: byte-order query %q is not a query", ErrInvalidProfile, p.Nickname, p.ByteOrderQuery)
		}
		if strings.TrimSpace(p.LittleEndianToken) == "" {
			return fmt.Errorf("%w: %s: byte-order query without little-endian token", ErrInvalidProfile, p.Nickname)
		}
	}

	if p.DataFormatQuery != "" {
		if !scpi.IsQuery(p.DataFormatQuery) {
			return fmt.Errorf("%w: %s: data-format query %q is not a query", ErrInvalidProfile, p.Nickname, p.DataFormatQuery)
		}
		if p.Format == (scpi.FormatTokens{}) {
			return fmt.Errorf("%w: %s: data-format query without format tokens", ErrInvalidProfile, p.Nickname)
		}
	}

	if p.DefaultWidth != 0 && !p.DefaultWidth.Valid() {
		return fmt.Errorf("%w: %s: invalid default width %d", ErrInvalidProfile, p.Nickname, int(p.DefaultWidth))
	}

	return nil
}

func (p Profile) defaultWidth() scpi.Width {
	if p.DefaultWidth == 0 {
		return scpi.WidthSingle
	}

	return p.DefaultWidth
}

func (p Profile) String() string {
	if p.Name == "" {
		return p.Nickname + " (" + p.Transport.String() + ")"
	}

	return p.Nickname + " [" + p.Name + "] (" + p.Transport.String() + ")"
}
