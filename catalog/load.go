package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/arloliu/go-scpi/instrument"
)

// file is the TOML layout of a catalog file:
//
//	[[instrument]]
//	nickname = "deoxys"
//	name = "Agilent InfiniiVision MSO7104A Mixed Signal Oscilloscope"
//	byte_order_query = ":waveform:byteorder?"
//	little_endian_token = "LSBF"
//
//	[instrument.transport]
//	kind = "tcp"
//	address = "192.168.1.10:5025"
type file struct {
	Instrument []instrument.Profile `toml:"instrument"`
}

// Load reads a TOML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}

	return c, nil
}

// Parse decodes a TOML catalog. Unknown keys are rejected so a misspelled field is not
// silently ignored.
func Parse(data []byte) (*Catalog, error) {
	var f file
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("catalog: unknown keys: %s", strings.Join(keys, ", "))
	}

	for i := range f.Instrument {
		p := &f.Instrument[i]
		p.Nickname = strings.TrimSpace(p.Nickname)
		p.Transport.Address = strings.TrimSpace(p.Transport.Address)
	}

	return New(f.Instrument...)
}
