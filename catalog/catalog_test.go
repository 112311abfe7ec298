package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arloliu/go-scpi/instrument"
	"github.com/arloliu/go-scpi/scpi"
	"github.com/arloliu/go-scpi/transport"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	require := require.New(t)

	c := Builtin()
	require.Equal(13, c.Len())
	require.Equal([]string{
		"arceus", "darkrai", "deoxys", "genesect", "giratina", "heatran", "ho_oh",
		"kyurem", "meloetta", "rayquaza", "xerneas", "yveltal", "zygarde",
	}, c.Nicknames())

	deoxys, ok := c.Lookup("deoxys")
	require.True(ok)
	require.Equal(transport.Descriptor{Kind: transport.KindTCP, Address: "192.168.1.10:5025"}, deoxys.Transport)
	require.Equal(":waveform:byteorder?", deoxys.ByteOrderQuery)
	require.Equal("LSBF", deoxys.LittleEndianToken)

	genesect, err := c.Get("GENESECT")
	require.NoError(err)
	require.Equal(":format:border?", genesect.ByteOrderQuery)
	require.Equal("NORM", genesect.LittleEndianToken)
	require.Equal(":format:data?", genesect.DataFormatQuery)
	require.Equal(scpi.DefaultFormatTokens, genesect.Format)

	arceus, err := c.Get("arceus")
	require.NoError(err)
	require.Equal(transport.KindBus, arceus.Transport.Kind)
	require.Empty(arceus.ByteOrderQuery)

	_, err = c.Get("pikachu")
	require.ErrorIs(err, ErrUnknownInstrument)
}

func TestNew_Rejects(t *testing.T) {
	p := instrument.Profile{
		Nickname:  "bench-psu",
		Transport: transport.Descriptor{Kind: transport.KindSerial, Address: "/dev/ttyUSB0"},
	}

	_, err := New(p, p)
	require.ErrorIs(t, err, ErrDuplicateNickname)

	dup := p
	dup.Nickname = "BENCH-PSU"
	_, err = New(p, dup)
	require.ErrorIs(t, err, ErrDuplicateNickname)

	_, err = New(instrument.Profile{Nickname: "x"})
	require.ErrorIs(t, err, instrument.ErrInvalidProfile)
}

func TestCatalog_Immutable(t *testing.T) {
	c := Builtin()

	names := c.Nicknames()
	names[0] = "mutated"
	require.Equal(t, "arceus", c.Nicknames()[0])

	profiles := c.Profiles()
	profiles[0].Nickname = "mutated"
	p, ok := c.Lookup("arceus")
	require.True(t, ok)
	require.Equal(t, "arceus", p.Nickname)
}

func TestCatalog_Extend(t *testing.T) {
	require := require.New(t)

	override := instrument.Profile{
		Nickname:  "darkrai",
		Name:      "Agilent N9020A MXA Signal Analyzer",
		Transport: transport.Descriptor{Kind: transport.KindTCP, Address: "10.0.0.5:5025"},
	}
	extra := instrument.Profile{
		Nickname:  "gateway-dmm",
		Transport: transport.Descriptor{Kind: transport.KindWebSocket, Address: "ws://10.0.0.9/scpi"},
	}

	c, err := Builtin().Extend(override, extra)
	require.NoError(err)
	require.Equal(14, c.Len())

	p, err := c.Get("darkrai")
	require.NoError(err)
	require.Equal("10.0.0.5:5025", p.Transport.Address)

	orig, err := Builtin().Get("darkrai")
	require.NoError(err)
	require.Equal("192.168.1.5:5025", orig.Transport.Address)

	_, err = Builtin().Extend(extra, extra)
	require.ErrorIs(err, ErrDuplicateNickname)
}

const sampleTOML = `
[[instrument]]
nickname = "scope"
name = "Agilent InfiniiVision MSO7104A"
byte_order_query = ":waveform:byteorder?"
little_endian_token = "LSBF"
default_width = "single"

[instrument.transport]
kind = "tcp"
address = "192.168.1.10:5025"

[[instrument]]
nickname = "smu"
byte_order_query = ":format:border?"
little_endian_token = "NORM"
data_format_query = ":format:data?"
synchronized = true

[instrument.format]
single = "REAL,32"
double = "REAL,64"

[instrument.transport]
kind = "serial"
address = " /dev/ttyUSB0 "
baud_rate = 115200

[[instrument]]
nickname = "analyzer"
default_width = "half"

[instrument.transport]
kind = "usbtmc"
address = "0957:1796"
`

func TestParse(t *testing.T) {
	require := require.New(t)

	c, err := Parse([]byte(sampleTOML))
	require.NoError(err)
	require.Equal([]string{"analyzer", "scope", "smu"}, c.Nicknames())

	scope, err := c.Get("scope")
	require.NoError(err)
	require.Equal("Agilent InfiniiVision MSO7104A", scope.Name)
	require.Equal(transport.KindTCP, scope.Transport.Kind)
	require.Equal(scpi.WidthSingle, scope.DefaultWidth)

	smu, err := c.Get("smu")
	require.NoError(err)
	require.Equal(transport.Descriptor{Kind: transport.KindSerial, Address: "/dev/ttyUSB0", BaudRate: 115200}, smu.Transport)
	require.Equal(scpi.FormatTokens{Single: "REAL,32", Double: "REAL,64"}, smu.Format)
	require.True(smu.Synchronized)

	analyzer, err := c.Get("analyzer")
	require.NoError(err)
	require.Equal(transport.KindBus, analyzer.Transport.Kind)
	require.Equal(scpi.WidthHalf, analyzer.DefaultWidth)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[[instrument]\nnickname = 1"},
		{"unknown key", "[[instrument]]\nnickname = \"a\"\nbyteorder = \"x\"\n[instrument.transport]\nkind = \"tcp\"\naddress = \"h:1\"\n"},
		{"unknown kind", "[[instrument]]\nnickname = \"a\"\n[instrument.transport]\nkind = \"hislip\"\naddress = \"h\"\n"},
		{"missing address", "[[instrument]]\nnickname = \"a\"\n[instrument.transport]\nkind = \"tcp\"\n"},
		{"token missing", "[[instrument]]\nnickname = \"a\"\nbyte_order_query = \":format:border?\"\n[instrument.transport]\nkind = \"tcp\"\naddress = \"h:1\"\n"},
		{"bad width", "[[instrument]]\nnickname = \"a\"\ndefault_width = \"quad\"\n[instrument.transport]\nkind = \"tcp\"\naddress = \"h:1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	require.Zero(t, c.Len())
}
