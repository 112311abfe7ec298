package catalog

import (
	"github.com/arloliu/go-scpi/instrument"
	"github.com/arloliu/go-scpi/scpi"
	"github.com/arloliu/go-scpi/transport"
)

// builtinProfiles is the microlab bench. GPIB instruments are addressed by the nickname their
// bus driver knows them by; LAN instruments listen on the SCPI raw socket port.
var builtinProfiles = []instrument.Profile{
	gpib("arceus", "Agilent 8753ES S-Parameter Network Analyzer"),
	gpib("meloetta", "Hewlett-Packard 6623A System DC Power Supply"),
	gpib("xerneas", "Hewlett-Packard 4156A Precision Semiconductor Parameter Analyzer"),

	lan("darkrai", "Agilent N9020A MXA Signal Analyzer", "192.168.1.5"),
	withByteOrder(lan("deoxys", "Agilent InfiniiVision MSO7104A Mixed Signal Oscilloscope", "192.168.1.10"),
		":waveform:byteorder?", "LSBF"),
	withFormat(withByteOrder(lan("genesect", "Agilent B2962A Power Source", "192.168.1.9"),
		":format:border?", "NORM")),
	withFormat(withByteOrder(lan("giratina", "Agilent B2962A Power Source", "192.168.1.8"),
		":format:border?", "NORM")),
	lan("heatran", "Agilent 16803A Logic Analyzer", "192.168.1.11"),
	lan("ho_oh", "Agilent N5182A MXG Vector Signal Generator", "192.168.1.4"),
	lan("kyurem", "Agilent N5183A MXG Analog Signal Generator", "192.168.1.3"),
	lan("rayquaza", "Agilent E4443A PSA Series Spectrum Analyzer", "192.168.1.2"),
	withFormat(withByteOrder(lan("yveltal", "Agilent B2902A Precision Source/Measure Unit", "192.168.1.7"),
		":format:border?", "NORM")),
	lan("zygarde", "Agilent E5071C ENA Series Network Analyzer", "192.168.1.6"),
}

var builtin = mustNew(builtinProfiles...)

// Builtin returns the built-in microlab catalog.
func Builtin() *Catalog {
	return builtin
}

func gpib(nickname, name string) instrument.Profile {
	return instrument.Profile{
		Nickname:  nickname,
		Name:      name,
		Transport: transport.Descriptor{Kind: transport.KindBus, Address: nickname},
	}
}

func lan(nickname, name, host string) instrument.Profile {
	return instrument.Profile{
		Nickname:  nickname,
		Name:      name,
		Transport: transport.Descriptor{Kind: transport.KindTCP, Address: host + ":5025"},
	}
}

func withByteOrder(p instrument.Profile, query, littleToken string) instrument.Profile {
	p.ByteOrderQuery = query
	p.LittleEndianToken = littleToken

	return p
}

func withFormat(p instrument.Profile) instrument.Profile {
	p.DataFormatQuery = ":format:data?"
	p.Format = scpi.DefaultFormatTokens

	return p
}

func mustNew(profiles ...instrument.Profile) *Catalog {
	c, err := New(profiles...)
	if err != nil {
		panic(err)
	}

	return c
}
