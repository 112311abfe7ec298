package scpi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAsker answers every query from a table and records what was asked.
type fakeAsker struct {
	answers map[string]string
	err     error
	asked   []string
}

func (f *fakeAsker) Ask(cmd string) (string, error) {
	f.asked = append(f.asked, cmd)
	if f.err != nil {
		return "", f.err
	}

	return f.answers[cmd], nil
}

func TestResolveByteOrder(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		token    string
		response string
		want     ByteOrder
	}{
		{"NORM device answers NORM", ":format:border?", "NORM", "NORM\n", LittleEndian},
		{"NORM device answers SWAP", ":format:border?", "NORM", "SWAP\n", BigEndian},
		{"LSBF device answers NORM", ":waveform:byteorder?", "LSBF", "NORM\n", BigEndian},
		{"LSBF device answers LSBF", ":waveform:byteorder?", "LSBF", " LSBF \r\n", LittleEndian},
		{"LSBF device answers MSBF", ":waveform:byteorder?", "LSBF", "MSBF\n", BigEndian},
		{"case-insensitive", ":format:border?", "NORM", "norm\n", LittleEndian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAsker{answers: map[string]string{tt.query: tt.response}}

			got, err := ResolveByteOrder(a, tt.query, tt.token)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, []string{tt.query}, a.asked)
		})
	}
}

func TestResolveByteOrder_NoQuery(t *testing.T) {
	a := &fakeAsker{}

	got, err := ResolveByteOrder(a, "", "NORM")
	require.NoError(t, err)
	require.Equal(t, BigEndian, got)
	require.Empty(t, a.asked)
}

func TestResolveByteOrder_NotCached(t *testing.T) {
	a := &fakeAsker{answers: map[string]string{":format:border?": "NORM\n"}}

	got, err := ResolveByteOrder(a, ":format:border?", "NORM")
	require.NoError(t, err)
	require.Equal(t, LittleEndian, got)

	a.answers[":format:border?"] = "SWAP\n"
	got, err = ResolveByteOrder(a, ":format:border?", "NORM")
	require.NoError(t, err)
	require.Equal(t, BigEndian, got)
	require.Len(t, a.asked, 2)
}

func TestResolveByteOrder_Errors(t *testing.T) {
	_, err := ResolveByteOrder(&fakeAsker{}, ":format:border?", "")
	require.ErrorIs(t, err, ErrProtocolUsage)

	boom := errors.New("link down")
	_, err = ResolveByteOrder(&fakeAsker{err: boom}, ":format:border?", "NORM")
	require.ErrorIs(t, err, boom)
}

func TestResolveByteOrder_OverConn(t *testing.T) {
	s := newScriptedStream("LSBF\n")
	c := newTestConn(t, s)

	got, err := ResolveByteOrder(c, ":waveform:byteorder?", "LSBF")
	require.NoError(t, err)
	require.Equal(t, LittleEndian, got)
	require.Equal(t, ":waveform:byteorder?\n", s.written.String())
}

func TestResolveWidth(t *testing.T) {
	tests := []struct {
		response string
		want     Width
	}{
		{"REAL,32\n", WidthSingle},
		{"real, 64\n", WidthDouble},
		{"REAL,16\n", WidthHalf},
	}

	tokens := FormatTokens{Half: "REAL,16", Single: "REAL,32", Double: "REAL,64"}
	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			a := &fakeAsker{answers: map[string]string{":format:data?": tt.response}}

			got, err := ResolveWidth(a, ":format:data?", tokens, WidthSingle)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolveWidth_Fallback(t *testing.T) {
	a := &fakeAsker{}

	got, err := ResolveWidth(a, "", DefaultFormatTokens, WidthDouble)
	require.NoError(t, err)
	require.Equal(t, WidthDouble, got)
	require.Empty(t, a.asked)

	_, err = ResolveWidth(a, "", DefaultFormatTokens, Width(0))
	require.ErrorIs(t, err, ErrDecode)
}

func TestResolveWidth_Unknown(t *testing.T) {
	a := &fakeAsker{answers: map[string]string{":format:data?": "ASC,0\n"}}

	_, err := ResolveWidth(a, ":format:data?", DefaultFormatTokens, WidthSingle)
	require.ErrorIs(t, err, ErrDecode)

	// a half token that is not configured never matches
	a.answers[":format:data?"] = "\n"
	_, err = ResolveWidth(a, ":format:data?", DefaultFormatTokens, WidthSingle)
	require.ErrorIs(t, err, ErrDecode)
}

// TestEndToEnd_FormatThenBlock drives the full read path for a REAL,32 block of six samples.
func TestEndToEnd_FormatThenBlock(t *testing.T) {
	require := require.New(t)

	samples := []float32{0.5, -0.25, 1, 2, 3.75, -8}
	payload, err := EncodeFloats(samples, BigEndian, WidthSingle)
	require.NoError(err)
	require.Len(payload, 24)

	// instruments may zero-pad the size; AppendBlock writes the shortest form
	require.Equal("#224", string(AppendBlock(nil, payload)[:4]))

	s := newScriptedStream("REAL,32\n", "SWAP\n", "#3024", string(payload[:10]), string(payload[10:])+"\n")
	c := newTestConn(t, s)

	_, err = c.Write(":format:data real,32")
	require.NoError(err)

	width, err := ResolveWidth(c, ":format:data?", DefaultFormatTokens, WidthDouble)
	require.NoError(err)
	require.Equal(WidthSingle, width)

	order, err := ResolveByteOrder(c, ":format:border?", "NORM")
	require.NoError(err)
	require.Equal(BigEndian, order)

	_, err = c.Write(":trace:data? trace1")
	require.NoError(err)

	raw, err := c.ReadBlock()
	require.NoError(err)

	got, err := DecodeFloats(raw, order, width)
	require.NoError(err)
	require.Len(got, 6)
	require.Equal(samples, got)
	require.Equal(":format:data real,32\n:format:data?\n:format:border?\n:trace:data? trace1\n", s.written.String())
}
