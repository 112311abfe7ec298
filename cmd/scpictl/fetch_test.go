package main

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func testSampleSet() sampleSet {
	return sampleSet{
		Instrument: "deoxys",
		Query:      ":waveform:data?",
		Samples:    []float32{0.1, -2.5, 1e6, float32(math.Inf(1)), float32(math.NaN())},
	}
}

func TestWriteSamples_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSamples(&buf, "text", testSampleSet()))
	require.Equal(t, "0.1\n-2.5\n1e+06\n+Inf\nNaN\n", buf.String())
}

func TestWriteSamples_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSamples(&buf, "JSON", testSampleSet()))

	var got struct {
		Instrument string     `json:"instrument"`
		Query      string     `json:"query"`
		Samples    []*float64 `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "deoxys", got.Instrument)
	require.Equal(t, ":waveform:data?", got.Query)
	require.Len(t, got.Samples, 5)
	require.InDelta(t, 0.1, *got.Samples[0], 1e-9)
	require.InDelta(t, -2.5, *got.Samples[1], 0)
	require.InDelta(t, 1e6, *got.Samples[2], 0)
	require.Nil(t, got.Samples[3])
	require.Nil(t, got.Samples[4])
}

func TestWriteSamples_CBOR(t *testing.T) {
	var buf bytes.Buffer
	want := testSampleSet()
	require.NoError(t, writeSamples(&buf, "cbor", want))

	var got sampleSet
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, want.Instrument, got.Instrument)
	require.Equal(t, want.Query, got.Query)
	require.Len(t, got.Samples, len(want.Samples))
	for i := range 4 {
		require.Equal(t, math.Float32bits(want.Samples[i]), math.Float32bits(got.Samples[i]), "sample %d", i)
	}
	require.True(t, math.IsNaN(float64(got.Samples[4])))
}

func TestWriteSamples_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, writeSamples(&buf, "csv", testSampleSet()))
	require.Zero(t, buf.Len())

	_, err := parseOutputFormat("yaml")
	require.Error(t, err)
}
