package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/go-scpi/instrument"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
)

var outputFormat string

var fetchCmd = &cobra.Command{
	Use:   "fetch <instrument> <query>",
	Short: "Query a binary block of floating-point samples",
	Long: `Send a query that answers with a definite-length binary block, resolve the
instrument's byte order and element width, and print the decoded samples.`,
	Example: `  scpictl fetch deoxys ":waveform:data?"
  scpictl fetch -o cbor genesect ":trace:data? trace1" > trace.cbor`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := parseOutputFormat(outputFormat); err != nil {
			return err
		}

		return withClient(cmd.Context(), args[0], func(c *instrument.Client) error {
			samples, err := c.AskBinaryFloats(args[1])
			if err != nil {
				return err
			}

			return writeSamples(cmd.OutOrStdout(), outputFormat, sampleSet{
				Instrument: c.Profile().Nickname,
				Query:      args[1],
				Samples:    samples,
			})
		})
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json, cbor)")
	rootCmd.AddCommand(fetchCmd)
}

type sampleFormat uint8

const (
	formatText sampleFormat = iota
	formatJSON
	formatCBOR
)

func parseOutputFormat(name string) (sampleFormat, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return formatText, nil
	case "json":
		return formatJSON, nil
	case "cbor":
		return formatCBOR, nil
	default:
		return formatText, fmt.Errorf("unknown output format %q", name)
	}
}

// sampleSet is the record written by fetch.
type sampleSet struct {
	Instrument string    `json:"instrument" cbor:"instrument"`
	Query      string    `json:"query" cbor:"query"`
	Samples    []float32 `json:"samples" cbor:"samples"`
}

func writeSamples(w io.Writer, name string, s sampleSet) error {
	format, err := parseOutputFormat(name)
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		return writeJSON(w, s)
	case formatCBOR:
		data, err := cbor.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		_, err = w.Write(data)

		return err
	default:
		var sb strings.Builder
		for _, v := range s.Samples {
			sb.WriteString(formatSample(v))
			sb.WriteByte('\n')
		}
		_, err := io.WriteString(w, sb.String())

		return err
	}
}

// writeJSON writes non-finite samples as null, since JSON has no NaN or infinity.
func writeJSON(w io.Writer, s sampleSet) error {
	samples := make([]any, len(s.Samples))
	for i, v := range s.Samples {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			continue
		}
		samples[i] = json.Number(formatSample(v))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(struct {
		Instrument string `json:"instrument"`
		Query      string `json:"query"`
		Samples    []any  `json:"samples"`
	}{s.Instrument, s.Query, samples})
}

func formatSample(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
