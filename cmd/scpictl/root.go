package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/go-scpi/logger"
	"github.com/arloliu/go-scpi/transport"
	"github.com/spf13/cobra"
)

var (
	// catalog and logging flags
	catalogPath string
	logLevel    string

	// transport flags
	readTimeout   time.Duration
	baudRate      int
	noReset       bool
	wsUsername    string
	wsNoSSLVerify bool

	// ad-hoc profile flags, used when the target is a URL instead of a nickname
	byteOrderQuery string
	littleToken    string
	formatQuery    string
	widthName      string
	synchronized   bool
)

var rootCmd = &cobra.Command{
	Use:   "scpictl",
	Short: "SCPI instrument control",
	Long: `scpictl - send SCPI commands to lab instruments and fetch binary data.

An instrument is addressed either by catalog nickname (see "scpictl list") or by URL:
  TCP socket:  tcp://192.168.1.5:5025
  Serial:      serial:///dev/ttyUSB0 [--baud 9600]
  USBTMC:      usbtmc://0957:1796[:SERIAL]
  WebSocket:   ws://gateway/scpi [--username user]

For WebSocket authentication the password is read from the SCPI_PASSWORD environment
variable, or prompted interactively if not set.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "", "TOML catalog merged over the built-in instruments")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.PersistentFlags().DurationVarP(&readTimeout, "timeout", "t", transport.DefaultReadTimeout, "Read timeout")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", transport.DefaultBaudRate, "Baud rate (serial only)")
	rootCmd.PersistentFlags().BoolVar(&noReset, "no-reset", false, "Skip the reset sent when connecting")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth (WebSocket only)")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&byteOrderQuery, "byte-order-query", "", "Byte-order query for URL targets, e.g. :format:border?")
	rootCmd.PersistentFlags().StringVar(&littleToken, "little-token", "", "Byte-order response meaning little-endian, e.g. NORM")
	rootCmd.PersistentFlags().StringVar(&formatQuery, "format-query", "", "Data-format query for URL targets, e.g. :format:data?")
	rootCmd.PersistentFlags().StringVar(&widthName, "width", "", "Element width when no data-format query is set (half, single, double)")
	rootCmd.PersistentFlags().BoolVar(&synchronized, "sync", false, "Use operation-complete synchronized queries")
}

func setupLogging(*cobra.Command, []string) error {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger.SetLogger(logger.NewSlogWriter(os.Stderr, level, false, true))

	return nil
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}
