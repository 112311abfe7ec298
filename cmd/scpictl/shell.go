package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arloliu/go-scpi/instrument"
	"github.com/arloliu/go-scpi/scpi"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const shellPrompt = "scpi> "

var shellCmd = &cobra.Command{
	Use:   "shell <instrument>",
	Short: "Interactive session with one instrument",
	Long: `Open an instrument and read commands line by line. Lines ending in a query
header are sent with ask and their response is printed; other lines are written.
Type "exit" or press Ctrl-D to leave.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), args[0], func(c *instrument.Client) error {
			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return runShell(c, scannerLines{bufio.NewScanner(cmd.InOrStdin())}, cmd.OutOrStdout())
			}

			state, err := term.MakeRaw(fd)
			if err != nil {
				return fmt.Errorf("raw terminal: %w", err)
			}
			defer func() { _ = term.Restore(fd, state) }()

			t := term.NewTerminal(struct {
				io.Reader
				io.Writer
			}{os.Stdin, os.Stdout}, shellPrompt)
			fmt.Fprintf(t, "connected to %s\n", c.Profile())

			return runShell(c, t, t)
		})
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// lineReader yields input lines and io.EOF at the end; term.Terminal satisfies it.
type lineReader interface {
	ReadLine() (string, error)
}

type scannerLines struct {
	*bufio.Scanner
}

func (s scannerLines) ReadLine() (string, error) {
	if s.Scan() {
		return s.Text(), nil
	}
	if err := s.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

// runShell executes lines until exit, end of input, or a misaligned connection.
// Instrument errors are printed and the session continues.
func runShell(c *instrument.Client, in lineReader, out io.Writer) error {
	for {
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := shellExec(c, line, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			if c.Misaligned() {
				return err
			}
		}
	}
}

func shellExec(c *instrument.Client, line string, out io.Writer) error {
	if !scpi.IsQuery(line) {
		_, err := c.Write(line)
		return err
	}

	resp, err := c.Ask(line)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.TrimRight(resp, "\r\n"))

	return nil
}
