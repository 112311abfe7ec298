package main

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-scpi/instrument"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write <instrument> <command>...",
	Short: "Send commands that produce no response",
	Example: `  scpictl write rayquaza "*RST" ":chan1:disp on"
  scpictl write tcp://192.168.1.20 ":outp on"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), args[0], func(c *instrument.Client) error {
			for _, line := range args[1:] {
				if _, err := c.Write(line); err != nil {
					return err
				}
			}

			return nil
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <instrument> <query>...",
	Short: "Send queries and print their responses",
	Example: `  scpictl ask kyurem "*IDN?"
  scpictl ask --sync deoxys ":meas:freq?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		return withClient(cmd.Context(), args[0], func(c *instrument.Client) error {
			for _, query := range args[1:] {
				resp, err := c.Ask(query)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, strings.TrimRight(resp, "\r\n"))
			}

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(askCmd)
}
