package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/arloliu/go-scpi/catalog"
	"github.com/arloliu/go-scpi/transport"
	"github.com/arloliu/go-scpi/transport/usbtmc"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged instruments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}

		return printCatalog(cmd.OutOrStdout(), c)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func printCatalog(out io.Writer, c *catalog.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NICKNAME\tKIND\tADDRESS\tBYTE ORDER\tNAME")

	for _, p := range c.Profiles() {
		order := "big"
		if p.ByteOrderQuery != "" {
			order = p.ByteOrderQuery
		}
		kind := p.Transport.Kind.String()
		if p.Transport.Kind == transport.KindBus {
			if _, err := usbtmc.ParseAddress(p.Transport.Address); err != nil {
				kind += " (external driver)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Nickname, kind, p.Transport.Address, order, p.Name)
	}

	return w.Flush()
}
