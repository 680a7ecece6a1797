package main

import (
	"fmt"

	"github.com/sensiblebit/certdata"
	"github.com/sensiblebit/certdata/internal"
	"github.com/spf13/cobra"
)

var attrsCmd = &cobra.Command{
	Use:   "attrs <file|->",
	Short: "Print the attribute stream",
	Long:  "Re-emit every attribute after BEGINDATA in normalized certdata syntax, or as JSON/YAML records. Binary blocks are written 16 bytes per line.",
	Example: `  certdata attrs certdata.txt
  curl -s https://hg.mozilla.org/.../certdata.txt | certdata attrs -
  certdata attrs certdata.txt --format json`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: certdataFileCompletion,
	RunE:              runAttrs,
}

func runAttrs(cmd *cobra.Command, args []string) error {
	in, name, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	var attrs []certdata.Attr
	for attr, err := range certdata.NewAttrReader(in).All() {
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		attrs = append(attrs, attr)
	}

	output, err := internal.FormatAttrs(attrs, resolveFormat("text"))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
