package main

import (
	"fmt"

	"github.com/sensiblebit/certdata"
	"github.com/sensiblebit/certdata/internal"
	"github.com/spf13/cobra"
)

var objectsCmd = &cobra.Command{
	Use:   "objects <file|->",
	Short: "Print raw records",
	Long:  "Group the attribute stream into records and print them with sorted keys. Defaults to JSON.",
	Example: `  certdata objects certdata.txt
  certdata objects certdata.txt --format yaml`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: certdataFileCompletion,
	RunE:              runObjects,
}

func runObjects(cmd *cobra.Command, args []string) error {
	in, name, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	var objs []certdata.RawObject
	for obj, err := range certdata.NewRawObjectReader(in).All() {
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		objs = append(objs, obj)
	}

	output, err := internal.FormatRawObjects(objs, resolveFormat("json"))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
