package main

import (
	"fmt"

	"github.com/sensiblebit/certdata"
	"github.com/sensiblebit/certdata/internal"
	"github.com/spf13/cobra"
)

var (
	rootsUsage       certdata.Usage
	rootsSkipInvalid bool
)

var rootsCmd = &cobra.Command{
	Use:   "roots <file|->",
	Short: "List certificates, trusted roots and distrusts",
	Long:  "Decode certificates and trust records, then list all certificates, the roots trusted for a usage, and the certificates distrusted for it.",
	Example: `  certdata roots certdata.txt
  certdata roots certdata.txt --usage email --format json
  certdata roots certdata.txt --skip-invalid`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: certdataFileCompletion,
	RunE:              runRoots,
}

func init() {
	addUsageFlag(rootsCmd, &rootsUsage)
	rootsCmd.Flags().BoolVar(&rootsSkipInvalid, "skip-invalid", false, "Log and skip records with structure errors instead of failing")
}

func runRoots(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("skip-invalid") {
		cfg.SkipInvalid = rootsSkipInvalid
	}
	d, _, skipped, err := readCertData(args[0])
	if err != nil {
		return err
	}

	report := internal.BuildRootsReport(d, effectiveUsage(cmd, rootsUsage), skipped)
	output, err := internal.FormatRootsReport(report, resolveFormat(""))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
