package main

import (
	"fmt"

	"github.com/sensiblebit/certdata/internal"
	"github.com/spf13/cobra"
)

var inspectLabel string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file|->",
	Short: "Display certificate details and check trust hashes",
	Long:  "Parse each certificate's DER and show its subject, issuer and validity, and whether the trust record's SHA-1 and MD5 hashes match it.",
	Example: `  certdata inspect certdata.txt
  certdata inspect certdata.txt --label "ISRG Root X1"
  certdata inspect certdata.txt --format json`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: certdataFileCompletion,
	RunE:              runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectLabel, "label", "", "Only inspect the certificate with this label")
}

func runInspect(cmd *cobra.Command, args []string) error {
	d, _, _, err := readCertData(args[0])
	if err != nil {
		return err
	}

	results, err := internal.InspectCertData(d, inspectLabel)
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResults(results, resolveFormat(""))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
