package main

import (
	"encoding/hex"
	"fmt"

	"github.com/sensiblebit/certdata"
	"github.com/sensiblebit/certdata/internal"
	"github.com/spf13/cobra"
)

var (
	lookupIssuer string
	lookupSerial string
	lookupLabel  string
	lookupUsage  certdata.Usage
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <file|->",
	Short: "Find the trust record for a certificate",
	Long:  "Look up a trust record by the hex DER encoding of the issuer name and serial number (as stored in CKA_ISSUER and CKA_SERIAL_NUMBER), or by certificate label.",
	Example: `  certdata lookup certdata.txt --label "ISRG Root X1"
  certdata lookup certdata.txt --issuer 304f310b... --serial 0211008210cfb0...`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: certdataFileCompletion,
	RunE:              runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupIssuer, "issuer", "", "Hex DER-encoded issuer name")
	lookupCmd.Flags().StringVar(&lookupSerial, "serial", "", "Hex DER-encoded serial number")
	lookupCmd.Flags().StringVar(&lookupLabel, "label", "", "Certificate label")
	lookupCmd.MarkFlagsMutuallyExclusive("label", "issuer")
	lookupCmd.MarkFlagsMutuallyExclusive("label", "serial")
	lookupCmd.MarkFlagsRequiredTogether("issuer", "serial")
	lookupCmd.MarkFlagsOneRequired("label", "issuer")
	addUsageFlag(lookupCmd, &lookupUsage)
}

func runLookup(cmd *cobra.Command, args []string) error {
	query := internal.LookupQuery{Label: lookupLabel}
	if lookupIssuer != "" {
		issuer, err := hex.DecodeString(lookupIssuer)
		if err != nil {
			return fmt.Errorf("decoding --issuer: %w", err)
		}
		serial, err := hex.DecodeString(lookupSerial)
		if err != nil {
			return fmt.Errorf("decoding --serial: %w", err)
		}
		query.Issuer, query.Serial = issuer, serial
	}

	d, _, _, err := readCertData(args[0])
	if err != nil {
		return err
	}
	result, err := internal.Lookup(d, query, effectiveUsage(cmd, lookupUsage))
	if err != nil {
		return err
	}
	output, err := internal.FormatLookupResult(result, resolveFormat(""))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
