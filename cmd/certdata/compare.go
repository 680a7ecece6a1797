package main

import (
	"fmt"

	"github.com/sensiblebit/certdata"
	"github.com/sensiblebit/certdata/internal"
	"github.com/spf13/cobra"
)

var (
	compareUsage     certdata.Usage
	compareBundle    string
	comparePasswords []string
	comparePassFile  string
)

var compareCmd = &cobra.Command{
	Use:   "compare <file|->",
	Short: "Compare trusted roots with a reference bundle",
	Long: `Compare the DER of the roots trusted for a usage with a reference bundle
and list the roots found on only one side.

Without --bundle the reference is the Mozilla CA bundle compiled into this
binary. A bundle file may be PEM, DER, PKCS#7, JKS or PKCS#12; keystores are
tried with the empty password, "changeit", "password" and any given with
--password or --password-file.`,
	Example: `  certdata compare certdata.txt
  certdata compare certdata.txt --bundle /etc/ssl/certs/ca-certificates.crt
  certdata compare certdata.txt --bundle cacerts --password s3cret --format json`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: certdataFileCompletion,
	RunE:              runCompare,
}

func init() {
	addUsageFlag(compareCmd, &compareUsage)
	compareCmd.Flags().StringVarP(&compareBundle, "bundle", "b", "", "Reference bundle file (default: embedded Mozilla bundle)")
	compareCmd.Flags().StringSliceVarP(&comparePasswords, "password", "p", nil, "Passwords to try on a keystore bundle (comma-separated)")
	compareCmd.Flags().StringVar(&comparePassFile, "password-file", "", "File with passwords to try, one per line")

	registerCompletion(compareCmd, completionInput{"bundle", fileCompletion})
	registerCompletion(compareCmd, completionInput{"password-file", fileCompletion})
}

func runCompare(cmd *cobra.Command, args []string) error {
	d, _, _, err := readCertData(args[0])
	if err != nil {
		return err
	}
	usage := effectiveUsage(cmd, compareUsage)

	bundleName := "mozilla (embedded)"
	bundle := certdata.MozillaBundle()
	if compareBundle != "" {
		passwords, err := internal.ProcessPasswords(comparePasswords, comparePassFile)
		if err != nil {
			return err
		}
		contents, err := internal.LoadBundleFile(compareBundle, passwords)
		if err != nil {
			return err
		}
		bundleName = fmt.Sprintf("%s (%s)", compareBundle, contents.Format)
		bundle = contents.DER
	}

	report := internal.BuildCompareReport(certdata.CompareRoots(d.TrustedCerts(usage), bundle), usage, bundleName)
	output, err := internal.FormatCompareReport(report, resolveFormat(""))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
