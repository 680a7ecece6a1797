package main

import (
	"fmt"
	"log/slog"

	"github.com/sensiblebit/certdata"
	"github.com/sensiblebit/certdata/internal"
	"github.com/spf13/cobra"
)

var (
	exportDir      string
	exportFormats  []string
	exportPassword string
	exportPassFile string
	exportUsage    certdata.Usage
)

var exportCmd = &cobra.Command{
	Use:   "export <file|->",
	Short: "Export trusted roots as PEM, PKCS#7, JKS or PKCS#12",
	Long: `Write the roots trusted for a usage to <dir>/roots.<format>.

  pem  PEM bundle with a "# label" line before each certificate
  p7b  certs-only PKCS#7
  jks  Java KeyStore with one trusted entry per root, alias from the label
  p12  PKCS#12 trust store, friendly name from the label

PEM, PKCS#7 and JKS copy the DER untouched; PKCS#12 has to parse each
certificate and fails on DER it cannot parse.`,
	Example: `  certdata export certdata.txt --dir ./roots
  certdata export certdata.txt --formats pem,jks,p12 --password changeit --usage email`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: certdataFileCompletion,
	RunE:              runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "o", "", "Output directory (default: from config, else ./roots)")
	exportCmd.Flags().StringSliceVar(&exportFormats, "formats", nil, "Comma-separated export formats: pem, p7b, jks, p12 (default: pem)")
	exportCmd.Flags().StringVar(&exportPassword, "password", "", "Password for JKS and PKCS#12 stores (default: changeit)")
	exportCmd.Flags().StringVar(&exportPassFile, "password-file", "", "File whose first line is the JKS and PKCS#12 password")
	exportCmd.MarkFlagsMutuallyExclusive("password", "password-file")
	addUsageFlag(exportCmd, &exportUsage)

	registerCompletion(exportCmd, completionInput{"dir", directoryCompletion})
	registerCompletion(exportCmd, completionInput{"password-file", fileCompletion})
	registerCompletion(exportCmd, completionInput{"formats", fixedCompletion(internal.ExportFormats...)})
}

func runExport(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Export.Dir = exportDir
	}
	if flags.Changed("formats") {
		cfg.Export.Formats = exportFormats
	}
	if flags.Changed("password") {
		cfg.Export.Password = exportPassword
		cfg.Export.PasswordFile = ""
	}
	if flags.Changed("password-file") {
		cfg.Export.PasswordFile = exportPassFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, _, _, err := readCertData(args[0])
	if err != nil {
		return err
	}
	usage := effectiveUsage(cmd, exportUsage)
	paths, err := internal.ExportRoots(d, usage, cfg.Export)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	slog.Info("exported trusted roots", "usage", usage, "roots", len(d.TrustedCerts(usage)), "dir", cfg.Export.Dir)
	return nil
}
