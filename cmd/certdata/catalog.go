package main

import (
	"fmt"

	"github.com/sensiblebit/certdata/internal"
	"github.com/sensiblebit/certdata/internal/catalog"
	"github.com/spf13/cobra"
)

var catalogDB string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Store certdata imports in a SQLite catalog",
	Long:  "Persist decoded certificates and trust records in a SQLite file. Every save is recorded as an import; newer imports replace records with the same key.",
}

var catalogSaveCmd = &cobra.Command{
	Use:               "save <file|->",
	Short:             "Import a certdata file into the catalog",
	Example:           `  certdata catalog save certdata.txt --db ./certdata.db`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: certdataFileCompletion,
	RunE:              runCatalogSave,
}

var catalogShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Summarize the catalog",
	Example: `  certdata catalog show --db ./certdata.db --format yaml`,
	Args:    cobra.NoArgs,
	RunE:    runCatalogShow,
}

func init() {
	catalogCmd.PersistentFlags().StringVarP(&catalogDB, "db", "d", "", "SQLite catalog path (default: from config, else ./certdata.db)")
	registerCompletion(catalogCmd, completionInput{"db", fileCompletion})

	catalogCmd.AddCommand(catalogSaveCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}

func catalogPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("db") {
		return catalogDB
	}
	return cfg.Catalog
}

func runCatalogSave(cmd *cobra.Command, args []string) error {
	d, name, _, err := readCertData(args[0])
	if err != nil {
		return err
	}
	imp, err := catalog.SaveCatalog(d, name, catalogPath(cmd))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved import %s: %d certificate(s), %d trust(s)\n", imp.ID, imp.Certificates, imp.Trusts)
	return nil
}

func runCatalogShow(cmd *cobra.Command, _ []string) error {
	path := catalogPath(cmd)
	cat, err := catalog.LoadCatalog(path)
	if err != nil {
		return err
	}
	output, err := internal.FormatCatalogReport(internal.BuildCatalogReport(path, cat), resolveFormat(""))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
