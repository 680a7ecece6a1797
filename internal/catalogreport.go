package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/sensiblebit/certdata"
	"github.com/sensiblebit/certdata/internal/catalog"
)

// UsageCount is the number of trusted roots for one usage.
type UsageCount struct {
	Usage certdata.Usage `json:"usage" yaml:"usage"`
	Roots int            `json:"roots" yaml:"roots"`
}

// CatalogReport summarizes a catalog file.
type CatalogReport struct {
	Path         string           `json:"path" yaml:"path"`
	Certificates int              `json:"certificates" yaml:"certificates"`
	Trusts       int              `json:"trusts" yaml:"trusts"`
	Roots        []UsageCount     `json:"roots" yaml:"roots"`
	Imports      []catalog.Import `json:"imports" yaml:"imports"`
}

// BuildCatalogReport counts the content of cat, stored at path.
func BuildCatalogReport(path string, cat *catalog.Catalog) CatalogReport {
	r := CatalogReport{
		Path:         path,
		Certificates: len(cat.Data.Certs()),
		Trusts:       len(cat.Data.Trusts()),
		Imports:      cat.Imports,
	}
	for _, u := range certdata.Usages() {
		r.Roots = append(r.Roots, UsageCount{Usage: u, Roots: len(cat.Data.TrustedCerts(u))})
	}
	return r
}

// FormatCatalogReport formats a CatalogReport as text, JSON or YAML.
func FormatCatalogReport(r CatalogReport, format string) (string, error) {
	if format != "text" {
		return marshalStructured(r, format)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Catalog %s\n", r.Path)
	fmt.Fprintf(&sb, "  Certificates: %d\n", r.Certificates)
	fmt.Fprintf(&sb, "  Trusts:       %d\n", r.Trusts)
	for _, uc := range r.Roots {
		fmt.Fprintf(&sb, "  Roots (%s): %d\n", uc.Usage, uc.Roots)
	}
	fmt.Fprintf(&sb, "\nImports: %d\n", len(r.Imports))
	for _, imp := range r.Imports {
		fmt.Fprintf(&sb, "  %s  %s  %s  %d certificates, %d trusts\n",
			imp.ID, imp.ImportedAt.Format(time.RFC3339), imp.Source, imp.Certificates, imp.Trusts)
	}
	return sb.String(), nil
}
