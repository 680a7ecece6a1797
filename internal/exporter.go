package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sensiblebit/certdata"
)

// ExportFile is one generated output file.
type ExportFile struct {
	Name string
	Data []byte
	// Sensitive files are password-protected stores, written 0600.
	Sensitive bool
}

// GenerateExportFiles encodes certs in each requested format. File names
// are roots.<format>.
func GenerateExportFiles(certs []certdata.Certificate, formats []string, password string) ([]ExportFile, error) {
	var files []ExportFile
	for _, format := range formats {
		var (
			data      []byte
			sensitive bool
			err       error
		)
		switch format {
		case "pem":
			data = certdata.EncodePEM(certs)
		case "p7b":
			data, err = certdata.EncodePKCS7(certs)
		case "jks":
			data, err = certdata.EncodeJKS(certs, password)
			sensitive = true
		case "p12":
			data, err = certdata.EncodePKCS12TrustStore(certs, password)
			sensitive = true
		default:
			return nil, fmt.Errorf("unsupported export format %q", format)
		}
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", format, err)
		}
		files = append(files, ExportFile{Name: "roots." + format, Data: data, Sensitive: sensitive})
	}
	return files, nil
}

// filesystemWriter writes export files to the local filesystem under outDir.
type filesystemWriter struct {
	outDir string
}

// WriteFiles creates the directory and writes each file with appropriate permissions.
func (w *filesystemWriter) WriteFiles(files []ExportFile) ([]string, error) {
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory %s: %w", w.outDir, err)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		mode := os.FileMode(0644)
		if f.Sensitive {
			mode = 0600
		}
		path := filepath.Join(w.outDir, f.Name)
		if err := os.WriteFile(path, f.Data, mode); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExportRoots writes the roots d trusts for u in every format listed by
// cfg and returns the written paths.
func ExportRoots(d *certdata.CertData, u certdata.Usage, cfg ExportConfig) ([]string, error) {
	certs := d.TrustedCerts(u)
	if len(certs) == 0 {
		return nil, fmt.Errorf("no trusted roots for %s", u)
	}
	slog.Debug("exporting trusted roots", "usage", u, "count", len(certs), "formats", cfg.Formats)

	password, err := ResolveExportPassword(cfg)
	if err != nil {
		return nil, err
	}
	files, err := GenerateExportFiles(certs, cfg.Formats, password)
	if err != nil {
		return nil, err
	}
	fw := &filesystemWriter{outDir: cfg.Dir}
	return fw.WriteFiles(files)
}
