package internal

import (
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"

	"github.com/sensiblebit/certdata"
)

// BundleContents holds the certificates read from a reference bundle file.
type BundleContents struct {
	Format string
	DER    [][]byte
}

// LoadBundleFile reads a file and parses it as a certificate bundle in any
// format the export command writes.
func LoadBundleFile(path string, passwords []string) (*BundleContents, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	contents, err := ParseBundleData(data, passwords)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	slog.Debug("loaded reference bundle", "path", path, "format", contents.Format, "certificates", len(contents.DER))
	return contents, nil
}

// ParseBundleData attempts to parse raw data as PKCS#12, JKS, PKCS#7, PEM,
// or a single DER certificate, trying each password for the keystores.
func ParseBundleData(data []byte, passwords []string) (*BundleContents, error) {
	// Try PKCS#12
	for _, pw := range passwords {
		if ders, err := certdata.DecodePKCS12TrustStore(data, pw); err == nil && len(ders) > 0 {
			return &BundleContents{Format: "p12", DER: ders}, nil
		}
	}

	// Try JKS
	for _, pw := range passwords {
		entries, err := certdata.DecodeJKS(data, pw)
		if err != nil || len(entries) == 0 {
			continue
		}
		ders := make([][]byte, 0, len(entries))
		for _, der := range entries {
			ders = append(ders, der)
		}
		return &BundleContents{Format: "jks", DER: ders}, nil
	}

	// Try PKCS#7
	if ders, err := certdata.DecodePKCS7(data); err == nil {
		return &BundleContents{Format: "p7b", DER: ders}, nil
	}

	// Try PEM
	if ders := certdata.PEMCertificates(data); len(ders) > 0 {
		return &BundleContents{Format: "pem", DER: ders}, nil
	}

	// Try DER certificate
	if _, err := x509.ParseCertificate(data); err == nil {
		return &BundleContents{Format: "der", DER: [][]byte{data}}, nil
	}

	return nil, fmt.Errorf("could not parse as PEM, DER, PKCS#12, JKS, or PKCS#7")
}
