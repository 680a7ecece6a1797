package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sensiblebit/certdata"
)

func TestParseBundleData_ExportFormats(t *testing.T) {
	// WHY: compare --bundle must accept whatever export wrote, so every
	// export format has to read back to the same set of DER certificates.
	t.Parallel()

	s := newTestSet(t)
	certs := s.certData().TrustedCerts(certdata.UsageTLSServer)
	files, err := GenerateExportFiles(certs, ExportFormats, "s3cret-pass")
	if err != nil {
		t.Fatalf("GenerateExportFiles: %v", err)
	}
	passwords, err := ProcessPasswords([]string{"s3cret-pass"}, "")
	if err != nil {
		t.Fatalf("ProcessPasswords: %v", err)
	}

	for _, f := range files {
		t.Run(f.Name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseBundleData(f.Data, passwords)
			if err != nil {
				t.Fatalf("ParseBundleData: %v", err)
			}
			if want := strings.TrimPrefix(f.Name, "roots."); got.Format != want {
				t.Errorf("format = %q, want %q", got.Format, want)
			}
			if len(got.DER) != len(certs) {
				t.Fatalf("got %d certificates, want %d", len(got.DER), len(certs))
			}
			for _, c := range certs {
				if !slices.ContainsFunc(got.DER, func(der []byte) bool { return bytes.Equal(der, c.Cert) }) {
					t.Errorf("certificate %q missing", c.Label)
				}
			}
		})
	}
}

func TestParseBundleData_Errors(t *testing.T) {
	// WHY: A keystore opened with none of the known passwords, or a file in
	// no known format, must fail instead of comparing against nothing.
	t.Parallel()

	s := newTestSet(t)
	files, err := GenerateExportFiles([]certdata.Certificate{s.rootA}, []string{"jks"}, "not-a-default")
	if err != nil {
		t.Fatalf("GenerateExportFiles: %v", err)
	}
	if _, err := ParseBundleData(files[0].Data, DefaultPasswords()); err == nil {
		t.Error("expected error for a JKS with an unknown password")
	}
	if _, err := ParseBundleData([]byte("plain text"), DefaultPasswords()); err == nil {
		t.Error("expected error for unrecognized data")
	}

	der := s.rootB.Cert
	got, err := ParseBundleData(der, nil)
	if err != nil || got.Format != "der" || len(got.DER) != 1 {
		t.Errorf("single DER certificate: %+v, %v", got, err)
	}
}

func TestLoadBundleFile(t *testing.T) {
	// WHY: A missing file is reported with its path, and a readable one is
	// parsed.
	t.Parallel()

	_, err := LoadBundleFile("/nonexistent/roots.pem", nil)
	if err == nil || !strings.Contains(err.Error(), "reading /nonexistent/roots.pem") {
		t.Errorf("error = %v, want reading error", err)
	}

	s := newTestSet(t)
	files, err := GenerateExportFiles(s.certData().TrustedCerts(certdata.UsageTLSServer), []string{"pem"}, "")
	if err != nil {
		t.Fatalf("GenerateExportFiles: %v", err)
	}
	path := filepath.Join(t.TempDir(), "roots.pem")
	if err := os.WriteFile(path, files[0].Data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadBundleFile(path, nil)
	if err != nil {
		t.Fatalf("LoadBundleFile: %v", err)
	}
	if got.Format != "pem" || len(got.DER) != 2 {
		t.Errorf("bundle = %s with %d certificates, want pem with 2", got.Format, len(got.DER))
	}
}
