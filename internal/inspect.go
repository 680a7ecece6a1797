package internal

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	"github.com/sensiblebit/certdata"
)

// Hash check outcomes reported by InspectResult.
const (
	HashMatch    = "match"
	HashMismatch = "mismatch"
	HashAbsent   = "absent"
)

// InspectResult holds the inspection details for one certificate record.
type InspectResult struct {
	Label      string   `json:"label" yaml:"label"`
	Subject    string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	Issuer     string   `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Serial     string   `json:"serial,omitempty" yaml:"serial,omitempty"`
	NotBefore  string   `json:"not_before,omitempty" yaml:"not_before,omitempty"`
	NotAfter   string   `json:"not_after,omitempty" yaml:"not_after,omitempty"`
	SigAlg     string   `json:"signature_algorithm,omitempty" yaml:"signature_algorithm,omitempty"`
	SHA256     string   `json:"sha256_fingerprint" yaml:"sha256_fingerprint"`
	ParseError string   `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
	Warnings   []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	// Trust lists the record's levels; nil when no trust record matches.
	Trust *TrustSummary `json:"trust,omitempty" yaml:"trust,omitempty"`
	// SHA1Check and MD5Check compare the trust record's hashes with the DER.
	SHA1Check string `json:"sha1_check" yaml:"sha1_check"`
	MD5Check  string `json:"md5_check" yaml:"md5_check"`
}

// InspectCertData inspects every certificate in d, or only those labeled
// label when it is non-empty.
func InspectCertData(d *certdata.CertData, label string) ([]InspectResult, error) {
	var results []InspectResult
	for _, c := range d.Certs() {
		if label != "" && c.Label != label {
			continue
		}
		results = append(results, InspectCertificate(d, c))
	}
	if len(results) == 0 {
		if label != "" {
			return nil, fmt.Errorf("no certificate labeled %q", label)
		}
		return nil, fmt.Errorf("no certificates found")
	}
	return results, nil
}

// InspectCertificate decodes c's DER leniently and checks it against its
// trust record. Certificates that do not parse still get a result with
// ParseError set.
func InspectCertificate(d *certdata.CertData, c certdata.Certificate) InspectResult {
	sum := sha256.Sum256(c.Cert)
	r := InspectResult{
		Label:     c.Label,
		SHA256:    colonHex(sum[:]),
		SHA1Check: HashAbsent,
		MD5Check:  HashAbsent,
	}

	cert, err := ctx509.ParseCertificate(c.Cert)
	switch {
	case err != nil && ctx509.IsFatal(err):
		r.ParseError = err.Error()
	case err != nil:
		r.Warnings = append(r.Warnings, err.Error())
	}
	if cert != nil {
		r.Subject = cert.Subject.String()
		r.Issuer = cert.Issuer.String()
		r.Serial = cert.SerialNumber.String()
		r.NotBefore = cert.NotBefore.UTC().Format(time.RFC3339)
		r.NotAfter = cert.NotAfter.UTC().Format(time.RFC3339)
		r.SigAlg = cert.SignatureAlgorithm.String()
		if !bytes.Equal(cert.RawSubject, c.Subject) {
			r.Warnings = append(r.Warnings, "CKA_SUBJECT differs from the certificate subject")
		}
		if !bytes.Equal(cert.RawIssuer, c.Issuer) {
			r.Warnings = append(r.Warnings, "CKA_ISSUER differs from the certificate issuer")
		}
	}

	t, ok := d.TrustForCert(c)
	if !ok {
		return r
	}
	ts := SummarizeTrust(t)
	r.Trust = &ts
	if t.SHA1 != nil {
		sum := sha1.Sum(c.Cert)
		r.SHA1Check = hashCheck(t.SHA1, sum[:])
	}
	if t.MD5 != nil {
		sum := md5.Sum(c.Cert)
		r.MD5Check = hashCheck(t.MD5, sum[:])
	}
	return r
}

func hashCheck(want, got []byte) string {
	if bytes.Equal(want, got) {
		return HashMatch
	}
	return HashMismatch
}

func colonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(b))
	for i := 0; i < len(h); i += 2 {
		parts = append(parts, h[i:i+2])
	}
	return strings.ToUpper(strings.Join(parts, ":"))
}

// FormatInspectResults formats inspection results as text, JSON or YAML.
func FormatInspectResults(results []InspectResult, format string) (string, error) {
	if format != "text" {
		return marshalStructured(results, format)
	}
	return formatInspectText(results), nil
}

func formatInspectText(results []InspectResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Certificate %q:\n", r.Label)
		if r.ParseError != "" {
			fmt.Fprintf(&sb, "  Parse error: %s\n", r.ParseError)
		} else {
			fmt.Fprintf(&sb, "  Subject:     %s\n", r.Subject)
			fmt.Fprintf(&sb, "  Issuer:      %s\n", r.Issuer)
			fmt.Fprintf(&sb, "  Serial:      %s\n", r.Serial)
			fmt.Fprintf(&sb, "  Not Before:  %s\n", r.NotBefore)
			fmt.Fprintf(&sb, "  Not After:   %s\n", r.NotAfter)
			fmt.Fprintf(&sb, "  Signature:   %s\n", r.SigAlg)
		}
		fmt.Fprintf(&sb, "  SHA-256:     %s\n", r.SHA256)
		for _, w := range r.Warnings {
			fmt.Fprintf(&sb, "  Warning:     %s\n", w)
		}
		if r.Trust == nil {
			fmt.Fprintf(&sb, "  Trust:       none\n")
			continue
		}
		fmt.Fprintf(&sb, "  Trust:       tls-server=%s email=%s code-signing=%s\n", r.Trust.TLSServer, r.Trust.Email, r.Trust.CodeSigning)
		fmt.Fprintf(&sb, "  SHA-1 hash:  %s\n", r.SHA1Check)
		fmt.Fprintf(&sb, "  MD5 hash:    %s\n", r.MD5Check)
	}
	return sb.String()
}
