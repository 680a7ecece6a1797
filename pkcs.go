package certdata

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// EncodePKCS7 creates a certs-only PKCS#7/P7B bundle from the certificates'
// DER. The DER is copied as-is; it is never parsed.
func EncodePKCS7(certs []Certificate) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}
	var derBytes []byte
	for _, c := range certs {
		derBytes = append(derBytes, c.Cert...)
	}
	return pkcs7.DegenerateCertificate(derBytes)
}

// DecodePKCS7 decodes a DER-encoded PKCS#7 bundle and returns the DER of
// each certificate it contains.
func DecodePKCS7(derData []byte) ([][]byte, error) {
	p7, err := pkcs7.Parse(derData)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#7: %w", err)
	}
	if len(p7.Certificates) == 0 {
		return nil, errors.New("PKCS#7 bundle contains no certificates")
	}
	ders := make([][]byte, 0, len(p7.Certificates))
	for _, cert := range p7.Certificates {
		ders = append(ders, cert.Raw)
	}
	return ders, nil
}

// EncodePKCS12TrustStore creates a PKCS#12 trust store holding the
// certificates, each named by its label. PKCS#12 needs parsed
// certificates, so a certificate whose DER does not parse is an error.
func EncodePKCS12TrustStore(certs []Certificate, password string) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}
	entries := make([]gopkcs12.TrustStoreEntry, 0, len(certs))
	for _, c := range certs {
		parsed, err := x509.ParseCertificate(c.Cert)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate %q: %w", c.Label, err)
		}
		entries = append(entries, gopkcs12.TrustStoreEntry{Cert: parsed, FriendlyName: c.Label})
	}
	return gopkcs12.Modern.EncodeTrustStoreEntries(entries, password)
}

// DecodePKCS12TrustStore decodes a PKCS#12 trust store and returns the DER
// of each certificate it contains.
func DecodePKCS12TrustStore(pfxData []byte, password string) ([][]byte, error) {
	certs, err := gopkcs12.DecodeTrustStore(pfxData, password)
	if err != nil {
		return nil, fmt.Errorf("decoding PKCS#12 trust store: %w", err)
	}
	ders := make([][]byte, 0, len(certs))
	for _, cert := range certs {
		ders = append(ders, cert.Raw)
	}
	return ders, nil
}
