package certdata

import (
	"bytes"
	"encoding/pem"
	"slices"

	"github.com/breml/rootcerts/embedded"
)

// EncodePEM writes each certificate as a CERTIFICATE block preceded by a
// "# label" comment line, the layout of the common CA bundle files.
func EncodePEM(certs []Certificate) []byte {
	var buf bytes.Buffer
	for _, c := range certs {
		buf.WriteString("# ")
		buf.WriteString(c.Label)
		buf.WriteByte('\n')
		_ = pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: c.Cert})
	}
	return buf.Bytes()
}

// PEMCertificates returns the DER of every CERTIFICATE block in pemData,
// skipping other block types.
func PEMCertificates(pemData []byte) [][]byte {
	var ders [][]byte
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return ders
		}
		if block.Type == "CERTIFICATE" {
			ders = append(ders, block.Bytes)
		}
	}
}

// MozillaBundle returns the DER of the Mozilla root certificates embedded
// in the binary by github.com/breml/rootcerts.
func MozillaBundle() [][]byte {
	return PEMCertificates([]byte(embedded.MozillaCACertificatesPEM()))
}

// RootDiff is the result of comparing trusted roots with a reference bundle.
type RootDiff struct {
	// Common counts roots present in both.
	Common int
	// OnlyInData are roots trusted by the certdata file but absent from the bundle.
	OnlyInData []Certificate
	// OnlyInBundle are bundle certificates the certdata file does not trust.
	OnlyInBundle [][]byte
}

// CompareRoots compares roots with bundle by exact DER equality.
func CompareRoots(roots []Certificate, bundle [][]byte) RootDiff {
	inBundle := make(map[string]bool, len(bundle))
	for _, der := range bundle {
		inBundle[string(der)] = true
	}
	inData := make(map[string]bool, len(roots))
	var diff RootDiff
	for _, c := range roots {
		inData[string(c.Cert)] = true
		if inBundle[string(c.Cert)] {
			diff.Common++
			continue
		}
		diff.OnlyInData = append(diff.OnlyInData, c)
	}
	for _, der := range bundle {
		if !inData[string(der)] {
			diff.OnlyInBundle = append(diff.OnlyInBundle, der)
		}
	}
	slices.SortFunc(diff.OnlyInBundle, bytes.Compare)
	diff.OnlyInBundle = slices.CompactFunc(diff.OnlyInBundle, bytes.Equal)
	return diff
}

// CompareWithMozilla compares the roots d trusts for u with the embedded
// Mozilla bundle.
func CompareWithMozilla(d *CertData, u Usage) RootDiff {
	return CompareRoots(d.TrustedCerts(u), MozillaBundle())
}
