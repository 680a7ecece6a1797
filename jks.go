package certdata

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// JKSAlias derives a keystore alias from a certificate label: lower case,
// with every run of characters other than letters and digits replaced by a
// single hyphen.
func JKSAlias(label string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(label) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	alias := strings.TrimSuffix(b.String(), "-")
	if alias == "" {
		alias = "cert"
	}
	return alias
}

// EncodeJKS creates a Java KeyStore (JKS) with one trusted certificate
// entry per certificate. Aliases come from JKSAlias; a repeated alias gets
// a numeric suffix. The DER is stored as-is.
func EncodeJKS(certs []Certificate, password string) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}

	ks := keystore.New()
	created := time.Now()
	used := make(map[string]int, len(certs))
	for _, c := range certs {
		alias := JKSAlias(c.Label)
		used[alias]++
		if n := used[alias]; n > 1 {
			alias += "-" + strconv.Itoa(n)
		}
		if err := ks.SetTrustedCertificateEntry(alias, keystore.TrustedCertificateEntry{
			CreationTime: created,
			Certificate: keystore.Certificate{
				Type:    "X.509",
				Content: c.Cert,
			},
		}); err != nil {
			return nil, fmt.Errorf("setting JKS entry %q: %w", alias, err)
		}
	}

	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		return nil, fmt.Errorf("storing JKS: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJKS loads a Java KeyStore and returns the DER of each trusted
// certificate entry, keyed by alias.
func DecodeJKS(data []byte, password string) (map[string][]byte, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, fmt.Errorf("loading JKS: %w", err)
	}
	out := make(map[string][]byte)
	for _, alias := range ks.Aliases() {
		if !ks.IsTrustedCertificateEntry(alias) {
			continue
		}
		entry, err := ks.GetTrustedCertificateEntry(alias)
		if err != nil {
			return nil, fmt.Errorf("reading JKS entry %q: %w", alias, err)
		}
		out[alias] = entry.Certificate.Content
	}
	return out, nil
}
