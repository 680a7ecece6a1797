package internal

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sensiblebit/certdata"
)

// LookupQuery selects a trust record either by the DER-encoded issuer and
// serial number or by certificate label.
type LookupQuery struct {
	Issuer []byte
	Serial []byte
	Label  string
}

// Lookup finds the trust record matching q. A label query resolves the
// certificate first; an issuer/serial query attaches the certificate when
// one matches. Certificate trust levels are reported for u.
func Lookup(d *certdata.CertData, q LookupQuery, u certdata.Usage) (LookupResult, error) {
	switch {
	case q.Label != "" && (q.Issuer != nil || q.Serial != nil):
		return LookupResult{}, errors.New("use either a label or an issuer and serial, not both")
	case q.Label != "":
		return lookupByLabel(d, q.Label, u)
	case q.Issuer == nil || q.Serial == nil:
		return LookupResult{}, errors.New("issuer and serial are both required")
	}

	t, ok := d.TrustFor(q.Issuer, q.Serial)
	if !ok {
		return LookupResult{}, fmt.Errorf("no trust record for issuer %x serial %x", q.Issuer, q.Serial)
	}
	r := LookupResult{Trust: SummarizeTrust(t)}
	for _, c := range d.Certs() {
		if bytes.Equal(c.Issuer, q.Issuer) && bytes.Equal(c.Serial, q.Serial) {
			sum := SummarizeCert(d, c, u)
			r.Certificate = &sum
			break
		}
	}
	return r, nil
}

func lookupByLabel(d *certdata.CertData, label string, u certdata.Usage) (LookupResult, error) {
	for _, c := range d.Certs() {
		if c.Label != label {
			continue
		}
		t, ok := d.TrustForCert(c)
		if !ok {
			return LookupResult{}, fmt.Errorf("certificate %q has no trust record", label)
		}
		sum := SummarizeCert(d, c, u)
		return LookupResult{Trust: SummarizeTrust(t), Certificate: &sum}, nil
	}
	return LookupResult{}, fmt.Errorf("no certificate labeled %q", label)
}
