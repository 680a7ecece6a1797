package certdata

import (
	"bytes"
	"iter"
	"slices"
)

// CertData is an immutable, indexed view of a decoded certdata.txt.
// Certificates are sorted by Subject and trusts by (Issuer, Serial), both
// bytewise; records with equal keys keep their file order.
//
// When several trusts share an (Issuer, Serial) pair, lookups return one
// of them without specifying which.
type CertData struct {
	certs  []Certificate
	trusts []Trust
}

// Collect drains seq into a CertData, stopping at the first error.
func Collect(seq iter.Seq2[Object, error]) (*CertData, error) {
	var objs []Object
	for obj, err := range seq {
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return NewCertData(objs), nil
}

// NewCertData partitions and sorts objs. Nil entries are ignored.
func NewCertData(objs []Object) *CertData {
	d := &CertData{}
	for _, obj := range objs {
		switch o := obj.(type) {
		case *Certificate:
			d.certs = append(d.certs, *o)
		case *Trust:
			d.trusts = append(d.trusts, *o)
		}
	}
	slices.SortStableFunc(d.certs, compareCerts)
	slices.SortStableFunc(d.trusts, compareTrusts)
	return d
}

func compareCerts(a, b Certificate) int {
	return bytes.Compare(a.Subject, b.Subject)
}

func compareTrustKey(t Trust, issuer, serial []byte) int {
	if c := bytes.Compare(t.Issuer, issuer); c != 0 {
		return c
	}
	return bytes.Compare(t.Serial, serial)
}

func compareTrusts(a, b Trust) int {
	return compareTrustKey(a, b.Issuer, b.Serial)
}

// Certs returns all certificates in Subject order.
func (d *CertData) Certs() []Certificate {
	return slices.Clone(d.certs)
}

// Trusts returns all trusts in (Issuer, Serial) order.
func (d *CertData) Trusts() []Trust {
	return slices.Clone(d.trusts)
}

// TrustFor returns the trust record for the certificate with the given
// DER-encoded issuer and serial number.
func (d *CertData) TrustFor(issuer, serial []byte) (Trust, bool) {
	i, ok := slices.BinarySearchFunc(d.trusts, issuer, func(t Trust, _ []byte) int {
		return compareTrustKey(t, issuer, serial)
	})
	if !ok {
		return Trust{}, false
	}
	return d.trusts[i], true
}

// TrustForCert returns the trust record matching c's issuer and serial.
func (d *CertData) TrustForCert(c Certificate) (Trust, bool) {
	return d.TrustFor(c.Issuer, c.Serial)
}

// TrustLevelFor returns c's trust level for u, defaulting to MustVerify
// when no trust record matches.
func (d *CertData) TrustLevelFor(c Certificate, u Usage) TrustLevel {
	t, ok := d.TrustForCert(c)
	if !ok {
		return MustVerify
	}
	return t.Level(u)
}

// TrustedCerts returns the certificates trusted as delegators (roots) for
// u, in Subject order.
func (d *CertData) TrustedCerts(u Usage) []Certificate {
	var out []Certificate
	for _, c := range d.certs {
		if d.TrustLevelFor(c, u) == TrustedDelegator {
			out = append(out, c)
		}
	}
	return out
}

// Distrusts returns the trust records that explicitly distrust their
// certificate for u, in (Issuer, Serial) order.
func (d *CertData) Distrusts(u Usage) []Trust {
	var out []Trust
	for _, t := range d.trusts {
		if t.Level(u) == Distrust {
			out = append(out, t)
		}
	}
	return out
}
