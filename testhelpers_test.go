package certdata

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"
)

// scenarioCert is a minimal certificate record. Every binary field is a
// placeholder, not real DER.
const scenarioCert = `BEGINDATA
CKA_CLASS CK_OBJECT_CLASS CKO_CERTIFICATE
CKA_TOKEN CK_BBOOL CK_TRUE
CKA_PRIVATE CK_BBOOL CK_FALSE
CKA_MODIFIABLE CK_BBOOL CK_FALSE
CKA_LABEL UTF8 "Test"
CKA_CERTIFICATE_TYPE CK_CERTIFICATE_TYPE CKC_X_509
CKA_SUBJECT MULTILINE_OCTAL
\103
END
CKA_ID UTF8 "0"
CKA_ISSUER MULTILINE_OCTAL
\101\102
END
CKA_SERIAL_NUMBER MULTILINE_OCTAL
\001
END
CKA_VALUE MULTILINE_OCTAL
\377
END
`

// sampleDocument has the shape of a real certdata.txt: a license header,
// the builtin root list, one certificate with its trust, and a trust for
// a certificate that is not in the file.
const sampleDocument = `#
# This Source Code Form is subject to the terms of the Mozilla Public
# License, v. 2.0.
#
# certdata.txt
#
`

const sampleBody = `BEGINDATA

#
# Builtin root list
#
CKA_CLASS CK_OBJECT_CLASS CKO_NSS_BUILTIN_ROOT_LIST
CKA_TOKEN CK_BBOOL CK_TRUE
CKA_LABEL UTF8 "Mozilla Builtin Roots"

# Certificate "Test"
CKA_CLASS CK_OBJECT_CLASS CKO_CERTIFICATE
CKA_CERTIFICATE_TYPE CK_CERTIFICATE_TYPE CKC_X_509
CKA_LABEL UTF8 "Test"
CKA_SUBJECT MULTILINE_OCTAL
\103
END
CKA_ISSUER MULTILINE_OCTAL
\101\102
END
CKA_SERIAL_NUMBER MULTILINE_OCTAL
\001
END
CKA_VALUE MULTILINE_OCTAL
\377
END

# Trust for "Test"
CKA_CLASS CK_OBJECT_CLASS CKO_NSS_TRUST
CKA_TOKEN CK_BBOOL CK_TRUE
CKA_LABEL UTF8 "Test"
CKA_CERT_SHA1_HASH MULTILINE_OCTAL
\001\002\003
END
CKA_ISSUER MULTILINE_OCTAL
\101\102
END
CKA_SERIAL_NUMBER MULTILINE_OCTAL
\001
END
CKA_TRUST_SERVER_AUTH CK_TRUST CKT_NSS_TRUSTED_DELEGATOR
CKA_TRUST_EMAIL_PROTECTION CK_TRUST CKT_NSS_MUST_VERIFY_TRUST
CKA_TRUST_CODE_SIGNING CK_TRUST CKT_NSS_MUST_VERIFY_TRUST
CKA_TRUST_STEP_UP_APPROVED CK_BBOOL CK_FALSE

# Distrust "Gone"
CKA_CLASS CK_OBJECT_CLASS CKO_NSS_TRUST
CKA_LABEL UTF8 "Gone"
CKA_ISSUER MULTILINE_OCTAL
\104
END
CKA_SERIAL_NUMBER MULTILINE_OCTAL
\002\001\007
END
CKA_TRUST_SERVER_AUTH CK_TRUST CKT_NSS_NOT_TRUSTED
CKA_TRUST_EMAIL_PROTECTION CK_TRUST CKT_NSS_NOT_TRUSTED
CKA_TRUST_CODE_SIGNING CK_TRUST CKT_NSS_NOT_TRUSTED
`

func sampleText() string {
	return sampleDocument + sampleBody
}

// scenarioCertificate is the record scenarioCert decodes to.
func scenarioCertificate() Certificate {
	return Certificate{
		Label:   "Test",
		Cert:    []byte{0xff},
		Issuer:  []byte{'A', 'B'},
		Serial:  []byte{0x01},
		Subject: []byte{'C'},
	}
}

// newTestCert generates a self-signed ECDSA root and returns it as a
// certificate record, with issuer, serial and subject taken from the DER.
func newTestCert(t *testing.T, cn string, serial int64) Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ECDSA key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	serialDER, err := asn1.Marshal(cert.SerialNumber)
	if err != nil {
		t.Fatalf("marshal serial: %v", err)
	}
	return Certificate{
		Label:   cn,
		Cert:    der,
		Issuer:  cert.RawIssuer,
		Serial:  serialDER,
		Subject: cert.RawSubject,
	}
}

// drainAttrs reads r to the end and returns every attribute along with the
// error that stopped it, or nil at a clean end of stream.
func drainAttrs(r *AttrReader) ([]Attr, error) {
	var attrs []Attr
	for {
		a, err := r.Next()
		if errors.Is(err, io.EOF) {
			return attrs, nil
		}
		if err != nil {
			return attrs, err
		}
		attrs = append(attrs, a)
	}
}
