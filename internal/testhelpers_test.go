package internal

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/sensiblebit/certdata"
)

// newRootCert generates a self-signed ECDSA root and returns it as a
// certificate record, with issuer, serial and subject taken from the DER.
func newRootCert(t *testing.T, cn string, serial int64) certdata.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ECDSA key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"TestOrg"}},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
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
	return certdata.Certificate{
		Label:   cn,
		Cert:    der,
		Issuer:  cert.RawIssuer,
		Serial:  serialDER,
		Subject: cert.RawSubject,
	}
}

// trustFor builds a trust record for c carrying correct hashes.
func trustFor(c certdata.Certificate, tls, email, code certdata.TrustLevel) certdata.Trust {
	sha := sha1.Sum(c.Cert)
	md := md5.Sum(c.Cert)
	return certdata.Trust{
		Label:            c.Label,
		Issuer:           c.Issuer,
		Serial:           c.Serial,
		TLSServerTrust:   tls,
		EmailTrust:       email,
		CodeSigningTrust: code,
		SHA1:             sha[:],
		MD5:              md[:],
	}
}

// testSet is a small trust store: two TLS roots, one of which is also an
// email root, and one certificate distrusted for everything.
type testSet struct {
	rootA, rootB, bad certdata.Certificate
	trusts            []certdata.Trust
}

func newTestSet(t *testing.T) testSet {
	t.Helper()
	s := testSet{
		rootA: newRootCert(t, "Root A", 1),
		rootB: newRootCert(t, "Root B", 2),
		bad:   newRootCert(t, "Bad C", 3),
	}
	s.trusts = []certdata.Trust{
		trustFor(s.rootA, certdata.TrustedDelegator, certdata.TrustedDelegator, certdata.MustVerify),
		trustFor(s.rootB, certdata.TrustedDelegator, certdata.MustVerify, certdata.MustVerify),
		trustFor(s.bad, certdata.Distrust, certdata.Distrust, certdata.Distrust),
	}
	return s
}

func (s testSet) certData() *certdata.CertData {
	objs := []certdata.Object{&s.rootA, &s.rootB, &s.bad}
	for i := range s.trusts {
		objs = append(objs, &s.trusts[i])
	}
	return certdata.NewCertData(objs)
}

func token(typ, val string) certdata.Value {
	return certdata.TokenValue{AttrType: typ, Value: val}
}

func trustToken(l certdata.TrustLevel) certdata.Value {
	switch l {
	case certdata.Distrust:
		return token("CK_TRUST", "CKT_NSS_NOT_TRUSTED")
	case certdata.TrustedDelegator:
		return token("CK_TRUST", "CKT_NSS_TRUSTED_DELEGATOR")
	default:
		return token("CK_TRUST", "CKT_NSS_MUST_VERIFY_TRUST")
	}
}

// certdataText renders s as a certdata.txt document.
func (s testSet) certdataText(t *testing.T) string {
	t.Helper()
	var attrs []certdata.Attr
	add := func(key string, v certdata.Value) {
		attrs = append(attrs, certdata.Attr{Key: key, Value: v})
	}
	for _, c := range []certdata.Certificate{s.rootA, s.rootB, s.bad} {
		add("CKA_CLASS", token("CK_OBJECT_CLASS", "CKO_CERTIFICATE"))
		add("CKA_TOKEN", token("CK_BBOOL", "CK_TRUE"))
		add("CKA_LABEL", certdata.StringValue(c.Label))
		add("CKA_CERTIFICATE_TYPE", token("CK_CERTIFICATE_TYPE", "CKC_X_509"))
		add("CKA_SUBJECT", certdata.BinaryValue(c.Subject))
		add("CKA_ISSUER", certdata.BinaryValue(c.Issuer))
		add("CKA_SERIAL_NUMBER", certdata.BinaryValue(c.Serial))
		add("CKA_VALUE", certdata.BinaryValue(c.Cert))
	}
	for _, tr := range s.trusts {
		add("CKA_CLASS", token("CK_OBJECT_CLASS", "CKO_NSS_TRUST"))
		add("CKA_LABEL", certdata.StringValue(tr.Label))
		add("CKA_CERT_SHA1_HASH", certdata.BinaryValue(tr.SHA1))
		add("CKA_CERT_MD5_HASH", certdata.BinaryValue(tr.MD5))
		add("CKA_ISSUER", certdata.BinaryValue(tr.Issuer))
		add("CKA_SERIAL_NUMBER", certdata.BinaryValue(tr.Serial))
		add("CKA_TRUST_SERVER_AUTH", trustToken(tr.TLSServerTrust))
		add("CKA_TRUST_EMAIL_PROTECTION", trustToken(tr.EmailTrust))
		add("CKA_TRUST_CODE_SIGNING", trustToken(tr.CodeSigningTrust))
	}
	text, err := FormatAttrs(attrs, "text")
	if err != nil {
		t.Fatalf("rendering certdata: %v", err)
	}
	return "# test certdata\n" + strings.TrimSuffix(text, "\n") + "\n"
}
