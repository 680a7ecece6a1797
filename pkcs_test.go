package certdata

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodePKCS7_RoundTrip(t *testing.T) {
	// WHY: The P7B export must carry every root's DER unchanged and in order.
	t.Parallel()

	certs := []Certificate{newTestCert(t, "Root A", 1), newTestCert(t, "Root B", 2)}
	p7, err := EncodePKCS7(certs)
	if err != nil {
		t.Fatalf("EncodePKCS7: %v", err)
	}
	ders, err := DecodePKCS7(p7)
	if err != nil {
		t.Fatalf("DecodePKCS7: %v", err)
	}
	if len(ders) != len(certs) {
		t.Fatalf("got %d certificates, want %d", len(ders), len(certs))
	}
	for i := range certs {
		if !bytes.Equal(ders[i], certs[i].Cert) {
			t.Errorf("certificate %d DER changed in round trip", i)
		}
	}
}

func TestEncodePKCS12TrustStore_RoundTrip(t *testing.T) {
	// WHY: The P12 trust store must open with the password it was written
	// with and reject any other.
	t.Parallel()

	certs := []Certificate{newTestCert(t, "Root A", 1), newTestCert(t, "Root B", 2)}
	pfx, err := EncodePKCS12TrustStore(certs, "changeit")
	if err != nil {
		t.Fatalf("EncodePKCS12TrustStore: %v", err)
	}
	ders, err := DecodePKCS12TrustStore(pfx, "changeit")
	if err != nil {
		t.Fatalf("DecodePKCS12TrustStore: %v", err)
	}
	if len(ders) != 2 {
		t.Fatalf("got %d certificates, want 2", len(ders))
	}
	found := 0
	for _, der := range ders {
		for _, c := range certs {
			if bytes.Equal(der, c.Cert) {
				found++
			}
		}
	}
	if found != 2 {
		t.Errorf("matched %d of 2 certificates", found)
	}

	if _, err := DecodePKCS12TrustStore(pfx, "wrong"); err == nil {
		t.Error("expected error for wrong password")
	}
}

func TestContainers_InvalidInput(t *testing.T) {
	// WHY: Empty input and unparseable bytes must fail with an error, not
	// produce an empty container or panic.
	t.Parallel()

	placeholder := []Certificate{scenarioCertificate()}
	tests := []struct {
		name    string
		run     func() error
		wantErr string
	}{
		{name: "pkcs7 empty", run: func() error { _, err := EncodePKCS7(nil); return err }, wantErr: "no certificates"},
		{name: "pkcs12 empty", run: func() error { _, err := EncodePKCS12TrustStore(nil, "x"); return err }, wantErr: "no certificates"},
		{name: "pkcs12 bad DER", run: func() error { _, err := EncodePKCS12TrustStore(placeholder, "x"); return err }, wantErr: `parsing certificate "Test"`},
		{name: "pkcs7 garbage", run: func() error { _, err := DecodePKCS7([]byte("not pkcs7")); return err }, wantErr: "parsing PKCS#7"},
		{name: "pkcs12 garbage", run: func() error { _, err := DecodePKCS12TrustStore([]byte("not pkcs12"), "x"); return err }, wantErr: "decoding PKCS#12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.run()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
