package certdata

import (
	"errors"
	"fmt"
)

// Attribute keys, type tags and values understood by the decoder.
const (
	keyCertificateType = "CKA_CERTIFICATE_TYPE"
	keyValue           = "CKA_VALUE"
	keyLabel           = "CKA_LABEL"
	keyIssuer          = "CKA_ISSUER"
	keySerialNumber    = "CKA_SERIAL_NUMBER"
	keySubject         = "CKA_SUBJECT"
	keyTrustServerAuth = "CKA_TRUST_SERVER_AUTH"
	keyTrustEmail      = "CKA_TRUST_EMAIL_PROTECTION"
	keyTrustCodeSign   = "CKA_TRUST_CODE_SIGNING"
	keyCertMD5Hash     = "CKA_CERT_MD5_HASH"
	keyCertSHA1Hash    = "CKA_CERT_SHA1_HASH"

	typeObjectClass     = "CK_OBJECT_CLASS"
	typeCertificateType = "CK_CERTIFICATE_TYPE"
	typeTrust           = "CK_TRUST"

	classCertificate = "CKO_CERTIFICATE"
	classTrust       = "CKO_NSS_TRUST"
	certTypeX509     = "CKC_X_509"
)

// Object is a decoded record. It is implemented only by *Certificate and
// *Trust.
type Object interface {
	isObject()
}

// Certificate is a CKO_CERTIFICATE record. Cert is the DER encoding;
// Issuer, Serial and Subject are the DER-encoded fields as stored in the
// record.
type Certificate struct {
	Label   string `json:"label" yaml:"label"`
	Cert    []byte `json:"cert" yaml:"cert"`
	Issuer  []byte `json:"issuer" yaml:"issuer"`
	Serial  []byte `json:"serial" yaml:"serial"`
	Subject []byte `json:"subject" yaml:"subject"`
}

// Trust is a CKO_NSS_TRUST record: per-usage trust levels for the
// certificate identified by Issuer and Serial. MD5 and SHA1 are nil when
// the record omits them.
type Trust struct {
	Label            string     `json:"label" yaml:"label"`
	Issuer           []byte     `json:"issuer" yaml:"issuer"`
	Serial           []byte     `json:"serial" yaml:"serial"`
	TLSServerTrust   TrustLevel `json:"tls_server_trust" yaml:"tls_server_trust"`
	EmailTrust       TrustLevel `json:"email_trust" yaml:"email_trust"`
	CodeSigningTrust TrustLevel `json:"code_signing_trust" yaml:"code_signing_trust"`
	MD5              []byte     `json:"md5,omitempty" yaml:"md5,omitempty"`
	SHA1             []byte     `json:"sha1,omitempty" yaml:"sha1,omitempty"`
}

func (*Certificate) isObject() {}
func (*Trust) isObject()       {}

// Level returns the trust level that applies to u.
func (t Trust) Level(u Usage) TrustLevel {
	switch u {
	case UsageEmail:
		return t.EmailTrust
	case UsageCodeSigning:
		return t.CodeSigningTrust
	default:
		return t.TLSServerTrust
	}
}

// TrustLevel is an ordered trust decision: Distrust < MustVerify <
// TrustedDelegator.
type TrustLevel uint8

const (
	Distrust TrustLevel = iota
	MustVerify
	TrustedDelegator
)

var trustLevelTokens = map[string]TrustLevel{
	"CKT_NSS_NOT_TRUSTED":       Distrust,
	"CKT_NSS_MUST_VERIFY_TRUST": MustVerify,
	"CKT_NSS_TRUSTED_DELEGATOR": TrustedDelegator,
}

// ParseTrustLevel maps a CK_TRUST token to its level.
func ParseTrustLevel(token string) (TrustLevel, bool) {
	l, ok := trustLevelTokens[token]
	return l, ok
}

func (l TrustLevel) String() string {
	switch l {
	case Distrust:
		return "distrust"
	case MustVerify:
		return "must-verify"
	case TrustedDelegator:
		return "trusted-delegator"
	default:
		return fmt.Sprintf("TrustLevel(%d)", uint8(l))
	}
}

// MarshalText encodes the level by name for JSON and YAML output.
func (l TrustLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Usage selects which of a Trust's levels applies.
type Usage uint8

const (
	UsageTLSServer Usage = iota
	UsageEmail
	UsageCodeSigning
)

// Usages lists every usage in declaration order.
func Usages() []Usage {
	return []Usage{UsageTLSServer, UsageEmail, UsageCodeSigning}
}

func (u Usage) String() string {
	switch u {
	case UsageTLSServer:
		return "tls-server"
	case UsageEmail:
		return "email"
	case UsageCodeSigning:
		return "code-signing"
	default:
		return fmt.Sprintf("Usage(%d)", uint8(u))
	}
}

// ParseUsage maps a usage name as printed by Usage.String back to a Usage.
func ParseUsage(name string) (Usage, error) {
	for _, u := range Usages() {
		if u.String() == name {
			return u, nil
		}
	}
	return 0, fmt.Errorf("unknown usage %q (want tls-server, email or code-signing)", name)
}

// MarshalText encodes the usage by name.
func (u Usage) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText decodes a usage name, for configuration files.
func (u *Usage) UnmarshalText(text []byte) error {
	parsed, err := ParseUsage(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// DecodeObject converts one record into a Certificate or Trust. It returns
// a nil Object and nil error for records of any other class. Recognized
// keys are removed from raw as they are decoded; the first missing or
// malformed field aborts decoding with a StructureError.
func DecodeObject(raw RawObject) (Object, error) {
	class, err := takeToken(raw, ClassKey, typeObjectClass, func(v string) (string, bool) {
		return v, true
	})
	if err != nil {
		return nil, err
	}
	switch class {
	case classCertificate:
		c, err := decodeCertificate(raw)
		if err != nil {
			return nil, err
		}
		return c, nil
	case classTrust:
		t, err := decodeTrust(raw)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		// CKO_NSS_BUILTIN_ROOT_LIST and anything unknown.
		return nil, nil
	}
}

func decodeCertificate(raw RawObject) (*Certificate, error) {
	_, err := takeToken(raw, keyCertificateType, typeCertificateType, func(v string) (struct{}, bool) {
		return struct{}{}, v == certTypeX509
	})
	if err != nil {
		return nil, err
	}
	var c Certificate
	if c.Cert, err = takeBinary(raw, keyValue); err != nil {
		return nil, err
	}
	if c.Label, err = takeString(raw, keyLabel); err != nil {
		return nil, err
	}
	if c.Issuer, err = takeBinary(raw, keyIssuer); err != nil {
		return nil, err
	}
	if c.Serial, err = takeBinary(raw, keySerialNumber); err != nil {
		return nil, err
	}
	if c.Subject, err = takeBinary(raw, keySubject); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeTrust(raw RawObject) (*Trust, error) {
	var t Trust
	var err error
	if t.Label, err = takeString(raw, keyLabel); err != nil {
		return nil, err
	}
	if t.Issuer, err = takeBinary(raw, keyIssuer); err != nil {
		return nil, err
	}
	if t.Serial, err = takeBinary(raw, keySerialNumber); err != nil {
		return nil, err
	}
	if t.TLSServerTrust, err = takeTrustLevel(raw, keyTrustServerAuth); err != nil {
		return nil, err
	}
	if t.EmailTrust, err = takeTrustLevel(raw, keyTrustEmail); err != nil {
		return nil, err
	}
	if t.CodeSigningTrust, err = takeTrustLevel(raw, keyTrustCodeSign); err != nil {
		return nil, err
	}
	if t.MD5, err = optional(takeBinary(raw, keyCertMD5Hash)); err != nil {
		return nil, err
	}
	if t.SHA1, err = optional(takeBinary(raw, keyCertSHA1Hash)); err != nil {
		return nil, err
	}
	return &t, nil
}

func takeBinary(raw RawObject, key string) ([]byte, error) {
	v, ok := raw[key]
	if !ok {
		return nil, &MissingKeyError{Key: key}
	}
	delete(raw, key)
	b, ok := v.(BinaryValue)
	if !ok {
		return nil, &TypeError{Got: v.Type(), Expected: TypeMultilineOctal, Key: key}
	}
	return []byte(b), nil
}

func takeString(raw RawObject, key string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", &MissingKeyError{Key: key}
	}
	delete(raw, key)
	s, ok := v.(StringValue)
	if !ok {
		return "", &TypeError{Got: v.Type(), Expected: TypeUTF8, Key: key}
	}
	return string(s), nil
}

// takeToken removes a TYPE VALUE attribute whose type must be attrType and
// translates its value.
func takeToken[T any](raw RawObject, key, attrType string, translate func(string) (T, bool)) (T, error) {
	var zero T
	v, ok := raw[key]
	if !ok {
		return zero, &MissingKeyError{Key: key}
	}
	delete(raw, key)
	tok, ok := v.(TokenValue)
	if !ok || tok.AttrType != attrType {
		return zero, &TypeError{Got: v.Type(), Expected: attrType, Key: key}
	}
	res, ok := translate(tok.Value)
	if !ok {
		return zero, &ValueError{Got: tok.Value, AttrType: attrType, Key: key}
	}
	return res, nil
}

func takeTrustLevel(raw RawObject, key string) (TrustLevel, error) {
	return takeToken(raw, key, typeTrust, ParseTrustLevel)
}

// optional turns a missing key into an absent value.
func optional[T any](v T, err error) (T, error) {
	var missing *MissingKeyError
	if errors.As(err, &missing) {
		var zero T
		return zero, nil
	}
	return v, err
}
