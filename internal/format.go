package internal

import (
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/sensiblebit/certdata"
	"gopkg.in/yaml.v3"
)

// CountAnnotation returns a parenthetical annotation like " (2 distrusted, 1 skipped)"
// for non-zero counts, or an empty string if both are zero.
func CountAnnotation(distrusted, skipped int) string {
	var parts []string
	if distrusted > 0 {
		parts = append(parts, fmt.Sprintf("%d distrusted", distrusted))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// marshalStructured renders v as indented JSON or YAML.
func marshalStructured(v any, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshaling YAML: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text, json or yaml)", format)
	}
}

// NameString renders a DER-encoded X.501 name in RFC 2253 form, or as hex
// if it does not decode.
func NameString(der []byte) string {
	var rdn pkix.RDNSequence
	rest, err := asn1.Unmarshal(der, &rdn)
	if err != nil || len(rest) > 0 {
		return hex.EncodeToString(der)
	}
	var name pkix.Name
	name.FillFromRDNSequence(&rdn)
	return name.String()
}

// AttrRecord is the structured form of one attribute. Binary values are
// base64.
type AttrRecord struct {
	Key   string `json:"key" yaml:"key"`
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

func newAttrRecord(a certdata.Attr) AttrRecord {
	r := AttrRecord{Key: a.Key, Type: a.Value.Type()}
	switch v := a.Value.(type) {
	case certdata.TokenValue:
		r.Value = v.Value
	case certdata.StringValue:
		r.Value = string(v)
	case certdata.BinaryValue:
		r.Value = base64.StdEncoding.EncodeToString(v)
	}
	return r
}

// FormatAttrs renders attributes as normalized certdata text, or as JSON or
// YAML records.
func FormatAttrs(attrs []certdata.Attr, format string) (string, error) {
	if format != "text" {
		records := make([]AttrRecord, 0, len(attrs))
		for _, a := range attrs {
			records = append(records, newAttrRecord(a))
		}
		return marshalStructured(records, format)
	}
	var sb strings.Builder
	sb.WriteString("BEGINDATA\n")
	for _, a := range attrs {
		writeAttrText(&sb, a)
	}
	return sb.String(), nil
}

func writeAttrText(sb *strings.Builder, a certdata.Attr) {
	switch v := a.Value.(type) {
	case certdata.TokenValue:
		fmt.Fprintf(sb, "%s %s %s\n", a.Key, v.AttrType, v.Value)
	case certdata.StringValue:
		fmt.Fprintf(sb, "%s %s %s\n", a.Key, certdata.TypeUTF8, quoteUTF8(string(v)))
	case certdata.BinaryValue:
		fmt.Fprintf(sb, "%s %s\n", a.Key, certdata.TypeMultilineOctal)
		for chunk := range slices.Chunk([]byte(v), 16) {
			for _, b := range chunk {
				fmt.Fprintf(sb, "\\%03o", b)
			}
			sb.WriteByte('\n')
		}
		sb.WriteString("END\n")
	}
}

// quoteUTF8 writes s as a certdata string literal, escaping the quote,
// the backslash and control bytes as \xHH.
func quoteUTF8(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' || c < 0x20 || c == 0x7f {
			fmt.Fprintf(&sb, "\\x%02x", c)
			continue
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

// FormatRawObjects renders records with sorted keys. Token values become
// {type, value}, strings stay strings and binary values are base64 in JSON
// and YAML, hex in text.
func FormatRawObjects(objs []certdata.RawObject, format string) (string, error) {
	if format == "text" {
		var sb strings.Builder
		for i, obj := range objs {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "Object %d:\n", i+1)
			for _, key := range sortedKeys(obj) {
				fmt.Fprintf(&sb, "  %s = %s\n", key, textValue(obj[key]))
			}
		}
		return sb.String(), nil
	}
	if format == "json" {
		records := make([]orderedObject, 0, len(objs))
		for _, obj := range objs {
			records = append(records, orderedObject(obj))
		}
		return marshalStructured(records, format)
	}
	nodes := make([]*yaml.Node, 0, len(objs))
	for _, obj := range objs {
		nodes = append(nodes, rawObjectNode(obj))
	}
	return marshalStructured(nodes, format)
}

func sortedKeys(obj certdata.RawObject) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func textValue(v certdata.Value) string {
	switch v := v.(type) {
	case certdata.TokenValue:
		return v.AttrType + " " + v.Value
	case certdata.StringValue:
		return quoteUTF8(string(v))
	case certdata.BinaryValue:
		return hex.EncodeToString(v)
	}
	return ""
}

type tokenView struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

func structuredValue(v certdata.Value) any {
	switch v := v.(type) {
	case certdata.TokenValue:
		return tokenView{Type: v.AttrType, Value: v.Value}
	case certdata.StringValue:
		return string(v)
	case certdata.BinaryValue:
		return base64.StdEncoding.EncodeToString(v)
	}
	return nil
}

// orderedObject marshals as a JSON object; encoding/json sorts map keys.
type orderedObject certdata.RawObject

func (o orderedObject) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(o))
	for k, v := range o {
		m[k] = structuredValue(v)
	}
	return json.Marshal(m)
}

// rawObjectNode builds a YAML mapping with keys in sorted order.
func rawObjectNode(obj certdata.RawObject) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range sortedKeys(obj) {
		val := &yaml.Node{}
		// Encoding plain strings and a two-field struct cannot fail.
		_ = val.Encode(structuredValue(obj[key]))
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
	}
	return node
}

// CertSummary describes one certificate record for display.
type CertSummary struct {
	Label   string              `json:"label" yaml:"label"`
	Subject string              `json:"subject" yaml:"subject"`
	Serial  string              `json:"serial" yaml:"serial"`
	SHA256  string              `json:"sha256" yaml:"sha256"`
	Trust   certdata.TrustLevel `json:"trust" yaml:"trust"`
}

// TrustSummary describes one trust record for display.
type TrustSummary struct {
	Label       string              `json:"label" yaml:"label"`
	Issuer      string              `json:"issuer" yaml:"issuer"`
	Serial      string              `json:"serial" yaml:"serial"`
	TLSServer   certdata.TrustLevel `json:"tls_server" yaml:"tls_server"`
	Email       certdata.TrustLevel `json:"email" yaml:"email"`
	CodeSigning certdata.TrustLevel `json:"code_signing" yaml:"code_signing"`
}

// SummarizeCert builds a CertSummary carrying c's trust level for u.
func SummarizeCert(d *certdata.CertData, c certdata.Certificate, u certdata.Usage) CertSummary {
	sum := sha256.Sum256(c.Cert)
	return CertSummary{
		Label:   c.Label,
		Subject: NameString(c.Subject),
		Serial:  hex.EncodeToString(c.Serial),
		SHA256:  hex.EncodeToString(sum[:]),
		Trust:   d.TrustLevelFor(c, u),
	}
}

// SummarizeTrust builds a TrustSummary.
func SummarizeTrust(t certdata.Trust) TrustSummary {
	return TrustSummary{
		Label:       t.Label,
		Issuer:      NameString(t.Issuer),
		Serial:      hex.EncodeToString(t.Serial),
		TLSServer:   t.TLSServerTrust,
		Email:       t.EmailTrust,
		CodeSigning: t.CodeSigningTrust,
	}
}

// RootsReport lists every certificate, the trusted roots for a usage and
// the trusts that distrust their certificate for it.
type RootsReport struct {
	Usage        certdata.Usage `json:"usage" yaml:"usage"`
	Certificates []CertSummary  `json:"certificates" yaml:"certificates"`
	Trusted      []CertSummary  `json:"trusted" yaml:"trusted"`
	Distrusted   []TrustSummary `json:"distrusted" yaml:"distrusted"`
	Skipped      int            `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// BuildRootsReport builds the report for d and u. skipped is the number
// of records dropped while reading.
func BuildRootsReport(d *certdata.CertData, u certdata.Usage, skipped int) RootsReport {
	r := RootsReport{
		Usage:        u,
		Certificates: []CertSummary{},
		Trusted:      []CertSummary{},
		Distrusted:   []TrustSummary{},
		Skipped:      skipped,
	}
	for _, c := range d.Certs() {
		r.Certificates = append(r.Certificates, SummarizeCert(d, c, u))
	}
	for _, c := range d.TrustedCerts(u) {
		r.Trusted = append(r.Trusted, SummarizeCert(d, c, u))
	}
	for _, t := range d.Distrusts(u) {
		r.Distrusted = append(r.Distrusted, SummarizeTrust(t))
	}
	return r
}

// FormatRootsReport formats a RootsReport as text, JSON or YAML.
func FormatRootsReport(r RootsReport, format string) (string, error) {
	if format != "text" {
		return marshalStructured(r, format)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Certificates: %d%s\n", len(r.Certificates), CountAnnotation(len(r.Distrusted), r.Skipped))
	for _, c := range r.Certificates {
		fmt.Fprintf(&sb, "  %s\n", c.Label)
	}
	fmt.Fprintf(&sb, "\nTrusted roots for %s: %d\n", r.Usage, len(r.Trusted))
	for _, c := range r.Trusted {
		fmt.Fprintf(&sb, "  %s\n", c.Label)
		fmt.Fprintf(&sb, "    Subject:  %s\n", c.Subject)
		fmt.Fprintf(&sb, "    Serial:   %s\n", c.Serial)
		fmt.Fprintf(&sb, "    SHA-256:  %s\n", c.SHA256)
	}
	fmt.Fprintf(&sb, "\nDistrusted for %s: %d\n", r.Usage, len(r.Distrusted))
	for _, t := range r.Distrusted {
		fmt.Fprintf(&sb, "  %s\n", t.Label)
		fmt.Fprintf(&sb, "    Issuer:   %s\n", t.Issuer)
		fmt.Fprintf(&sb, "    Serial:   %s\n", t.Serial)
	}
	return sb.String(), nil
}

// LookupResult is the output of a trust lookup. Certificate is nil when
// the lookup was by issuer and serial and no certificate record matches.
type LookupResult struct {
	Trust       TrustSummary `json:"trust" yaml:"trust"`
	Certificate *CertSummary `json:"certificate,omitempty" yaml:"certificate,omitempty"`
}

// FormatLookupResult formats a LookupResult as text, JSON or YAML.
func FormatLookupResult(r LookupResult, format string) (string, error) {
	if format != "text" {
		return marshalStructured(r, format)
	}
	var sb strings.Builder
	if r.Certificate != nil {
		fmt.Fprintf(&sb, "Certificate:\n")
		fmt.Fprintf(&sb, "  Label:        %s\n", r.Certificate.Label)
		fmt.Fprintf(&sb, "  Subject:      %s\n", r.Certificate.Subject)
		fmt.Fprintf(&sb, "  SHA-256:      %s\n", r.Certificate.SHA256)
	}
	fmt.Fprintf(&sb, "Trust:\n")
	fmt.Fprintf(&sb, "  Label:        %s\n", r.Trust.Label)
	fmt.Fprintf(&sb, "  Issuer:       %s\n", r.Trust.Issuer)
	fmt.Fprintf(&sb, "  Serial:       %s\n", r.Trust.Serial)
	fmt.Fprintf(&sb, "  TLS server:   %s\n", r.Trust.TLSServer)
	fmt.Fprintf(&sb, "  Email:        %s\n", r.Trust.Email)
	fmt.Fprintf(&sb, "  Code signing: %s\n", r.Trust.CodeSigning)
	return sb.String(), nil
}

// CompareReport is the display form of a certdata.RootDiff.
type CompareReport struct {
	Bundle       string         `json:"bundle" yaml:"bundle"`
	Usage        certdata.Usage `json:"usage" yaml:"usage"`
	Common       int            `json:"common" yaml:"common"`
	OnlyInData   []string       `json:"only_in_data" yaml:"only_in_data"`
	OnlyInBundle []string       `json:"only_in_bundle" yaml:"only_in_bundle"`
}

// BuildCompareReport lists roots only in the file by label and bundle-only
// certificates by SHA-256 of their DER. bundle names the reference set.
func BuildCompareReport(diff certdata.RootDiff, u certdata.Usage, bundle string) CompareReport {
	r := CompareReport{Bundle: bundle, Usage: u, Common: diff.Common, OnlyInData: []string{}, OnlyInBundle: []string{}}
	for _, c := range diff.OnlyInData {
		r.OnlyInData = append(r.OnlyInData, c.Label)
	}
	for _, der := range diff.OnlyInBundle {
		sum := sha256.Sum256(der)
		r.OnlyInBundle = append(r.OnlyInBundle, hex.EncodeToString(sum[:]))
	}
	return r
}

// FormatCompareReport formats a CompareReport as text, JSON or YAML.
func FormatCompareReport(r CompareReport, format string) (string, error) {
	if format != "text" {
		return marshalStructured(r, format)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bundle: %s\n", r.Bundle)
	fmt.Fprintf(&sb, "Roots for %s in both: %d\n", r.Usage, r.Common)
	fmt.Fprintf(&sb, "Only in certdata: %d\n", len(r.OnlyInData))
	for _, label := range r.OnlyInData {
		fmt.Fprintf(&sb, "  %s\n", label)
	}
	fmt.Fprintf(&sb, "Only in bundle: %d\n", len(r.OnlyInBundle))
	for _, fp := range r.OnlyInBundle {
		fmt.Fprintf(&sb, "  sha256:%s\n", fp)
	}
	return sb.String(), nil
}
