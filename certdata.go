// Package certdata parses the NSS trust store dump format (certdata.txt)
// into certificates and trust records, and indexes them for trust lookups.
//
// The pipeline is pull-based and single-pass:
//
//	AttrReader       (key, value) attributes after the BEGINDATA line
//	RawObjectReader  attributes grouped into records at each CKA_CLASS
//	ObjectReader     records decoded into *Certificate and *Trust
//	CertData         sorted, queryable store built from the objects
//
// The package never interprets certificate DER; it only moves the bytes
// found in the file into typed fields.
package certdata

import "io"

// Read decodes an entire certdata.txt stream into a CertData. The first
// error of any kind, including a StructureError, aborts the read.
func Read(r io.Reader, opts ...ReaderOption) (*CertData, error) {
	return Collect(NewObjectReader(r, opts...).All())
}
