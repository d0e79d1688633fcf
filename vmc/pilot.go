package vmc

import (
	"crypto/x509"
	"encoding/asn1"
)

// PilotIdentifier extracts the issuer-assigned pilot program
// identifier from the certificate's private extension
// (OID 1.3.6.1.4.1.53087.1.6).
//
// The extension is optional and vendor-specific: absence or a value
// that does not decode as a string returns "", never an error.
func PilotIdentifier(cert *x509.Certificate) string {
	ext := findExtension(cert, oidPilotIdentifier)
	if ext == nil {
		return ""
	}

	var raw asn1.RawValue
	rest, err := asn1.Unmarshal(ext.Value, &raw)
	if err != nil || len(rest) != 0 || raw.Class != asn1.ClassUniversal {
		return ""
	}

	switch raw.Tag {
	case asn1.TagUTF8String, asn1.TagIA5String, asn1.TagPrintableString:
		return string(raw.Bytes)
	}
	return ""
}
