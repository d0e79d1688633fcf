package vmc

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/binary"
	"fmt"
	"time"
)

// sctVersionV1 is the only SCT version defined by RFC 6962.
const sctVersionV1 = 0

// SCT is an embedded Signed Certificate Timestamp per RFC 6962
// Section 3.2, decoded from the certificate's SCT list extension.
type SCT struct {
	// Version is the SCT version tag. 0 means v1.
	Version uint8

	// LogID is the SHA-256 hash of the log's public key.
	LogID [32]byte

	// Timestamp is milliseconds since the Unix epoch.
	Timestamp uint64

	// Extensions is the opaque CtExtensions blob, usually empty.
	Extensions []byte

	// HashAlgorithm and SignatureAlgorithm identify the digitally-signed
	// algorithm pair (RFC 5246 Section 7.4.1.4.1 registry values).
	HashAlgorithm      uint8
	SignatureAlgorithm uint8

	// Signature is the log's signature over the timestamped entry.
	Signature []byte
}

// Time returns the SCT timestamp as a time.Time.
func (s *SCT) Time() time.Time {
	return time.UnixMilli(int64(s.Timestamp)).UTC()
}

// ParseSCTs extracts and decodes the embedded SCT list from the
// certificate.
//
// Absence of the extension returns ErrNoSCTFound. A present but
// structurally invalid list (inconsistent length prefixes, truncated
// data) returns ErrInvalidSCT. A present but empty list is a valid,
// distinct outcome: an empty slice with nil error.
func ParseSCTs(cert *x509.Certificate) ([]SCT, error) {
	ext := findExtension(cert, oidSCTList)
	if ext == nil {
		return nil, ErrNoSCTFound
	}

	var wrapped []byte
	rest, err := asn1.Unmarshal(ext.Value, &wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: SCT list extension is not an OCTET STRING: %v", ErrInvalidSCT, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: SCT list extension has trailing data", ErrInvalidSCT)
	}

	return decodeSCTList(wrapped)
}

// decodeSCTList decodes a TLS-encoded SignedCertificateTimestampList:
// a 16-bit total length followed by 16-bit length-prefixed serialized
// SCTs.
func decodeSCTList(b []byte) ([]SCT, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("%w: SCT list shorter than its length prefix", ErrInvalidSCT)
	}
	total := int(binary.BigEndian.Uint16(b))
	b = b[2:]
	if total != len(b) {
		return nil, fmt.Errorf("%w: SCT list length %d does not match remaining %d bytes", ErrInvalidSCT, total, len(b))
	}

	scts := []SCT{}
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("%w: truncated SCT entry length", ErrInvalidSCT)
		}
		n := int(binary.BigEndian.Uint16(b))
		b = b[2:]
		if n > len(b) {
			return nil, fmt.Errorf("%w: SCT entry length %d exceeds remaining %d bytes", ErrInvalidSCT, n, len(b))
		}
		sct, err := decodeSCT(b[:n])
		if err != nil {
			return nil, err
		}
		scts = append(scts, sct)
		b = b[n:]
	}
	return scts, nil
}

// decodeSCT decodes one serialized SCT.
func decodeSCT(b []byte) (SCT, error) {
	var s SCT

	// version(1) + log id(32) + timestamp(8) + extensions length(2)
	if len(b) < 43 {
		return s, fmt.Errorf("%w: SCT of %d bytes is too short", ErrInvalidSCT, len(b))
	}
	s.Version = b[0]
	copy(s.LogID[:], b[1:33])
	s.Timestamp = binary.BigEndian.Uint64(b[33:41])
	b = b[41:]

	extLen := int(binary.BigEndian.Uint16(b))
	b = b[2:]
	if extLen > len(b) {
		return s, fmt.Errorf("%w: SCT extensions length %d exceeds remaining %d bytes", ErrInvalidSCT, extLen, len(b))
	}
	s.Extensions = append([]byte(nil), b[:extLen]...)
	b = b[extLen:]

	// hash(1) + signature algorithm(1) + signature length(2)
	if len(b) < 4 {
		return s, fmt.Errorf("%w: truncated SCT signature", ErrInvalidSCT)
	}
	s.HashAlgorithm = b[0]
	s.SignatureAlgorithm = b[1]
	sigLen := int(binary.BigEndian.Uint16(b[2:4]))
	b = b[4:]
	if sigLen != len(b) {
		return s, fmt.Errorf("%w: SCT signature length %d does not match remaining %d bytes", ErrInvalidSCT, sigLen, len(b))
	}
	s.Signature = append([]byte(nil), b...)

	return s, nil
}

// encodeSCTList is the inverse of decodeSCTList; decoding and
// re-encoding a list reproduces the original bytes.
func encodeSCTList(scts []SCT) []byte {
	var body []byte
	for i := range scts {
		entry := encodeSCT(&scts[i])
		body = binary.BigEndian.AppendUint16(body, uint16(len(entry)))
		body = append(body, entry...)
	}

	out := binary.BigEndian.AppendUint16(nil, uint16(len(body)))
	return append(out, body...)
}

func encodeSCT(s *SCT) []byte {
	b := []byte{s.Version}
	b = append(b, s.LogID[:]...)
	b = binary.BigEndian.AppendUint64(b, s.Timestamp)
	b = binary.BigEndian.AppendUint16(b, uint16(len(s.Extensions)))
	b = append(b, s.Extensions...)
	b = append(b, s.HashAlgorithm, s.SignatureAlgorithm)
	b = binary.BigEndian.AppendUint16(b, uint16(len(s.Signature)))
	return append(b, s.Signature...)
}

// CTResult is the aggregate Certificate Transparency compliance
// verdict over a certificate's embedded SCTs.
type CTResult struct {
	// Compliant is true when at least one SCT is present and valid.
	Compliant bool

	// SCTs are all decoded SCTs, valid or not.
	SCTs []SCT

	// Valid is the number of SCTs that passed validation.
	Valid int

	// Reasons describes each rejected SCT.
	Reasons []string

	// FutureTimestamp is set when any SCT is timestamped after the
	// reference instant, even if another SCT is valid. A future
	// timestamp indicates a clock or issuance anomaly worth surfacing.
	FutureTimestamp bool

	// Err is the aggregate failure: ErrNoSCTFound, ErrInvalidSCT, or
	// ErrSCTFutureTimestamp. Nil when compliant with no anomalies.
	Err error
}

// ValidateSCTs checks each SCT for structural and temporal
// plausibility against the certificate's validity window and the
// reference instant, then aggregates a compliance verdict.
//
// An SCT is rejected when its version tag is unrecognized, its
// timestamp predates the certificate's notBefore, or its timestamp is
// after the reference instant. A timestamp exactly at the reference
// instant is accepted. All SCTs are evaluated before aggregating,
// since one valid SCT among several invalid ones is a meaningful,
// distinct outcome.
func ValidateSCTs(scts []SCT, notBefore, at time.Time) *CTResult {
	res := &CTResult{SCTs: scts}

	if len(scts) == 0 {
		res.Err = ErrNoSCTFound
		return res
	}

	for i := range scts {
		sct := &scts[i]
		ts := sct.Time()
		switch {
		case sct.Version != sctVersionV1:
			res.Reasons = append(res.Reasons, fmt.Sprintf("SCT %d: unrecognized version %d", i, sct.Version))
		case ts.After(at):
			res.FutureTimestamp = true
			res.Reasons = append(res.Reasons, fmt.Sprintf("SCT %d: timestamp %s is after the reference instant", i, ts.Format(time.RFC3339Nano)))
		case ts.Before(notBefore):
			res.Reasons = append(res.Reasons, fmt.Sprintf("SCT %d: timestamp %s predates certificate validity", i, ts.Format(time.RFC3339Nano)))
		default:
			res.Valid++
		}
	}

	switch {
	case res.Valid == 0 && res.FutureTimestamp:
		res.Err = ErrSCTFutureTimestamp
	case res.Valid == 0:
		res.Err = ErrInvalidSCT
	case res.FutureTimestamp:
		// Compliant, but the anomaly is still surfaced.
		res.Compliant = true
		res.Err = ErrSCTFutureTimestamp
	default:
		res.Compliant = true
	}

	return res
}
