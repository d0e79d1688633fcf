package vmc

import (
	"bytes"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
)

// OIDs used by Verified Mark Certificates.
var (
	// id-kp-BrandIndicatorforMessageIdentification
	oidExtKeyUsageBIMI = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 31}

	// RFC 6962 embedded SCT list.
	oidSCTList = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 2}

	// RFC 3709 logotype extension.
	oidLogotype = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 12}

	// BIMI Group private arc.
	oidMarkType              = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 53087, 1, 2}
	oidTrademarkRegistration = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 53087, 1, 4}
	oidPilotIdentifier       = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 53087, 1, 6}
)

// Bundle is an ordered certificate bundle with the end-entity
// certificate first, as consumed by BuildChain.
type Bundle struct {
	// Certs holds the leaf certificate followed by the intermediates in
	// their delivered order.
	Certs []*x509.Certificate
}

// Leaf returns the end-entity certificate.
func (b *Bundle) Leaf() *x509.Certificate {
	return b.Certs[0]
}

// Intermediates returns the remaining bundle certificates.
func (b *Bundle) Intermediates() []*x509.Certificate {
	return b.Certs[1:]
}

// ParseBundle parses PEM- or DER-encoded certificate data into a
// Bundle. The end-entity certificate is identified as the single non-CA
// certificate and moved to the front; intermediates keep their
// delivered order.
//
// Returns ErrNoCertificate when the data contains no certificates at
// all, and ErrMalformedCertificate when data is present but does not
// parse, or when the bundle has no or several end-entity certificates.
func ParseBundle(data []byte) (*Bundle, error) {
	certs, err := parseCertificates(data)
	if err != nil {
		return nil, err
	}

	var leaf *x509.Certificate
	var rest []*x509.Certificate
	for _, cert := range certs {
		if cert.IsCA {
			rest = append(rest, cert)
			continue
		}
		if leaf != nil {
			return nil, fmt.Errorf("%w: more than one end-entity certificate in bundle", ErrMalformedCertificate)
		}
		leaf = cert
	}
	if leaf == nil {
		return nil, fmt.Errorf("%w: no end-entity certificate in bundle", ErrMalformedCertificate)
	}

	return &Bundle{Certs: append([]*x509.Certificate{leaf}, rest...)}, nil
}

// parseCertificates decodes one or more certificates from PEM or raw
// DER bytes.
func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoCertificate
	}

	if bytes.Contains(data, []byte("-----BEGIN ")) {
		var certs []*x509.Certificate
		rest := data
		for {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				break
			}
			if block.Type != "CERTIFICATE" {
				continue
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
			}
			certs = append(certs, cert)
		}
		if len(certs) == 0 {
			return nil, fmt.Errorf("%w: PEM data contains no certificate blocks", ErrNoCertificate)
		}
		return certs, nil
	}

	certs, err := x509.ParseCertificates(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
	}
	if len(certs) == 0 {
		return nil, ErrNoCertificate
	}
	return certs, nil
}

// IsVMC reports whether the certificate carries the BIMI extended key
// usage required of a Verified Mark Certificate.
func IsVMC(cert *x509.Certificate) bool {
	for _, eku := range cert.UnknownExtKeyUsage {
		if eku.Equal(oidExtKeyUsageBIMI) {
			return true
		}
	}
	return false
}

// findExtension returns the raw extension with the given OID, or nil.
func findExtension(cert *x509.Certificate, oid asn1.ObjectIdentifier) *pkix.Extension {
	for i := range cert.Extensions {
		if cert.Extensions[i].Id.Equal(oid) {
			return &cert.Extensions[i]
		}
	}
	return nil
}

// subjectAttribute returns the string value of a subject DN attribute,
// or "" when absent.
func subjectAttribute(cert *x509.Certificate, oid asn1.ObjectIdentifier) string {
	for _, atv := range cert.Subject.Names {
		if !atv.Type.Equal(oid) {
			continue
		}
		if s, ok := atv.Value.(string); ok {
			return s
		}
	}
	return ""
}
