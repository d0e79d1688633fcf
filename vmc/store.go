package vmc

import (
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"os"
)

// TrustStore is a read-only set of trusted root certificates, loaded
// once at startup. It is safe for concurrent use by multiple
// validations.
type TrustStore struct {
	certs     []*x509.Certificate
	bySubject map[string][]*x509.Certificate
	byDigest  map[[sha256.Size]byte]bool
}

// NewTrustStoreFromCerts builds a trust store from already-parsed
// certificates.
func NewTrustStoreFromCerts(certs []*x509.Certificate) *TrustStore {
	s := &TrustStore{
		bySubject: make(map[string][]*x509.Certificate, len(certs)),
		byDigest:  make(map[[sha256.Size]byte]bool, len(certs)),
	}
	for _, cert := range certs {
		digest := sha256.Sum256(cert.Raw)
		if s.byDigest[digest] {
			continue
		}
		s.byDigest[digest] = true
		s.certs = append(s.certs, cert)
		subject := string(cert.RawSubject)
		s.bySubject[subject] = append(s.bySubject[subject], cert)
	}
	return s
}

// NewTrustStore parses PEM-encoded root certificates into a trust
// store.
func NewTrustStore(pemData []byte) (*TrustStore, error) {
	certs, err := parseCertificates(pemData)
	if err != nil {
		return nil, fmt.Errorf("loading trust roots: %w", err)
	}
	return NewTrustStoreFromCerts(certs), nil
}

// LoadTrustStoreFile loads PEM-encoded root certificates from a file.
func LoadTrustStoreFile(path string) (*TrustStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading trust roots from %s: %w", path, err)
	}
	return NewTrustStore(data)
}

// Contains reports whether the exact certificate is in the store. A nil
// store contains nothing.
func (s *TrustStore) Contains(cert *x509.Certificate) bool {
	if s == nil {
		return false
	}
	return s.byDigest[sha256.Sum256(cert.Raw)]
}

// findBySubject returns the stored certificates whose subject matches
// the given raw issuer DN.
func (s *TrustStore) findBySubject(rawIssuer []byte) []*x509.Certificate {
	if s == nil {
		return nil
	}
	return s.bySubject[string(rawIssuer)]
}

// Len returns the number of roots in the store.
func (s *TrustStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.certs)
}
