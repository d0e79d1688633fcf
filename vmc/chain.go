package vmc

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"sort"
	"time"
)

// TrustChain is an ordered certificate chain [leaf, intermediate...,
// root] in which each certificate is issued and signed by the next.
// Chains are built fresh per validation and never cached.
type TrustChain struct {
	Certs []*x509.Certificate
}

// Leaf returns the end-entity certificate of the chain.
func (c *TrustChain) Leaf() *x509.Certificate {
	return c.Certs[0]
}

// Root returns the trust anchor of the chain.
func (c *TrustChain) Root() *x509.Certificate {
	return c.Certs[len(c.Certs)-1]
}

// Len returns the number of certificates in the chain.
func (c *TrustChain) Len() int {
	return len(c.Certs)
}

// BuildChain constructs a trust chain from the bundle's leaf to a root
// in the trust store.
//
// Candidate issuers at each step are the remaining bundle certificates
// (in bundle order) followed by store certificates whose subject equals
// the current tail's issuer. Ambiguity is resolved by depth-first
// backtracking over all candidates; when several complete chains
// validate, the shortest wins, ties broken by bundle order. Chains end
// at a self-issued certificate present in the store, or at any
// self-issued certificate when allowSelfSigned is set.
//
// Every certificate must contain the reference instant within its
// validity window (ErrExpiredCertificate, naming the offending
// position) and each link's signature is verified against its issuer's
// public key (ErrInvalidSignature). When no complete path exists at
// all, the error is ErrNoTrustPath. A nil or empty trust store never
// anchors a chain.
func BuildChain(bundle *Bundle, roots *TrustStore, at time.Time, allowSelfSigned bool) (*TrustChain, error) {
	leaf := bundle.Leaf()

	var paths [][]*x509.Certificate

	var walk func(path []*x509.Certificate)
	walk = func(path []*x509.Certificate) {
		tail := path[len(path)-1]

		if selfIssued(tail) {
			if roots.Contains(tail) && len(path) >= 2 || allowSelfSigned {
				paths = append(paths, append([]*x509.Certificate(nil), path...))
			}
			return
		}

		for _, cand := range candidates(tail, bundle, roots) {
			if inPath(path, cand) {
				continue
			}
			walk(append(path, cand))
		}
	}
	walk([]*x509.Certificate{leaf})

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: bundle of %d certificates does not chain to any of %d trusted roots",
			ErrNoTrustPath, len(bundle.Certs), roots.Len())
	}

	// Shortest chain first; the DFS visits bundle certificates in
	// delivered order, so equal lengths keep bundle order.
	sort.SliceStable(paths, func(i, j int) bool {
		return len(paths[i]) < len(paths[j])
	})

	var firstErr error
	for _, path := range paths {
		if err := checkChain(path, at); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return &TrustChain{Certs: path}, nil
	}
	return nil, firstErr
}

// candidates returns possible issuers for tail: unused bundle
// intermediates first, then trust store roots.
func candidates(tail *x509.Certificate, bundle *Bundle, roots *TrustStore) []*x509.Certificate {
	var out []*x509.Certificate
	for _, cert := range bundle.Intermediates() {
		if bytes.Equal(cert.RawSubject, tail.RawIssuer) {
			out = append(out, cert)
		}
	}
	for _, cert := range roots.findBySubject(tail.RawIssuer) {
		if !containsCert(out, cert) {
			out = append(out, cert)
		}
	}
	return out
}

// checkChain validates the validity windows and signature linkage of a
// complete path.
func checkChain(path []*x509.Certificate, at time.Time) error {
	for i, cert := range path {
		pos := positionName(i, len(path))
		if at.Before(cert.NotBefore) {
			return fmt.Errorf("%w: %s certificate not valid before %s",
				ErrExpiredCertificate, pos, cert.NotBefore.UTC().Format(time.RFC3339))
		}
		if at.After(cert.NotAfter) {
			return fmt.Errorf("%w: %s certificate expired at %s",
				ErrExpiredCertificate, pos, cert.NotAfter.UTC().Format(time.RFC3339))
		}
	}

	if len(path) == 1 {
		cert := path[0]
		if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature); err != nil {
			return fmt.Errorf("%w: self-signed certificate: %v", ErrInvalidSignature, err)
		}
		return nil
	}

	for i := 0; i+1 < len(path); i++ {
		if err := path[i].CheckSignatureFrom(path[i+1]); err != nil {
			return fmt.Errorf("%w: %s certificate not signed by %s: %v",
				ErrInvalidSignature, positionName(i, len(path)), positionName(i+1, len(path)), err)
		}
	}
	return nil
}

// positionName names a chain position for error messages.
func positionName(i, n int) string {
	switch {
	case i == 0:
		return "leaf"
	case i == n-1:
		return "root"
	default:
		return "intermediate"
	}
}

// selfIssued reports whether the certificate's subject equals its
// issuer.
func selfIssued(cert *x509.Certificate) bool {
	return bytes.Equal(cert.RawSubject, cert.RawIssuer)
}

func inPath(path []*x509.Certificate, cert *x509.Certificate) bool {
	return containsCert(path, cert)
}

func containsCert(certs []*x509.Certificate, cert *x509.Certificate) bool {
	for _, c := range certs {
		if bytes.Equal(c.Raw, cert.Raw) {
			return true
		}
	}
	return false
}
