// Package vmc implements Verified Mark Certificate (VMC) validation for
// BIMI per draft-fetch-validation-vmc-wchuang.
//
// A VMC is an X.509 certificate binding a brand indicator to a set of
// domains. Validation covers trust-chain construction against a
// configured root store, domain authorization matching against the
// certificate's Subject Alternative Names, and Certificate Transparency
// compliance of the embedded Signed Certificate Timestamps.
//
// All validation is pure: functions operate on parsed data, accept an
// injectable reference instant, and never touch the network.
package vmc

import (
	"crypto/x509"
	"errors"
	"time"
)

// VMC validation errors.
var (
	// ErrNoCertificate indicates no certificate data was found in the
	// fetched bundle.
	ErrNoCertificate = errors.New("vmc: no certificate data found")

	// ErrMalformedCertificate indicates certificate data was present but
	// could not be parsed as a well-formed certificate structure.
	ErrMalformedCertificate = errors.New("vmc: malformed certificate")

	// ErrNotVMC indicates the end-entity certificate does not carry the
	// BIMI extended key usage and is therefore not a Verified Mark
	// Certificate.
	ErrNotVMC = errors.New("vmc: end-entity certificate is not a Verified Mark Certificate")

	// ErrNoTrustPath indicates no chain could be constructed from the
	// leaf to a trusted root.
	ErrNoTrustPath = errors.New("vmc: no trust path to a trusted root")

	// ErrInvalidSignature indicates a certificate in the chain is not
	// signed by its issuer.
	ErrInvalidSignature = errors.New("vmc: invalid signature in trust chain")

	// ErrExpiredCertificate indicates a certificate in the chain is
	// expired or not yet valid at the reference instant.
	ErrExpiredCertificate = errors.New("vmc: certificate outside its validity window")

	// ErrDomainMismatch indicates the certificate does not authorize the
	// claiming domain.
	ErrDomainMismatch = errors.New("vmc: domain does not match SAN in VMC")

	// ErrNoSCTFound indicates the certificate carries no Signed
	// Certificate Timestamp list extension.
	ErrNoSCTFound = errors.New("vmc: no SCT found")

	// ErrInvalidSCT indicates the SCT list is structurally invalid or
	// every embedded SCT failed validation.
	ErrInvalidSCT = errors.New("vmc: invalid SCT")

	// ErrSCTFutureTimestamp indicates an embedded SCT is timestamped
	// after the reference instant, which suggests a clock or issuance
	// anomaly.
	ErrSCTFutureTimestamp = errors.New("vmc: SCT timestamp is in the future")

	// ErrNoLogotype indicates the certificate has no usable logotype
	// extension, or the extension carries no image hash.
	ErrNoLogotype = errors.New("vmc: no logotype hash found")

	// ErrIndicatorMismatch indicates the published indicator does not
	// hash to any digest embedded in the certificate logotype extension.
	ErrIndicatorMismatch = errors.New("vmc: indicator does not match the image embedded in the VMC")
)

// VMC is the information extracted from a validated Verified Mark
// Certificate.
type VMC struct {
	// Version is the X.509 version of the certificate.
	Version int

	// SerialNumber is the certificate serial, in decimal.
	SerialNumber string

	// Issuer is the organization name of the issuing authority.
	Issuer string

	// OrganizationName is the organization the mark is certified for.
	OrganizationName string

	// TrademarkRegistration is the registration number from the subject
	// (OID 1.3.6.1.4.1.53087.1.4), if present.
	TrademarkRegistration string

	// MarkType is the mark type from the subject
	// (OID 1.3.6.1.4.1.53087.1.2), if present.
	MarkType string

	// PilotIdentifier is the issuer-assigned pilot program identifier
	// (OID 1.3.6.1.4.1.53087.1.6), if present.
	PilotIdentifier string

	// NotBefore and NotAfter delimit the certificate validity window.
	NotBefore time.Time
	NotAfter  time.Time

	// CertifiedDomains are the Subject Alternative Name entries.
	CertifiedDomains []string
}

// VerifyOptions controls which checks Verify performs.
type VerifyOptions struct {
	// Domain is the claiming domain. Required when VerifyDomain is set.
	Domain string

	// Selector is the BIMI selector in use. Empty means "default".
	Selector string

	// VerifyDomain enables SAN-based domain authorization.
	VerifyDomain bool

	// VerifyCTLogging enables Certificate Transparency compliance
	// checking of embedded SCTs. When false, SCTs are not extracted at
	// all.
	VerifyCTLogging bool

	// AllowSelfSigned accepts a chain terminating at a self-issued
	// certificate that is not in the trust store.
	AllowSelfSigned bool

	// At is the reference instant for temporal checks. Zero means now.
	At time.Time
}

// Result aggregates the outcome of a successful verification.
type Result struct {
	VMC   *VMC
	Chain *TrustChain
	Match *DomainMatch
	CT    *CTResult
}

// Verify validates a certificate bundle against the trust store: chain
// construction, domain authorization, and CT compliance, in that order,
// failing fast on the first error. Optional checks are skipped per
// opts, never defaulted to pass.
func Verify(bundle *Bundle, roots *TrustStore, opts VerifyOptions) (*Result, error) {
	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}

	leaf := bundle.Leaf()
	if !IsVMC(leaf) {
		return nil, ErrNotVMC
	}

	chain, err := BuildChain(bundle, roots, at, opts.AllowSelfSigned)
	if err != nil {
		return nil, err
	}

	res := &Result{Chain: chain}

	if opts.VerifyDomain {
		match, err := MatchDomain(opts.Domain, opts.Selector, leaf.DNSNames)
		if err != nil {
			return nil, err
		}
		res.Match = match
	}

	if opts.VerifyCTLogging {
		scts, err := ParseSCTs(leaf)
		if err != nil {
			return nil, err
		}
		ct := ValidateSCTs(scts, leaf.NotBefore, at)
		res.CT = ct
		if !ct.Compliant {
			return nil, ct.Err
		}
	}

	res.VMC = Extract(leaf)
	return res, nil
}

// Extract pulls the VMC summary out of a leaf certificate.
func Extract(leaf *x509.Certificate) *VMC {
	return &VMC{
		Version:               leaf.Version,
		SerialNumber:          leaf.SerialNumber.String(),
		Issuer:                firstOrganization(leaf.Issuer.Organization),
		OrganizationName:      firstOrganization(leaf.Subject.Organization),
		TrademarkRegistration: subjectAttribute(leaf, oidTrademarkRegistration),
		MarkType:              subjectAttribute(leaf, oidMarkType),
		PilotIdentifier:       PilotIdentifier(leaf),
		NotBefore:             leaf.NotBefore,
		NotAfter:              leaf.NotAfter,
		CertifiedDomains:      append([]string(nil), leaf.DNSNames...),
	}
}

func firstOrganization(orgs []string) string {
	if len(orgs) == 0 {
		return ""
	}
	return orgs[0]
}
