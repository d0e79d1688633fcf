package bimi

import (
	"errors"

	bimidns "github.com/synqronlabs/bimi/dns"
	"github.com/synqronlabs/bimi/fetch"
)

// BIMI lookup and validation errors.
var (
	// ErrNoPolicy indicates no BIMI DNS record was found for the domain
	// or its organizational domain.
	ErrNoPolicy = errors.New("bimi: no BIMI DNS record found")

	// ErrMultipleRecords indicates multiple BIMI DNS records were found at
	// the same name. The record set is unusable and is treated as if the
	// domain does not publish BIMI.
	ErrMultipleRecords = errors.New("bimi: multiple BIMI DNS records found")

	// ErrDeclined indicates the domain publishes a BIMI record that
	// explicitly opts out of BIMI ("v=BIMI1; l=; a=;").
	ErrDeclined = errors.New("bimi: domain declines BIMI participation")

	// ErrSyntax indicates the BIMI record has invalid syntax.
	ErrSyntax = errors.New("bimi: malformed BIMI DNS record")

	// ErrDNS indicates a DNS lookup error occurred.
	ErrDNS = errors.New("bimi: DNS lookup error")

	// ErrNoAuthority indicates the record carries no authority evidence
	// (a= tag), so there is no VMC to validate.
	ErrNoAuthority = errors.New("bimi: record has no authority evidence location")

	// ErrInsecureURI indicates a VMC or indicator URI is not served over
	// HTTPS.
	ErrInsecureURI = errors.New("bimi: URI is not served by HTTPS")
)

// Status is the terminal outcome of a BIMI evaluation, for use in an
// Authentication-Results header per RFC 8601.
type Status string

const (
	// StatusNone indicates the domain does not publish a BIMI record.
	StatusNone Status = "none"

	// StatusPass indicates a BIMI record was found and all requested
	// evidence checks succeeded.
	StatusPass Status = "pass"

	// StatusFail indicates a permanent validation failure: a malformed
	// record, an untrusted or expired certificate chain, a domain
	// mismatch, or missing CT evidence.
	StatusFail Status = "fail"

	// StatusDeclined indicates the domain explicitly opted out of BIMI.
	StatusDeclined Status = "declined"

	// StatusTemperror indicates a temporary error, typically a DNS or
	// HTTP transport failure. A later attempt may result in a conclusion.
	StatusTemperror Status = "temperror"
)

// IsTemporary reports whether err is a transient condition that is
// plausibly resolved by retrying later, as opposed to a permanent
// validation failure.
func IsTemporary(err error) bool {
	return bimidns.IsTemporary(err) || fetch.IsTemporary(err)
}
