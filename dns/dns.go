// Package dns provides DNS resolution for BIMI record lookups.
//
// The Resolver interface abstracts TXT lookups so callers can choose
// between a DNSSEC-aware resolver built on github.com/miekg/dns, the
// standard library resolver, or a mock for tests.
package dns

import (
	"context"
	"errors"
)

// DNS lookup errors.
var (
	// ErrDNSNotFound indicates the name does not exist (NXDOMAIN) or has
	// no records of the requested type.
	ErrDNSNotFound = errors.New("dns: name not found")

	// ErrDNSServFail indicates the server failed to complete the request.
	ErrDNSServFail = errors.New("dns: server failure")

	// ErrDNSTimeout indicates the query timed out.
	ErrDNSTimeout = errors.New("dns: query timed out")

	// ErrDNSRefused indicates the server refused the query.
	ErrDNSRefused = errors.New("dns: query refused")

	// ErrDNSBogus indicates a DNSSEC validation failure at the upstream
	// resolver.
	ErrDNSBogus = errors.New("dns: dnssec validation failed")
)

// Result holds the records returned by a lookup together with the
// DNSSEC status of the response.
type Result struct {
	// Records are the TXT strings in answer order. Multi-part TXT
	// records are joined before being added.
	Records []string

	// Authentic indicates the response was DNSSEC-validated by the
	// upstream resolver. Always false for resolvers without DNSSEC
	// support.
	Authentic bool
}

// Resolver looks up DNS TXT records. Implementations must be safe for
// concurrent use.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) (Result, error)
}

// IsNotFound reports whether err indicates the name or record does not
// exist, as opposed to a lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDNSNotFound)
}

// IsTimeout reports whether err indicates a query timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrDNSTimeout)
}

// IsServFail reports whether err indicates a server failure.
func IsServFail(err error) bool {
	return errors.Is(err, ErrDNSServFail)
}

// IsTemporary reports whether err is a temporary condition that may
// resolve on retry. Not-found is not temporary.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrDNSServFail) ||
		errors.Is(err, ErrDNSTimeout) ||
		errors.Is(err, ErrDNSRefused) ||
		errors.Is(err, ErrDNSBogus)
}
