package bimi

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// OrganizationalDomain returns the organizational domain for the given
// domain.
//
// The organizational domain is the domain directly under the public
// suffix. For example:
//   - example.com -> example.com
//   - sub.example.com -> example.com
//   - sub.example.co.uk -> example.co.uk
//
// BIMI uses it both for the record lookup fallback and for matching a
// subdomain against a VMC issued to the registrable domain.
func OrganizationalDomain(domain string) string {
	// Normalize: remove trailing dot and convert to lowercase
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")

	if domain == "" {
		return ""
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		// If we can't determine the eTLD+1, return the domain as-is.
		// This handles cases like "localhost" or invalid domains.
		return domain
	}

	return etld1
}

// IsOrganizationalDomain returns true if the domain is an organizational
// domain (i.e., directly below the public suffix).
func IsOrganizationalDomain(domain string) bool {
	d := strings.TrimSuffix(strings.ToLower(domain), ".")
	return OrganizationalDomain(d) == d
}
