package vmc

import (
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// MatchKind identifies which rule authorized a claiming domain.
type MatchKind string

const (
	// MatchExact means a SAN equals the claiming domain.
	MatchExact MatchKind = "exact"

	// MatchSelector means a SAN equals the selector-prefixed form
	// "<selector>._bimi.<domain>" of the claiming or organizational
	// domain.
	MatchSelector MatchKind = "selector"

	// MatchOrgDomain means a SAN equals the organizational (registrable)
	// domain of the claiming domain. This covers subdomains authorized
	// by a certificate issued to the organization's registrable domain.
	MatchOrgDomain MatchKind = "org-domain"
)

// DomainMatch is the verdict of domain authorization, produced once per
// validation.
type DomainMatch struct {
	// Domain is the normalized claiming domain.
	Domain string

	// SAN is the certificate name that matched.
	SAN string

	// Kind identifies the matching rule.
	Kind MatchKind
}

// MatchDomain determines whether the certificate's Subject Alternative
// Names authorize the claiming domain.
//
// Matching precedence, first match wins:
//  1. a SAN exactly equals the domain
//  2. a SAN equals "<selector>._bimi.<domain>" or
//     "<selector>._bimi.<orgdomain>"
//  3. a SAN equals the organizational domain of the claiming domain
//
// Matching is case-insensitive with exact string semantics; wildcard
// SAN entries are not treated specially. No match returns
// ErrDomainMismatch enumerating the names that were compared.
func MatchDomain(domain, selector string, sans []string) (*DomainMatch, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, fmt.Errorf("%w: empty claiming domain", ErrDomainMismatch)
	}

	selector = strings.ToLower(strings.TrimSpace(selector))
	if selector == "" {
		selector = "default"
	}

	normalized := make([]string, len(sans))
	for i, san := range sans {
		normalized[i] = normalizeDomain(san)
	}

	orgDomain := organizationalDomain(domain)

	for _, san := range normalized {
		if san == domain {
			return &DomainMatch{Domain: domain, SAN: san, Kind: MatchExact}, nil
		}
	}

	selectorNames := []string{selector + "._bimi." + domain}
	if orgDomain != "" && orgDomain != domain {
		selectorNames = append(selectorNames, selector+"._bimi."+orgDomain)
	}
	for _, san := range normalized {
		for _, name := range selectorNames {
			if san == name {
				return &DomainMatch{Domain: domain, SAN: san, Kind: MatchSelector}, nil
			}
		}
	}

	if orgDomain != "" && orgDomain != domain {
		for _, san := range normalized {
			if san == orgDomain {
				return &DomainMatch{Domain: domain, SAN: san, Kind: MatchOrgDomain}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: the VMC is not valid for %s (valid hostnames include: %s)",
		ErrDomainMismatch, domain, strings.Join(sans, ", "))
}

// organizationalDomain returns the registrable domain (eTLD+1), or the
// input when the public suffix boundary cannot be determined.
func organizationalDomain(domain string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return domain
	}
	return etld1
}

func normalizeDomain(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
}
