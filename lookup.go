package bimi

import (
	"context"
	"fmt"
	"strings"

	bimidns "github.com/synqronlabs/bimi/dns"
)

// Lookup looks up the BIMI assessor record for the given domain and
// selector.
//
// It first queries "<selector>._bimi.<domain>". If no record is found, it
// falls back to the organizational domain (determined using the Public
// Suffix List) and queries "<selector>._bimi.<orgdomain>". An empty
// selector means DefaultSelector.
//
// Returns:
//   - status: The lookup status
//   - record: The parsed BIMI record (nil if not found or invalid)
//   - txt: The raw TXT record text
//   - err: Any error that occurred
func Lookup(ctx context.Context, resolver bimidns.Resolver, domain, selector string) (status Status, record *Record, txt string, err error) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return StatusFail, nil, "", fmt.Errorf("%w: empty domain", ErrSyntax)
	}

	selector = strings.TrimSpace(selector)
	if selector == "" {
		selector = DefaultSelector
	}

	status, record, txt, err = lookupRecord(ctx, resolver, domain, selector)
	if record != nil || status == StatusTemperror {
		return status, record, txt, err
	}

	// If no record at the exact domain, try the organizational domain.
	orgDomain := OrganizationalDomain(domain)
	if orgDomain == domain {
		// Already at the organizational domain, no fallback.
		return status, record, txt, err
	}

	orgStatus, orgRecord, orgTxt, orgErr := lookupRecord(ctx, resolver, orgDomain, selector)
	if orgRecord == nil && orgStatus != StatusTemperror {
		// The fallback found nothing either; report the original outcome.
		return status, record, txt, err
	}
	return orgStatus, orgRecord, orgTxt, orgErr
}

// lookupRecord performs the DNS lookup for a BIMI record at one name.
func lookupRecord(ctx context.Context, resolver bimidns.Resolver, domain, selector string) (Status, *Record, string, error) {
	name := selector + "._bimi." + domain
	if !strings.HasSuffix(name, ".") {
		name += "."
	}

	result, err := resolver.LookupTXT(ctx, name)
	if err != nil {
		if bimidns.IsNotFound(err) {
			return StatusNone, nil, "", ErrNoPolicy
		}
		return StatusTemperror, nil, "", fmt.Errorf("%w: %v", ErrDNS, err)
	}

	var record *Record
	var text string
	var rerr error = ErrNoPolicy
	status := StatusNone

	for _, txt := range result.Records {
		r, isBIMI, parseErr := ParseRecord(txt)
		if !isBIMI {
			// Not a BIMI record, skip
			continue
		}
		if parseErr != nil {
			return StatusFail, nil, txt, fmt.Errorf("%w: %v", ErrSyntax, parseErr)
		}
		if record != nil {
			// Multiple BIMI records make the record set unusable.
			return StatusNone, nil, "", ErrMultipleRecords
		}
		text = txt
		record = r
		rerr = nil
	}

	if record != nil {
		record.Domain = domain
		record.Selector = selector
		if record.Declined() {
			return StatusDeclined, record, text, ErrDeclined
		}
		status = StatusPass
	}

	return status, record, text, rerr
}
