package bimi

import "strings"

// Version is the only assessor record version currently defined.
const Version = "BIMI1"

// DefaultSelector is used when the caller configures no selector.
const DefaultSelector = "default"

// Record is a parsed BIMI assessor DNS TXT record.
//
// Example record:
//
//	v=BIMI1; l=https://example.com/logo.svg; a=https://example.com/vmc.pem
type Record struct {
	// Version must be "BIMI1".
	Version string

	// Domain is the domain where the record was found. This may be the
	// organizational domain rather than the domain being evaluated.
	Domain string

	// Selector is the selector the record was found under.
	Selector string

	// Location is the indicator (SVG logo) URL from the l= tag.
	// May be empty.
	Location string

	// AuthorityEvidenceLocation is the VMC URL from the a= tag.
	// May be empty.
	AuthorityEvidenceLocation string
}

// HasIndicator reports whether the record carries an indicator location.
func (r *Record) HasIndicator() bool {
	return strings.TrimSpace(r.Location) != ""
}

// HasAuthorityEvidence reports whether the record carries authority
// evidence (a VMC URL).
func (r *Record) HasAuthorityEvidence() bool {
	return strings.TrimSpace(r.AuthorityEvidenceLocation) != ""
}

// Declined reports whether the record is an explicit opt-out: both the
// l= and a= tags present but empty. ParseRecord rejects an empty l=
// when the a= tag is absent, so parsed records with both locations
// empty are always genuine opt-outs.
func (r *Record) Declined() bool {
	return !r.HasIndicator() && !r.HasAuthorityEvidence()
}

// String returns the BIMI record formatted for DNS TXT.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString("v=")
	b.WriteString(r.Version)
	b.WriteString("; l=")
	b.WriteString(r.Location)
	if r.AuthorityEvidenceLocation != "" || r.Declined() {
		b.WriteString("; a=")
		b.WriteString(r.AuthorityEvidenceLocation)
	}
	return b.String()
}
