// Package bimi implements Brand Indicators for Message Identification
// (BIMI) assessor-side validation per draft-blank-ietf-bimi and
// draft-fetch-validation-vmc-wchuang.
//
// BIMI lets a domain publish a brand indicator (an SVG logo) in DNS
// together with a Verified Mark Certificate (VMC) proving that a mark
// verifying authority has authorized the logo for that domain. Mail
// receivers evaluate the policy before showing the logo next to a
// message that passed DMARC.
//
// This package provides:
//   - BIMI record lookup with organizational-domain fallback
//   - Full record parsing (v=, l=, a= tags) with explicit decline detection
//   - VMC trust-chain construction and validation against a root store
//   - SAN-based domain authorization with selector and organizational
//     domain matching
//   - Certificate Transparency compliance checking of embedded SCTs
//   - Indicator hash verification against the certificate logotype
//     extension
//
// # Basic Usage
//
// Looking up a BIMI record:
//
//	resolver := dns.NewResolver(dns.ResolverConfig{
//	    DNSSEC: true,
//	})
//
//	status, record, _, err := bimi.Lookup(ctx, resolver, "example.com", "default")
//	if err != nil {
//	    // Handle error
//	}
//
// Validating a domain end to end:
//
//	roots, err := vmc.LoadTrustStoreFile("roots.pem")
//	if err != nil {
//	    // Handle error
//	}
//
//	v := &bimi.Validator{
//	    Resolver: resolver,
//	    Fetcher:  fetch.NewHTTPFetcher(),
//	    Roots:    roots,
//	    Options: bimi.Options{
//	        VerifyDomain:    true,
//	        VerifyCTLogging: true,
//	    },
//	}
//
//	verdict := v.Validate(ctx, "example.com")
//	if verdict.Status == bimi.StatusPass {
//	    // Display the indicator from verdict.Record.Location
//	}
//
// # Lookup Fallback
//
// Records are published at "<selector>._bimi.<domain>". When the exact
// domain publishes no record, the organizational domain (determined via
// the Public Suffix List) is tried, so "sub.example.com" falls back to
// the record of "example.com". The default selector is "default".
//
// # References
//
//   - draft-blank-ietf-bimi: Brand Indicators for Message Identification
//   - draft-fetch-validation-vmc-wchuang: Fetch and Validation of VMCs
//   - RFC 6962: Certificate Transparency
//   - RFC 3709: Internet X.509 Public Key Infrastructure: Logotypes
package bimi
