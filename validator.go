package bimi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/synqronlabs/bimi/cache"
	bimidns "github.com/synqronlabs/bimi/dns"
	"github.com/synqronlabs/bimi/fetch"
	"github.com/synqronlabs/bimi/vmc"
)

// Validator evaluates BIMI for a domain: record lookup, VMC trust
// validation, and indicator evidence, per its Options.
//
// A Validator is safe for concurrent use; each Validate call owns its
// own certificates, chain, and verdict.
type Validator struct {
	// Resolver performs the DNS TXT lookups. Required.
	Resolver bimidns.Resolver

	// Fetcher retrieves the VMC bundle and, when indicator hash
	// verification is enabled, the indicator. Required when the record
	// carries evidence locations.
	Fetcher fetch.Fetcher

	// Roots is the trusted root store for VMC chain construction.
	Roots *vmc.TrustStore

	// Cache optionally memoizes completed verdicts by a fingerprint of
	// (domain, selector, bundle bytes, options). Nil disables caching.
	Cache *cache.Cache

	// Options selects the checks to perform.
	Options Options
}

// Validate evaluates BIMI for the domain and returns exactly one
// verdict. The pipeline is linear with early exit: record lookup,
// bundle fetch, chain construction, domain authorization, CT
// compliance, indicator evidence. Failure at any step short-circuits
// with the typed reason from that step; optional steps are skipped per
// Options rather than defaulted to pass. No step is retried.
func (v *Validator) Validate(ctx context.Context, domain string) *Verdict {
	selector := strings.TrimSpace(v.Options.Selector)
	if selector == "" {
		selector = DefaultSelector
	}

	verdict := &Verdict{
		ID:       ulid.Make().String(),
		Domain:   strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), "."),
		Selector: selector,
	}

	status, record, _, err := Lookup(ctx, v.Resolver, domain, selector)
	verdict.Record = record
	if err != nil {
		return v.fail(verdict, status, err)
	}
	// Record.Domain keeps the publication domain (possibly the
	// organizational fallback); the verdict and all authorization checks
	// stay on the claiming domain.
	verdict.Selector = record.Selector

	if !record.HasAuthorityEvidence() {
		// Record-only policy: nothing further to validate without a VMC.
		verdict.Status = StatusPass
		return verdict
	}

	vmcURL := strings.TrimSpace(record.AuthorityEvidenceLocation)
	if err := requireHTTPS(vmcURL); err != nil {
		return v.fail(verdict, StatusFail, err)
	}

	bundleData, err := v.Fetcher.Fetch(ctx, vmcURL)
	if err != nil {
		status := StatusFail
		if fetch.IsTemporary(err) {
			status = StatusTemperror
		}
		return v.fail(verdict, status, err)
	}

	if v.Cache == nil {
		return v.verify(ctx, verdict, record, bundleData)
	}

	key := fingerprint(verdict.Domain, verdict.Selector, bundleData, v.Options)
	snapshot, err := v.Cache.GetOrCompute(key, func() ([]byte, error) {
		return v.verify(ctx, verdict, record, bundleData).encodeSnapshot(), nil
	})
	if err != nil {
		return v.fail(verdict, StatusTemperror, err)
	}
	cached, err := decodeSnapshot(snapshot)
	if err != nil {
		// A corrupt snapshot must not poison the validation; compute
		// fresh.
		return v.verify(ctx, verdict, record, bundleData)
	}
	return cached
}

// verify runs VMC validation and indicator evidence checking for an
// already-fetched bundle.
func (v *Validator) verify(ctx context.Context, verdict *Verdict, record *Record, bundleData []byte) *Verdict {
	bundle, err := vmc.ParseBundle(bundleData)
	if err != nil {
		return v.fail(verdict, StatusFail, err)
	}

	res, err := vmc.Verify(bundle, v.Roots, vmc.VerifyOptions{
		Domain:          verdict.Domain,
		Selector:        verdict.Selector,
		VerifyDomain:    v.Options.VerifyDomain,
		VerifyCTLogging: v.Options.VerifyCTLogging,
		AllowSelfSigned: v.Options.AllowSelfSigned,
		At:              v.Options.ReferenceTime,
	})
	if err != nil {
		return v.fail(verdict, StatusFail, err)
	}

	verdict.VMC = res.VMC
	verdict.Match = res.Match
	verdict.CT = res.CT

	if v.Options.VerifyIndicatorHash && record.HasIndicator() {
		if err := v.verifyIndicator(ctx, record, bundle); err != nil {
			status := StatusFail
			if fetch.IsTemporary(err) {
				status = StatusTemperror
			}
			return v.fail(verdict, status, err)
		}
	}

	verdict.Status = StatusPass
	if res.CT != nil && res.CT.FutureTimestamp {
		verdict.Reason = "SCT with future timestamp present"
	}
	return verdict
}

// verifyIndicator fetches the published indicator and requires it to
// match a digest embedded in the VMC logotype extension.
func (v *Validator) verifyIndicator(ctx context.Context, record *Record, bundle *vmc.Bundle) error {
	indicatorURL := strings.TrimSpace(record.Location)
	if err := requireHTTPS(indicatorURL); err != nil {
		return err
	}

	hashes, err := vmc.ExtractLogotypeHashes(bundle.Leaf())
	if err != nil {
		return err
	}

	indicator, err := v.Fetcher.Fetch(ctx, indicatorURL)
	if err != nil {
		return err
	}

	return vmc.VerifyIndicatorHash(hashes, indicator)
}

// fail finalizes a verdict with a typed failure.
func (v *Validator) fail(verdict *Verdict, status Status, err error) *Verdict {
	verdict.Status = status
	verdict.Err = err
	if err != nil {
		verdict.Reason = err.Error()
	}
	return verdict
}

// requireHTTPS rejects evidence URIs not served over HTTPS.
func requireHTTPS(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: invalid URI %q: %v", ErrInsecureURI, raw, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrInsecureURI, raw)
	}
	return nil
}

// fingerprint derives the stable cache key for a completed validation:
// SHA-256 over the claiming domain, selector, bundle bytes, and the
// options that influence the outcome.
func fingerprint(domain, selector string, bundle []byte, opts Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%t%t%t%t\x00%d\x00",
		domain, selector,
		opts.VerifyDomain, opts.VerifyCTLogging, opts.VerifyIndicatorHash, opts.AllowSelfSigned,
		opts.ReferenceTime.UnixNano())
	h.Write(bundle)
	return hex.EncodeToString(h.Sum(nil))
}
