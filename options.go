package bimi

import "time"

// Options controls which evidence checks a Validator performs.
type Options struct {
	// Selector is the BIMI selector to look up. Empty means
	// DefaultSelector.
	Selector string

	// VerifyDomain enables SAN-based domain authorization of the VMC.
	VerifyDomain bool

	// VerifyCTLogging enables Certificate Transparency compliance
	// checking of the VMC's embedded SCTs. When false, no SCT
	// extraction is attempted.
	VerifyCTLogging bool

	// VerifyIndicatorHash fetches the published indicator and requires
	// it to match a digest embedded in the VMC logotype extension.
	VerifyIndicatorHash bool

	// AllowSelfSigned accepts VMC chains terminating at a self-issued
	// certificate that is not in the trust store. For testing against
	// in-house authorities only.
	AllowSelfSigned bool

	// ReferenceTime is the instant used for all temporal checks
	// (certificate validity windows, SCT timestamps). Zero means now.
	// Injectable so time-dependent outcomes are reproducible in tests.
	ReferenceTime time.Time
}
