package bimi

import (
	"context"
	"errors"
	"testing"

	bimidns "github.com/synqronlabs/bimi/dns"
)

func TestLookup(t *testing.T) {
	resolver := bimidns.MockResolver{
		TXT: map[string][]string{
			"default._bimi.brandx.example.":   {"v=BIMI1; l=https://brandx.example/logo.svg; a=https://brandx.example/vmc.pem"},
			"v1._bimi.brandx.example.":        {"v=BIMI1; l=https://brandx.example/v1.svg"},
			"default._bimi.pinterest.com.":    {"v=BIMI1; l=https://pinterest.com/logo.svg"},
			"default._bimi.optout.example.":   {"v=BIMI1; l=; a=;"},
			"default._bimi.broken.example.":   {"v=BIMI1; l=https://broken.example/logo.svg; unknown=1"},
			"default._bimi.multiple.example.": {"v=BIMI1; l=https://a.example/1.svg", "v=BIMI1; l=https://a.example/2.svg"},
			"default._bimi.mixed.example.": {
				"some unrelated verification token",
				"v=BIMI1; l=https://mixed.example/logo.svg",
			},
		},
		Fail: []string{"default._bimi.flaky.example."},
	}
	ctx := context.Background()

	t.Run("record at the exact domain", func(t *testing.T) {
		status, record, txt, err := Lookup(ctx, resolver, "brandx.example", "")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if status != StatusPass {
			t.Errorf("status = %q, want pass", status)
		}
		if record == nil || record.Location != "https://brandx.example/logo.svg" {
			t.Errorf("record = %#v, want the published record", record)
		}
		if record.Domain != "brandx.example" || record.Selector != "default" {
			t.Errorf("record provenance = %q/%q, want brandx.example/default", record.Domain, record.Selector)
		}
		if txt == "" {
			t.Errorf("raw TXT is empty")
		}
	})

	t.Run("explicit selector", func(t *testing.T) {
		_, record, _, err := Lookup(ctx, resolver, "brandx.example", "v1")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if record.Location != "https://brandx.example/v1.svg" {
			t.Errorf("record = %#v, want the v1 selector record", record)
		}
	})

	t.Run("organizational domain fallback", func(t *testing.T) {
		status, record, _, err := Lookup(ctx, resolver, "account.pinterest.com", "default")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if status != StatusPass {
			t.Errorf("status = %q, want pass", status)
		}
		if record == nil || record.Domain != "pinterest.com" {
			t.Errorf("record = %#v, want the record found at the organizational domain", record)
		}
	})

	t.Run("no record anywhere", func(t *testing.T) {
		status, record, _, err := Lookup(ctx, resolver, "nothing.example", "default")
		if !errors.Is(err, ErrNoPolicy) {
			t.Fatalf("Lookup() error = %v, want ErrNoPolicy", err)
		}
		if status != StatusNone {
			t.Errorf("status = %q, want none", status)
		}
		if record != nil {
			t.Errorf("record = %#v, want nil", record)
		}
	})

	t.Run("no record at subdomain or organizational domain", func(t *testing.T) {
		status, _, _, err := Lookup(ctx, resolver, "mail.nothing.example", "default")
		if !errors.Is(err, ErrNoPolicy) {
			t.Fatalf("Lookup() error = %v, want ErrNoPolicy", err)
		}
		if status != StatusNone {
			t.Errorf("status = %q, want none", status)
		}
	})

	t.Run("declined", func(t *testing.T) {
		status, record, _, err := Lookup(ctx, resolver, "optout.example", "default")
		if !errors.Is(err, ErrDeclined) {
			t.Fatalf("Lookup() error = %v, want ErrDeclined", err)
		}
		if status != StatusDeclined {
			t.Errorf("status = %q, want declined", status)
		}
		if record == nil || !record.Declined() {
			t.Errorf("record = %#v, want the declined record", record)
		}
	})

	t.Run("malformed record", func(t *testing.T) {
		status, _, _, err := Lookup(ctx, resolver, "broken.example", "default")
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("Lookup() error = %v, want ErrSyntax", err)
		}
		if status != StatusFail {
			t.Errorf("status = %q, want fail", status)
		}
	})

	t.Run("multiple records", func(t *testing.T) {
		_, record, _, err := Lookup(ctx, resolver, "multiple.example", "default")
		if !errors.Is(err, ErrMultipleRecords) {
			t.Fatalf("Lookup() error = %v, want ErrMultipleRecords", err)
		}
		if record != nil {
			t.Errorf("record = %#v, want nil", record)
		}
	})

	t.Run("non-BIMI TXT records are skipped", func(t *testing.T) {
		_, record, _, err := Lookup(ctx, resolver, "mixed.example", "default")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if record == nil || record.Location != "https://mixed.example/logo.svg" {
			t.Errorf("record = %#v, want the BIMI record among unrelated TXT", record)
		}
	})

	t.Run("temporary DNS failure", func(t *testing.T) {
		status, _, _, err := Lookup(ctx, resolver, "flaky.example", "default")
		if !errors.Is(err, ErrDNS) {
			t.Fatalf("Lookup() error = %v, want ErrDNS", err)
		}
		if status != StatusTemperror {
			t.Errorf("status = %q, want temperror", status)
		}
	})

	t.Run("empty domain", func(t *testing.T) {
		status, _, _, err := Lookup(ctx, resolver, "", "default")
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("Lookup() error = %v, want ErrSyntax", err)
		}
		if status != StatusFail {
			t.Errorf("status = %q, want fail", status)
		}
	})

	t.Run("domain normalization", func(t *testing.T) {
		_, record, _, err := Lookup(ctx, resolver, " BrandX.Example. ", "default")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if record == nil || record.Domain != "brandx.example" {
			t.Errorf("record = %#v, want the normalized domain", record)
		}
	})
}

func TestLookupNoFallbackPastOrgDomain(t *testing.T) {
	// A record at the exact subdomain must win over the organizational
	// domain record.
	resolver := bimidns.MockResolver{
		TXT: map[string][]string{
			"default._bimi.mail.brandx.example.": {"v=BIMI1; l=https://brandx.example/mail.svg"},
			"default._bimi.brandx.example.":      {"v=BIMI1; l=https://brandx.example/org.svg"},
		},
	}

	_, record, _, err := Lookup(context.Background(), resolver, "mail.brandx.example", "default")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if record.Location != "https://brandx.example/mail.svg" {
		t.Errorf("record = %#v, want the subdomain record", record)
	}
	if record.Domain != "mail.brandx.example" {
		t.Errorf("record domain = %q, want mail.brandx.example", record.Domain)
	}
}

func TestOrganizationalDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"pinterest.com", "pinterest.com"},
		{"account.pinterest.com", "pinterest.com"},
		{"a.b.c.pinterest.com", "pinterest.com"},
		{"brandx.co.uk", "brandx.co.uk"},
		{"mail.brandx.co.uk", "brandx.co.uk"},
	}
	for _, tt := range tests {
		if got := OrganizationalDomain(tt.domain); got != tt.want {
			t.Errorf("OrganizationalDomain(%q) = %q, want %q", tt.domain, got, tt.want)
		}
	}

	if !IsOrganizationalDomain("pinterest.com") {
		t.Errorf("IsOrganizationalDomain(pinterest.com) = false")
	}
	if IsOrganizationalDomain("account.pinterest.com") {
		t.Errorf("IsOrganizationalDomain(account.pinterest.com) = true")
	}
}
