package bimi

import (
	"fmt"
	"net/url"
	"strings"
)

// parseErr is an internal parsing error.
type parseErr string

func (e parseErr) Error() string {
	return string(e)
}

// ParseRecord parses a BIMI assessor TXT record string.
//
// Returns the parsed record, whether the string looks like a BIMI record
// (starts with "v=BIMI1"), and any parsing error.
//
// The v= tag is required and must be first. The only other recognized
// tags are l= (indicator location) and a= (authority evidence location);
// unknown tags are rejected. Non-empty tag values must be https URIs.
// An l= tag is required; a record with both l= and a= present but empty
// is a valid record signalling explicit decline (see Record.Declined).
// An empty l= without an a= tag is an error, not an opt-out.
func ParseRecord(s string) (record *Record, isBIMI bool, err error) {
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		if perr, ok := x.(parseErr); ok {
			err = perr
			return
		}
		panic(x)
	}()

	r := Record{Selector: DefaultSelector}
	p := newParser(s)

	// v= is required and must be the first tag.
	p.wsp()
	p.xtake("v")
	p.wsp()
	p.xtake("=")
	p.wsp()
	r.Version = p.xtakecase(Version)
	p.wsp()
	if !p.take(";") && !p.empty() {
		p.xerrorf("expected ;")
	}
	isBIMI = true

	seen := map[string]bool{}

	for {
		p.wsp()
		if p.empty() {
			break
		}

		tagName := p.xword()
		tag := strings.ToLower(tagName)

		if tag == "v" {
			p.xerrorf("duplicate v= tag")
		}
		if seen[tag] {
			p.xerrorf("duplicate tag %q", tagName)
		}
		seen[tag] = true

		p.wsp()
		p.xtake("=")
		p.wsp()

		switch tag {
		case "l":
			r.Location = p.xvalue()

		case "a":
			r.AuthorityEvidenceLocation = p.xvalue()

		default:
			// The assessor record defines no other tags. Anything else
			// makes the record unusable.
			p.xerrorf("unknown tag %q", tagName)
		}

		p.wsp()
		if !p.take(";") && !p.empty() {
			p.xerrorf("expected ;")
		}
	}

	if !seen["l"] {
		p.xerrorf("required tag l= not found")
	}
	if r.Location == "" && !seen["a"] {
		// An explicit opt-out needs both tags present and empty; an
		// empty l= on its own is malformed.
		p.xerrorf("empty l= without an a= tag")
	}

	for _, u := range []string{r.Location, r.AuthorityEvidenceLocation} {
		if u == "" {
			continue
		}
		loc, err := url.Parse(u)
		if err != nil {
			p.xerrorf("parsing uri %q: %s", u, err)
		}
		if loc.Scheme != "https" {
			p.xerrorf("uri %q is not https", u)
		}
	}

	return &r, true, nil
}

// parser holds state for parsing BIMI records.
type parser struct {
	s     string // Original string
	lower string // Lower-cased string for case-insensitive matching
	o     int    // Current offset
}

// toLower lower-cases ASCII A-Z without affecting other bytes.
func toLower(s string) string {
	r := []byte(s)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			r[i] = c + 0x20
		}
	}
	return string(r)
}

func newParser(s string) *parser {
	return &parser{
		s:     s,
		lower: toLower(s),
	}
}

func (p *parser) xerrorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.o < len(p.s) {
		msg += fmt.Sprintf(" (remain %q)", p.s[p.o:])
	}
	panic(parseErr(msg))
}

func (p *parser) empty() bool {
	return p.o >= len(p.s)
}

// prefix returns true if the remaining string starts with s (case-insensitive).
func (p *parser) prefix(s string) bool {
	return strings.HasPrefix(p.lower[p.o:], s)
}

func (p *parser) take(s string) bool {
	if p.prefix(s) {
		p.o += len(s)
		return true
	}
	return false
}

func (p *parser) xtaken(n int) string {
	r := p.lower[p.o : p.o+n]
	p.o += n
	return r
}

func (p *parser) xtake(s string) string {
	if !p.prefix(s) {
		p.xerrorf("expected %q", s)
	}
	return p.xtaken(len(s))
}

// xtakecase takes an exact-case string.
func (p *parser) xtakecase(s string) string {
	if !strings.HasPrefix(p.s[p.o:], s) {
		p.xerrorf("expected %q", s)
	}
	r := p.s[p.o : p.o+len(s)]
	p.o += len(s)
	return r
}

// wsp consumes optional whitespace.
func (p *parser) wsp() {
	for !p.empty() && (p.s[p.o] == ' ' || p.s[p.o] == '\t') {
		p.o++
	}
}

func (p *parser) xtakefn1case(fn func(byte, int) bool) string {
	for i, b := range []byte(p.lower[p.o:]) {
		if !fn(b, i) {
			if i == 0 {
				p.xerrorf("expected at least one char")
			}
			r := p.s[p.o : p.o+i]
			p.o += i
			return r
		}
	}
	if p.empty() {
		p.xerrorf("expected at least 1 char")
	}
	r := p.s[p.o:]
	p.o += len(r)
	return r
}

// xword parses a tag name (alphanumeric).
func (p *parser) xword() string {
	return p.xtakefn1case(func(c byte, _ int) bool {
		return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
	})
}

// xvalue parses a tag value: everything up to the next semicolon, with
// surrounding whitespace trimmed. An empty value is allowed; empty l=
// and a= values signal decline.
func (p *parser) xvalue() string {
	start := p.o
	for !p.empty() && p.s[p.o] != ';' {
		p.o++
	}
	return strings.TrimSpace(p.s[start:p.o])
}
