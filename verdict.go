package bimi

import (
	"errors"
	"fmt"

	"github.com/tinylib/msgp/msgp"

	"github.com/synqronlabs/bimi/vmc"
)

// snapshotVersion tags the verdict snapshot encoding.
const snapshotVersion uint8 = 1

// Verdict is the terminal outcome of one Validate invocation. It is
// produced once and never mutated afterward.
type Verdict struct {
	// ID is a unique identifier for this validation, for log
	// correlation.
	ID string

	// Domain is the claiming domain that was evaluated. When the record
	// was found at the organizational domain, Record.Domain carries the
	// publication domain instead.
	Domain string

	// Selector is the selector that was used.
	Selector string

	// Status is the terminal outcome.
	Status Status

	// Record is the BIMI record that was found, if any.
	Record *Record

	// VMC is the validated mark certificate summary, when VMC
	// validation ran and succeeded.
	VMC *vmc.VMC

	// Match is the domain authorization verdict, when domain
	// verification ran.
	Match *vmc.DomainMatch

	// CT is the Certificate Transparency compliance verdict, when CT
	// checking ran.
	CT *vmc.CTResult

	// Reason is a human-readable description of the failure, empty on
	// success.
	Reason string

	// Err is the typed failure, nil on success. Verdicts decoded from a
	// cache snapshot carry a plain error rebuilt from Reason.
	Err error
}

// Temporary reports whether the verdict failed due to a transient
// condition that is plausibly resolved by retrying later.
func (v *Verdict) Temporary() bool {
	return v.Status == StatusTemperror
}

// encodeSnapshot serializes the cacheable parts of a verdict as a
// MessagePack array. Chains are deliberately not included: they are
// rebuilt fresh per validation.
func (v *Verdict) encodeSnapshot() []byte {
	b := msgp.AppendArrayHeader(nil, 27)
	b = msgp.AppendUint8(b, snapshotVersion)
	b = msgp.AppendString(b, v.ID)
	b = msgp.AppendString(b, v.Domain)
	b = msgp.AppendString(b, v.Selector)
	b = msgp.AppendString(b, string(v.Status))
	b = msgp.AppendString(b, v.Reason)

	b = msgp.AppendBool(b, v.Record != nil)
	var location, authority string
	if v.Record != nil {
		location = v.Record.Location
		authority = v.Record.AuthorityEvidenceLocation
	}
	b = msgp.AppendString(b, location)
	b = msgp.AppendString(b, authority)

	b = msgp.AppendBool(b, v.VMC != nil)
	c := v.VMC
	if c == nil {
		c = &vmc.VMC{}
	}
	b = msgp.AppendInt64(b, int64(c.Version))
	b = msgp.AppendString(b, c.SerialNumber)
	b = msgp.AppendString(b, c.Issuer)
	b = msgp.AppendString(b, c.OrganizationName)
	b = msgp.AppendString(b, c.TrademarkRegistration)
	b = msgp.AppendString(b, c.MarkType)
	b = msgp.AppendString(b, c.PilotIdentifier)
	b = msgp.AppendTime(b, c.NotBefore)
	b = msgp.AppendTime(b, c.NotAfter)
	b = msgp.AppendArrayHeader(b, uint32(len(c.CertifiedDomains)))
	for _, d := range c.CertifiedDomains {
		b = msgp.AppendString(b, d)
	}

	b = msgp.AppendBool(b, v.Match != nil)
	var san, kind string
	if v.Match != nil {
		san = v.Match.SAN
		kind = string(v.Match.Kind)
	}
	b = msgp.AppendString(b, san)
	b = msgp.AppendString(b, kind)

	b = msgp.AppendBool(b, v.CT != nil)
	var compliant, future bool
	var valid int64
	if v.CT != nil {
		compliant = v.CT.Compliant
		future = v.CT.FutureTimestamp
		valid = int64(v.CT.Valid)
	}
	b = msgp.AppendBool(b, compliant)
	b = msgp.AppendInt64(b, valid)
	b = msgp.AppendBool(b, future)

	return b
}

// decodeSnapshot rebuilds a verdict from its MessagePack snapshot.
func decodeSnapshot(b []byte) (*Verdict, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, fmt.Errorf("decoding verdict snapshot: %w", err)
	}
	if sz != 27 {
		return nil, fmt.Errorf("decoding verdict snapshot: unexpected field count %d", sz)
	}

	version, b, err := msgp.ReadUint8Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("decoding verdict snapshot: %w", err)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("decoding verdict snapshot: unsupported version %d", version)
	}

	v := &Verdict{}
	readString := func(dst *string) {
		if err != nil {
			return
		}
		*dst, b, err = msgp.ReadStringBytes(b)
	}
	readBool := func(dst *bool) {
		if err != nil {
			return
		}
		*dst, b, err = msgp.ReadBoolBytes(b)
	}
	readInt := func(dst *int64) {
		if err != nil {
			return
		}
		*dst, b, err = msgp.ReadInt64Bytes(b)
	}

	var status string
	readString(&v.ID)
	readString(&v.Domain)
	readString(&v.Selector)
	readString(&status)
	readString(&v.Reason)

	var hasRecord bool
	var location, authority string
	readBool(&hasRecord)
	readString(&location)
	readString(&authority)

	var hasVMC bool
	var vmcVersion int64
	c := &vmc.VMC{}
	readBool(&hasVMC)
	readInt(&vmcVersion)
	readString(&c.SerialNumber)
	readString(&c.Issuer)
	readString(&c.OrganizationName)
	readString(&c.TrademarkRegistration)
	readString(&c.MarkType)
	readString(&c.PilotIdentifier)
	if err == nil {
		c.NotBefore, b, err = msgp.ReadTimeBytes(b)
	}
	if err == nil {
		c.NotAfter, b, err = msgp.ReadTimeBytes(b)
	}
	if err == nil {
		var n uint32
		n, b, err = msgp.ReadArrayHeaderBytes(b)
		for i := uint32(0); err == nil && i < n; i++ {
			var d string
			d, b, err = msgp.ReadStringBytes(b)
			c.CertifiedDomains = append(c.CertifiedDomains, d)
		}
	}

	var hasMatch bool
	var san, kind string
	readBool(&hasMatch)
	readString(&san)
	readString(&kind)

	var hasCT, compliant, future bool
	var valid int64
	readBool(&hasCT)
	readBool(&compliant)
	readInt(&valid)
	readBool(&future)

	if err != nil {
		return nil, fmt.Errorf("decoding verdict snapshot: %w", err)
	}

	v.Status = Status(status)
	if hasRecord {
		v.Record = &Record{
			Version:                   Version,
			Domain:                    v.Domain,
			Selector:                  v.Selector,
			Location:                  location,
			AuthorityEvidenceLocation: authority,
		}
	}
	if hasVMC {
		c.Version = int(vmcVersion)
		v.VMC = c
	}
	if hasMatch {
		v.Match = &vmc.DomainMatch{Domain: v.Domain, SAN: san, Kind: vmc.MatchKind(kind)}
	}
	if hasCT {
		v.CT = &vmc.CTResult{Compliant: compliant, Valid: int(valid), FutureTimestamp: future}
	}
	if v.Status != StatusPass && v.Reason != "" {
		v.Err = errors.New(v.Reason)
	}

	return v, nil
}
