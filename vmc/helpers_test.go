package vmc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

// refTime is the fixed reference instant used across these tests so
// temporal outcomes are reproducible.
var refTime = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

type testCA struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key
}

var serialCounter int64 = 1000

func nextSerial() *big.Int {
	serialCounter++
	return big.NewInt(serialCounter)
}

func signCert(t *testing.T, template, parent *x509.Certificate, pub *ecdsa.PublicKey, parentKey *ecdsa.PrivateKey) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, parentKey)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parsing created certificate: %v", err)
	}
	return cert
}

func makeRoot(t *testing.T, name string) testCA {
	t.Helper()
	key := mustKey(t)
	template := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: name, Organization: []string{name + " LLC"}},
		NotBefore:             refTime.Add(-10 * 365 * 24 * time.Hour),
		NotAfter:              refTime.Add(10 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	cert := signCert(t, template, template, &key.PublicKey, key)
	return testCA{cert: cert, key: key}
}

func makeIntermediate(t *testing.T, parent testCA, name string) testCA {
	return makeIntermediateWindow(t, parent, name,
		refTime.Add(-5*365*24*time.Hour), refTime.Add(5*365*24*time.Hour))
}

func makeIntermediateWindow(t *testing.T, parent testCA, name string, notBefore, notAfter time.Time) testCA {
	t.Helper()
	key := mustKey(t)
	template := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: name, Organization: []string{name + " LLC"}},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	cert := signCert(t, template, parent.cert, &key.PublicKey, parent.key)
	return testCA{cert: cert, key: key}
}

// leafOpts configures the generated end-entity certificate.
type leafOpts struct {
	sans      []string
	notBefore time.Time
	notAfter  time.Time
	noVMCEKU  bool
	scts      []SCT
	emptySCTs bool
	pilot     string
	extra     []pkix.Extension
	subject   pkix.Name
}

func makeLeaf(t *testing.T, parent testCA, opts leafOpts) *x509.Certificate {
	t.Helper()

	if opts.notBefore.IsZero() {
		opts.notBefore = refTime.Add(-30 * 24 * time.Hour)
	}
	if opts.notAfter.IsZero() {
		opts.notAfter = refTime.Add(365 * 24 * time.Hour)
	}
	subject := opts.subject
	if subject.CommonName == "" {
		subject = pkix.Name{CommonName: "mark", Organization: []string{"Mark Owner Inc"}}
	}

	template := &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject:      subject,
		NotBefore:    opts.notBefore,
		NotAfter:     opts.notAfter,
		DNSNames:     opts.sans,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	if !opts.noVMCEKU {
		template.UnknownExtKeyUsage = []asn1.ObjectIdentifier{oidExtKeyUsageBIMI}
	}
	if len(opts.scts) > 0 || opts.emptySCTs {
		value, err := asn1.Marshal(encodeSCTList(opts.scts))
		if err != nil {
			t.Fatalf("marshaling SCT list: %v", err)
		}
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{
			Id:    oidSCTList,
			Value: value,
		})
	}
	if opts.pilot != "" {
		value, err := asn1.Marshal(opts.pilot)
		if err != nil {
			t.Fatalf("marshaling pilot identifier: %v", err)
		}
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{
			Id:    oidPilotIdentifier,
			Value: value,
		})
	}
	template.ExtraExtensions = append(template.ExtraExtensions, opts.extra...)

	key := mustKey(t)
	return signCert(t, template, parent.cert, &key.PublicKey, parent.key)
}

func makeSCT(ts time.Time) SCT {
	var s SCT
	s.Version = sctVersionV1
	for i := range s.LogID {
		s.LogID[i] = byte(i)
	}
	s.Timestamp = uint64(ts.UnixMilli())
	s.HashAlgorithm = 4      // sha256
	s.SignatureAlgorithm = 3 // ecdsa
	s.Signature = []byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01}
	return s
}

func pemEncode(t *testing.T, certs ...*x509.Certificate) []byte {
	t.Helper()
	var out []byte
	for _, cert := range certs {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}
	return out
}
