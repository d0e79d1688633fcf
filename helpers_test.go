package bimi

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/synqronlabs/bimi/fetch"
	"github.com/synqronlabs/bimi/vmc"
)

// refTime is the fixed reference instant for temporal checks in these
// tests.
var refTime = time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)

var (
	oidBIMIEKU         = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 31}
	oidSCTListExt      = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 2}
	oidLogotypeExt     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 12}
	oidDigestSHA256Alg = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
)

// testPKI is a generated root, issuing CA, and trust store shared by a
// test's scenarios.
type testPKI struct {
	root     *x509.Certificate
	rootKey  *ecdsa.PrivateKey
	inter    *x509.Certificate
	interKey *ecdsa.PrivateKey
	store    *vmc.TrustStore
}

var testSerial int64 = 5000

func newTestPKI(t *testing.T) *testPKI {
	t.Helper()

	rootKey := mustKey(t)
	rootTemplate := &x509.Certificate{
		SerialNumber:          nextTestSerial(),
		Subject:               pkix.Name{CommonName: "Test Mark Root", Organization: []string{"Test Mark Root LLC"}},
		NotBefore:             refTime.Add(-10 * 365 * 24 * time.Hour),
		NotAfter:              refTime.Add(10 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	root := mustCreateCert(t, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)

	interKey := mustKey(t)
	interTemplate := &x509.Certificate{
		SerialNumber:          nextTestSerial(),
		Subject:               pkix.Name{CommonName: "Test Mark Issuing CA", Organization: []string{"Test Mark Issuing CA LLC"}},
		NotBefore:             refTime.Add(-5 * 365 * 24 * time.Hour),
		NotAfter:              refTime.Add(5 * 365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	inter := mustCreateCert(t, interTemplate, rootTemplate, &interKey.PublicKey, rootKey)

	return &testPKI{
		root:     root,
		rootKey:  rootKey,
		inter:    inter,
		interKey: interKey,
		store:    vmc.NewTrustStoreFromCerts([]*x509.Certificate{root}),
	}
}

type leafConfig struct {
	sans      []string
	withSCT   bool
	indicator []byte // adds a logotype extension with this image's sha256
}

// bundlePEM issues a leaf per cfg and returns the PEM bundle
// [leaf, issuing CA].
func (p *testPKI) bundlePEM(t *testing.T, cfg leafConfig) []byte {
	t.Helper()

	template := &x509.Certificate{
		SerialNumber:       nextTestSerial(),
		Subject:            pkix.Name{CommonName: "mark", Organization: []string{"Brand X Inc"}},
		NotBefore:          refTime.Add(-30 * 24 * time.Hour),
		NotAfter:           refTime.Add(365 * 24 * time.Hour),
		DNSNames:           cfg.sans,
		KeyUsage:           x509.KeyUsageDigitalSignature,
		UnknownExtKeyUsage: []asn1.ObjectIdentifier{oidBIMIEKU},
	}
	if cfg.withSCT {
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{
			Id:    oidSCTListExt,
			Value: mustMarshal(t, sctListBytes(refTime.Add(-24*time.Hour))),
		})
	}
	if cfg.indicator != nil {
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{
			Id:    oidLogotypeExt,
			Value: logotypeValue(t, cfg.indicator),
		})
	}

	key := mustKey(t)
	leaf := mustCreateCert(t, template, p.inter, &key.PublicKey, p.interKey)

	var out []byte
	for _, cert := range []*x509.Certificate{leaf, p.inter} {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}
	return out
}

// sctListBytes builds a TLS-encoded SCT list with one v1 entry.
func sctListBytes(ts time.Time) []byte {
	var entry []byte
	entry = append(entry, 0) // v1
	entry = append(entry, make([]byte, 32)...)
	entry = binary.BigEndian.AppendUint64(entry, uint64(ts.UnixMilli()))
	entry = binary.BigEndian.AppendUint16(entry, 0) // no extensions
	entry = append(entry, 4, 3)                     // sha256, ecdsa
	sig := []byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01}
	entry = binary.BigEndian.AppendUint16(entry, uint16(len(sig)))
	entry = append(entry, sig...)

	list := binary.BigEndian.AppendUint16(nil, uint16(len(entry)+2))
	list = binary.BigEndian.AppendUint16(list, uint16(len(entry)))
	return append(list, entry...)
}

// logotypeValue builds an RFC 3709 logotype extension value with the
// indicator's SHA-256 digest in the embedded subject logo.
func logotypeValue(t *testing.T, indicator []byte) []byte {
	t.Helper()

	type hashAlgAndValue struct {
		HashAlg   pkix.AlgorithmIdentifier
		HashValue []byte
	}
	type details struct {
		MediaType    string `asn1:"ia5"`
		LogotypeHash []hashAlgAndValue
		LogotypeURI  []asn1.RawValue
	}
	type image struct {
		ImageDetails details
	}

	sum := sha256.Sum256(indicator)
	images, err := asn1.Marshal([]image{{ImageDetails: details{
		MediaType:    "image/svg+xml",
		LogotypeHash: []hashAlgAndValue{{HashAlg: pkix.AlgorithmIdentifier{Algorithm: oidDigestSHA256Alg}, HashValue: sum[:]}},
		LogotypeURI:  []asn1.RawValue{{Class: asn1.ClassUniversal, Tag: asn1.TagIA5String, Bytes: []byte("data:image/svg+xml;base64,")}},
	}}})
	if err != nil {
		t.Fatalf("marshaling logotype images: %v", err)
	}

	direct := mustMarshalRaw(t, asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: images})
	subjectLogo := mustMarshalRaw(t, asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 2, IsCompound: true, Bytes: direct})
	return mustMarshalRaw(t, asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSequence, IsCompound: true, Bytes: subjectLogo})
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key
}

func nextTestSerial() *big.Int {
	testSerial++
	return big.NewInt(testSerial)
}

func mustCreateCert(t *testing.T, template, parent *x509.Certificate, pub *ecdsa.PublicKey, parentKey *ecdsa.PrivateKey) *x509.Certificate {
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

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := asn1.Marshal(v)
	if err != nil {
		t.Fatalf("asn1 marshal: %v", err)
	}
	return b
}

func mustMarshalRaw(t *testing.T, raw asn1.RawValue) []byte {
	t.Helper()
	b, err := asn1.Marshal(raw)
	if err != nil {
		t.Fatalf("asn1 marshal: %v", err)
	}
	return b
}

// stubFetcher serves fixed bodies by URL and fails everything else
// with a transport error.
type stubFetcher map[string][]byte

var _ fetch.Fetcher = stubFetcher{}

func (f stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, ok := f[url]
	if !ok {
		return nil, fmt.Errorf("%w: no route to %s", fetch.ErrTransport, url)
	}
	return body, nil
}
