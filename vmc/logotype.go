package vmc

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"hash"
)

// Digest algorithm OIDs accepted in logotype hashes.
var (
	oidDigestMD5    = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 5}
	oidDigestSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	oidDigestSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidDigestSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	oidDigestSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// LogotypeHash is one digest embedded in the certificate's logotype
// extension, binding the certificate to the published indicator.
type LogotypeHash struct {
	// Algorithm is "md5", "sha1", "sha256", "sha384", or "sha512".
	Algorithm string

	// Value is the expected digest of the indicator bytes.
	Value []byte
}

// RFC 3709 structures, reduced to the fields BIMI evidence checking
// needs. The LogotypeExtn CHOICE fields are captured raw and decoded by
// hand since encoding/asn1 has no CHOICE support.
type logotypeExtn struct {
	CommunityLogos asn1.RawValue `asn1:"optional,explicit,tag:0"`
	IssuerLogo     asn1.RawValue `asn1:"optional,explicit,tag:1"`
	SubjectLogo    asn1.RawValue `asn1:"optional,explicit,tag:2"`
	OtherLogos     asn1.RawValue `asn1:"optional,explicit,tag:3"`
}

type logotypeHashAlgAndValue struct {
	HashAlg   pkix.AlgorithmIdentifier
	HashValue []byte
}

type logotypeDetails struct {
	MediaType    string `asn1:"ia5"`
	LogotypeHash []logotypeHashAlgAndValue
	LogotypeURI  []string `asn1:"ia5"`
}

type logotypeImage struct {
	ImageDetails logotypeDetails
	ImageInfo    asn1.RawValue `asn1:"optional"`
}

// ExtractLogotypeHashes pulls the subject logo image digests from the
// certificate's logotype extension (OID 1.3.6.1.5.5.7.1.12).
//
// The extension must not be critical. Only the direct (embedded)
// subjectLogo form is supported; hashes with unrecognized digest
// algorithms are skipped. No usable hash yields ErrNoLogotype.
func ExtractLogotypeHashes(cert *x509.Certificate) ([]LogotypeHash, error) {
	ext := findExtension(cert, oidLogotype)
	if ext == nil {
		return nil, ErrNoLogotype
	}
	if ext.Critical {
		return nil, fmt.Errorf("%w: the logotype extension is marked critical", ErrNoLogotype)
	}

	var extn logotypeExtn
	if _, err := asn1.Unmarshal(ext.Value, &extn); err != nil {
		return nil, fmt.Errorf("%w: parsing logotype extension: %v", ErrNoLogotype, err)
	}
	if len(extn.SubjectLogo.Bytes) == 0 {
		return nil, fmt.Errorf("%w: no subject logo in logotype extension", ErrNoLogotype)
	}

	// subjectLogo is a LogotypeInfo CHOICE; [0] is the direct
	// LogotypeData form.
	info := extn.SubjectLogo
	if info.Class != asn1.ClassContextSpecific || info.Tag != 0 {
		return nil, fmt.Errorf("%w: subject logo is not embedded image data", ErrNoLogotype)
	}

	// The implicit [0] tag replaced the LogotypeData SEQUENCE header, so
	// info.Bytes starts directly at the image SEQUENCE OF.
	var images []logotypeImage
	if _, err := asn1.Unmarshal(info.Bytes, &images); err != nil {
		return nil, fmt.Errorf("%w: parsing subject logo images: %v", ErrNoLogotype, err)
	}

	var hashes []LogotypeHash
	for _, img := range images {
		for _, h := range img.ImageDetails.LogotypeHash {
			alg := digestName(h.HashAlg.Algorithm)
			if alg == "" {
				continue
			}
			hashes = append(hashes, LogotypeHash{Algorithm: alg, Value: h.HashValue})
		}
	}
	if len(hashes) == 0 {
		return nil, ErrNoLogotype
	}
	return hashes, nil
}

// VerifyIndicatorHash checks that the indicator bytes digest to one of
// the logotype hashes embedded in the certificate.
func VerifyIndicatorHash(hashes []LogotypeHash, indicator []byte) error {
	for _, lh := range hashes {
		h := newDigest(lh.Algorithm)
		if h == nil {
			continue
		}
		h.Write(indicator)
		if bytes.Equal(h.Sum(nil), lh.Value) {
			return nil
		}
	}
	return ErrIndicatorMismatch
}

func digestName(oid asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(oidDigestMD5):
		return "md5"
	case oid.Equal(oidDigestSHA1):
		return "sha1"
	case oid.Equal(oidDigestSHA256):
		return "sha256"
	case oid.Equal(oidDigestSHA384):
		return "sha384"
	case oid.Equal(oidDigestSHA512):
		return "sha512"
	}
	return ""
}

func newDigest(name string) hash.Hash {
	switch name {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	case "sha256":
		return sha256.New()
	case "sha384":
		return sha512.New384()
	case "sha512":
		return sha512.New()
	}
	return nil
}
