package apk

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"go.mozilla.org/pkcs7"

	"github.com/huanfeng/apkparse/pkg/utils"
)

const jarManifestName = "META-INF/MANIFEST.MF"

// digestAlgorithms lists the supported digest attribute prefixes, strongest
// first.
var digestAlgorithms = []struct {
	name string
	new  func() hash.Hash
}{
	{"sha-512", sha512.New},
	{"sha-384", sha512.New384},
	{"sha-256", sha256.New},
	{"sha1", sha1.New},
	{"sha-1", sha1.New},
	{"md5", md5.New},
}

// jarSection is one section of a manifest or signature file. Attribute
// names are lower-cased.
type jarSection struct {
	attrs map[string]string
	raw   []byte
}

// digest returns the first supported digest attribute with the given
// suffix ("-digest", "-digest-manifest").
func (s *jarSection) digest(suffix string) (func() hash.Hash, []byte, bool) {
	for _, alg := range digestAlgorithms {
		v, ok := s.attrs[alg.name+suffix]
		if !ok {
			continue
		}
		want, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		return alg.new, want, true
	}
	return nil, nil, false
}

type jarManifest struct {
	main     *jarSection
	sections map[string]*jarSection
}

// splitLines splits data into lines, reporting for each line its text and
// the offset just past its terminator.
func splitLines(data []byte) (lines [][]byte, ends []int) {
	start := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			lines = append(lines, data[start:i])
			ends = append(ends, i+1)
			start = i + 1
		case '\r':
			lines = append(lines, data[start:i])
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			ends = append(ends, i+1)
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
		ends = append(ends, len(data))
	}
	return lines, ends
}

// parseJarManifest reads a MANIFEST.MF or .SF file. Each named section
// keeps its raw bytes, including the blank line that terminates it.
func parseJarManifest(data []byte) (*jarManifest, error) {
	m := &jarManifest{sections: map[string]*jarSection{}}
	lines, ends := splitLines(data)

	cur := &jarSection{attrs: map[string]string{}}
	sectionStart := 0
	lastKey := ""

	finish := func(end int) error {
		cur.raw = data[sectionStart:end]
		if m.main == nil {
			m.main = cur
		} else if name, ok := cur.attrs["name"]; ok {
			if _, dup := m.sections[name]; dup {
				return fmt.Errorf("duplicate manifest entry %q", name)
			}
			m.sections[name] = cur
		}
		cur = &jarSection{attrs: map[string]string{}}
		lastKey = ""
		return nil
	}

	for i, line := range lines {
		if len(line) == 0 {
			if len(cur.attrs) > 0 || m.main == nil {
				if err := finish(ends[i]); err != nil {
					return nil, err
				}
			}
			sectionStart = ends[i]
			continue
		}
		if line[0] == ' ' {
			if lastKey == "" {
				return nil, fmt.Errorf("continuation line without attribute: %q", line)
			}
			cur.attrs[lastKey] += string(line[1:])
			continue
		}
		colon := bytes.Index(line, []byte(": "))
		if colon <= 0 {
			return nil, fmt.Errorf("invalid manifest line: %q", line)
		}
		lastKey = strings.ToLower(string(line[:colon]))
		cur.attrs[lastKey] = string(line[colon+2:])
	}
	if len(cur.attrs) > 0 || m.main == nil {
		if err := finish(len(data)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// jarSigner is one verified signature file and the entries it covers.
type jarSigner struct {
	name    string
	certs   []*x509.Certificate
	entries map[string]struct{}
}

// jarVerifier checks JAR v1 signatures: MANIFEST.MF, the .SF signature
// files and their PKCS#7 signature blocks.
type jarVerifier struct {
	manifest *jarManifest
	signers  []*jarSigner
	logger   utils.Logger
}

// encodingError marks failures to decode signature material.
type encodingError struct{ err error }

func (e *encodingError) Error() string { return e.err.Error() }
func (e *encodingError) Unwrap() error { return e.err }

func newJarVerifier(zr *zip.Reader, logger utils.Logger) (*jarVerifier, error) {
	v := &jarVerifier{logger: logger}

	mfData, err := readEntry(zr, jarManifestName)
	if err != nil {
		// Unsigned archive: every entry reports no certificates.
		return v, nil
	}
	if v.manifest, err = parseJarManifest(mfData); err != nil {
		return nil, &encodingError{err}
	}

	for _, f := range zr.File {
		dir, file := path.Split(f.Name)
		if dir != "META-INF/" || !strings.EqualFold(path.Ext(file), ".sf") {
			continue
		}
		base := strings.TrimSuffix(f.Name, path.Ext(file))
		var block *zip.File
		for _, ext := range []string{".RSA", ".DSA", ".EC"} {
			if block = findEntry(zr, base+ext); block != nil {
				break
			}
		}
		if block == nil {
			v.logger.Warn("Signature file %s has no signature block", f.Name)
			continue
		}

		signer, err := v.verifySignatureFile(zr, f, block, mfData)
		if err != nil {
			var ee *encodingError
			if errors.As(err, &ee) {
				return nil, err
			}
			v.logger.Warn("Ignoring signer %s: %v", f.Name, err)
			continue
		}
		v.signers = append(v.signers, signer)
	}
	return v, nil
}

func (v *jarVerifier) verifySignatureFile(zr *zip.Reader, sf, block *zip.File, mfData []byte) (*jarSigner, error) {
	sfData, err := readEntry(zr, sf.Name)
	if err != nil {
		return nil, err
	}
	blockData, err := readEntry(zr, block.Name)
	if err != nil {
		return nil, err
	}

	p7, err := pkcs7.Parse(blockData)
	if err != nil {
		return nil, &encodingError{fmt.Errorf("%s: %w", block.Name, err)}
	}
	if err := verifySignatureBlock(p7, sfData); err != nil {
		return nil, fmt.Errorf("%s: signature does not verify: %w", block.Name, err)
	}
	if len(p7.Certificates) == 0 {
		return nil, fmt.Errorf("%s: no certificates", block.Name)
	}

	sfm, err := parseJarManifest(sfData)
	if err != nil {
		return nil, &encodingError{fmt.Errorf("%s: %w", sf.Name, err)}
	}

	// A matching whole-manifest digest vouches for every section; otherwise
	// each listed section must match on its own.
	wholeOK := false
	if newHash, want, ok := sfm.main.digest("-digest-manifest"); ok {
		h := newHash()
		h.Write(mfData)
		wholeOK = bytes.Equal(h.Sum(nil), want)
	}

	signer := &jarSigner{name: sf.Name, certs: orderCertificates(p7), entries: map[string]struct{}{}}
	for name, section := range sfm.sections {
		if !wholeOK {
			mfSection, ok := v.manifest.sections[name]
			if !ok {
				continue
			}
			newHash, want, ok := section.digest("-digest")
			if !ok {
				continue
			}
			h := newHash()
			h.Write(mfSection.raw)
			if !bytes.Equal(h.Sum(nil), want) {
				return nil, fmt.Errorf("invalid digest for %s in %s", name, sf.Name)
			}
		}
		signer.entries[name] = struct{}{}
	}
	return signer, nil
}

// farFuture bounds the validity window used for signature checks.
var farFuture = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// verifySignatureBlock checks the signature of p7 over content. JAR v1
// signatures are not bound to the validity period of the signer
// certificate, so the check runs against copies of the certificates with an
// unbounded window; p7 keeps the originals.
func verifySignatureBlock(p7 *pkcs7.PKCS7, content []byte) error {
	orig := p7.Certificates
	unbounded := make([]*x509.Certificate, len(orig))
	for i, c := range orig {
		cc := *c
		cc.NotBefore = time.Time{}
		cc.NotAfter = farFuture
		unbounded[i] = &cc
	}
	p7.Content = content
	p7.Certificates = unbounded
	defer func() { p7.Certificates = orig }()
	return p7.Verify()
}

// orderCertificates puts the signer certificate first, followed by the
// rest of the chain in block order.
func orderCertificates(p7 *pkcs7.PKCS7) []*x509.Certificate {
	leaf := p7.GetOnlySigner()
	if leaf == nil {
		return p7.Certificates
	}
	out := []*x509.Certificate{leaf}
	for _, c := range p7.Certificates {
		if !c.Equal(leaf) {
			out = append(out, c)
		}
	}
	return out
}

// verifyEntry streams f through buf, checking its digest against the
// manifest, and returns the certificates of every signer covering it. A
// nil result means the entry is unsigned or does not match its digest.
// sink, when set, receives the entry bytes.
func (v *jarVerifier) verifyEntry(f *zip.File, buf []byte, sink io.Writer) ([]*x509.Certificate, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var h hash.Hash
	var want []byte
	if v.manifest != nil {
		if section, ok := v.manifest.sections[f.Name]; ok {
			if newHash, d, ok := section.digest("-digest"); ok {
				h, want = newHash(), d
			}
		}
	}

	var w io.Writer = io.Discard
	switch {
	case h != nil && sink != nil:
		w = io.MultiWriter(h, sink)
	case h != nil:
		w = h
	case sink != nil:
		w = sink
	}
	if _, err := io.CopyBuffer(w, rc, buf); err != nil {
		return nil, err
	}

	if h == nil {
		return nil, nil
	}
	if !bytes.Equal(h.Sum(nil), want) {
		v.logger.Warn("Entry %s does not match its manifest digest", f.Name)
		return nil, nil
	}

	var certs []*x509.Certificate
	for _, s := range v.signers {
		if _, ok := s.entries[f.Name]; ok {
			certs = append(certs, s.certs...)
		}
	}
	return certs, nil
}
