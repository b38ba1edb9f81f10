package apk

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"

	apkerrors "github.com/huanfeng/apkparse/internal/errors"
	"github.com/huanfeng/apkparse/pkg/pm"
)

const readBufferSize = 8192

// readBuffer is the scratch buffer entries are streamed through while
// their digests are checked. One buffer is kept between calls; concurrent
// callers that find it checked out allocate their own.
var readBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func getReadBuffer() []byte {
	readBuffer.mu.Lock()
	defer readBuffer.mu.Unlock()
	buf := readBuffer.buf
	readBuffer.buf = nil
	if buf == nil {
		buf = make([]byte, readBufferSize)
	}
	return buf
}

func putReadBuffer(buf []byte) {
	readBuffer.mu.Lock()
	readBuffer.buf = buf
	readBuffer.mu.Unlock()
}

// CollectCertificates verifies the signatures of the archive pkg was parsed
// from and records its signers.
//
// With pm.ParseIsSystem set only the manifest entry is checked. Otherwise
// every entry outside META-INF/ must carry the same set of certificates.
// On failure pkg.Signatures and pkg.SigningKeys are left nil.
func (p *Parser) CollectCertificates(pkg *pm.Package) (err error) {
	pkg.Signatures = nil
	pkg.SigningKeys = nil

	defer func() {
		if r := recover(); r != nil {
			pkg.Signatures = nil
			pkg.SigningKeys = nil
			err = apkerrors.NewParseErrorf(pm.StatusUnexpectedException, "%v", r).
				WithContext("path", pkg.Path).
				WithContext("stack", string(debug.Stack()))
		}
	}()

	source := pkg.Path
	if IsContainer(pkg.Path) {
		base, cleanup, cerr := ExtractBaseAPK(pkg.Path)
		if cerr != nil {
			return apkerrors.WrapParseError(cerr, pm.StatusUnexpectedException, "Exception reading "+pkg.Path)
		}
		defer cleanup()
		source = base
	}

	buf := getReadBuffer()
	defer putReadBuffer(buf)

	zr, err := zip.OpenReader(source)
	if err != nil {
		p.logger.Warn("Exception reading %s: %v", pkg.Path, err)
		return apkerrors.WrapParseError(err, pm.StatusUnexpectedException, "Exception reading "+pkg.Path).
			WithContext("path", pkg.Path)
	}
	defer zr.Close()

	v, err := newJarVerifier(&zr.Reader, p.logger)
	if err != nil {
		p.logger.Warn("Exception reading %s: %v", pkg.Path, err)
		return apkerrors.WrapParseError(err, pm.StatusCertificateEncoding, "Exception reading "+pkg.Path).
			WithContext("path", pkg.Path)
	}

	noCerts := func(entry string) error {
		p.logger.Error("Package %s has no certificates at entry %s; ignoring!", pkg.PackageName, entry)
		return apkerrors.NewParseErrorf(pm.StatusNoCertificates,
			"Package %s has no certificates at entry %s", pkg.PackageName, entry).
			WithContext("path", pkg.Path)
	}

	var certs []*x509.Certificate
	var manifestDigest []byte

	if p.opts.Flags&pm.ParseIsSystem != 0 {
		// System image archives are trusted; the manifest entry alone
		// identifies the signer.
		f := findEntry(&zr.Reader, pm.ManifestEntryName)
		if f == nil {
			return noCerts(pm.ManifestEntryName)
		}
		if certs, err = v.verifyEntry(f, buf, nil); err != nil {
			return p.readFailure(pkg, f.Name, err)
		}
		if len(certs) == 0 {
			return noCerts(f.Name)
		}
	} else {
		for _, f := range zr.File {
			if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, pm.SigningMetadataPrefix) {
				continue
			}

			var local []*x509.Certificate
			if f.Name == pm.ManifestEntryName {
				h := sha256.New()
				local, err = v.verifyEntry(f, buf, h)
				manifestDigest = h.Sum(nil)
			} else {
				local, err = v.verifyEntry(f, buf, nil)
			}
			if err != nil {
				return p.readFailure(pkg, f.Name, err)
			}

			if len(local) == 0 {
				return noCerts(f.Name)
			}
			if certs == nil {
				certs = local
			} else if !sameCertificates(certs, local) {
				p.logger.Error("Package %s has mismatched certificates at entry %s; ignoring!", pkg.PackageName, f.Name)
				return apkerrors.NewParseErrorf(pm.StatusInconsistentCertificates,
					"Package %s has mismatched certificates at entry %s", pkg.PackageName, f.Name).
					WithContext("path", pkg.Path)
			}
		}
	}

	if len(certs) == 0 {
		p.logger.Error("Package %s has no certificates; ignoring!", pkg.PackageName)
		return apkerrors.NewParseErrorf(pm.StatusNoCertificates, "Package %s has no certificates", pkg.PackageName).
			WithContext("path", pkg.Path)
	}

	sigs := make([]pm.Signature, 0, len(certs))
	keys := make([]crypto.PublicKey, 0, len(certs))
	for _, c := range certs {
		if len(c.Raw) == 0 {
			return apkerrors.NewParseErrorf(pm.StatusCertificateEncoding,
				"Package %s has a certificate without an encoded form", pkg.PackageName).
				WithContext("path", pkg.Path)
		}
		sigs = append(sigs, pm.Signature{Raw: append([]byte(nil), c.Raw...)})
		keys = append(keys, c.PublicKey)
	}

	pkg.Signatures = sigs
	pkg.SigningKeys = keys
	if manifestDigest != nil {
		pkg.ManifestDigest = manifestDigest
	}
	return nil
}

func (p *Parser) readFailure(pkg *pm.Package, entry string, err error) error {
	p.logger.Warn("Exception reading %s in %s: %v", entry, pkg.Path, err)
	var pe *apkerrors.PackageError
	if errors.As(err, &pe) {
		return pe
	}
	return apkerrors.WrapParseError(err, pm.StatusUnexpectedException,
		fmt.Sprintf("Exception reading %s in %s", entry, pkg.Path)).
		WithContext("path", pkg.Path)
}

// sameCertificates reports whether a and b hold the same certificates,
// ignoring order.
func sameCertificates(a, b []*x509.Certificate) bool {
	if len(a) != len(b) {
		return false
	}
	for _, ca := range a {
		found := false
		for _, cb := range b {
			if ca.Equal(cb) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
