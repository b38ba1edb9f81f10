package apk

import (
	"crypto"
	"crypto/dsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/huanfeng/apkparse/pkg/manifest"
	"github.com/huanfeng/apkparse/pkg/pm"
	"github.com/huanfeng/apkparse/pkg/utils"
)

// ErrUnsupportedKey is returned for a well formed key that is neither RSA
// nor DSA.
var ErrUnsupportedKey = errors.New("public key is neither RSA nor DSA")

// ParsePublicKey decodes a Base64 X.509 SubjectPublicKeyInfo. Only RSA and
// DSA keys are accepted, tried in that order.
func ParsePublicKey(encoded string) (crypto.PublicKey, error) {
	encoded = strings.Join(strings.Fields(encoded), "")
	if encoded == "" {
		return nil, errors.New("empty public key")
	}
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid Base64: %w", err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	switch k := key.(type) {
	case *rsa.PublicKey:
		return k, nil
	case *dsa.PublicKey:
		return k, nil
	default:
		return nil, ErrUnsupportedKey
	}
}

// keyFingerprint identifies a key by its encoded form so equal keys from
// different tags collapse.
func keyFingerprint(key crypto.PublicKey) string {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return "rsa:" + k.N.String() + ":" + fmt.Sprint(k.E)
	case *dsa.PublicKey:
		return "dsa:" + k.Y.String() + ":" + k.P.String()
	}
	if der, err := x509.MarshalPKIXPublicKey(key); err == nil {
		return string(der)
	}
	return fmt.Sprintf("%p", key)
}

type definedKey struct {
	key     crypto.PublicKey
	aliases []string
}

// parseKeys reads a <keys> element. Each <publicKey> opens a scope in which
// <keyset> children name the key sets that include it.
func (s *parseState) parseKeys() error {
	dec := s.dec
	outer := dec.Depth()

	var defined []*definedKey
	index := map[string]*definedKey{}
	var current *definedKey
	currentDepth := -1

	for {
		ev, err := dec.Next()
		if err != nil {
			return err
		}
		if ev == manifest.EndDocument || (ev == manifest.EndTag && dec.Depth() <= outer) {
			break
		}
		if ev == manifest.EndTag {
			if dec.Depth() == currentDepth {
				current = nil
				currentDepth = -1
			}
			continue
		}
		if ev != manifest.StartTag {
			continue
		}

		switch dec.Name() {
		case "publicKey":
			key, err := ParsePublicKey(dec.AttrNonResourceString("value"))
			if err != nil {
				s.logger.Warn("No valid key in 'publicKey' tag at %s", dec.PositionDescription())
				current = nil
				continue
			}
			fp := keyFingerprint(key)
			if index[fp] == nil {
				index[fp] = &definedKey{key: key}
				defined = append(defined, index[fp])
			}
			current = index[fp]
			currentDepth = dec.Depth()

		case "keyset":
			if current == nil {
				s.logger.Info("'keyset' not in 'publicKey' tag at %s", dec.PositionDescription())
				continue
			}
			current.aliases = appendUnique(current.aliases, dec.AttrNonResourceString("name"))

		default:
			if s.opts.Strict {
				return s.malformed("Bad element under <keys>: %s", dec.Name())
			}
			s.warn("Unknown element under <keys>: %s", dec.Name())
			if err := dec.SkipCurrentTag(); err != nil {
				return err
			}
		}
	}

	mapping := make(map[string][]crypto.PublicKey)
	for _, d := range defined {
		for _, alias := range d.aliases {
			mapping[alias] = append(mapping[alias], d.key)
		}
	}
	s.pkg.KeySetMapping = mapping
	return nil
}

// parseVerifier reads a <package-verifier> element. A missing name or an
// unusable key yields nil.
func parseVerifier(dec *manifest.Decoder, logger utils.Logger) *pm.VerifierInfo {
	name := dec.AttrNonResourceString("name")
	encoded := dec.AttrNonResourceString("publicKey")
	if name == "" {
		logger.Info("verifier package name was null; skipping")
		return nil
	}
	if encoded == "" {
		logger.Info("verifier %s public key was null; skipping", name)
	}
	key, err := ParsePublicKey(encoded)
	if err != nil {
		logger.Info("Could not parse verifier %s public key: %v", name, err)
		return nil
	}
	return &pm.VerifierInfo{PackageName: name, PublicKey: key}
}
