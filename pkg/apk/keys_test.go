package apk

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"testing"
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	return key
}

func testPublicKeyBase64(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&testRSAKey(t).PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey() error = %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

func TestParsePublicKey(t *testing.T) {
	t.Parallel()

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	ecDER, err := x509.MarshalPKIXPublicKey(&ecKey.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	rsaB64 := testPublicKeyBase64(t)

	tests := []struct {
		name      string
		encoded   string
		wantErr   bool
		wantErrIs error
	}{
		{name: "rsa", encoded: rsaB64},
		{name: "rsa wrapped", encoded: rsaB64[:40] + "\n  " + rsaB64[40:]},
		{name: "ecdsa", encoded: base64.StdEncoding.EncodeToString(ecDER), wantErr: true, wantErrIs: ErrUnsupportedKey},
		{name: "not base64", encoded: "!!!", wantErr: true},
		{name: "not a key", encoded: "bm90IGEga2V5", wantErr: true},
		{name: "empty", encoded: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key, err := ParsePublicKey(tt.encoded)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePublicKey() = %T, want error", key)
				}
				if tt.wantErrIs != nil && !errors.Is(err, tt.wantErrIs) {
					t.Errorf("error = %v, want %v", err, tt.wantErrIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePublicKey() error = %v", err)
			}
			if _, ok := key.(*rsa.PublicKey); !ok {
				t.Errorf("key type = %T, want *rsa.PublicKey", key)
			}
		})
	}
}

func TestKeyFingerprintCollapsesEqualKeys(t *testing.T) {
	t.Parallel()

	encoded := testPublicKeyBase64(t)
	a, err := ParsePublicKey(encoded)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParsePublicKey(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if keyFingerprint(a) != keyFingerprint(b) {
		t.Error("equal keys have different fingerprints")
	}
	c, err := ParsePublicKey(testPublicKeyBase64(t))
	if err != nil {
		t.Fatal(err)
	}
	if keyFingerprint(a) == keyFingerprint(c) {
		t.Error("different keys share a fingerprint")
	}
}
