package pm

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so the same PackageInfo always
// produces identical bytes.
var encMode cbor.EncMode

// decMode decodes any-typed map values as map[string]any and ignores
// unknown fields.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("pm: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("pm: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalPackageInfo encodes a projection for transport.
func MarshalPackageInfo(pi *PackageInfo) ([]byte, error) {
	data, err := encMode.Marshal(pi)
	if err != nil {
		return nil, fmt.Errorf("encode package info %s: %w", pi.PackageName, err)
	}
	return data, nil
}

// UnmarshalPackageInfo decodes a projection and relinks each component to
// the package level application info.
func UnmarshalPackageInfo(data []byte) (*PackageInfo, error) {
	var pi PackageInfo
	if err := decMode.Unmarshal(data, &pi); err != nil {
		return nil, fmt.Errorf("decode package info: %w", err)
	}
	pi.relink()
	return &pi, nil
}

// WritePackageInfo streams an encoded projection to w.
func WritePackageInfo(w io.Writer, pi *PackageInfo) error {
	return encMode.NewEncoder(w).Encode(pi)
}

// ReadPackageInfo reads one encoded projection from r.
func ReadPackageInfo(r io.Reader) (*PackageInfo, error) {
	var pi PackageInfo
	if err := decMode.NewDecoder(r).Decode(&pi); err != nil {
		return nil, fmt.Errorf("decode package info: %w", err)
	}
	pi.relink()
	return &pi, nil
}

func (pi *PackageInfo) relink() {
	ai := pi.ApplicationInfo
	for _, a := range pi.Activities {
		a.ApplicationInfo = ai
	}
	for _, a := range pi.Receivers {
		a.ApplicationInfo = ai
	}
	for _, s := range pi.Services {
		s.ApplicationInfo = ai
	}
	for _, p := range pi.Providers {
		p.ApplicationInfo = ai
	}
}
