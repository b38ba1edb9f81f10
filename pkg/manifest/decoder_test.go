package manifest

import (
	"strings"
	"testing"

	"github.com/huanfeng/apkparse/pkg/manifest/manifesttest"
)

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		wantKind Kind
		wantInt  int
		wantRes  uint32
	}{
		{raw: "", wantKind: KindString},
		{raw: "com.example", wantKind: KindString},
		{raw: "true", wantKind: KindBool, wantInt: 1},
		{raw: "false", wantKind: KindBool, wantInt: 0},
		{raw: "3", wantKind: KindInt, wantInt: 3},
		{raw: "-1", wantKind: KindInt, wantInt: -1},
		{raw: "4294967295", wantKind: KindInt, wantInt: -1},
		{raw: "0x00000012", wantKind: KindInt, wantInt: 0x12},
		{raw: "0xFFFFFFFF", wantKind: KindInt, wantInt: -1},
		{raw: "@0x7F040001", wantKind: KindReference, wantRes: 0x7F040001},
		{raw: "@string/app_name", wantKind: KindReference},
		{raw: "1.5", wantKind: KindFloat},
		{raw: "L", wantKind: KindString},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			v := ParseValue(tt.raw)
			if v.Kind != tt.wantKind {
				t.Fatalf("ParseValue(%q).Kind = %v, want %v", tt.raw, v.Kind, tt.wantKind)
			}
			if n, ok := v.Int(); ok && n != tt.wantInt {
				t.Errorf("ParseValue(%q).Int() = %d, want %d", tt.raw, n, tt.wantInt)
			}
			if got := v.ResourceID(); got != tt.wantRes {
				t.Errorf("ParseValue(%q).ResourceID() = %#x, want %#x", tt.raw, got, tt.wantRes)
			}
		})
	}
}

func TestDecoderDepthAndSkip(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="com.example">
  <!-- comment -->
  <unknown><deep><deeper/></deep></unknown>
  <application android:label="App" android:debuggable="true">
    <activity android:name=".Main"/>
  </application>
</manifest>`

	d := NewDecoder(strings.NewReader(doc))
	var seen []string
	for {
		ev, err := d.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev == EndDocument {
			break
		}
		if ev != StartTag {
			continue
		}
		seen = append(seen, d.Name())
		switch d.Name() {
		case "manifest":
			if d.Depth() != 1 {
				t.Errorf("manifest depth = %d, want 1", d.Depth())
			}
			if got := d.AttrString("package"); got != "com.example" {
				t.Errorf("package = %q", got)
			}
			if len(d.Attrs()) != 1 {
				t.Errorf("xmlns attributes should be dropped, got %v", d.Attrs())
			}
		case "unknown":
			if err := d.SkipCurrentTag(); err != nil {
				t.Fatalf("SkipCurrentTag() error = %v", err)
			}
			if d.Event() != EndTag || d.Name() != "unknown" {
				t.Errorf("after skip positioned on %v %q", d.Event(), d.Name())
			}
		case "application":
			if !d.AttrBool("debuggable", false) {
				t.Error("debuggable should be true")
			}
			if d.AttrBool("missing", true) != true {
				t.Error("missing bool should fall back to default")
			}
		case "activity":
			if d.Depth() != 3 {
				t.Errorf("activity depth = %d, want 3", d.Depth())
			}
		}
	}

	want := []string{"manifest", "unknown", "application", "activity"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("visited %v, want %v", seen, want)
	}
}

func TestDecoderNextChild(t *testing.T) {
	t.Parallel()

	d := NewDecoder(strings.NewReader(`<a><b><c/></b><d/></a><!-- trailing -->`))
	if ok, err := d.NextChild(0); !ok || err != nil {
		t.Fatalf("NextChild(0) = %v, %v", ok, err)
	}
	outer := d.Depth()

	var names []string
	for {
		ok, err := d.NextChild(outer)
		if err != nil {
			t.Fatalf("NextChild() error = %v", err)
		}
		if !ok {
			break
		}
		names = append(names, d.Name())
		if err := d.SkipCurrentTag(); err != nil {
			t.Fatal(err)
		}
	}
	if strings.Join(names, ",") != "b,d" {
		t.Errorf("children = %v, want [b d]", names)
	}
}

func TestDecoderUnclosedDocument(t *testing.T) {
	t.Parallel()

	d := NewDecoder(strings.NewReader(`<manifest><application>`))
	for {
		ev, err := d.Next()
		if err != nil {
			return
		}
		if ev == EndDocument {
			t.Fatal("expected an error for an unclosed document")
		}
	}
}

func TestEnumLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		enum  Enum
		value string
		want  int
		ok    bool
	}{
		{"plain", LaunchMode, "singleTask", 2, true},
		{"flags", ProtectionLevel, "signature|system", 0x12, true},
		{"flags with spaces", ConfigChanges, "orientation | keyboardHidden", 0xa0, true},
		{"unknown", LaunchMode, "sometimes", 0, false},
		{"unknown flag part", ConfigChanges, "orientation|bogus", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.enum.Lookup(tt.value)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Lookup(%q) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIsBinary(t *testing.T) {
	t.Parallel()

	if IsBinary([]byte("<manifest/>")) {
		t.Error("text manifest reported as binary")
	}
	if !IsBinary([]byte{0x03, 0x00, 0x08, 0x00, 0, 0, 0, 0}) {
		t.Error("binary header not detected")
	}
}

func TestBinaryDecoderTypedValues(t *testing.T) {
	t.Parallel()

	doc := manifesttest.New().
		Start("manifest", manifesttest.String("package", "com.example.bin"), manifesttest.Int("versionCode", 7)).
		Start("application", manifesttest.Ref("label", 0x7f0a0001), manifesttest.Bool("debuggable", true)).
		Start("meta-data",
			manifesttest.String("name", "ratio"),
			manifesttest.Float("value", 1.5),
		).End("meta-data").
		Start("meta-data",
			manifesttest.Typed("color", manifesttest.TypeColorARGB, 0xff00ff00),
			manifesttest.Typed("size", manifesttest.TypeDimension, 0x00001001),
			manifesttest.Typed("mask", manifesttest.TypeIntHex, 0x00000030),
			manifesttest.Int("negative", -1),
		).End("meta-data").
		End("application").
		End("manifest").
		Bytes()

	if !IsBinary(doc) {
		t.Fatal("built document is not binary")
	}
	d, err := NewDecoderBytes(doc)
	if err != nil {
		t.Fatalf("NewDecoderBytes() error = %v", err)
	}

	type check func(t *testing.T, d *Decoder)
	checks := map[int]check{
		1: func(t *testing.T, d *Decoder) {
			if d.Name() != "manifest" || d.AttrString("package") != "com.example.bin" {
				t.Errorf("root = <%s package=%q>", d.Name(), d.AttrString("package"))
			}
			if got := d.AttrInt("versionCode", 0); got != 7 {
				t.Errorf("versionCode = %d, want 7", got)
			}
		},
		2: func(t *testing.T, d *Decoder) {
			if got := d.AttrResource("label"); got != 0x7f0a0001 {
				t.Errorf("label = %#x", got)
			}
			if !d.AttrBool("debuggable", false) {
				t.Error("debuggable = false")
			}
		},
		3: func(t *testing.T, d *Decoder) {
			v, _ := d.Attr("value")
			f, ok := v.Float()
			if v.Kind != KindFloat || !ok || f != 1.5 {
				t.Errorf("float value = %+v", v)
			}
			if v.IsReference() {
				t.Error("float value reported as a reference")
			}
		},
		4: func(t *testing.T, d *Decoder) {
			if v, _ := d.Attr("color"); v.Kind != KindInt || v.Raw != "#FF00FF00" {
				t.Errorf("color = %+v", v)
			}
			if got := d.AttrInt("color", 0); got != -16711936 {
				t.Errorf("color int = %d", got)
			}
			if v, _ := d.Attr("size"); v.Kind != KindDimension {
				t.Errorf("dimension = %+v", v)
			}
			if got := d.AttrInt("mask", 0); got != 0x30 {
				t.Errorf("hex int = %#x", got)
			}
			if got := d.AttrInt("negative", 0); got != -1 {
				t.Errorf("negative = %d", got)
			}
		},
	}

	n := 0
	for {
		ev, err := d.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev == EndDocument {
			break
		}
		if ev != StartTag {
			continue
		}
		n++
		if c, ok := checks[n]; ok {
			c(t, d)
		}
	}
	if n != 4 {
		t.Errorf("visited %d start tags, want 4", n)
	}
}

func TestTypedValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		dataType uint8
		data     uint32
		wantKind Kind
		wantRaw  string
		wantOK   bool
	}{
		{"reference", 0x01, 0x7f010002, KindReference, "@0x7F010002", true},
		{"float", 0x04, 0x3fc00000, KindFloat, "1.5", true},
		{"decimal", 0x10, 0xffffffff, KindInt, "-1", true},
		{"boolean", 0x12, 0xffffffff, KindBool, "true", true},
		{"rgb color", 0x1d, 0x00123456, KindInt, "#00123456", true},
		{"fraction", 0x06, 0x00000001, KindDimension, "0x00000001", true},
		{"string", 0x03, 2, KindNull, "", false},
		{"null", 0x00, 0, KindNull, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, ok := TypedValue(tt.dataType, tt.data)
			if ok != tt.wantOK || v.Kind != tt.wantKind || v.Raw != tt.wantRaw {
				t.Errorf("TypedValue(%#x, %#x) = %+v, %v", tt.dataType, tt.data, v, ok)
			}
		})
	}
}
