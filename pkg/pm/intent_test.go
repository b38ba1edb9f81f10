package pm

import "testing"

func TestAddDataType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mimeType    string
		wantErr     bool
		wantType    string
		wantPartial bool
	}{
		{mimeType: "text/plain", wantType: "text/plain"},
		{mimeType: "image/*", wantType: "image", wantPartial: true},
		{mimeType: "*/*", wantType: "*", wantPartial: true},
		{mimeType: "text", wantErr: true},
		{mimeType: "/plain", wantErr: true},
		{mimeType: "text/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			t.Parallel()
			var f IntentFilter
			err := f.AddDataType(tt.mimeType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AddDataType(%q) error = %v, wantErr %v", tt.mimeType, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(f.DataTypes) != 1 || f.DataTypes[0] != tt.wantType {
				t.Errorf("DataTypes = %v, want [%s]", f.DataTypes, tt.wantType)
			}
			if f.HasPartialTypes != tt.wantPartial {
				t.Errorf("HasPartialTypes = %v", f.HasPartialTypes)
			}
		})
	}
}

func TestIntentFilterDeduplicates(t *testing.T) {
	t.Parallel()

	var f IntentFilter
	f.AddAction("a")
	f.AddAction("a")
	f.AddCategory(CategoryDefault)
	f.AddCategory(CategoryDefault)
	f.AddDataScheme("http")
	f.AddDataScheme("http")
	if len(f.Actions) != 1 || len(f.Categories) != 1 || len(f.DataSchemes) != 1 {
		t.Errorf("duplicates kept: %+v", f)
	}
	if !f.HasCategory(CategoryDefault) {
		t.Error("HasCategory(DEFAULT) = false")
	}
}

func TestAddDataAuthority(t *testing.T) {
	t.Parallel()

	var f IntentFilter
	f.AddDataAuthority("example.com", "")
	f.AddDataAuthority("example.com", "8080")
	if f.DataAuthorities[0].Port != -1 || f.DataAuthorities[1].Port != 8080 {
		t.Errorf("DataAuthorities = %+v", f.DataAuthorities)
	}
}

func TestPatternMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern PatternMatcher
		input   string
		want    bool
	}{
		{PatternMatcher{"/a", PatternLiteral}, "/a", true},
		{PatternMatcher{"/a", PatternLiteral}, "/ab", false},
		{PatternMatcher{"/a", PatternPrefix}, "/ab", true},
		{PatternMatcher{"/a", PatternPrefix}, "/b", false},
		{PatternMatcher{"/files/.*", PatternSimpleGlob}, "/files/x/y", true},
		{PatternMatcher{"/files/.*", PatternSimpleGlob}, "/files/", true},
		{PatternMatcher{".*\\.pdf", PatternSimpleGlob}, "/doc/report.pdf", true},
		{PatternMatcher{".*\\.pdf", PatternSimpleGlob}, "/doc/report.txt", false},
		{PatternMatcher{"/a*b", PatternSimpleGlob}, "/aaab", true},
		{PatternMatcher{"/a*b", PatternSimpleGlob}, "/b", true},
		{PatternMatcher{"/x.z", PatternSimpleGlob}, "/xyz", true},
		{PatternMatcher{"", PatternSimpleGlob}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern.Path+"~"+tt.input, func(t *testing.T) {
			t.Parallel()
			if got := tt.pattern.Match(tt.input); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern.Path, tt.input, got, tt.want)
			}
		})
	}
}
