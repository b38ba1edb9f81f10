package pm

import (
	"fmt"
	"slices"
	"strings"
)

// AuthorityEntry is a host and optional port declared by a <data> element.
type AuthorityEntry struct {
	Host string `json:"host"`
	Port int    `json:"port,omitempty"`
}

// IntentFilter holds the matching rules of an <intent-filter>.
type IntentFilter struct {
	Priority                int              `json:"priority,omitempty"`
	Actions                 []string         `json:"actions,omitempty"`
	Categories              []string         `json:"categories,omitempty"`
	DataSchemes             []string         `json:"dataSchemes,omitempty"`
	DataSchemeSpecificParts []PatternMatcher `json:"dataSchemeSpecificParts,omitempty"`
	DataAuthorities         []AuthorityEntry `json:"dataAuthorities,omitempty"`
	DataPaths               []PatternMatcher `json:"dataPaths,omitempty"`
	DataTypes               []string         `json:"dataTypes,omitempty"`
	HasPartialTypes         bool             `json:"hasPartialTypes,omitempty"`
}

// AddAction adds an action if it is not already present.
func (f *IntentFilter) AddAction(action string) {
	if !slices.Contains(f.Actions, action) {
		f.Actions = append(f.Actions, action)
	}
}

// AddCategory adds a category if it is not already present.
func (f *IntentFilter) AddCategory(category string) {
	if !slices.Contains(f.Categories, category) {
		f.Categories = append(f.Categories, category)
	}
}

// HasCategory reports whether the filter declares category.
func (f *IntentFilter) HasCategory(category string) bool {
	return slices.Contains(f.Categories, category)
}

// AddDataScheme adds a scheme if it is not already present.
func (f *IntentFilter) AddDataScheme(scheme string) {
	if !slices.Contains(f.DataSchemes, scheme) {
		f.DataSchemes = append(f.DataSchemes, scheme)
	}
}

// AddDataSchemeSpecificPart adds a scheme-specific-part matcher.
func (f *IntentFilter) AddDataSchemeSpecificPart(ssp string, kind int) {
	f.DataSchemeSpecificParts = append(f.DataSchemeSpecificParts, PatternMatcher{Path: ssp, Type: kind})
}

// AddDataAuthority adds a host with an optional port. An unparsable port
// is recorded as -1.
func (f *IntentFilter) AddDataAuthority(host, port string) {
	entry := AuthorityEntry{Host: host, Port: -1}
	if port != "" {
		var n int
		if _, err := fmt.Sscanf(port, "%d", &n); err == nil {
			entry.Port = n
		}
	}
	f.DataAuthorities = append(f.DataAuthorities, entry)
}

// AddDataPath adds a path matcher.
func (f *IntentFilter) AddDataPath(path string, kind int) {
	f.DataPaths = append(f.DataPaths, PatternMatcher{Path: path, Type: kind})
}

// MalformedMimeTypeError reports a <data android:mimeType> without a
// "type/subtype" form.
type MalformedMimeTypeError struct {
	Type string
}

func (e *MalformedMimeTypeError) Error() string {
	return "malformed mime type: " + e.Type
}

// AddDataType adds a MIME type. A "type/*" wildcard is stored as its base
// type and marks the filter as having partial types.
func (f *IntentFilter) AddDataType(mimeType string) error {
	slash := strings.IndexByte(mimeType, '/')
	if slash <= 0 || len(mimeType) < slash+2 {
		return &MalformedMimeTypeError{Type: mimeType}
	}
	t := mimeType
	if len(mimeType) == slash+2 && mimeType[slash+1] == '*' {
		t = mimeType[:slash]
		f.HasPartialTypes = true
	}
	if !slices.Contains(f.DataTypes, t) {
		f.DataTypes = append(f.DataTypes, t)
	}
	return nil
}

// IntentInfo is an intent filter declared inside a component, with the
// presentation attributes of the <intent-filter> element.
type IntentInfo struct {
	IntentFilter

	HasDefault        bool   `json:"hasDefault,omitempty"`
	LabelRes          uint32 `json:"labelRes,omitempty"`
	NonLocalizedLabel string `json:"nonLocalizedLabel,omitempty"`
	Icon              uint32 `json:"icon,omitempty"`
	Logo              uint32 `json:"logo,omitempty"`
}
