package manifest

import "strings"

// Enum maps the symbolic names accepted by an attribute to their values.
// Flag enums accept several names joined by '|'.
type Enum struct {
	values map[string]int
	flags  bool
}

// Lookup resolves a symbolic attribute value.
func (e Enum) Lookup(s string) (int, bool) {
	if !e.flags {
		n, ok := e.values[strings.TrimSpace(s)]
		return n, ok
	}
	result := 0
	for _, part := range strings.Split(s, "|") {
		n, ok := e.values[strings.TrimSpace(part)]
		if !ok {
			return 0, false
		}
		result |= n
	}
	return result, true
}

var (
	ProtectionLevel = Enum{flags: true, values: map[string]int{
		"normal":            0,
		"dangerous":         1,
		"signature":         2,
		"signatureOrSystem": 3,
		"system":            0x10,
		"development":       0x20,
	}}

	LaunchMode = Enum{values: map[string]int{
		"standard":       0,
		"singleTop":      1,
		"singleTask":     2,
		"singleInstance": 3,
	}}

	ScreenOrientation = Enum{values: map[string]int{
		"unspecified":      -1,
		"landscape":        0,
		"portrait":         1,
		"user":             2,
		"behind":           3,
		"sensor":           4,
		"nosensor":         5,
		"sensorLandscape":  6,
		"sensorPortrait":   7,
		"reverseLandscape": 8,
		"reversePortrait":  9,
		"fullSensor":       10,
		"userLandscape":    11,
		"userPortrait":     12,
		"fullUser":         13,
		"locked":           14,
	}}

	InstallLocation = Enum{values: map[string]int{
		"auto":           0,
		"internalOnly":   1,
		"preferExternal": 2,
	}}

	ConfigChanges = Enum{flags: true, values: map[string]int{
		"mcc":                0x0001,
		"mnc":                0x0002,
		"locale":             0x0004,
		"touchscreen":        0x0008,
		"keyboard":           0x0010,
		"keyboardHidden":     0x0020,
		"navigation":         0x0040,
		"orientation":        0x0080,
		"screenLayout":       0x0100,
		"uiMode":             0x0200,
		"screenSize":         0x0400,
		"smallestScreenSize": 0x0800,
		"density":            0x1000,
		"layoutDirection":    0x2000,
		"fontScale":          0x40000000,
	}}

	WindowSoftInputMode = Enum{flags: true, values: map[string]int{
		"stateUnspecified":   0x00,
		"stateUnchanged":     0x01,
		"stateHidden":        0x02,
		"stateAlwaysHidden":  0x03,
		"stateVisible":       0x04,
		"stateAlwaysVisible": 0x05,
		"adjustUnspecified":  0x00,
		"adjustResize":       0x10,
		"adjustPan":          0x20,
		"adjustNothing":      0x30,
	}}

	UIOptions = Enum{flags: true, values: map[string]int{
		"none":                     0,
		"splitActionBarWhenNarrow": 1,
	}}

	ReqTouchScreen = Enum{values: map[string]int{
		"undefined": 0,
		"notouch":   1,
		"stylus":    2,
		"finger":    3,
	}}

	ReqKeyboardType = Enum{values: map[string]int{
		"undefined": 0,
		"nokeys":    1,
		"qwerty":    2,
		"twelvekey": 3,
	}}

	ReqNavigation = Enum{values: map[string]int{
		"undefined": 0,
		"nonav":     1,
		"dpad":      2,
		"trackball": 3,
		"wheel":     4,
	}}

	PermissionGroupFlags = Enum{flags: true, values: map[string]int{
		"personalInfo": 1,
	}}
)
