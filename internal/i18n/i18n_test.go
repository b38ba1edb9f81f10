package i18n

import (
	"sync"
	"testing"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/huanfeng/apkparse/pkg/pm"
)

// The localizer is package state, so these tests do not run in parallel.

func TestLocalesDefineTheSameMessages(t *testing.T) {
	load := func(name string) map[string]interface{} {
		t.Helper()
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]interface{}
		if err := toml.Unmarshal(data, &m); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return m
	}

	en := load("active.en.toml")
	zh := load("active.zh.toml")
	for id := range en {
		if _, ok := zh[id]; !ok {
			t.Errorf("active.zh.toml is missing %q", id)
		}
	}
	for id := range zh {
		if _, ok := en[id]; !ok {
			t.Errorf("active.en.toml is missing %q", id)
		}
	}
}

func TestStatusMessage(t *testing.T) {
	for _, lang := range []string{"en", "zh"} {
		if err := Init(lang); err != nil {
			t.Fatalf("Init(%q) error = %v", lang, err)
		}
		for _, status := range pm.AllStatuses {
			msg := StatusMessage(status)
			if msg == "" || msg == status.String() {
				t.Errorf("%s: no message for %s", lang, status)
			}
		}
	}

	if got := StatusMessage(pm.Status(42)); got != "UNKNOWN" {
		t.Errorf("StatusMessage(42) = %q", got)
	}
}

func TestLanguageSelection(t *testing.T) {
	t.Setenv("APKPARSE_LANG", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")

	tests := []struct {
		override string
		env      string
		want     language.Tag
	}{
		{override: "zh_CN.UTF-8", want: language.Chinese},
		{override: "en", want: language.English},
		{env: "zh-TW", want: language.Chinese},
		{env: "de_DE.UTF-8", want: language.English},
		{override: "fr", env: "zh_CN.UTF-8", want: language.Chinese},
		{override: "C", env: "en_US", want: language.English},
	}

	for _, tt := range tests {
		t.Setenv("APKPARSE_LANG", tt.env)
		got := selectLanguage(tt.override)
		base, _ := got.Base()
		wantBase, _ := tt.want.Base()
		if base != wantBase {
			t.Errorf("selectLanguage(%q) with APKPARSE_LANG=%q = %v, want %v", tt.override, tt.env, got, tt.want)
		}
	}
}

func TestTranslateFallsBackToID(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
	if got := T("no.such.message"); got != "no.such.message" {
		t.Errorf("T() = %q", got)
	}
	if got := T("scan.summary", map[string]interface{}{"Total": 3, "Ok": 2, "Failed": 1}); got != "3 packages: 2 parsed, 1 failed" {
		t.Errorf("T(scan.summary) = %q", got)
	}
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"zh_CN.UTF-8", "zh-CN", true},
		{"de_DE@euro", "de-DE", true},
		{" en-US ", "en-US", true},
		{"C", "", false},
		{"POSIX", "", false},
		{"", "", false},
		{"not a locale!", "", false},
	}
	for _, tt := range tests {
		tag, ok := parseLocale(tt.in)
		if ok != tt.wantOK || (ok && tag.String() != tt.want) {
			t.Errorf("parseLocale(%q) = %v, %v; want %s, %v", tt.in, tag, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCommandHelp(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"root", "parse", "lite", "certs", "info", "scan", "services", "init", "version"} {
		if got := CommandShort(name); got == "cmd."+name+".short" {
			t.Errorf("no short help for %s", name)
		}
		if got := CommandLong(name); got == "cmd."+name+".long" {
			t.Errorf("no long help for %s", name)
		}
	}
	if got := FlagUsage("ignoreProcesses"); got != "ignore android:process declarations" {
		t.Errorf("FlagUsage(ignoreProcesses) = %q", got)
	}

	if err := Init("zh"); err != nil {
		t.Fatal(err)
	}
	if base, _ := CurrentLanguage().Base(); base.String() != "zh" {
		t.Errorf("CurrentLanguage() = %v", CurrentLanguage())
	}
	if CommandShort("parse") == "Parse a package and print its summary" {
		t.Error("zh catalog returned the English help")
	}
}

func TestTranslateConcurrentWithInit(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = T("services.unchanged")
		}()
		go func() {
			defer wg.Done()
			_ = Init("en")
		}()
	}
	wg.Wait()
	if got := T("services.unchanged"); got != "Service cache is up to date" {
		t.Errorf("T(services.unchanged) = %q", got)
	}
}
