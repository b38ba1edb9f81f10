package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/huanfeng/apkparse/pkg/pm"
)

//go:embed locales/*.toml
var localeFS embed.FS

// supported lists the catalog languages; the first one is the fallback.
var supported = []language.Tag{language.English, language.Chinese}

// localeEnv lists the variables consulted after --lang, in order.
var localeEnv = []string{"APKPARSE_LANG", "LC_ALL", "LC_MESSAGES", "LANG"}

// catalog holds the localizer for the chosen language. Scan workers format
// messages concurrently with Init.
type catalog struct {
	mu        sync.RWMutex
	localizer *goi18n.Localizer
	lang      language.Tag
}

var messages = &catalog{lang: language.English}

// Init loads the embedded catalogs and picks the interface language: the
// langOverride from --lang, then APKPARSE_LANG, LC_ALL, LC_MESSAGES and
// LANG, then the platform locale. English is the fallback.
func Init(langOverride string) error {
	bundle := goi18n.NewBundle(supported[0])
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.toml")
	if err != nil {
		return fmt.Errorf("list locales: %w", err)
	}
	for _, file := range files {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	chosen := selectLanguage(langOverride)

	messages.mu.Lock()
	defer messages.mu.Unlock()
	messages.localizer = goi18n.NewLocalizer(bundle, chosen.String(), supported[0].String())
	messages.lang = chosen
	return nil
}

// T translates a message by ID with optional template data. An unknown ID
// or a failed translation yields the ID itself.
func T(id string, data ...map[string]interface{}) string {
	messages.mu.RLock()
	loc := messages.localizer
	messages.mu.RUnlock()

	if loc == nil {
		if err := Init(""); err != nil {
			fmt.Fprintf(os.Stderr, "i18n init failed: %v\n", err)
			return id
		}
		messages.mu.RLock()
		loc = messages.localizer
		messages.mu.RUnlock()
	}

	var tmpl map[string]interface{}
	if len(data) > 0 {
		tmpl = data[0]
	}
	msg, err := loc.Localize(&goi18n.LocalizeConfig{
		MessageID:      id,
		TemplateData:   tmpl,
		DefaultMessage: &goi18n.Message{ID: id, Other: id},
	})
	if err != nil || msg == "" {
		return id
	}
	return msg
}

// CommandShort returns the one-line help of a command ("parse", "scan").
func CommandShort(command string) string {
	return T("cmd." + command + ".short")
}

// CommandLong returns the full help of a command.
func CommandLong(command string) string {
	return T("cmd." + command + ".long")
}

// FlagUsage returns the usage text of a flag by its catalog key, such as
// "strict" or "ignoreProcesses".
func FlagUsage(key string) string {
	return T("flags." + key)
}

// StatusMessage returns the localized explanation of a parse status. Every
// pm.Status has an entry in each locale; unknown codes fall back to the
// status name.
func StatusMessage(status pm.Status) string {
	id := "status." + status.String()
	msg := T(id, map[string]interface{}{"Code": int(status)})
	if msg == id {
		return status.String()
	}
	return msg
}

// CurrentLanguage returns the chosen language tag.
func CurrentLanguage() language.Tag {
	messages.mu.RLock()
	defer messages.mu.RUnlock()
	return messages.lang
}

// selectLanguage returns the first candidate locale whose base language
// has a catalog.
func selectLanguage(langOverride string) language.Tag {
	candidates := []string{langOverride}
	for _, key := range localeEnv {
		candidates = append(candidates, os.Getenv(key))
	}
	candidates = append(candidates, getPlatformLocales()...)

	for _, cand := range candidates {
		tag, ok := parseLocale(cand)
		if !ok {
			continue
		}
		base, _ := tag.Base()
		for _, s := range supported {
			if sb, _ := s.Base(); sb == base {
				return s
			}
		}
	}
	return supported[0]
}

// parseLocale turns POSIX and BCP 47 locale names (zh_CN.UTF-8,
// de_DE@euro, en-US) into a tag. The C and POSIX locales carry no
// language.
func parseLocale(s string) (language.Tag, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}
