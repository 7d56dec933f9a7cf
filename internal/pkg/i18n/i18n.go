package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// DefaultLanguage is used when a requested language has no dictionary.
const DefaultLanguage = "en"

// Func is a translation lookup. Unknown keys are returned verbatim.
type Func func(key string, args ...any) string

// supported is in preference order; the first entry is the match fallback.
var supported = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Portuguese,
}

var (
	matcher = language.NewMatcher(supported)
	cat     = buildCatalog()
)

// buildCatalog registers every dictionary, filling keys a language lacks
// from English so a lookup never falls through to the raw key.
func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	base := dictionaries[DefaultLanguage]
	for _, tag := range supported {
		dict := dictionaries[tag.String()]
		for key, msg := range base {
			if local, ok := dict[key]; ok {
				msg = local
			}
			if err := b.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("i18n: register %s/%s: %v", tag, key, err))
			}
		}
	}
	return b
}

// New returns the lookup for lang. lang may be a single tag ("es",
// "es-ES", "ES") or an Accept-Language list ("pt-BR,pt;q=0.9,en;q=0.5").
// Numbers in arguments are formatted for the matched language.
func New(lang string) Func {
	tag, _ := Match(lang)
	p := message.NewPrinter(tag, message.Catalog(cat))
	base := dictionaries[DefaultLanguage]
	return func(key string, args ...any) string {
		if _, ok := base[key]; !ok {
			return key
		}
		return p.Sprintf(key, args...)
	}
}

// Match resolves lang to one of the supported languages. The boolean is
// false when nothing matched and English was chosen as the fallback.
func Match(lang string) (language.Tag, bool) {
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return supported[0], false
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return supported[0], false
	}
	return supported[idx], true
}

// Languages lists the available languages in preference order.
func Languages() []string {
	out := make([]string, len(supported))
	for i, t := range supported {
		out[i] = t.String()
	}
	return out
}
