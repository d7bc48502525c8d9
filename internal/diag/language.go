package diag

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage canonicalizes a BCP 47 code ("DE" -> "de",
// "en_us" -> "en-US"). Codes that do not parse are lower-cased and kept.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "und"
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return strings.ToLower(code)
	}
	return tag.String()
}

// Localize picks the text best matching the preferred languages. Each
// preference may be a plain code or an Accept-Language header value. When
// nothing matches, the message in the first sorted language is returned.
func (m DiagnosticMessage) Localize(prefs ...string) (string, string) {
	if len(m) == 0 {
		return "", ""
	}
	langs := m.Languages()

	var supported []language.Tag
	var keys []string
	for _, l := range langs {
		tag, err := language.Parse(l)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		keys = append(keys, l)
	}
	if len(supported) == 0 {
		return langs[0], m[langs[0]]
	}

	var wanted []language.Tag
	for _, p := range prefs {
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		wanted = append(wanted, tags...)
	}
	if len(wanted) == 0 {
		return keys[0], m[keys[0]]
	}

	_, idx, conf := language.NewMatcher(supported).Match(wanted...)
	if conf == language.No || idx < 0 || idx >= len(keys) {
		return keys[0], m[keys[0]]
	}
	return keys[idx], m[keys[idx]]
}
