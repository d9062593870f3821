package document

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/go-enry/go-enry/v2"
)

// PlainText tags code blocks with no recognizable language.
const PlainText = "plaintext"

// NormalizeLanguage maps a language name or alias onto the canonical lexer
// name, lowercased. Unknown names are kept in a tag-safe form.
func NormalizeLanguage(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if l := lexers.Get(name); l != nil {
		name = l.Config().Name
	}
	name = strings.ReplaceAll(strings.ToLower(name), " ", "-")
	name = strings.Map(func(r rune) rune {
		if isLanguageRune(r) {
			return r
		}
		return -1
	}, name)
	if name == "" {
		return PlainText
	}
	if len(name) > maxLanguageLen {
		name = name[:maxLanguageLen]
	}
	return name
}

// maxLanguageLen matches the longest language tag the sanitizer keeps.
const maxLanguageLen = 32

func isLanguageRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("_+#.-", r)
}

// DetectLanguage guesses the language of a code snippet.
func DetectLanguage(code string) string {
	if strings.TrimSpace(code) == "" {
		return PlainText
	}
	if lang := enry.GetLanguage("", []byte(code)); lang != "" {
		return NormalizeLanguage(lang)
	}
	if l := lexers.Analyse(code); l != nil {
		return NormalizeLanguage(l.Config().Name)
	}
	return PlainText
}
