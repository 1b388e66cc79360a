// Package i18n translates pmt's own user-facing strings. Translations are
// gettext catalogs embedded in the binary; Init selects the locale once at
// startup and T/N look strings up in it, falling back to the msgid.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Catalog layout: locales/{lang}/LC_MESSAGES/pmt.po
//
//go:embed all:locales
var locales embed.FS

const domain = "pmt"

var locale *gotext.Locale

// Init loads the catalog for lang, or for the environment's locale when
// lang is empty. Call once before any T or N call.
func Init(lang string) {
	if lang == "" {
		lang = envLanguage()
	}
	locale = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	locale.AddDomain(domain)
	locale.SetDomain(domain)
}

// T returns the translation of msgid, or msgid itself when no catalog
// entry exists.
func T(msgid string) string {
	if locale == nil {
		return msgid
	}
	return locale.Get(msgid)
}

// N returns the plural-aware translation for n items.
func N(singular, plural string, n int) string {
	if locale == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return locale.GetN(singular, plural, n)
}

// envLanguage resolves the user's locale with GNU gettext precedence:
// LANGUAGE, LC_ALL, LC_MESSAGES, LANG.
func envLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			// Colon-separated preference list; the first wins.
			val, _, _ = strings.Cut(val, ":")
		}
		// "ru_RU.UTF-8" -> "ru_RU"
		val, _, _ = strings.Cut(val, ".")
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
