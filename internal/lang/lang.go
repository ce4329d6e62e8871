// Package lang maps between the human-readable language names emitted by the
// speech recognition service and the short ISO-639-1 style codes used as the
// canonical language identity everywhere else in the pipeline.
//
// The recognition service reports languages as free-text names ("Hindi",
// "portuguese", " Spanish ") rather than codes, so every detected language
// passes through [Normalize] exactly once, at the recognition stage boundary.
// The forward table is fixed at compile time; its inverse is derived once at
// package init and never diverges from it. Both are read-only afterwards and
// safe for concurrent use.
package lang

import "strings"

// DefaultCode is the fallback language code used when the recognition service
// reports nothing usable. It doubles as the pipeline's default pivot language.
const DefaultCode = "en"

// names maps lowercase language names, as the recognition service spells
// them, to short codes.
var names = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"polish":     "pl",
	"czech":      "cs",
	"slovak":     "sk",
	"romanian":   "ro",
	"hungarian":  "hu",
	"greek":      "el",
	"bulgarian":  "bg",
	"russian":    "ru",
	"ukrainian":  "uk",
	"kazakh":     "kk",
	"turkish":    "tr",
	"arabic":     "ar",
	"hebrew":     "he",
	"persian":    "fa",
	"hindi":      "hi",
	"urdu":       "ur",
	"bengali":    "bn",
	"tamil":      "ta",
	"telugu":     "te",
	"marathi":    "mr",
	"gujarati":   "gu",
	"punjabi":    "pa",
	"chinese":    "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"vietnamese": "vi",
	"thai":       "th",
	"indonesian": "id",
	"malay":      "ms",
	"tagalog":    "tl",
	"swahili":    "sw",
	"swedish":    "sv",
	"norwegian":  "no",
	"danish":     "da",
	"finnish":    "fi",
}

// displayNames is the inverse of names with the name capitalized. It is built
// exactly once, in init, and must never be written to afterwards.
var displayNames = make(map[string]string, len(names))

func init() {
	for name, code := range names {
		displayNames[code] = strings.ToUpper(name[:1]) + name[1:]
	}
}

// Normalize converts whatever the recognition service reported into a short
// language code.
//
// The empty string maps to [DefaultCode]. A trimmed, lowercased value of at
// most three characters that is not itself a known name is passed through
// verbatim on the assumption that it is already a code. Anything else is
// looked up in the name table, falling back to [DefaultCode] on a miss.
//
// The pass-through heuristic can misread a genuine short language name that
// is missing from the table as a code. This matches the behaviour the rest of
// the call flow was built against, so it is kept as is.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return DefaultCode
	}
	if code, ok := names[s]; ok {
		return code
	}
	if len(s) <= 3 {
		return s
	}
	return DefaultCode
}

// DisplayName returns the capitalized language name for a code, or the code
// itself when it is not in the table. It never fails.
func DisplayName(code string) string {
	if name, ok := displayNames[code]; ok {
		return name
	}
	return code
}
