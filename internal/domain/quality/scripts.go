package quality

import "unicode"

var latin = []*unicode.RangeTable{unicode.Latin}

// scriptOf lists the scripts at least one output character must belong to
// for a given target language. Languages missing here are not checked.
var scriptOf = map[string][]*unicode.RangeTable{
	// Latin script
	"en": latin, "es": latin, "fr": latin, "pt": latin, "vi": latin,
	"id": latin, "ms": latin, "tl": latin, "de": latin, "it": latin,
	"nl": latin, "pl": latin, "tr": latin, "sw": latin, "ha": latin,
	"ig": latin, "yo": latin, "zu": latin, "xh": latin, "mg": latin,
	"ht": latin,

	// CJK family
	"zh": {unicode.Han},
	"ja": {unicode.Hiragana, unicode.Katakana, unicode.Han},
	"ko": {unicode.Hangul},

	"ar": {unicode.Arabic},
	"fa": {unicode.Arabic},
	"ur": {unicode.Arabic},
	"ps": {unicode.Arabic},
	"sd": {unicode.Arabic},
	"he": {unicode.Hebrew},
	"hi": {unicode.Devanagari},
	"ne": {unicode.Devanagari},
	"bn": {unicode.Bengali},
	"ta": {unicode.Tamil},
	"te": {unicode.Telugu},
	"ml": {unicode.Malayalam},
	"kn": {unicode.Kannada},
	"gu": {unicode.Gujarati},
	"pa": {unicode.Gurmukhi},
	"si": {unicode.Sinhala},
	"th": {unicode.Thai},
	"lo": {unicode.Lao},
	"km": {unicode.Khmer},
	"my": {unicode.Myanmar},
	"am": {unicode.Ethiopic},
	"ru": {unicode.Cyrillic},
	"ky": {unicode.Cyrillic},
	"tg": {unicode.Cyrillic},
	"mn": {unicode.Cyrillic},
}
