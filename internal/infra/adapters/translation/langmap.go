package translation

import "strings"

// nllbCodes maps public ISO 639-1 codes to FLORES-200 codes used by NLLB.
var nllbCodes = map[string]string{
	"en": "eng_Latn", "es": "spa_Latn", "fr": "fra_Latn", "pt": "por_Latn",
	"de": "deu_Latn", "it": "ita_Latn", "nl": "nld_Latn", "pl": "pol_Latn",
	"tr": "tur_Latn", "vi": "vie_Latn", "id": "ind_Latn", "ms": "zsm_Latn",
	"tl": "fil_Latn", "sw": "swh_Latn", "ha": "hau_Latn", "ig": "ibo_Latn",
	"yo": "yor_Latn", "zu": "zul_Latn", "xh": "xho_Latn", "mg": "plt_Latn",
	"ht": "hat_Latn",

	"zh": "zho_Hans", "ja": "jpn_Jpan", "ko": "kor_Hang",

	"ar": "arb_Arab", "fa": "pes_Arab", "ur": "urd_Arab", "ps": "pbt_Arab",
	"sd": "snd_Arab", "he": "heb_Hebr",

	"hi": "hin_Deva", "ne": "npi_Deva", "bn": "ben_Beng", "ta": "tam_Taml",
	"te": "tel_Telu", "ml": "mal_Mlym", "kn": "kan_Knda", "gu": "guj_Gujr",
	"pa": "pan_Guru", "si": "sin_Sinh",

	"th": "tha_Thai", "lo": "lao_Laoo", "km": "khm_Khmr", "my": "mya_Mymr",
	"am": "amh_Ethi",

	"ru": "rus_Cyrl", "ky": "kir_Cyrl", "tg": "tgk_Cyrl", "mn": "khk_Cyrl",
}

// languageNames feeds the chat-model prompts.
var languageNames = map[string]string{
	"en": "English", "es": "Spanish", "fr": "French", "pt": "Portuguese",
	"de": "German", "it": "Italian", "nl": "Dutch", "pl": "Polish",
	"tr": "Turkish", "vi": "Vietnamese", "id": "Indonesian", "ms": "Malay",
	"tl": "Filipino", "sw": "Swahili", "ha": "Hausa", "ig": "Igbo",
	"yo": "Yoruba", "zu": "Zulu", "xh": "Xhosa", "mg": "Malagasy",
	"ht": "Haitian Creole", "zh": "Simplified Chinese", "ja": "Japanese",
	"ko": "Korean", "ar": "Arabic", "fa": "Persian", "ur": "Urdu",
	"ps": "Pashto", "sd": "Sindhi", "he": "Hebrew", "hi": "Hindi",
	"ne": "Nepali", "bn": "Bengali", "ta": "Tamil", "te": "Telugu",
	"ml": "Malayalam", "kn": "Kannada", "gu": "Gujarati", "pa": "Punjabi",
	"si": "Sinhala", "th": "Thai", "lo": "Lao", "km": "Khmer",
	"my": "Burmese", "am": "Amharic", "ru": "Russian", "ky": "Kyrgyz",
	"tg": "Tajik", "mn": "Mongolian",
}

// baseCode lowercases a tag and drops any region or script suffix.
func baseCode(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(c, "-_"); i > 0 {
		c = c[:i]
	}
	return c
}

// NLLBCode returns the FLORES-200 code for a public language code. Codes
// that are not in the table are passed through unchanged.
func NLLBCode(code string) string {
	if c, ok := nllbCodes[baseCode(code)]; ok {
		return c
	}
	return code
}

// LanguageName returns an English display name, or the code itself.
func LanguageName(code string) string {
	if n, ok := languageNames[baseCode(code)]; ok {
		return n
	}
	return code
}

// Supported reports whether the code has an NLLB mapping.
func Supported(code string) bool {
	_, ok := nllbCodes[baseCode(code)]
	return ok
}
