package models

type CEFRLevel string

const (
	LevelA1 CEFRLevel = "a1"
	LevelA2 CEFRLevel = "a2"
	LevelB1 CEFRLevel = "b1"
	LevelB2 CEFRLevel = "b2"
	LevelC1 CEFRLevel = "c1"
	LevelC2 CEFRLevel = "c2"
)

var cefrLabels = map[CEFRLevel]string{
	LevelA1: "A1 - Beginner",
	LevelA2: "A2 - Elementary",
	LevelB1: "B1 - Intermediate",
	LevelB2: "B2 - Upper Intermediate",
	LevelC1: "C1 - Advanced",
	LevelC2: "C2 - Proficiency",
}

func (c CEFRLevel) Valid() bool {
	_, ok := cefrLabels[c]
	return ok
}

// Label is the human readable form used in prompts and pages. Unknown levels
// are returned unchanged.
func (c CEFRLevel) Label() string {
	if label, ok := cefrLabels[c]; ok {
		return label
	}
	return string(c)
}

type Voice string

const (
	VoiceMale   Voice = "male"
	VoiceFemale Voice = "female"
)

func (v Voice) Valid() bool {
	return v == VoiceMale || v == VoiceFemale
}

var languageNames = map[string]string{
	"af": "Afrikaans", "ar": "Arabic", "hy": "Armenian", "az": "Azerbaijani",
	"be": "Belarusian", "bs": "Bosnian", "bg": "Bulgarian", "ca": "Catalan",
	"zh": "Chinese", "hr": "Croatian", "cs": "Czech", "da": "Danish",
	"nl": "Dutch", "en": "English", "et": "Estonian", "fi": "Finnish",
	"fr": "French", "gl": "Galician", "de": "German", "el": "Greek",
	"he": "Hebrew", "hi": "Hindi", "hu": "Hungarian", "is": "Icelandic",
	"id": "Indonesian", "it": "Italian", "ja": "Japanese", "kn": "Kannada",
	"kk": "Kazakh", "ko": "Korean", "lv": "Latvian", "lt": "Lithuanian",
	"mk": "Macedonian", "ms": "Malay", "mr": "Marathi", "mi": "Maori",
	"ne": "Nepali", "no": "Norwegian", "fa": "Persian", "pl": "Polish",
	"pt": "Portuguese", "ro": "Romanian", "ru": "Russian", "sr": "Serbian",
	"sk": "Slovak", "sl": "Slovenian", "es": "Spanish", "sw": "Swahili",
	"sv": "Swedish", "tl": "Tagalog", "ta": "Tamil", "th": "Thai",
	"tr": "Turkish", "uk": "Ukrainian", "ur": "Urdu", "vi": "Vietnamese",
	"cy": "Welsh",
}

// LanguageName maps an ISO 639-1 code to its English name. Codes outside the
// table (or names stored directly) are returned as given.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
