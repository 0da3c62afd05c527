package models

// Language identifies the language of a text span or conversation turn.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHebrew  Language = "he"
)

// DetectLanguage classifies text as Hebrew or English. Text where more than
// 30% of the runes fall in the Hebrew Unicode block is treated as Hebrew;
// everything else defaults to English.
func DetectLanguage(text string) Language {
	if text == "" {
		return LanguageEnglish
	}

	total := 0
	hebrew := 0
	for _, r := range text {
		total++
		if r >= 0x0590 && r <= 0x05FF {
			hebrew++
		}
	}

	if hebrew*10 > total*3 {
		return LanguageHebrew
	}
	return LanguageEnglish
}
