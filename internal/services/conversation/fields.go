package conversation

import (
	"strings"

	"github.com/ternarybob/salus/internal/models"
)

// fieldSpec describes one collectible profile field: how to ask for it in
// both languages and how to validate and store an utterance.
type fieldSpec struct {
	field    models.ProfileField
	promptEN string
	promptHE string
	apply    func(p *models.Profile, utterance string) error
}

var fieldSpecs = map[models.ProfileField]fieldSpec{
	models.FieldFirstName: {
		field:    models.FieldFirstName,
		promptEN: "What is your first name?",
		promptHE: "מה השם הפרטי שלך?",
		apply: func(p *models.Profile, utterance string) error {
			name := strings.TrimSpace(utterance)
			if name == "" || len(name) > 50 {
				return models.NewValidationError(models.FieldFirstName, "first name must be between 1 and 50 characters")
			}
			p.FirstName = name
			return nil
		},
	},
	models.FieldLastName: {
		field:    models.FieldLastName,
		promptEN: "What is your last name?",
		promptHE: "מה שם המשפחה שלך?",
		apply: func(p *models.Profile, utterance string) error {
			name := strings.TrimSpace(utterance)
			if name == "" || len(name) > 50 {
				return models.NewValidationError(models.FieldLastName, "last name must be between 1 and 50 characters")
			}
			p.LastName = name
			return nil
		},
	},
	models.FieldIDNumber: {
		field:    models.FieldIDNumber,
		promptEN: "What is your ID number?",
		promptHE: "מה מספר תעודת הזהות שלך?",
		apply: func(p *models.Profile, utterance string) error {
			id := strings.TrimSpace(utterance)
			if !isDigits(id) {
				return models.NewValidationError(models.FieldIDNumber, "ID number must contain digits only")
			}
			p.IDNumber = id
			return nil
		},
	},
	models.FieldGender: {
		field:    models.FieldGender,
		promptEN: "What is your gender? (male / female / other)",
		promptHE: "מה המגדר שלך? (זכר / נקבה / אחר)",
		apply: func(p *models.Profile, utterance string) error {
			gender, err := models.ParseGender(utterance)
			if err != nil {
				return models.NewValidationError(models.FieldGender, err.Error())
			}
			p.Gender = gender
			return nil
		},
	},
	models.FieldAge: {
		field:    models.FieldAge,
		promptEN: "What is your age?",
		promptHE: "מה הגיל שלך?",
		apply: func(p *models.Profile, utterance string) error {
			age, err := models.ParseAge(utterance)
			if err != nil {
				return models.NewValidationError(models.FieldAge, err.Error())
			}
			p.Age = age
			return nil
		},
	},
	models.FieldInsurer: {
		field:    models.FieldInsurer,
		promptEN: "Which health fund are you a member of? (Maccabi / Meuhedet / Clalit)",
		promptHE: "באיזו קופת חולים אתה חבר? (מכבי / מאוחדת / כללית)",
		apply: func(p *models.Profile, utterance string) error {
			insurer, err := models.ParseInsurer(utterance)
			if err != nil || insurer == models.InsurerGeneric {
				return models.NewValidationError(models.FieldInsurer, "insurer must be Maccabi, Meuhedet or Clalit")
			}
			p.Insurer = insurer
			return nil
		},
	},
	models.FieldCardNumber: {
		field:    models.FieldCardNumber,
		promptEN: "What is your membership card number?",
		promptHE: "מה מספר כרטיס החבר שלך?",
		apply: func(p *models.Profile, utterance string) error {
			card := strings.TrimSpace(utterance)
			if !isDigits(card) {
				return models.NewValidationError(models.FieldCardNumber, "card number must contain digits only")
			}
			p.CardNumber = card
			return nil
		},
	},
	models.FieldTier: {
		field:    models.FieldTier,
		promptEN: "What is your insurance tier? (gold / silver / bronze)",
		promptHE: "מה רמת הביטוח שלך? (זהב / כסף / ארד)",
		apply: func(p *models.Profile, utterance string) error {
			tier, err := models.ParseTier(utterance)
			if err != nil {
				return models.NewValidationError(models.FieldTier, "tier must be gold, silver or bronze")
			}
			p.Tier = tier
			return nil
		},
	},
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// prompt returns the field's question in the requested language.
func (f fieldSpec) prompt(language models.Language) string {
	if language == models.LanguageHebrew {
		return f.promptHE
	}
	return f.promptEN
}

// editAliases maps utterance substrings to the field they name during a
// confirmation edit. More specific aliases come first so "first name" is
// not swallowed by a bare "name" match.
var editAliases = []struct {
	substr string
	field  models.ProfileField
}{
	{"first name", models.FieldFirstName},
	{"שם פרטי", models.FieldFirstName},
	{"last name", models.FieldLastName},
	{"surname", models.FieldLastName},
	{"שם משפחה", models.FieldLastName},
	{"id number", models.FieldIDNumber},
	{"תעודת זהות", models.FieldIDNumber},
	{"id", models.FieldIDNumber},
	{"gender", models.FieldGender},
	{"מגדר", models.FieldGender},
	{"age", models.FieldAge},
	{"גיל", models.FieldAge},
	{"insurer", models.FieldInsurer},
	{"hmo", models.FieldInsurer},
	{"health fund", models.FieldInsurer},
	{"קופת חולים", models.FieldInsurer},
	{"קופה", models.FieldInsurer},
	{"card", models.FieldCardNumber},
	{"כרטיס", models.FieldCardNumber},
	{"tier", models.FieldTier},
	{"plan", models.FieldTier},
	{"רמת ביטוח", models.FieldTier},
	{"מסלול", models.FieldTier},
	{"name", models.FieldFirstName},
	{"שם", models.FieldFirstName},
}

// fieldFromUtterance finds the profile field an edit request names, if any.
func fieldFromUtterance(utterance string) (models.ProfileField, bool) {
	lower := strings.ToLower(utterance)
	for _, alias := range editAliases {
		if strings.Contains(lower, alias.substr) {
			return alias.field, true
		}
	}
	return "", false
}

var affirmatives = []string{"yes", "y", "correct", "confirm", "ok", "okay", "כן", "נכון", "מאשר", "מאשרת", "אישור"}
var negatives = []string{"no", "n", "wrong", "incorrect", "לא"}
var resets = []string{"reset", "restart", "start over", "אפס", "איפוס", "התחל מחדש"}

func matchesAny(utterance string, words []string) bool {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	for _, w := range words {
		if lower == w {
			return true
		}
	}
	return false
}

func isAffirmative(utterance string) bool { return matchesAny(utterance, affirmatives) }
func isNegative(utterance string) bool    { return matchesAny(utterance, negatives) }
func isReset(utterance string) bool       { return matchesAny(utterance, resets) }
