package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Insurer is one of the fixed set of Israeli health funds, or generic for
// material that applies regardless of insurer.
type Insurer string

const (
	InsurerMaccabi  Insurer = "maccabi"
	InsurerMeuhedet Insurer = "meuhedet"
	InsurerClalit   Insurer = "clalit"
	InsurerGeneric  Insurer = "generic"
)

// insurerAliases maps accepted spellings (English and Hebrew) to the
// canonical insurer value.
var insurerAliases = map[string]Insurer{
	"maccabi":  InsurerMaccabi,
	"מכבי":     InsurerMaccabi,
	"meuhedet": InsurerMeuhedet,
	"מאוחדת":   InsurerMeuhedet,
	"clalit":   InsurerClalit,
	"כללית":    InsurerClalit,
	"generic":  InsurerGeneric,
}

// ParseInsurer normalizes a user- or document-supplied insurer name.
func ParseInsurer(s string) (Insurer, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if insurer, ok := insurerAliases[key]; ok {
		return insurer, nil
	}
	return "", fmt.Errorf("unknown insurer %q (expected Maccabi, Meuhedet or Clalit)", s)
}

// Hebrew returns the Hebrew name of the insurer as it appears in the
// knowledge-base documents.
func (i Insurer) Hebrew() string {
	switch i {
	case InsurerMaccabi:
		return "מכבי"
	case InsurerMeuhedet:
		return "מאוחדת"
	case InsurerClalit:
		return "כללית"
	default:
		return ""
	}
}

// Tier is a coverage tier within an insurer's supplementary insurance.
type Tier string

const (
	TierGold   Tier = "gold"
	TierSilver Tier = "silver"
	TierBronze Tier = "bronze"
)

var tierAliases = map[string]Tier{
	"gold":   TierGold,
	"זהב":    TierGold,
	"silver": TierSilver,
	"כסף":    TierSilver,
	"bronze": TierBronze,
	"ארד":    TierBronze,
}

// ParseTier normalizes a user- or document-supplied coverage tier.
func ParseTier(s string) (Tier, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if tier, ok := tierAliases[key]; ok {
		return tier, nil
	}
	return "", fmt.Errorf("unknown coverage tier %q (expected gold, silver or bronze)", s)
}

// Hebrew returns the Hebrew tier name used in the knowledge-base documents.
func (t Tier) Hebrew() string {
	switch t {
	case TierGold:
		return "זהב"
	case TierSilver:
		return "כסף"
	case TierBronze:
		return "ארד"
	default:
		return ""
	}
}

// Profile holds the validated user attributes driving personalization and
// retrieval filtering. It is collected field by field, frozen once the
// conversation enters the answering phase, and never persisted server-side.
type Profile struct {
	FirstName  string  `json:"first_name" validate:"required,max=50"`
	LastName   string  `json:"last_name" validate:"required,max=50"`
	IDNumber   string  `json:"id_number" validate:"required,numeric"`
	Gender     string  `json:"gender" validate:"required,oneof=male female other"`
	Age        int     `json:"age" validate:"gte=0,lte=120"`
	Insurer    Insurer `json:"insurer" validate:"required,oneof=maccabi meuhedet clalit"`
	CardNumber string  `json:"card_number" validate:"required,numeric"`
	Tier       Tier    `json:"tier" validate:"required,oneof=gold silver bronze"`
}

var profileValidator = validator.New()

// Validate checks every profile field against its constraint. A profile is
// complete only when Validate returns nil.
func (p *Profile) Validate() error {
	return profileValidator.Struct(p)
}

// Complete reports whether every required field has passed validation.
func (p *Profile) Complete() bool {
	return p.Validate() == nil
}

// structFieldNames maps validator struct field names to collection fields.
var structFieldNames = map[string]ProfileField{
	"FirstName":  FieldFirstName,
	"LastName":   FieldLastName,
	"IDNumber":   FieldIDNumber,
	"Gender":     FieldGender,
	"Age":        FieldAge,
	"Insurer":    FieldInsurer,
	"CardNumber": FieldCardNumber,
	"Tier":       FieldTier,
}

// FirstInvalidField returns the earliest collection-order field that fails
// validation, or "" when the profile is complete. Collection resumes there
// so already-accepted fields are kept.
func (p *Profile) FirstInvalidField() ProfileField {
	err := p.Validate()
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return CollectionOrder[0]
	}

	invalid := make(map[ProfileField]bool, len(verrs))
	for _, fieldErr := range verrs {
		if field, ok := structFieldNames[fieldErr.StructField()]; ok {
			invalid[field] = true
		}
	}
	for _, field := range CollectionOrder {
		if invalid[field] {
			return field
		}
	}
	return CollectionOrder[0]
}

// ParseAge validates an age utterance: a non-negative integer within the
// plausible human range.
func ParseAge(s string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("age must be a whole number")
	}
	if age < 0 || age > 120 {
		return 0, fmt.Errorf("age must be between 0 and 120")
	}
	return age, nil
}

// genderAliases maps accepted gender inputs (including single-letter and
// Hebrew forms) to canonical values.
var genderAliases = map[string]string{
	"male":   "male",
	"m":      "male",
	"זכר":    "male",
	"גבר":    "male",
	"female": "female",
	"f":      "female",
	"נקבה":   "female",
	"אישה":   "female",
	"other":  "other",
	"o":      "other",
	"אחר":    "other",
}

// ParseGender normalizes a gender utterance.
func ParseGender(s string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if gender, ok := genderAliases[key]; ok {
		return gender, nil
	}
	return "", fmt.Errorf("unrecognized gender %q (expected male, female or other)", s)
}
