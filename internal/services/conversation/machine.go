package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/models"
	"github.com/ternarybob/salus/internal/services/composer"
	"github.com/ternarybob/salus/internal/services/retriever"
)

// Machine drives the collect-confirm-answer conversation flow. It holds no
// dialogue state of its own: the caller passes the full state in and gets
// the updated state back on every turn.
type Machine struct {
	retriever *retriever.Retriever
	composer  *composer.Composer
	logger    arbor.ILogger
}

// NewMachine creates a conversation machine.
func NewMachine(ret *retriever.Retriever, comp *composer.Composer, logger arbor.ILogger) *Machine {
	return &Machine{
		retriever: ret,
		composer:  comp,
		logger:    logger,
	}
}

// ProcessTurn handles one user utterance and returns the updated state and
// the assistant reply. The input state is never mutated. When answering
// fails because retrieval or generation is unavailable, the returned state
// equals the input state so the client can retry the same question.
func (m *Machine) ProcessTurn(ctx context.Context, state models.ConversationState, utterance string) (models.ConversationState, string, error) {
	trimmed := strings.TrimSpace(utterance)
	language := models.DetectLanguage(trimmed)

	if isReset(trimmed) {
		return m.reset(state, trimmed, language)
	}

	switch state.Phase {
	case models.PhaseCollecting:
		return m.collect(state, trimmed, language)
	case models.PhaseConfirming:
		return m.confirm(state, trimmed, language)
	case models.PhaseAnswering:
		return m.answer(ctx, state, trimmed, language)
	default:
		return state, "", fmt.Errorf("unknown conversation phase %q", state.Phase)
	}
}

// reset clears the profile and returns to the first field, keeping the
// turn history.
func (m *Machine) reset(state models.ConversationState, utterance string, language models.Language) (models.ConversationState, string, error) {
	next := state.WithMessage("user", utterance)
	next.Phase = models.PhaseCollecting
	next.Profile = models.Profile{}
	next.CurrentField = models.CollectionOrder[0]

	var reply string
	if language == models.LanguageHebrew {
		reply = "בסדר, נתחיל מחדש. " + fieldSpecs[next.CurrentField].prompt(language)
	} else {
		reply = "Okay, let's start over. " + fieldSpecs[next.CurrentField].prompt(language)
	}

	m.logger.Debug().Msg("Conversation reset requested")
	return next.WithMessage("assistant", reply), reply, nil
}

// collect validates the utterance for the current field. Invalid input
// re-prompts the same field; valid input advances, entering confirmation
// once the last field is filled.
func (m *Machine) collect(state models.ConversationState, utterance string, language models.Language) (models.ConversationState, string, error) {
	field := state.CurrentField
	if !models.ValidField(field) {
		field = models.CollectionOrder[0]
	}
	spec := fieldSpecs[field]

	next := state.WithMessage("user", utterance)
	next.CurrentField = field

	if err := spec.apply(&next.Profile, utterance); err != nil {
		// Validation failures are part of the dialogue, not machine errors.
		reply := invalidValueReply(err, language) + " " + spec.prompt(language)
		next.Profile = state.Profile
		m.logger.Debug().
			Str("field", string(field)).
			Err(err).
			Msg("Field validation failed, re-prompting")
		return next.WithMessage("assistant", reply), reply, nil
	}

	if following := models.NextField(field); following != "" {
		next.CurrentField = following
		reply := fieldSpecs[following].prompt(language)
		return next.WithMessage("assistant", reply), reply, nil
	}

	if err := next.Profile.Validate(); err != nil {
		// All fields were accepted individually, so a whole-profile failure
		// means a field was skipped; resume collection at the first one missing.
		next.CurrentField = next.Profile.FirstInvalidField()
		reply := fieldSpecs[next.CurrentField].prompt(language)
		return next.WithMessage("assistant", reply), reply, nil
	}

	next.Phase = models.PhaseConfirming
	next.CurrentField = ""
	reply := confirmationSummary(&next.Profile, language)
	return next.WithMessage("assistant", reply), reply, nil
}

// confirm waits for the user to approve the collected profile or name a
// field to correct.
func (m *Machine) confirm(state models.ConversationState, utterance string, language models.Language) (models.ConversationState, string, error) {
	next := state.WithMessage("user", utterance)

	if isAffirmative(utterance) {
		// The client owns the state, so a hand-crafted confirming state with
		// missing fields must not slip into answering. Collection resumes at
		// the first missing field; the fields already present are kept.
		if !next.Profile.Complete() {
			next.Phase = models.PhaseCollecting
			next.CurrentField = next.Profile.FirstInvalidField()
			reply := fieldSpecs[next.CurrentField].prompt(language)
			return next.WithMessage("assistant", reply), reply, nil
		}
		next.Phase = models.PhaseAnswering
		var reply string
		if language == models.LanguageHebrew {
			reply = "תודה! הפרופיל שלך אושר. במה אוכל לעזור?"
		} else {
			reply = "Thank you! Your profile is confirmed. What would you like to know?"
		}
		return next.WithMessage("assistant", reply), reply, nil
	}

	if field, ok := fieldFromUtterance(utterance); ok {
		next.Phase = models.PhaseCollecting
		next.CurrentField = field
		reply := fieldSpecs[field].prompt(language)
		return next.WithMessage("assistant", reply), reply, nil
	}

	var reply string
	if isNegative(utterance) {
		if language == models.LanguageHebrew {
			reply = "איזה פרט תרצה לתקן? (שם פרטי, שם משפחה, תעודת זהות, מגדר, גיל, קופת חולים, כרטיס, רמת ביטוח)"
		} else {
			reply = "Which detail would you like to correct? (first name, last name, ID number, gender, age, insurer, card number, tier)"
		}
	} else {
		reply = confirmationSummary(&state.Profile, language)
	}
	return next.WithMessage("assistant", reply), reply, nil
}

// answer routes the question through retrieval and composition. The
// profile stays frozen; only the history grows.
func (m *Machine) answer(ctx context.Context, state models.ConversationState, utterance string, language models.Language) (models.ConversationState, string, error) {
	bundle, err := m.retriever.Retrieve(ctx, utterance, &state.Profile, 0)
	if err != nil {
		return state, "", err
	}

	answer, err := m.composer.Compose(ctx, utterance, &state.Profile, bundle, state.History)
	if err != nil {
		return state, "", err
	}

	next := state.WithMessage("user", utterance).WithMessage("assistant", answer)
	return next, answer, nil
}

// invalidValueReply phrases a validation failure for the user.
func invalidValueReply(err error, language models.Language) string {
	if language == models.LanguageHebrew {
		return "הערך שהוזן אינו תקין, נסה שוב."
	}
	if verr, ok := err.(*models.ValidationError); ok {
		return fmt.Sprintf("That doesn't look right: %s.", verr.Reason)
	}
	return "That doesn't look right, please try again."
}

// confirmationSummary lists the collected profile and asks for approval.
func confirmationSummary(p *models.Profile, language models.Language) string {
	var b strings.Builder

	if language == models.LanguageHebrew {
		b.WriteString("אלו הפרטים שנאספו:\n")
		fmt.Fprintf(&b, "- שם: %s %s\n", p.FirstName, p.LastName)
		fmt.Fprintf(&b, "- תעודת זהות: %s\n", p.IDNumber)
		fmt.Fprintf(&b, "- מגדר: %s\n", p.Gender)
		fmt.Fprintf(&b, "- גיל: %d\n", p.Age)
		fmt.Fprintf(&b, "- קופת חולים: %s\n", p.Insurer.Hebrew())
		fmt.Fprintf(&b, "- מספר כרטיס: %s\n", p.CardNumber)
		fmt.Fprintf(&b, "- רמת ביטוח: %s\n", p.Tier.Hebrew())
		b.WriteString("האם הפרטים נכונים? (כן / לא)")
		return b.String()
	}

	b.WriteString("Here is what I have:\n")
	fmt.Fprintf(&b, "- Name: %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(&b, "- ID number: %s\n", p.IDNumber)
	fmt.Fprintf(&b, "- Gender: %s\n", p.Gender)
	fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	fmt.Fprintf(&b, "- HMO: %s\n", p.Insurer)
	fmt.Fprintf(&b, "- Card number: %s\n", p.CardNumber)
	fmt.Fprintf(&b, "- Tier: %s\n", p.Tier)
	b.WriteString("Is everything correct? (yes / no)")
	return b.String()
}
