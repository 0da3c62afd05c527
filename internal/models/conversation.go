package models

// Phase is the current stage of the conversation state machine.
type Phase string

const (
	// PhaseCollecting gathers profile fields one at a time in a fixed order.
	PhaseCollecting Phase = "collecting"
	// PhaseConfirming presents the collected profile for user confirmation.
	PhaseConfirming Phase = "confirming"
	// PhaseAnswering routes every utterance to retrieval and composition.
	// The profile is frozen once this phase is entered.
	PhaseAnswering Phase = "answering"
)

// ProfileField identifies one collectible profile attribute. Collection
// follows the declared order.
type ProfileField string

const (
	FieldFirstName  ProfileField = "first_name"
	FieldLastName   ProfileField = "last_name"
	FieldIDNumber   ProfileField = "id_number"
	FieldGender     ProfileField = "gender"
	FieldAge        ProfileField = "age"
	FieldInsurer    ProfileField = "insurer"
	FieldCardNumber ProfileField = "card_number"
	FieldTier       ProfileField = "tier"
)

// CollectionOrder is the fixed sequence in which profile fields are
// requested from the user.
var CollectionOrder = []ProfileField{
	FieldFirstName,
	FieldLastName,
	FieldIDNumber,
	FieldGender,
	FieldAge,
	FieldInsurer,
	FieldCardNumber,
	FieldTier,
}

// Message is a single turn in the conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ConversationState is the full dialogue state shipped by the client on
// every turn and returned updated. The server keeps no copy: conversation
// continuity is entirely client-owned, so no session identifier exists.
type ConversationState struct {
	Phase        Phase        `json:"phase"`
	Profile      Profile      `json:"profile"`
	CurrentField ProfileField `json:"current_field,omitempty"` // Field being collected while Phase == PhaseCollecting
	History      []Message    `json:"history"`
}

// NewConversationState creates the initial state: collecting, empty
// profile, positioned at the first field in the collection order.
func NewConversationState() ConversationState {
	return ConversationState{
		Phase:        PhaseCollecting,
		CurrentField: CollectionOrder[0],
	}
}

// WithMessage returns a copy of the state with one message appended to the
// turn history. The receiver is not mutated.
func (s ConversationState) WithMessage(role, content string) ConversationState {
	history := make([]Message, 0, len(s.History)+1)
	history = append(history, s.History...)
	history = append(history, Message{Role: role, Content: content})
	s.History = history
	return s
}

// NextField returns the field following the given one in the collection
// order, or "" when the given field is the last.
func NextField(field ProfileField) ProfileField {
	for i, f := range CollectionOrder {
		if f == field && i+1 < len(CollectionOrder) {
			return CollectionOrder[i+1]
		}
	}
	return ""
}

// ValidField reports whether the given name identifies a collectible
// profile field.
func ValidField(field ProfileField) bool {
	for _, f := range CollectionOrder {
		if f == field {
			return true
		}
	}
	return false
}
