package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/models"
)

// maxHistoryTurns bounds how many question/answer pairs are replayed to
// the chat model.
const maxHistoryTurns = 10

// Composer turns a question, a frozen profile, and a context bundle into a
// grounded answer via the chat model.
type Composer struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewComposer creates a composer over the given LLM service.
func NewComposer(llm interfaces.LLMService, logger arbor.ILogger) *Composer {
	return &Composer{
		llm:    llm,
		logger: logger,
	}
}

// Compose generates an answer grounded in the bundle. A chat failure wraps
// models.ErrGenerationUnavailable so callers can keep the question alive.
func (c *Composer) Compose(ctx context.Context, question string, profile *models.Profile, bundle *models.ContextBundle, history []models.Message) (string, error) {
	language := models.DetectLanguage(question)

	messages := []interfaces.Message{
		{Role: "system", Content: SystemPrompt(profile, language)},
		{Role: "system", Content: ContextBlock(bundle, language)},
	}
	for _, msg := range recentHistory(history) {
		messages = append(messages, interfaces.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, interfaces.Message{Role: "user", Content: question})

	start := time.Now()
	answer, err := c.llm.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w: %w", models.ErrGenerationUnavailable, err)
	}

	c.logger.Debug().
		Str("language", string(language)).
		Int("context_fragments", len(bundle.Fragments)).
		Int("history_messages", len(history)).
		Dur("duration", time.Since(start)).
		Msg("Answer composed")

	return strings.TrimSpace(answer), nil
}

// recentHistory keeps the last turns so long conversations stay inside the
// model's context budget.
func recentHistory(history []models.Message) []models.Message {
	limit := 2 * maxHistoryTurns
	if len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

// SystemPrompt builds the answering instructions in the question's
// language, with the member's profile inlined.
func SystemPrompt(profile *models.Profile, language models.Language) string {
	var b strings.Builder

	if language == models.LanguageHebrew {
		b.WriteString("אתה עוזר שירות לקוחות ידידותי ומקצועי המספק מידע על שירותי בריאות בישראל.\n")
		b.WriteString("תפקידך לענות על שאלות במדויק על סמך המידע בבסיס הידע ופרופיל המשתמש.\n\n")

		fmt.Fprintf(&b, "פרופיל המשתמש:\n")
		fmt.Fprintf(&b, "- שם: %s %s\n", profile.FirstName, profile.LastName)
		fmt.Fprintf(&b, "- גיל: %d\n", profile.Age)
		fmt.Fprintf(&b, "- מגדר: %s\n", profile.Gender)
		fmt.Fprintf(&b, "- קופת חולים: %s\n", profile.Insurer.Hebrew())
		fmt.Fprintf(&b, "- רמת ביטוח: %s\n\n", profile.Tier.Hebrew())

		b.WriteString("הנחיות:\n")
		b.WriteString("1. השתמש תמיד בשפה בה המשתמש פונה אליך (עברית או אנגלית).\n")
		b.WriteString("2. ספק מידע ספציפי לקופת החולים ורמת הביטוח של המשתמש.\n")
		b.WriteString("3. השתמש בכל מידע רלוונטי ממסמך ההקשר, גם אם אינו תואם באופן מושלם.\n")
		b.WriteString("4. ציין שהמידע אינו זמין רק אם אינך מוצא פרטים רלוונטיים כלשהם בהקשר.\n")
		b.WriteString("5. היה מנומס, מקצועי ותמציתי.\n")
		b.WriteString("6. בסס את תשובותיך אך ורק על המידע שסופק במסמך ההקשר.\n")
		b.WriteString("7. אל תעביר ביקורת על קופות חולים או שירותים.\n")
		b.WriteString("8. אל תציע אבחנות רפואיות או המלצות טיפוליות.\n")
		return b.String()
	}

	b.WriteString("You are a friendly and professional customer service assistant providing information about health services in Israel.\n")
	b.WriteString("Your role is to answer questions accurately based on the knowledge base and the user's profile.\n\n")

	fmt.Fprintf(&b, "User Profile:\n")
	fmt.Fprintf(&b, "- Name: %s %s\n", profile.FirstName, profile.LastName)
	fmt.Fprintf(&b, "- Age: %d\n", profile.Age)
	fmt.Fprintf(&b, "- Gender: %s\n", profile.Gender)
	fmt.Fprintf(&b, "- HMO: %s\n", profile.Insurer)
	fmt.Fprintf(&b, "- Insurance Tier: %s\n\n", profile.Tier)

	b.WriteString("Guidelines:\n")
	b.WriteString("1. Always use the language in which the user addresses you (Hebrew or English).\n")
	b.WriteString("2. Provide information specific to the user's HMO and insurance tier.\n")
	b.WriteString("3. Use any relevant information from the context document, even if it is not a perfect match.\n")
	b.WriteString("4. Only state that information is not available if you cannot find any relevant details in the context.\n")
	b.WriteString("5. Be polite, professional, and concise.\n")
	b.WriteString("6. Base your answers only on the information provided in the context document.\n")
	b.WriteString("7. Do not criticize HMOs or services.\n")
	b.WriteString("8. Do not offer medical diagnoses or treatment recommendations.\n")
	return b.String()
}

// ContextBlock formats the retrieved fragments as a second system message.
// An empty bundle becomes an explicit instruction to say so rather than
// improvise.
func ContextBlock(bundle *models.ContextBundle, language models.Language) string {
	if bundle.Empty() {
		if language == models.LanguageHebrew {
			return "לא נמצא מידע רלוונטי בבסיס הידע לשאלה זו. הודע למשתמש שאין לך מידע זמין בנושא, ואל תנחש."
		}
		return "No grounding material was found in the knowledge base for this question. Tell the user the information is not available; do not guess."
	}

	var b strings.Builder
	b.WriteString("Context information extracted from the knowledge base:\n\n")
	for i, sf := range bundle.Fragments {
		fmt.Fprintf(&b, "--- Document %d (source: %s) ---\n", i+1, sf.Fragment.DocID)
		b.WriteString(sf.Fragment.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}
