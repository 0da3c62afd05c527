package composer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/interfaces"
	"github.com/ternarybob/salus/internal/models"
)

// recordingLLM captures the messages sent to Chat.
type recordingLLM struct {
	messages []interfaces.Message
	response string
	chatErr  error
}

func (r *recordingLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("not used")
}

func (r *recordingLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	r.messages = messages
	if r.chatErr != nil {
		return "", r.chatErr
	}
	return r.response, nil
}

func (r *recordingLLM) HealthCheck(ctx context.Context) error { return nil }
func (r *recordingLLM) GetMode() interfaces.LLMMode           { return interfaces.LLMModeCloud }
func (r *recordingLLM) Close() error                          { return nil }

func goldProfile() *models.Profile {
	return &models.Profile{
		FirstName:  "Dana",
		LastName:   "Levi",
		IDNumber:   "12345",
		Gender:     "female",
		Age:        34,
		Insurer:    models.InsurerMaccabi,
		CardNumber: "998877",
		Tier:       models.TierGold,
	}
}

func dentalBundle() *models.ContextBundle {
	return &models.ContextBundle{Fragments: []models.ScoredFragment{
		{Fragment: &models.Fragment{
			ID:    "dentel_services:1",
			DocID: "dentel_services",
			Text:  "Service: root canal\nHMO: מכבי\nDetails: gold plan 80% discount",
		}, Score: 0.8},
	}}
}

func TestComposeSendsProfileAndContext(t *testing.T) {
	llm := &recordingLLM{response: "Root canals are covered at 80%."}
	c := NewComposer(llm, arbor.NewLogger())

	answer, err := c.Compose(context.Background(), "What dental coverage do I have?", goldProfile(), dentalBundle(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Root canals are covered at 80%.", answer)

	require.GreaterOrEqual(t, len(llm.messages), 3)

	system := llm.messages[0]
	assert.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content, "Dana Levi")
	assert.Contains(t, system.Content, "maccabi")
	assert.Contains(t, system.Content, "gold")
	assert.Contains(t, system.Content, "Do not offer medical diagnoses")
	assert.Contains(t, system.Content, "Do not criticize HMOs")

	contextMsg := llm.messages[1]
	assert.Equal(t, "system", contextMsg.Role)
	assert.Contains(t, contextMsg.Content, "dentel_services")
	assert.Contains(t, contextMsg.Content, "80% discount")

	last := llm.messages[len(llm.messages)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "What dental coverage do I have?", last.Content)
}

func TestComposeHebrewQuestionUsesHebrewPrompt(t *testing.T) {
	llm := &recordingLLM{response: "תשובה"}
	c := NewComposer(llm, arbor.NewLogger())

	_, err := c.Compose(context.Background(), "מה הכיסוי לטיפולי שיניים?", goldProfile(), dentalBundle(), nil)
	require.NoError(t, err)

	system := llm.messages[0]
	assert.Contains(t, system.Content, "קופת חולים")
	assert.Contains(t, system.Content, "מכבי")
	assert.Contains(t, system.Content, "זהב")
}

func TestComposeEmptyBundleInstruction(t *testing.T) {
	llm := &recordingLLM{response: "I do not have that information."}
	c := NewComposer(llm, arbor.NewLogger())

	_, err := c.Compose(context.Background(), "Is skydiving insurance included?", goldProfile(), &models.ContextBundle{}, nil)
	require.NoError(t, err)

	contextMsg := llm.messages[1]
	assert.Contains(t, contextMsg.Content, "No grounding material was found")
	assert.Contains(t, contextMsg.Content, "do not guess")
}

func TestComposeGenerationFailure(t *testing.T) {
	llm := &recordingLLM{chatErr: fmt.Errorf("503 model overloaded")}
	c := NewComposer(llm, arbor.NewLogger())

	_, err := c.Compose(context.Background(), "What dental coverage do I have?", goldProfile(), dentalBundle(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrGenerationUnavailable))
}

func TestComposeTruncatesLongHistory(t *testing.T) {
	llm := &recordingLLM{response: "ok"}
	c := NewComposer(llm, arbor.NewLogger())

	history := make([]models.Message, 0, 60)
	for i := 0; i < 30; i++ {
		history = append(history,
			models.Message{Role: "user", Content: fmt.Sprintf("question %d", i)},
			models.Message{Role: "assistant", Content: fmt.Sprintf("answer %d", i)},
		)
	}

	_, err := c.Compose(context.Background(), "latest question", goldProfile(), dentalBundle(), history)
	require.NoError(t, err)

	// 2 system + 20 history + 1 user question.
	assert.Len(t, llm.messages, 23)
	assert.Equal(t, "question 20", llm.messages[2].Content)
}
