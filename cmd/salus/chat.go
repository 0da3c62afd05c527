package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/salus/internal/app"
	"github.com/ternarybob/salus/internal/models"
	"github.com/ternarybob/salus/internal/services/llm"
)

// runChat drives an interactive console conversation. The console is the
// client: it owns the full conversation state and ships it through every
// turn, the way an HTTP caller would.
func runChat(application *app.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := models.NewConversationState()

	fmt.Println("Welcome! I can answer questions about your health fund benefits.")
	fmt.Println("First I need a few details. Type 'reset' at any time to start over, or 'quit' to exit.")
	fmt.Println()
	fmt.Println("What is your first name?")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" {
			continue
		}
		if utterance == "quit" || utterance == "exit" {
			break
		}

		next, reply, err := application.Machine.ProcessTurn(ctx, state, utterance)
		if err != nil {
			if errors.Is(err, models.ErrRetrievalUnavailable) || errors.Is(err, models.ErrGenerationUnavailable) {
				// The state did not advance, so the same question can be retried.
				fmt.Println(unavailableReply(utterance, err))
				application.Logger.Warn().Err(err).
					Bool("rate_limited", llm.IsRateLimitError(err)).
					Dur("retry_after", llm.ExtractRetryDelay(err)).
					Msg("Turn failed, state preserved")
				continue
			}
			return err
		}

		state = next
		fmt.Println(reply)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("console input failed: %w", err)
	}

	fmt.Println("Goodbye!")
	return nil
}

// unavailableReply builds the user-facing message for a failed turn. When
// the provider suggested a retry delay, the message passes it on.
func unavailableReply(utterance string, err error) string {
	hebrew := models.DetectLanguage(utterance) == models.LanguageHebrew

	if delay := llm.ExtractRetryDelay(err); delay > 0 {
		seconds := int(delay.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		if hebrew {
			return fmt.Sprintf("מצטער, לא ניתן לענות כרגע. נסה שוב בעוד %d שניות.", seconds)
		}
		return fmt.Sprintf("Sorry, I can't answer right now. Please try again in %d seconds.", seconds)
	}

	if llm.IsRateLimitError(err) {
		if hebrew {
			return "מצטער, השירות עמוס כרגע. נסה שוב בעוד רגע."
		}
		return "Sorry, the service is busy right now. Please try again in a moment."
	}

	if hebrew {
		return "מצטער, לא ניתן לענות כרגע. נסה שוב בעוד רגע."
	}
	return "Sorry, I can't answer right now. Please try again in a moment."
}
