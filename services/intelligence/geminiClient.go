// Package ai wraps the Gemini generation collaborator behind a transcript
// interface.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"usadba/config"
	"usadba/models"
	"usadba/utils"
)

// GeminiClient generates answers with the Gemini API. In dry-run mode it
// returns a deterministic stub so the pipeline can be exercised without
// credentials.
type GeminiClient struct {
	model   *genai.GenerativeModel
	dryRun  bool
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiClient builds the client from configuration.
func NewGeminiClient(cfg config.Config) *GeminiClient {
	gc := &GeminiClient{
		dryRun:  cfg.LLMDryRun,
		timeout: time.Duration(cfg.LLMTimeout * float64(time.Second)),
		logger:  utils.GetLogger(),
	}
	if gc.dryRun {
		return gc
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		panic(fmt.Sprintf("failed to create Gemini client: %v", err))
	}
	gc.model = client.GenerativeModel(cfg.GeminiModel)
	return gc
}

// Complete renders the transcript into a single prompt and generates a
// response. Transient failures are retried with exponential backoff.
func (g *GeminiClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	if g.dryRun {
		return dryRunAnswer(messages), nil
	}

	prompt := renderTranscript(messages)

	var answer string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.model.GenerateContent(callCtx, genai.Text(prompt))
		if err != nil {
			return fmt.Errorf("gemini generate error: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return backoff.Permanent(fmt.Errorf("gemini returned no candidates"))
		}

		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				sb.WriteString(string(textPart))
			}
		}
		answer = strings.TrimSpace(sb.String())
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		g.logger.Error("gemini completion failed", zap.Error(err))
		return "", err
	}
	return answer, nil
}

// renderTranscript flattens role-tagged messages into one prompt; system
// content leads, then the dialogue in order.
func renderTranscript(messages []models.ChatMessage) string {
	var system []string
	var dialogue []string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			dialogue = append(dialogue, "Ассистент: "+msg.Content)
		default:
			dialogue = append(dialogue, "Гость: "+msg.Content)
		}
	}
	parts := append(system, dialogue...)
	return strings.Join(parts, "\n\n")
}

func dryRunAnswer(messages []models.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			text := messages[i].Content
			if runes := []rune(text); len(runes) > 120 {
				text = string(runes[:120])
			}
			return "Тестовый ответ без обращения к LLM: " + text
		}
	}
	return "Тестовый ответ без обращения к LLM."
}
