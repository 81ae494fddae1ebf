package generator

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	openai "github.com/sashabaranov/go-openai"

	"github.com/devpulse/devpulse/internal/activity"
)

const (
	// Hard platform limit for a single post, in characters.
	maxPostRunes = 280
	// Cut point that leaves room for the appended ellipsis.
	truncateAt = 277
	ellipsis   = "..."

	requestTimeout = 120 * time.Second
	temperature    = 0.7
)

// chatCompleter is the slice of the OpenAI client the generator uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator turns batches of activities into ready-to-publish post
// texts, and published posts into follow-up replies. Every outcome
// short of a usable post is non-fatal: the methods log the cause and
// return nothing.
type Generator struct {
	client  chatCompleter
	model   string
	persona string
	logger  *slog.Logger
}

// New creates a generator backed by the OpenAI API.
func New(apiKey, model, persona string, logger *slog.Logger) *Generator {
	return &Generator{
		client:  openai.NewClient(apiKey),
		model:   model,
		persona: persona,
		logger:  logger,
	}
}

// Posts generates post texts for one batch of activities. The whole
// batch is covered by a single generation call; the model output is
// split into candidate posts on blank lines and each candidate is
// length-constrained. An empty batch, a missing template, a blocked
// generation, or any API failure yields nil.
func (g *Generator) Posts(ctx context.Context, activities []activity.Activity, template string) []string {
	if len(activities) == 0 {
		g.logger.Info("no activities provided, skipping generation")
		return nil
	}
	if template == "" {
		g.logger.Warn("no prompt template configured, skipping generation")
		return nil
	}

	summaries := make([]string, 0, len(activities))
	for _, act := range activities {
		summaries = append(summaries, act.Summary)
	}

	prompt := g.renderPrompt(template, map[string]string{
		"persona":          g.persona,
		"activity_summary": strings.Join(summaries, "\n"),
	})

	text, ok := g.complete(ctx, prompt)
	if !ok {
		return nil
	}

	var posts []string
	for _, candidate := range strings.Split(text, "\n\n") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if len([]rune(candidate)) > maxPostRunes {
			g.logger.Warn("truncating generated post over character limit", "length", len([]rune(candidate)))
		}
		posts = append(posts, TruncatePost(candidate))
	}

	if len(posts) == 0 {
		g.logger.Warn("model output contained no usable posts")
		return nil
	}

	g.logger.Info("generated posts", "count", len(posts))
	return posts
}

// FollowUp generates a single contextual reply to an already-published
// post. All of the original text, the originating activity, and a
// template are required; with any of them missing there is nothing to
// follow up with and the result is empty.
func (g *Generator) FollowUp(ctx context.Context, originalText string, act *activity.Activity, template string) string {
	if originalText == "" || act == nil || template == "" {
		g.logger.Debug("follow-up preconditions not met, skipping")
		return ""
	}

	prompt := g.renderPrompt(template, map[string]string{
		"persona":          g.persona,
		"original_post":    originalText,
		"activity_summary": act.Summary,
		"activity_url":     act.URL,
	})

	text, ok := g.complete(ctx, prompt)
	if !ok {
		return ""
	}

	if runes := []rune(text); len(runes) > maxPostRunes {
		g.logger.Warn("truncating follow-up over character limit", "length", len(runes))
		text = string(runes[:truncateAt]) + ellipsis
	}

	return text
}

// complete issues one generation call and returns the trimmed output.
// A blocked generation is logged distinctly from a generic failure.
func (g *Generator) complete(ctx context.Context, prompt string) (string, bool) {
	apiCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(apiCtx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		g.logger.Error("generation call failed", "error", err)
		return "", false
	}
	if len(resp.Choices) == 0 {
		g.logger.Error("model returned no choices")
		return "", false
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		g.logger.Warn("generation blocked by content filter", "finish_reason", choice.FinishReason)
		return "", false
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		g.logger.Error("model returned empty text", "finish_reason", choice.FinishReason)
		return "", false
	}
	return text, true
}

func (g *Generator) renderPrompt(template string, fields map[string]string) string {
	prompt, err := activity.Render(template, fields)
	if err != nil {
		g.logger.Warn("prompt template has unresolved fields", "error", err)
	}
	return prompt
}

// TruncatePost enforces the platform character limit. Overlong text is
// cut at the last whitespace before the limit and an ellipsis is
// appended; with no whitespace to cut at, the text is hard-cut instead.
func TruncatePost(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPostRunes {
		return text
	}

	head := runes[:truncateAt]
	lastSpace := -1
	for i, r := range head {
		if unicode.IsSpace(r) {
			lastSpace = i
		}
	}

	if lastSpace != -1 {
		return string(head[:lastSpace]) + ellipsis
	}
	return string(head) + ellipsis
}
