package social

import (
	"context"
	"log/slog"
	"strings"
)

// Publisher posts text to the platform. It fails fast, without a
// network call, on empty text or missing credentials, and converts any
// platform or transport error into a logged false result.
type Publisher struct {
	client *Client
	dryRun bool
	logger *slog.Logger
}

// NewPublisher creates a publisher over the given client. A nil client
// means credentials were not configured; every publish then fails fast.
// In dry-run mode nothing is sent and a placeholder id is returned.
func NewPublisher(client *Client, dryRun bool, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, dryRun: dryRun, logger: logger}
}

// Publish posts text, threading it as a reply when inReplyTo is set.
// It returns the new post id and whether the attempt succeeded.
func (p *Publisher) Publish(ctx context.Context, text, inReplyTo string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		p.logger.Error("refusing to publish empty text")
		return "", false
	}
	if p.client == nil {
		p.logger.Error("refusing to publish without credentials")
		return "", false
	}

	if p.dryRun {
		p.logger.Info("dry run, not publishing", "text", text, "in_reply_to", inReplyTo)
		return "dry-run", true
	}

	id, err := p.client.PostTweet(ctx, text, inReplyTo)
	if err != nil {
		p.logger.Error("publish failed", "error", err, "in_reply_to", inReplyTo)
		return "", false
	}
	return id, true
}
