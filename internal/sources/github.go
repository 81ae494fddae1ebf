package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/activity"
)

const (
	githubAPIBase = "https://api.github.com"

	// Summary used when the configured activity_format references a
	// field the event does not supply.
	defaultCommitSummary = "- Pushed a commit to {repo}"

	// Upper bound on event pages walked per fetch. The events API caps
	// history at 300 events anyway, so this is never the limiting factor.
	maxEventPages = 10
)

// GitHubAdapter fetches a user's public push events and normalizes each
// commit into a commit-event activity.
type GitHubAdapter struct {
	username string
	token    string
	format   string
	baseURL  string

	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewGitHubAdapter creates a GitHub events adapter.
func NewGitHubAdapter(username, token, format string, logger *slog.Logger) *GitHubAdapter {
	return &GitHubAdapter{
		username: username,
		token:    token,
		format:   format,
		baseURL:  githubAPIBase,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the adapter identifier.
func (a *GitHubAdapter) Name() string { return "github" }

// githubEvent models the subset of the events API payload we consume.
type githubEvent struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Repo      struct {
		Name string `json:"name"` // owner/repo
	} `json:"repo"`
	Payload struct {
		Commits []struct {
			SHA     string `json:"sha"`
			Message string `json:"message"`
		} `json:"commits"`
	} `json:"payload"`
}

// Fetch retrieves push events from the trailing window, paging until an
// event falls outside it. Commits are deduplicated by SHA within the
// fetch; one malformed event never aborts the rest.
func (a *GitHubAdapter) Fetch(ctx context.Context) ([]activity.Activity, error) {
	since := a.now().Add(-Window)
	a.logger.Info("fetching github events", "user", a.username, "since", since)

	var activities []activity.Activity
	seenSHAs := make(map[string]struct{})

	for page := 1; page <= maxEventPages; page++ {
		events, hasNext, err := a.listEvents(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("list github events: %w", err)
		}

		reachedWindow := false
		for _, event := range events {
			// Events arrive newest first; stop at the window boundary.
			if event.CreatedAt.Before(since) {
				reachedWindow = true
				break
			}
			if event.Type != "PushEvent" {
				continue
			}

			fullName := event.Repo.Name
			shortName := fullName
			if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
				shortName = fullName[idx+1:]
			}

			for _, commit := range event.Payload.Commits {
				if commit.SHA == "" {
					continue
				}
				if _, seen := seenSHAs[commit.SHA]; seen {
					continue
				}
				seenSHAs[commit.SHA] = struct{}{}

				message, _, _ := strings.Cut(commit.Message, "\n")

				summary := a.renderSummary(shortName, fullName, message)

				activities = append(activities, activity.Activity{
					Kind:      activity.KindCommitEvent,
					Timestamp: event.CreatedAt,
					Type:      "commit",
					Summary:   summary,
					URL:       fmt.Sprintf("https://github.com/%s/commit/%s", fullName, commit.SHA),
					Commit: &activity.CommitDetails{
						Repo:         shortName,
						RepoFullName: fullName,
						Message:      message,
						SHA:          commit.SHA,
					},
				})

				a.logger.Debug("added commit activity", "repo", shortName, "sha", commit.SHA)
			}
		}

		if reachedWindow || !hasNext || len(events) == 0 {
			break
		}
	}

	a.logger.Info("github fetch finished", "activities", len(activities))
	return activities, nil
}

func (a *GitHubAdapter) renderSummary(repo, repoFullName, message string) string {
	fields := map[string]string{
		"repo":           repo,
		"repo_full_name": repoFullName,
		"message":        message,
	}

	summary, err := activity.Render(a.format, fields)
	if err != nil {
		a.logger.Warn("activity format has unresolved fields, using default summary", "error", err)
		summary, _ = activity.Render(defaultCommitSummary, fields)
	}
	if strings.TrimSpace(summary) == "" {
		summary, _ = activity.Render(defaultCommitSummary, fields)
	}
	return summary
}

// listEvents fetches one page of the user's events. The second return
// reports whether the Link header advertises a further page.
func (a *GitHubAdapter) listEvents(ctx context.Context, page int) ([]githubEvent, bool, error) {
	url := fmt.Sprintf("%s/users/%s/events?per_page=100&page=%d", a.baseURL, a.username, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("request events: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("github API returned status %d: %s", resp.StatusCode, string(body))
	}

	var events []githubEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, false, fmt.Errorf("parse events: %w", err)
	}

	hasNext := strings.Contains(resp.Header.Get("Link"), `rel="next"`)
	return events, hasNext, nil
}
