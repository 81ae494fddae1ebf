package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/devpulse/devpulse/internal/activity"
	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/sources"
)

// Delay before a follow-up reply is posted under its primary.
const followUpDelay = 10 * time.Second

// ContentGenerator produces post texts from an activity batch and
// optional follow-up replies for published posts.
type ContentGenerator interface {
	Posts(ctx context.Context, activities []activity.Activity, template string) []string
	FollowUp(ctx context.Context, originalText string, act *activity.Activity, template string) string
}

// Publisher posts text, optionally threading it as a reply.
type Publisher interface {
	Publish(ctx context.Context, text, inReplyTo string) (string, bool)
}

// SourceBinding pairs a prompt-selection key with its adapter. The
// slice order given to New is the processing order.
type SourceBinding struct {
	Key     string
	Adapter sources.Adapter
}

// Item is one ready-to-publish post text plus the context needed for an
// optional follow-up.
type Item struct {
	Key    string
	Text   string
	Origin *activity.Activity
}

// Summary is the run outcome reported to the user.
type Summary struct {
	ActivitiesFetched int
	ContentGenerated  int
	PostsAttempted    int
	PostsSent         int
}

// String renders the summary block printed at the end of every run.
func (s Summary) String() string {
	return fmt.Sprintf(
		"--- Summary ---\nFetched %d activities.\nGenerated %d posts (attempted to send %d).\nSuccessfully posted %d times.",
		s.ActivitiesFetched, s.ContentGenerated, s.PostsAttempted, s.PostsSent)
}

// Runner wires sources, generation, and publishing into one sequential
// run. One failing source or one failed post never aborts the run; the
// only fatal preconditions are handled before a Runner exists.
type Runner struct {
	cfg       config.Config
	bindings  []SourceBinding
	generator ContentGenerator
	publisher Publisher
	logger    *slog.Logger

	// Injected for tests.
	sleep func(time.Duration)
	randN func(int) int
}

// New creates a runner. publisher may be nil when no posting target is
// enabled; the run then stops after generation.
func New(cfg config.Config, bindings []SourceBinding, gen ContentGenerator, pub Publisher, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		bindings:  bindings,
		generator: gen,
		publisher: pub,
		logger:    logger,
		sleep:     time.Sleep,
		randN:     rand.Intn,
	}
}

// Run executes one full fetch, generate, post cycle and returns the
// summary.
func (r *Runner) Run(ctx context.Context) Summary {
	r.startDelay()

	var summary Summary

	r.logger.Info("fetching activity", "sources", len(r.bindings))
	items := r.collect(ctx, &summary)

	if len(items) == 0 {
		r.logger.Info("no content generated, nothing to post")
		return summary
	}

	if r.publisher == nil {
		r.logger.Warn("no posting target enabled, skipping posting")
		return summary
	}

	r.post(ctx, items, &summary)
	return summary
}

// startDelay blocks for a random interval before the run begins, so
// posting times stay unpredictable.
func (r *Runner) startDelay() {
	max := r.cfg.Posting.StartDelayMaxSeconds
	if max <= 0 {
		return
	}
	delay := time.Duration(r.randN(max+1)) * time.Second
	r.logger.Info("delaying run start", "delay", delay.String())
	r.sleep(delay)
}

// collect fetches every bound source in order and generates content per
// batch. Each source is failure-isolated from the others.
func (r *Runner) collect(ctx context.Context, summary *Summary) []Item {
	var items []Item

	for _, binding := range r.bindings {
		acts, err := binding.Adapter.Fetch(ctx)
		if err != nil {
			r.logger.Error("source fetch failed, skipping source",
				"source", binding.Adapter.Name(), "error", err)
			continue
		}
		if len(acts) == 0 {
			r.logger.Info("source returned no activity", "source", binding.Adapter.Name())
			continue
		}
		summary.ActivitiesFetched += len(acts)

		// The first activity's discriminator governs the whole
		// batch's template and follow-up lookup.
		key := acts[0].PromptKey(binding.Key)
		template := r.cfg.LLM.SourcePrompts[key]
		if template == "" {
			template = r.cfg.LLM.DefaultPromptTemplate
		}
		if template == "" {
			r.logger.Warn("no prompt template for source, skipping generation",
				"source", binding.Adapter.Name(), "prompt_key", key)
			continue
		}

		r.logger.Info("generating content",
			"source", binding.Adapter.Name(), "prompt_key", key, "activities", len(acts))

		texts := r.generator.Posts(ctx, acts, template)
		origin := &acts[0]
		for _, text := range texts {
			items = append(items, Item{Key: key, Text: text, Origin: origin})
		}
		summary.ContentGenerated += len(texts)
	}

	return items
}

// post publishes up to the configured cap, sleeping between primary
// posts but never after the last one. A failed post is logged and the
// loop continues.
func (r *Runner) post(ctx context.Context, items []Item, summary *Summary) {
	toSend := items
	if max := r.cfg.Posting.MaxPostsPerRun; len(toSend) > max {
		r.logger.Info("capping posts for this run", "generated", len(items), "max", max)
		toSend = toSend[:max]
	}

	r.logger.Info("posting content", "count", len(toSend))

	for i, item := range toSend {
		summary.PostsAttempted++

		id, ok := r.publisher.Publish(ctx, item.Text, "")
		if ok {
			summary.PostsSent++
			r.followUp(ctx, item, id)
		} else {
			r.logger.Error("post failed, continuing", "prompt_key", item.Key)
		}

		if i < len(toSend)-1 {
			delay := r.cfg.Posting.SleepDuration()
			r.logger.Info("sleeping between posts", "delay", delay.String())
			r.sleep(delay)
		}
	}
}

// followUp posts an optional reply under a just-published post. Every
// failure here is logged and never affects the primary post's recorded
// success.
func (r *Runner) followUp(ctx context.Context, item Item, parentID string) {
	if !r.cfg.Posting.Targets.Twitter.EnableFollowUp || item.Origin == nil {
		return
	}

	template := r.cfg.LLM.FollowUpPrompts[item.Key]
	if template == "" {
		r.logger.Debug("no follow-up template for prompt key", "prompt_key", item.Key)
		return
	}

	reply := r.generator.FollowUp(ctx, item.Text, item.Origin, template)
	if reply == "" {
		return
	}

	r.logger.Info("waiting before follow-up reply", "delay", followUpDelay.String())
	r.sleep(followUpDelay)

	if _, ok := r.publisher.Publish(ctx, reply, parentID); !ok {
		r.logger.Warn("follow-up post failed", "parent_id", parentID, "prompt_key", item.Key)
	}
}
