package activity

import (
	"time"
)

// SourceKind identifies the provenance of an activity. The set is
// closed: each kind has a dedicated adapter and detail record.
type SourceKind string

const (
	KindCommitEvent         SourceKind = "commit-event"
	KindFitnessSummary      SourceKind = "fitness-summary"
	KindFitnessDailySummary SourceKind = "fitness-daily-summary"
)

// Activity is the normalized record every source adapter produces.
// Summary is pre-rendered text and is what the language model reads;
// it is never empty on an emitted Activity.
type Activity struct {
	Kind      SourceKind
	Timestamp time.Time
	Type      string
	Summary   string
	URL       string

	// Discriminator, when set, overrides the source-level
	// prompt-selection key for the batch this activity leads.
	Discriminator string

	// Exactly one of the following is set, matching Kind.
	Commit  *CommitDetails
	Workout *WorkoutDetails
	Daily   *DailyDetails
}

// CommitDetails holds the raw fields of a commit event.
type CommitDetails struct {
	Repo         string
	RepoFullName string
	Message      string
	SHA          string
}

// WorkoutDetails holds the raw metrics of a recorded workout. Pointer
// fields are absent when the provider did not report them.
type WorkoutDetails struct {
	ActivityID      int64
	DistanceKm      float64
	DurationSeconds float64
	AverageHR       *float64
	MaxHR           *float64
	Calories        *float64
}

// DailyDetails holds daily-total metrics for days without a workout.
type DailyDetails struct {
	Steps    int
	Calories *float64
}

// PromptKey returns the key that selects prompt templates for a batch
// led by this activity: the per-activity discriminator when present,
// otherwise the source's declared key.
func (a Activity) PromptKey(sourceKey string) string {
	if a.Discriminator != "" {
		return a.Discriminator
	}
	return sourceKey
}
