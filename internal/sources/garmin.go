package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/devpulse/devpulse/internal/activity"
)

const (
	garminAPIBase = "https://connectapi.garmin.com"

	defaultWorkoutSummary = "- Completed a workout"
	dailySummaryFormat    = "- Logged {steps} steps and {calories} kcal today"

	// Prompt-selection key emitted when a fetch yields only the daily
	// totals instead of recorded workouts.
	garminDailyKey = "garmin_daily"
)

// GarminAdapter fetches recent workouts from Garmin Connect. It owns a
// provider session for the duration of one fetch: login, fetch, and
// always logout, including on mid-fetch failure.
type GarminAdapter struct {
	username     string
	password     string
	format       string
	dailySummary bool
	baseURL      string

	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewGarminAdapter creates a Garmin Connect adapter. When dailySummary
// is set and the window holds no workouts, the adapter emits a single
// daily-totals activity instead.
func NewGarminAdapter(username, password, format string, dailySummary bool, logger *slog.Logger) *GarminAdapter {
	return &GarminAdapter{
		username:     username,
		password:     password,
		format:       format,
		dailySummary: dailySummary,
		baseURL:      garminAPIBase,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the adapter identifier.
func (a *GarminAdapter) Name() string { return "garmin" }

// garminActivity models the subset of the activity list payload we
// consume. Metric fields are pointers because the provider omits them
// for some activity types.
type garminActivity struct {
	ActivityID   int64 `json:"activityId"`
	ActivityType struct {
		TypeKey string `json:"typeKey"`
	} `json:"activityType"`
	StartTimeGMT string   `json:"startTimeGMT"` // "2006-01-02 15:04:05"
	Distance     *float64 `json:"distance"`     // meters
	Duration     *float64 `json:"duration"`     // seconds
	AverageHR    *float64 `json:"averageHR"`
	MaxHR        *float64 `json:"maxHR"`
	Calories     *float64 `json:"calories"`
}

type garminDaily struct {
	TotalSteps        int      `json:"totalSteps"`
	TotalKilocalories *float64 `json:"totalKilocalories"`
}

// Fetch logs in, retrieves the trailing day's workouts, and logs out on
// every exit path. Workouts are deduplicated by activity id within the
// fetch; one malformed record never aborts the rest.
func (a *GarminAdapter) Fetch(ctx context.Context) (acts []activity.Activity, err error) {
	a.logger.Info("fetching garmin activity", "user", a.username)

	token, err := a.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("garmin login: %w", err)
	}
	defer func() {
		if logoutErr := a.logout(ctx, token); logoutErr != nil {
			a.logger.Warn("garmin logout failed", "error", logoutErr)
		}
	}()

	end := a.now().UTC()
	start := end.Add(-Window)

	workouts, err := a.listActivities(ctx, token, start, end)
	if err != nil {
		return nil, fmt.Errorf("garmin activities: %w", err)
	}

	seenIDs := make(map[int64]struct{})
	for _, workout := range workouts {
		if _, seen := seenIDs[workout.ActivityID]; seen {
			continue
		}
		seenIDs[workout.ActivityID] = struct{}{}

		acts = append(acts, a.normalizeWorkout(workout))
	}

	if len(acts) == 0 && a.dailySummary {
		daily, dailyErr := a.fetchDaily(ctx, token, end)
		if dailyErr != nil {
			a.logger.Warn("garmin daily summary unavailable", "error", dailyErr)
		} else {
			acts = append(acts, a.normalizeDaily(daily, end))
		}
	}

	a.logger.Info("garmin fetch finished", "activities", len(acts))
	return acts, nil
}

func (a *GarminAdapter) normalizeWorkout(workout garminActivity) activity.Activity {
	typeKey := workout.ActivityType.TypeKey
	if typeKey == "" {
		typeKey = "unknown"
	}
	typeName := titleCase(strings.ReplaceAll(typeKey, "_", " "))

	var distanceKm, durationSeconds float64
	if workout.Distance != nil {
		distanceKm = *workout.Distance / 1000.0
	}
	if workout.Duration != nil {
		durationSeconds = *workout.Duration
	}

	timestamp, err := time.Parse("2006-01-02 15:04:05", workout.StartTimeGMT)
	if err != nil {
		timestamp = a.now().UTC()
	} else {
		timestamp = timestamp.UTC()
	}

	fields := map[string]string{
		"activity_type": typeName,
		"distance":      fmt.Sprintf("%.1f", distanceKm),
		"duration":      fmt.Sprintf("%.0f min", durationSeconds/60),
		"avg_hr":        formatMetric(workout.AverageHR, "%.0f"),
		"max_hr":        formatMetric(workout.MaxHR, "%.0f"),
		"calories":      formatMetric(workout.Calories, "%.0f"),
	}

	summary, err := activity.Render(a.format, fields)
	if err != nil {
		a.logger.Warn("activity format has unresolved fields, using default summary", "error", err)
		summary = defaultWorkoutSummary
	}
	if strings.TrimSpace(summary) == "" {
		summary = defaultWorkoutSummary
	}

	var url string
	if workout.ActivityID != 0 {
		url = fmt.Sprintf("https://connect.garmin.com/modern/activity/%d", workout.ActivityID)
	}

	return activity.Activity{
		Kind:      activity.KindFitnessSummary,
		Timestamp: timestamp,
		Type:      typeKey,
		Summary:   summary,
		URL:       url,
		Workout: &activity.WorkoutDetails{
			ActivityID:      workout.ActivityID,
			DistanceKm:      distanceKm,
			DurationSeconds: durationSeconds,
			AverageHR:       workout.AverageHR,
			MaxHR:           workout.MaxHR,
			Calories:        workout.Calories,
		},
	}
}

func (a *GarminAdapter) normalizeDaily(daily garminDaily, day time.Time) activity.Activity {
	fields := map[string]string{
		"steps":    strconv.Itoa(daily.TotalSteps),
		"calories": formatMetric(daily.TotalKilocalories, "%.0f"),
	}
	summary, _ := activity.Render(dailySummaryFormat, fields)

	return activity.Activity{
		Kind:          activity.KindFitnessDailySummary,
		Timestamp:     day,
		Type:          "daily_summary",
		Summary:       summary,
		Discriminator: garminDailyKey,
		Daily: &activity.DailyDetails{
			Steps:    daily.TotalSteps,
			Calories: daily.TotalKilocalories,
		},
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func formatMetric(value *float64, format string) string {
	if value == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *value)
}

type garminLoginResponse struct {
	Token string `json:"token"`
}

func (a *GarminAdapter) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": a.username,
		"password": a.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("authentication failed (status %d)", resp.StatusCode)
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("rate limited (status %d)", resp.StatusCode)
	default:
		return "", fmt.Errorf("login returned status %d: %s", resp.StatusCode, string(body))
	}

	var login garminLoginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return "", fmt.Errorf("parse login response: %w", err)
	}
	if login.Token == "" {
		return "", fmt.Errorf("login response missing token")
	}

	a.logger.Debug("garmin login successful")
	return login.Token, nil
}

func (a *GarminAdapter) logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request logout: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout returned status %d", resp.StatusCode)
	}

	a.logger.Debug("garmin logout successful")
	return nil
}

func (a *GarminAdapter) listActivities(ctx context.Context, token string, start, end time.Time) ([]garminActivity, error) {
	url := fmt.Sprintf("%s/activitylist-service/activities/search/activities?startDate=%s&endDate=%s",
		a.baseURL, start.Format("2006-01-02"), end.Format("2006-01-02"))

	body, err := a.get(ctx, token, url)
	if err != nil {
		return nil, err
	}

	var workouts []garminActivity
	if err := json.Unmarshal(body, &workouts); err != nil {
		return nil, fmt.Errorf("parse activities: %w", err)
	}
	return workouts, nil
}

func (a *GarminAdapter) fetchDaily(ctx context.Context, token string, day time.Time) (garminDaily, error) {
	url := fmt.Sprintf("%s/usersummary-service/usersummary/daily?calendarDate=%s",
		a.baseURL, day.Format("2006-01-02"))

	body, err := a.get(ctx, token, url)
	if err != nil {
		return garminDaily{}, err
	}

	var daily garminDaily
	if err := json.Unmarshal(body, &daily); err != nil {
		return garminDaily{}, fmt.Errorf("parse daily summary: %w", err)
	}
	return daily, nil
}

func (a *GarminAdapter) get(ctx context.Context, token, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("garmin API returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
