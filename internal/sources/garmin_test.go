package sources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/devpulse/devpulse/internal/activity"
)

type garminServer struct {
	*httptest.Server
	requests   []string
	activities string
	daily      string
	failFetch  bool
}

func newGarminServer(t *testing.T) *garminServer {
	gs := &garminServer{
		activities: "[]",
		daily:      `{"totalSteps": 12345, "totalKilocalories": 2100}`,
	}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gs.requests = append(gs.requests, r.URL.Path)
		switch {
		case r.URL.Path == "/auth/login":
			io.WriteString(w, `{"token": "session-token"}`)
		case r.URL.Path == "/auth/logout":
			if r.Header.Get("Authorization") != "Bearer session-token" {
				t.Errorf("logout missing session token, got %q", r.Header.Get("Authorization"))
			}
			w.WriteHeader(http.StatusNoContent)
		case strings.HasPrefix(r.URL.Path, "/activitylist-service/"):
			if gs.failFetch {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			io.WriteString(w, gs.activities)
		case strings.HasPrefix(r.URL.Path, "/usersummary-service/"):
			io.WriteString(w, gs.daily)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	return gs
}

func newTestGarminAdapter(serverURL string, dailySummary bool) *GarminAdapter {
	a := NewGarminAdapter("runner@example.com", "pw", "- Did a {distance} km {activity_type} workout ({avg_hr} bpm avg).",
		dailySummary, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.baseURL = serverURL
	a.now = func() time.Time { return testNow }
	return a
}

func TestGarminFetchNormalizesWorkouts(t *testing.T) {
	gs := newGarminServer(t)
	defer gs.Close()
	gs.activities = `[
		{
			"activityId": 101,
			"activityType": {"typeKey": "trail_running"},
			"startTimeGMT": "2026-09-01 06:30:00",
			"distance": 8200,
			"duration": 2700,
			"averageHR": 151,
			"maxHR": 176,
			"calories": 540
		},
		{
			"activityId": 101,
			"activityType": {"typeKey": "trail_running"},
			"startTimeGMT": "2026-09-01 06:30:00"
		},
		{
			"activityId": 102,
			"activityType": {"typeKey": "lap_swimming"},
			"startTimeGMT": "2026-09-01 07:45:00"
		}
	]`

	acts, err := newTestGarminAdapter(gs.URL, false).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(acts) != 2 {
		t.Fatalf("expected 2 activities after dedup, got %d", len(acts))
	}

	run := acts[0]
	if run.Kind != activity.KindFitnessSummary {
		t.Errorf("unexpected kind %q", run.Kind)
	}
	if run.Summary != "- Did a 8.2 km Trail Running workout (151 bpm avg)." {
		t.Errorf("unexpected summary %q", run.Summary)
	}
	if run.URL != "https://connect.garmin.com/modern/activity/101" {
		t.Errorf("unexpected url %q", run.URL)
	}
	if run.Workout == nil || run.Workout.AverageHR == nil || *run.Workout.AverageHR != 151 {
		t.Errorf("unexpected workout details %+v", run.Workout)
	}

	// Missing metrics fall back to N/A rather than dropping the record.
	swim := acts[1]
	if !strings.Contains(swim.Summary, "N/A bpm avg") {
		t.Errorf("expected N/A for missing heart rate, got %q", swim.Summary)
	}
	if strings.TrimSpace(swim.Summary) == "" {
		t.Error("summary must never be empty")
	}
}

func TestGarminFetchSessionLifecycle(t *testing.T) {
	gs := newGarminServer(t)
	defer gs.Close()

	if _, err := newTestGarminAdapter(gs.URL, false).Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if gs.requests[0] != "/auth/login" {
		t.Errorf("expected login first, got %q", gs.requests[0])
	}
	if last := gs.requests[len(gs.requests)-1]; last != "/auth/logout" {
		t.Errorf("expected logout last, got %q", last)
	}
}

func TestGarminFetchLogsOutOnError(t *testing.T) {
	gs := newGarminServer(t)
	defer gs.Close()
	gs.failFetch = true

	if _, err := newTestGarminAdapter(gs.URL, false).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for failing activity fetch")
	}

	var loggedOut bool
	for _, path := range gs.requests {
		if path == "/auth/logout" {
			loggedOut = true
		}
	}
	if !loggedOut {
		t.Error("expected logout even when the fetch fails mid-session")
	}
}

func TestGarminDailySummaryVariant(t *testing.T) {
	gs := newGarminServer(t)
	defer gs.Close()

	acts, err := newTestGarminAdapter(gs.URL, true).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(acts) != 1 {
		t.Fatalf("expected 1 daily-summary activity, got %d", len(acts))
	}

	daily := acts[0]
	if daily.Kind != activity.KindFitnessDailySummary {
		t.Errorf("unexpected kind %q", daily.Kind)
	}
	if daily.PromptKey("garmin") != "garmin_daily" {
		t.Errorf("expected garmin_daily prompt key, got %q", daily.PromptKey("garmin"))
	}
	if !strings.Contains(daily.Summary, "12345 steps") {
		t.Errorf("unexpected summary %q", daily.Summary)
	}
	if daily.Daily == nil || daily.Daily.Steps != 12345 {
		t.Errorf("unexpected daily details %+v", daily.Daily)
	}
}

func TestGarminDailySummarySkippedWhenWorkoutsExist(t *testing.T) {
	gs := newGarminServer(t)
	defer gs.Close()
	gs.activities = `[{"activityId": 7, "activityType": {"typeKey": "running"}, "startTimeGMT": "2026-09-01 06:00:00"}]`

	acts, err := newTestGarminAdapter(gs.URL, true).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(acts) != 1 || acts[0].Kind != activity.KindFitnessSummary {
		t.Fatalf("expected only the workout activity, got %+v", acts)
	}
	for _, path := range gs.requests {
		if strings.HasPrefix(path, "/usersummary-service/") {
			t.Error("daily summary must not be fetched when workouts exist")
		}
	}
}

func TestGarminLoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	acts, err := newTestGarminAdapter(server.URL, false).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for failed login")
	}
	if !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("expected authentication error, got: %v", err)
	}
	if len(acts) != 0 {
		t.Errorf("expected no activities, got %d", len(acts))
	}
}

func TestTitleCase(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"trail running", "Trail Running"},
		{"open water swimming", "Open Water Swimming"},
		{"über ride", "Über Ride"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := titleCase(tc.in); got != tc.want {
			t.Errorf("titleCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
