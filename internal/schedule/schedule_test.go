package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/agrolab/sample-engine/internal/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestExpectedCompletionSkipsWeekends(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(time.UTC, nil)

	// Friday 2026-01-09. Three business days land on Wednesday 2026-01-14,
	// not Monday.
	friday := time.Date(2026, time.January, 9, 10, 30, 0, 0, time.UTC)

	est, err := estimator.ExpectedCompletion(domain.StatusPending, friday)
	if err != nil {
		t.Fatalf("ExpectedCompletion() unexpected error = %v", err)
	}
	if est == nil {
		t.Fatalf("ExpectedCompletion() = nil, want estimate")
	}

	want := time.Date(2026, time.January, 14, CompletionHour, 0, 0, 0, time.UTC)
	if !est.Date.Equal(want) {
		t.Fatalf("Date = %s, want %s", est.Date, want)
	}
	if est.Weekday != time.Wednesday {
		t.Fatalf("Weekday = %s, want Wednesday", est.Weekday)
	}
}

func TestExpectedCompletionPerStatus(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(time.UTC, nil)
	monday := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  domain.Status
		wantDay int
	}{
		{name: "pending adds three", status: domain.StatusPending, wantDay: 8},
		{name: "processing adds one", status: domain.StatusProcessing, wantDay: 6},
		{name: "partial adds one", status: domain.StatusPartial, wantDay: 6},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			est, err := estimator.ExpectedCompletion(tt.status, monday)
			if err != nil {
				t.Fatalf("ExpectedCompletion() unexpected error = %v", err)
			}
			if est.Date.Day() != tt.wantDay {
				t.Fatalf("Date.Day() = %d, want %d", est.Date.Day(), tt.wantDay)
			}
			if est.Date.Hour() != CompletionHour {
				t.Fatalf("Date.Hour() = %d, want %d", est.Date.Hour(), CompletionHour)
			}
		})
	}
}

func TestExpectedCompletionWeekendStart(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(time.UTC, nil)

	// Saturday start walks day by day like any other start: Sun and Sat do
	// not count, so one business day from Saturday is Monday.
	saturday := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	est, err := estimator.ExpectedCompletion(domain.StatusProcessing, saturday)
	if err != nil {
		t.Fatalf("ExpectedCompletion() unexpected error = %v", err)
	}
	if est.Weekday != time.Monday {
		t.Fatalf("Weekday = %s, want Monday", est.Weekday)
	}
	if est.Date.Day() != 12 {
		t.Fatalf("Date.Day() = %d, want 12", est.Date.Day())
	}
}

func TestExpectedCompletionCompletedHasNoEstimate(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(time.UTC, nil)
	est, err := estimator.ExpectedCompletion(domain.StatusCompleted, time.Now())
	if err != nil {
		t.Fatalf("ExpectedCompletion() unexpected error = %v", err)
	}
	if est != nil {
		t.Fatalf("ExpectedCompletion(completed) = %+v, want nil", est)
	}

	if _, err := estimator.ExpectedCompletion(domain.Status("archived"), time.Now()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ExpectedCompletion(invalid) error = %v, want ErrValidation", err)
	}
}

func TestExpectedCompletionMonotonicity(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(time.UTC, nil)
	start := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	for day := 0; day < 28; day++ {
		createdAt := start.AddDate(0, 0, day)
		for _, status := range []domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusPartial} {
			est, err := estimator.ExpectedCompletion(status, createdAt)
			if err != nil {
				t.Fatalf("ExpectedCompletion(%s, %s) unexpected error = %v", status, createdAt, err)
			}
			if est.Date.Before(createdAt.AddDate(0, 0, 1).Truncate(24 * time.Hour)) {
				t.Fatalf("estimate %s is earlier than created %s + 1 day", est.Date, createdAt)
			}
			if est.Weekday == time.Saturday || est.Weekday == time.Sunday {
				t.Fatalf("estimate for %s landed on %s", createdAt, est.Weekday)
			}
		}
	}
}

func TestExpectedCompletionUsesLabZone(t *testing.T) {
	t.Parallel()

	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("LoadLocation() unexpected error = %v", err)
	}
	estimator := NewEstimator(chicago, nil)

	// 01:00 UTC Saturday is still Friday evening in Chicago, so the walk
	// starts from Friday lab-local.
	utcSaturday := time.Date(2026, time.January, 10, 1, 0, 0, 0, time.UTC)
	est, err := estimator.ExpectedCompletion(domain.StatusProcessing, utcSaturday)
	if err != nil {
		t.Fatalf("ExpectedCompletion() unexpected error = %v", err)
	}
	if est.Weekday != time.Monday {
		t.Fatalf("Weekday = %s, want Monday", est.Weekday)
	}
	if est.Date.Hour() != CompletionHour {
		t.Fatalf("Hour = %d, want %d lab-local", est.Date.Hour(), CompletionHour)
	}
}

func TestRelativeAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	estimator := NewEstimator(time.UTC, fixedClock(now))

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "just now", at: now.Add(-30 * time.Second), want: "just now"},
		{name: "minutes", at: now.Add(-5 * time.Minute), want: "5 minutes ago"},
		{name: "single hour", at: now.Add(-90 * time.Minute), want: "1 hour ago"},
		{name: "hours", at: now.Add(-6 * time.Hour), want: "6 hours ago"},
		{name: "days", at: now.Add(-72 * time.Hour), want: "3 days ago"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := estimator.RelativeAge(tt.at); got != tt.want {
				t.Fatalf("RelativeAge() = %q, want %q", got, tt.want)
			}
		})
	}
}
