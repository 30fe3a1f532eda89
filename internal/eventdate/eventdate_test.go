package eventdate

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/robertarktes/campus-events/internal/clock"
)

func TestIsPast(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date string
		want bool
	}{
		{"long ago", "01 JAN 2020", true},
		{"far future", "31 DEC 2099", false},
		{"earlier this year without year", "15 FEB", true},
		{"later this year without year", "15 MAR", false},
		{"today is still active", "10 MAR", false},
		{"today with year", "10 mar 2025", false},
		{"yesterday", "09 Mar 2025", true},
		{"lowercase month", "15 mar 2023", true},
		{"extra whitespace", "  15   MAR   2023 ", true},
		{"empty", "", false},
		{"single token", "15", false},
		{"unknown month", "15 MARCH 2023", false},
		{"non numeric day", "XV MAR 2023", false},
		{"non numeric year", "15 MAR soon", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPast(tt.date, now); got != tt.want {
				t.Fatalf("IsPast(%q) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestIsPast_EndOfDayBoundary(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*3600+1800)
	lastSecond := time.Date(2025, time.March, 10, 23, 59, 59, 0, loc)
	if IsPast("10 MAR 2025", lastSecond) {
		t.Fatal("event must stay active through 23:59:59 of its day")
	}
	if !IsPast("10 MAR 2025", lastSecond.Add(time.Second)) {
		t.Fatal("event must be past once the day is over")
	}
}

func TestIsPast_UsesLocationOfNow(t *testing.T) {
	t.Parallel()

	// 2025-03-11 02:00 in IST is still 2025-03-10 in UTC.
	ist := time.FixedZone("IST", 5*3600+1800)
	nowIST := time.Date(2025, time.March, 11, 2, 0, 0, 0, ist)
	if !IsPast("10 MAR 2025", nowIST) {
		t.Fatal("expected past when evaluated on the IST clock")
	}
	if IsPast("10 MAR 2025", nowIST.UTC()) {
		t.Fatal("expected active when evaluated on the UTC clock")
	}
}

func TestClassifier(t *testing.T) {
	t.Parallel()

	c := NewClassifier(clock.NewFixed(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	if !c.IsPast("15 MAR 2023") {
		t.Fatal("expected 15 MAR 2023 to be past in 2025")
	}
	if c.IsPast("15 MAR 2026") {
		t.Fatal("expected 15 MAR 2026 to be active in 2025")
	}
}

func TestPartition(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	dates := []string{"01 JAN 2020", "31 DEC 2099", "garbage", "09 MAR"}

	active, past := Partition(dates, func(s string) string { return s }, now)
	if len(active) != 2 || active[0] != "31 DEC 2099" || active[1] != "garbage" {
		t.Fatalf("unexpected active %v", active)
	}
	if len(past) != 2 || past[0] != "01 JAN 2020" || past[1] != "09 MAR" {
		t.Fatalf("unexpected past %v", past)
	}
}

func TestCalendarURL(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	link, ok := CalendarURL("Hack Night", "", "Main Hall", "5 apr", now)
	if !ok {
		t.Fatal("expected calendar link")
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	if !strings.HasPrefix(link, "https://www.google.com/calendar/render?") {
		t.Fatalf("unexpected base %q", link)
	}
	q := u.Query()
	if q.Get("dates") != "20250405T100000Z/20250405T140000Z" {
		t.Fatalf("unexpected dates %q", q.Get("dates"))
	}
	if q.Get("text") != "Hack Night" || q.Get("location") != "Main Hall" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("details") == "" {
		t.Fatal("expected default details")
	}

	if _, ok := CalendarURL("x", "", "", "TBD", now); ok {
		t.Fatal("expected no link for unparseable date")
	}
}
