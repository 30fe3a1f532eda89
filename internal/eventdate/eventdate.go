// Package eventdate classifies the free-text dates organizers type for events
// ("25 OCT 2024", "25 OCT") as past or still active.
//
// Parsing fails open: anything that does not look like a date is treated as
// not past, so a typo never hides an event from listings.
package eventdate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/robertarktes/campus-events/internal/clock"
)

var months = map[string]time.Month{
	"JAN": time.January,
	"FEB": time.February,
	"MAR": time.March,
	"APR": time.April,
	"MAY": time.May,
	"JUN": time.June,
	"JUL": time.July,
	"AUG": time.August,
	"SEP": time.September,
	"OCT": time.October,
	"NOV": time.November,
	"DEC": time.December,
}

type parts struct {
	day   int
	month time.Month
	year  int
}

func split(s string, now time.Time) (parts, bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return parts{}, false
	}
	month, ok := months[strings.ToUpper(fields[1])]
	if !ok {
		return parts{}, false
	}
	day, err := strconv.Atoi(fields[0])
	if err != nil {
		return parts{}, false
	}
	year := now.Year()
	if len(fields) > 2 {
		y, err := strconv.Atoi(fields[2])
		if err != nil {
			return parts{}, false
		}
		year = y
	}
	return parts{day: day, month: month, year: year}, true
}

// EndOfDay returns 23:59:59 of the date in now's location. The year defaults
// to now's year when omitted. Out-of-range days normalize the way time.Date does.
func EndOfDay(s string, now time.Time) (time.Time, bool) {
	p, ok := split(s, now)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(p.year, p.month, p.day, 23, 59, 59, 0, now.Location()), true
}

// IsPast reports whether the whole listed day has elapsed before now.
func IsPast(s string, now time.Time) bool {
	end, ok := EndOfDay(s, now)
	if !ok {
		return false
	}
	return end.Before(now)
}

type Classifier struct {
	clock clock.Clock
}

func NewClassifier(clk clock.Clock) *Classifier {
	return &Classifier{clock: clk}
}

func (c *Classifier) IsPast(s string) bool {
	return IsPast(s, c.clock.Now())
}

func (c *Classifier) Now() time.Time {
	return c.clock.Now()
}

// Partition splits items into active and past, preserving order.
func Partition[T any](items []T, dateOf func(T) string, now time.Time) (active, past []T) {
	active = make([]T, 0, len(items))
	past = make([]T, 0)
	for _, it := range items {
		if IsPast(dateOf(it), now) {
			past = append(past, it)
			continue
		}
		active = append(active, it)
	}
	return active, past
}

// CalendarURL builds a Google Calendar template link running 10:00-14:00 on
// the event's date.
func CalendarURL(title, description, venue, date string, now time.Time) (string, bool) {
	p, ok := split(date, now)
	if !ok {
		return "", false
	}
	if title == "" {
		title = "Campus Event"
	}
	if description == "" {
		description = "Join us for this exciting event!"
	}
	day := fmt.Sprintf("%04d%02d%02d", p.year, int(p.month), p.day)
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", title)
	q.Set("dates", day+"T100000Z/"+day+"T140000Z")
	q.Set("details", description)
	q.Set("location", venue)
	return "https://www.google.com/calendar/render?" + q.Encode(), true
}
