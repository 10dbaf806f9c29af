// Package timeago resolves relative "time ago" phrases such as "3 hours ago"
// into absolute timestamps.
package timeago

import (
	"regexp"
	"strconv"
	"time"
)

var (
	dayPattern    = regexp.MustCompile(`(?i)(\d+) day`)
	hourPattern   = regexp.MustCompile(`(?i)(\d+) hour`)
	minutePattern = regexp.MustCompile(`(?i)(\d+) minute`)
)

// Upper bounds per component. Their sum stays below the largest time.Duration.
const (
	maxDays    = 30000
	maxHours   = maxDays * 24
	maxMinutes = maxDays * 24 * 60
)

// Phrase is a lazy timestamp: the raw relative phrase as scraped, resolved
// against a caller supplied "now" every time it is read.
type Phrase string

// Resolve returns the absolute time the phrase describes relative to now.
func (p Phrase) Resolve(now time.Time) time.Time {
	return Resolve(string(p), now)
}

func (p Phrase) String() string {
	return string(p)
}

// Offset is the structured form of a phrase.
type Offset struct {
	Days    int
	Hours   int
	Minutes int
}

// Duration returns the total length of the offset.
func (o Offset) Duration() time.Duration {
	return time.Duration(o.Days)*24*time.Hour +
		time.Duration(o.Hours)*time.Hour +
		time.Duration(o.Minutes)*time.Minute
}

// Parse extracts the day, hour and minute components of a phrase. Matching is
// case-insensitive and unanchored; only the first occurrence of each unit
// counts. Anything unrecognized contributes nothing.
func Parse(phrase string) Offset {
	return Offset{
		Days:    firstMatch(dayPattern, phrase, maxDays),
		Hours:   firstMatch(hourPattern, phrase, maxHours),
		Minutes: firstMatch(minutePattern, phrase, maxMinutes),
	}
}

// Resolve returns now minus the offset described by phrase. A phrase without
// any recognizable component resolves to now.
func Resolve(phrase string, now time.Time) time.Time {
	return now.Add(-Parse(phrase).Duration())
}

func firstMatch(re *regexp.Regexp, phrase string, limit int) int {
	m := re.FindStringSubmatch(phrase)
	if m == nil {
		return 0
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n > limit {
		return 0
	}
	return n
}
